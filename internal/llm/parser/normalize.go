package parser

import (
	"fmt"

	"github.com/formflow-dev/formflow/pkg/form"
)

// Historical payloads name the same concepts several ways: field_id/data_id/
// id, label/field_label/fieldLabel, and so on. The alias tables below map
// every observed variant onto the canonical form types.

// normalizeFilled accepts filled fields as a JSON object ({id: value}) or a
// list of records and produces canonical FilledField entries.
func normalizeFilled(v any) []form.FilledField {
	switch filled := v.(type) {
	case map[string]any:
		out := make([]form.FilledField, 0, len(filled))
		for id, val := range filled {
			out = append(out, form.FilledField{FieldID: id, Value: scalarString(val)})
		}
		return out
	case []any:
		out := make([]form.FilledField, 0, len(filled))
		for _, entry := range filled {
			record, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			id := aliasString(record, "field_id", "data_id", "id")
			if id == "" {
				continue
			}
			out = append(out, form.FilledField{
				FieldID: id,
				Value:   aliasString(record, "value", "field_value", "fieldValue"),
			})
		}
		return out
	}
	return nil
}

// NormalizeMissing accepts missing fields as a list of bare id strings (the
// legacy shape) or a list of records and produces canonical MissingField
// entries. Normalizing an already-normalized list is a no-op: records pass
// through with the same ids, metadata, and order.
func NormalizeMissing(v any) []form.MissingField {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]form.MissingField, 0, len(list))
	for _, entry := range list {
		switch mf := entry.(type) {
		case string:
			out = append(out, form.MissingField{FieldID: mf, Required: true})
		case map[string]any:
			id := aliasString(mf, "field_id", "data_id", "id")
			if id == "" {
				continue
			}
			out = append(out, form.MissingField{
				FieldID:           id,
				Label:             aliasString(mf, "label", "field_label", "fieldLabel"),
				Type:              form.FieldType(aliasString(mf, "type", "field_type", "fieldType")),
				Options:           stringSlice(mf["options"]),
				Required:          aliasBool(mf, true, "required", "is_required", "isRequired"),
				Value:             aliasString(mf, "value", "field_value", "fieldValue"),
				ValidationMessage: aliasString(mf, "validation_message", "validationMessage"),
			})
		}
	}
	return out
}

func aliasString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func aliasBool(m map[string]any, fallback bool, keys ...string) bool {
	for _, key := range keys {
		if v, ok := m[key].(bool); ok {
			return v
		}
	}
	return fallback
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64, bool:
		return fmt.Sprintf("%v", s)
	}
	return ""
}

func stringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s := scalarString(entry); s != "" {
			out = append(out, s)
		}
	}
	return out
}
