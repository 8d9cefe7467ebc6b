// Package form defines the canonical representation of a form's fields and
// the partition of those fields into filled and missing sets.
// All other shapes produced by upstream models are normalized onto these
// types at the parsing boundary; alternate shapes never leak past it.
package form

// FieldType enumerates the supported form input types.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeOther    FieldType = "other"
)

// FormField is one form input definition. FieldID is the primary identity
// key; all merges join on it and it is never regenerated within a session.
type FormField struct {
	// FieldID uniquely identifies the field within a session.
	FieldID string `json:"field_id" yaml:"field_id"`
	// Label is the human-readable name of the field.
	Label string `json:"label,omitempty" yaml:"label"`
	// Type is the input type (text, radio, select, checkbox, textarea, other).
	Type FieldType `json:"type,omitempty" yaml:"type"`
	// Options lists possible values for choice types, in presentation order.
	Options []string `json:"options,omitempty" yaml:"options"`
	// Required indicates whether the field must be filled.
	Required bool `json:"required" yaml:"required"`
	// Value is the current value, empty until resolved.
	Value string `json:"value,omitempty" yaml:"value"`
	// Description is optional help text.
	Description string `json:"description,omitempty" yaml:"description"`
	// ValidationRule is an optional free-form validation hint.
	ValidationRule string `json:"validation_rule,omitempty" yaml:"validation_rule"`
}

// FilledField pairs a field identity with its resolved value.
type FilledField struct {
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

// MissingField describes an outstanding field. It carries enough of the
// original field's metadata to be re-presented to the user without another
// registry lookup.
type MissingField struct {
	FieldID  string    `json:"field_id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required"`
	Value    string    `json:"value"`
	// ValidationMessage explains why the field is still outstanding.
	ValidationMessage string `json:"validation_message"`
}

// AsMissing converts a registry field into its missing-field representation.
func (f FormField) AsMissing(validationMessage string) MissingField {
	return MissingField{
		FieldID:           f.FieldID,
		Label:             f.Label,
		Type:              f.Type,
		Options:           append([]string(nil), f.Options...),
		Required:          f.Required,
		Value:             f.Value,
		ValidationMessage: validationMessage,
	}
}
