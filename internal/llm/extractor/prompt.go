package extractor

import (
	"fmt"
	"strings"

	"github.com/formflow-dev/formflow/pkg/form"
)

const formSystemPrompt = `You are a form-filling assistant. Analyze the user's message and extract information to fill in form fields.
For each form field provided, determine:
1. If the field can be filled based on the user's message
2. The appropriate value for the field
3. If additional information is needed

Return a JSON object of the shape:
{"message": "<response to the user>", "filled_fields": [{"field_id": "...", "value": "..."}], "missing_fields": [{"field_id": "...", "label": "...", "type": "...", "required": true, "validation_message": "..."}]}

Every field must appear in exactly one of filled_fields or missing_fields. If a field cannot be filled, set validation_message to the specific detail of the information required.`

const fieldSystemPrompt = `You are a field process assistant. Fill the single form field below using the user's message.
1. Update the field value with relevant information from the user's message.
2. If the value satisfies the field, return success true.
3. If you cannot fill the field, return success false with a validation_message describing exactly what information is required and a message asking the user for it.

Return a JSON object of the shape:
{"message": "<response to the user>", "success": <true|false>, "current_field_details": {"field_id": "...", "value": "...", "validation_message": "..."}}`

// buildFormPrompt composes the system and user messages for a whole-form
// extraction call.
func buildFormPrompt(message string, fields form.Registry, searchContext string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "User message: %s\n\nForm fields:\n", message)
	for _, f := range fields {
		b.WriteString(describeField(f))
		b.WriteByte('\n')
	}
	if searchContext != "" {
		fmt.Fprintf(&b, "\nReference material:\n%s\n", searchContext)
	}
	return formSystemPrompt, b.String()
}

// buildFieldPrompt composes the system and user messages for a single-field
// interrogation call.
func buildFieldPrompt(field form.MissingField, message, validationMessage string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "User message: %s\n\nField:\n", message)
	fmt.Fprintf(&b, "Field ID: %s\n", field.FieldID)
	if field.Label != "" {
		fmt.Fprintf(&b, "Label: %s\n", field.Label)
	}
	if field.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", field.Type)
	}
	if len(field.Options) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(field.Options, ", "))
	}
	fmt.Fprintf(&b, "Required: %s\n", yesNo(field.Required))
	if validationMessage != "" {
		fmt.Fprintf(&b, "Outstanding issue: %s\n", validationMessage)
	}
	return fieldSystemPrompt, b.String()
}

// describeField renders one field definition for the model.
func describeField(f form.FormField) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Field ID: %s\n", f.FieldID)
	if f.Label != "" {
		fmt.Fprintf(&b, "Label: %s\n", f.Label)
	}
	if f.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", f.Type)
	}
	if f.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", f.Description)
	}
	if len(f.Options) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(f.Options, ", "))
	}
	if f.ValidationRule != "" {
		fmt.Fprintf(&b, "Validation: %s\n", f.ValidationRule)
	}
	fmt.Fprintf(&b, "Required: %s\n", yesNo(f.Required))
	if f.Value != "" {
		fmt.Fprintf(&b, "Current value: %s\n", f.Value)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
