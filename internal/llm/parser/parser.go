// Package parser turns raw, untrusted model output into structured
// extraction results. It is the single normalization boundary: every
// historical naming variant and malformed payload is mapped onto the
// canonical form types here, and parse failures degrade to an unstructured
// result instead of an error. Nothing in this package panics or raises on
// bad input.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/formflow-dev/formflow/pkg/form"
)

// ExtractionResult is the outcome of parsing a whole-form extraction
// response. When Structured is false the payload could not be parsed and
// Message carries the raw text, to be surfaced as a clarifying question.
type ExtractionResult struct {
	FilledFields  []form.FilledField
	MissingFields []form.MissingField
	Message       string
	Structured    bool
	RawText       string
}

// InterrogationResult is the outcome of parsing a single-field
// interrogation response.
type InterrogationResult struct {
	FieldID           string
	Value             string
	ValidationMessage string
	Success           bool
	Message           string
	Structured        bool
	RawText           string
}

var (
	fenceRe       = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	finalAnswerRe = regexp.MustCompile(`(?is)(?:final answer|answer|result)\s*:\s*`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKey   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// ParseExtraction parses a whole-form extraction response.
func ParseExtraction(raw string) *ExtractionResult {
	result := &ExtractionResult{RawText: raw}

	payload, ok := decodePayload(raw)
	if !ok {
		result.Message = strings.TrimSpace(raw)
		return result
	}

	result.Structured = true
	result.Message = stringValue(payload, "message")
	result.FilledFields = normalizeFilled(payload["filled_fields"])
	result.MissingFields = NormalizeMissing(payload["missing_fields"])
	return result
}

// ParseInterrogation parses a single-field interrogation response.
// Both the `success` boolean and the legacy `status: "success"` string are
// accepted.
func ParseInterrogation(raw string) *InterrogationResult {
	result := &InterrogationResult{RawText: raw}

	payload, ok := decodePayload(raw)
	if !ok {
		result.Message = strings.TrimSpace(raw)
		return result
	}

	result.Structured = true
	result.Message = stringValue(payload, "message")
	result.Success = successValue(payload)

	if details, ok := payload["current_field_details"].(map[string]any); ok {
		result.FieldID = aliasString(details, "field_id", "data_id", "id")
		result.Value = aliasString(details, "value", "field_value", "fieldValue")
		result.ValidationMessage = aliasString(details, "validation_message", "validationMessage")
	}
	return result
}

// decodePayload extracts and decodes the outermost JSON object from raw
// model text. It strips code fences and answer prefixes, locates the
// balanced brace block, normalizes Python-style literals, and falls back to
// a lenient decode before giving up.
func decodePayload(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if loc := finalAnswerRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}

	block, ok := balancedBlock(text)
	if !ok {
		return nil, false
	}
	block = normalizeLiterals(block)

	var payload map[string]any
	if err := json.Unmarshal([]byte(block), &payload); err == nil {
		return payload, true
	}
	if err := json.Unmarshal([]byte(lenientFix(block)), &payload); err == nil {
		return payload, true
	}
	return nil, false
}

// balancedBlock returns the outermost {...} block of text, found by bracket
// matching rather than regex truncation so nested braces survive.
func balancedBlock(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// normalizeLiterals rewrites Python-style literals that upstream models leak
// into otherwise-valid JSON.
func normalizeLiterals(s string) string {
	replacer := strings.NewReplacer(
		": True", ": true",
		":True", ":true",
		": False", ": false",
		":False", ":false",
		": None", ": null",
		":None", ":null",
	)
	return replacer.Replace(s)
}

// lenientFix repairs the JSON defects models commonly produce: single
// quotes, trailing commas, and unquoted keys.
func lenientFix(s string) string {
	s = fixQuotes(s)
	s = trailingComma.ReplaceAllString(s, "$1")
	s = unquotedKey.ReplaceAllString(s, `$1"$2":`)
	return s
}

// fixQuotes converts single-quoted strings to double-quoted ones while
// leaving apostrophes inside double-quoted strings alone.
func fixQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble := false
	inSingle := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
			b.WriteByte(c)
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
			b.WriteByte(c)
		case '\'':
			switch {
			case inDouble:
				b.WriteByte(c)
			case inSingle:
				inSingle = false
				b.WriteByte('"')
			default:
				inSingle = true
				b.WriteByte('"')
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func stringValue(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func successValue(m map[string]any) bool {
	switch v := m["success"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	if status, ok := m["status"].(string); ok {
		return strings.EqualFold(status, "success")
	}
	return false
}
