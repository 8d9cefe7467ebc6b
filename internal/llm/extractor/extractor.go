// Package extractor defines the extraction collaborator interface and its
// hosted-model implementations. Extractors return raw model text; callers
// must run it through the parser before use.
package extractor

import (
	"context"

	"github.com/formflow-dev/formflow/pkg/form"
)

// Extractor is the language-model collaborator for form extraction. Both
// calls are request/response; any returned error means the collaborator was
// unavailable and the turn must fail without a state write.
type Extractor interface {
	// Extract performs whole-form extraction from a user message.
	// searchContext is optional retrieval material and may be empty.
	Extract(ctx context.Context, message string, fields form.Registry, searchContext string) (string, error)

	// ExtractField performs single-field interrogation for the current
	// outstanding field, carrying its prior validation message.
	ExtractField(ctx context.Context, field form.MissingField, message, validationMessage string) (string, error)

	// Name returns the extractor name (e.g. "openai", "gemini").
	Name() string
}
