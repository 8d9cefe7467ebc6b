package filler

import (
	"context"
	"fmt"
	"time"

	"github.com/formflow-dev/formflow/internal/llm/parser"
	"github.com/formflow-dev/formflow/pkg/form"
	"github.com/formflow-dev/formflow/pkg/observability"
	"github.com/formflow-dev/formflow/pkg/session"
)

// orchestrate runs the whole-form extraction pass: augment, extract, parse,
// merge, and decide the next status. It mutates state in place; the caller
// persists on success only.
func (e *Engine) orchestrate(ctx context.Context, state *session.State, message string) error {
	searchContext := e.augmentContext(ctx, message, state.FormFields)

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()

	start := time.Now()
	raw, err := e.extractor.Extract(callCtx, message, state.FormFields, searchContext)
	if err != nil {
		observability.RecordCollaboratorCall("extraction", "error", time.Since(start))
		return &CollaboratorError{Service: "extraction", Err: err}
	}
	observability.RecordCollaboratorCall("extraction", "ok", time.Since(start))

	result := parser.ParseExtraction(raw)
	state.History = append(state.History, session.Message{Role: session.RoleUser, Content: message})

	if !result.Structured {
		observability.RecordParseFailure(StepOrchestrate.String())
		state.ResponseMessage = result.RawText
		state.Status = session.StatusAwaitingInfo
		return nil
	}

	merged := form.Partition{
		Filled:  state.FilledFields,
		Missing: state.MissingFields,
	}.Merge(state.FormFields, result.FilledFields, result.MissingFields)

	state.FilledFields = merged.Filled
	state.MissingFields = merged.Missing
	state.FormFields.ApplyValues(merged.Filled)

	if len(state.MissingFields) == 0 {
		state.Status = session.StatusCompleted
		state.CurrentField = nil
		state.ResponseMessage = completionMessage
	} else {
		state.Status = session.StatusAwaitingInfo
		current := state.MissingFields[0]
		state.CurrentField = &current
		state.ResponseMessage = result.Message
		if state.ResponseMessage == "" {
			state.ResponseMessage = askFor(current)
		}
	}

	state.History = append(state.History, session.Message{Role: session.RoleAssistant, Content: state.ResponseMessage})
	return nil
}

// askFor builds a fallback question when the extraction response carried no
// usable message.
func askFor(field form.MissingField) string {
	label := field.Label
	if label == "" {
		label = field.FieldID
	}
	return fmt.Sprintf("Please provide a value for %s.", label)
}
