package filler

import (
	"context"
	"log"
	"time"

	"github.com/formflow-dev/formflow/internal/llm/parser"
	"github.com/formflow-dev/formflow/pkg/form"
	"github.com/formflow-dev/formflow/pkg/observability"
	"github.com/formflow-dev/formflow/pkg/session"
)

// interrogate runs the single-field clarification pass. The session must be
// awaiting info; the outstanding set is recomputed first so a session with
// nothing left to ask completes without a collaborator call.
func (e *Engine) interrogate(ctx context.Context, state *session.State, message string) error {
	if len(state.MissingFields) == 0 {
		state.History = append(state.History, session.Message{Role: session.RoleUser, Content: message})
		state.Status = session.StatusCompleted
		state.CurrentField = nil
		state.ResponseMessage = completionMessage
		state.History = append(state.History, session.Message{Role: session.RoleAssistant, Content: completionMessage})
		return nil
	}

	if state.CurrentField == nil {
		current := state.MissingFields[0]
		state.CurrentField = &current
	}
	current := *state.CurrentField

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()

	start := time.Now()
	raw, err := e.extractor.ExtractField(callCtx, current, message, current.ValidationMessage)
	if err != nil {
		observability.RecordCollaboratorCall("interrogation", "error", time.Since(start))
		return &CollaboratorError{Service: "interrogation", Err: err}
	}
	observability.RecordCollaboratorCall("interrogation", "ok", time.Since(start))

	result := parser.ParseInterrogation(raw)
	state.History = append(state.History, session.Message{Role: session.RoleUser, Content: message})

	if !result.Structured {
		observability.RecordParseFailure(StepInterrogate.String())
		state.ResponseMessage = result.RawText
		state.Status = session.StatusAwaitingInfo
		return nil
	}

	if result.FieldID != "" && result.FieldID != current.FieldID {
		log.Printf("[filler] interrogation answered field %q while asking %q, keeping the asked field", result.FieldID, current.FieldID)
	}

	// A success report without a value cannot move the field to the
	// filled set; treat it as a retry.
	if result.Success && result.Value != "" {
		e.resolveField(state, current, result)
	} else {
		e.retryField(state, current, result)
	}

	state.History = append(state.History, session.Message{Role: session.RoleAssistant, Content: state.ResponseMessage})
	return nil
}

// resolveField commits the interrogated value and advances to the next
// outstanding field, or completes the session when none remain.
func (e *Engine) resolveField(state *session.State, current form.MissingField, result *parser.InterrogationResult) {
	merged := form.Partition{
		Filled:  state.FilledFields,
		Missing: state.MissingFields,
	}.Fill(current.FieldID, result.Value)

	state.FilledFields = merged.Filled
	state.MissingFields = merged.Missing
	state.FormFields.ApplyValues([]form.FilledField{{FieldID: current.FieldID, Value: result.Value}})

	if len(state.MissingFields) == 0 {
		state.Status = session.StatusCompleted
		state.CurrentField = nil
		state.ResponseMessage = completionMessage
		return
	}

	next := state.MissingFields[0]
	state.CurrentField = &next
	state.Status = session.StatusAwaitingInfo
	state.ResponseMessage = result.Message
	if state.ResponseMessage == "" {
		state.ResponseMessage = askFor(next)
	}
}

// retryField keeps the current field outstanding and records the clarifying
// message so the next interrogation carries it as validation context.
func (e *Engine) retryField(state *session.State, current form.MissingField, result *parser.InterrogationResult) {
	clarification := result.ValidationMessage
	if clarification == "" {
		clarification = result.Message
	}
	if clarification == "" {
		clarification = retryMessage
	}

	current.ValidationMessage = clarification
	state.CurrentField = &current
	for i := range state.MissingFields {
		if state.MissingFields[i].FieldID == current.FieldID {
			state.MissingFields[i] = current
			break
		}
	}

	state.Status = session.StatusAwaitingInfo
	state.ResponseMessage = result.Message
	if state.ResponseMessage == "" {
		state.ResponseMessage = retryMessage
	}
}
