// Package session provides durable state for form-filling conversations.
// One State record exists per thread id; it is the unit of read-modify-write
// for a turn and the only shared mutable resource in the system.
package session

import (
	"time"

	"github.com/formflow-dev/formflow/pkg/form"
)

// Status is the turn-taking state machine position for one thread.
type Status string

const (
	// StatusInProgress marks a freshly created session before its first
	// orchestrator pass has finished.
	StatusInProgress Status = "in_progress"
	// StatusAwaitingInfo marks a session waiting on the user to supply
	// information for outstanding fields.
	StatusAwaitingInfo Status = "awaiting_info"
	// StatusCompleted marks a fully filled form. Completed is terminal.
	StatusCompleted Status = "completed"
)

// Message roles in the conversation transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is the durable memory for one conversation. It is mutated by exactly
// one component per turn and written back atomically; a failed turn leaves
// the stored record untouched.
type State struct {
	// ThreadID is the opaque session identity, immutable for its lifetime.
	ThreadID string `json:"thread_id"`
	// FormFields is the session's snapshot of the field registry.
	FormFields form.Registry `json:"form_fields"`
	// FilledFields and MissingFields partition the registry identities.
	// A field id appears in at most one of the two.
	FilledFields  []form.FilledField  `json:"filled_fields"`
	MissingFields []form.MissingField `json:"missing_fields"`
	// CurrentField is the single missing field being interrogated, if any.
	CurrentField *form.MissingField `json:"current_field,omitempty"`
	// History is the append-only conversation transcript.
	History []Message `json:"conversation_history"`
	// Status is the state machine position.
	Status Status `json:"status"`
	// ResponseMessage is the latest assistant utterance for the caller.
	ResponseMessage string `json:"response_message"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the state. Stores hand out clones so callers
// can never alias the persisted record, and the engine mutates a clone so a
// failed turn commits nothing.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.FormFields = s.FormFields.Clone()
	out.FilledFields = append([]form.FilledField(nil), s.FilledFields...)
	out.MissingFields = cloneMissing(s.MissingFields)
	out.History = append([]Message(nil), s.History...)
	if s.CurrentField != nil {
		cf := *s.CurrentField
		cf.Options = append([]string(nil), cf.Options...)
		out.CurrentField = &cf
	}
	return &out
}

func cloneMissing(missing []form.MissingField) []form.MissingField {
	if missing == nil {
		return nil
	}
	out := make([]form.MissingField, len(missing))
	for i, mf := range missing {
		mf.Options = append([]string(nil), mf.Options...)
		out[i] = mf
	}
	return out
}
