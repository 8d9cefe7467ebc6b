package filler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow-dev/formflow/internal/llm/extractor"
	"github.com/formflow-dev/formflow/internal/search"
	"github.com/formflow-dev/formflow/pkg/form"
	"github.com/formflow-dev/formflow/pkg/session"
)

func testFields() form.Registry {
	return form.Registry{
		{FieldID: "name", Label: "Full name", Type: form.FieldTypeText, Required: true},
		{FieldID: "age", Label: "Age", Type: form.FieldTypeText, Required: true},
		{FieldID: "color", Label: "Favorite color", Type: form.FieldTypeSelect, Options: []string{"red", "blue"}},
	}
}

func newTestEngine(responses ...string) (*Engine, *extractor.Scripted, *session.MemoryStore) {
	script := extractor.NewScripted(responses...)
	store := session.NewMemoryStore(0)
	return New(store, script), script, store
}

func TestStartTurnFillsEverything(t *testing.T) {
	engine, _, _ := newTestEngine(
		`{"filled_fields": {"name": "Ada", "age": "36", "color": "blue"}, "missing_fields": [], "message": "all set"}`,
	)

	state, err := engine.StartTurn(context.Background(), "I'm Ada, 36, and I like blue", testFields())
	require.NoError(t, err)

	assert.NotEmpty(t, state.ThreadID)
	assert.Equal(t, session.StatusCompleted, state.Status)
	assert.Equal(t, "Great! I've filled out the entire form based on your information.", state.ResponseMessage)
	assert.Nil(t, state.CurrentField)
	assert.Len(t, state.FilledFields, 3)
	assert.Empty(t, state.MissingFields)

	// Resolved values fold back into the field snapshot.
	name, ok := state.FormFields.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "Ada", name.Value)
}

func TestStartTurnPartialExtraction(t *testing.T) {
	engine, _, _ := newTestEngine(
		`{"filled_fields": [{"field_id": "name", "value": "Ada"}],
		  "missing_fields": [{"field_id": "age", "label": "Age", "required": true}],
		  "message": "What is your age?"}`,
	)

	state, err := engine.StartTurn(context.Background(), "I'm Ada", testFields())
	require.NoError(t, err)

	assert.Equal(t, session.StatusAwaitingInfo, state.Status)
	assert.Equal(t, "What is your age?", state.ResponseMessage)
	require.NotNil(t, state.CurrentField)
	assert.Equal(t, "age", state.CurrentField.FieldID)
	require.Len(t, state.FilledFields, 1)
	assert.Equal(t, form.FilledField{FieldID: "name", Value: "Ada"}, state.FilledFields[0])

	require.Len(t, state.History, 2)
	assert.Equal(t, session.RoleUser, state.History[0].Role)
	assert.Equal(t, "I'm Ada", state.History[0].Content)
	assert.Equal(t, session.RoleAssistant, state.History[1].Role)
}

func TestStartTurnLegacyMissingFields(t *testing.T) {
	engine, _, _ := newTestEngine(
		`{"filled_fields": {}, "missing_fields": ["name", "age"], "message": "I need a few details."}`,
	)

	state, err := engine.StartTurn(context.Background(), "help me fill this form", testFields())
	require.NoError(t, err)

	assert.Equal(t, session.StatusAwaitingInfo, state.Status)
	require.Len(t, state.MissingFields, 2)
	for _, mf := range state.MissingFields {
		assert.True(t, mf.Required, "legacy entries default to required")
	}
	require.NotNil(t, state.CurrentField)
	assert.Equal(t, "name", state.CurrentField.FieldID)
}

func TestStartTurnUnstructuredResponse(t *testing.T) {
	prose := "Could you tell me a bit more about yourself first?"
	engine, _, _ := newTestEngine(prose)

	state, err := engine.StartTurn(context.Background(), "hello", testFields())
	require.NoError(t, err)

	assert.Equal(t, session.StatusAwaitingInfo, state.Status)
	assert.Equal(t, prose, state.ResponseMessage)
	assert.Empty(t, state.FilledFields)
	assert.Empty(t, state.MissingFields)

	// Only the user message lands in the transcript on the degraded path.
	require.Len(t, state.History, 1)
	assert.Equal(t, session.RoleUser, state.History[0].Role)
}

func TestContinueAfterUnstructuredCompletes(t *testing.T) {
	engine, script, _ := newTestEngine("just some prose")

	state, err := engine.StartTurn(context.Background(), "hello", testFields())
	require.NoError(t, err)
	require.Equal(t, session.StatusAwaitingInfo, state.Status)

	// Nothing is outstanding, so the next turn completes without another
	// collaborator call.
	state, err = engine.ContinueTurn(context.Background(), state.ThreadID, "ok")
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, state.Status)
	assert.Equal(t, 1, script.Calls)
}

func TestInterrogationResolvesLastField(t *testing.T) {
	engine, _, _ := newTestEngine(
		`{"filled_fields": {"name": "Ada", "color": "blue"},
		  "missing_fields": [{"field_id": "age", "label": "Age", "required": true}],
		  "message": "How old are you?"}`,
		`{"success": true, "message": "Got it", "current_field_details": {"field_id": "age", "value": "42"}}`,
	)

	state, err := engine.StartTurn(context.Background(), "I'm Ada and I like blue", testFields())
	require.NoError(t, err)
	require.Equal(t, session.StatusAwaitingInfo, state.Status)

	state, err = engine.ContinueTurn(context.Background(), state.ThreadID, "42")
	require.NoError(t, err)

	assert.Equal(t, session.StatusCompleted, state.Status)
	assert.Nil(t, state.CurrentField)
	assert.Empty(t, state.MissingFields)

	age, ok := state.FormFields.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, "42", age.Value)
}

func TestInterrogationAdvancesToNextField(t *testing.T) {
	engine, script, _ := newTestEngine(
		`{"filled_fields": {"color": "blue"},
		  "missing_fields": [{"field_id": "name", "label": "Full name"}, {"field_id": "age", "label": "Age"}],
		  "message": "What is your name?"}`,
		`{"success": true, "message": "Thanks! And your age?", "current_field_details": {"field_id": "name", "value": "Ada"}}`,
	)

	state, err := engine.StartTurn(context.Background(), "blue is my color", testFields())
	require.NoError(t, err)

	state, err = engine.ContinueTurn(context.Background(), state.ThreadID, "Ada")
	require.NoError(t, err)

	assert.Equal(t, session.StatusAwaitingInfo, state.Status)
	require.NotNil(t, state.CurrentField)
	assert.Equal(t, "age", state.CurrentField.FieldID)
	assert.Equal(t, "Thanks! And your age?", state.ResponseMessage)
	require.NotNil(t, script.LastField)
	assert.Equal(t, "name", script.LastField.FieldID)
}

func TestInterrogationFailureKeepsField(t *testing.T) {
	engine, script, _ := newTestEngine(
		`{"filled_fields": {"name": "Ada", "color": "blue"},
		  "missing_fields": [{"field_id": "age", "label": "Age", "required": true}],
		  "message": "How old are you?"}`,
		`{"success": false, "message": "Age must be a number.",
		  "current_field_details": {"field_id": "age", "value": "", "validation_message": "must be numeric"}}`,
		`{"success": true, "message": "Got it", "current_field_details": {"field_id": "age", "value": "42"}}`,
	)

	state, err := engine.StartTurn(context.Background(), "I'm Ada and I like blue", testFields())
	require.NoError(t, err)

	state, err = engine.ContinueTurn(context.Background(), state.ThreadID, "old enough")
	require.NoError(t, err)

	assert.Equal(t, session.StatusAwaitingInfo, state.Status)
	require.NotNil(t, state.CurrentField)
	assert.Equal(t, "age", state.CurrentField.FieldID)
	assert.Equal(t, "must be numeric", state.CurrentField.ValidationMessage)
	assert.Equal(t, "Age must be a number.", state.ResponseMessage)
	for _, ff := range state.FilledFields {
		assert.NotEqual(t, "age", ff.FieldID, "age must not be filled yet")
	}

	// The recorded validation message rides along on the retry.
	state, err = engine.ContinueTurn(context.Background(), state.ThreadID, "42")
	require.NoError(t, err)
	assert.Equal(t, "must be numeric", script.LastValidation)
	assert.Equal(t, session.StatusCompleted, state.Status)
}

func TestInterrogationSuccessWithoutValueRetries(t *testing.T) {
	engine, _, _ := newTestEngine(
		`{"filled_fields": {"name": "Ada", "color": "blue"},
		  "missing_fields": [{"field_id": "age", "label": "Age"}],
		  "message": "How old are you?"}`,
		`{"success": true, "message": "", "current_field_details": {"field_id": "age", "value": ""}}`,
	)

	state, err := engine.StartTurn(context.Background(), "I'm Ada and I like blue", testFields())
	require.NoError(t, err)

	state, err = engine.ContinueTurn(context.Background(), state.ThreadID, "hmm")
	require.NoError(t, err)

	assert.Equal(t, session.StatusAwaitingInfo, state.Status)
	require.NotNil(t, state.CurrentField)
	assert.Equal(t, "age", state.CurrentField.FieldID)
	assert.Equal(t, "Please provide the correct information for the field.", state.ResponseMessage)
}

func TestContinueTurnUnknownThread(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.ContinueTurn(context.Background(), "no-such-thread", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestStartTurnThreadIDsAreUnique(t *testing.T) {
	engine, script, _ := newTestEngine()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		script.Push(`{"filled_fields": {"name": "Ada", "age": "36", "color": "blue"}, "missing_fields": []}`)
		state, err := engine.StartTurn(context.Background(), "hi", testFields())
		require.NoError(t, err)
		require.False(t, seen[state.ThreadID], "thread id %s issued twice", state.ThreadID)
		seen[state.ThreadID] = true
	}
}

func TestCompletedSessionIsTerminal(t *testing.T) {
	engine, script, _ := newTestEngine(
		`{"filled_fields": {"name": "Ada", "age": "36", "color": "blue"}, "missing_fields": []}`,
	)

	state, err := engine.StartTurn(context.Background(), "everything at once", testFields())
	require.NoError(t, err)
	require.Equal(t, session.StatusCompleted, state.Status)

	before := *state
	after, err := engine.ContinueTurn(context.Background(), state.ThreadID, "one more thing")
	require.NoError(t, err)

	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Len(t, after.History, len(before.History))
	assert.Equal(t, 1, script.Calls, "no collaborator call after completion")
}

func TestCollaboratorFailureWritesNothing(t *testing.T) {
	engine, script, store := newTestEngine(
		`{"filled_fields": {"name": "Ada"}, "missing_fields": [{"field_id": "age"}], "message": "Age?"}`,
	)

	state, err := engine.StartTurn(context.Background(), "I'm Ada", testFields())
	require.NoError(t, err)

	script.SetError(errors.New("connection refused"))
	_, err = engine.ContinueTurn(context.Background(), state.ThreadID, "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)

	var collabErr *CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, "interrogation", collabErr.Service)

	// The stored record is untouched by the failed turn.
	stored, err := store.Load(context.Background(), state.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, state.UpdatedAt, stored.UpdatedAt)
	assert.Len(t, stored.History, len(state.History))
}

func TestFieldReportedFilledAndMissingEndsFilled(t *testing.T) {
	engine, _, _ := newTestEngine(
		`{"filled_fields": [{"field_id": "name", "value": "Ada"}],
		  "missing_fields": [{"field_id": "name"}, {"field_id": "age"}],
		  "message": "Age?"}`,
	)

	state, err := engine.StartTurn(context.Background(), "I'm Ada", testFields())
	require.NoError(t, err)

	require.Len(t, state.FilledFields, 1)
	assert.Equal(t, "name", state.FilledFields[0].FieldID)
	require.Len(t, state.MissingFields, 1)
	assert.Equal(t, "age", state.MissingFields[0].FieldID)
}

func TestAugmenterContextReachesExtractor(t *testing.T) {
	script := extractor.NewScripted(
		`{"filled_fields": {"name": "Ada", "age": "36", "color": "blue"}, "missing_fields": []}`,
	)
	store := session.NewMemoryStore(0)
	docs := []search.Document{{Title: "Naming", Content: "Full name includes given and family name."}}
	engine := New(store, script, WithAugmenter(search.NewKeyword(docs, 3)))

	_, err := engine.StartTurn(context.Background(), "my name is Ada", testFields())
	require.NoError(t, err)
	assert.Contains(t, script.LastContext, "given and family name")
}

type failingAugmenter struct{}

func (failingAugmenter) Augment(ctx context.Context, message string, fields form.Registry) (string, error) {
	return "", fmt.Errorf("search backend down")
}

func TestAugmenterFailureDegradesToEmptyContext(t *testing.T) {
	script := extractor.NewScripted(
		`{"filled_fields": {"name": "Ada", "age": "36", "color": "blue"}, "missing_fields": []}`,
	)
	store := session.NewMemoryStore(0)
	engine := New(store, script, WithAugmenter(failingAugmenter{}))

	state, err := engine.StartTurn(context.Background(), "my name is Ada", testFields())
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, state.Status)
	assert.Empty(t, script.LastContext)
}

func TestConcurrentTurnsOnOneThreadSerialize(t *testing.T) {
	const turns = 16

	engine, script, _ := newTestEngine(
		`{"filled_fields": {"name": "Ada", "color": "blue"},
		  "missing_fields": [{"field_id": "age", "label": "Age"}],
		  "message": "How old are you?"}`,
	)
	for i := 0; i < turns; i++ {
		script.Push(`{"success": false, "message": "Still not a number."}`)
	}

	state, err := engine.StartTurn(context.Background(), "I'm Ada and I like blue", testFields())
	require.NoError(t, err)
	historyBefore := len(state.History)

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ContinueTurn(context.Background(), state.ThreadID, "not a number")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every turn committed exactly one read-modify-write.
	final, err := engine.ContinueTurn(context.Background(), state.ThreadID, "42")
	require.Error(t, err, "scripted queue is exhausted")

	final, err = engine.store.Load(context.Background(), state.ThreadID)
	require.NoError(t, err)
	assert.Len(t, final.History, historyBefore+2*turns)
	assert.Equal(t, session.StatusAwaitingInfo, final.Status)
	require.NotNil(t, final.CurrentField)
	assert.Equal(t, "age", final.CurrentField.FieldID)
}

func TestNextStep(t *testing.T) {
	cases := []struct {
		status session.Status
		want   Step
	}{
		{session.StatusInProgress, StepOrchestrate},
		{session.StatusAwaitingInfo, StepInterrogate},
		{session.StatusCompleted, StepTerminate},
		{session.Status("unexpected"), StepOrchestrate},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NextStep(tc.status), "status %q", tc.status)
	}
}
