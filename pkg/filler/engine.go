// Package filler implements the turn-taking core of the form-filling
// assistant: the orchestrator step, the field-interrogation step, and the
// transition logic that reconciles form field state across conversational
// turns.
package filler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	tracing "github.com/formflow-dev/formflow/internal/observability"
	"github.com/formflow-dev/formflow/internal/llm/extractor"
	"github.com/formflow-dev/formflow/internal/search"
	"github.com/formflow-dev/formflow/pkg/form"
	"github.com/formflow-dev/formflow/pkg/observability"
	"github.com/formflow-dev/formflow/pkg/session"
)

const (
	// completionMessage is the fixed assistant utterance for a fully
	// filled form.
	completionMessage = "Great! I've filled out the entire form based on your information."
	// retryMessage is the fallback when an interrogation fails without a
	// usable clarifying message.
	retryMessage = "Please provide the correct information for the field."

	defaultTurnTimeout = 60 * time.Second
)

// Engine exposes the turn API. Turns against the same thread id are
// serialized by a per-thread mutex; a turn either commits exactly one state
// write or fails with none.
type Engine struct {
	store     session.Store
	extractor extractor.Extractor
	augmenter search.Augmenter
	timeout   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithAugmenter sets the optional context augmentation collaborator.
func WithAugmenter(a search.Augmenter) Option {
	return func(e *Engine) { e.augmenter = a }
}

// WithTimeout bounds each collaborator call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an engine with the given store and extraction collaborator.
func New(store session.Store, ex extractor.Extractor, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		extractor: ex,
		timeout:   defaultTurnTimeout,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartTurn creates a new session with a fresh thread id and runs the
// orchestrator step once on the given message and field registry.
func (e *Engine) StartTurn(ctx context.Context, message string, fields form.Registry) (*session.State, error) {
	now := time.Now().UTC()
	state := &session.State{
		ThreadID:   uuid.New().String(),
		FormFields: fields.Clone(),
		History:    []session.Message{},
		Status:     session.StatusInProgress,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx, span := tracing.StartSpan(ctx, "filler.start_turn",
		attribute.String("thread_id", state.ThreadID))
	defer span.End()

	start := time.Now()
	if err := e.orchestrate(ctx, state, message); err != nil {
		span.RecordError(err)
		observability.RecordTurnError(StepOrchestrate.String())
		return nil, err
	}

	state.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save session %s: %w", state.ThreadID, err)
	}

	observability.RecordSessionStarted()
	e.recordOutcome(StepOrchestrate, state, start)
	return state, nil
}

// ContinueTurn loads an existing session, routes the message to the step the
// transition controller selects, and persists the result. Completed sessions
// are terminal: the stored state is returned unchanged with no collaborator
// calls.
func (e *Engine) ContinueTurn(ctx context.Context, threadID, message string) (*session.State, error) {
	unlock := e.lockThread(threadID)
	defer unlock()

	state, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", threadID, err)
	}

	step := NextStep(state.Status)
	if step == StepTerminate {
		return state, nil
	}

	ctx, span := tracing.StartSpan(ctx, "filler.continue_turn",
		attribute.String("thread_id", threadID),
		attribute.String("step", step.String()))
	defer span.End()

	start := time.Now()
	switch step {
	case StepOrchestrate:
		err = e.orchestrate(ctx, state, message)
	case StepInterrogate:
		err = e.interrogate(ctx, state, message)
	}
	if err != nil {
		span.RecordError(err)
		observability.RecordTurnError(step.String())
		return nil, err
	}

	state.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save session %s: %w", threadID, err)
	}

	e.recordOutcome(step, state, start)
	return state, nil
}

// lockThread serializes turns per thread id. Distinct threads proceed in
// parallel without coordination.
func (e *Engine) lockThread(threadID string) func() {
	e.mu.Lock()
	l, ok := e.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[threadID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (e *Engine) recordOutcome(step Step, state *session.State, start time.Time) {
	observability.RecordTurn(step.String(), string(state.Status), time.Since(start))
	if state.Status == session.StatusCompleted {
		observability.RecordSessionCompleted()
	}
}

// callCtx bounds a collaborator call with the configured timeout.
func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return ctx, func() {}
}

// augmentContext fetches optional retrieval context. Failure degrades to an
// empty context string and never aborts the turn.
func (e *Engine) augmentContext(ctx context.Context, message string, fields form.Registry) string {
	if e.augmenter == nil {
		return ""
	}

	callCtx, cancel := e.callCtx(ctx)
	defer cancel()

	start := time.Now()
	out, err := e.augmenter.Augment(callCtx, message, fields)
	if err != nil {
		observability.RecordCollaboratorCall("augmentation", "error", time.Since(start))
		log.Printf("[filler] augmentation failed, continuing without context: %v", err)
		return ""
	}
	observability.RecordCollaboratorCall("augmentation", "ok", time.Since(start))
	return out
}
