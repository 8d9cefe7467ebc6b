package extractor

import (
	"context"
	"fmt"
	"sync"

	"github.com/formflow-dev/formflow/pkg/form"
)

// Scripted is an Extractor that replays a queue of canned responses. It
// backs the engine tests and the offline demo mode; no network calls.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	err       error

	// Last request captured, for assertions.
	LastMessage    string
	LastField      *form.MissingField
	LastContext    string
	LastValidation string
	Calls          int
}

// NewScripted creates a scripted extractor that returns the given responses
// in order.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Name returns the extractor name.
func (s *Scripted) Name() string {
	return "script"
}

// SetError forces all subsequent calls to fail, simulating an unreachable
// collaborator.
func (s *Scripted) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Push appends another canned response to the queue.
func (s *Scripted) Push(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
}

// Extract replays the next canned response.
func (s *Scripted) Extract(ctx context.Context, message string, fields form.Registry, searchContext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastMessage = message
	s.LastContext = searchContext
	s.LastField = nil
	return s.next(ctx)
}

// ExtractField replays the next canned response.
func (s *Scripted) ExtractField(ctx context.Context, field form.MissingField, message, validationMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastMessage = message
	s.LastValidation = validationMessage
	f := field
	s.LastField = &f
	return s.next(ctx)
}

func (s *Scripted) next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.Calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scripted extractor: no responses left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}
