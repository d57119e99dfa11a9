package chat

import (
	"sync"

	"github.com/bottleservice/bottleservice-server/internal/domain"
	domainerrors "github.com/bottleservice/bottleservice-server/internal/errors"
)

// Turns tracks the one in-flight turn each user may have.
type Turns struct {
	mu     sync.Mutex
	states map[string]domain.TurnState
}

// NewTurns creates an empty tracker.
func NewTurns() *Turns {
	return &Turns{states: make(map[string]domain.TurnState)}
}

// Begin moves userID from idle to awaiting_response. It fails with a conflict
// while another turn is running.
func (t *Turns) Begin(userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.states[userID]; ok && st != domain.TurnIdle {
		return domainerrors.Conflict("a reply is still in progress").
			WithDetails(map[string]any{"state": st})
	}
	t.states[userID] = domain.TurnAwaitingResponse
	return nil
}

// Streaming marks the reply as being revealed.
func (t *Turns) Streaming(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.states[userID]; ok {
		t.states[userID] = domain.TurnStreaming
	}
}

// End returns userID to idle.
func (t *Turns) End(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, userID)
}

// State returns the current turn state of userID.
func (t *Turns) State(userID string) domain.TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[userID]; ok {
		return st
	}
	return domain.TurnIdle
}
