// Package service holds the use cases of the bar shelf: catalog, shelf,
// custom bottles, the add-bottle form, settings, chat and scanning.
package service

import "github.com/bottleservice/bottleservice-server/internal/sse"

// EventEmitter delivers change notifications. *sse.Manager implements it.
type EventEmitter interface {
	Emit(event sse.Event)
	EmitToUser(userID string, event sse.Event)
}

type discardEvents struct{}

func (discardEvents) Emit(sse.Event)               {}
func (discardEvents) EmitToUser(string, sse.Event) {}

func orDiscard(e EventEmitter) EventEmitter {
	if e == nil {
		return discardEvents{}
	}
	return e
}
