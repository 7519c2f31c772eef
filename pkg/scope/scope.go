// Package scope threads the conversation identifier through the worker
// submission API as an explicit value, rather than relying on a
// thread-local or context-value lookup, per the ambient-scope-propagation
// redesign: each client.BatchRequest task record carries its own Scope.
package scope

import (
	"github.com/rafaelpontezup/stkai-go/pkg/vos"
)

// Scope carries the ambient conversation identifier for one logical
// exchange. Immutable; Enrich returns a copy rather than mutating.
type Scope struct {
	ConversationID string
}

// New mints a Scope with a freshly generated ULID-backed conversation
// identifier.
func New() (Scope, error) {
	id, err := vos.NewULID()
	if err != nil {
		return Scope{}, err
	}
	return Scope{ConversationID: id.String()}, nil
}

// Enrich returns a copy of s with ConversationID set to id, unless s
// already carries one — in which case s is returned unchanged. Never
// mutates the receiver.
func (s Scope) Enrich(id string) Scope {
	if s.ConversationID != "" {
		return s
	}
	return Scope{ConversationID: id}
}
