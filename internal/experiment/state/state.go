// Package state holds experiment variants computed during a server render
// until the client pass persists them to the enrollment cookie.
package state

import "sync"

// ActionType identifies a state transition.
type ActionType string

// ActionStoreExperimentVariant replaces the pending variant for one experiment.
const ActionStoreExperimentVariant ActionType = "STORE_EXPERIMENT_VARIANT"

// State maps experiment ids to their pending variant.
type State map[string]string

// StoreVariantParams is the payload of ActionStoreExperimentVariant. An empty
// Variant clears the entry.
type StoreVariantParams struct {
	ID      string `json:"id"`
	Variant string `json:"variant"`
}

// Action is a state transition request.
type Action struct {
	Type    ActionType         `json:"type"`
	Payload StoreVariantParams `json:"payload"`
}

// StoreExperimentVariant builds the action that parks or clears a variant.
func StoreExperimentVariant(id, variant string) Action {
	return Action{
		Type:    ActionStoreExperimentVariant,
		Payload: StoreVariantParams{ID: id, Variant: variant},
	}
}

// Reduce applies action to state and returns the next state. The input is
// never mutated.
func Reduce(current State, action Action) State {
	switch action.Type {
	case ActionStoreExperimentVariant:
		id := action.Payload.ID
		if id == "" {
			return current
		}
		next := make(State, len(current)+1)
		for key, value := range current {
			next[key] = value
		}
		if action.Payload.Variant == "" {
			delete(next, id)
		} else {
			next[id] = action.Payload.Variant
		}
		return next
	default:
		if current == nil {
			return State{}
		}
		return current
	}
}

// Store is the request-scoped container around State.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore creates a store seeded with initial, typically decoded from the
// server render payload.
func NewStore(initial State) *Store {
	s := &Store{state: State{}}
	for id, variant := range initial {
		s.state = Reduce(s.state, StoreExperimentVariant(id, variant))
	}
	return s
}

// Pending returns the parked variant for id.
func (s *Store) Pending(id string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	variant, ok := s.state[id]
	return variant, ok
}

// Dispatch applies action to the store.
func (s *Store) Dispatch(action Action) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	if s == nil {
		return State{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(State, len(s.state))
	for id, variant := range s.state {
		out[id] = variant
	}
	return out
}
