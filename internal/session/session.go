// Package session is the short-lived per-conversation scratchpad. State
// lives only for the duration of one multi-step mode and is cleared on
// completion or cancellation; the durable "memory" of the designer is the
// reply chain itself, not this store.
package session

import "sync"

type Phase int

const (
	// PhaseActive is the idle designer state: the next message is routed
	// by its own shape.
	PhaseActive Phase = iota
	// PhaseAwaitingReplayPhoto means a history entry was selected for
	// replay and the user still owes a photo with a caption.
	PhaseAwaitingReplayPhoto
)

type State struct {
	Phase                Phase
	SelectedGenerationID string
}

type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

func (s *Store) Get(chatID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[chatID]
}

func (s *Store) Set(chatID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = state
}

func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}
