package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreDefaultsToActive(t *testing.T) {
	s := NewStore()

	state := s.Get(100)
	assert.Equal(t, PhaseActive, state.Phase)
	assert.Empty(t, state.SelectedGenerationID)
}

func TestStoreIsolatesChats(t *testing.T) {
	s := NewStore()

	s.Set(100, State{Phase: PhaseAwaitingReplayPhoto, SelectedGenerationID: "g1"})

	assert.Equal(t, PhaseAwaitingReplayPhoto, s.Get(100).Phase)
	assert.Equal(t, "g1", s.Get(100).SelectedGenerationID)
	assert.Equal(t, PhaseActive, s.Get(200).Phase)
}

func TestStoreClearResetsState(t *testing.T) {
	s := NewStore()

	s.Set(100, State{Phase: PhaseAwaitingReplayPhoto, SelectedGenerationID: "g1"})
	s.Clear(100)

	state := s.Get(100)
	assert.Equal(t, PhaseActive, state.Phase)
	assert.Empty(t, state.SelectedGenerationID)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			s.Set(chatID, State{Phase: PhaseAwaitingReplayPhoto})
			s.Get(chatID)
			s.Clear(chatID)
		}(int64(i))
	}
	wg.Wait()
}
