package statestore

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"RafflePool/internal/model"
)

// FileStore persists raffle state as JSON. Writes go to a temporary file
// that is renamed into place, so a crash mid-write never leaves a torn
// state file behind.
type FileStore struct {
	Path string
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the persisted state. Returns a zero state if no file exists yet.
func (s *FileStore) Load() (*model.RaffleState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.RaffleState{}, nil
		}
		return nil, err
	}
	var state model.RaffleState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.Path, err)
	}
	return &state, nil
}

// Persist writes the state, reporting failure itself; the in-memory state
// stays committed either way and the next mutation retries the write.
func (s *FileStore) Persist(state *model.RaffleState) {
	if err := s.save(state); err != nil {
		log.Printf("[ERROR] persist raffle state: %v", err)
	}
}

func (s *FileStore) save(state *model.RaffleState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
