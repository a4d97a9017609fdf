// Package session is an in-process profile store. Its data is lost when the
// process exits.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// Store keeps encoded profile documents in memory. Documents are stored as
// JSON so callers never share memory with the store. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	profiles map[string][]byte
	active   string
}

var (
	_ storage.Backend            = (*Store)(nil)
	_ storage.ActiveProfileStore = (*Store)(nil)
)

// New creates an empty session store.
func New() *Store {
	return &Store{profiles: make(map[string][]byte)}
}

func (s *Store) Name() string { return "session" }

func (s *Store) Tier() storage.Tier { return storage.TierSession }

func (s *Store) Load(_ context.Context, profile string) (model.RawProfile, bool, error) {
	s.mu.RLock()
	data, ok := s.profiles[profile]
	s.mu.RUnlock()
	if !ok {
		return model.RawProfile{}, false, nil
	}
	raw, err := model.DecodeRawProfile(data)
	if err != nil {
		return model.RawProfile{}, false, fmt.Errorf("decoding session profile %q: %w", profile, err)
	}
	return raw, true, nil
}

func (s *Store) Save(_ context.Context, profile string, data model.ProfileData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding profile %q: %w", profile, err)
	}
	s.mu.Lock()
	s.profiles[profile] = encoded
	s.mu.Unlock()
	return nil
}

func (s *Store) Profiles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) ActiveProfile(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.active != "", nil
}

func (s *Store) SetActiveProfile(_ context.Context, name string) error {
	s.mu.Lock()
	s.active = name
	s.mu.Unlock()
	return nil
}
