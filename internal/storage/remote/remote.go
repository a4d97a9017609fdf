// Package remote stores every profile of a user inside one user-level
// document. Saves merge a single profile entry into that document so sibling
// profiles are never clobbered.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// UserDocument is the record stored per user.
type UserDocument struct {
	Profiles          map[string]json.RawMessage `json:"profiles"`
	LastActiveProfile string                     `json:"last_active_profile,omitempty"`
	LastUpdated       string                     `json:"last_updated,omitempty"`
}

// DocumentClient reads and atomically updates user documents.
type DocumentClient interface {
	// Get returns found=false when the user has no document yet.
	Get(ctx context.Context, userID string) (doc UserDocument, found bool, err error)
	// Update runs fn on the current document (empty if none) and writes the
	// result back, as one read-modify-write.
	Update(ctx context.Context, userID string, fn func(doc *UserDocument) error) error
}

// ErrNoUser is returned when the store is built without a user id.
var ErrNoUser = errors.New("remote store: user id is required")

// Store is the remote document backend for one user.
type Store struct {
	client DocumentClient
	userID string
	now    func() time.Time
}

var (
	_ storage.Backend            = (*Store)(nil)
	_ storage.ActiveProfileStore = (*Store)(nil)
)

// New creates a Store for userID.
func New(client DocumentClient, userID string) (*Store, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return &Store{client: client, userID: userID, now: time.Now}, nil
}

func (s *Store) Name() string { return "remote" }

func (s *Store) Tier() storage.Tier { return storage.TierRemote }

func (s *Store) Load(ctx context.Context, profile string) (model.RawProfile, bool, error) {
	doc, found, err := s.client.Get(ctx, s.userID)
	if err != nil {
		return model.RawProfile{}, false, fmt.Errorf("fetching user %q: %w", s.userID, err)
	}
	if !found {
		return model.RawProfile{}, false, nil
	}
	entry, ok := doc.Profiles[profile]
	if !ok {
		return model.RawProfile{}, false, nil
	}
	raw, err := model.DecodeRawProfile(entry)
	if err != nil {
		return model.RawProfile{}, false, fmt.Errorf("decoding profile %q: %w", profile, err)
	}
	return raw, true, nil
}

// Save replaces only profile's entry in the user document.
func (s *Store) Save(ctx context.Context, profile string, data model.ProfileData) error {
	entry, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding profile %q: %w", profile, err)
	}
	err = s.client.Update(ctx, s.userID, func(doc *UserDocument) error {
		if doc.Profiles == nil {
			doc.Profiles = make(map[string]json.RawMessage)
		}
		doc.Profiles[profile] = entry
		doc.LastUpdated = model.FormatTimestamp(s.now())
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating user %q: %w", s.userID, err)
	}
	return nil
}

func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	doc, found, err := s.client.Get(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("fetching user %q: %w", s.userID, err)
	}
	if !found {
		return nil, nil
	}
	names := make([]string, 0, len(doc.Profiles))
	for name := range doc.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) ActiveProfile(ctx context.Context) (string, bool, error) {
	doc, found, err := s.client.Get(ctx, s.userID)
	if err != nil {
		return "", false, fmt.Errorf("fetching user %q: %w", s.userID, err)
	}
	if !found || doc.LastActiveProfile == "" {
		return "", false, nil
	}
	return doc.LastActiveProfile, true, nil
}

func (s *Store) SetActiveProfile(ctx context.Context, name string) error {
	err := s.client.Update(ctx, s.userID, func(doc *UserDocument) error {
		doc.LastActiveProfile = name
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating user %q: %w", s.userID, err)
	}
	return nil
}
