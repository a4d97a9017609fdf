// Package localfile stores each profile as <root>/<profile>.json.
package localfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

const (
	ext        = ".json"
	activeFile = ".active-profile"
)

// Store is a directory of profile files.
type Store struct {
	root string
}

var (
	_ storage.Backend            = (*Store)(nil)
	_ storage.ActiveProfileStore = (*Store)(nil)
)

// New creates a Store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the storage directory.
func (s *Store) Root() string { return s.root }

func (s *Store) Name() string { return "local" }

func (s *Store) Tier() storage.Tier { return storage.TierLocal }

// Path returns the file backing profile.
func (s *Store) Path(profile string) string {
	return filepath.Join(s.root, profile+ext)
}

func (s *Store) Load(_ context.Context, profile string) (model.RawProfile, bool, error) {
	if err := model.ValidateProfileName(profile); err != nil {
		return model.RawProfile{}, false, err
	}
	data, err := os.ReadFile(s.Path(profile))
	if errors.Is(err, fs.ErrNotExist) {
		return model.RawProfile{}, false, nil
	}
	if err != nil {
		return model.RawProfile{}, false, fmt.Errorf("reading profile %q: %w", profile, err)
	}
	raw, err := model.DecodeRawProfile(data)
	if err != nil {
		return model.RawProfile{}, false, fmt.Errorf("parsing %s: %w", s.Path(profile), err)
	}
	return raw, true, nil
}

// Save writes the profile atomically: a temp file in the same directory is
// renamed over the old one.
func (s *Store) Save(_ context.Context, profile string, data model.ProfileData) error {
	if err := model.ValidateProfileName(profile); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile %q: %w", profile, err)
	}
	return s.writeFile(profile+ext, append(encoded, '\n'))
}

func (s *Store) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// Profiles lists the *.json files in the root, without extension.
func (s *Store) Profiles(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), ext)
		if !ok || name == "" {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) ActiveProfile(_ context.Context) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.root, activeFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading active profile: %w", err)
	}
	name := strings.TrimSpace(string(data))
	return name, name != "", nil
}

func (s *Store) SetActiveProfile(_ context.Context, name string) error {
	return s.writeFile(activeFile, []byte(name+"\n"))
}
