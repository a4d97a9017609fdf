// Package profiles lists, creates and selects named profiles across every
// configured backend.
package profiles

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// Chain is the subset of storage.Chain the registry needs.
type Chain interface {
	storage.Store
	Profiles(ctx context.Context) []string
	ActiveProfile(ctx context.Context) (string, bool)
	SetActiveProfile(ctx context.Context, name string) (storage.SaveResult, error)
}

// Registry enumerates and creates profiles.
type Registry struct {
	chain       Chain
	defaultName string
	defaults    model.Settings
	now         func() time.Time
	log         logrus.FieldLogger
}

// NewRegistry creates a Registry. An empty defaultName means model.DefaultProfile.
func NewRegistry(chain Chain, defaultName string, defaults model.Settings, log logrus.FieldLogger) *Registry {
	if defaultName == "" {
		defaultName = model.DefaultProfile
	}
	return &Registry{chain: chain, defaultName: defaultName, defaults: defaults, now: time.Now, log: log}
}

// Default returns the default profile name.
func (r *Registry) Default() string { return r.defaultName }

// List returns every known profile name, sorted, always including the
// default profile.
func (r *Registry) List(ctx context.Context) []string {
	names := r.chain.Profiles(ctx)
	if !slices.Contains(names, r.defaultName) {
		names = append(names, r.defaultName)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Exists reports whether name is listed.
func (r *Registry) Exists(ctx context.Context, name string) bool {
	return slices.Contains(r.List(ctx), name)
}

// Create saves an empty profile with default settings.
func (r *Registry) Create(ctx context.Context, name string) (storage.SaveResult, error) {
	if err := model.ValidateProfileName(name); err != nil {
		return storage.SaveResult{}, err
	}
	if r.Exists(ctx, name) {
		return storage.SaveResult{}, fmt.Errorf("creating profile %q: %w", name, model.ErrConflict)
	}
	data := model.NewProfileData(name, nil, r.defaults, r.now())
	res, err := r.chain.Save(ctx, name, data)
	if err != nil {
		return res, fmt.Errorf("creating profile %q: %w", name, err)
	}
	r.log.WithFields(logrus.Fields{
		"profile": name,
		"backend": res.Backend,
	}).Info("created profile")
	return res, nil
}

// Active returns the last active profile, or the default profile.
func (r *Registry) Active(ctx context.Context) string {
	if name, ok := r.chain.ActiveProfile(ctx); ok && model.ValidateProfileName(name) == nil {
		return name
	}
	return r.defaultName
}

// SetActive records name as the active profile. The profile need not exist
// yet; it is created on its first save.
func (r *Registry) SetActive(ctx context.Context, name string) error {
	if err := model.ValidateProfileName(name); err != nil {
		return err
	}
	if _, err := r.chain.SetActiveProfile(ctx, name); err != nil {
		return fmt.Errorf("switching to profile %q: %w", name, err)
	}
	return nil
}
