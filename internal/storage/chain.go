package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/coinledger/internal/model"
)

// Chain tries backends in priority order. Backend errors are logged and
// recovered by moving to the next backend; only total exhaustion on save is
// reported, as model.ErrPersistence.
type Chain struct {
	backends []Backend
	log      logrus.FieldLogger
}

var _ Store = (*Chain)(nil)

// NewChain builds a chain from backends, highest priority first. Nil
// backends are skipped so optional ones can be passed unconditionally.
func NewChain(log logrus.FieldLogger, backends ...Backend) *Chain {
	c := &Chain{log: log}
	for _, b := range backends {
		if b != nil {
			c.backends = append(c.backends, b)
		}
	}
	return c
}

// Backends returns the configured backends in priority order.
func (c *Chain) Backends() []Backend {
	return slices.Clone(c.backends)
}

// Primary returns the highest-priority backend, or nil.
func (c *Chain) Primary() Backend {
	if len(c.backends) == 0 {
		return nil
	}
	return c.backends[0]
}

// Load returns the first answer from a backend that did not fail. When all
// fail, the result is empty and not found.
func (c *Chain) Load(ctx context.Context, profile string) LoadResult {
	fellBack := false
	for _, b := range c.backends {
		raw, found, err := b.Load(ctx, profile)
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"backend": b.Name(),
				"profile": profile,
			}).WithError(err).Warn("load failed, trying next backend")
			fellBack = true
			continue
		}
		return LoadResult{Data: raw, Found: found, Backend: b.Name(), Tier: b.Tier(), FellBack: fellBack}
	}
	if len(c.backends) > 0 {
		c.log.WithField("profile", profile).Error("every backend failed to load, using empty profile")
	}
	return LoadResult{FellBack: fellBack}
}

// Save writes data to the first backend that accepts it.
func (c *Chain) Save(ctx context.Context, profile string, data model.ProfileData) (SaveResult, error) {
	var failures []error
	for _, b := range c.backends {
		if err := b.Save(ctx, profile, data); err != nil {
			err = fmt.Errorf("%s: %w: %w", b.Name(), model.ErrBackendUnavailable, err)
			c.log.WithFields(logrus.Fields{
				"backend": b.Name(),
				"profile": profile,
			}).WithError(err).Warn("save failed, trying next backend")
			failures = append(failures, err)
			continue
		}
		res := SaveResult{Backend: b.Name(), Tier: b.Tier(), FellBack: len(failures) > 0, Failures: failures}
		if res.FellBack {
			c.log.WithFields(logrus.Fields{
				"backend": b.Name(),
				"tier":    b.Tier().String(),
				"profile": profile,
			}).Info("saved on fallback backend")
		}
		return res, nil
	}
	return SaveResult{Failures: failures}, fmt.Errorf("saving profile %q: %w", profile, errors.Join(append([]error{model.ErrPersistence}, failures...)...))
}

// Profiles returns the union of every reachable backend's profile names in
// first-seen order. Unreachable backends are logged and skipped.
func (c *Chain) Profiles(ctx context.Context) []string {
	seen := make(map[string]bool)
	var names []string
	for _, b := range c.backends {
		list, err := b.Profiles(ctx)
		if err != nil {
			c.log.WithField("backend", b.Name()).WithError(err).Warn("listing profiles failed")
			continue
		}
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// ActiveProfile returns the last active profile from the first backend that
// remembers one.
func (c *Chain) ActiveProfile(ctx context.Context) (string, bool) {
	for _, b := range c.backends {
		aps, ok := b.(ActiveProfileStore)
		if !ok {
			continue
		}
		name, found, err := aps.ActiveProfile(ctx)
		if err != nil {
			c.log.WithField("backend", b.Name()).WithError(err).Warn("reading active profile failed")
			continue
		}
		if found {
			return name, true
		}
		return "", false
	}
	return "", false
}

// SetActiveProfile records name on the first backend that accepts it.
func (c *Chain) SetActiveProfile(ctx context.Context, name string) (SaveResult, error) {
	var failures []error
	for _, b := range c.backends {
		aps, ok := b.(ActiveProfileStore)
		if !ok {
			continue
		}
		if err := aps.SetActiveProfile(ctx, name); err != nil {
			err = fmt.Errorf("%s: %w: %w", b.Name(), model.ErrBackendUnavailable, err)
			c.log.WithField("backend", b.Name()).WithError(err).Warn("recording active profile failed")
			failures = append(failures, err)
			continue
		}
		return SaveResult{Backend: b.Name(), Tier: b.Tier(), FellBack: len(failures) > 0, Failures: failures}, nil
	}
	return SaveResult{Failures: failures}, fmt.Errorf("recording active profile: %w", errors.Join(append([]error{model.ErrPersistence}, failures...)...))
}
