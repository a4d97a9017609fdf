// Package storage defines the persistence backends for profile data and the
// fallback chain that selects between them.
package storage

import (
	"context"
	"fmt"

	"github.com/cleared-dev/coinledger/internal/model"
)

// Tier names the durability of a backend.
type Tier int

const (
	TierRemote Tier = iota
	TierLocal
	TierSession
)

func (t Tier) String() string {
	switch t {
	case TierRemote:
		return "remote"
	case TierLocal:
		return "local"
	case TierSession:
		return "session"
	default:
		return "unknown"
	}
}

// Durable reports whether data saved at this tier outlives the process.
func (t Tier) Durable() bool {
	return t == TierRemote || t == TierLocal
}

// ParseTier parses a tier name.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "remote":
		return TierRemote, nil
	case "local":
		return TierLocal, nil
	case "session":
		return TierSession, nil
	default:
		return 0, fmt.Errorf("unknown storage tier: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Backend loads and saves one profile's data.
type Backend interface {
	Name() string
	Tier() Tier
	// Load returns found=false with no error when the profile does not exist.
	Load(ctx context.Context, profile string) (raw model.RawProfile, found bool, err error)
	Save(ctx context.Context, profile string, data model.ProfileData) error
	// Profiles lists the profile names this backend knows about.
	Profiles(ctx context.Context) ([]string, error)
}

// ActiveProfileStore is implemented by backends that remember the last
// active profile.
type ActiveProfileStore interface {
	ActiveProfile(ctx context.Context) (name string, ok bool, err error)
	SetActiveProfile(ctx context.Context, name string) error
}

// Store is what a ledger needs from persistence. Load never fails; Save fails
// only with model.ErrPersistence.
type Store interface {
	Load(ctx context.Context, profile string) LoadResult
	Save(ctx context.Context, profile string, data model.ProfileData) (SaveResult, error)
}

// LoadResult is the outcome of a chain load.
type LoadResult struct {
	Data     model.RawProfile
	Found    bool
	Backend  string // empty when every backend failed
	Tier     Tier
	FellBack bool // a higher-priority backend failed first
}

// SaveResult is the outcome of a successful chain save.
type SaveResult struct {
	Backend  string
	Tier     Tier
	FellBack bool
	Failures []error // backends that failed before the one that succeeded
}

// Durable reports whether the save reached a tier that outlives the process.
func (r SaveResult) Durable() bool {
	return r.Tier.Durable()
}
