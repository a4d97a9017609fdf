package ledger

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/coinledger/internal/model"
)

// Order is the direction History iterates in.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

func (o Order) String() string {
	if o == OldestFirst {
		return "oldest"
	}
	return "newest"
}

// ParseOrder parses "newest" or "oldest". An empty string is newest.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newest", "desc":
		return NewestFirst, nil
	case "oldest", "asc":
		return OldestFirst, nil
	default:
		return 0, model.Invalid("order", fmt.Sprintf("%q is not newest or oldest", s))
	}
}
