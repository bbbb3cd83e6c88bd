// Package toggle defines the domain model shared by the store, the cache and
// the evaluation engine: the three toggle kinds (Flag, Switch, Sample), the
// tri-state "everyone" attribute, and the lookup results that distinguish a
// stored record from a synthesized universe default.
package toggle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies one of the three toggle families.
type Kind string

const (
	KindFlag   Kind = "flag"
	KindSwitch Kind = "switch"
	KindSample Kind = "sample"
)

// TriState models the flag's "everyone" attribute: force-on, force-off, or
// unset (fall through to the remaining gates).
type TriState int8

const (
	Unset TriState = iota
	On
	Off
)

// MarshalJSON encodes the tri-state as null/true/false so cached records stay
// readable when inspected directly in Redis.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case On:
		return []byte("true"), nil
	case Off:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes null/true/false back into the tri-state.
func (t *TriState) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*t = On
	case "false":
		*t = Off
	case "null":
		*t = Unset
	default:
		return fmt.Errorf("invalid tri-state value: %s", data)
	}
	return nil
}

// Flag is a per-request, per-user toggle with ordered gating rules and a
// percentage rollout. It mirrors the 'flags' table.
type Flag struct {
	Name          string          `json:"name"`
	Everyone      TriState        `json:"everyone"`
	Testing       bool            `json:"testing"`
	Superusers    bool            `json:"superusers"`
	Staff         bool            `json:"staff"`
	Authenticated bool            `json:"authenticated"`
	Languages     []string        `json:"languages"`
	Percent       decimal.Decimal `json:"percent"`
	Rollout       bool            `json:"rollout"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Switch is a globally uniform boolean toggle. It mirrors the 'switches' table.
type Switch struct {
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sample is a purely probabilistic toggle with an independent draw per
// evaluation. It mirrors the 'samples' table.
type Sample struct {
	Name      string          `json:"name"`
	Percent   decimal.Decimal `json:"percent"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ValidatePercent rejects percentages outside [0,100]. Enforced at
// configuration load and at store write time, never on the evaluation path.
func ValidatePercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: %s", ErrInvalidPercent, p.String())
	}
	return nil
}

// PercentFromBool normalizes the boolean shorthand used by sample defaults
// and forced values: true means 100, false means 0.
func PercentFromBool(b bool) decimal.Decimal {
	if b {
		return decimal.NewFromInt(100)
	}
	return decimal.Zero
}
