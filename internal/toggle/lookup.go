package toggle

import "github.com/shopspring/decimal"

// SwitchState is the result of resolving a switch: either a stored record or
// a value synthesized from the universe default when the store has no row.
// The explicit variant replaces attribute-shaped stand-in objects, so call
// sites handle the missing-record case deliberately.
type SwitchState struct {
	rec    *Switch
	def    bool
	stored bool
}

// FoundSwitch wraps a record fetched from the store or cache.
func FoundSwitch(s *Switch) SwitchState {
	return SwitchState{rec: s, stored: true}
}

// DefaultSwitch synthesizes a state from the universe default.
func DefaultSwitch(active bool) SwitchState {
	return SwitchState{def: active}
}

// Active returns the switch's truth value regardless of variant.
func (s SwitchState) Active() bool {
	if s.stored {
		return s.rec.Active
	}
	return s.def
}

// Stored reports whether the state came from a real record.
func (s SwitchState) Stored() bool { return s.stored }

// SampleState is the sample analogue of SwitchState. Defaults carry a
// percent already normalized from boolean shorthand.
type SampleState struct {
	rec    *Sample
	def    decimal.Decimal
	stored bool
}

// FoundSample wraps a record fetched from the store or cache.
func FoundSample(s *Sample) SampleState {
	return SampleState{rec: s, stored: true}
}

// DefaultSample synthesizes a state from the universe default percent.
func DefaultSample(percent decimal.Decimal) SampleState {
	return SampleState{def: percent}
}

// Percent returns the sample's rollout percentage regardless of variant.
func (s SampleState) Percent() decimal.Decimal {
	if s.stored {
		return s.rec.Percent
	}
	return s.def
}

// Stored reports whether the state came from a real record.
func (s SampleState) Stored() bool { return s.stored }
