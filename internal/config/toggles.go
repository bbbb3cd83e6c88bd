package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flagonhq/flagon/internal/toggle"
)

// TogglesConfig is the engine's configuration surface: the per-kind name
// universes with their default values, the forced overrides that
// short-circuit resolution, and the cookie/cache knobs.
//
// Universe maps use envconfig's map syntax, e.g.
//
//	FLAGON_TOGGLES_FLAGS="beta:false,search:true"
//	FLAGON_TOGGLES_SAMPLES="canary:50,dark-write:true"
//
// Sample values accept the boolean shorthand (true=100, false=0).
type TogglesConfig struct {
	// Name universes: existence allow-list plus fallback value per name.
	Flags    map[string]bool   `envconfig:"FLAGS"`
	Switches map[string]bool   `envconfig:"SWITCHES"`
	Samples  map[string]string `envconfig:"SAMPLES"`

	// Forced overrides. A name present here bypasses storage and every gate.
	FlagsForced    map[string]bool   `envconfig:"FLAGS_FORCED"`
	SwitchesForced map[string]bool   `envconfig:"SWITCHES_FORCED"`
	SamplesForced  map[string]string `envconfig:"SAMPLES_FORCED"`

	// Defaults for names missing from both store and universe entry.
	FlagDefault   bool   `envconfig:"FLAG_DEFAULT" default:"false"`
	SwitchDefault bool   `envconfig:"SWITCH_DEFAULT" default:"false"`
	SampleDefault string `envconfig:"SAMPLE_DEFAULT" default:"0"`

	// Override enables the request-level override channel for every flag.
	Override bool `envconfig:"OVERRIDE" default:"false"`

	// Strict makes unknown toggle names panic instead of evaluating inactive.
	// Intended for development to catch drift between code and configuration.
	Strict bool `envconfig:"STRICT" default:"false"`

	// Cookie settings for the stickiness layer.
	CookieName     string `envconfig:"COOKIE_NAME" default:"dwf_%s"`
	TestCookieName string `envconfig:"TEST_COOKIE_NAME" default:"dwft_%s"`
	CookieMaxAge   int    `envconfig:"COOKIE_MAX_AGE" default:"2592000" validate:"min=0"` // seconds; default 30 days
	SecureCookies  bool   `envconfig:"SECURE_COOKIES" default:"false"`

	// ResetParam is the query parameter that clears all test cookies.
	ResetParam string `envconfig:"RESET_PARAM" default:"flagon_reset"`

	// Cache settings. CacheTTL bounds how long a missed invalidation can
	// serve stale decisions before the re-fetch-on-miss path self-heals.
	CachePrefix string        `envconfig:"CACHE_PREFIX" default:"flagon:"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	// Normalized sample percents, built once in Validate.
	samplePercents map[string]decimal.Decimal
	samplesForced  map[string]decimal.Decimal
	sampleDefault  decimal.Decimal
}

// Validate normalizes sample values, checks every percent against [0,100]
// and verifies the cookie name patterns. Percent violations are rejected
// here, at load time, never at evaluation time.
func (c *TogglesConfig) Validate() error {
	var err error

	c.samplePercents, err = normalizeSamples(c.Samples, "sample")
	if err != nil {
		return err
	}

	c.samplesForced, err = normalizeSamples(c.SamplesForced, "forced sample")
	if err != nil {
		return err
	}

	c.sampleDefault, err = parsePercent(c.SampleDefault)
	if err != nil {
		return fmt.Errorf("sample default: %w", err)
	}

	if err := validateCookiePattern(c.CookieName, "cookie name"); err != nil {
		return err
	}
	if err := validateCookiePattern(c.TestCookieName, "test cookie name"); err != nil {
		return err
	}

	if c.CachePrefix == "" {
		return fmt.Errorf("cache prefix cannot be empty")
	}
	if c.ResetParam == "" {
		return fmt.Errorf("reset parameter cannot be empty")
	}

	return nil
}

// Known reports whether name belongs to the configured universe for kind,
// returning ErrUnknownToggle otherwise.
func (c *TogglesConfig) Known(kind toggle.Kind, name string) error {
	var ok bool
	switch kind {
	case toggle.KindFlag:
		_, ok = c.Flags[name]
	case toggle.KindSwitch:
		_, ok = c.Switches[name]
	case toggle.KindSample:
		_, ok = c.Samples[name]
	}
	if !ok {
		return fmt.Errorf("%w: %s %q", toggle.ErrUnknownToggle, kind, name)
	}
	return nil
}

// FlagNames returns the flag universe in deterministic order.
func (c *TogglesConfig) FlagNames() []string {
	return sortedNames(c.Flags)
}

// SwitchNames returns the switch universe in deterministic order.
func (c *TogglesConfig) SwitchNames() []string {
	return sortedNames(c.Switches)
}

// SampleNames returns the sample universe in deterministic order.
func (c *TogglesConfig) SampleNames() []string {
	names := make([]string, 0, len(c.Samples))
	for name := range c.Samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SamplePercent returns the normalized universe percent for a sample name.
func (c *TogglesConfig) SamplePercent(name string) (decimal.Decimal, bool) {
	p, ok := c.samplePercents[name]
	return p, ok
}

// SampleForced returns the normalized forced percent for a sample name.
func (c *TogglesConfig) SampleForced(name string) (decimal.Decimal, bool) {
	p, ok := c.samplesForced[name]
	return p, ok
}

// SampleDefaultPercent returns the normalized global sample default.
func (c *TogglesConfig) SampleDefaultPercent() decimal.Decimal {
	return c.sampleDefault
}

// CookieFor renders the sticky cookie name for a flag, e.g. "dwf_beta".
func (c *TogglesConfig) CookieFor(flag string) string {
	return fmt.Sprintf(c.CookieName, flag)
}

// TestCookieFor renders the test cookie name for a flag, e.g. "dwft_beta".
func (c *TogglesConfig) TestCookieFor(flag string) string {
	return fmt.Sprintf(c.TestCookieName, flag)
}

func sortedNames(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeSamples converts raw sample values (decimal strings or boolean
// shorthand) into validated decimals.
func normalizeSamples(raw map[string]string, what string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for name, value := range raw {
		p, err := parsePercent(value)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", what, name, err)
		}
		out[name] = p
	}
	return out, nil
}

// parsePercent accepts "true"/"false" shorthand or a decimal in [0,100].
// Only the spelled-out booleans count as shorthand: "1" and "0" are percents.
func parsePercent(value string) (decimal.Decimal, error) {
	switch strings.ToLower(value) {
	case "true":
		return toggle.PercentFromBool(true), nil
	case "false":
		return toggle.PercentFromBool(false), nil
	}

	p, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid percent value %q: %w", value, err)
	}
	if err := toggle.ValidatePercent(p); err != nil {
		return decimal.Zero, err
	}
	return p, nil
}

// validateCookiePattern requires exactly one %s verb and nothing fancier.
func validateCookiePattern(pattern, what string) error {
	if strings.Count(pattern, "%s") != 1 || strings.Count(pattern, "%") != 1 {
		return fmt.Errorf("%s pattern %q must contain exactly one %%s", what, pattern)
	}
	return nil
}
