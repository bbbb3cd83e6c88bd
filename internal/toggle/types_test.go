package toggle

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriStateJSON(t *testing.T) {
	tests := []struct {
		name  string
		state TriState
		json  string
	}{
		{name: "Should encode Unset as null", state: Unset, json: "null"},
		{name: "Should encode On as true", state: On, json: "true"},
		{name: "Should encode Off as false", state: Off, json: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.json, string(raw))

			var decoded TriState
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.Equal(t, tt.state, decoded)
		})
	}

	t.Run("Should reject anything but null/true/false", func(t *testing.T) {
		var decoded TriState
		assert.Error(t, json.Unmarshal([]byte(`"on"`), &decoded))
		assert.Error(t, json.Unmarshal([]byte(`1`), &decoded))
	})
}

func TestFlagJSONRoundTrip(t *testing.T) {
	fl := &Flag{
		Name:      "beta-search",
		Everyone:  Unset,
		Testing:   true,
		Staff:     true,
		Languages: []string{"pt-br", "en"},
		Percent:   decimal.RequireFromString("12.5"),
		Rollout:   true,
	}

	raw, err := json.Marshal(fl)
	require.NoError(t, err)

	var decoded Flag
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, fl.Name, decoded.Name)
	assert.Equal(t, fl.Everyone, decoded.Everyone)
	assert.True(t, decoded.Testing)
	assert.True(t, decoded.Staff)
	assert.Equal(t, fl.Languages, decoded.Languages)
	assert.True(t, fl.Percent.Equal(decoded.Percent), "percent must survive serialization exactly")
	assert.True(t, decoded.Rollout)
}

func TestValidatePercent(t *testing.T) {
	tests := []struct {
		name    string
		percent string
		wantErr bool
	}{
		{name: "Should accept zero", percent: "0", wantErr: false},
		{name: "Should accept one hundred", percent: "100", wantErr: false},
		{name: "Should accept fractional values", percent: "0.1", wantErr: false},
		{name: "Should reject negative values", percent: "-0.1", wantErr: true},
		{name: "Should reject values above one hundred", percent: "100.01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePercent(decimal.RequireFromString(tt.percent))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPercent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPercentFromBool(t *testing.T) {
	assert.True(t, PercentFromBool(true).Equal(decimal.NewFromInt(100)))
	assert.True(t, PercentFromBool(false).IsZero())
}

func TestLookupStates(t *testing.T) {
	t.Run("Should report stored switch value", func(t *testing.T) {
		state := FoundSwitch(&Switch{Name: "maintenance", Active: true})
		assert.True(t, state.Active())
		assert.True(t, state.Stored())
	})

	t.Run("Should report synthesized switch default", func(t *testing.T) {
		state := DefaultSwitch(false)
		assert.False(t, state.Active())
		assert.False(t, state.Stored())
	})

	t.Run("Should report stored sample percent", func(t *testing.T) {
		state := FoundSample(&Sample{Name: "canary", Percent: decimal.NewFromInt(50)})
		assert.True(t, state.Percent().Equal(decimal.NewFromInt(50)))
		assert.True(t, state.Stored())
	})

	t.Run("Should report synthesized sample default", func(t *testing.T) {
		state := DefaultSample(decimal.Zero)
		assert.True(t, state.Percent().IsZero())
		assert.False(t, state.Stored())
	})
}
