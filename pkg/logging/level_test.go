package logging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelRoundTrip(t *testing.T) {
	scenarios := []struct {
		name  string
		value int32
	}{
		{name: "SEVERE", value: 1000},
		{name: "WARNING", value: 900},
		{name: "INFO", value: 800},
		{name: "CONFIG", value: 700},
		{name: "FINE", value: 500},
		{name: "FINER", value: 400},
		{name: "FINEST", value: 300},
		{name: "OFF", value: math.MaxInt32},
		{name: "ALL", value: math.MinInt32},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			lvl, err := ParseLevel(scenario.name)
			require.NoError(t, err)
			assert.Equal(t, scenario.name, lvl.Name())
			assert.Equal(t, scenario.value, lvl.Value())

			again, err := ParseLevel(lvl.Name())
			require.NoError(t, err)
			assert.Same(t, lvl, again)
		})
	}
}

func TestLookupLevel(t *testing.T) {
	lvl, err := LookupLevel(" severe")
	require.NoError(t, err)
	assert.Same(t, Severe, lvl)

	lvl, err = LookupLevel("700")
	require.NoError(t, err)
	assert.Same(t, Config, lvl)

	_, err = LookupLevel("4711")
	assert.ErrorIs(t, err, ErrUnknownLevel)
	_, err = LookupLevel("4711")
	assert.ErrorIs(t, err, ErrUnknownLevel, "a failed lookup must not register the value")

	parsed, err := ParseLevel("4711")
	require.NoError(t, err)
	assert.Equal(t, "4711", parsed.Name())
	lvl, err = LookupLevel("4711")
	require.NoError(t, err)
	assert.Same(t, parsed, lvl)
}

func TestParseLevel(t *testing.T) {
	scenarios := []struct {
		name    string
		input   string
		want    *Level
		wantErr error
	}{
		{name: "lower case name", input: "warning", want: Warning},
		{name: "padded name", input: "  FINE ", want: Fine},
		{name: "registered value", input: "800", want: Info},
		{name: "unknown name", input: "LOUD", wantErr: ErrUnknownLevel},
		{name: "empty", input: "", wantErr: ErrUnknownLevel},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			lvl, err := ParseLevel(scenario.input)
			if scenario.wantErr != nil {
				assert.ErrorIs(t, err, scenario.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Same(t, scenario.want, lvl)
		})
	}

	t.Run("unregistered value creates a level", func(t *testing.T) {
		lvl, err := ParseLevel("850")
		require.NoError(t, err)
		assert.Equal(t, int32(850), lvl.Value())
		assert.Equal(t, "850", lvl.Name())

		again, err := ParseLevel("850")
		require.NoError(t, err)
		assert.Same(t, lvl, again)
	})
}

func TestNewLevel(t *testing.T) {
	notice := NewLevel("NOTICE", 860)
	assert.Same(t, notice, NewLevel("NOTICE", 860))

	parsed, err := ParseLevel("notice")
	require.NoError(t, err)
	assert.Same(t, notice, parsed)

	assert.True(t, notice.Equal(NewLevel("OTHER_NOTICE", 860)))
	assert.False(t, notice.Equal(Info))
	assert.False(t, notice.Equal(nil))
}

func TestStandardLevelsOrdered(t *testing.T) {
	levels := StandardLevels()
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i-1].Value(), levels[i].Value(), "%s before %s", levels[i-1], levels[i])
	}
}
