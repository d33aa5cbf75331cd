package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPreprocessesPopularity(t *testing.T) {
	cat, err := New([]Record{
		{
			Name:        "1817",
			MinPlayers:  3,
			MaxPlayers:  6,
			MinPlaytime: 360,
			MaxPlaytime: 540,
			Popularity:  map[string]float64{"3": 0.95, "4": 0.8},
		},
	})
	require.NoError(t, err)

	g := cat.Lookup("1817")
	// 3-player popularity clamped from 0.95 down to 0.9.
	assert.Equal(t, 0.9, g.Popularity[3])
	assert.Equal(t, 0.8, g.Popularity[4])
	// Unrated counts default to 0.9.
	assert.Equal(t, 0.9, g.Popularity[5])
	assert.Equal(t, 0.9, g.Popularity[6])
	assert.Len(t, g.AdjustedPopularity, 4)
}

func TestLookupUnknownGameReturnsDefault(t *testing.T) {
	cat, err := New(nil)
	require.NoError(t, err)

	g := cat.Lookup("some obscure out-of-print title")
	assert.Equal(t, 3, g.MinPlayers)
	assert.Equal(t, 4, g.MaxPlayers)
	assert.Equal(t, 240, g.MinPlaytime)
	assert.Equal(t, 240, g.MaxPlaytime)
	assert.InDeltaSlice(t, []float64{0.27, 0.09}, g.AdjustedPopularity, 1e-9)
}

func TestNewRejectsEmptyPlayerRange(t *testing.T) {
	_, err := New([]Record{
		{Name: "broken", MinPlayers: 5, MaxPlayers: 2},
	})
	require.Error(t, err)
	var malformed *MalformedGameError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "broken", malformed.Name)
}

func TestMaxPlayersInterpolatesForVariablePlaytime(t *testing.T) {
	cat, err := New([]Record{
		{Name: "1830", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 180, MaxPlaytime: 360},
	})
	require.NoError(t, err)

	// slope = (360-180)/(6-3) = 60 minutes per extra player.
	assert.Equal(t, 3, cat.MaxPlayers("1830", 180))
	assert.Equal(t, 4, cat.MaxPlayers("1830", 240))
	assert.Equal(t, 6, cat.MaxPlayers("1830", 600))
	assert.Equal(t, 6, cat.MaxPlayers("1830", 0))
}

func TestMaxPlayersFixedPlaytimeIgnoresSession(t *testing.T) {
	cat, err := New([]Record{
		{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 360},
	})
	require.NoError(t, err)

	assert.Equal(t, 6, cat.MaxPlayers("1817", 360))
	assert.Equal(t, 6, cat.MaxPlayers("1817", 99999))
}
