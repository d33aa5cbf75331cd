package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knaveofdiamonds/tablefit/internal/catalog"
	"github.com/knaveofdiamonds/tablefit/internal/roster"
	"github.com/knaveofdiamonds/tablefit/internal/schedule"
)

func TestComputeInterestSatisfactionAndTableSize(t *testing.T) {
	cat, err := catalog.New([]catalog.Record{
		{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 540},
	})
	require.NoError(t, err)

	players := []roster.Player{
		{Name: "Alice", Interests: []string{"1817"}},
		{Name: "Bob", Interests: []string{"1817"}},
		{Name: "Charles", Interests: []string{"1830"}}, // not seated at an interested game
	}

	result := &schedule.Result{
		Sessions: []schedule.SessionResult{
			{
				SessionName: "Round 1",
				Tables: []schedule.Table{
					{GameName: "1817", Players: []string{"Alice", "Bob", "Charles"}},
				},
			},
		},
	}

	diag := Compute(result, players, cat)

	assert.InDelta(t, 2.0/3.0, diag.InterestSatisfactionRate, 1e-9)
	assert.Equal(t, 3.0, diag.MeanTableSize)
	assert.Equal(t, 0.0, diag.StdDevTableSize)
	// Two interests satisfied (Alice, Bob) plus the 3-player popularity weight.
	assert.InDelta(t, 2.0+cat.AdjustedPopularity("1817", 0), diag.RecomputedObjective, 1e-9)
}

func TestComputeEmptyResult(t *testing.T) {
	cat, err := catalog.New(nil)
	require.NoError(t, err)

	diag := Compute(&schedule.Result{}, nil, cat)
	assert.Equal(t, 0.0, diag.InterestSatisfactionRate)
	assert.Equal(t, 0.0, diag.MeanTableSize)
}
