package schedule

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knaveofdiamonds/tablefit/internal/catalog"
	"github.com/knaveofdiamonds/tablefit/internal/roster"
)

func mustCatalog(t *testing.T, records ...catalog.Record) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(records)
	require.NoError(t, err)
	return cat
}

func names(players []string) []string {
	out := append([]string(nil), players...)
	sort.Strings(out)
	return out
}

// Scenario 1: single session, everyone interested in the same game.
func TestScenarioSingleSessionSharedInterest(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 540},
		catalog.Record{Name: "1830", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 180, MaxPlaytime: 360},
	)
	players := []roster.Player{
		{Name: "Alice", Interests: []string{"1817"}},
		{Name: "Bob", Owns: []string{"1817"}, Interests: []string{"1817"}},
		{Name: "Charles", Owns: []string{"1830"}, Interests: []string{"1830"}},
	}
	sessions := []roster.Session{{Name: "Round 1", Length: 600}}

	sc := NewScheduler(nil, nil)
	result, err := sc.Run(context.Background(), Input{Catalog: cat, Players: players, Sessions: sessions})
	require.NoError(t, err)

	require.Len(t, result.Sessions, 1)
	require.Len(t, result.Sessions[0].Tables, 1)
	table := result.Sessions[0].Tables[0]
	assert.Equal(t, "1817", table.GameName)
	assert.Equal(t, []string{"Alice", "Bob", "Charles"}, names(table.Players))
}

// Scenario 2: seven players interested in one title cannot all sit at
// it (max 6), and the second owned title needs at least 3, so the split
// is 4 at the first title and 3 at the second.
func TestScenarioOverflowSplitsTables(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 540},
		catalog.Record{Name: "1830", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 180, MaxPlaytime: 360},
	)
	players := []roster.Player{
		{Name: "P1", Owns: []string{"1817"}, Interests: []string{"1817"}},
		{Name: "P2", Owns: []string{"1830"}, Interests: []string{"1817"}},
		{Name: "P3", Interests: []string{"1817"}},
		{Name: "P4", Interests: []string{"1817"}},
		{Name: "P5", Interests: []string{"1817"}},
		{Name: "P6", Interests: []string{"1817"}},
		{Name: "P7", Interests: []string{"1817"}},
	}
	sessions := []roster.Session{{Name: "Round 1", Length: 600}}

	sc := NewScheduler(nil, nil)
	result, err := sc.Run(context.Background(), Input{Catalog: cat, Players: players, Sessions: sessions})
	require.NoError(t, err)

	require.Len(t, result.Sessions[0].Tables, 2)
	sizes := map[string]int{}
	total := 0
	for _, table := range result.Sessions[0].Tables {
		sizes[table.GameName] = len(table.Players)
		total += len(table.Players)
	}
	assert.Equal(t, 7, total)
	assert.Equal(t, 4, sizes["1817"])
	assert.Equal(t, 3, sizes["1830"])
}

// Scenario 3: uniqueness across sessions forces the second session onto
// a different title once everyone has already played the first.
func TestScenarioUniquenessAcrossSessions(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 540},
		catalog.Record{Name: "1830", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 180, MaxPlaytime: 360},
	)
	players := []roster.Player{
		{Name: "Alice", Interests: []string{"1817", "1830"}},
		{Name: "Bob", Interests: []string{"1817", "1830"}},
		{Name: "Charles", Interests: []string{"1817", "1830"}},
	}
	sessions := []roster.Session{
		{Name: "Round 1", Length: 600},
		{Name: "Round 2", Length: 600},
	}

	sc := NewScheduler(nil, nil)
	result, err := sc.Run(context.Background(), Input{
		Catalog: cat, Players: players, Sessions: sessions,
		SharedGames: []string{"1817", "1830"},
	})
	require.NoError(t, err)

	require.Len(t, result.Sessions, 2)
	require.Len(t, result.Sessions[0].Tables, 1)
	require.Len(t, result.Sessions[1].Tables, 1)

	first := result.Sessions[0].Tables[0].GameName
	second := result.Sessions[1].Tables[0].GameName
	assert.NotEqual(t, first, second)
	assert.ElementsMatch(t, []string{"1817", "1830"}, []string{first, second})
	assert.Equal(t, []string{"Alice", "Bob", "Charles"}, names(result.Sessions[0].Tables[0].Players))
	assert.Equal(t, []string{"Alice", "Bob", "Charles"}, names(result.Sessions[1].Tables[0].Players))
}

// Scenario 4: a table limit of one forces every attendee onto a single
// instance regardless of how many are otherwise available.
func TestScenarioTableLimitOne(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 540},
		catalog.Record{Name: "1830", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 180, MaxPlaytime: 360},
	)
	players := make([]roster.Player, 6)
	for i := range players {
		players[i] = roster.Player{Name: string(rune('A' + i)), Interests: []string{"1817"}}
	}
	sessions := []roster.Session{{Name: "Round 1", Length: 600}}

	sc := NewScheduler(nil, nil)
	result, err := sc.Run(context.Background(), Input{
		Catalog: cat, Players: players, Sessions: sessions,
		SharedGames: []string{"1817", "1830"}, TableLimit: 1,
	})
	require.NoError(t, err)

	// Two instances are available, but the table limit permits only one
	// of them to be in play, so all six attendees converge on it.
	require.Len(t, result.Sessions[0].Tables, 1)
	assert.Len(t, result.Sessions[0].Tables[0].Players, 6)
}

// Scenario 5: partial session attendance seats each player only in the
// sessions they actually attend.
func TestScenarioSessionsAwareAttendance(t *testing.T) {
	// A low player-count game keeps this scenario focused on attendance
	// filtering rather than colliding with the table-minimum invariant.
	cat := mustCatalog(t,
		catalog.Record{Name: "quickgame", MinPlayers: 1, MaxPlayers: 4, MinPlaytime: 30, MaxPlaytime: 30},
	)
	players := []roster.Player{
		{Name: "Alice", Owns: []string{"quickgame"}, Interests: []string{"quickgame"}, Sessions: []int{0}},
		{Name: "Bob", Interests: []string{"quickgame"}, Sessions: []int{0}},
		{Name: "Charles", Interests: []string{"quickgame"}, Sessions: []int{0}},
		{Name: "Dana", Owns: []string{"quickgame"}, Interests: []string{"quickgame"}, Sessions: []int{1}},
	}
	sessions := []roster.Session{
		{Name: "Round 1", Length: 600},
		{Name: "Round 2", Length: 600},
	}

	sc := NewScheduler(nil, nil)
	result, err := sc.Run(context.Background(), Input{Catalog: cat, Players: players, Sessions: sessions})
	require.NoError(t, err)

	require.Len(t, result.Sessions[0].Tables, 1)
	assert.Equal(t, []string{"Alice", "Bob", "Charles"}, names(result.Sessions[0].Tables[0].Players))
	require.Len(t, result.Sessions[1].Tables, 1)
	assert.Equal(t, []string{"Dana"}, names(result.Sessions[1].Tables[0].Players))
}

// Scenario 6: a short session filters the fixed-playtime game out while
// keeping the variable-playtime one, capping its table size via the
// slope interpolation.
func TestScenarioShortSessionFiltersAndCaps(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 360},
		catalog.Record{Name: "1830", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 180, MaxPlaytime: 360},
	)
	players := []roster.Player{
		{Name: "Alice", Interests: []string{"1817", "1830"}},
		{Name: "Bob", Interests: []string{"1817", "1830"}},
		{Name: "Charles", Interests: []string{"1817", "1830"}},
	}
	sessions := []roster.Session{{Name: "Lightning round", Length: 240}}

	problem, idx, err := BuildProblem(Input{
		Catalog: cat, Players: players, Sessions: sessions,
		SharedGames: []string{"1817", "1830"},
	})
	require.NoError(t, err)
	_ = problem

	var gameNames []string
	for _, g := range idx.SessionGames[0] {
		gameNames = append(gameNames, idx.Instances[g].GameName)
	}
	assert.ElementsMatch(t, []string{"1830"}, gameNames)

	// slope = (360-180)/(6-3) = 60; effective max at 240 = 3 + floor((240-180)/60) = 4
	chain := idx.G[gKey{Session: 0, Game: idx.SessionGames[0][0]}]
	assert.Len(t, chain, 2) // c=0 (size 3) and c=1 (size 4)
}

// Scenario 7: several physical copies of the same title can be in play
// at once as distinct instances.
func TestScenarioTwoInstancesOfSameTitle(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1830", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 180, MaxPlaytime: 360},
	)
	players := []roster.Player{
		{Name: "Owner1", Owns: []string{"1830"}, Interests: []string{"1830"}},
		{Name: "Owner2", Owns: []string{"1830"}, Interests: []string{"1830"}},
		{Name: "Owner3", Owns: []string{"1830"}, Interests: []string{"1830"}},
		{Name: "Extra1", Interests: []string{"1830"}},
		{Name: "Extra2", Interests: []string{"1830"}},
		{Name: "Extra3", Interests: []string{"1830"}},
		{Name: "Extra4", Interests: []string{"1830"}},
	}
	sessions := []roster.Session{{Name: "Round 1", Length: 360}}

	sc := NewScheduler(nil, nil)
	result, err := sc.Run(context.Background(), Input{Catalog: cat, Players: players, Sessions: sessions})
	require.NoError(t, err)

	tables := result.Sessions[0].Tables
	require.Len(t, tables, 2)
	total := 0
	for _, table := range tables {
		assert.Equal(t, "1830", table.GameName)
		assert.GreaterOrEqual(t, len(table.Players), 3)
		assert.LessOrEqual(t, len(table.Players), 6)
		total += len(table.Players)
	}
	assert.Equal(t, 7, total)
}

// Scenario 8: a shared game is available every session regardless of
// whether any particular owner is present.
func TestScenarioSharedGameAvailableWithoutOwner(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 540},
	)
	players := []roster.Player{
		{Name: "Alice", Interests: []string{"1817"}},
		{Name: "Bob", Interests: []string{"1817"}},
		{Name: "Charles", Interests: []string{"1817"}},
	}
	sessions := []roster.Session{{Name: "Round 1", Length: 600}}

	_, idx, err := BuildProblem(Input{
		Catalog: cat, Players: players, Sessions: sessions,
		SharedGames: []string{"1817"},
	})
	require.NoError(t, err)

	require.Len(t, idx.SessionGames[0], 1)
	assert.True(t, idx.Instances[idx.SessionGames[0][0]].IsShared())
}

func TestNotSolvableErrorWhenNoGameFits(t *testing.T) {
	cat := mustCatalog(t,
		catalog.Record{Name: "1817", MinPlayers: 3, MaxPlayers: 6, MinPlaytime: 360, MaxPlaytime: 540},
	)
	players := []roster.Player{
		{Name: "Alice", Interests: []string{"1817"}},
	}
	sessions := []roster.Session{{Name: "Round 1", Length: 600}}

	sc := NewScheduler(nil, nil)
	_, err := sc.Run(context.Background(), Input{
		Catalog: cat, Players: players, Sessions: sessions,
		SharedGames: []string{"1817"},
	})
	require.Error(t, err)
	var notSolvable *NotSolvableError
	require.ErrorAs(t, err, &notSolvable)
}
