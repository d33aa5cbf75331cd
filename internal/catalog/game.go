// Package catalog implements the game catalog: an immutable name->Game
// lookup with deterministic defaults for unknown titles and the
// popularity-weight preprocessing consumed by the problem builder.
package catalog

import (
	"fmt"
	"math"
)

// popularityCap is the ceiling applied to any single player-count's
// popularity rating so no one game can dominate the objective.
const popularityCap = 0.9

// popularityScale keeps the popularity term below the 1.0 weight of a
// satisfied interest, so interests always dominate table-size nudging.
const popularityScale = 0.1

// Game is an immutable catalog entry. AdjustedPopularity is populated by
// preprocessGame and is indexed from 0 (player count == MinPlayers).
type Game struct {
	Name             string
	MinPlayers       int
	MaxPlayers       int
	MinPlaytime      int
	MaxPlaytime      int
	Popularity       map[int]float64
	AdjustedPopularity []float64
}

// Record is the external shape a catalog entry arrives in (spec.md §6):
// popularity keys are allowed to be stringified integers because they
// round-trip through JSON object keys.
type Record struct {
	Name        string             `json:"name"`
	MinPlayers  int                `json:"min_players"`
	MaxPlayers  int                `json:"max_players"`
	MinPlaytime int                `json:"min_playtime"`
	MaxPlaytime int                `json:"max_playtime"`
	Popularity  map[string]float64 `json:"popularity"`
}

func defaultGame() *Game {
	g := &Game{
		Name:        "",
		MinPlayers:  3,
		MaxPlayers:  4,
		MinPlaytime: 240,
		MaxPlaytime: 240,
	}
	// Derived, not hard-coded: running the same preprocessing pass over an
	// assumed 0.9 rating at every player count reproduces [0.27, 0.09]
	// today and keeps tracking the 0.9/0.1 smoothing constants if they
	// change. See DESIGN.md's Open Question decision.
	g.Popularity = map[int]float64{3: popularityCap, 4: popularityCap}
	preprocessGame(g)
	return g
}

// preprocessGame clamps each player-count's popularity rating, scales it
// into the objective's units, and rewrites it into the incremental
// ("thermometer") form described in spec.md §4.1.
func preprocessGame(g *Game) {
	if g.MinPlayers > g.MaxPlayers {
		return
	}

	weights := make([]float64, 0, g.MaxPlayers-g.MinPlayers+1)
	clamped := make(map[int]float64, len(weights))

	for i := g.MinPlayers; i <= g.MaxPlayers; i++ {
		pop, ok := g.Popularity[i]
		if !ok {
			pop = popularityCap
		}
		pop = math.Min(pop, popularityCap)
		clamped[i] = pop
		weights = append(weights, pop*popularityScale*float64(i))
	}

	g.Popularity = clamped
	g.AdjustedPopularity = make([]float64, len(weights))
	for k, w := range weights {
		if k == 0 {
			g.AdjustedPopularity[k] = w
		} else {
			g.AdjustedPopularity[k] = w - weights[k-1]
		}
	}
}

// EffectiveMaxPlayers returns the maximum table size this game can seat
// for a given session length (spec.md §4.1's player-count-vs-playtime
// interpolation). sessionLength <= 0 is treated as "no session supplied".
func (g *Game) EffectiveMaxPlayers(sessionLength int) int {
	if sessionLength <= 0 || g.MinPlayers == g.MaxPlayers || g.MinPlaytime == g.MaxPlaytime {
		return g.MaxPlayers
	}

	slope := float64(g.MaxPlaytime-g.MinPlaytime) / float64(g.MaxPlayers-g.MinPlayers)
	extra := int(math.Floor(float64(sessionLength-g.MinPlaytime) / slope))
	effective := g.MinPlayers + extra
	if effective > g.MaxPlayers {
		return g.MaxPlayers
	}
	if effective < g.MinPlayers {
		return g.MinPlayers
	}
	return effective
}

// AdjustedPopularityAt returns the marginal weight for going from a
// (MinPlayers+c-1)-player table to a (MinPlayers+c)-player table, or 0
// once c runs past the game's range.
func (g *Game) AdjustedPopularityAt(c int) float64 {
	if c < 0 || c >= len(g.AdjustedPopularity) {
		return 0
	}
	return g.AdjustedPopularity[c]
}

// MalformedGameError names the catalog entry whose player-count range is
// empty, which preprocessing cannot run over (spec.md §7, kind 2).
type MalformedGameError struct {
	Name string
}

func (e *MalformedGameError) Error() string {
	return fmt.Sprintf("catalog: game %q has an empty player-count range (min_players > max_players)", e.Name)
}
