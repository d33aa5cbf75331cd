package catalog

import "strconv"

// Catalog is a read-only, preprocessed lookup over named games. It is
// built once and never mutated afterwards (spec.md §5): concurrent
// Problem Builders may share a single Catalog safely.
type Catalog struct {
	games   map[string]*Game
	fallback *Game
}

// New builds a Catalog from a slice of external records, running
// popularity preprocessing once per entry. It returns a
// *MalformedGameError naming the first entry with an empty player-count
// range.
func New(records []Record) (*Catalog, error) {
	games := make(map[string]*Game, len(records))

	for _, r := range records {
		if r.MinPlayers > r.MaxPlayers {
			return nil, &MalformedGameError{Name: r.Name}
		}

		pop := make(map[int]float64, len(r.Popularity))
		for key, v := range r.Popularity {
			n, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			pop[n] = v
		}

		g := &Game{
			Name:        r.Name,
			MinPlayers:  r.MinPlayers,
			MaxPlayers:  r.MaxPlayers,
			MinPlaytime: r.MinPlaytime,
			MaxPlaytime: r.MaxPlaytime,
			Popularity:  pop,
		}
		preprocessGame(g)
		games[r.Name] = g
	}

	return &Catalog{games: games, fallback: defaultGame()}, nil
}

// Lookup returns the stored entry for name, or the shared default entry
// if name is unknown. Unknown names never cause an error (spec.md §7,
// kind 3): real rosters routinely reference titles not yet indexed.
func (c *Catalog) Lookup(name string) *Game {
	if g, ok := c.games[name]; ok {
		return g
	}
	return c.fallback
}

// MinPlayers returns the minimum table size for name.
func (c *Catalog) MinPlayers(name string) int {
	return c.Lookup(name).MinPlayers
}

// MaxPlayers returns the maximum table size for name, capped for the
// given session length when the game's playtime is variable (spec.md
// §4.1). sessionLength <= 0 returns the stored maximum.
func (c *Catalog) MaxPlayers(name string, sessionLength int) int {
	return c.Lookup(name).EffectiveMaxPlayers(sessionLength)
}

// MinPlaytime returns the minimum time required to play name.
func (c *Catalog) MinPlaytime(name string) int {
	return c.Lookup(name).MinPlaytime
}

// AdjustedPopularity returns the marginal popularity weight for the
// (c+1)-th table-size step above MinPlayers for name.
func (c *Catalog) AdjustedPopularity(name string, step int) float64 {
	return c.Lookup(name).AdjustedPopularityAt(step)
}
