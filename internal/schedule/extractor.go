package schedule

import (
	"sort"

	"github.com/knaveofdiamonds/tablefit/internal/solver"
)

// Table is one game instance being played, with the players seated at
// it, in roster order.
type Table struct {
	GameName string
	Players  []string
}

// SessionResult is the seating plan for a single session.
type SessionResult struct {
	SessionName string
	Tables      []Table
}

// Result is the complete solved schedule (spec.md §4.4).
type Result struct {
	Sessions  []SessionResult
	Objective float64
}

// extract reads a solved solution back into named tables per session,
// in roster order within a table and sorted by game name within a
// session (stable, so copies of one title keep instance order)
// (spec.md §4.4).
func extract(in Input, idx *Indices, sol *solver.Solution) Result {
	res := Result{Objective: sol.Objective}

	for s, session := range in.Sessions {
		sr := SessionResult{SessionName: session.Name}

		for _, g := range idx.SessionGames[s] {
			var players []string
			for _, p := range idx.SessionPlayers[s] {
				id, ok := idx.X[xKey{Session: s, Player: p, Game: g}]
				if !ok {
					continue
				}
				if sol.Value(id) > 0.5 {
					players = append(players, in.Players[p].Name)
				}
			}
			if len(players) == 0 {
				continue
			}
			sr.Tables = append(sr.Tables, Table{
				GameName: idx.Instances[g].GameName,
				Players:  players,
			})
		}

		sort.SliceStable(sr.Tables, func(a, b int) bool {
			return sr.Tables[a].GameName < sr.Tables[b].GameName
		})

		res.Sessions = append(res.Sessions, sr)
	}

	return res
}
