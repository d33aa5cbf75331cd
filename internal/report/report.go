// Package report computes post-solve diagnostics over a schedule
// Result. These never feed back into the optimizer (spec.md's
// objective is fixed at solve time); they exist to let operators and
// property tests (P7) sanity-check a solve.
package report

import (
	"gonum.org/v1/gonum/stat"

	"github.com/knaveofdiamonds/tablefit/internal/catalog"
	"github.com/knaveofdiamonds/tablefit/internal/roster"
	"github.com/knaveofdiamonds/tablefit/internal/schedule"
)

// Diagnostics summarizes one solved schedule.
type Diagnostics struct {
	InterestSatisfactionRate float64
	MeanTableSize            float64
	StdDevTableSize          float64
	RecomputedObjective      float64
}

// Compute derives diagnostics for result against the roster and
// catalog that produced it.
func Compute(result *schedule.Result, players []roster.Player, cat *catalog.Catalog) Diagnostics {
	interested := byName(players)

	var satisfied, seated int
	var sizes []float64
	recomputed := 0.0

	for _, session := range result.Sessions {
		for _, table := range session.Tables {
			sizes = append(sizes, float64(len(table.Players)))

			for _, name := range table.Players {
				seated++
				if interested[name][table.GameName] {
					satisfied++
					recomputed += 1.0
				}
			}

			minP := cat.MinPlayers(table.GameName)
			for c := 0; c <= len(table.Players)-minP; c++ {
				recomputed += cat.AdjustedPopularity(table.GameName, c)
			}
		}
	}

	d := Diagnostics{RecomputedObjective: recomputed}
	if seated > 0 {
		d.InterestSatisfactionRate = float64(satisfied) / float64(seated)
	}
	switch len(sizes) {
	case 0:
		// no tables played; leave the zero values.
	case 1:
		d.MeanTableSize = sizes[0]
	default:
		d.MeanTableSize, d.StdDevTableSize = stat.MeanStdDev(sizes, nil)
	}
	return d
}

func byName(players []roster.Player) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(players))
	for _, p := range players {
		set := make(map[string]bool, len(p.Interests))
		for _, g := range p.Interests {
			set[g] = true
		}
		out[p.Name] = set
	}
	return out
}
