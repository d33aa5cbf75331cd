// Package schedule is the Problem Builder and Solution Extractor
// (spec.md §4.2 and §4.4): it turns a catalog, a roster and a session
// list into a solver.Problem, and turns the solver's answer back into a
// per-session seating plan.
package schedule

import (
	"fmt"

	"github.com/knaveofdiamonds/tablefit/internal/catalog"
	"github.com/knaveofdiamonds/tablefit/internal/roster"
	"github.com/knaveofdiamonds/tablefit/internal/solver"
)

// xKey identifies a choice variable X[s,p,g]: player p plays game
// instance g in session s.
type xKey struct {
	Session int
	Player  int
	Game    int
}

// gKey identifies a thermometer chain's game-instance/session pair; the
// chain itself carries one variable per table-size step.
type gKey struct {
	Session int
	Game    int
}

// Indices is everything the Extractor needs to turn a solver.Solution
// back into named games and players: the instance list, the
// availability filters the builder computed, and the variable-ID maps.
type Indices struct {
	Instances      []GameInstance
	SessionPlayers [][]int // session -> roster indices attending
	SessionGames   [][]int // session -> instance indices available
	X              map[xKey]int
	G              map[gKey][]int // ordered c=0.. (index into chain)
}

// Input bundles everything BuildProblem needs.
type Input struct {
	Catalog     *catalog.Catalog
	Players     []roster.Player
	Sessions    []roster.Session
	SharedGames []string
	// TableLimit caps how many tables may run concurrently in a single
	// session (spec.md §3, C3). Zero means unlimited.
	TableLimit int
}

// BuildProblem constructs the complete binary program for in: decision
// variables X[s,p,g] and G[s,g,c], the C1-C5 constraints in their
// literal linear form, and the SOS1Groups/ThermometerChains/Order the
// solver branches on directly (spec.md §4.2).
func BuildProblem(in Input) (*solver.Problem, *Indices, error) {
	instances := enumerateInstances(in.Players, in.SharedGames)

	idx := &Indices{
		Instances:      instances,
		SessionPlayers: make([][]int, len(in.Sessions)),
		SessionGames:   make([][]int, len(in.Sessions)),
		X:              make(map[xKey]int),
		G:              make(map[gKey][]int),
	}

	b := &builder{in: in, instances: instances, idx: idx, problem: &solver.Problem{}}

	for s := range in.Sessions {
		idx.SessionPlayers[s] = b.sessionPlayers(s)
		idx.SessionGames[s] = b.sessionGames(s)
	}

	for s := range in.Sessions {
		b.addChoiceVariables(s)
	}
	for s := range in.Sessions {
		b.addTableSizeVariables(s)
	}

	b.addExactlyOneConstraints()
	b.addThermometerConstraints()
	b.addTableLimitConstraints()
	b.addPlayerCountConstraints()
	if err := b.addUniquenessConstraints(); err != nil {
		return nil, nil, err
	}

	b.buildOrder()

	return b.problem, idx, nil
}

type builder struct {
	in        Input
	instances []GameInstance
	idx       *Indices
	problem   *solver.Problem

	// sessionGroupIdx/sessionChainIdx record, per session, the position
	// each (s,p) group / (s,g) chain landed at in problem.SOS1Groups /
	// problem.Chains, so buildOrder can interleave them.
	sessionGroupIdx [][]int // session -> group indices, in player order
	sessionChainIdx [][]int // session -> chain indices, in game order
}

func (b *builder) sessionPlayers(s int) []int {
	var players []int
	for pi, p := range b.in.Players {
		if p.Attends(s) {
			players = append(players, pi)
		}
	}
	return players
}

func (b *builder) sessionGames(s int) []int {
	length := b.in.Sessions[s].Length
	var games []int
	for gi, inst := range b.instances {
		if !inst.IsShared() && !b.in.Players[inst.Owner].Attends(s) {
			continue
		}
		if b.in.Catalog.MinPlaytime(inst.GameName) > length {
			continue
		}
		games = append(games, gi)
	}
	return games
}

// addChoiceVariables creates X[s,p,g] for every attending player and
// every available game in session s, each in its own SOS1 group keyed
// by (s,p): spec.md's C1, exactly one of these is 1.
func (b *builder) addChoiceVariables(s int) {
	players := b.idx.SessionPlayers[s]
	games := b.idx.SessionGames[s]

	if len(b.sessionGroupIdx) == 0 {
		b.sessionGroupIdx = make([][]int, len(b.in.Sessions))
		b.sessionChainIdx = make([][]int, len(b.in.Sessions))
	}

	for _, p := range players {
		group := solver.SOS1Group{Name: fmt.Sprintf("choice[s=%d,p=%d]", s, p)}
		for _, g := range games {
			id := len(b.problem.Variables)
			obj := 0.0
			if b.in.Players[p].Interested(b.instances[g].GameName) {
				obj = 1.0
			}
			b.problem.Variables = append(b.problem.Variables, solver.Variable{
				Name: fmt.Sprintf("X[s=%d,p=%d,g=%d]", s, p, g),
				Obj:  obj,
			})
			b.idx.X[xKey{Session: s, Player: p, Game: g}] = id
			group.Vars = append(group.Vars, id)
		}
		groupID := len(b.problem.SOS1Groups)
		b.problem.SOS1Groups = append(b.problem.SOS1Groups, group)
		b.sessionGroupIdx[s] = append(b.sessionGroupIdx[s], groupID)
	}
}

// addTableSizeVariables creates the G[s,g,c] thermometer chain for
// every available game instance in session s, one variable per
// table-size step above the game's minimum.
func (b *builder) addTableSizeVariables(s int) {
	games := b.idx.SessionGames[s]
	length := b.in.Sessions[s].Length

	for _, g := range games {
		name := b.instances[g].GameName
		minP := b.in.Catalog.MinPlayers(name)
		maxP := b.in.Catalog.MaxPlayers(name, length)

		chain := solver.ThermometerChain{Name: fmt.Sprintf("size[s=%d,g=%d]", s, g)}
		var ids []int
		for c := 0; c <= maxP-minP; c++ {
			id := len(b.problem.Variables)
			b.problem.Variables = append(b.problem.Variables, solver.Variable{
				Name: fmt.Sprintf("G[s=%d,g=%d,c=%d]", s, g, c),
				Obj:  b.in.Catalog.AdjustedPopularity(name, c),
			})
			ids = append(ids, id)
			chain.Vars = append(chain.Vars, id)
		}
		b.idx.G[gKey{Session: s, Game: g}] = ids

		chainID := len(b.problem.Chains)
		b.problem.Chains = append(b.problem.Chains, chain)
		b.sessionChainIdx[s] = append(b.sessionChainIdx[s], chainID)
	}
}

// addExactlyOneConstraints emits C1 in literal linear form as well:
// sum_g X[s,p,g] == 1. The SOS1Group already enforces this structurally
// for the engine; the literal constraint is what a swapped-in backend
// (or recordLeaf's defense-in-depth check) would use instead.
func (b *builder) addExactlyOneConstraints() {
	for s := range b.in.Sessions {
		for _, p := range b.idx.SessionPlayers[s] {
			terms := map[int]float64{}
			for _, g := range b.idx.SessionGames[s] {
				terms[b.idx.X[xKey{Session: s, Player: p, Game: g}]] = 1
			}
			b.problem.Constraints = append(b.problem.Constraints, solver.Constraint{
				Name: fmt.Sprintf("C1[s=%d,p=%d]", s, p),
				Terms: terms,
				Op:   solver.OpEq,
				RHS:  1,
			})
		}
	}
}

// addThermometerConstraints emits C2: G[s,g,c] <= G[s,g,c-1] for every
// step past the first, i.e. G[c] - G[c-1] <= 0.
func (b *builder) addThermometerConstraints() {
	for s := range b.in.Sessions {
		for _, g := range b.idx.SessionGames[s] {
			ids := b.idx.G[gKey{Session: s, Game: g}]
			for c := 1; c < len(ids); c++ {
				b.problem.Constraints = append(b.problem.Constraints, solver.Constraint{
					Name: fmt.Sprintf("C2[s=%d,g=%d,c=%d]", s, g, c),
					Terms: map[int]float64{
						ids[c]:   1,
						ids[c-1]: -1,
					},
					Op:  solver.OpLE,
					RHS: 0,
				})
			}
		}
	}
}

// addTableLimitConstraints emits C3: at most TableLimit games may be
// played (G[s,g,0] == 1) concurrently in a single session. TableLimit
// <= 0 means unlimited and is skipped.
func (b *builder) addTableLimitConstraints() {
	if b.in.TableLimit <= 0 {
		return
	}
	for s := range b.in.Sessions {
		terms := map[int]float64{}
		for _, g := range b.idx.SessionGames[s] {
			ids := b.idx.G[gKey{Session: s, Game: g}]
			if len(ids) > 0 {
				terms[ids[0]] = 1
			}
		}
		if len(terms) == 0 {
			continue
		}
		b.problem.Constraints = append(b.problem.Constraints, solver.Constraint{
			Name:  fmt.Sprintf("C3[s=%d]", s),
			Terms: terms,
			Op:    solver.OpLE,
			RHS:   float64(b.in.TableLimit),
		})
	}
}

// addPlayerCountConstraints emits C4, tying the number of players
// seated at a table to the thermometer's chosen break point:
// sum_p X[s,p,g] - minPlayers*G[s,g,0] - sum_{c=1..} G[s,g,c] == 0.
func (b *builder) addPlayerCountConstraints() {
	for s := range b.in.Sessions {
		for _, g := range b.idx.SessionGames[s] {
			name := b.instances[g].GameName
			minP := b.in.Catalog.MinPlayers(name)
			ids := b.idx.G[gKey{Session: s, Game: g}]

			terms := map[int]float64{}
			for _, p := range b.idx.SessionPlayers[s] {
				terms[b.idx.X[xKey{Session: s, Player: p, Game: g}]] = 1
			}
			if len(ids) > 0 {
				terms[ids[0]] -= float64(minP)
				for c := 1; c < len(ids); c++ {
					terms[ids[c]] -= 1
				}
			}

			b.problem.Constraints = append(b.problem.Constraints, solver.Constraint{
				Name:  fmt.Sprintf("C4[s=%d,g=%d]", s, g),
				Terms: terms,
				Op:    solver.OpEq,
				RHS:   0,
			})
		}
	}
}

// addUniquenessConstraints emits C5: a player may play a given title at
// most once across the whole schedule, even though different sessions
// may offer different instances of it. Returns an error only if the
// roster references a title the catalog cannot resolve at all, which
// cannot happen since Lookup always falls back (kept for symmetry with
// the rest of the builder's error-returning calls).
func (b *builder) addUniquenessConstraints() error {
	for p := range b.in.Players {
		byTitle := map[string]map[int]bool{}
		for s := range b.in.Sessions {
			for _, g := range b.idx.SessionGames[s] {
				id, ok := b.idx.X[xKey{Session: s, Player: p, Game: g}]
				if !ok {
					continue
				}
				name := b.instances[g].GameName
				if byTitle[name] == nil {
					byTitle[name] = map[int]bool{}
				}
				byTitle[name][id] = true
			}
		}
		for name, vars := range byTitle {
			if len(vars) < 2 {
				continue
			}
			terms := map[int]float64{}
			for id := range vars {
				terms[id] = 1
			}
			b.problem.Constraints = append(b.problem.Constraints, solver.Constraint{
				Name:  fmt.Sprintf("C5[p=%d,title=%s]", p, name),
				Terms: terms,
				Op:    solver.OpLE,
				RHS:   1,
			})
		}
	}
	return nil
}

// buildOrder interleaves groups and chains session by session: every
// player's choice for session s is decided before any table-size
// break point in session s, so infeasibility within a session is
// discovered (and pruned) without waiting for the rest of the
// schedule.
func (b *builder) buildOrder() {
	var order []solver.DecisionRef
	for s := range b.in.Sessions {
		for _, gi := range b.sessionGroupIdx[s] {
			order = append(order, solver.DecisionRef{Kind: solver.DecisionGroup, Index: gi})
		}
		for _, ci := range b.sessionChainIdx[s] {
			order = append(order, solver.DecisionRef{Kind: solver.DecisionChain, Index: ci})
		}
	}
	b.problem.Order = order
}
