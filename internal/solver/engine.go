package solver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultMaxNodes bounds worst-case search effort. It is generous enough
// for the tens-of-attendees/few-session/few-hundred-game instances this
// optimizer targets (spec.md §1) while still protecting the process from
// runaway search on a pathological input.
const defaultMaxNodes = 5_000_000

// Stats reports how much search the engine performed for a Solve call.
// Exposed so callers (internal/websocket) can stream progress.
type Stats struct {
	NodesExplored int64
	Elapsed       time.Duration
}

// ProgressFunc is invoked periodically during Solve with the search
// progress so far. It must return quickly; it is called from the
// solving goroutine.
type ProgressFunc func(stats Stats, bestObjective float64)

// Engine is an in-process branch-and-bound solver for the binary linear
// programs the Problem Builder produces. It never inspects variable
// names or constraint semantics: it only branches on the SOS1Groups and
// ThermometerChains it is handed, in the order given, pruning with an
// admissible bound on the best any undecided group/chain could still
// contribute.
//
// This is the Solver Adapter's default backend. Nothing in the examined
// corpus vendors a real external MILP library (see DESIGN.md); the
// Engine fills that role so the adapter contract in spec.md §4.3 has a
// concrete implementation, while staying swappable behind the same
// interface.
type Engine struct {
	logger      *logrus.Entry
	maxNodes    int64
	progress    ProgressFunc
	progressEvery int64

	mu    sync.Mutex
	stats Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxNodes overrides the default search-node budget.
func WithMaxNodes(n int64) Option {
	return func(e *Engine) { e.maxNodes = n }
}

// WithProgress registers a callback invoked roughly every `every` nodes.
func WithProgress(every int64, fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progressEvery = every
		e.progress = fn
	}
}

// WithLogger attaches a logger for search diagnostics.
func WithLogger(logger *logrus.Entry) Option {
	return func(e *Engine) { e.logger = logger }
}

// New constructs an Engine ready to Solve.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxNodes:      defaultMaxNodes,
		progressEvery: 50_000,
		logger:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats returns a snapshot of the most recent Solve's search statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// search holds the mutable state threaded through the recursive branch
// and bound; it is local to a single Solve call.
type search struct {
	problem *Problem

	values  []float64
	decided []bool

	groupBest []float64 // best achievable contribution per group
	chainBest []float64 // best achievable contribution per chain

	// suffixBound[i] is the sum of groupBest/chainBest for
	// problem.Order[i:], used to compute the admissible pruning bound in
	// O(1) at each node.
	suffixBound []float64

	bestObj    float64
	bestValues []float64
	found      bool

	nodes    int64
	maxNodes int64

	start time.Time
	e     *Engine

	ctx context.Context
}

// Solve runs branch-and-bound over problem and returns its termination
// status. It satisfies the Solver Adapter contract of spec.md §4.3.
func (e *Engine) Solve(ctx context.Context, problem *Problem) (*Solution, error) {
	if problem == nil || len(problem.Variables) == 0 {
		return &Solution{Status: StatusError}, fmt.Errorf("solver: empty problem")
	}

	s := &search{
		problem:  problem,
		values:   make([]float64, len(problem.Variables)),
		decided:  make([]bool, len(problem.Variables)),
		bestObj:  negInf,
		maxNodes: e.maxNodes,
		start:    time.Now(),
		e:        e,
		ctx:      ctx,
	}
	s.precomputeBounds()

	orderGroupVars(problem)

	err := s.run(0, 0)

	e.mu.Lock()
	e.stats = Stats{NodesExplored: s.nodes, Elapsed: time.Since(s.start)}
	e.mu.Unlock()

	if err != nil {
		return &Solution{Status: StatusError}, err
	}

	if !s.found {
		return &Solution{Status: StatusInfeasible}, nil
	}

	return &Solution{
		Status:    StatusOptimal,
		Objective: s.bestObj,
		Values:    s.bestValues,
	}, nil
}

const negInf = -1.0e18

// orderGroupVars sorts each group's member variables by descending
// objective coefficient, a standard most-promising-first branching
// heuristic: it finds strong incumbents early, which makes the bound
// check start pruning sooner. It never changes correctness.
func orderGroupVars(p *Problem) {
	for i := range p.SOS1Groups {
		vars := p.SOS1Groups[i].Vars
		sort.SliceStable(vars, func(a, b int) bool {
			return p.Variables[vars[a]].Obj > p.Variables[vars[b]].Obj
		})
	}
}

func (s *search) precomputeBounds() {
	p := s.problem
	s.groupBest = make([]float64, len(p.SOS1Groups))
	for i, g := range p.SOS1Groups {
		best := 0.0
		for _, v := range g.Vars {
			if p.Variables[v].Obj > best {
				best = p.Variables[v].Obj
			}
		}
		s.groupBest[i] = best
	}

	s.chainBest = make([]float64, len(p.Chains))
	for i, c := range p.Chains {
		best := 0.0
		running := 0.0
		for _, v := range c.Vars {
			running += p.Variables[v].Obj
			if running > best {
				best = running
			}
		}
		s.chainBest[i] = best
	}

	s.suffixBound = make([]float64, len(p.Order)+1)
	for i := len(p.Order) - 1; i >= 0; i-- {
		ref := p.Order[i]
		var contrib float64
		if ref.Kind == DecisionGroup {
			contrib = s.groupBest[ref.Index]
		} else {
			contrib = s.chainBest[ref.Index]
		}
		s.suffixBound[i] = s.suffixBound[i+1] + contrib
	}
}

// run performs the recursive DFS from decision index idx, having
// accumulated currentObj from decisions made so far. It returns a
// non-nil error only on node-budget exhaustion or context cancellation.
func (s *search) run(idx int, currentObj float64) error {
	s.nodes++
	if s.nodes > s.maxNodes {
		return fmt.Errorf("solver: exceeded node budget (%d nodes) without proving optimality", s.maxNodes)
	}
	if s.nodes%s.e.progressEvery == 0 {
		if s.ctx != nil {
			select {
			case <-s.ctx.Done():
				return s.ctx.Err()
			default:
			}
		}
		if s.e.progress != nil {
			s.e.progress(Stats{NodesExplored: s.nodes, Elapsed: time.Since(s.start)}, s.bestObj)
		}
	}

	if currentObj+s.suffixBound[idx] <= s.bestObj {
		return nil // pruned: even the best possible remainder can't beat the incumbent
	}

	if idx == len(s.problem.Order) {
		s.recordLeaf(currentObj)
		return nil
	}

	ref := s.problem.Order[idx]
	if ref.Kind == DecisionGroup {
		return s.branchGroup(s.problem.SOS1Groups[ref.Index], idx, currentObj)
	}
	return s.branchChain(s.problem.Chains[ref.Index], idx, currentObj)
}

func (s *search) branchGroup(g SOS1Group, idx int, currentObj float64) error {
	for _, chosen := range g.Vars {
		for _, v := range g.Vars {
			s.decided[v] = true
			if v == chosen {
				s.values[v] = 1
			} else {
				s.values[v] = 0
			}
		}

		if s.constraintsFeasible(g.Vars) {
			if err := s.run(idx+1, currentObj+s.problem.Variables[chosen].Obj); err != nil {
				s.undecide(g.Vars)
				return err
			}
		}
		s.undecide(g.Vars)
	}
	return nil
}

func (s *search) branchChain(c ThermometerChain, idx int, currentObj float64) error {
	// Try longer prefixes (bigger tables) first: a stronger early
	// incumbent prunes more of the remaining tree.
	for k := len(c.Vars); k >= 0; k-- {
		added := 0.0
		for i, v := range c.Vars {
			s.decided[v] = true
			if i < k {
				s.values[v] = 1
				added += s.problem.Variables[v].Obj
			} else {
				s.values[v] = 0
			}
		}

		if s.constraintsFeasible(c.Vars) {
			if err := s.run(idx+1, currentObj+added); err != nil {
				s.undecide(c.Vars)
				return err
			}
		}
		s.undecide(c.Vars)
	}
	return nil
}

func (s *search) undecide(vars []int) {
	for _, v := range vars {
		s.decided[v] = false
		s.values[v] = 0
	}
}

// constraintsFeasible checks every constraint touching the
// just-decided variables that is now fully determined. Constraints
// still referencing an undecided variable are skipped until they
// become fully determined deeper in the search.
func (s *search) constraintsFeasible(touched []int) bool {
	for _, c := range s.problem.Constraints {
		if !s.touches(c, touched) {
			continue
		}
		if !s.allDecided(c) {
			continue
		}
		if !s.satisfies(c) {
			return false
		}
	}
	return true
}

func (s *search) touches(c Constraint, touched []int) bool {
	for _, v := range touched {
		if _, ok := c.Terms[v]; ok {
			return true
		}
	}
	return false
}

func (s *search) allDecided(c Constraint) bool {
	for v := range c.Terms {
		if !s.decided[v] {
			return false
		}
	}
	return true
}

func (s *search) satisfies(c Constraint) bool {
	sum := 0.0
	for v, coef := range c.Terms {
		sum += coef * s.values[v]
	}
	switch c.Op {
	case OpEq:
		return nearlyEqual(sum, c.RHS)
	case OpLE:
		return sum <= c.RHS+1e-9
	default:
		return false
	}
}

func nearlyEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

// recordLeaf re-validates every constraint (defense in depth: every
// constraint should already be satisfied by construction once all
// groups/chains are decided) and, if the assignment is feasible and
// strictly better than the incumbent, adopts it.
func (s *search) recordLeaf(obj float64) {
	for _, c := range s.problem.Constraints {
		if !s.satisfies(c) {
			return
		}
	}
	if !s.found || obj > s.bestObj {
		s.found = true
		s.bestObj = obj
		s.bestValues = append([]float64(nil), s.values...)
	}
}
