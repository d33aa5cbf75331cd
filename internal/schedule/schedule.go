package schedule

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/knaveofdiamonds/tablefit/internal/solver"
)

// Scheduler wires the Problem Builder to a solver.Engine and extracts
// its answer (spec.md §4: catalog -> problem -> solve -> extract).
type Scheduler struct {
	engine *solver.Engine
	logger *logrus.Entry
}

// NewScheduler constructs a Scheduler around the given engine. Passing a
// nil engine uses solver.New() with its defaults.
func NewScheduler(engine *solver.Engine, logger *logrus.Entry) *Scheduler {
	if engine == nil {
		engine = solver.New()
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{engine: engine, logger: logger}
}

// Run builds the problem for in, solves it, and extracts the result. A
// non-Optimal solver status is surfaced as a *NotSolvableError rather
// than a generic error (spec.md §7, kind 1); any other failure is
// wrapped with context.
func (sc *Scheduler) Run(ctx context.Context, in Input) (*Result, error) {
	problem, idx, err := BuildProblem(in)
	if err != nil {
		return nil, fmt.Errorf("schedule: building problem: %w", err)
	}

	sc.logger.WithFields(logrus.Fields{
		"variables":   len(problem.Variables),
		"constraints": len(problem.Constraints),
		"sessions":    len(in.Sessions),
		"players":     len(in.Players),
	}).Info("solving schedule")

	sol, err := sc.engine.Solve(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("schedule: solving: %w", err)
	}

	if sol.Status != solver.StatusOptimal {
		return nil, &NotSolvableError{Reason: sol.Status.String()}
	}

	result := extract(in, idx, sol)
	return &result, nil
}
