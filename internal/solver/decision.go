package solver

// DecisionKind tags whether a branching step resolves a group or a chain.
type DecisionKind int

const (
	DecisionGroup DecisionKind = iota
	DecisionChain
)

// DecisionRef points at one entry in Problem.SOS1Groups or
// Problem.Chains. Order controls the sequence the engine branches in;
// the Problem Builder interleaves groups and chains session-by-session
// so infeasibility is discovered (and pruned) as early as possible
// instead of only at the very end of the search.
type DecisionRef struct {
	Kind  DecisionKind
	Index int
}
