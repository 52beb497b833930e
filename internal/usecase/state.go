package usecase

// State is a step of a pipeline run.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateFiltering  State = "filtering"
	StateRequesting State = "requesting"
	StateValidating State = "validating"
	StateEnriching  State = "enriching"
	StateAssembling State = "assembling"
	StateDelivering State = "delivering"
	StateCommitting State = "committing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID         string
	State         State
	FailedAt      State
	Path          []State
	Fetched       int
	NewArticles   int
	Opportunities int
	Warnings      int
	Delivered     bool
	Committed     bool
	Err           error
}
