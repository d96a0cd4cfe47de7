package entities

// RunState is the position of a run in the pipeline state machine
type RunState string

const (
	RunStateInit          RunState = "init"
	RunStateAuthenticated RunState = "authenticated"
	RunStateSearched      RunState = "searched"
	RunStateDownloading   RunState = "downloading"
	RunStateDone          RunState = "done"
	RunStateFailed        RunState = "failed"
)

// IsTerminal reports whether the run cannot advance further
func (s RunState) IsTerminal() bool {
	return s == RunStateDone || s == RunStateFailed
}

// String returns the string representation of RunState
func (s RunState) String() string {
	return string(s)
}
