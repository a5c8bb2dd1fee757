package pipeline

// State is the orchestrator's lifecycle position. Failed, Cancelled,
// and Done are terminal.
type State int

const (
	Idle State = iota
	Building
	Built
	Resolving
	Publishing
	Skipped
	Failed
	Cancelled
	Done
)

var stateNames = map[State]string{
	Idle:       "idle",
	Building:   "building",
	Built:      "built",
	Resolving:  "resolving",
	Publishing: "publishing",
	Skipped:    "skipped",
	Failed:     "failed",
	Cancelled:  "cancelled",
	Done:       "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Failed || s == Cancelled || s == Done
}
