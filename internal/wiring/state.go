package wiring

// State is the progress of one wiring pass.
type State uint8

const (
	Unconfigured State = iota
	Validating
	Instantiating
	Attached
	Ready
	Failed
)

var stateNames = [...]string{"Unconfigured", "Validating", "Instantiating", "Attached", "Ready", "Failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}
