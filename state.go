package vmtest

import "fmt"

// State is the phase a Harness is in.
//
//	Configuring → Provisioning ⇄ Mapping → Holding → TearingDown → Done
//
// Provisioning and Mapping alternate once per file. Any failure moves the
// harness to Failed. Neither Done nor Failed can be left.
type State int

const (
	StateConfiguring State = iota
	StateProvisioning
	StateMapping
	StateHolding
	StateTearingDown
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateConfiguring:  "configuring",
	StateProvisioning: "provisioning",
	StateMapping:      "mapping",
	StateHolding:      "holding",
	StateTearingDown:  "tearing_down",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
