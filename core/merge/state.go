package merge

// State is a step of the merge protocol. A run moves through the states in
// order and stops at the first failure.
type State int

const (
	Start State = iota
	Resolved
	EligibilityChecked
	Cloned
	Merged
	VersionComputed
	Committed
	Published
	Done
)

var stateNames = [...]string{
	Start:              "start",
	Resolved:           "resolved",
	EligibilityChecked: "eligibility-checked",
	Cloned:             "cloned",
	Merged:             "merged",
	VersionComputed:    "version-computed",
	Committed:          "committed",
	Published:          "published",
	Done:               "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
