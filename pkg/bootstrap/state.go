package bootstrap

// State is the availability of one required tool during bootstrap.
//
// Transitions are fixed:
//
//	Unresolved -> Available
//	Unresolved -> Installing -> AvailableAfterInstall
//	Unresolved -> Installing -> PermanentlyUnavailable
//	Unresolved -> PermanentlyUnavailable (probe failed for a reason other than a missing tool)
type State int

const (
	Unresolved State = iota
	Available
	Installing
	AvailableAfterInstall
	PermanentlyUnavailable
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Available:
		return "available"
	case Installing:
		return "installing"
	case AvailableAfterInstall:
		return "available-after-install"
	case PermanentlyUnavailable:
		return "permanently-unavailable"
	default:
		return "unknown"
	}
}

// Usable reports whether checks may launch the tool.
func (s State) Usable() bool {
	return s == Available || s == AvailableAfterInstall
}
