package app

import "fmt"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop"
	default:
		return "none"
	}
}

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(roomID, connID string) BackpressureAction
}

// SimplePolicy applies the same action to every slow connection.
type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(roomID, connID string) BackpressureAction {
	return p.Action
}

// ParseBackpressureAction maps a config value onto an action.
func ParseBackpressureAction(s string) (BackpressureAction, error) {
	switch s {
	case "", "kick":
		return KickMember, nil
	case "drop":
		return DropFrame, nil
	case "none":
		return NoAction, nil
	}
	return NoAction, fmt.Errorf("unknown backpressure action %q", s)
}
