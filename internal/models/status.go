package models

// transitions is the item lifecycle. Nothing leaves resolved or expired.
var transitions = map[ItemStatus][]ItemStatus{
	StatusActive:  {StatusMatched, StatusResolved, StatusExpired},
	StatusMatched: {StatusResolved},
}

func (s ItemStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusExpired
}

func (s ItemStatus) Valid() bool {
	switch s {
	case StatusActive, StatusMatched, StatusResolved, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
func CanTransition(from, to ItemStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
