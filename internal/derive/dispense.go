package derive

import (
	"time"

	"github.com/google/uuid"
)

// Transition classifies what a prescription-detail update does to its
// dispense state. The state is carried entirely by the nullity of
// dispensed_by and dispensed_at: PENDING while either is null, DISPENSED
// once both are set.
type Transition int

const (
	// TransitionNone is any update that does not change the dispense
	// state: edits to other fields, or re-submission of an already
	// dispensed detail. Never touches stock.
	TransitionNone Transition = iota

	// TransitionDispense is the one transition that decrements medication
	// stock: both fields become non-null while at least one was null.
	TransitionDispense

	// TransitionRevert clears either field of a previously dispensed
	// detail. No return flow is modeled; callers must reject it.
	TransitionRevert
)

func (t Transition) String() string {
	switch t {
	case TransitionDispense:
		return "dispense"
	case TransitionRevert:
		return "revert"
	default:
		return "none"
	}
}

// DispenseTransition reports how an update moves a detail between the
// PENDING and DISPENSED states, given the dispense fields before and after.
func DispenseTransition(oldBy *uuid.UUID, oldAt *time.Time, newBy *uuid.UUID, newAt *time.Time) Transition {
	oldDispensed := oldBy != nil && oldAt != nil
	newDispensed := newBy != nil && newAt != nil

	switch {
	case !oldDispensed && newDispensed:
		return TransitionDispense
	case oldDispensed && !newDispensed:
		return TransitionRevert
	default:
		return TransitionNone
	}
}
