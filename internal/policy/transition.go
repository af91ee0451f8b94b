package policy

import "github.com/iliyamo/home-services-marketplace/internal/model"

// Actor is the relationship of a caller to a booking.
type Actor string

const (
    ActorCustomer Actor = "customer"
    ActorProvider Actor = "provider"
)

// Verdict is the outcome of evaluating a requested status change.
type Verdict int

const (
    // Allowed means the change may be applied.
    Allowed Verdict = iota
    // DeniedActor means the actor may never set the target status.
    DeniedActor
    // DeniedState means the target is not reachable from the current status.
    DeniedState
)

type actors map[Actor]bool

var both = actors{ActorCustomer: true, ActorProvider: true}

// bookingTransitions is the full state machine.  Statuses missing as a key
// are terminal.
var bookingTransitions = map[model.BookingStatus]map[model.BookingStatus]actors{
    model.BookingPending: {
        model.BookingApproved:  {ActorProvider: true},
        model.BookingRejected:  {ActorProvider: true},
        model.BookingCancelled: both,
    },
    model.BookingApproved: {
        model.BookingCompleted: both,
        model.BookingCancelled: both,
    },
}

// UpdatableStatuses are the statuses a caller may request.  pending is the
// initial state only.
var UpdatableStatuses = []model.BookingStatus{
    model.BookingApproved,
    model.BookingRejected,
    model.BookingCompleted,
    model.BookingCancelled,
}

// IsUpdatable reports whether s may be requested as a target status.
func IsUpdatable(s model.BookingStatus) bool {
    for _, u := range UpdatableStatuses {
        if u == s {
            return true
        }
    }
    return false
}

// MaySet reports whether actor is allowed to set status to at all,
// regardless of the booking's current status.
func MaySet(actor Actor, to model.BookingStatus) bool {
    for _, targets := range bookingTransitions {
        if targets[to][actor] {
            return true
        }
    }
    return false
}

// EvaluateTransition checks (from, actor, to) against the table.  Actor
// rules win over state rules so a customer trying to approve always gets
// DeniedActor, whatever the current status.
func EvaluateTransition(from model.BookingStatus, actor Actor, to model.BookingStatus) Verdict {
    if !MaySet(actor, to) {
        return DeniedActor
    }
    if !bookingTransitions[from][to][actor] {
        return DeniedState
    }
    return Allowed
}
