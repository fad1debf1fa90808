package member

import (
	"errors"
	"fmt"
)

// State is a Member's position in the membership lifecycle. It is derived
// from the status fields rather than stored, so the store can never hold a
// state the transition table does not know about.
type State string

const (
	// StateRegistered: signed up, no payment submitted yet.
	StateRegistered State = "registered"
	// StatePaymentSubmitted: a transaction reference is recorded, pending verification.
	StatePaymentSubmitted State = "payment_submitted"
	// StatePaymentApproved: payment verified by an admin, membership not yet active.
	StatePaymentApproved State = "payment_approved"
	// StateActive: full member portal access.
	StateActive State = "active"
	// StateInactive: deactivated by an admin.
	StateInactive State = "inactive"
)

var ErrIllegalTransition = errors.New("illegal membership state transition")

// transitions lists the legal next states per state.
// Self-transitions encode the operations that are deliberate no-ops when
// repeated (payment resubmission after a rejected reference, re-approval).
var transitions = map[State][]State{
	StateRegistered:       {StatePaymentSubmitted},
	StatePaymentSubmitted: {StatePaymentSubmitted, StatePaymentApproved},
	StatePaymentApproved:  {StatePaymentApproved, StateActive},
	StateActive:           {StateInactive},
	StateInactive:         {StateActive},
}

// StateOf derives the lifecycle State from a Member's status fields.
func StateOf(m Member) State {
	switch {
	case m.MembershipStatus == MembershipActive:
		return StateActive
	case m.MembershipStatus == MembershipInactive:
		return StateInactive
	case m.PaymentStatus == PaymentApproved:
		return StatePaymentApproved
	case m.TransactionID.Valid:
		return StatePaymentSubmitted
	default:
		return StateRegistered
	}
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates that the Member may move to the target state.
func Transition(m Member, to State) error {
	from := StateOf(m)
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, from, to)
	}
	return nil
}
