package member

import (
	"errors"
	"testing"

	"github.com/volatiletech/null/v8"
)

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		mbr  Member
		want State
	}{
		{
			name: "fresh registration",
			mbr:  Member{MembershipStatus: MembershipPending, PaymentStatus: PaymentPending},
			want: StateRegistered,
		},
		{
			name: "transaction reference recorded",
			mbr: Member{
				MembershipStatus: MembershipPending,
				PaymentStatus:    PaymentPending,
				TransactionID:    null.StringFrom("QGH7TYU89P"),
			},
			want: StatePaymentSubmitted,
		},
		{
			name: "payment approved",
			mbr: Member{
				MembershipStatus: MembershipPending,
				PaymentStatus:    PaymentApproved,
				TransactionID:    null.StringFrom("QGH7TYU89P"),
			},
			want: StatePaymentApproved,
		},
		{
			name: "active membership",
			mbr: Member{
				MembershipStatus: MembershipActive,
				PaymentStatus:    PaymentApproved,
				TransactionID:    null.StringFrom("QGH7TYU89P"),
			},
			want: StateActive,
		},
		{
			name: "deactivated membership",
			mbr: Member{
				MembershipStatus: MembershipInactive,
				PaymentStatus:    PaymentApproved,
				TransactionID:    null.StringFrom("QGH7TYU89P"),
			},
			want: StateInactive,
		},
		{
			// deactivation overrides whatever the payment fields say
			name: "deactivated without payment",
			mbr:  Member{MembershipStatus: MembershipInactive, PaymentStatus: PaymentPending},
			want: StateInactive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateOf(tt.mbr); got != tt.want {
				t.Errorf("StateOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	allStates := []State{StateRegistered, StatePaymentSubmitted, StatePaymentApproved, StateActive, StateInactive}

	legal := map[State][]State{
		StateRegistered:       {StatePaymentSubmitted},
		StatePaymentSubmitted: {StatePaymentSubmitted, StatePaymentApproved},
		StatePaymentApproved:  {StatePaymentApproved, StateActive},
		StateActive:           {StateInactive},
		StateInactive:         {StateActive},
	}

	for _, from := range allStates {
		for _, to := range allStates {
			want := false
			for _, next := range legal[from] {
				if next == to {
					want = true
				}
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransition(t *testing.T) {
	registered := Member{MembershipStatus: MembershipPending, PaymentStatus: PaymentPending}

	// no skipping steps
	err := Transition(registered, StatePaymentApproved)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Transition() error = %v, want ErrIllegalTransition", err)
	}
	err = Transition(registered, StateActive)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Transition() error = %v, want ErrIllegalTransition", err)
	}

	if err = Transition(registered, StatePaymentSubmitted); err != nil {
		t.Errorf("Transition() unexpected error = %v", err)
	}
}
