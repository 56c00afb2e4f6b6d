package domain

import (
	"errors"
	"testing"

	"cleanbroker/platform/apperr"
)

func TestApplyLegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		cmd     Transition
		actor   Actor
		want    Status
	}{
		{"admin prices a pending quote", StatusPending, SetPrice{TotalPriceCents: 22600}, ActorAdmin, StatusQuoted},
		{"admin re-prices after counter-offer", StatusQuoted, SetPrice{TotalPriceCents: 20000}, ActorAdmin, StatusQuoted},
		{"customer accepts a quoted quote", StatusQuoted, Accept{}, ActorCustomer, StatusAccepted},
		{"customer declines a pending quote", StatusPending, Decline{}, ActorCustomer, StatusDeclined},
		{"customer declines a quoted quote", StatusQuoted, Decline{}, ActorCustomer, StatusDeclined},
		{"customer declines an accepted quote", StatusAccepted, Decline{}, ActorCustomer, StatusDeclined},
		{"counter-offer keeps status quoted", StatusQuoted, CounterOffer{ProposedTotalCents: 15000}, ActorCustomer, StatusQuoted},
		{"payment success from accepted", StatusAccepted, PaymentSuccess{ExternalRef: "pi_1"}, ActorSystem, StatusPaid},
		{"payment success fallback from quoted", StatusQuoted, PaymentSuccess{ExternalRef: "pi_2"}, ActorSystem, StatusPaid},
		{"payment redelivery on paid quote is a no-op", StatusPaid, PaymentSuccess{ExternalRef: "pi_1"}, ActorSystem, StatusPaid},
		{"admin schedules a paid quote", StatusPaid, Schedule{}, ActorAdmin, StatusScheduled},
		{"admin re-schedules", StatusScheduled, Schedule{}, ActorAdmin, StatusScheduled},
		{"admin completes a scheduled quote", StatusScheduled, Complete{}, ActorAdmin, StatusCompleted},
		{"cleaner completes a scheduled quote", StatusScheduled, Complete{}, ActorCleaner, StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.current, tt.cmd, tt.actor)
			if err != nil {
				t.Fatalf("Apply(%s, %s) returned error: %v", tt.current, tt.cmd.Event(), err)
			}
			if got != tt.want {
				t.Fatalf("Apply(%s, %s) = %s, want %s", tt.current, tt.cmd.Event(), got, tt.want)
			}
		})
	}
}

func TestApplyRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		cmd     Transition
		actor   Actor
	}{
		{"accept on a pending quote", StatusPending, Accept{}, ActorCustomer},
		{"accept after decline", StatusDeclined, Accept{}, ActorCustomer},
		{"decline a paid quote", StatusPaid, Decline{}, ActorCustomer},
		{"counter-offer before pricing", StatusPending, CounterOffer{}, ActorCustomer},
		{"counter-offer after acceptance", StatusAccepted, CounterOffer{}, ActorCustomer},
		{"price a declined quote", StatusDeclined, SetPrice{}, ActorAdmin},
		{"price a paid quote", StatusPaid, SetPrice{}, ActorAdmin},
		{"schedule before payment", StatusAccepted, Schedule{}, ActorAdmin},
		{"complete before scheduling", StatusPaid, Complete{}, ActorAdmin},
		{"complete a completed quote", StatusCompleted, Complete{}, ActorAdmin},
		{"payment success on a declined quote", StatusDeclined, PaymentSuccess{}, ActorSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.current, tt.cmd, tt.actor)
			if err == nil {
				t.Fatalf("Apply(%s, %s) succeeded, want invalid transition error", tt.current, tt.cmd.Event())
			}
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Kind != apperr.KindInvalidTransition {
				t.Fatalf("Apply(%s, %s) error kind = %v, want KindInvalidTransition", tt.current, tt.cmd.Event(), err)
			}
		})
	}
}

func TestApplyEnforcesActor(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		cmd     Transition
		actor   Actor
	}{
		{"customer cannot price", StatusPending, SetPrice{}, ActorCustomer},
		{"admin cannot accept for the customer", StatusQuoted, Accept{}, ActorAdmin},
		{"cleaner cannot decline", StatusQuoted, Decline{}, ActorCleaner},
		{"customer cannot report payment", StatusAccepted, PaymentSuccess{}, ActorCustomer},
		{"cleaner cannot schedule", StatusPaid, Schedule{}, ActorCleaner},
		{"customer cannot complete", StatusScheduled, Complete{}, ActorCustomer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.current, tt.cmd, tt.actor)
			if err == nil {
				t.Fatalf("Apply(%s, %s, %s) succeeded, want forbidden error", tt.current, tt.cmd.Event(), tt.actor)
			}
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Kind != apperr.KindForbidden {
				t.Fatalf("Apply error kind = %v, want KindForbidden", err)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusDeclined.Terminal() || !StatusCompleted.Terminal() {
		t.Fatal("declined and completed must be terminal")
	}
	for _, s := range []Status{StatusPending, StatusQuoted, StatusAccepted, StatusPaid, StatusScheduled} {
		if s.Terminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}
