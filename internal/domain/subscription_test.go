package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	// Cross product of statuses and the cancel flag: cancelling appears
	// exactly for active + true, everything else passes through.
	tests := []struct {
		status string
		cancel bool
		want   string
	}{
		{StatusActive, true, StatusCancelling},
		{StatusActive, false, StatusActive},
		{StatusInactive, true, StatusInactive},
		{StatusInactive, false, StatusInactive},
		{StatusCanceled, true, StatusCanceled},
		{StatusCanceled, false, StatusCanceled},
		{StatusTrialing, true, StatusTrialing},
		{StatusPending, true, StatusPending},
		{"past_due", true, "past_due"},
	}

	for _, tt := range tests {
		got := DeriveStatus(tt.status, tt.cancel)
		assert.Equal(t, tt.want, got, "DeriveStatus(%q, %v)", tt.status, tt.cancel)
	}
}

func TestSubscriptionDerivedStatus(t *testing.T) {
	sub := Subscription{Status: StatusActive, CancelAtPeriodEnd: true}
	assert.Equal(t, StatusCancelling, sub.DerivedStatus())

	sub.CancelAtPeriodEnd = false
	assert.Equal(t, StatusActive, sub.DerivedStatus())
}

func TestNormalizePeriodEnd(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	nineties := time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)
	valid := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	zero := time.Time{}

	assert.Nil(t, NormalizePeriodEnd(nil))
	assert.Nil(t, NormalizePeriodEnd(&zero))
	assert.Nil(t, NormalizePeriodEnd(&epoch), "epoch-zero must never surface as a 1970 date")
	assert.Nil(t, NormalizePeriodEnd(&nineties), "pre-2000 timestamps are treated as unknown")

	got := NormalizePeriodEnd(&valid)
	if assert.NotNil(t, got) {
		assert.Equal(t, valid, *got)
	}
}

func TestHasLiveSubscriptionID(t *testing.T) {
	assert.True(t, HasLiveSubscriptionID("sub_1QxYz123"))
	assert.False(t, HasLiveSubscriptionID(""))
	assert.False(t, HasLiveSubscriptionID(ManualActivationID))
	assert.False(t, HasLiveSubscriptionID("cus_123"))
}

func TestIsMockCheckoutSession(t *testing.T) {
	assert.True(t, IsMockCheckoutSession(""))
	assert.True(t, IsMockCheckoutSession("cs_mock_abc"))
	assert.True(t, IsMockCheckoutSession("mock_session"))
	assert.False(t, IsMockCheckoutSession("cs_test_a1b2c3"))
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	end := now.Add(72 * time.Hour)
	sub := Subscription{CurrentPeriodEnd: &end}
	assert.Equal(t, 3, sub.DaysRemaining(now))

	// Partial days round up.
	end = now.Add(25 * time.Hour)
	assert.Equal(t, 1, sub.DaysRemaining(now))

	// Past or missing period end.
	end = now.Add(-time.Hour)
	assert.Equal(t, 0, sub.DaysRemaining(now))
	sub.CurrentPeriodEnd = nil
	assert.Equal(t, 0, sub.DaysRemaining(now))

	// Epoch garbage behaves as missing.
	epoch := time.Unix(0, 0)
	sub.CurrentPeriodEnd = &epoch
	assert.Equal(t, 0, sub.DaysRemaining(now))
}

func TestDefaultSubscription(t *testing.T) {
	def := DefaultSubscription()
	assert.Equal(t, StatusInactive, def.Status)
	assert.Equal(t, PlanFree, def.Plan)
	assert.False(t, def.IsAnnual)
	assert.Nil(t, def.CurrentPeriodEnd)
	assert.False(t, def.CancelAtPeriodEnd)
	assert.Equal(t, StatusInactive, def.DerivedStatus())
}
