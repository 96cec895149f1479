package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvent_Remaining(t *testing.T) {
	assert.Equal(t, 7, (&Event{TotalTickets: 10, TicketsSold: 3}).Remaining())
	assert.Equal(t, 0, (&Event{TotalTickets: 10, TicketsSold: 10}).Remaining())
	assert.Equal(t, 0, (&Event{TotalTickets: 0}).Remaining())
}

func TestEvent_Purchasable(t *testing.T) {
	now := time.Date(2027, 1, 10, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	cases := []struct {
		name  string
		event Event
		want  bool
	}{
		{"no window", Event{StartsAt: now.Add(24 * time.Hour)}, true},
		{"already started", Event{StartsAt: now}, false},
		{"inside window", Event{StartsAt: now.Add(24 * time.Hour), SalesStartAt: &before, SalesEndAt: &after}, true},
		{"before window", Event{StartsAt: now.Add(24 * time.Hour), SalesStartAt: &after}, false},
		{"after window", Event{StartsAt: now.Add(24 * time.Hour), SalesEndAt: &before}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.event.Purchasable(now))
		})
	}
}

func TestEvent_AvailabilitySoldOutNotPurchasable(t *testing.T) {
	now := time.Now()
	e := Event{ID: "e", StartsAt: now.Add(time.Hour), TotalTickets: 2, TicketsSold: 2}

	a := e.Availability(now)

	assert.Equal(t, 0, a.Remaining)
	assert.False(t, a.Purchasable)
}

func TestReservationState_HoldsCapacity(t *testing.T) {
	assert.True(t, ReservationReserved.HoldsCapacity())
	assert.True(t, ReservationIssued.HoldsCapacity())
	assert.True(t, ReservationStranded.HoldsCapacity())
	assert.False(t, ReservationReleased.HoldsCapacity())
}
