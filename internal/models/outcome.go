package models

// DenyReason is the closed set of reasons a purchase can be refused with.
type DenyReason string

const (
	ReasonUnauthenticated   DenyReason = "unauthenticated"
	ReasonEventNotFound     DenyReason = "event_not_found"
	ReasonSoldOut           DenyReason = "sold_out"
	ReasonNotPurchasable    DenyReason = "event_not_purchasable"
	ReasonTransientConflict DenyReason = "transient_conflict"
)

// ReservationOutcome is what the inventory ledger answers for a reserve call.
// Replayed is set when the token already held a unit and nothing was consumed.
type ReservationOutcome struct {
	Granted     bool
	Replayed    bool
	Reservation *Reservation
	Reason      DenyReason
}

func Granted(r *Reservation, replayed bool) ReservationOutcome {
	return ReservationOutcome{Granted: true, Replayed: replayed, Reservation: r}
}

func Denied(reason DenyReason) ReservationOutcome {
	return ReservationOutcome{Reason: reason}
}
