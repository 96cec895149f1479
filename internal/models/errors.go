package models

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrSoldOut             = errors.New("event is sold out")
	ErrNotPurchasable      = errors.New("event is not open for sale")
	ErrConflict            = errors.New("storage conflict, retry")
	ErrDuplicate           = errors.New("duplicate key")
	ErrTokenMismatch       = errors.New("reservation token belongs to another purchase")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationReleased = errors.New("reservation was released")
	ErrReservationIssued   = errors.New("reservation already issued")
	ErrCapacityBelowSold   = errors.New("total tickets cannot drop below tickets sold")
	ErrInvalidEvent        = errors.New("invalid event")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketNotOwned      = errors.New("ticket belongs to another buyer")
	ErrTicketCancelled     = errors.New("ticket already cancelled")
	ErrLedgerInconsistent  = errors.New("ledger inconsistent: no sold unit to release")
	ErrUnauthenticated     = errors.New("caller identity missing")
	ErrIssuance            = errors.New("ticket issuance failed")
)
