package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/Eursukkul/ticketing-service/internal/repository"
)

// TicketIssuer turns granted reservations into tickets and serves ticket reads.
type TicketIssuer interface {
	// Issue returns the ticket for the reservation; created is false when it
	// had been issued before.
	Issue(ctx context.Context, eventID, buyerID, token string) (ticket *models.Ticket, created bool, err error)
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Ticket, error)
	ListByEvent(ctx context.Context, eventID string, status *models.TicketStatus) ([]models.Ticket, error)
	Cancel(ctx context.Context, ticketID, callerID string) (*models.Ticket, error)
}

type ticketIssuer struct {
	tickets repository.TicketRepository
	ledger  repository.LedgerRepository
}

func NewTicketIssuer(tickets repository.TicketRepository, ledger repository.LedgerRepository) TicketIssuer {
	return &ticketIssuer{tickets: tickets, ledger: ledger}
}

func (s *ticketIssuer) Issue(ctx context.Context, eventID, buyerID, token string) (*models.Ticket, bool, error) {
	ticket, created, err := s.tickets.Issue(ctx, models.IssueRequest{
		Token:            token,
		EventID:          eventID,
		BuyerID:          buyerID,
		TicketID:         uuid.NewString(),
		QRCodeIdentifier: "TKT-" + shortuuid.New(),
	})
	if err != nil {
		if errors.Is(err, models.ErrReservationReleased) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("%w: %w", models.ErrIssuance, err)
	}
	return ticket, created, nil
}

func (s *ticketIssuer) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.tickets.FindByID(ctx, id)
}

func (s *ticketIssuer) ListByBuyer(ctx context.Context, buyerID string) ([]models.Ticket, error) {
	return s.tickets.FindByBuyer(ctx, buyerID)
}

func (s *ticketIssuer) ListByEvent(ctx context.Context, eventID string, status *models.TicketStatus) ([]models.Ticket, error) {
	return s.tickets.FindByEventID(ctx, eventID, status)
}

// Cancel flips an active ticket to cancelled and returns its unit of capacity.
func (s *ticketIssuer) Cancel(ctx context.Context, ticketID, callerID string) (*models.Ticket, error) {
	if callerID == "" {
		return nil, models.ErrUnauthenticated
	}
	return s.ledger.CancelTicket(ctx, ticketID, callerID)
}
