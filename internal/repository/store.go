package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/eventix/internal/domain"
)

var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail indicates a user with the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateMint indicates a ticket with the mint address already exists.
	ErrDuplicateMint = errors.New("mint already registered")
)

// Store is the backend-agnostic registry contract. Adapters return ErrNotFound,
// ErrDuplicateEmail or ErrDuplicateMint for contract outcomes; any other error
// means the backend itself is unavailable.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	FindTicket(ctx context.Context, mint string) (*domain.Ticket, error)
	ListTicketsByOwner(ctx context.Context, wallet string) ([]domain.Ticket, error)
	ListMarketplaceTickets(ctx context.Context) ([]domain.Ticket, error)
	// UpdateTicketListing is a no-op when mint is absent.
	UpdateTicketListing(ctx context.Context, mint string, price decimal.Decimal, listed bool) error
	// UpdateTicketOwner always clears the listed flag and is a no-op when mint is absent.
	UpdateTicketOwner(ctx context.Context, mint, owner string) error

	AppendResaleHistory(ctx context.Context, record *domain.ResaleRecord) error
	CountResaleHistory(ctx context.Context, mint string) (int, error)
	ListResaleHistory(ctx context.Context, mint string) ([]domain.ResaleRecord, error)
}

// isContractError reports errors that describe data, not backend health.
func isContractError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateMint)
}
