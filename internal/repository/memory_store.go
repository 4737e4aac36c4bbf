package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/eventix/internal/domain"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the volatile fallback registry. It honours the same contract
// as the durable adapters and lives for the process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	tickets map[string]domain.Ticket
	order   []string
	history map[string][]domain.ResaleRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]domain.User),
		tickets: make(map[string]domain.Ticket),
		history: make(map[string][]domain.ResaleRecord),
	}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	key := emailKey(user.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return ErrDuplicateEmail
	}
	s.users[key] = *user
	return nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[emailKey(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[ticket.Mint]; exists {
		return ErrDuplicateMint
	}
	s.tickets[ticket.Mint] = *ticket
	s.order = append(s.order, ticket.Mint)
	return nil
}

func (s *MemoryStore) FindTicket(_ context.Context, mint string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

func (s *MemoryStore) ListTicketsByOwner(_ context.Context, wallet string) ([]domain.Ticket, error) {
	return s.filter(func(t domain.Ticket) bool { return t.Owner == wallet }), nil
}

func (s *MemoryStore) ListMarketplaceTickets(context.Context) ([]domain.Ticket, error) {
	return s.filter(func(t domain.Ticket) bool { return t.Listed }), nil
}

func (s *MemoryStore) UpdateTicketListing(_ context.Context, mint string, price decimal.Decimal, listed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[mint]
	if !ok {
		return nil
	}
	ticket.Price = price
	ticket.Listed = listed
	s.tickets[mint] = ticket
	return nil
}

func (s *MemoryStore) UpdateTicketOwner(_ context.Context, mint, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[mint]
	if !ok {
		return nil
	}
	ticket.Owner = owner
	ticket.Listed = false
	s.tickets[mint] = ticket
	return nil
}

func (s *MemoryStore) AppendResaleHistory(_ context.Context, record *domain.ResaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[record.TicketMint] = append(s.history[record.TicketMint], *record)
	return nil
}

func (s *MemoryStore) CountResaleHistory(_ context.Context, mint string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history[mint]), nil
}

func (s *MemoryStore) ListResaleHistory(_ context.Context, mint string) ([]domain.ResaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.history[mint]
	out := make([]domain.ResaleRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *MemoryStore) filter(keep func(domain.Ticket) bool) []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.Ticket{}
	for _, mint := range s.order {
		if ticket := s.tickets[mint]; keep(ticket) {
			result = append(result, ticket)
		}
	}
	return result
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
