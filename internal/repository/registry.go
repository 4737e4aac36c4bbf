package repository

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/domain"
	"github.com/spec-kit/eventix/internal/observability"
)

// Registry modes reported by Mode.
const (
	ModeDurable  = "durable"
	ModeDegraded = "degraded"
)

// DefaultOperationTimeout bounds each durable store call.
const DefaultOperationTimeout = 5 * time.Second

// Registry is the single storage entry point used by services. Calls go to the
// durable store until it fails once; from then on the registry is degraded for
// the rest of the process and every call is served by the fallback store.
//
// The two stores are never merged. State written to the durable store before a
// mid-session failover is not visible through the fallback, and vice versa.
type Registry struct {
	durable  Store
	fallback Store
	degraded atomic.Bool
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithOperationTimeout bounds every durable call. A durable call that runs
// out of this budget while the caller's context is still live counts as a
// backend failure. Non-positive values keep DefaultOperationTimeout.
func WithOperationTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRegistry builds a registry. A nil durable store starts degraded.
func NewRegistry(durable, fallback Store, logger *zap.Logger, metrics *observability.Metrics, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fallback == nil {
		fallback = NewMemoryStore()
	}
	r := &Registry{
		durable:  durable,
		fallback: fallback,
		timeout:  DefaultOperationTimeout,
		logger:   logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if durable == nil {
		r.degraded.Store(true)
	}
	return r
}

// CheckDurable pings the durable store once at startup and degrades on failure.
func (r *Registry) CheckDurable(ctx context.Context) error {
	if r.degraded.Load() {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.durable.Ping(checkCtx); err != nil {
		r.degrade("startup check", err)
		return err
	}
	r.logger.Info("registry using durable store")
	return nil
}

// Degraded reports whether calls are served by the fallback store.
func (r *Registry) Degraded() bool {
	return r.degraded.Load()
}

// Mode returns ModeDurable or ModeDegraded.
func (r *Registry) Mode() string {
	if r.Degraded() {
		return ModeDegraded
	}
	return ModeDurable
}

// CreateUser registers a user. Fails with ErrDuplicateEmail.
func (r *Registry) CreateUser(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        emailKey(email),
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	}
	_, err := call(ctx, r, "create_user", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByEmail returns ErrNotFound when no user has email.
func (r *Registry) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return call(ctx, r, "find_user_by_email", func(ctx context.Context, s Store) (*domain.User, error) {
		return s.FindUserByEmail(ctx, email)
	})
}

// CreateTicket persists a new ticket. Fails with ErrDuplicateMint.
func (r *Registry) CreateTicket(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.now()
	}
	_, err := call(ctx, r, "create_ticket", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.CreateTicket(ctx, &ticket)
	})
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindTicket returns ErrNotFound when mint is unknown.
func (r *Registry) FindTicket(ctx context.Context, mint string) (*domain.Ticket, error) {
	return call(ctx, r, "find_ticket", func(ctx context.Context, s Store) (*domain.Ticket, error) {
		return s.FindTicket(ctx, mint)
	})
}

func (r *Registry) ListTicketsByOwner(ctx context.Context, wallet string) ([]domain.Ticket, error) {
	return call(ctx, r, "list_tickets_by_owner", func(ctx context.Context, s Store) ([]domain.Ticket, error) {
		return s.ListTicketsByOwner(ctx, wallet)
	})
}

func (r *Registry) ListMarketplaceTickets(ctx context.Context) ([]domain.Ticket, error) {
	return call(ctx, r, "list_marketplace_tickets", func(ctx context.Context, s Store) ([]domain.Ticket, error) {
		return s.ListMarketplaceTickets(ctx)
	})
}

func (r *Registry) UpdateTicketListing(ctx context.Context, mint string, price decimal.Decimal, listed bool) error {
	_, err := call(ctx, r, "update_ticket_listing", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.UpdateTicketListing(ctx, mint, price, listed)
	})
	return err
}

func (r *Registry) UpdateTicketOwner(ctx context.Context, mint, owner string) error {
	_, err := call(ctx, r, "update_ticket_owner", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.UpdateTicketOwner(ctx, mint, owner)
	})
	return err
}

// AppendResaleHistory stores record, assigning an ID and timestamp when unset.
func (r *Registry) AppendResaleHistory(ctx context.Context, record domain.ResaleRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now()
	}
	_, err := call(ctx, r, "append_resale_history", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.AppendResaleHistory(ctx, &record)
	})
	return err
}

func (r *Registry) CountResaleHistory(ctx context.Context, mint string) (int, error) {
	return call(ctx, r, "count_resale_history", func(ctx context.Context, s Store) (int, error) {
		return s.CountResaleHistory(ctx, mint)
	})
}

func (r *Registry) ListResaleHistory(ctx context.Context, mint string) ([]domain.ResaleRecord, error) {
	return call(ctx, r, "list_resale_history", func(ctx context.Context, s Store) ([]domain.ResaleRecord, error) {
		return s.ListResaleHistory(ctx, mint)
	})
}

// call runs op against the durable store unless degraded. Each durable call
// gets its own deadline. Contract errors and errors caused by the caller's own
// context are returned as is; any other durable failure, including running
// out of the per-call deadline, degrades the registry and op is replayed on
// the fallback.
func call[T any](ctx context.Context, r *Registry, op string, fn func(context.Context, Store) (T, error)) (T, error) {
	if !r.degraded.Load() {
		opCtx, cancel := context.WithTimeout(ctx, r.timeout)
		val, err := fn(opCtx, r.durable)
		cancel()
		if err == nil || isContractError(err) || ctx.Err() != nil {
			return val, err
		}
		r.degrade(op, err)
		r.metrics.RecordFallback(op)
	}
	return fn(ctx, r.fallback)
}

func (r *Registry) degrade(op string, err error) {
	if r.degraded.CompareAndSwap(false, true) {
		r.logger.Warn("durable registry unavailable; serving from volatile fallback for the rest of the process",
			zap.String("op", op), zap.Error(err))
		return
	}
	r.logger.Error("durable registry call failed after degrade", zap.String("op", op), zap.Error(err))
}
