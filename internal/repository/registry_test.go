package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/eventix/internal/domain"
	"github.com/spec-kit/eventix/internal/observability"
)

var errBackendDown = errors.New("connection refused")

// flakyStore delegates to a MemoryStore until broken is set.
type flakyStore struct {
	*MemoryStore
	broken atomic.Bool
	calls  atomic.Int64
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: NewMemoryStore()}
}

func (f *flakyStore) fail() error {
	f.calls.Add(1)
	if f.broken.Load() {
		return errBackendDown
	}
	return nil
}

func (f *flakyStore) Ping(ctx context.Context) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.MemoryStore.Ping(ctx)
}

func (f *flakyStore) CreateUser(ctx context.Context, u *domain.User) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.MemoryStore.CreateUser(ctx, u)
}

func (f *flakyStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.MemoryStore.FindUserByEmail(ctx, email)
}

func (f *flakyStore) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.MemoryStore.CreateTicket(ctx, t)
}

func (f *flakyStore) FindTicket(ctx context.Context, mint string) (*domain.Ticket, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.MemoryStore.FindTicket(ctx, mint)
}

func (f *flakyStore) ListTicketsByOwner(ctx context.Context, wallet string) ([]domain.Ticket, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListTicketsByOwner(ctx, wallet)
}

func (f *flakyStore) ListMarketplaceTickets(ctx context.Context) ([]domain.Ticket, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListMarketplaceTickets(ctx)
}

func (f *flakyStore) UpdateTicketListing(ctx context.Context, mint string, price decimal.Decimal, listed bool) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.MemoryStore.UpdateTicketListing(ctx, mint, price, listed)
}

func (f *flakyStore) UpdateTicketOwner(ctx context.Context, mint, owner string) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.MemoryStore.UpdateTicketOwner(ctx, mint, owner)
}

func (f *flakyStore) AppendResaleHistory(ctx context.Context, r *domain.ResaleRecord) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.MemoryStore.AppendResaleHistory(ctx, r)
}

func (f *flakyStore) CountResaleHistory(ctx context.Context, mint string) (int, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.MemoryStore.CountResaleHistory(ctx, mint)
}

func (f *flakyStore) ListResaleHistory(ctx context.Context, mint string) ([]domain.ResaleRecord, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.MemoryStore.ListResaleHistory(ctx, mint)
}

func TestRegistryUsesDurableStore(t *testing.T) {
	ctx := context.Background()
	durable := newFlakyStore()
	fallback := NewMemoryStore()
	reg := NewRegistry(durable, fallback, zap.NewNop(), nil)

	require.NoError(t, reg.CheckDurable(ctx))
	require.Equal(t, ModeDurable, reg.Mode())

	created, err := reg.CreateTicket(ctx, *testTicket("m1", "alice", 1))
	require.NoError(t, err)
	require.Equal(t, "m1", created.Mint)

	_, err = durable.MemoryStore.FindTicket(ctx, "m1")
	require.NoError(t, err)
	_, err = fallback.FindTicket(ctx, "m1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryStartupCheckFailureDegrades(t *testing.T) {
	durable := newFlakyStore()
	durable.broken.Store(true)
	reg := NewRegistry(durable, nil, zap.NewNop(), nil)

	require.ErrorIs(t, reg.CheckDurable(context.Background()), errBackendDown)
	require.True(t, reg.Degraded())
	require.Equal(t, ModeDegraded, reg.Mode())
}

func TestRegistryNilDurableStartsDegraded(t *testing.T) {
	reg := NewRegistry(nil, nil, nil, nil)
	require.True(t, reg.Degraded())
	require.NoError(t, reg.CheckDurable(context.Background()))

	user, err := reg.CreateUser(context.Background(), "Ada", "Ada@Example.com", "hash")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "ada@example.com", user.Email)
}

func TestRegistryFailoverIsSticky(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	metrics := observability.NewMetrics()
	durable := newFlakyStore()
	reg := NewRegistry(durable, NewMemoryStore(), zap.New(core), metrics)

	durable.broken.Store(true)
	created, err := reg.CreateTicket(ctx, *testTicket("m1", "alice", 1))
	require.NoError(t, err)
	require.Equal(t, "alice", created.Owner)
	require.True(t, reg.Degraded())
	require.Equal(t, 1, logs.FilterMessageSnippet("volatile fallback").Len())
	require.Equal(t, int64(1), metrics.Snapshot().Fallbacks["create_ticket"])

	durable.broken.Store(false)
	before := durable.calls.Load()
	got, err := reg.FindTicket(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Owner)
	require.Equal(t, before, durable.calls.Load(), "degraded registry must not return to the durable store")
	require.True(t, reg.Degraded())
}

func TestRegistryContractErrorsDoNotDegrade(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(newFlakyStore(), nil, zap.NewNop(), nil)

	_, err := reg.FindTicket(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = reg.CreateUser(ctx, "Ada", "ada@example.com", "h")
	require.NoError(t, err)
	_, err = reg.CreateUser(ctx, "Ada", "ADA@example.com", "h")
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = reg.CreateTicket(ctx, *testTicket("m1", "alice", 1))
	require.NoError(t, err)
	_, err = reg.CreateTicket(ctx, *testTicket("m1", "bob", 2))
	require.ErrorIs(t, err, ErrDuplicateMint)

	require.False(t, reg.Degraded())
}

// hangingStore never answers; every call waits for its context.
type hangingStore struct {
	*MemoryStore
}

func (h hangingStore) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (h hangingStore) FindTicket(ctx context.Context, _ string) (*domain.Ticket, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (h hangingStore) CreateTicket(ctx context.Context, _ *domain.Ticket) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRegistryHangingStoreDegradesOnOperationTimeout(t *testing.T) {
	reg := NewRegistry(hangingStore{NewMemoryStore()}, nil, zap.NewNop(), nil,
		WithOperationTimeout(20*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	_, err := reg.FindTicket(ctx, "m1")
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, reg.Degraded())
	require.Less(t, time.Since(start), time.Second)

	created, err := reg.CreateTicket(ctx, *testTicket("m1", "alice", 1))
	require.NoError(t, err)
	require.Equal(t, "alice", created.Owner)
}

func TestRegistryStartupCheckTimesOutOnHangingStore(t *testing.T) {
	reg := NewRegistry(hangingStore{NewMemoryStore()}, nil, zap.NewNop(), nil,
		WithOperationTimeout(20*time.Millisecond))

	require.ErrorIs(t, reg.CheckDurable(context.Background()), context.DeadlineExceeded)
	require.True(t, reg.Degraded())
}

func TestRegistryCallerDeadlineShorterThanBudgetDoesNotDegrade(t *testing.T) {
	reg := NewRegistry(hangingStore{NewMemoryStore()}, nil, zap.NewNop(), nil,
		WithOperationTimeout(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := reg.FindTicket(ctx, "m1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, reg.Degraded())
}

func TestRegistryCancelledContextDoesNotDegrade(t *testing.T) {
	durable := newFlakyStore()
	durable.broken.Store(true)
	reg := NewRegistry(durable, nil, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.FindTicket(ctx, "m1")
	require.Error(t, err)
	require.False(t, reg.Degraded())
}

// Durable store down at startup: the whole lifecycle still works from the
// fallback store and reads reflect writes made in the same process.
func TestRegistryDegradedLifecycle(t *testing.T) {
	ctx := context.Background()
	durable := newFlakyStore()
	durable.broken.Store(true)
	reg := NewRegistry(durable, nil, zap.NewNop(), nil)
	require.Error(t, reg.CheckDurable(ctx))

	_, err := reg.CreateTicket(ctx, *testTicket("m1", "alice", 1))
	require.NoError(t, err)
	require.NoError(t, reg.UpdateTicketListing(ctx, "m1", decimal.RequireFromString("0.12"), true))

	market, err := reg.ListMarketplaceTickets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, mints(market))

	require.NoError(t, reg.AppendResaleHistory(ctx, domain.ResaleRecord{
		TicketMint: "m1", FromWallet: "alice", ToWallet: "bob",
		Price: decimal.RequireFromString("0.12"), ResaleNumber: 1,
	}))
	require.NoError(t, reg.UpdateTicketOwner(ctx, "m1", "bob"))

	owned, err := reg.ListTicketsByOwner(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, mints(owned))

	history, err := reg.ListResaleHistory(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotEmpty(t, history[0].ID)
	require.False(t, history[0].CreatedAt.IsZero())

	count, err := reg.CountResaleHistory(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	market, err = reg.ListMarketplaceTickets(ctx)
	require.NoError(t, err)
	require.Empty(t, market)
}
