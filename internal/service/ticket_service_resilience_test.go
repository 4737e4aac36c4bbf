package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/domain"
	"github.com/spec-kit/eventix/internal/ledger"
	"github.com/spec-kit/eventix/internal/lock"
	"github.com/spec-kit/eventix/internal/repository"
	apperrors "github.com/spec-kit/eventix/pkg/util/errorutil"
)

// ctxBoundStore fails writes once their context is done, like a database
// driver would.
type ctxBoundStore struct {
	*repository.MemoryStore
}

func (s ctxBoundStore) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.CreateTicket(ctx, t)
}

func (s ctxBoundStore) UpdateTicketListing(ctx context.Context, mint string, price decimal.Decimal, listed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.UpdateTicketListing(ctx, mint, price, listed)
}

func (s ctxBoundStore) UpdateTicketOwner(ctx context.Context, mint, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.UpdateTicketOwner(ctx, mint, owner)
}

func (s ctxBoundStore) AppendResaleHistory(ctx context.Context, r *domain.ResaleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.AppendResaleHistory(ctx, r)
}

// lateGateway commits on the ledger and then ends the caller's context, the
// way a request deadline firing right after the ledger answers would.
type lateGateway struct {
	ledger.Gateway
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (g *lateGateway) expire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
}

func (g *lateGateway) withCancel(cancel context.CancelFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancel = cancel
}

func (g *lateGateway) Mint(ctx context.Context, req ledger.MintRequest) (ledger.MintReceipt, error) {
	receipt, err := g.Gateway.Mint(ctx, req)
	g.expire()
	return receipt, err
}

func (g *lateGateway) List(ctx context.Context, mint string, price decimal.Decimal) (ledger.Receipt, error) {
	receipt, err := g.Gateway.List(ctx, mint, price)
	g.expire()
	return receipt, err
}

func (g *lateGateway) Transfer(ctx context.Context, mint, from, to string, price decimal.Decimal) (ledger.Receipt, error) {
	receipt, err := g.Gateway.Transfer(ctx, mint, from, to, price)
	g.expire()
	return receipt, err
}

func TestLedgerCommitSurvivesCallerDeadline(t *testing.T) {
	sim := ledger.NewSimulator(nil, nil)
	gateway := &lateGateway{Gateway: sim}
	registry := repository.NewRegistry(ctxBoundStore{repository.NewMemoryStore()}, nil, zap.NewNop(), nil)
	svc := NewTicketService(TicketDependencies{Registry: registry, Ledger: gateway, Catalog: testCatalog()})
	bg := context.Background()

	ctx, cancel := context.WithCancel(bg)
	gateway.withCancel(cancel)
	bought, err := svc.Purchase(ctx, "ga", "alice")
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	mint := bought.MintAddress

	stored, err := registry.FindTicket(bg, mint)
	require.NoError(t, err)
	require.Equal(t, "alice", stored.Owner)

	ctx, cancel = context.WithCancel(bg)
	gateway.withCancel(cancel)
	_, err = svc.ListForResale(ctx, mint, dec("0.12"), "alice")
	require.NoError(t, err)

	ctx, cancel = context.WithCancel(bg)
	gateway.withCancel(cancel)
	sold, err := svc.BuyFromMarketplace(ctx, mint, "bob")
	require.NoError(t, err)
	require.Equal(t, 1, sold.ResaleNumber)

	count, err := registry.CountResaleHistory(bg, mint)
	require.NoError(t, err)
	require.Equal(t, sim.Sales(mint), count)
	stored, err = registry.FindTicket(bg, mint)
	require.NoError(t, err)
	require.Equal(t, "bob", stored.Owner)
	require.False(t, stored.Listed)
	require.False(t, registry.Degraded())
}

func TestRedisLockOutageDoesNotBlockLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	sim := ledger.NewSimulator(nil, nil)
	registry := repository.NewRegistry(repository.NewMemoryStore(), nil, zap.NewNop(), nil)
	svc := NewTicketService(TicketDependencies{
		Registry: registry,
		Ledger:   sim,
		Catalog:  testCatalog(),
		Locker:   lock.WithLocalFallback(lock.NewRedisMintLocker(client, "test", time.Second), nil),
	})
	ctx := context.Background()

	bought, err := svc.Purchase(ctx, "ga", "alice")
	require.NoError(t, err)
	mr.Close()

	_, err = svc.ListForResale(ctx, bought.MintAddress, dec("0.12"), "alice")
	require.NoError(t, err)
	_, err = svc.BuyFromMarketplace(ctx, bought.MintAddress, "bob")
	require.NoError(t, err)
	owner, _ := sim.Owner(bought.MintAddress)
	require.Equal(t, "bob", owner)
}

func newConcurrentService(t *testing.T) (*TicketService, *ledger.Simulator, *repository.Registry) {
	t.Helper()
	sim := ledger.NewSimulator(nil, nil)
	registry := repository.NewRegistry(repository.NewMemoryStore(), nil, zap.NewNop(), nil)
	svc := NewTicketService(TicketDependencies{Registry: registry, Ledger: sim, Catalog: testCatalog()})
	return svc, sim, registry
}

func TestConcurrentBuyersTransferOnce(t *testing.T) {
	svc, sim, registry := newConcurrentService(t)
	ctx := context.Background()

	bought, err := svc.Purchase(ctx, "ga", "alice")
	require.NoError(t, err)
	mint := bought.MintAddress
	_, err = svc.ListForResale(ctx, mint, dec("0.12"), "alice")
	require.NoError(t, err)

	const buyers = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(buyer string) {
			defer wg.Done()
			_, err := svc.BuyFromMarketplace(ctx, mint, buyer)
			if err == nil {
				wins.Add(1)
				return
			}
			assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), err.Error())
		}(fmt.Sprintf("buyer-%d", i))
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	count, err := registry.CountResaleHistory(ctx, mint)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, sim.Sales(mint), count)

	ticket, err := registry.FindTicket(ctx, mint)
	require.NoError(t, err)
	require.False(t, ticket.Listed)
	ledgerOwner, _ := sim.Owner(mint)
	require.Equal(t, ledgerOwner, ticket.Owner)
	require.NotEqual(t, "alice", ticket.Owner)
}

func TestConcurrentResalesNeverPassCeiling(t *testing.T) {
	svc, sim, registry := newConcurrentService(t)
	ctx := context.Background()

	bought, err := svc.Purchase(ctx, "ga", "alice")
	require.NoError(t, err)
	mint := bought.MintAddress
	owner := "alice"

	for round := 0; round < domain.MaxResales+2; round++ {
		_, err := svc.ListForResale(ctx, mint, dec("0.12"), owner)
		if round >= domain.MaxResales {
			requireCode(t, err, apperrors.CodeResaleLimitExceeded)
			continue
		}
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 6; i++ {
			wg.Add(1)
			go func(buyer string) {
				defer wg.Done()
				_, _ = svc.BuyFromMarketplace(ctx, mint, buyer)
			}(fmt.Sprintf("r%d-buyer-%d", round, i))
		}
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(seller string) {
				defer wg.Done()
				_, _ = svc.ListForResale(ctx, mint, dec("0.11"), seller)
			}(owner)
		}
		wg.Wait()

		ticket, err := registry.FindTicket(ctx, mint)
		require.NoError(t, err)
		require.NotEqual(t, owner, ticket.Owner)
		owner = ticket.Owner

		count, err := registry.CountResaleHistory(ctx, mint)
		require.NoError(t, err)
		require.Equal(t, round+1, count)
		require.Equal(t, sim.Sales(mint), count)
	}

	count, err := registry.CountResaleHistory(ctx, mint)
	require.NoError(t, err)
	require.Equal(t, domain.MaxResales, count)
	ledgerOwner, _ := sim.Owner(mint)
	require.Equal(t, ledgerOwner, owner)
}
