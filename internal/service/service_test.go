package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/domain"
	"github.com/spec-kit/eventix/internal/events"
	"github.com/spec-kit/eventix/internal/ledger"
	"github.com/spec-kit/eventix/internal/repository"
	apperrors "github.com/spec-kit/eventix/pkg/util/errorutil"
)

type harness struct {
	svc      *TicketService
	sim      *ledger.Simulator
	registry *repository.Registry
	events   []events.Event
}

func testCatalog() *Catalog {
	return NewCatalog([]domain.CatalogItem{
		{ID: "ga", Name: "General Admission", Description: "Arena", EventDate: "2025-03-01", Price: decimal.RequireFromString("0.10"), Seat: "GA-001"},
		{ID: "vip", Name: "VIP", Description: "Arena", EventDate: "2025-03-01", Price: decimal.RequireFromString("0.5"), Seat: "VIP-1"},
	})
}

func newHarness(t *testing.T, durable repository.Store) *harness {
	t.Helper()
	h := &harness{sim: ledger.NewSimulator(nil, nil)}
	h.registry = repository.NewRegistry(durable, repository.NewMemoryStore(), zap.NewNop(), nil)
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range []events.EventType{events.EventTicketPurchased, events.EventTicketListed, events.EventTicketResold, events.EventOwnershipRepair} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			h.events = append(h.events, e)
			return nil
		})
	}
	h.svc = NewTicketService(TicketDependencies{
		Registry:   h.registry,
		Ledger:     h.sim,
		Catalog:    testCatalog(),
		Dispatcher: dispatcher,
	})
	return h
}

func (h *harness) buy(t *testing.T, wallet string) domain.Ticket {
	t.Helper()
	res, err := h.svc.Purchase(context.Background(), "ga", wallet)
	require.NoError(t, err)
	return res.Ticket
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, code, de.Code, de.Message)
	return de
}
