package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/domain"
	"github.com/spec-kit/eventix/internal/events"
	"github.com/spec-kit/eventix/internal/ledger"
	"github.com/spec-kit/eventix/internal/lock"
	"github.com/spec-kit/eventix/internal/repository"
	"github.com/spec-kit/eventix/internal/resale"
	apperrors "github.com/spec-kit/eventix/pkg/util/errorutil"
)

// TicketService drives the ticket lifecycle: purchase, listing and
// marketplace transfer. Each step validates against the registry, executes
// on the ledger and only then persists, so a failed ledger call never leaves
// a partial registry write behind.
//
// Listing and marketplace purchase of the same mint are serialised through
// the MintLocker. Registry-side rule checks are a fast path only; the ledger
// re-validates every listing and transfer and its decision is final.
type TicketService struct {
	registry   *repository.Registry
	ledger     ledger.Gateway
	catalog    *Catalog
	locks      lock.MintLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	persistTTL time.Duration
	now        func() time.Time
}

// defaultPersistTimeout bounds the registry writes that follow a successful
// ledger call.
const defaultPersistTimeout = 30 * time.Second

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Registry   *repository.Registry
	Ledger     ledger.Gateway
	Catalog    *Catalog
	Locker     lock.MintLocker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// PersistTimeout bounds registry writes after the ledger has committed.
	PersistTimeout time.Duration
}

// PurchaseResult is returned by Purchase.
type PurchaseResult struct {
	MintAddress string
	Proof       string
	Ticket      domain.Ticket
}

// ListingResult is returned by ListForResale.
type ListingResult struct {
	Proof           string
	Ticket          domain.Ticket
	MaxAllowedPrice decimal.Decimal
}

// TransferResult is returned by BuyFromMarketplace. Ticket is the listing as
// it was bought; Owner on it is the seller.
type TransferResult struct {
	Proof        string
	Ticket       domain.Ticket
	ResaleNumber int
}

// ResaleHistoryView describes a ticket's resale standing.
type ResaleHistoryView struct {
	Ticket          domain.Ticket
	Records         []domain.ResaleRecord
	ResaleCount     int
	MaxResales      int
	CanResale       bool
	MaxAllowedPrice decimal.Decimal
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalMintLocker()
	}
	persistTTL := deps.PersistTimeout
	if persistTTL <= 0 {
		persistTTL = defaultPersistTimeout
	}
	return &TicketService{
		registry:   deps.Registry,
		ledger:     deps.Ledger,
		catalog:    catalog,
		locks:      locker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		persistTTL: persistTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AvailableTickets returns the catalog.
func (s *TicketService) AvailableTickets() []domain.CatalogItem {
	return s.catalog.Items()
}

// Purchase mints a new ticket of ticketType for wallet. Nothing is written to
// the registry unless the mint succeeds.
func (s *TicketService) Purchase(ctx context.Context, ticketType, wallet string) (*PurchaseResult, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, apperrors.NewValidationError("Wallet address required", nil)
	}
	item, ok := s.catalog.Lookup(ticketType)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid ticket type", map[string]any{"ticketType": ticketType})
	}

	receipt, err := s.ledger.Mint(ctx, ledger.MintRequest{Item: item, Owner: wallet})
	if err != nil {
		return nil, ledgerError(err)
	}

	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()
	ticket, err := s.registry.CreateTicket(persistCtx, domain.Ticket{
		Mint:          receipt.MintAddress,
		Name:          item.Name,
		Description:   item.Description,
		EventDate:     item.EventDate,
		Price:         item.Price,
		OriginalPrice: item.Price,
		Image:         item.Image,
		Listed:        false,
		Owner:         wallet,
		CreatedAt:     s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateMint) {
			return nil, apperrors.NewDuplicateMint(receipt.MintAddress)
		}
		s.logger.Error("minted ticket could not be registered",
			zap.String("mint", receipt.MintAddress), zap.String("owner", wallet), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketPurchased,
		Mint:   ticket.Mint,
		Wallet: wallet,
		Payload: events.TicketPurchasedPayload{
			TicketType: item.ID,
			Price:      item.Price,
			Proof:      receipt.Proof,
		},
	})
	return &PurchaseResult{MintAddress: ticket.Mint, Proof: receipt.Proof, Ticket: *ticket}, nil
}

// ListForResale lists a ticket owned by wallet on the marketplace at price.
// Rule violations are reported without contacting the ledger.
func (s *TicketService) ListForResale(ctx context.Context, mint string, price decimal.Decimal, wallet string) (*ListingResult, error) {
	mint = strings.TrimSpace(mint)
	wallet = strings.TrimSpace(wallet)
	if mint == "" || wallet == "" {
		return nil, apperrors.NewValidationError("ticketId and walletAddress are required", nil)
	}
	if !price.IsPositive() {
		return nil, apperrors.NewValidationError("Price must be greater than zero", nil)
	}

	unlock, err := s.acquire(ctx, mint)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ticket, err := s.registry.FindTicket(ctx, mint)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}
	if ticket == nil || !ticket.OwnedBy(wallet) {
		return nil, apperrors.NewNotFound("Ticket not found or not owned by you", map[string]any{"ticketId": mint})
	}

	count, err := s.registry.CountResaleHistory(ctx, mint)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	decision := resale.Evaluate(*ticket, price, count)
	if err := denial(decision); err != nil {
		return nil, err
	}

	receipt, err := s.ledger.List(ctx, mint, price)
	if err != nil {
		return nil, ledgerError(err)
	}
	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()
	if err := s.registry.UpdateTicketListing(persistCtx, mint, price, true); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	ticket.Price = price
	ticket.Listed = true
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketListed,
		Mint:   mint,
		Wallet: wallet,
		Payload: events.TicketListedPayload{
			Price:           price,
			MaxAllowedPrice: decision.MaxPrice,
			ResaleCount:     count,
			Proof:           receipt.Proof,
		},
	})
	return &ListingResult{Proof: receipt.Proof, Ticket: *ticket, MaxAllowedPrice: decision.MaxPrice}, nil
}

// BuyFromMarketplace transfers a listed ticket to buyer at its listed price.
// The resale record is appended before the owner changes so a crash between
// the two writes can only overcount resales; ReconcileOwnership finishes such
// transfers.
func (s *TicketService) BuyFromMarketplace(ctx context.Context, mint, buyer string) (*TransferResult, error) {
	mint = strings.TrimSpace(mint)
	buyer = strings.TrimSpace(buyer)
	if mint == "" || buyer == "" {
		return nil, apperrors.NewValidationError("ticketId and buyerWallet are required", nil)
	}

	unlock, err := s.acquire(ctx, mint)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ticket, err := s.registry.FindTicket(ctx, mint)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}
	if ticket == nil || !ticket.Listed {
		return nil, apperrors.NewNotFound("Ticket not available", map[string]any{"ticketId": mint})
	}
	if ticket.OwnedBy(buyer) {
		return nil, apperrors.NewValidationError("You already own this ticket", nil)
	}

	count, err := s.registry.CountResaleHistory(ctx, mint)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !resale.CanResale(count) {
		return nil, apperrors.NewResaleLimitExceeded(domain.MaxResales, domain.MaxAllowedPrice(ticket.OriginalPrice))
	}

	seller := ticket.Owner
	receipt, err := s.ledger.Transfer(ctx, mint, seller, buyer, ticket.Price)
	if err != nil {
		return nil, ledgerError(err)
	}

	persistCtx, cancel := s.persistContext(ctx)
	defer cancel()
	resaleNumber := count + 1
	if err := s.registry.AppendResaleHistory(persistCtx, domain.ResaleRecord{
		TicketMint:   mint,
		FromWallet:   seller,
		ToWallet:     buyer,
		Price:        ticket.Price,
		ResaleNumber: resaleNumber,
		CreatedAt:    s.now(),
	}); err != nil {
		s.logger.Error("ledger transfer succeeded but resale history was not recorded",
			zap.String("mint", mint), zap.String("proof", receipt.Proof), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.registry.UpdateTicketOwner(persistCtx, mint, buyer); err != nil {
		s.logger.Error("ownership update pending reconciliation",
			zap.String("mint", mint), zap.String("buyer", buyer), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketResold,
		Mint:   mint,
		Wallet: buyer,
		Payload: events.TicketResoldPayload{
			FromWallet:   seller,
			ToWallet:     buyer,
			Price:        ticket.Price,
			ResaleNumber: resaleNumber,
			Proof:        receipt.Proof,
		},
	})
	return &TransferResult{Proof: receipt.Proof, Ticket: *ticket, ResaleNumber: resaleNumber}, nil
}

// MarketplaceView returns every listed ticket with its resale count read at
// call time.
func (s *TicketService) MarketplaceView(ctx context.Context) ([]domain.MarketplaceListing, error) {
	tickets, err := s.registry.ListMarketplaceTickets(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	listings := make([]domain.MarketplaceListing, 0, len(tickets))
	for _, ticket := range tickets {
		count, err := s.registry.CountResaleHistory(ctx, ticket.Mint)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		listings = append(listings, domain.MarketplaceListing{
			Ticket:      ticket,
			ResaleCount: count,
			CanResale:   resale.CanResale(count),
		})
	}
	return listings, nil
}

// MyTickets returns the tickets owned by wallet.
func (s *TicketService) MyTickets(ctx context.Context, wallet string) ([]domain.Ticket, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, apperrors.NewValidationError("Wallet address required", nil)
	}
	tickets, err := s.registry.ListTicketsByOwner(ctx, wallet)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// ResaleHistory returns the resale records and standing of mint.
func (s *TicketService) ResaleHistory(ctx context.Context, mint string) (*ResaleHistoryView, error) {
	ticket, err := s.registry.FindTicket(ctx, strings.TrimSpace(mint))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("Ticket not found", map[string]any{"ticketId": mint})
		}
		return nil, apperrors.NewInternalError(err)
	}
	records, err := s.registry.ListResaleHistory(ctx, ticket.Mint)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &ResaleHistoryView{
		Ticket:          *ticket,
		Records:         records,
		ResaleCount:     len(records),
		MaxResales:      domain.MaxResales,
		CanResale:       resale.CanResale(len(records)),
		MaxAllowedPrice: domain.MaxAllowedPrice(ticket.OriginalPrice),
	}, nil
}

// ReconcileOwnership completes transfers interrupted between the history
// append and the owner update: a listed ticket whose latest resale record
// moves it away from its current owner is handed to that record's buyer.
// It returns the number of tickets repaired.
func (s *TicketService) ReconcileOwnership(ctx context.Context) (int, error) {
	tickets, err := s.registry.ListMarketplaceTickets(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, candidate := range tickets {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		fixed, err := s.reconcileTicket(ctx, candidate.Mint)
		if err != nil {
			s.logger.Warn("ownership reconciliation failed", zap.String("mint", candidate.Mint), zap.Error(err))
			continue
		}
		if fixed {
			repaired++
		}
	}
	return repaired, nil
}

func (s *TicketService) reconcileTicket(ctx context.Context, mint string) (bool, error) {
	unlock, err := s.acquire(ctx, mint)
	if err != nil {
		return false, err
	}
	defer unlock()

	ticket, err := s.registry.FindTicket(ctx, mint)
	if err != nil {
		return false, err
	}
	if !ticket.Listed {
		return false, nil
	}
	records, err := s.registry.ListResaleHistory(ctx, mint)
	if err != nil || len(records) == 0 {
		return false, err
	}
	last := records[len(records)-1]
	if last.FromWallet != ticket.Owner || last.ToWallet == ticket.Owner {
		return false, nil
	}
	if err := s.registry.UpdateTicketOwner(ctx, mint, last.ToWallet); err != nil {
		return false, err
	}

	s.logger.Warn("completed interrupted transfer",
		zap.String("mint", mint), zap.String("from", last.FromWallet), zap.String("to", last.ToWallet))
	s.publishEvent(ctx, events.Event{
		Type:   events.EventOwnershipRepair,
		Mint:   mint,
		Wallet: last.ToWallet,
		Payload: events.OwnershipRepairPayload{
			PreviousOwner: last.FromWallet,
			Owner:         last.ToWallet,
			ResaleNumber:  last.ResaleNumber,
		},
	})
	return true, nil
}

func (s *TicketService) acquire(ctx context.Context, mint string) (func(), error) {
	handle, err := s.locks.Acquire(ctx, mint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewConflict("ticket is busy, retry shortly", map[string]any{"ticketId": mint})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("acquire mint lock: %w", err))
	}
	return func() {
		if err := handle.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release mint lock", zap.String("mint", mint), zap.Error(err))
		}
	}, nil
}

// persistContext detaches registry writes from the caller once the ledger
// has committed, so a request deadline cannot drop the local record of a
// ledger-side change.
func (s *TicketService) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.persistTTL)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func denial(decision resale.Decision) error {
	switch decision.Reason {
	case resale.ReasonNone:
		return nil
	case resale.ReasonResaleLimitExceeded:
		return apperrors.NewResaleLimitExceeded(domain.MaxResales, decision.MaxPrice)
	case resale.ReasonMarkupExceeded:
		return apperrors.NewMarkupExceeded(domain.MaxMarkupPercent, decision.MaxPrice)
	default:
		return apperrors.NewValidationError(string(decision.Reason), nil)
	}
}

// ledgerError maps gateway failures onto the API taxonomy.
func ledgerError(err error) error {
	if rejected, ok := ledger.AsRejected(err); ok {
		return apperrors.NewLedgerRejected(string(rejected.Kind), rejected.Kind.Message())
	}
	if errors.Is(err, ledger.ErrMintFailed) {
		return apperrors.NewMintFailed(err)
	}
	return apperrors.NewLedgerUnavailable(err)
}
