package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/eventix/internal/domain"
	"github.com/spec-kit/eventix/internal/observability"
)

var _ Gateway = (*Simulator)(nil)

type simTicket struct {
	owner    string
	original decimal.Decimal
	price    decimal.Decimal
	listed   bool
	sales    int
}

// Simulator is an in-process ledger. It keeps its own ticket state and
// enforces the same rules as the real ledger program: owner checks, the 25%
// markup ceiling over the original price and the resale ceiling.
type Simulator struct {
	mu      sync.Mutex
	tickets map[string]*simTicket
	faults  map[string][]error
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewSimulator returns an empty simulated ledger.
func NewSimulator(logger *zap.Logger, metrics *observability.Metrics) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		tickets: make(map[string]*simTicket),
		faults:  make(map[string][]error),
		logger:  logger,
		metrics: metrics,
	}
}

func (s *Simulator) Mode() string {
	return ModeSimulated
}

// FailNext makes the next call of op ("mint", "list" or "transfer") return err.
func (s *Simulator) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], err)
}

// Owner returns the ledger-side owner of mint.
func (s *Simulator) Owner(mint string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[mint]
	if !ok {
		return "", false
	}
	return t.owner, true
}

// Sales returns the ledger-side resale count of mint.
func (s *Simulator) Sales(mint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[mint]; ok {
		return t.sales
	}
	return 0
}

func (s *Simulator) Mint(ctx context.Context, req MintRequest) (MintReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "mint"); err != nil {
		return MintReceipt{}, fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	if !req.Item.Price.IsPositive() {
		s.metrics.RecordLedgerCall("mint", "error")
		return MintReceipt{}, fmt.Errorf("%w: price must be positive", ErrMintFailed)
	}

	mint := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.tickets[mint] = &simTicket{
		owner:    req.Owner,
		original: req.Item.Price,
		price:    req.Item.Price,
	}
	s.metrics.RecordLedgerCall("mint", "ok")
	s.logger.Debug("simulated mint", zap.String("mint", mint), zap.String("owner", req.Owner))
	return MintReceipt{MintAddress: mint, Proof: proof()}, nil
}

func (s *Simulator) List(ctx context.Context, mint string, price decimal.Decimal) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "list"); err != nil {
		return Receipt{}, unavailable(err)
	}
	t, ok := s.tickets[mint]
	if !ok {
		s.metrics.RecordLedgerCall("list", "error")
		return Receipt{}, fmt.Errorf("%w: ticket %s not found", ErrUnavailable, mint)
	}
	if t.sales >= domain.MaxResales {
		return Receipt{}, s.reject("list", KindAlreadyMaxResales)
	}
	if price.GreaterThan(domain.MaxAllowedPrice(t.original)) {
		return Receipt{}, s.reject("list", KindExceedsMarkup)
	}
	t.price = price
	t.listed = true
	s.metrics.RecordLedgerCall("list", "ok")
	return Receipt{Proof: proof()}, nil
}

func (s *Simulator) Transfer(ctx context.Context, mint, from, to string, price decimal.Decimal) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(ctx, "transfer"); err != nil {
		return Receipt{}, unavailable(err)
	}
	t, ok := s.tickets[mint]
	if !ok {
		s.metrics.RecordLedgerCall("transfer", "error")
		return Receipt{}, fmt.Errorf("%w: ticket %s not found", ErrUnavailable, mint)
	}
	switch {
	case t.owner != from:
		return Receipt{}, s.reject("transfer", KindNotOwner)
	case !t.listed:
		return Receipt{}, s.reject("transfer", KindResaleNotAllowed)
	case t.sales >= domain.MaxResales:
		return Receipt{}, s.reject("transfer", KindAlreadyMaxResales)
	case price.GreaterThan(domain.MaxAllowedPrice(t.original)):
		return Receipt{}, s.reject("transfer", KindExceedsMarkup)
	}
	t.owner = to
	t.price = price
	t.listed = false
	t.sales++
	s.metrics.RecordLedgerCall("transfer", "ok")
	return Receipt{Proof: proof()}, nil
}

// fault pops an injected failure for op, or reports a finished context.
// Callers hold s.mu.
func (s *Simulator) fault(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		s.metrics.RecordLedgerCall(op, "error")
		return err
	}
	queue := s.faults[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.faults[op] = queue[1:]
	s.metrics.RecordLedgerCall(op, "error")
	return err
}

func (s *Simulator) reject(op string, kind Kind) error {
	s.metrics.RecordLedgerCall(op, "rejected")
	return &RejectedError{Op: op, Kind: kind}
}

// unavailable passes injected rejections through untouched.
func unavailable(err error) error {
	if _, ok := AsRejected(err); ok {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func proof() string {
	return "sim-" + uuid.NewString()
}
