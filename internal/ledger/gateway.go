// Package ledger talks to the external ledger that records ticket mints,
// listings and ownership transfers. The ledger is authoritative: it
// re-validates markup and resale count on its own state, so its rejections
// always win over registry-side checks.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/eventix/internal/domain"
)

// Gateway modes reported by Mode.
const (
	ModeHTTP      = "http"
	ModeSimulated = "simulated"
)

var (
	// ErrMintFailed wraps every failed mint. No mint address exists on failure.
	ErrMintFailed = errors.New("ledger mint failed")
	// ErrUnavailable wraps transport failures, timeouts and unrecognised
	// rejections of list and transfer.
	ErrUnavailable = errors.New("ledger unavailable")
)

// Kind classifies a ledger-side rejection.
type Kind string

const (
	KindExceedsMarkup     Kind = "ExceedsMarkup"
	KindNotOwner          Kind = "NotOwner"
	KindResaleNotAllowed  Kind = "ResaleNotAllowed"
	KindAlreadyMaxResales Kind = "AlreadyMaxResales"
)

var kindMessages = map[Kind]string{
	KindExceedsMarkup:     "Price exceeds maximum allowed markup of 25%. Please set a lower price.",
	KindNotOwner:          "You are not the owner of this ticket.",
	KindResaleNotAllowed:  "This ticket cannot be resold.",
	KindAlreadyMaxResales: "Maximum number of resales (3) exceeded. This ticket cannot be resold anymore.",
}

// Message is the user-facing text for k.
func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "The ledger rejected the operation."
}

// RejectedError is a definitive refusal by the ledger.
type RejectedError struct {
	Op   string
	Kind Kind
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ledger rejected %s: %s", e.Op, e.Kind)
}

// MintRequest asks the ledger for a new ticket token.
type MintRequest struct {
	Item  domain.CatalogItem
	Owner string
}

// MintReceipt is returned by a successful mint. Proof is an opaque
// transaction reference.
type MintReceipt struct {
	MintAddress string
	Proof       string
}

// Receipt is returned by a successful list or transfer.
type Receipt struct {
	Proof string
}

// Gateway is the contract the lifecycle orchestrator needs from the ledger.
// Calls never retry.
type Gateway interface {
	Mint(ctx context.Context, req MintRequest) (MintReceipt, error)
	List(ctx context.Context, mint string, price decimal.Decimal) (Receipt, error)
	Transfer(ctx context.Context, mint, from, to string, price decimal.Decimal) (Receipt, error)
	Mode() string
}

// AsRejected extracts a RejectedError from err.
func AsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}

// classify maps a ledger error string to a rejection kind. Both the ledger's
// program error names and its user-facing messages are recognised.
func classify(message string) (Kind, bool) {
	lower := strings.ToLower(message)
	switch {
	case lower == "":
		return "", false
	case strings.Contains(lower, "exceedsmaxmarkup"), strings.Contains(lower, "exceedsmarkup"),
		strings.Contains(lower, "markup"):
		return KindExceedsMarkup, true
	case strings.Contains(lower, "notticketowner"), strings.Contains(lower, "notowner"),
		strings.Contains(lower, "not the owner"):
		return KindNotOwner, true
	case strings.Contains(lower, "maxresalesexceeded"), strings.Contains(lower, "alreadymaxresales"),
		strings.Contains(lower, "maximum number of resales"), strings.Contains(lower, "ticketalreadysold"),
		strings.Contains(lower, "already been sold"):
		return KindAlreadyMaxResales, true
	case strings.Contains(lower, "resalenotallowed"), strings.Contains(lower, "cannot be resold"):
		return KindResaleNotAllowed, true
	}
	return "", false
}

func parseKind(raw string) (Kind, bool) {
	switch k := Kind(raw); k {
	case KindExceedsMarkup, KindNotOwner, KindResaleNotAllowed, KindAlreadyMaxResales:
		return k, true
	}
	return "", false
}
