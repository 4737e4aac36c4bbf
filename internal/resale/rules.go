// Package resale holds the anti-scalping rules applied before a ticket may be
// listed on the marketplace. Evaluation is pure: it never touches storage or
// the network.
package resale

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/eventix/internal/domain"
)

// DenyReason explains why a listing was refused.
type DenyReason string

const (
	ReasonNone                DenyReason = ""
	ReasonResaleLimitExceeded DenyReason = "RESALE_LIMIT_EXCEEDED"
	ReasonMarkupExceeded      DenyReason = "MARKUP_EXCEEDED"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed  bool
	Reason   DenyReason
	MaxPrice decimal.Decimal
}

// Evaluate decides whether ticket may be listed at proposed given its current
// resale count. The markup ceiling is always derived from the original price
// so repeated resales cannot compound the markup.
func Evaluate(ticket domain.Ticket, proposed decimal.Decimal, resaleCount int) Decision {
	maxPrice := domain.MaxAllowedPrice(ticket.OriginalPrice)
	if resaleCount >= domain.MaxResales {
		return Decision{Reason: ReasonResaleLimitExceeded, MaxPrice: maxPrice}
	}
	if proposed.GreaterThan(maxPrice) {
		return Decision{Reason: ReasonMarkupExceeded, MaxPrice: maxPrice}
	}
	return Decision{Allowed: true, MaxPrice: maxPrice}
}

// CanResale reports whether a ticket with resaleCount transfers may still be listed.
func CanResale(resaleCount int) bool {
	return resaleCount < domain.MaxResales
}
