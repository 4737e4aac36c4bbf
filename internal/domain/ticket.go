package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is a minted event ticket keyed by its mint address.
type Ticket struct {
	Mint          string
	Name          string
	Description   string
	EventDate     string
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Image         string
	Listed        bool
	Owner         string
	CreatedAt     time.Time
}

// OwnedBy reports whether wallet currently owns the ticket.
func (t *Ticket) OwnedBy(wallet string) bool {
	return t != nil && t.Owner == wallet
}

// MarketplaceListing is a listed ticket decorated with its resale standing,
// computed at read time.
type MarketplaceListing struct {
	Ticket      Ticket
	ResaleCount int
	CanResale   bool
}
