package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxResales is the resale ceiling: the number of marketplace transfers a
// ticket may go through after its initial purchase.
const MaxResales = 3

// MaxMarkupPercent bounds a listing price relative to the original price.
const MaxMarkupPercent = 25

// ResaleRecord is an append-only entry written for every marketplace transfer.
// The number of records for a mint is its authoritative resale count.
type ResaleRecord struct {
	ID           string
	TicketMint   string
	FromWallet   string
	ToWallet     string
	Price        decimal.Decimal
	ResaleNumber int
	CreatedAt    time.Time
}

// MaxAllowedPrice returns the highest price a ticket originally sold at
// original may be listed for.
func MaxAllowedPrice(original decimal.Decimal) decimal.Decimal {
	return original.Mul(decimal.NewFromInt(100 + MaxMarkupPercent)).Div(decimal.NewFromInt(100))
}
