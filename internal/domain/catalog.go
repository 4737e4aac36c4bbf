package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// prices travel as JSON numbers, matching the ledger and client wire format
	decimal.MarshalJSONWithoutQuotes = true
}

// CatalogItem is a purchasable ticket type for an event.
type CatalogItem struct {
	ID          string
	Name        string
	Description string
	EventDate   string
	Price       decimal.Decimal
	Seat        string
	Image       string
}

// ParsePrice parses a catalog price such as "0.10" or "0.1 SOL".
func ParsePrice(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(cleaned), "SOL"))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty price")
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", raw)
	}
	return price, nil
}
