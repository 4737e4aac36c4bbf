package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketPurchased EventType = "ticket_purchased"
	EventTicketListed    EventType = "ticket_listed"
	EventTicketResold    EventType = "ticket_resold"
	EventOwnershipRepair EventType = "ticket_ownership_reconciled"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Mint      string      `json:"mint"`
	Wallet    string      `json:"wallet"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketPurchasedPayload payload.
type TicketPurchasedPayload struct {
	TicketType string          `json:"ticket_type"`
	Price      decimal.Decimal `json:"price"`
	Proof      string          `json:"proof"`
}

// TicketListedPayload payload.
type TicketListedPayload struct {
	Price           decimal.Decimal `json:"price"`
	MaxAllowedPrice decimal.Decimal `json:"max_allowed_price"`
	ResaleCount     int             `json:"resale_count"`
	Proof           string          `json:"proof"`
}

// TicketResoldPayload payload.
type TicketResoldPayload struct {
	FromWallet   string          `json:"from_wallet"`
	ToWallet     string          `json:"to_wallet"`
	Price        decimal.Decimal `json:"price"`
	ResaleNumber int             `json:"resale_number"`
	Proof        string          `json:"proof"`
}

// OwnershipRepairPayload payload.
type OwnershipRepairPayload struct {
	PreviousOwner string `json:"previous_owner"`
	Owner         string `json:"owner"`
	ResaleNumber  int    `json:"resale_number"`
}
