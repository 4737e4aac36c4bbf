package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/eventix/internal/domain"
)

// BuyTicketRequest payload for POST /buy-ticket.
type BuyTicketRequest struct {
	TicketType    string `json:"ticketType"`
	WalletAddress string `json:"walletAddress"`
}

// ListTicketRequest payload for POST /list-ticket.
type ListTicketRequest struct {
	TicketID      string          `json:"ticketId"`
	Price         decimal.Decimal `json:"price"`
	WalletAddress string          `json:"walletAddress"`
}

// BuyFromMarketplaceRequest payload for POST /buy-from-marketplace.
type BuyFromMarketplaceRequest struct {
	TicketID    string `json:"ticketId"`
	BuyerWallet string `json:"buyerWallet"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID            string          `json:"id"`
	Mint          string          `json:"mint"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	EventDate     string          `json:"eventDate"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Image         string          `json:"image"`
	IsListed      bool            `json:"isListed"`
	Owner         string          `json:"owner"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// MarketplaceItemResponse is a listed ticket with its resale standing.
type MarketplaceItemResponse struct {
	TicketResponse
	ResaleCount int  `json:"resaleCount"`
	CanResale   bool `json:"canResale"`
}

// CatalogItemResponse is a purchasable ticket type.
type CatalogItemResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	EventDate   string          `json:"eventDate"`
	Price       decimal.Decimal `json:"price"`
	Seat        string          `json:"seat"`
	Image       string          `json:"image"`
}

// BuyTicketResponse answers POST /buy-ticket.
type BuyTicketResponse struct {
	Success     bool           `json:"success"`
	MintAddress string         `json:"mintAddress"`
	Transaction string         `json:"transaction"`
	Ticket      TicketResponse `json:"ticket"`
}

// ListTicketResponse answers POST /list-ticket.
type ListTicketResponse struct {
	Success         bool            `json:"success"`
	Transaction     string          `json:"transaction"`
	Ticket          TicketResponse  `json:"ticket"`
	MaxAllowedPrice decimal.Decimal `json:"maxAllowedPrice"`
}

// BuyFromMarketplaceResponse answers POST /buy-from-marketplace.
type BuyFromMarketplaceResponse struct {
	Success      bool           `json:"success"`
	Transaction  string         `json:"transaction"`
	Ticket       TicketResponse `json:"ticket"`
	ResaleNumber int            `json:"resaleNumber"`
}

// ResaleRecordResponse is one marketplace transfer.
type ResaleRecordResponse struct {
	ID           string          `json:"id"`
	TicketID     string          `json:"ticketId"`
	FromWallet   string          `json:"fromWallet"`
	ToWallet     string          `json:"toWallet"`
	Price        decimal.Decimal `json:"price"`
	ResaleNumber int             `json:"resaleNumber"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ResaleHistoryResponse answers GET /tickets/:mint/history.
type ResaleHistoryResponse struct {
	Ticket          TicketResponse         `json:"ticket"`
	Records         []ResaleRecordResponse `json:"records"`
	ResaleCount     int                    `json:"resaleCount"`
	MaxResales      int                    `json:"maxResales"`
	CanResale       bool                   `json:"canResale"`
	MaxAllowedPrice decimal.Decimal        `json:"maxAllowedPrice"`
}

// NewTicketResponse converts a domain ticket.
func NewTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.Mint,
		Mint:          t.Mint,
		Name:          t.Name,
		Description:   t.Description,
		EventDate:     t.EventDate,
		Price:         t.Price,
		OriginalPrice: t.OriginalPrice,
		Image:         t.Image,
		IsListed:      t.Listed,
		Owner:         t.Owner,
		CreatedAt:     t.CreatedAt,
	}
}

// NewTicketResponses converts a slice, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return out
}

// NewMarketplaceResponses converts marketplace listings.
func NewMarketplaceResponses(listings []domain.MarketplaceListing) []MarketplaceItemResponse {
	out := make([]MarketplaceItemResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, MarketplaceItemResponse{
			TicketResponse: NewTicketResponse(l.Ticket),
			ResaleCount:    l.ResaleCount,
			CanResale:      l.CanResale,
		})
	}
	return out
}

// NewCatalogResponses converts catalog items.
func NewCatalogResponses(items []domain.CatalogItem) []CatalogItemResponse {
	out := make([]CatalogItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, CatalogItemResponse{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			EventDate:   item.EventDate,
			Price:       item.Price,
			Seat:        item.Seat,
			Image:       item.Image,
		})
	}
	return out
}

// NewResaleRecordResponses converts resale records.
func NewResaleRecordResponses(records []domain.ResaleRecord) []ResaleRecordResponse {
	out := make([]ResaleRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ResaleRecordResponse{
			ID:           r.ID,
			TicketID:     r.TicketMint,
			FromWallet:   r.FromWallet,
			ToWallet:     r.ToWallet,
			Price:        r.Price,
			ResaleNumber: r.ResaleNumber,
			Timestamp:    r.CreatedAt,
		})
	}
	return out
}
