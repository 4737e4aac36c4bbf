package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/eventix/internal/api/dto"
	"github.com/spec-kit/eventix/internal/service"
	apperrors "github.com/spec-kit/eventix/pkg/util/errorutil"
)

// WalletHeader is consulted by GET /my-tickets when no query wallet is given.
const WalletHeader = "X-Wallet-Address"

// TicketsHandler serves the primary sale and resale marketplace endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// AvailableTickets GET /available-tickets.
func (h *TicketsHandler) AvailableTickets(c *fiber.Ctx) error {
	return c.JSON(dto.NewCatalogResponses(h.service.AvailableTickets()))
}

// BuyTicket POST /buy-ticket.
func (h *TicketsHandler) BuyTicket(c *fiber.Ctx) error {
	var req dto.BuyTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.service.Purchase(c.UserContext(), req.TicketType, req.WalletAddress)
	if err != nil {
		return err
	}
	return c.JSON(dto.BuyTicketResponse{
		Success:     true,
		MintAddress: result.MintAddress,
		Transaction: result.Proof,
		Ticket:      dto.NewTicketResponse(result.Ticket),
	})
}

// ListTicket POST /list-ticket.
func (h *TicketsHandler) ListTicket(c *fiber.Ctx) error {
	var req dto.ListTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketID) == "" {
		return apperrors.NewValidationError("ticketId required", nil)
	}

	result, err := h.service.ListForResale(c.UserContext(), req.TicketID, req.Price, req.WalletAddress)
	if err != nil {
		return err
	}
	return c.JSON(dto.ListTicketResponse{
		Success:         true,
		Transaction:     result.Proof,
		Ticket:          dto.NewTicketResponse(result.Ticket),
		MaxAllowedPrice: result.MaxAllowedPrice,
	})
}

// BuyFromMarketplace POST /buy-from-marketplace.
func (h *TicketsHandler) BuyFromMarketplace(c *fiber.Ctx) error {
	var req dto.BuyFromMarketplaceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketID) == "" {
		return apperrors.NewValidationError("ticketId required", nil)
	}

	result, err := h.service.BuyFromMarketplace(c.UserContext(), req.TicketID, req.BuyerWallet)
	if err != nil {
		return err
	}
	return c.JSON(dto.BuyFromMarketplaceResponse{
		Success:      true,
		Transaction:  result.Proof,
		Ticket:       dto.NewTicketResponse(result.Ticket),
		ResaleNumber: result.ResaleNumber,
	})
}

// MyTickets GET /my-tickets?wallet=...
func (h *TicketsHandler) MyTickets(c *fiber.Ctx) error {
	wallet := c.Query("wallet")
	if wallet == "" {
		wallet = c.Get(WalletHeader)
	}
	tickets, err := h.service.MyTickets(c.UserContext(), wallet)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponses(tickets))
}

// Marketplace GET /marketplace.
func (h *TicketsHandler) Marketplace(c *fiber.Ctx) error {
	listings, err := h.service.MarketplaceView(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMarketplaceResponses(listings))
}

// History GET /tickets/:mint/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	view, err := h.service.ResaleHistory(c.UserContext(), c.Params("mint"))
	if err != nil {
		return err
	}
	return c.JSON(dto.ResaleHistoryResponse{
		Ticket:          dto.NewTicketResponse(view.Ticket),
		Records:         dto.NewResaleRecordResponses(view.Records),
		ResaleCount:     view.ResaleCount,
		MaxResales:      view.MaxResales,
		CanResale:       view.CanResale,
		MaxAllowedPrice: view.MaxAllowedPrice,
	})
}
