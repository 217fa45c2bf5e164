package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auction-platform/internal/api/middleware"
	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// BidPlacer is the bid-acceptance gate as the handler sees it.
type BidPlacer interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*domain.Bid, error)
}

type BidHandler struct {
	gate BidPlacer
	log  logger.Logger
}

func NewBidHandler(gate BidPlacer, log logger.Logger) *BidHandler {
	return &BidHandler{
		gate: gate,
		log:  log,
	}
}

type PlaceBidRequest struct {
	AuctionID string  `json:"auction_id"`
	Amount    float64 `json:"amount"`
}

type BidResponse struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	bidder := middleware.IdentityFrom(c)
	bid, err := h.gate.PlaceBid(c.Request().Context(), req.AuctionID, bidder.UserID, req.Amount)
	if err != nil {
		status := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("Bid placement failed",
				"auction_id", req.AuctionID, "bidder_id", bidder.UserID, "error", err)
		}
		return c.JSON(status, map[string]string{"error": errorMessage(err)})
	}

	return c.JSON(http.StatusCreated, bidResponse(bid))
}

func bidResponse(bid *domain.Bid) BidResponse {
	return BidResponse{
		ID:        bid.ID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		PlacedAt:  bid.PlacedAt,
	}
}
