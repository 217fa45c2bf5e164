package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auction-platform/internal/api/middleware"
	"auction-platform/internal/domain"
	"auction-platform/internal/services"
	"auction-platform/pkg/logger"
)

type AuctionHandler struct {
	manager *services.AuctionManager
	log     logger.Logger
}

func NewAuctionHandler(manager *services.AuctionManager, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		manager: manager,
		log:     log,
	}
}

type AuctionRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ImageRef      string    `json:"image_ref"`
	StartingPrice float64   `json:"starting_price"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

type AuctionResponse struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	ImageRef          string         `json:"image_ref"`
	StartingPrice     float64        `json:"starting_price"`
	CurrentHighestBid float64        `json:"current_highest_bid"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	Status            string         `json:"status"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	HighestBidder     *BidderSummary `json:"highest_bidder,omitempty"`
}

type BidderSummary struct {
	BidderID string  `json:"bidder_id"`
	Amount   float64 `json:"amount"`
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req AuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.StartingPrice <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "starting price must be positive"})
	}
	if !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "end time must be after start time"})
	}

	actor := middleware.IdentityFrom(c)
	auction, err := h.manager.CreateAuction(c.Request().Context(), actor, auctionInput(req))
	if err != nil {
		return h.respondError(c, err)
	}

	h.log.Info("Auction created", "auction_id", auction.ID, "created_by", actor.UserID)
	return c.JSON(http.StatusCreated, auctionResponse(auction, nil))
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	return h.list(c, domain.ListAll)
}

func (h *AuctionHandler) ListOngoing(c echo.Context) error {
	return h.list(c, domain.ListOngoing)
}

func (h *AuctionHandler) ListUpcoming(c echo.Context) error {
	return h.list(c, domain.ListUpcoming)
}

func (h *AuctionHandler) ListCompleted(c echo.Context) error {
	return h.list(c, domain.ListCompleted)
}

func (h *AuctionHandler) list(c echo.Context, filter domain.ListFilter) error {
	auctions, err := h.manager.ListAuctions(c.Request().Context(), filter)
	if err != nil {
		return h.respondError(c, err)
	}

	responses := make([]AuctionResponse, 0, len(auctions))
	for _, auction := range auctions {
		responses = append(responses, auctionResponse(auction, nil))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auction, bidder, err := h.manager.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, auctionResponse(auction, bidder))
}

func (h *AuctionHandler) UpdateAuction(c echo.Context) error {
	var req AuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	actor := middleware.IdentityFrom(c)
	auction, err := h.manager.UpdateAuction(c.Request().Context(), actor, c.Param("id"), auctionInput(req))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, auctionResponse(auction, nil))
}

func (h *AuctionHandler) DeleteAuction(c echo.Context) error {
	actor := middleware.IdentityFrom(c)
	if err := h.manager.DeleteAuction(c.Request().Context(), actor, c.Param("id")); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "auction deleted"})
}

func (h *AuctionHandler) ListBids(c echo.Context) error {
	bids, err := h.manager.BidHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	responses := make([]BidResponse, 0, len(bids))
	for _, bid := range bids {
		responses = append(responses, bidResponse(bid))
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *AuctionHandler) respondError(c echo.Context, err error) error {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Auction request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]string{"error": errorMessage(err)})
}

func auctionInput(req AuctionRequest) services.AuctionInput {
	return services.AuctionInput{
		Title:         req.Title,
		Description:   req.Description,
		ImageRef:      req.ImageRef,
		StartingPrice: req.StartingPrice,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}
}

func auctionResponse(auction *domain.Auction, bidder *domain.HighestBidder) AuctionResponse {
	resp := AuctionResponse{
		ID:                auction.ID,
		Title:             auction.Title,
		Description:       auction.Description,
		ImageRef:          auction.ImageRef,
		StartingPrice:     auction.StartingPrice,
		CurrentHighestBid: auction.CurrentHighestBid,
		StartTime:         auction.StartTime,
		EndTime:           auction.EndTime,
		Status:            string(auction.Status),
		CreatedBy:         auction.CreatedBy,
		CreatedAt:         auction.CreatedAt,
		UpdatedAt:         auction.UpdatedAt,
	}
	if bidder != nil {
		resp.HighestBidder = &BidderSummary{
			BidderID: bidder.BidderID,
			Amount:   bidder.Amount,
		}
	}
	return resp
}

// errorStatus maps the domain taxonomy onto HTTP. Business rejections
// surface verbatim as client errors; only store failures are server
// side.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuctionNotStarted),
		errors.Is(err, domain.ErrAuctionEnded),
		errors.Is(err, domain.ErrBidTooLow):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrInvalidInput,
		domain.ErrForbidden,
		domain.ErrAuctionNotFound,
		domain.ErrAuctionNotStarted,
		domain.ErrAuctionEnded,
		domain.ErrBidTooLow,
		domain.ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}
