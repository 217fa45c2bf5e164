package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// AuctionInput carries the caller-editable auction fields. ImageRef is
// an opaque reference; no validation is performed on it here.
type AuctionInput struct {
	Title         string
	Description   string
	ImageRef      string
	StartingPrice float64
	StartTime     time.Time
	EndTime       time.Time
}

// AuctionManager owns the auction CRUD and read paths. Every
// list-by-status read reconciles stored statuses first so the value a
// client sees never diverges from what the gate enforces within one
// request.
type AuctionManager struct {
	store domain.Store
	clk   clock.Clock
	log   logger.Logger
}

func NewAuctionManager(store domain.Store, clk clock.Clock, log logger.Logger) *AuctionManager {
	return &AuctionManager{
		store: store,
		clk:   clk,
		log:   log,
	}
}

func (m *AuctionManager) CreateAuction(ctx context.Context, actor domain.Identity, in AuctionInput) (*domain.Auction, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if in.Title == "" || !in.StartTime.Before(in.EndTime) {
		return nil, domain.ErrInvalidInput
	}

	now := m.clk.Now().UTC()
	auction := &domain.Auction{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Description:       in.Description,
		ImageRef:          in.ImageRef,
		StartingPrice:     in.StartingPrice,
		CurrentHighestBid: in.StartingPrice,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		Status:            domain.DeriveStatus(now, in.StartTime, in.EndTime),
		CreatedBy:         actor.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := m.store.CreateAuction(ctx, auction); err != nil {
		return nil, storeErr(err)
	}

	m.audit(ctx, domain.AuditAuctionCreated, actor.UserID, auction.ID,
		fmt.Sprintf("Auction %s created", auction.Title))

	return auction, nil
}

// GetAuction returns a single auction together with its current
// highest bidder, if any bid has been placed.
func (m *AuctionManager) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, *domain.HighestBidder, error) {
	if err := m.SyncNow(ctx); err != nil {
		return nil, nil, err
	}

	auction, err := m.store.FindAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return nil, nil, err
		}
		return nil, nil, storeErr(err)
	}

	bidder, err := m.store.FindHighestBidder(ctx, auctionID)
	if err != nil {
		return nil, nil, storeErr(err)
	}

	return auction, bidder, nil
}

func (m *AuctionManager) ListAuctions(ctx context.Context, filter domain.ListFilter) ([]*domain.Auction, error) {
	if err := m.SyncNow(ctx); err != nil {
		return nil, err
	}

	auctions, err := m.store.ListAuctions(ctx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	return auctions, nil
}

func (m *AuctionManager) UpdateAuction(ctx context.Context, actor domain.Identity, auctionID string, in AuctionInput) (*domain.Auction, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if in.Title == "" || !in.StartTime.Before(in.EndTime) {
		return nil, domain.ErrInvalidInput
	}

	auction, err := m.store.FindAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return nil, err
		}
		return nil, storeErr(err)
	}

	now := m.clk.Now().UTC()

	// Edits are disallowed once the auction has completed.
	if domain.DeriveStatus(now, auction.StartTime, auction.EndTime) == domain.StatusCompleted {
		return nil, domain.ErrAuctionEnded
	}

	// CurrentHighestBid belongs to the gate. Raising the starting
	// price is only allowed while it would not overtake a placed bid;
	// with no bids the floor moves with it.
	bidder, err := m.store.FindHighestBidder(ctx, auctionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if bidder == nil {
		auction.CurrentHighestBid = in.StartingPrice
	} else if in.StartingPrice > auction.CurrentHighestBid {
		return nil, domain.ErrInvalidInput
	}

	auction.Title = in.Title
	auction.Description = in.Description
	auction.ImageRef = in.ImageRef
	auction.StartingPrice = in.StartingPrice
	auction.StartTime = in.StartTime
	auction.EndTime = in.EndTime
	if auction.Status != domain.StatusCancelled {
		auction.Status = domain.DeriveStatus(now, in.StartTime, in.EndTime)
	}
	auction.UpdatedAt = now

	if err := m.store.UpdateAuction(ctx, auction); err != nil {
		return nil, storeErr(err)
	}

	m.audit(ctx, domain.AuditAuctionUpdated, actor.UserID, auction.ID,
		fmt.Sprintf("Auction %s updated", auction.Title))

	return auction, nil
}

func (m *AuctionManager) DeleteAuction(ctx context.Context, actor domain.Identity, auctionID string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := m.store.DeleteAuction(ctx, auctionID); err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return err
		}
		return storeErr(err)
	}

	m.audit(ctx, domain.AuditAuctionDeleted, actor.UserID, auctionID, "Auction deleted")

	return nil
}

func (m *AuctionManager) BidHistory(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	bids, err := m.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, storeErr(err)
	}
	return bids, nil
}

// SyncNow reconciles stored auction statuses against the clock.
func (m *AuctionManager) SyncNow(ctx context.Context) error {
	if err := m.store.SyncStatuses(ctx, m.clk.Now().UTC()); err != nil {
		return storeErr(err)
	}
	return nil
}

// Audit is an observability sink, never read back; a write failure is
// logged and does not fail the operation that produced it.
func (m *AuctionManager) audit(ctx context.Context, action domain.AuditAction, actorID, auctionID, message string) {
	event := &domain.AuditEvent{
		ID:        uuid.NewString(),
		Action:    action,
		ActorID:   actorID,
		AuctionID: auctionID,
		Message:   message,
		At:        m.clk.Now().UTC(),
	}
	if err := m.store.AppendAudit(ctx, event); err != nil {
		m.log.Error("Failed to append audit event",
			"action", action, "auction_id", auctionID, "error", err)
	}
}
