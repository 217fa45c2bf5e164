package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// maxBidAttempts bounds retries when the store reports a write
// conflict between serializable transactions.
const maxBidAttempts = 3

const maxIDLength = 128

// BidGate validates and commits a single bid against a single auction
// inside one serializable transaction. It is the only writer of
// CurrentHighestBid. The gate holds no auction state between calls.
type BidGate struct {
	store  domain.Store
	events domain.EventPublisher
	clk    clock.Clock
	log    logger.Logger
}

func NewBidGate(store domain.Store, events domain.EventPublisher, clk clock.Clock, log logger.Logger) *BidGate {
	return &BidGate{
		store:  store,
		events: events,
		clk:    clk,
		log:    log,
	}
}

func (g *BidGate) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*domain.Bid, error) {
	// Cheap checks before opening the transaction, to fail fast
	// without contending for the row lock.
	if !validID(auctionID) || !validID(bidderID) {
		return nil, domain.ErrInvalidInput
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, domain.ErrInvalidInput
	}

	var (
		bid *domain.Bid
		err error
	)
	for attempt := 1; attempt <= maxBidAttempts; attempt++ {
		bid, err = g.placeBidTx(ctx, auctionID, bidderID, amount)
		if !errors.Is(err, domain.ErrTxConflict) {
			break
		}
		g.log.Warn("Bid transaction conflict, retrying",
			"auction_id", auctionID, "bidder_id", bidderID, "attempt", attempt)
	}
	if errors.Is(err, domain.ErrTxConflict) {
		return nil, fmt.Errorf("%w: bid conflicted %d times", domain.ErrStoreUnavailable, maxBidAttempts)
	}
	if err != nil {
		return nil, err
	}

	// Post-commit, at most once, best effort. The bid is accepted even
	// if broadcast fails: notification is a side channel, not part of
	// the correctness boundary.
	event := &domain.BidEvent{
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		PlacedAt:  bid.PlacedAt,
	}
	if perr := g.events.PublishBidEvent(ctx, event); perr != nil {
		g.log.Error("Failed to publish accepted bid",
			"auction_id", bid.AuctionID, "bid_id", bid.ID, "error", perr)
	}

	return bid, nil
}

// placeBidTx runs one attempt of the bid transaction. Any failure
// after the row is loaded rolls the whole transaction back: no orphan
// bid rows, no stale highest bid.
func (g *BidGate) placeBidTx(ctx context.Context, auctionID, bidderID string, amount float64) (*domain.Bid, error) {
	tx, err := g.store.BeginTx(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	auction, err := tx.LoadAuctionForUpdate(ctx, auctionID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, domain.ErrAuctionNotFound) || errors.Is(err, domain.ErrTxConflict) {
			return nil, err
		}
		return nil, storeErr(err)
	}

	now := g.clk.Now().UTC()
	if auction.StartTime.After(now) {
		tx.Rollback()
		return nil, domain.ErrAuctionNotStarted
	}
	if auction.EndTime.Before(now) {
		tx.Rollback()
		return nil, domain.ErrAuctionEnded
	}
	// Strict increase: ties are rejected so the monotonic-bid
	// invariant holds even under simultaneous submission.
	if amount <= auction.CurrentHighestBid {
		tx.Rollback()
		return nil, domain.ErrBidTooLow
	}

	bid := &domain.Bid{
		ID:        uuid.NewString(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		PlacedAt:  now,
	}
	if err := tx.InsertBid(ctx, bid); err != nil {
		tx.Rollback()
		return nil, txErr(err)
	}
	if err := tx.UpdateHighestBid(ctx, auctionID, amount); err != nil {
		tx.Rollback()
		return nil, txErr(err)
	}
	audit := &domain.AuditEvent{
		ID:        uuid.NewString(),
		Action:    domain.AuditBidPlaced,
		ActorID:   bidderID,
		AuctionID: auctionID,
		Message:   fmt.Sprintf("User placed bid of %.2f", amount),
		At:        now,
	}
	if err := tx.AppendAudit(ctx, audit); err != nil {
		tx.Rollback()
		return nil, txErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, txErr(err)
	}

	return bid, nil
}

func validID(id string) bool {
	return id != "" && len(id) <= maxIDLength && strings.TrimSpace(id) == id
}

func txErr(err error) error {
	if errors.Is(err, domain.ErrTxConflict) {
		return err
	}
	return storeErr(err)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
