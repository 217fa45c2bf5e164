package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"auction-platform/internal/domain"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGate(store *fakeStore) (*BidGate, *capturePublisher, *fakeclock.FakeClock) {
	publisher := &capturePublisher{}
	clk := fakeclock.NewFakeClock(testStart)
	return NewBidGate(store, publisher, clk, nopLogger{}), publisher, clk
}

func ongoingAuction(id string, startingPrice float64) *domain.Auction {
	return &domain.Auction{
		ID:                id,
		Title:             "Test auction",
		StartingPrice:     startingPrice,
		CurrentHighestBid: startingPrice,
		StartTime:         testStart.Add(-10 * time.Second),
		EndTime:           testStart.Add(time.Hour),
		Status:            domain.StatusOngoing,
		CreatedBy:         "admin-1",
	}
}

func TestPlaceBidAcceptsHigherBid(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	gate, publisher, _ := newTestGate(store)

	bid, err := gate.PlaceBid(context.Background(), "a1", "bidder-1", 150)
	assert.Nil(t, err)

	check.Equal(t, "a1", bid.AuctionID)
	check.Equal(t, "bidder-1", bid.BidderID)
	check.Equal(t, 150.0, bid.Amount)
	check.Equal(t, testStart, bid.PlacedAt)
	check.NotEqual(t, "", bid.ID)

	check.Equal(t, 150.0, store.highestOf("a1"))
	check.Equal(t, 1, len(store.bidsOf("a1")))
	check.Equal(t, []domain.AuditAction{domain.AuditBidPlaced}, store.auditActions())

	events := publisher.published()
	assert.Equal(t, 1, len(events))
	check.Equal(t, &domain.BidEvent{
		AuctionID: "a1",
		BidderID:  "bidder-1",
		Amount:    150,
		PlacedAt:  testStart,
	}, events[0])
}

func TestPlaceBidRejectsMalformedInput(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	gate, publisher, _ := newTestGate(store)

	tests := []struct {
		name      string
		auctionID string
		bidderID  string
		amount    float64
	}{
		{"empty auction id", "", "bidder-1", 150},
		{"empty bidder id", "a1", "", 150},
		{"padded auction id", " a1 ", "bidder-1", 150},
		{"zero amount", "a1", "bidder-1", 0},
		{"negative amount", "a1", "bidder-1", -5},
		{"nan amount", "a1", "bidder-1", math.NaN()},
		{"infinite amount", "a1", "bidder-1", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gate.PlaceBid(context.Background(), tt.auctionID, tt.bidderID, tt.amount)
			check.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}

	// Invalid input never reaches the store.
	check.Equal(t, 0, store.transactions())
	check.Equal(t, 0, len(publisher.published()))
}

func TestPlaceBidUnknownAuction(t *testing.T) {
	store := newFakeStore()
	gate, _, _ := newTestGate(store)

	_, err := gate.PlaceBid(context.Background(), "missing", "bidder-1", 150)
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}

func TestPlaceBidTimeWindow(t *testing.T) {
	store := newFakeStore()

	upcoming := ongoingAuction("upcoming", 100)
	upcoming.StartTime = testStart.Add(time.Minute)
	upcoming.Status = domain.StatusUpcoming
	store.addAuction(upcoming)

	ended := ongoingAuction("ended", 100)
	ended.EndTime = testStart.Add(-time.Second)
	ended.Status = domain.StatusCompleted
	store.addAuction(ended)

	gate, publisher, _ := newTestGate(store)

	_, err := gate.PlaceBid(context.Background(), "upcoming", "bidder-1", 150)
	check.True(t, errors.Is(err, domain.ErrAuctionNotStarted))

	_, err = gate.PlaceBid(context.Background(), "ended", "bidder-1", 150)
	check.True(t, errors.Is(err, domain.ErrAuctionEnded))

	// Rejections leave state untouched and publish nothing.
	check.Equal(t, 100.0, store.highestOf("upcoming"))
	check.Equal(t, 100.0, store.highestOf("ended"))
	check.Equal(t, 0, len(store.bidsOf("upcoming")))
	check.Equal(t, 0, len(store.bidsOf("ended")))
	check.Equal(t, 0, len(publisher.published()))
}

func TestPlaceBidRejectsTiesAndLowerBids(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	gate, _, _ := newTestGate(store)

	_, err := gate.PlaceBid(context.Background(), "a1", "bidder-1", 100)
	check.True(t, errors.Is(err, domain.ErrBidTooLow))

	_, err = gate.PlaceBid(context.Background(), "a1", "bidder-1", 99.99)
	check.True(t, errors.Is(err, domain.ErrBidTooLow))

	check.Equal(t, 100.0, store.highestOf("a1"))
	check.Equal(t, 0, len(store.bidsOf("a1")))
}

// The end-to-end acceptance sequence: accept, reject a tie, accept a
// higher bid, reject after the deadline.
func TestPlaceBidScenario(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	gate, _, clk := newTestGate(store)
	ctx := context.Background()

	bid, err := gate.PlaceBid(ctx, "a1", "alice", 150)
	assert.Nil(t, err)
	check.Equal(t, 150.0, bid.Amount)
	check.Equal(t, 150.0, store.highestOf("a1"))

	clk.Increment(time.Second)
	_, err = gate.PlaceBid(ctx, "a1", "bob", 150)
	check.True(t, errors.Is(err, domain.ErrBidTooLow))

	clk.Increment(time.Second)
	bid, err = gate.PlaceBid(ctx, "a1", "bob", 200)
	assert.Nil(t, err)
	check.Equal(t, 200.0, bid.Amount)
	check.Equal(t, 200.0, store.highestOf("a1"))

	clk.Increment(3600 * time.Second)
	_, err = gate.PlaceBid(ctx, "a1", "carol", 50)
	check.True(t, errors.Is(err, domain.ErrAuctionEnded))
	check.Equal(t, 200.0, store.highestOf("a1"))

	bids := store.bidsOf("a1")
	assert.Equal(t, 2, len(bids))
	check.Equal(t, 150.0, bids[0].Amount)
	check.Equal(t, 200.0, bids[1].Amount)
}

// Concurrent submissions against one auction must serialize: every
// accepted bid exceeds the previously committed value and the final
// highest bid is the maximum accepted amount, with no lost update.
func TestPlaceBidConcurrentSubmissions(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	gate, _, _ := newTestGate(store)

	amounts := []float64{110, 120, 130, 140, 150, 160, 170, 180}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var accepted []float64

	for _, amount := range amounts {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			if _, err := gate.PlaceBid(context.Background(), "a1", "bidder", amount); err == nil {
				mu.Lock()
				accepted = append(accepted, amount)
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrBidTooLow) {
				t.Errorf("unexpected error for amount %.0f: %v", amount, err)
			}
		}(amount)
	}
	wg.Wait()

	// The maximum always clears whatever committed before it.
	mu.Lock()
	sort.Float64s(accepted)
	mu.Unlock()
	assert.True(t, len(accepted) >= 1)
	check.Equal(t, 180.0, accepted[len(accepted)-1])
	check.Equal(t, 180.0, store.highestOf("a1"))

	// Committed bids are strictly increasing in commit order and the
	// count matches the accepted submissions.
	bids := store.bidsOf("a1")
	check.Equal(t, len(accepted), len(bids))
	previous := 100.0
	for _, bid := range bids {
		check.True(t, bid.Amount > previous)
		previous = bid.Amount
	}
}

func TestPlaceBidRetriesOnConflict(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	store.conflictsLeft = 2
	gate, _, _ := newTestGate(store)

	bid, err := gate.PlaceBid(context.Background(), "a1", "bidder-1", 150)
	assert.Nil(t, err)
	check.Equal(t, 150.0, bid.Amount)
	check.Equal(t, 3, store.transactions())
}

func TestPlaceBidConflictBudgetExhausted(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	store.conflictsLeft = maxBidAttempts
	gate, publisher, _ := newTestGate(store)

	_, err := gate.PlaceBid(context.Background(), "a1", "bidder-1", 150)
	check.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	check.Equal(t, maxBidAttempts, store.transactions())
	check.Equal(t, 0, len(publisher.published()))
}

func TestPlaceBidStoreDown(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	store.beginErr = errors.New("connection refused")
	gate, _, _ := newTestGate(store)

	_, err := gate.PlaceBid(context.Background(), "a1", "bidder-1", 150)
	check.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

// Broadcast is a side channel: a publish failure never fails the bid.
func TestPlaceBidAcceptedDespiteBroadcastFailure(t *testing.T) {
	store := newFakeStore()
	store.addAuction(ongoingAuction("a1", 100))
	clk := fakeclock.NewFakeClock(testStart)
	publisher := &capturePublisher{err: errors.New("broker down")}
	gate := NewBidGate(store, publisher, clk, nopLogger{})

	bid, err := gate.PlaceBid(context.Background(), "a1", "bidder-1", 150)
	assert.Nil(t, err)
	check.Equal(t, 150.0, bid.Amount)
	check.Equal(t, 150.0, store.highestOf("a1"))
}
