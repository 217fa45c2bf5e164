package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-platform/internal/domain"
)

// fakeStore implements domain.Store in memory. A single transaction
// lock stands in for serializable isolation: a bid transaction holds
// it from BeginTx until Commit or Rollback, so concurrent transactions
// serialize exactly as the real store guarantees.
type fakeStore struct {
	mu       sync.Mutex
	auctions map[string]*domain.Auction
	bids     map[string][]*domain.Bid
	audits   []*domain.AuditEvent

	txMu          sync.Mutex
	beginCount    int
	conflictsLeft int
	beginErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		auctions: make(map[string]*domain.Auction),
		bids:     make(map[string][]*domain.Bid),
	}
}

func (s *fakeStore) addAuction(auction *domain.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *auction
	s.auctions[auction.ID] = &copied
}

func (s *fakeStore) highestOf(auctionID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auctions[auctionID].CurrentHighestBid
}

func (s *fakeStore) statusOf(auctionID string) domain.AuctionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auctions[auctionID].Status
}

func (s *fakeStore) bidsOf(auctionID string) []*domain.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Bid(nil), s.bids[auctionID]...)
}

func (s *fakeStore) auditActions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]domain.AuditAction, 0, len(s.audits))
	for _, event := range s.audits {
		actions = append(actions, event.Action)
	}
	return actions
}

func (s *fakeStore) transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginCount
}

func (s *fakeStore) BeginTx(ctx context.Context) (domain.Tx, error) {
	s.mu.Lock()
	s.beginCount++
	beginErr := s.beginErr
	s.mu.Unlock()

	if beginErr != nil {
		return nil, beginErr
	}

	s.txMu.Lock()
	return &fakeTx{store: s, highest: make(map[string]float64)}, nil
}

type fakeTx struct {
	store         *fakeStore
	pendingBids   []*domain.Bid
	pendingAudits []*domain.AuditEvent
	highest       map[string]float64
	finished      bool
}

func (t *fakeTx) LoadAuctionForUpdate(ctx context.Context, auctionID string) (*domain.Auction, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	auction, ok := t.store.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	copied := *auction
	return &copied, nil
}

func (t *fakeTx) InsertBid(ctx context.Context, bid *domain.Bid) error {
	copied := *bid
	t.pendingBids = append(t.pendingBids, &copied)
	return nil
}

func (t *fakeTx) UpdateHighestBid(ctx context.Context, auctionID string, amount float64) error {
	t.highest[auctionID] = amount
	return nil
}

func (t *fakeTx) AppendAudit(ctx context.Context, event *domain.AuditEvent) error {
	copied := *event
	t.pendingAudits = append(t.pendingAudits, &copied)
	return nil
}

func (t *fakeTx) Commit() error {
	if t.finished {
		return fmt.Errorf("commit on finished transaction")
	}
	t.finished = true
	defer t.store.txMu.Unlock()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.store.conflictsLeft > 0 {
		t.store.conflictsLeft--
		return domain.ErrTxConflict
	}

	for _, bid := range t.pendingBids {
		t.store.bids[bid.AuctionID] = append(t.store.bids[bid.AuctionID], bid)
	}
	for auctionID, amount := range t.highest {
		if auction, ok := t.store.auctions[auctionID]; ok {
			auction.CurrentHighestBid = amount
		}
	}
	t.store.audits = append(t.store.audits, t.pendingAudits...)

	return nil
}

func (t *fakeTx) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.store.txMu.Unlock()
	return nil
}

func (s *fakeStore) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[auction.ID]; exists {
		return fmt.Errorf("duplicate auction %s", auction.ID)
	}
	copied := *auction
	s.auctions[auction.ID] = &copied
	return nil
}

func (s *fakeStore) FindAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	copied := *auction
	return &copied, nil
}

func (s *fakeStore) ListAuctions(ctx context.Context, filter domain.ListFilter) ([]*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var auctions []*domain.Auction
	for _, auction := range s.auctions {
		copied := *auction
		switch filter {
		case domain.ListOngoing:
			if copied.Status == domain.StatusOngoing {
				auctions = append(auctions, &copied)
			}
		case domain.ListUpcoming:
			if copied.Status == domain.StatusUpcoming {
				auctions = append(auctions, &copied)
			}
		case domain.ListCompleted:
			if copied.Status == domain.StatusCompleted {
				auctions = append(auctions, &copied)
			}
		default:
			auctions = append(auctions, &copied)
		}
	}

	sort.Slice(auctions, func(i, j int) bool {
		switch filter {
		case domain.ListOngoing:
			return auctions[i].EndTime.Before(auctions[j].EndTime)
		case domain.ListUpcoming:
			return auctions[i].StartTime.Before(auctions[j].StartTime)
		case domain.ListCompleted:
			return auctions[j].EndTime.Before(auctions[i].EndTime)
		default:
			return auctions[j].CreatedAt.Before(auctions[i].CreatedAt)
		}
	})

	return auctions, nil
}

func (s *fakeStore) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auction.ID]; !ok {
		return domain.ErrAuctionNotFound
	}
	copied := *auction
	s.auctions[auction.ID] = &copied
	return nil
}

func (s *fakeStore) DeleteAuction(ctx context.Context, auctionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return domain.ErrAuctionNotFound
	}
	delete(s.auctions, auctionID)
	delete(s.bids, auctionID)
	return nil
}

func (s *fakeStore) ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bids := make([]*domain.Bid, 0, len(s.bids[auctionID]))
	for _, bid := range s.bids[auctionID] {
		copied := *bid
		bids = append(bids, &copied)
	}
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].PlacedAt.Before(bids[j].PlacedAt)
	})
	return bids, nil
}

func (s *fakeStore) FindHighestBidder(ctx context.Context, auctionID string) (*domain.HighestBidder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var top *domain.HighestBidder
	for _, bid := range s.bids[auctionID] {
		if top == nil || bid.Amount > top.Amount {
			top = &domain.HighestBidder{BidderID: bid.BidderID, Amount: bid.Amount}
		}
	}
	return top, nil
}

func (s *fakeStore) AppendAudit(ctx context.Context, event *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *event
	s.audits = append(s.audits, &copied)
	return nil
}

func (s *fakeStore) SyncStatuses(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, auction := range s.auctions {
		if auction.Status == domain.StatusCancelled {
			continue
		}
		derived := domain.DeriveStatus(now, auction.StartTime, auction.EndTime)
		if auction.Status != derived {
			auction.Status = derived
			auction.UpdatedAt = now
		}
	}
	return nil
}

// capturePublisher records published bid events.
type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.BidEvent
	err    error
}

func (p *capturePublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	copied := *event
	p.events = append(p.events, &copied)
	return nil
}

func (p *capturePublisher) published() []*domain.BidEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.BidEvent(nil), p.events...)
}

// fakeHub records events routed into rooms.
type fakeHub struct {
	mu        sync.Mutex
	published map[string][]*domain.BidEvent
}

func newFakeHub() *fakeHub {
	return &fakeHub{published: make(map[string][]*domain.BidEvent)}
}

func (h *fakeHub) Join(auctionID string, conn domain.Connection)  {}
func (h *fakeHub) Leave(auctionID string, conn domain.Connection) {}
func (h *fakeHub) CloseAll()                                      {}

func (h *fakeHub) Publish(auctionID string, event *domain.BidEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	copied := *event
	h.published[auctionID] = append(h.published[auctionID], &copied)
	return nil
}

func (h *fakeHub) eventsFor(auctionID string) []*domain.BidEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*domain.BidEvent(nil), h.published[auctionID]...)
}

// fakeLeader reports a fixed leadership verdict.
type fakeLeader struct {
	leader bool
	err    error
}

func (l *fakeLeader) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, l.err
}

func (l *fakeLeader) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, l.err
}

func (l *fakeLeader) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return l.err
}

// nopLogger keeps test output quiet.
type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Fatal(msg string, keysAndValues ...interface{}) {}
