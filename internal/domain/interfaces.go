package domain

import (
	"context"
	"time"
)

// ListFilter selects auctions on the read path. The zero value lists
// everything, newest first.
type ListFilter string

const (
	ListAll       ListFilter = ""
	ListOngoing   ListFilter = "ongoing"
	ListUpcoming  ListFilter = "upcoming"
	ListCompleted ListFilter = "completed"
)

// Store is the durable record of auctions and bids. BeginTx opens a
// serializable transaction: two concurrent transactions touching the
// same auction row behave as if executed in some total order.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	CreateAuction(ctx context.Context, auction *Auction) error
	FindAuction(ctx context.Context, auctionID string) (*Auction, error)
	ListAuctions(ctx context.Context, filter ListFilter) ([]*Auction, error)
	UpdateAuction(ctx context.Context, auction *Auction) error
	DeleteAuction(ctx context.Context, auctionID string) error

	ListBids(ctx context.Context, auctionID string) ([]*Bid, error)
	FindHighestBidder(ctx context.Context, auctionID string) (*HighestBidder, error)

	AppendAudit(ctx context.Context, event *AuditEvent) error

	// SyncStatuses reconciles every non-CANCELLED auction whose stored
	// status disagrees with the value derived from its time window,
	// writing only the changed rows.
	SyncStatuses(ctx context.Context, now time.Time) error
}

// Tx is a single serializable unit of work. All writes either commit
// together or roll back together.
type Tx interface {
	// LoadAuctionForUpdate locks the auction row so a concurrent bid
	// against the same auction cannot observe a stale highest bid.
	LoadAuctionForUpdate(ctx context.Context, auctionID string) (*Auction, error)
	InsertBid(ctx context.Context, bid *Bid) error
	UpdateHighestBid(ctx context.Context, auctionID string, amount float64) error
	AppendAudit(ctx context.Context, event *AuditEvent) error
	Commit() error
	Rollback() error
}

// Event interfaces. Accepted bids are relayed over a shared channel so
// every service instance's hub sees commits made by any instance.
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventHandler func(event *BidEvent) error

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

// Connection is one subscriber of an auction room. Send must not
// block: a slow subscriber may miss an event.
type Connection interface {
	Send(payload []byte) error
	Close() error
	BidderID() string
	AuctionID() string
}

// RoomHub maintains one room per auction id and delivers published
// events to every current member, per-auction FIFO, best effort.
type RoomHub interface {
	Join(auctionID string, conn Connection)
	Leave(auctionID string, conn Connection)
	Publish(auctionID string, event *BidEvent) error
	CloseAll()
}

// LeaderElection gates the status sweep to a single instance.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
