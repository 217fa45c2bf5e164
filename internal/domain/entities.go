package domain

import (
	"time"
)

type Auction struct {
	ID                string
	Title             string
	Description       string
	ImageRef          string
	StartingPrice     float64
	CurrentHighestBid float64
	StartTime         time.Time
	EndTime           time.Time
	Status            AuctionStatus
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type AuctionStatus string

const (
	StatusUpcoming  AuctionStatus = "UPCOMING"
	StatusOngoing   AuctionStatus = "ONGOING"
	StatusCompleted AuctionStatus = "COMPLETED"
	StatusCancelled AuctionStatus = "CANCELLED"
)

type Bid struct {
	ID        string
	AuctionID string
	BidderID  string
	Amount    float64
	PlacedAt  time.Time
}

// BidEvent is the payload fanned out to room subscribers after a bid
// commits. Field names are a contract with the presentation layer.
type BidEvent struct {
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

type AuditEvent struct {
	ID        string
	Action    AuditAction
	ActorID   string
	AuctionID string
	Message   string
	At        time.Time
}

type AuditAction string

const (
	AuditAuctionCreated AuditAction = "AUCTION_CREATED"
	AuditAuctionUpdated AuditAction = "AUCTION_UPDATED"
	AuditAuctionDeleted AuditAction = "AUCTION_DELETED"
	AuditBidPlaced      AuditAction = "BID_PLACED"
)

// Identity is what the auth collaborator supplies for an authenticated
// caller. The service trusts it as given.
type Identity struct {
	UserID string
	Role   string
}

const RoleAdmin = "ADMIN"

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// HighestBidder identifies the current leader of an auction, when any
// bid has been placed.
type HighestBidder struct {
	BidderID string
	Amount   float64
}
