package mysql

import (
	"context"
	"database/sql"
	"errors"

	"auction-platform/internal/domain"
)

const insertAuditQuery = `
        INSERT INTO audit_events (id, action, actor_id, auction_id, message, at)
        VALUES (?, ?, ?, ?, ?, ?)
    `

func (s *Store) ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, placed_at
        FROM bids
        WHERE auction_id = ?
        ORDER BY placed_at ASC
    `

	rows, err := s.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount, &bid.PlacedAt)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}

	return bids, rows.Err()
}

func (s *Store) FindHighestBidder(ctx context.Context, auctionID string) (*domain.HighestBidder, error) {
	query := `
        SELECT bidder_id, amount
        FROM bids
        WHERE auction_id = ?
        ORDER BY amount DESC
        LIMIT 1
    `

	var bidder domain.HighestBidder
	err := s.db.QueryRowContext(ctx, query, auctionID).Scan(&bidder.BidderID, &bidder.Amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &bidder, nil
}

func (s *Store) AppendAudit(ctx context.Context, event *domain.AuditEvent) error {
	_, err := s.db.ExecContext(ctx, insertAuditQuery,
		event.ID, string(event.Action), event.ActorID, event.AuctionID, event.Message, event.At)
	return err
}
