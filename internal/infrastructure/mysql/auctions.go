package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-platform/internal/domain"
)

const auctionColumns = `
        SELECT id, title, description, image_ref, starting_price, current_highest_bid,
               start_time, end_time, status, created_by, created_at, updated_at`

func (s *Store) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, title, description, image_ref, starting_price,
                              current_highest_bid, start_time, end_time, status,
                              created_by, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		auction.ID, auction.Title, auction.Description, auction.ImageRef,
		auction.StartingPrice, auction.CurrentHighestBid,
		auction.StartTime, auction.EndTime, string(auction.Status),
		auction.CreatedBy, auction.CreatedAt, auction.UpdatedAt)
	return err
}

func (s *Store) FindAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := auctionColumns + ` FROM auctions WHERE id = ?`

	auction, err := scanAuction(s.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}
	return auction, nil
}

func (s *Store) ListAuctions(ctx context.Context, filter domain.ListFilter) ([]*domain.Auction, error) {
	query := auctionColumns + ` FROM auctions`
	var args []interface{}

	switch filter {
	case domain.ListOngoing:
		query += ` WHERE status = ? ORDER BY end_time ASC`
		args = append(args, string(domain.StatusOngoing))
	case domain.ListUpcoming:
		query += ` WHERE status = ? ORDER BY start_time ASC`
		args = append(args, string(domain.StatusUpcoming))
	case domain.ListCompleted:
		query += ` WHERE status = ? ORDER BY end_time DESC`
		args = append(args, string(domain.StatusCompleted))
	default:
		query += ` ORDER BY created_at DESC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, auction)
	}

	return auctions, rows.Err()
}

func (s *Store) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions
        SET title = ?, description = ?, image_ref = ?, starting_price = ?,
            current_highest_bid = ?, start_time = ?, end_time = ?, status = ?, updated_at = ?
        WHERE id = ?
    `
	result, err := s.db.ExecContext(ctx, query,
		auction.Title, auction.Description, auction.ImageRef, auction.StartingPrice,
		auction.CurrentHighestBid, auction.StartTime, auction.EndTime,
		string(auction.Status), auction.UpdatedAt, auction.ID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

func (s *Store) DeleteAuction(ctx context.Context, auctionID string) error {
	// Bid rows go with the auction via ON DELETE CASCADE.
	result, err := s.db.ExecContext(ctx, `DELETE FROM auctions WHERE id = ?`, auctionID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

// SyncStatuses rewrites the stored status of every non-CANCELLED
// auction whose value disagrees with the one derived from its time
// window. The upcoming clause requires the window not to have elapsed,
// matching domain.DeriveStatus precedence.
func (s *Store) SyncStatuses(ctx context.Context, now time.Time) error {
	statements := []struct {
		target string
		where  string
		args   []interface{}
	}{
		{
			target: string(domain.StatusCompleted),
			where:  `end_time < ?`,
			args:   []interface{}{now},
		},
		{
			target: string(domain.StatusUpcoming),
			where:  `start_time > ? AND end_time >= ?`,
			args:   []interface{}{now, now},
		},
		{
			target: string(domain.StatusOngoing),
			where:  `start_time <= ? AND end_time >= ?`,
			args:   []interface{}{now, now},
		},
	}

	for _, stmt := range statements {
		query := `UPDATE auctions SET status = ?, updated_at = ? WHERE status NOT IN (?, ?) AND ` + stmt.where
		args := append([]interface{}{stmt.target, now, string(domain.StatusCancelled), stmt.target}, stmt.args...)
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	var status string

	err := row.Scan(
		&auction.ID, &auction.Title, &auction.Description, &auction.ImageRef,
		&auction.StartingPrice, &auction.CurrentHighestBid,
		&auction.StartTime, &auction.EndTime, &status,
		&auction.CreatedBy, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}

	auction.Status = domain.AuctionStatus(status)
	return &auction, nil
}
