package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"auction-platform/internal/domain"
)

// Store implements domain.Store on MySQL. Bid transactions run at
// SERIALIZABLE with the auction row locked, so two concurrent bids
// against the same auction serialize instead of interleaving.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) BeginTx(ctx context.Context) (domain.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, mapTxErr(err)
	}
	return &storeTx{tx: tx}, nil
}

type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) LoadAuctionForUpdate(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := auctionColumns + ` FROM auctions WHERE id = ? FOR UPDATE`

	auction, err := scanAuction(t.tx.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, mapTxErr(err)
	}
	return auction, nil
}

func (t *storeTx) InsertBid(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, placed_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := t.tx.ExecContext(ctx, query,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.PlacedAt)
	return mapTxErr(err)
}

func (t *storeTx) UpdateHighestBid(ctx context.Context, auctionID string, amount float64) error {
	query := `UPDATE auctions SET current_highest_bid = ?, updated_at = NOW() WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, query, amount, auctionID)
	return mapTxErr(err)
}

func (t *storeTx) AppendAudit(ctx context.Context, event *domain.AuditEvent) error {
	_, err := t.tx.ExecContext(ctx, insertAuditQuery,
		event.ID, string(event.Action), event.ActorID, event.AuctionID, event.Message, event.At)
	return mapTxErr(err)
}

func (t *storeTx) Commit() error {
	return mapTxErr(t.tx.Commit())
}

func (t *storeTx) Rollback() error {
	return t.tx.Rollback()
}

// mapTxErr converts MySQL's conflict signals into domain.ErrTxConflict
// so the gate's bounded retry policy can key on them. 1213 is a
// detected deadlock, 1205 a lock wait timeout.
func mapTxErr(err error) error {
	if err == nil {
		return nil
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if mysqlErr.Number == 1213 || mysqlErr.Number == 1205 {
			return domain.ErrTxConflict
		}
	}
	return err
}
