package review

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Ledger outcomes.
const (
	OutcomeForwarded = "forwarded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Entry is the metadata kept for one finished submission. Review text is never stored.
type Entry struct {
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	TextLen   int       `db:"text_len"`
	Outcome   string    `db:"outcome"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// Ledger records submission outcomes.
type Ledger interface {
	Record(ctx context.Context, e Entry) error
}

// NopLedger discards entries; it is used when no database is configured.
type NopLedger struct{}

// Record implements Ledger.
func (NopLedger) Record(context.Context, Entry) error { return nil }

// SQLLedger writes entries to the review_ledger table.
type SQLLedger struct {
	db *sqlx.DB
}

// NewSQLLedger wraps an open database handle.
func NewSQLLedger(db *sqlx.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

const insertEntry = `INSERT INTO review_ledger (user_id, username, text_len, outcome, reason, created_at)
VALUES (:user_id, :username, :text_len, :outcome, :reason, :created_at)`

// Record implements Ledger.
func (l *SQLLedger) Record(ctx context.Context, e Entry) error {
	_, err := l.db.NamedExecContext(ctx, insertEntry, e)
	return err
}
