package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creamcroissant/orderwatch/internal/repository"
)

type watchSessionRepo struct {
	db *sql.DB
}

func newWatchSessionRepo(db *sql.DB) *watchSessionRepo {
	return &watchSessionRepo{db: db}
}

const watchSessionColumns = `id, owner, order_id, outcome, final_status, error_code, error_message,
		fetches, redirect_arrival, payment_intent_id, started_at, finished_at`

func (r *watchSessionRepo) Create(ctx context.Context, session *repository.WatchSession) error {
	if session == nil {
		return fmt.Errorf("watch session is required / 会话不能为空")
	}
	if session.FinishedAt == 0 {
		session.FinishedAt = time.Now().Unix()
	}
	if session.StartedAt == 0 {
		session.StartedAt = session.FinishedAt
	}

	const query = `INSERT INTO watch_sessions (` + watchSessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Owner,
		session.OrderID,
		session.Outcome,
		session.FinalStatus,
		session.ErrorCode,
		session.ErrorMessage,
		session.Fetches,
		boolToInt(session.RedirectArrival),
		session.PaymentIntentID,
		session.StartedAt,
		session.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert watch session: %w", err)
	}
	return nil
}

func (r *watchSessionRepo) FindByID(ctx context.Context, id string) (*repository.WatchSession, error) {
	query := `SELECT ` + watchSessionColumns + ` FROM watch_sessions WHERE id = ?`
	session, err := scanWatchSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *watchSessionRepo) List(ctx context.Context, filter repository.WatchSessionFilter) ([]*repository.WatchSession, error) {
	var (
		where []string
		args  []any
	)
	if filter.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.OrderID != "" {
		where = append(where, "order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + watchSessionColumns + ` FROM watch_sessions`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY finished_at DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list watch sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*repository.WatchSession
	for rows.Next() {
		session, err := scanWatchSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *watchSessionRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM watch_sessions WHERE finished_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete watch sessions: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchSession(row rowScanner) (*repository.WatchSession, error) {
	var (
		session  repository.WatchSession
		redirect int
	)
	if err := row.Scan(
		&session.ID,
		&session.Owner,
		&session.OrderID,
		&session.Outcome,
		&session.FinalStatus,
		&session.ErrorCode,
		&session.ErrorMessage,
		&session.Fetches,
		&redirect,
		&session.PaymentIntentID,
		&session.StartedAt,
		&session.FinishedAt,
	); err != nil {
		return nil, err
	}
	session.RedirectArrival = redirect != 0
	return &session, nil
}
