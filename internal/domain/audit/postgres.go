package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists events in the activity_events table.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Record(ctx context.Context, evt Event) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO activity_events (user_id, email, action, status, occurred_at, ip, request_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, evt.UserID, evt.Email, evt.Action, evt.Status, evt.Timestamp, evt.IP, evt.RequestID)
	return err
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) List(ctx context.Context, filter Filter, limit int) ([]Event, error) {
	query, args := buildBaseQuery("SELECT id, user_id, email, action, status, occurred_at, ip, request_id", filter)
	query += " ORDER BY occurred_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.UserID, &evt.Email, &evt.Action, &evt.Status, &evt.Timestamp, &evt.IP, &evt.RequestID); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM activity_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if filter.Email != "" {
		query += fmt.Sprintf(" AND lower(email) = lower($%d)", len(args)+1)
		args = append(args, filter.Email)
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args)+1)
		args = append(args, filter.Since)
	}
	return query, args
}
