package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"authgate/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a security log repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create inserts the event. Metadata is stored as JSONB; an empty map is stored as NULL.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.SecurityEvent) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = b
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO security_log (id, user_id, action, reason, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Action, e.Reason, e.IP, metadata, e.CreatedAt,
	)
	return err
}

// ListByUser returns up to limit events of the user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, reason, ip, metadata, created_at
		FROM security_log WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.SecurityEvent
	for rows.Next() {
		var (
			e        domain.SecurityEvent
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Reason, &e.IP, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, err
			}
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}
