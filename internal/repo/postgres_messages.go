package repo

import (
	"context"
	"database/sql"

	"github.com/telenexus-admin/Api/internal/model"
)

type PostgresMessageRepo struct {
	db *sql.DB
}

func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

func (r *PostgresMessageRepo) Create(ctx context.Context, msg model.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, instance_id, phone_number, body, kind, direction, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		msg.ID,
		msg.InstanceID,
		msg.PhoneNumber,
		msg.Body,
		msg.Kind,
		string(msg.Direction),
		msg.Status,
		msg.CreatedAt,
	)
	return err
}

func (r *PostgresMessageRepo) ListByInstance(ctx context.Context, instanceID string, limit, offset int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, instance_id, phone_number, body, kind, direction, status, created_at
		FROM messages
		WHERE instance_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, instanceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		var direction string
		if err := rows.Scan(
			&m.ID,
			&m.InstanceID,
			&m.PhoneNumber,
			&m.Body,
			&m.Kind,
			&direction,
			&m.Status,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Direction = model.Direction(direction)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresMessageRepo) CountByUser(ctx context.Context, userID string) (total, today int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE m.created_at >= date_trunc('day', now() AT TIME ZONE 'utc'))
		FROM messages m
		JOIN instances i ON i.id = m.instance_id
		WHERE i.user_id = $1
	`, userID)
	if err := row.Scan(&total, &today); err != nil {
		return 0, 0, err
	}
	return total, today, nil
}
