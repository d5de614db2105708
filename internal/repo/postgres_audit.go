package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/telenexus-admin/Api/internal/model"
)

type PostgresAuditRepo struct {
	db *sql.DB
}

func NewPostgresAuditRepo(db *sql.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

func (r *PostgresAuditRepo) Create(ctx context.Context, entry model.ActivityLog) error {
	var details []byte
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return err
		}
		details = b
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, instance_id, action, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID,
		entry.UserID,
		nullString(entry.InstanceID),
		entry.Action,
		details,
		entry.IPAddress,
		entry.CreatedAt,
	)
	return err
}

func (r *PostgresAuditRepo) List(ctx context.Context, userID, instanceID string, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, instance_id, action, details, ip_address, created_at
		FROM activity_logs
		WHERE user_id = $1
	`
	args := []any{userID}
	if instanceID != "" {
		query += ` AND instance_id = $2`
		args = append(args, instanceID)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActivityLog
	for rows.Next() {
		var entry model.ActivityLog
		var instID sql.NullString
		var details []byte

		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&instID,
			&entry.Action,
			&details,
			&entry.IPAddress,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}

		entry.InstanceID = instID.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
