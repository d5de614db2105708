package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
)

type PostgresAPIKeyRepo struct {
	db *sql.DB
}

func NewPostgresAPIKeyRepo(db *sql.DB) *PostgresAPIKeyRepo {
	return &PostgresAPIKeyRepo{db: db}
}

func (r *PostgresAPIKeyRepo) Create(ctx context.Context, k model.APIKey) error {
	permissions, err := json.Marshal(k.Permissions)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, name, key, permissions, is_active, created_at, last_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
	`,
		k.ID,
		k.UserID,
		k.Name,
		k.Key,
		permissions,
		k.IsActive,
		k.CreatedAt,
	)
	return err
}

func (r *PostgresAPIKeyRepo) GetActiveByKey(ctx context.Context, key string) (model.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, key, permissions, is_active, created_at, last_used
		FROM api_keys
		WHERE key = $1 AND is_active
	`, key)
	return scanAPIKey(row)
}

func (r *PostgresAPIKeyRepo) ListByUser(ctx context.Context, userID string) ([]model.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, key, permissions, is_active, created_at, last_used
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *PostgresAPIKeyRepo) Deactivate(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE api_keys
		SET is_active = FALSE
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresAPIKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE api_keys
		SET last_used = $2
		WHERE id = $1
	`, id, at)
	return err
}

func (r *PostgresAPIKeyRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM api_keys
		WHERE user_id = $1 AND is_active
	`, userID).Scan(&n)
	return n, err
}

func scanAPIKey(row rowScanner) (model.APIKey, error) {
	var k model.APIKey
	var permissions []byte
	var lastUsed sql.NullTime

	err := row.Scan(
		&k.ID,
		&k.UserID,
		&k.Name,
		&k.Key,
		&permissions,
		&k.IsActive,
		&k.CreatedAt,
		&lastUsed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.APIKey{}, ErrNotFound
	}
	if err != nil {
		return model.APIKey{}, err
	}

	if err := json.Unmarshal(permissions, &k.Permissions); err != nil {
		return model.APIKey{}, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsed = &t
	}
	return k, nil
}
