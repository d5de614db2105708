package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
)

type PostgresWebhookRepo struct {
	db *sql.DB
}

func NewPostgresWebhookRepo(db *sql.DB) *PostgresWebhookRepo {
	return &PostgresWebhookRepo{db: db}
}

func (r *PostgresWebhookRepo) Create(ctx context.Context, wh model.Webhook) error {
	events, err := json.Marshal(wh.Events)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO webhooks (id, instance_id, url, events, is_active, created_at, last_triggered)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)
	`,
		wh.ID,
		wh.InstanceID,
		wh.URL,
		events,
		wh.IsActive,
		wh.CreatedAt,
	)
	return err
}

func (r *PostgresWebhookRepo) GetByID(ctx context.Context, id, userID string) (model.Webhook, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT w.id, w.instance_id, w.url, w.events, w.is_active, w.created_at, w.last_triggered
		FROM webhooks w
		JOIN instances i ON i.id = w.instance_id
		WHERE w.id = $1 AND i.user_id = $2
	`, id, userID)
	return scanWebhook(row)
}

func (r *PostgresWebhookRepo) ListByInstance(ctx context.Context, instanceID string) ([]model.Webhook, error) {
	return r.list(ctx, `
		SELECT id, instance_id, url, events, is_active, created_at, last_triggered
		FROM webhooks
		WHERE instance_id = $1
		ORDER BY created_at ASC
	`, instanceID)
}

func (r *PostgresWebhookRepo) ListActiveByEvent(ctx context.Context, instanceID, event string) ([]model.Webhook, error) {
	return r.list(ctx, `
		SELECT id, instance_id, url, events, is_active, created_at, last_triggered
		FROM webhooks
		WHERE instance_id = $1 AND is_active AND events @> to_jsonb($2::text)
		ORDER BY created_at ASC
	`, instanceID, event)
}

func (r *PostgresWebhookRepo) list(ctx context.Context, query string, args ...any) ([]model.Webhook, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Webhook
	for rows.Next() {
		wh, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

func (r *PostgresWebhookRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM webhooks w
		USING instances i
		WHERE w.id = $1 AND i.id = w.instance_id AND i.user_id = $2
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

func (r *PostgresWebhookRepo) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhooks
		SET last_triggered = $2
		WHERE id = $1
	`, id, at)
	return err
}

func (r *PostgresWebhookRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM webhooks w
		JOIN instances i ON i.id = w.instance_id
		WHERE i.user_id = $1 AND w.is_active
	`, userID).Scan(&n)
	return n, err
}

func scanWebhook(row rowScanner) (model.Webhook, error) {
	var wh model.Webhook
	var events []byte
	var lastTriggered sql.NullTime

	err := row.Scan(
		&wh.ID,
		&wh.InstanceID,
		&wh.URL,
		&events,
		&wh.IsActive,
		&wh.CreatedAt,
		&lastTriggered,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Webhook{}, ErrNotFound
	}
	if err != nil {
		return model.Webhook{}, err
	}

	if err := json.Unmarshal(events, &wh.Events); err != nil {
		return model.Webhook{}, err
	}
	if lastTriggered.Valid {
		t := lastTriggered.Time
		wh.LastTriggered = &t
	}
	return wh, nil
}
