package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
)

type PostgresInstanceRepo struct {
	db *sql.DB
}

func NewPostgresInstanceRepo(db *sql.DB) *PostgresInstanceRepo {
	return &PostgresInstanceRepo{db: db}
}

const instanceColumns = `id, user_id, name, description, gateway_name, status, phone_number, created_at, updated_at`

func (r *PostgresInstanceRepo) Create(ctx context.Context, inst model.Instance) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instances (id, user_id, name, description, gateway_name, status, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		inst.ID,
		inst.UserID,
		inst.Name,
		inst.Description,
		inst.GatewayName,
		string(inst.Status),
		inst.PhoneNumber,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	return err
}

func (r *PostgresInstanceRepo) GetByID(ctx context.Context, id, userID string) (model.Instance, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	return scanInstance(row)
}

func (r *PostgresInstanceRepo) GetByGatewayName(ctx context.Context, gatewayName string) (model.Instance, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE gateway_name = $1 AND gateway_name <> ''
	`, gatewayName)
	return scanInstance(row)
}

func (r *PostgresInstanceRepo) ListByUser(ctx context.Context, userID string) ([]model.Instance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (r *PostgresInstanceRepo) UpdateState(ctx context.Context, id string, status model.InstanceStatus, phoneNumber string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE instances
		SET status = $2, phone_number = $3, updated_at = $4
		WHERE id = $1
	`, id, string(status), phoneNumber, updatedAt)
	return err
}

func (r *PostgresInstanceRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM instances
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

func (r *PostgresInstanceRepo) CountByUser(ctx context.Context, userID string) (total, connected int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'connected')
		FROM instances
		WHERE user_id = $1
	`, userID)
	if err := row.Scan(&total, &connected); err != nil {
		return 0, 0, err
	}
	return total, connected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (model.Instance, error) {
	var inst model.Instance
	var status string
	err := row.Scan(
		&inst.ID,
		&inst.UserID,
		&inst.Name,
		&inst.Description,
		&inst.GatewayName,
		&status,
		&inst.PhoneNumber,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Instance{}, ErrNotFound
	}
	if err != nil {
		return model.Instance{}, err
	}
	inst.Status = model.InstanceStatus(status)
	return inst, nil
}
