package repo

import (
	"context"
	"errors"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist or is not
// visible to the requesting owner.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an email that already has an
// account.
var ErrDuplicateEmail = errors.New("email already registered")

type InstanceRepository interface {
	Create(ctx context.Context, inst model.Instance) error
	GetByID(ctx context.Context, id, userID string) (model.Instance, error)
	// GetByGatewayName looks an instance up by its gateway-assigned name,
	// regardless of owner. This is the push path's entry point.
	GetByGatewayName(ctx context.Context, gatewayName string) (model.Instance, error)
	ListByUser(ctx context.Context, userID string) ([]model.Instance, error)
	UpdateState(ctx context.Context, id string, status model.InstanceStatus, phoneNumber string, updatedAt time.Time) error
	Delete(ctx context.Context, id, userID string) error
	CountByUser(ctx context.Context, userID string) (total, connected int, err error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg model.Message) error
	ListByInstance(ctx context.Context, instanceID string, limit, offset int) ([]model.Message, error)
	CountByUser(ctx context.Context, userID string) (total, today int, err error)
}

type WebhookRepository interface {
	Create(ctx context.Context, wh model.Webhook) error
	GetByID(ctx context.Context, id, userID string) (model.Webhook, error)
	ListByInstance(ctx context.Context, instanceID string) ([]model.Webhook, error)
	// ListActiveByEvent returns the active subscriptions for an instance whose
	// event set contains the given event name (exact match).
	ListActiveByEvent(ctx context.Context, instanceID, event string) ([]model.Webhook, error)
	Delete(ctx context.Context, id, userID string) error
	MarkTriggered(ctx context.Context, id string, at time.Time) error
	CountActiveByUser(ctx context.Context, userID string) (int, error)
}

type UserRepository interface {
	Create(ctx context.Context, u model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, k model.APIKey) error
	// GetActiveByKey resolves a presented key to its record; inactive keys are
	// treated as not found.
	GetActiveByKey(ctx context.Context, key string) (model.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]model.APIKey, error)
	Deactivate(ctx context.Context, id, userID string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	CountActiveByUser(ctx context.Context, userID string) (int, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry model.ActivityLog) error
	List(ctx context.Context, userID, instanceID string, limit int) ([]model.ActivityLog, error)
}
