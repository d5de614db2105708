// Package audit records user-visible activity for the dashboard log view.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

type Recorder struct {
	logs repo.AuditRepository
}

func NewRecorder(logs repo.AuditRepository) *Recorder {
	return &Recorder{logs: logs}
}

// Record writes one activity entry. Failures are logged and swallowed; the
// audit trail never fails the operation it describes.
func (r *Recorder) Record(ctx context.Context, userID, action, instanceID string, details map[string]any) {
	entry := model.ActivityLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		InstanceID: instanceID,
		Action:     action,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.logs.Create(ctx, entry); err != nil {
		slog.Warn("failed to record activity", "action", action, "user", userID, "err", err)
	}
}
