package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

// Reconciler refreshes local instance state from the gateway on demand. It is
// purely read-driven; there is no background polling, so state between reads is
// allowed to be stale.
type Reconciler struct {
	gateway    Gateway
	instances  repo.InstanceRepository
	dispatcher Dispatcher
}

func NewReconciler(gateway Gateway, instances repo.InstanceRepository, dispatcher Dispatcher) *Reconciler {
	return &Reconciler{
		gateway:    gateway,
		instances:  instances,
		dispatcher: dispatcher,
	}
}

// Reconcile queries the gateway for inst's current state, persists any
// difference against the stored record and returns the fresh view. The fresh
// view is returned even when persistence fails; a failed write only means the
// next read recomputes the same diff.
func (r *Reconciler) Reconcile(ctx context.Context, inst model.Instance) (model.Instance, bool) {
	status := model.StatusDisconnected
	phone := inst.PhoneNumber

	// An instance that never got a gateway resource is disconnected by
	// definition; don't bother the gateway about it.
	if inst.GatewayName != "" {
		status = MapStatus(r.gateway.QueryState(ctx, inst.GatewayName))
		if status == model.StatusConnected {
			if owner := r.gateway.QueryOwnerNumber(ctx, inst.GatewayName); owner != "" {
				phone = owner
			}
		}
	}

	statusChanged := status != inst.Status
	if !statusChanged && phone == inst.PhoneNumber {
		return inst, false
	}

	inst.Status = status
	inst.PhoneNumber = phone
	inst.UpdatedAt = time.Now().UTC()

	if err := r.instances.UpdateState(ctx, inst.ID, status, phone, inst.UpdatedAt); err != nil {
		slog.Error("reconcile: failed to persist instance state", "instance", inst.ID, "err", err)
	}

	if statusChanged {
		r.dispatcher.Dispatch(inst.ID, model.InstanceEvent(status), map[string]any{
			"instance_id": inst.ID,
			"status":      string(status),
		})
	}

	return inst, true
}
