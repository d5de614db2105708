package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

// qrCacheTTL bounds how stale a served pairing code can be. The gateway
// rotates codes on its own schedule, so this stays short.
const qrCacheTTL = 60 * time.Second

type createInstanceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateInstance provisions a gateway resource and persists the local record.
// When provisioning fails the record is still created without a gateway name;
// such instances report disconnected until deleted and recreated.
func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request, userID string) {
	var req createInstanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	gatewayName := model.GatewayInstanceName(userID, req.Name)
	var provisionErr error
	if _, err := h.gateway.Provision(r.Context(), gatewayName); err != nil {
		slog.Error("gateway provisioning failed", "instance_name", gatewayName, "err", err)
		provisionErr = err
		gatewayName = ""
	}

	now := time.Now().UTC()
	inst := model.Instance{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		GatewayName: gatewayName,
		Status:      model.StatusDisconnected,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.instances.Create(r.Context(), inst); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), userID, "instance_created", inst.ID, map[string]any{"name": req.Name})

	resp := map[string]any{"instance": inst}
	if provisionErr != nil {
		resp["warning"] = "gateway provisioning failed: " + provisionErr.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListInstances reconciles every instance against the gateway before
// answering, so the list always reflects externally driven changes.
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request, userID string) {
	stored, err := h.instances.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]model.Instance, 0, len(stored))
	for _, inst := range stored {
		fresh, _ := h.reconciler.Reconcile(r.Context(), inst)
		items = append(items, fresh)
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}

	fresh, _ := h.reconciler.Reconcile(r.Context(), inst)
	writeJSON(w, http.StatusOK, fresh)
}

func (h *Handler) DeleteInstance(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}

	if inst.GatewayName != "" {
		if !h.gateway.Deprovision(r.Context(), inst.GatewayName) {
			slog.Warn("gateway deprovision failed, deleting local record anyway",
				"instance", inst.ID, "instance_name", inst.GatewayName)
		}
	}

	if err := h.instances.Delete(r.Context(), inst.ID, userID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), userID, "instance_deleted", inst.ID, map[string]any{"name": inst.Name})

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// ConnectInstance starts a pairing attempt: fetches a QR code from the gateway
// and moves the instance to connecting until a connection.update arrives.
func (h *Handler) ConnectInstance(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}
	if inst.GatewayName == "" {
		writeError(w, http.StatusBadRequest, "instance has no gateway resource")
		return
	}

	qr := h.fetchQR(r, inst)

	if err := h.instances.UpdateState(r.Context(), inst.ID, model.StatusConnecting, inst.PhoneNumber, time.Now().UTC()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), userID, "instance_connect", inst.ID, nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"status": model.StatusConnecting,
		"qr":     nullable(qr),
	})
}

func (h *Handler) DisconnectInstance(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}

	if inst.GatewayName != "" {
		if !h.gateway.Disconnect(r.Context(), inst.GatewayName) {
			slog.Warn("gateway logout failed, marking disconnected anyway",
				"instance", inst.ID, "instance_name", inst.GatewayName)
		}
	}

	if err := h.instances.UpdateState(r.Context(), inst.ID, model.StatusDisconnected, "", time.Now().UTC()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.dispatcher.Dispatch(inst.ID, model.InstanceEvent(model.StatusDisconnected), map[string]any{
		"instance_id": inst.ID,
		"status":      model.StatusDisconnected,
	})

	h.audit.Record(r.Context(), userID, "instance_disconnected", inst.ID, nil)

	writeJSON(w, http.StatusOK, map[string]any{"status": model.StatusDisconnected})
}

// InstanceQR serves the current pairing code. A connected instance has no code
// to show.
func (h *Handler) InstanceQR(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}
	if inst.GatewayName == "" {
		writeError(w, http.StatusBadRequest, "instance has no gateway resource")
		return
	}

	fresh, _ := h.reconciler.Reconcile(r.Context(), inst)
	if fresh.Status == model.StatusConnected {
		writeJSON(w, http.StatusOK, map[string]any{
			"qr":      nil,
			"message": "instance already connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"qr": nullable(h.fetchQR(r, fresh))})
}

// fetchQR serves from cache when possible so rapid polling does not hammer the
// gateway. Cache failures degrade to a direct fetch.
func (h *Handler) fetchQR(r *http.Request, inst model.Instance) string {
	if cached, err := h.cache.QR(r.Context(), inst.ID); err == nil && cached != "" {
		return cached
	}

	qr := h.gateway.QueryQR(r.Context(), inst.GatewayName)
	if qr != "" {
		if err := h.cache.StoreQR(r.Context(), inst.ID, qr, qrCacheTTL); err != nil {
			slog.Warn("failed to cache qr code", "instance", inst.ID, "err", err)
		}
	}
	return qr
}

type sendMessageRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PhoneNumber == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "phone_number and message are required")
		return
	}

	msg, err := h.sender.Send(r.Context(), inst, req.PhoneNumber, req.Message, req.MessageType)
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	h.audit.Record(r.Context(), userID, "message_sent", inst.ID, nil)

	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.messages.ListByInstance(r.Context(), inst.ID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (h *Handler) CreateWebhook(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}

	var req createWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" || len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "url and events are required")
		return
	}

	wh := model.Webhook{
		ID:         uuid.NewString(),
		InstanceID: inst.ID,
		URL:        req.URL,
		Events:     req.Events,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.webhooks.Create(r.Context(), wh); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), userID, "webhook_created", inst.ID, map[string]any{"url": req.URL})

	writeJSON(w, http.StatusCreated, wh)
}

func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request, userID string) {
	inst, ok := h.ownedInstance(w, r, userID)
	if !ok {
		return
	}

	items, err := h.webhooks.ListByInstance(r.Context(), inst.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	if err := h.webhooks.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook not found")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), userID, "webhook_deleted", "", map[string]any{"webhook_id": id})

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// TestWebhook delivers a single synchronous probe event to the subscriber so
// users can verify their endpoint before relying on it.
func (h *Handler) TestWebhook(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	wh, err := h.webhooks.GetByID(r.Context(), id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "webhook not found")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	code, err := h.probe.Deliver(r.Context(), wh.URL, model.EventTest, map[string]any{
		"webhook_id": wh.ID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     false,
			"status_code": code,
			"error":       err.Error(),
		})
		return
	}

	if err := h.webhooks.MarkTriggered(r.Context(), wh.ID, time.Now().UTC()); err != nil {
		slog.Warn("failed to record webhook trigger time", "webhook", wh.ID, "err", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"status_code": code,
	})
}

func (h *Handler) ownedInstance(w http.ResponseWriter, r *http.Request, userID string) (model.Instance, bool) {
	inst, err := h.instances.GetByID(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "instance not found")
		return model.Instance{}, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return model.Instance{}, false
	}
	return inst, true
}

// nullable maps "" to JSON null so clients can distinguish "no code available"
// from an empty string.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
