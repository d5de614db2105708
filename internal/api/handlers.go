package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/telenexus-admin/Api/internal/audit"
	"github.com/telenexus-admin/Api/internal/auth"
	"github.com/telenexus-admin/Api/internal/cache"
	"github.com/telenexus-admin/Api/internal/repo"
	"github.com/telenexus-admin/Api/internal/service"
)

// Gateway is the control-plane surface the HTTP layer needs beyond what the
// services consume: provisioning, pairing and teardown of gateway resources.
type Gateway interface {
	Provision(ctx context.Context, instanceName string) (map[string]any, error)
	QueryState(ctx context.Context, instanceName string) string
	QueryQR(ctx context.Context, instanceName string) string
	QueryOwnerNumber(ctx context.Context, instanceName string) string
	SendText(ctx context.Context, instanceName, recipient, body string) (map[string]any, error)
	Deprovision(ctx context.Context, instanceName string) bool
	Disconnect(ctx context.Context, instanceName string) bool
}

// Prober makes one synchronous webhook delivery, used by the test endpoint.
type Prober interface {
	Deliver(ctx context.Context, url, event string, data any) (int, error)
}

type Handler struct {
	users     repo.UserRepository
	instances repo.InstanceRepository
	messages  repo.MessageRepository
	webhooks  repo.WebhookRepository
	apiKeys   repo.APIKeyRepository
	logs      repo.AuditRepository

	tokens   auth.TokenVerifier
	tokenTTL time.Duration

	gateway    Gateway
	reconciler *service.Reconciler
	sender     *service.Sender
	ingestor   *service.Ingestor
	dispatcher service.Dispatcher
	probe      Prober
	cache      cache.Cache
	audit      *audit.Recorder
}

type Deps struct {
	Users     repo.UserRepository
	Instances repo.InstanceRepository
	Messages  repo.MessageRepository
	Webhooks  repo.WebhookRepository
	APIKeys   repo.APIKeyRepository
	Logs      repo.AuditRepository

	Tokens   auth.TokenVerifier
	TokenTTL time.Duration

	Gateway    Gateway
	Reconciler *service.Reconciler
	Sender     *service.Sender
	Ingestor   *service.Ingestor
	Dispatcher service.Dispatcher
	Probe      Prober
	Cache      cache.Cache
	Audit      *audit.Recorder
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		users:      d.Users,
		instances:  d.Instances,
		messages:   d.Messages,
		webhooks:   d.Webhooks,
		apiKeys:    d.APIKeys,
		logs:       d.Logs,
		tokens:     d.Tokens,
		tokenTTL:   d.TokenTTL,
		gateway:    d.Gateway,
		reconciler: d.Reconciler,
		sender:     d.Sender,
		ingestor:   d.Ingestor,
		dispatcher: d.Dispatcher,
		probe:      d.Probe,
		cache:      d.Cache,
		audit:      d.Audit,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "telenexus-api",
		"status":  "ok",
	})
}

func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request, userID string) {
	totalInstances, connected, err := h.instances.CountByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	totalMessages, today, err := h.messages.CountByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	activeWebhooks, err := h.webhooks.CountActiveByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	activeKeys, err := h.apiKeys.CountActiveByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_instances":     totalInstances,
		"connected_instances": connected,
		"total_messages":      totalMessages,
		"messages_today":      today,
		"active_webhooks":     activeWebhooks,
		"active_api_keys":     activeKeys,
	})
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request, userID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	instanceID := r.URL.Query().Get("instance_id")

	items, err := h.logs.List(r.Context(), userID, instanceID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
