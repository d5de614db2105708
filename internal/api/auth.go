package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telenexus-admin/Api/internal/auth"
	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
	"github.com/telenexus-admin/Api/internal/service"
)

var defaultKeyPermissions = []string{"send_message", "instance_status"}

// userHandler wraps a handler that requires a logged-in user. The user ID
// comes from the session token's subject.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (h *Handler) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(w, r, userID)
	}
}

// requireAPIKey guards the public v1 endpoints. The caller presents a
// tnx_-prefixed key; resolving it also bumps its last-used timestamp.
func (h *Handler) requireAPIKey(permission string, next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presented := bearerToken(r)
		if presented == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		key, err := h.apiKeys.GetActiveByKey(r.Context(), presented)
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if !hasPermission(key.Permissions, permission) {
			writeError(w, http.StatusForbidden, "api key lacks permission: "+permission)
			return
		}

		// Usage tracking must not block the call.
		if err := h.apiKeys.TouchLastUsed(r.Context(), key.ID, time.Now().UTC()); err != nil {
			slog.Warn("failed to update api key last_used", "key", key.ID, "err", err)
		}

		next(w, r, key.UserID)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func hasPermission(granted []string, want string) bool {
	for _, p := range granted {
		if p == want || p == "*" {
			return true
		}
	}
	return false
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Company  string `json:"company"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         req.Name,
		Company:      req.Company,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Generate(user.ID, h.tokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), user.ID, "user_registered", "", nil)

	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusForbidden, "account is deactivated")
		return
	}

	token, err := h.tokens.Generate(user.ID, h.tokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), user.ID, "user_login", "", nil)

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "user no longer exists")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type createAPIKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// CreateAPIKey returns the full key exactly once; listings only ever show a
// masked form.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request, userID string) {
	var req createAPIKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Permissions) == 0 {
		req.Permissions = defaultKeyPermissions
	}

	raw, err := auth.GenerateAPIKey()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	key := model.APIKey{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Key:         raw,
		Permissions: req.Permissions,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.apiKeys.Create(r.Context(), key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), userID, "api_key_created", "", map[string]any{"name": req.Name})

	writeJSON(w, http.StatusCreated, key)
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request, userID string) {
	keys, err := h.apiKeys.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for i := range keys {
		keys[i].Key = auth.MaskAPIKey(keys[i].Key)
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": keys})
}

func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	if err := h.apiKeys.Deactivate(r.Context(), id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "api key not found")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit.Record(r.Context(), userID, "api_key_revoked", "", map[string]any{"key_id": id})

	writeJSON(w, http.StatusOK, map[string]any{"status": "revoked"})
}

type publicSendRequest struct {
	InstanceID  string `json:"instance_id"`
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

// PublicSendMessage is the key-authenticated send endpoint for integrations.
func (h *Handler) PublicSendMessage(w http.ResponseWriter, r *http.Request, userID string) {
	var req publicSendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.InstanceID == "" || req.PhoneNumber == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "instance_id, phone_number and message are required")
		return
	}

	inst, err := h.instances.GetByID(r.Context(), req.InstanceID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	msg, err := h.sender.Send(r.Context(), inst, req.PhoneNumber, req.Message, "text")
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	h.audit.Record(r.Context(), userID, "message_sent", inst.ID, map[string]any{"via": "api_key"})

	writeJSON(w, http.StatusCreated, msg)
}

// PublicInstanceStatus reports a freshly reconciled view of one instance.
func (h *Handler) PublicInstanceStatus(w http.ResponseWriter, r *http.Request, userID string) {
	instanceID := r.URL.Query().Get("instance_id")
	if instanceID == "" {
		writeError(w, http.StatusBadRequest, "instance_id is required")
		return
	}

	inst, err := h.instances.GetByID(r.Context(), instanceID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fresh, _ := h.reconciler.Reconcile(r.Context(), inst)

	writeJSON(w, http.StatusOK, map[string]any{
		"instance_id":  fresh.ID,
		"status":       fresh.Status,
		"phone_number": fresh.PhoneNumber,
	})
}

func (h *Handler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, "instance has no gateway resource")
	case errors.Is(err, service.ErrNotConnected):
		writeError(w, http.StatusConflict, "instance is not connected")
	case errors.Is(err, service.ErrSendFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
