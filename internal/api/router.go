package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/", h.Root)

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("GET /api/auth/me", h.requireUser(h.Me))

	mux.HandleFunc("POST /api/instances", h.requireUser(h.CreateInstance))
	mux.HandleFunc("GET /api/instances", h.requireUser(h.ListInstances))
	mux.HandleFunc("GET /api/instances/{id}", h.requireUser(h.GetInstance))
	mux.HandleFunc("DELETE /api/instances/{id}", h.requireUser(h.DeleteInstance))
	mux.HandleFunc("POST /api/instances/{id}/connect", h.requireUser(h.ConnectInstance))
	mux.HandleFunc("POST /api/instances/{id}/disconnect", h.requireUser(h.DisconnectInstance))
	mux.HandleFunc("GET /api/instances/{id}/qr", h.requireUser(h.InstanceQR))

	mux.HandleFunc("POST /api/instances/{id}/messages", h.requireUser(h.SendMessage))
	mux.HandleFunc("GET /api/instances/{id}/messages", h.requireUser(h.ListMessages))

	mux.HandleFunc("POST /api/instances/{id}/webhooks", h.requireUser(h.CreateWebhook))
	mux.HandleFunc("GET /api/instances/{id}/webhooks", h.requireUser(h.ListWebhooks))
	mux.HandleFunc("DELETE /api/webhooks/{id}", h.requireUser(h.DeleteWebhook))
	mux.HandleFunc("POST /api/webhooks/{id}/test", h.requireUser(h.TestWebhook))

	mux.HandleFunc("POST /api/api-keys", h.requireUser(h.CreateAPIKey))
	mux.HandleFunc("GET /api/api-keys", h.requireUser(h.ListAPIKeys))
	mux.HandleFunc("DELETE /api/api-keys/{id}", h.requireUser(h.RevokeAPIKey))

	mux.HandleFunc("GET /api/logs", h.requireUser(h.ListLogs))
	mux.HandleFunc("GET /api/dashboard/stats", h.requireUser(h.DashboardStats))

	mux.HandleFunc("POST /api/v1/send-message", h.requireAPIKey("send_message", h.PublicSendMessage))
	mux.HandleFunc("GET /api/v1/instance-status", h.requireAPIKey("instance_status", h.PublicInstanceStatus))

	mux.HandleFunc("POST /api/gateway/events", h.GatewayEvents)

	return mux
}
