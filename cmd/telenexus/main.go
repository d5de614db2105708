package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/telenexus-admin/Api/internal/api"
	"github.com/telenexus-admin/Api/internal/audit"
	"github.com/telenexus-admin/Api/internal/auth"
	"github.com/telenexus-admin/Api/internal/cache"
	"github.com/telenexus-admin/Api/internal/client"
	"github.com/telenexus-admin/Api/internal/config"
	"github.com/telenexus-admin/Api/internal/dispatch"
	"github.com/telenexus-admin/Api/internal/repo"
	"github.com/telenexus-admin/Api/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx, db); err != nil {
		return err
	}

	var store cache.Cache = cache.Noop{}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		store = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	instances := repo.NewPostgresInstanceRepo(db)
	messages := repo.NewPostgresMessageRepo(db)
	webhooks := repo.NewPostgresWebhookRepo(db)
	users := repo.NewPostgresUserRepo(db)
	apiKeys := repo.NewPostgresAPIKeyRepo(db)
	logs := repo.NewPostgresAuditRepo(db)

	gateway := client.NewGatewayClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout)
	webhookClient := client.NewWebhookClient()

	dispatcher := dispatch.New(webhooks, webhookClient, cfg.Dispatch.QueueSize)
	dispatcher.Start()
	defer dispatcher.Stop()

	handler := api.NewHandler(api.Deps{
		Users:      users,
		Instances:  instances,
		Messages:   messages,
		Webhooks:   webhooks,
		APIKeys:    apiKeys,
		Logs:       logs,
		Tokens:     auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)),
		TokenTTL:   cfg.Auth.TokenTTL,
		Gateway:    gateway,
		Reconciler: service.NewReconciler(gateway, instances, dispatcher),
		Sender:     service.NewSender(gateway, messages, dispatcher),
		Ingestor:   service.NewIngestor(instances, messages, dispatcher, store),
		Dispatcher: dispatcher,
		Probe:      webhookClient,
		Cache:      store,
		Audit:      audit.NewRecorder(logs),
	})

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: loggingMiddleware(api.Router(handler)),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.Address, "redis", cfg.Redis.Enabled)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
