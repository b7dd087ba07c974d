// Command gateway is the API gateway in front of MS Plantilla. It loads the
// route table once at start and forwards requests by path prefix.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/plantilla/dbopen"
	"github.com/hazyhaar/plantilla/gateway"
	"github.com/hazyhaar/plantilla/observability"
	"github.com/hazyhaar/plantilla/shield"
)

func main() {
	configPath := env("GATEWAY_CONFIG", "")
	logLevel := env("LOG_LEVEL", "info")
	accessLogPath := env("ACCESS_LOG_DB", "")
	retentionDays := envInt("ACCESS_LOG_RETENTION_DAYS", 30)
	rps := envFloat("RATE_LIMIT_RPS", 0)
	burst := envInt("RATE_LIMIT_BURST", 20)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := gateway.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = gateway.LoadConfig(configPath)
		if err != nil {
			slog.Error("load config", "path", configPath, "error", err)
			os.Exit(1)
		}
	}
	port := env("PORT", "")
	if port != "" {
		cfg.Listen = ":" + port
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8001"
	}

	var opts []gateway.Option
	opts = append(opts, gateway.WithLogger(logger))

	// Optional access log.
	if accessLogPath != "" {
		db, err := dbopen.Open(accessLogPath,
			dbopen.WithMkdirAll(), dbopen.WithSchema(observability.Schema))
		if err != nil {
			slog.Error("access log db", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		al := observability.NewAccessLog(db, observability.WithLogger(logger))
		defer al.Close()
		al.StartRetention(ctx, retentionDays, time.Hour)
		opts = append(opts, gateway.WithAccessLog(al))
	}

	gw, err := gateway.New(cfg, opts...)
	if err != nil {
		slog.Error("route table", "error", err)
		os.Exit(1)
	}

	rl := shield.NewRateLimiter(rps, burst, "/healthz")
	if rl != nil {
		rl.StartGC(ctx.Done(), 10*time.Minute)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newHandler(gw, rl),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("gateway starting", "addr", cfg.Listen, "routes", len(gw.Rules()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("gateway stopped")
}

// newHandler mounts the health and introspection endpoints next to the
// route table. Everything else goes to gw, which answers 404 itself.
func newHandler(gw *gateway.Router, rl *shield.RateLimiter) http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.GatewayStack(rl) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/_gateway/routes", func(w http.ResponseWriter, _ *http.Request) {
		type route struct {
			Prefix       string `json:"prefix"`
			Target       string `json:"target"`
			ChangeOrigin bool   `json:"change_origin"`
		}
		rules := gw.Rules()
		out := make([]route, 0, len(rules))
		for _, rule := range rules {
			out = append(out, route{Prefix: rule.Prefix, Target: rule.Target.String(), ChangeOrigin: rule.ChangeOrigin})
		}
		writeJSON(w, http.StatusOK, out)
	})
	r.NotFound(gw.ServeHTTP)
	r.MethodNotAllowed(gw.ServeHTTP)
	return r
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
