package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pribylovaa/student-portal/internal/access"
	"github.com/pribylovaa/student-portal/internal/cache"
	"github.com/pribylovaa/student-portal/internal/config"
	porthttp "github.com/pribylovaa/student-portal/internal/http"
	"github.com/pribylovaa/student-portal/internal/http/handlers"
	"github.com/pribylovaa/student-portal/internal/http/middleware"
	"github.com/pribylovaa/student-portal/internal/metrics"
	"github.com/pribylovaa/student-portal/internal/service"
	"github.com/pribylovaa/student-portal/internal/session"
	"github.com/pribylovaa/student-portal/internal/storage"
	"github.com/pribylovaa/student-portal/internal/storage/mongo"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ttl, err := cfg.Auth.SessionTTL()
	if err != nil {
		return err
	}

	// Подключение к БД: повторные попытки внутри mongo.New.
	str, err := mongo.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := str.Close(closeCtx); err != nil {
			log.Warn("mongo_close_failed", slog.String("err", err.Error()))
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Сервис.
	srvc := service.New(str, cfg.Auth)
	srvc.SetMetrics(m)

	// Redis опционален: без него вход работает без блокировки по попыткам.
	if cfg.Redis.URL != "" {
		attempts, err := cache.NewRedisAttempts(ctx, cfg.Redis.URL, cfg.Redis.LockoutAttempts, cfg.Redis.LockoutWindow)
		if err != nil {
			log.Warn("redis_unavailable", slog.String("err", err.Error()))
		} else {
			srvc.SetLoginAttempts(attempts)
			defer attempts.Close()
			log.Info("redis_connected")
		}
	}
	log.Info("service_initialized")

	codec := session.NewTokenCodec(cfg.Auth.SessionSecret, cfg.Auth.Issuer, ttl)
	sessions, err := session.NewStore(codec, session.StoreConfig{
		CookieName: cfg.Auth.CookieName,
		Secrets:    cfg.Auth.CookieSecrets,
		Secure:     cfg.IsProduction(),
	})
	if err != nil {
		return err
	}

	ctrl := access.New(sessions, codec, str)
	ctrl.SetMetrics(m)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.Limits.AuthRPS), cfg.Limits.AuthBurst)
	go limiter.Run(ctx, 3*time.Minute)

	router := porthttp.NewRouter(handlers.New(srvc, sessions), ctrl, porthttp.Options{
		Logger:      log,
		Timeout:     cfg.Timeouts.Service,
		Diagnostics: !cfg.IsProduction(),
		Limiter:     limiter,
	})

	var ready int32 // 0 — not ready; 1 — ready

	// Фоновая очистка просроченных токенов сброса пароля.
	startResetJanitor(ctx, str, log, 30*time.Minute)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Служебный HTTP: readiness/liveness/metrics на отдельном адресе.
	opsAddr := cfg.Ops.Addr()
	opsSrv := &http.Server{
		Addr:              opsAddr,
		Handler:           newOpsMux(&ready, str, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 2)
	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()
	go func() {
		log.Info("ops_listen_start", "addr", opsAddr)
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for name, srv := range map[string]*http.Server{"http": httpSrv, "ops": opsSrv} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(name+"_force_stop", slog.String("err", err.Error()))
			_ = srv.Close()
		} else {
			log.Info(name + "_stopped")
		}
	}

	return serveErr
}

type pinger interface {
	Ping(ctx context.Context) error
}

// newOpsMux собирает служебные ручки: /livez, /healthz (с проверкой БД) и /metrics.
func newOpsMux(ready *int32, db pinger, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal, config.EnvTest:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// startResetJanitor запускает фоновую задачу, которая периодически снимает
// просроченные токены сброса пароля через storage.ClearExpiredResetTokens.
func startResetJanitor(ctx context.Context, str storage.Storage, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := str.ClearExpiredResetTokens(ctx, time.Now().UTC())
				if err != nil {
					log.Error("reset_janitor_failed", slog.String("err", err.Error()))
					continue
				}
				if n > 0 {
					log.Info("reset_tokens_cleared", "count", n)
				}
			}
		}
	}()
}
