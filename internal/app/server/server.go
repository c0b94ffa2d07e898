package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ems/internal/domain/activity"
	"ems/internal/domain/attendance"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/domain/dashboard"
	"ems/internal/domain/payroll"
	"ems/internal/platform/config"
	"ems/internal/platform/crypto"
	"ems/internal/platform/db"
	"ems/internal/platform/jobs"
	"ems/internal/platform/metrics"
	"ems/internal/platform/storage"
	"ems/internal/transport/http/api"
	activityhandler "ems/internal/transport/http/handlers/activity"
	attendancehandler "ems/internal/transport/http/handlers/attendance"
	authhandler "ems/internal/transport/http/handlers/auth"
	dashboardhandler "ems/internal/transport/http/handlers/dashboard"
	payrollhandler "ems/internal/transport/http/handlers/payroll"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/ui"
)

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

// App is the assembled service: session manager, views and background jobs.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Router   http.Handler
	Manager  *auth.Manager
	Jobs     *jobs.Service
	Metrics  *metrics.Collector
	AuditLog *audit.Log

	ready   []readinessCheck
	closers []func()
}

// New wires the application from cfg. External clients are only created
// when their address is configured.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = uuid.NewString() + uuid.NewString()
		logger.Warn("SESSION_SECRET not set, using an ephemeral secret")
	}
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.New(), Jobs: jobs.New(logger)}

	verifier, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	store, err := app.sessionStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	reader, recorder, err := app.auditTrail(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Manager = auth.NewManager(auth.ManagerConfig{
		Store:       store,
		Verifier:    verifier,
		Recorder:    recorder,
		KeyPrefix:   cfg.SessionKeyPrefix,
		LoginDelay:  cfg.LoginDelay,
		IdleTimeout: cfg.SessionIdleTimeout,
		MaxGates:    cfg.SessionMaxGates,
		Logger:      logger,
	})
	app.Jobs.Every(jobs.JobSessionSweep, cfg.SessionSweepInterval, func(context.Context) (any, error) {
		return map[string]int{"closed": app.Manager.Sweep(time.Now())}, nil
	})

	router, err := app.routes(reader)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Router = router
	return app, nil
}

func credentials(cfg config.Config) (*auth.CredentialTable, error) {
	entries := auth.DefaultCredentials()
	if cfg.CredentialsFile != "" {
		loaded, err := auth.LoadCredentialFile(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		entries = loaded
	}
	return auth.NewCredentialTable(entries)
}

func (a *App) sessionStore(ctx context.Context) (auth.Store, error) {
	cfg := a.Config
	var store auth.Store
	if cfg.RedisAddr != "" {
		client := storage.NewRedisClient(storage.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		a.closers = append(a.closers, func() { _ = client.Close() })
		redisStore := storage.NewRedis(client, cfg.SessionTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisStore.Health(pingCtx); err != nil {
			return nil, fmt.Errorf("redis unavailable: %w", err)
		}
		a.ready = append(a.ready, readinessCheck{name: "redis", check: redisStore.Health})
		store = redisStore
	} else {
		memory := storage.NewMemory(cfg.SessionTTL)
		a.Jobs.Every(jobs.JobStoragePurge, cfg.SessionSweepInterval, func(context.Context) (any, error) {
			return map[string]int{"purged": memory.Purge()}, nil
		})
		store = memory
	}

	if cfg.DataEncryptionKey != "" {
		sealer, err := crypto.NewSealer(cfg.DataEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("session encryption: %w", err)
		}
		store = storage.NewEncrypted(store, sealer)
	}
	return store, nil
}

// auditTrail always records to the in-memory log and slog; Postgres is
// added, and becomes the activity source, when DATABASE_URL is set.
func (a *App) auditTrail(ctx context.Context) (audit.Reader, audit.Recorder, error) {
	cfg := a.Config
	a.AuditLog = audit.NewLog(cfg.AuditLogCapacity)
	recorders := audit.Multi{a.AuditLog, audit.LogSink{Logger: a.Logger}}
	if cfg.DatabaseURL == "" {
		return a.AuditLog, recorders, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, pool.Close)
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			return nil, nil, err
		}
	}
	a.ready = append(a.ready, readinessCheck{name: "postgres", check: pool.Ping})
	pg := audit.NewStore(pool)
	return pg, append(recorders, pg), nil
}

func (a *App) routes(reader audit.Reader) (http.Handler, error) {
	cfg := a.Config
	renderer, err := ui.New(a.Logger)
	if err != nil {
		return nil, err
	}

	directory := core.NewDirectory(core.SeedEmployees())
	authHandler := authhandler.NewHandler(renderer, a.Metrics, a.Logger)
	dashboardHandler, err := dashboardhandler.NewHandler(dashboard.NewService(), renderer, cfg.TablePageSize, a.Logger)
	if err != nil {
		return nil, err
	}
	payrollHandler, err := payrollhandler.NewHandler(payroll.NewService(directory), directory, renderer, cfg.TablePageSize, a.Logger)
	if err != nil {
		return nil, err
	}
	attendanceHandler, err := attendancehandler.NewHandler(attendance.NewService(directory), directory, renderer, cfg.TablePageSize, a.Logger)
	if err != nil {
		return nil, err
	}
	activityHandler, err := activityhandler.NewHandler(activity.NewService(reader), renderer, cfg.TablePageSize, a.Logger)
	if err != nil {
		return nil, err
	}
	views := []interface{ RegisterRoutes(chi.Router) }{dashboardHandler, payrollHandler, attendanceHandler, activityHandler}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Logger, a.Metrics))
	router.Use(middleware.Recoverer(a.Logger))
	router.Use(middleware.SecureHeaders(cfg.Production()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderer.Fail(w, r, http.StatusNotFound, "not_found", "The page you requested does not exist.")
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", a.handleReady)
	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			snapshot := a.Metrics.Snapshot()
			snapshot["activeSessions"] = a.Manager.Len()
			snapshot["auditEvents"] = a.AuditLog.Len()
			snapshot["sessionSweeps"] = a.Jobs.Runs(jobs.JobSessionSweep)
			api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
		})
	}

	guard := middleware.RequireSession(middleware.GuardConfig{
		Wait:    cfg.SessionLoadingWait,
		Loading: renderer.Loading(),
		Metrics: a.Metrics,
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionConfig{
			Manager: a.Manager,
			Secret:  cfg.SessionSecret,
			TTL:     cfg.SessionTTL,
			Secure:  cfg.Production(),
			Logger:  a.Logger,
		}))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})
		authHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(guard)
			for _, v := range views {
				v.RegisterRoutes(r)
			}
		})

		r.Route("/api/v1", func(r chi.Router) {
			authHandler.RegisterAPIRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(guard)
				for _, v := range views {
					v.RegisterRoutes(r)
				}
			})
		})
	})
	return router, nil
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, rc := range a.ready {
		if err := rc.check(ctx); err != nil {
			a.Logger.Warn("readiness check failed", "dependency", rc.name, "err", err)
			http.Error(w, rc.name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Run serves HTTP and the job scheduler until ctx is cancelled, then drains
// in-flight requests within the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("EMS server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.Jobs.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.ShutdownTimeout)
		defer cancel()
		a.Manager.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close tears down the session manager and external clients.
func (a *App) Close() {
	if a.Manager != nil {
		a.Manager.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
