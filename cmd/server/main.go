// Valentine - interactive Valentine session server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/valentine/internal/api"
	"github.com/ashureev/valentine/internal/config"
	"github.com/ashureev/valentine/internal/domain"
	"github.com/ashureev/valentine/internal/health"
	"github.com/ashureev/valentine/internal/identity"
	"github.com/ashureev/valentine/internal/live"
	"github.com/ashureev/valentine/internal/middleware"
	"github.com/ashureev/valentine/internal/sink"
	"github.com/ashureev/valentine/internal/store"
	"github.com/ashureev/valentine/internal/valentine"
	"github.com/ashureev/valentine/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "base_path", cfg.BasePath)

	// Initialize dependencies.
	var (
		db      api.Pinger
		newSink func(key string) valentine.Sink
	)
	if cfg.Sink.Enabled {
		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()
		db = repo
		logResponseCounts(repo)

		sinkCfg := sink.Config{QueueSize: cfg.Sink.QueueSize, WriteTimeout: cfg.Sink.WriteTimeout}
		newSink = func(key string) valentine.Sink {
			return sink.NewAsync(repo, key, sinkCfg, logger)
		}
	} else {
		slog.Info("Response sink disabled (SINK_ENABLED=false)")
	}

	// Initialize services.
	hub := live.NewHub()
	sessions := valentine.NewRegistry(valentine.RegistryOptions{
		Tick:     cfg.TickInterval,
		NewSink:  newSink,
		Observer: hub.Publish,
	})
	defer func() {
		sessions.CloseAll()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sessions.Wait(ctx); err != nil {
			slog.Warn("Session records not fully flushed", "error", err)
		}
	}()

	// Initialize handlers.
	baseHandler := api.NewHandler(sessions)
	sessionHandler := api.NewSessionHandler(baseHandler)
	compatHandler := api.NewCompatHandler()
	healthHandler := api.NewHealthHandler(db, sessions)
	configHandler := api.NewConfigHandler(api.ClientConfig{
		TickMillis:      cfg.TickInterval.Milliseconds(),
		ResultCountdown: valentine.ResultCountdown,
		BasePath:        cfg.BasePath,
		Persistence:     cfg.Sink.Enabled,
	})
	origins := cfg.AllowedOrigins()
	wsHandler := live.NewHandler(hub, sessions, origins, cfg.IsDevelopment())

	// Routes relative to the base path.
	app := chi.NewRouter()
	app.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: origins,
		AllowedHeaders: []string{identity.TabHeaderName},
		MaxAge:         10 * time.Minute,
	}))
	app.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(app)
	configHandler.RegisterRoutes(app)
	sessionHandler.RegisterRoutes(app)
	compatHandler.RegisterRoutes(app)
	app.Get("/ws/session", wsHandler.ServeHTTP)

	spa := web.SPAHandler(cfg.BasePath)
	if cfg.BasePath != "/" {
		spa = http.StripPrefix(cfg.BasePath, spa)
	}
	app.Handle("/*", spa)

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	if cfg.BasePath == "/" {
		r.Mount("/", app)
	} else {
		r.Mount(cfg.BasePath, app)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, cfg.BasePath+"/", http.StatusFound)
		})
	}

	// WebSocket connections are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GRPCHealthPort != "" {
		if err := startHealthServer(gctx, g, cfg.GRPCHealthPort, db); err != nil {
			return err
		}
	}

	valentine.StartReaper(gctx, sessions, cfg.ReaperInterval, cfg.SessionTTL, hub.CloseSession)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func startHealthServer(ctx context.Context, g *errgroup.Group, port string, db health.Pinger) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("listen for gRPC health: %w", err)
	}

	hs := health.New(db, 0)
	g.Go(func() error {
		if err := hs.Serve(lis); err != nil {
			return fmt.Errorf("grpc health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		hs.Monitor(ctx)
		hs.Stop()
		return nil
	})
	return nil
}

func logResponseCounts(repo store.Repository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pending, err := repo.CountResponses(ctx, domain.FinalPending)
	if err != nil {
		slog.Warn("Failed to count stored responses", "error", err)
		return
	}
	accepted, err := repo.CountResponses(ctx, domain.FinalYes)
	if err != nil {
		slog.Warn("Failed to count stored responses", "error", err)
		return
	}
	slog.Info("Database connected", "pending_responses", pending, "accepted_responses", accepted)
}
