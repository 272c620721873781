// wordchat - chat proxy with a vocabulary mini-game
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/wordchat/internal/api"
	"github.com/ashureev/wordchat/internal/chat"
	"github.com/ashureev/wordchat/internal/config"
	"github.com/ashureev/wordchat/internal/health"
	"github.com/ashureev/wordchat/internal/learning"
	"github.com/ashureev/wordchat/internal/llm"
	"github.com/ashureev/wordchat/internal/middleware"
	"github.com/ashureev/wordchat/internal/session"
	"github.com/ashureev/wordchat/internal/store"
	"github.com/ashureev/wordchat/internal/transcript"
	"github.com/ashureev/wordchat/internal/transport"
	"github.com/ashureev/wordchat/web"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

// deps are the long-lived components shared by the transports.
type deps struct {
	chat    *chat.Service
	model   llm.Client
	store   session.Store
	history store.Repository
	conns   *transport.ConnManager
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "mock_mode", cfg.MockMode())

	d, cleanup, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// SSE connections need long timeouts, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, d),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	hs := health.NewServer(logger)
	checks := healthChecks(d)

	session.StartJanitor(ctx, d.store, cfg.Session.JanitorInterval, pruneHistory(d.history, cfg.History.Retention))
	slog.Info("Session janitor configured", "session_ttl", cfg.Session.TTL, "max_sessions", cfg.Session.MaxSessions)

	var grpcLis net.Listener
	if cfg.GRPCHealthAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen grpc health: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			return hs.Serve(grpcLis)
		})
		g.Go(func() error {
			hs.Watch(gctx, 30*time.Second, checks)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hs.Stop()
		d.conns.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// buildDeps wires the model, classifier, stores and chat service.
func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	keyword, err := loadKeywords(cfg)
	if err != nil {
		return nil, nil, err
	}

	model, err := newModel(ctx, cfg, keyword, logger)
	if err != nil {
		return nil, nil, err
	}
	classifier := newClassifier(cfg, model, keyword, logger)

	var history store.Repository
	if cfg.History.Enabled {
		repo, err := store.NewSQLite(cfg.History.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize database: %w", err)
		}
		closers = append(closers, func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		})
		if err := repo.Ping(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("database health check failed: %w", err)
		}
		history = repo
		slog.Info("Vocabulary history enabled", "db_path", cfg.History.DBPath)
	}

	globalFile := ""
	if cfg.ConversationLog.GlobalEnabled {
		globalFile = cfg.ConversationLog.GlobalPath
	}
	convLog, err := transcript.New(transcript.Config{
		Enabled:    cfg.ConversationLog.Enabled,
		Dir:        cfg.ConversationLog.Dir,
		GlobalFile: globalFile,
		QueueSize:  cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("initialize conversation logger: %w", err)
	}
	closers = append(closers, func() {
		if closeErr := convLog.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	})

	sessions := session.NewMemoryStore(
		session.WithMaxSessions(cfg.Session.MaxSessions),
		session.WithTTL(cfg.Session.TTL),
	)

	svc := chat.NewService(model, classifier, learning.NewGenerator(model, logger), sessions, chat.Options{
		LessonTTL:  cfg.Session.LessonTTL,
		History:    history,
		Transcript: convLog,
		Logger:     logger,
	})

	return &deps{
		chat:    svc,
		model:   model,
		store:   sessions,
		history: history,
		conns:   transport.NewConnManager(),
	}, cleanup, nil
}

// newModel returns the mock when no API key is set. The mock routes prompts
// with the same keywords the fallback classifier uses.
func newModel(ctx context.Context, cfg *config.Config, keyword *learning.KeywordClassifier, logger *slog.Logger) (llm.Client, error) {
	if cfg.MockMode() {
		slog.Warn("API_KEY not set, serving scripted mock replies")
		return llm.NewMock(llm.WithIntentMatcher(keyword.Match)), nil
	}
	model, err := llm.NewGemini(ctx, cfg.APIKey, llm.WithModel(cfg.ModelName), llm.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("initialize model client: %w", err)
	}
	slog.Info("Model client initialized", "model", model.Model())
	return model, nil
}

func loadKeywords(cfg *config.Config) (*learning.KeywordClassifier, error) {
	var keywords []string
	if cfg.LearningKeywordsFile != "" {
		kw, err := learning.LoadKeywords(cfg.LearningKeywordsFile)
		if err != nil {
			return nil, fmt.Errorf("load learning keywords: %w", err)
		}
		keywords = kw
	}
	return learning.NewKeywordClassifier(keywords), nil
}

func newClassifier(cfg *config.Config, model llm.Client, keyword *learning.KeywordClassifier, logger *slog.Logger) learning.Classifier {
	if cfg.Classifier == config.ClassifierKeyword {
		slog.Info("Using keyword classifier", "keywords", len(keyword.Keywords()))
		return keyword
	}
	slog.Info("Using model classifier with keyword fallback")
	return learning.NewModelClassifier(model, keyword, logger)
}

// healthChecks are polled by the gRPC health service.
func healthChecks(d *deps) map[string]health.CheckFunc {
	checks := map[string]health.CheckFunc{}
	if p, ok := d.model.(llm.Pinger); ok {
		checks["model"] = p.Ping
	}
	if d.history != nil {
		checks["database"] = d.history.Ping
	}
	return checks
}

// pruneHistory drops vocabulary rows older than retention after each sweep.
func pruneHistory(history store.Repository, retention time.Duration) session.SweepCallback {
	if history == nil || retention <= 0 {
		return nil
	}
	return func(ctx context.Context, now time.Time) {
		n, err := history.PruneBefore(ctx, now.Add(-retention))
		if err != nil {
			slog.Warn("Failed to prune vocabulary history", "error", err)
			return
		}
		if n > 0 {
			slog.Info("Pruned vocabulary history", "rows", n)
		}
	}
}

func newRouter(cfg *config.Config, d *deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	var pinger api.Pinger
	if d.history != nil {
		pinger = d.history
	}
	api.NewHealthHandler(pinger, cfg).RegisterRoutes(r)
	api.NewChatHandler(d.chat, cfg.SSE.MaxRequestBodySize, cfg.SSE.KeepaliveInterval).RegisterRoutes(r)
	api.NewSessionHandler(d.chat).RegisterRoutes(r)

	ws := transport.NewWebSocketHandler(d.chat, d.conns, cfg.AllowedOrigins())
	r.Get("/ws/chat", ws.ServeHTTP)

	r.Handle("/*", web.SPAHandler())
	return r
}
