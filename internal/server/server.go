package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bayni/apiserver/config"
	"github.com/bayni/apiserver/internal/handlers"
	"github.com/bayni/apiserver/internal/kv"
	appmiddleware "github.com/bayni/apiserver/internal/middleware"
	"github.com/bayni/apiserver/internal/mq"
	"github.com/bayni/apiserver/internal/services"
	"github.com/bayni/apiserver/internal/storage"
	"github.com/bayni/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	kv         kv.Store
	mq         *mq.MQ
	logger     *slog.Logger

	// stopNotifier and notifierDone are set when the server runs the
	// notifier on a local broker.
	stopNotifier context.CancelFunc
	notifierDone chan struct{}
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}

	kvStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	s := &Server{kv: kvStore, logger: logger}
	if err := s.wire(ctx, cfg, jwtSecret); err != nil {
		s.closeBackends()
		return nil, err
	}
	return s, nil
}

func (s *Server) wire(ctx context.Context, cfg config.Config, jwtSecret string) error {
	users := store.NewUserDirectory(s.kv)
	feed := store.NewContentFeed(s.kv)
	consultations := store.NewConsultationLog(s.kv)
	schedules := store.NewScheduleBook(s.kv)

	if cfg.MigrateLegacyOnStart {
		report, err := users.MigrateLegacy(ctx)
		if err != nil {
			return fmt.Errorf("migrate legacy records: %w", err)
		}
		if report != (store.LegacyReport{}) {
			s.logger.InfoContext(ctx, "legacy records migrated",
				"imported", report.ImportedUsers,
				"rehashed", report.RehashedUsers,
				"skipped", report.SkippedRecords,
				"session_restored", report.SessionRestored,
			)
		}
	}

	var media services.MediaStore
	if cfg.Storage.Backend != "" {
		st, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		media = st
	}

	var events services.EventPublisher
	if cfg.MQ.Backend != "" {
		broker, err := mq.Connect(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("connect mq: %w", err)
		}
		s.mq = broker
		events = broker

		if cfg.MQ.Backend == "local" {
			s.startNotifier(services.NewNotifier(users, nil, s.logger))
		}
	}

	userService := services.NewUserService(users, s.logger)
	feedService := services.NewFeedService(feed, users, media, events, s.logger)
	consultationService := services.NewConsultationService(consultations, users, events, s.logger)
	scheduleService := services.NewScheduleService(schedules, users)

	authHandler := handlers.NewAuthHandler(userService, jwtSecret, cfg.Auth.TokenTTL)
	authMiddleware := authHandler.RequireAuth

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		appmiddleware.Logging(s.logger),
		appmiddleware.Metrics(),
		appmiddleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/session", handlers.NewUserHandler(userService).Session)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/doctors", func(r chi.Router) {
		handlers.DoctorRouter(r, scheduleService, userService)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, feedService, authMiddleware)
	})
	router.Route("/media", func(r chi.Router) {
		handlers.MediaRouter(r, feedService)
	})
	router.Route("/consultations", func(r chi.Router) {
		handlers.ConsultationRouter(r, consultationService, authMiddleware)
	})
	router.Route("/schedule", func(r chi.Router) {
		handlers.ScheduleRouter(r, scheduleService, userService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends()
	return err
}

// startNotifier consumes consultation events in this process. A local
// broker has no subscribers elsewhere, so no worker can take them.
func (s *Server) startNotifier(notifier *services.Notifier) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopNotifier = cancel
	s.notifierDone = make(chan struct{})
	go func() {
		defer close(s.notifierDone)
		if err := notifier.Run(ctx, s.mq); err != nil && !errors.Is(err, mq.ErrBrokerClosed) {
			s.logger.Error("notifier stopped", "error", err)
		}
	}()
}

func (s *Server) closeBackends() {
	if s.stopNotifier != nil {
		s.stopNotifier()
		<-s.notifierDone
	}
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.logger.Warn("close mq", "error", err)
		}
	}
	if s.kv != nil {
		if err := s.kv.Close(); err != nil {
			s.logger.Warn("close kv store", "error", err)
		}
	}
}
