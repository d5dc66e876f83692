// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New builds the store for the configured
// driver, the style assigner, the avatar resolver, the Gemini client and the
// services, then hands them to the handlers. Nothing below this package
// knows which concrete backend it is talking to.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/JuampiHernandez/raave-outfit/internal/auth"
	"github.com/JuampiHernandez/raave-outfit/internal/avatar"
	"github.com/JuampiHernandez/raave-outfit/internal/config"
	"github.com/JuampiHernandez/raave-outfit/internal/handler"
	"github.com/JuampiHernandez/raave-outfit/internal/imagegen"
	"github.com/JuampiHernandez/raave-outfit/internal/middleware"
	"github.com/JuampiHernandez/raave-outfit/internal/repository"
	"github.com/JuampiHernandez/raave-outfit/internal/repository/postgres"
	redisRepo "github.com/JuampiHernandez/raave-outfit/internal/repository/redis"
	sqliteRepo "github.com/JuampiHernandez/raave-outfit/internal/repository/sqlite"
	"github.com/JuampiHernandez/raave-outfit/internal/service"
	"github.com/JuampiHernandez/raave-outfit/internal/style"
)

const (
	readTimeout = 15 * time.Second
	// writeTimeout must outlast an edit call plus persistence.
	writeTimeout     = 90 * time.Second
	idleTimeout      = 60 * time.Second
	shutdownTimeout  = 30 * time.Second
	openStoreTimeout = 15 * time.Second
)

// Server represents the HTTP server and all its dependencies. It owns the
// store and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.OutfitRepository
}

// New validates cfg, opens the store and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), openStoreTimeout)
	defer cancel()

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// OpenStore connects to the backend named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg config.Config) (repository.OutfitRepository, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return db, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return db, nil

	case config.DriverRedis:
		st, err := redisRepo.New(ctx, redisRepo.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewAvatarResolver builds the production strategy chain. The Talent
// Protocol and GitHub lookups join the chain only when their credentials
// are configured.
func NewAvatarResolver(cfg config.Config, logger *slog.Logger) (*avatar.Resolver, error) {
	client := &http.Client{Timeout: cfg.ProbeTimeout}

	var lookups avatar.Lookups
	if cfg.TalentAPIKey != "" {
		lookups.Talent = avatar.NewTalentClient(cfg.TalentAPIKey, "", client)
	}
	if cfg.GitHubToken != "" {
		lookups.GitHub = avatar.NewGitHubClient(cfg.GitHubToken, "")
	}

	return avatar.NewResolver(
		avatar.DefaultStrategies(lookups),
		avatar.NewHTTPProber(client),
		avatar.Config{ProbeTimeout: cfg.ProbeTimeout, PlaceholderSize: cfg.PlaceholderSize},
		logger,
	)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                      → liveness
// POST   /api/resolve-identity         → handle → avatar URL
// POST   /api/generate-outfit          → cached or freshly generated outfit
// GET    /api/gallery                  → stored outfits, newest first
// GET    /api/outfits/{handle}         → one stored record
// GET    /api/outfits/{handle}/image   → the decoded image
// POST   /api/admin/login              → admin JWT (cookie + body)
// POST   /api/admin/logout             → clears the cookie
// POST   /api/upload-outfit            → manual upload (admin only)
// GET    /outfit/{handle}              → share page with preview tags
//
// MIDDLEWARE ORDER MATTERS: the request id must exist before the logger
// reads it, and Recoverer sits inside the logger so a panic still logs a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	styles, err := style.NewAssigner(style.DefaultStyles())
	if err != nil {
		return fmt.Errorf("creating style assigner: %w", err)
	}

	resolver, err := NewAvatarResolver(s.config, s.logger)
	if err != nil {
		return fmt.Errorf("creating avatar resolver: %w", err)
	}

	gemini, err := imagegen.NewGemini(imagegen.GeminiOptions{
		APIKey:  s.config.GeminiAPIKey,
		BaseURL: s.config.GeminiBaseURL,
		Model:   s.config.GeminiModel,
		Logger:  s.logger,
	})
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}

	// DEPENDENCY CHAIN:
	//   store → OutfitCache → OutfitService → OutfitHandler
	//   resolver → IdentityService ↗
	cache := service.NewOutfitCache(s.store, s.logger)
	outfits := service.NewOutfitService(
		cache,
		gemini,
		imagegen.NewFetcher(nil), // bounded by the edit deadline on ctx
		styles,
		service.OutfitConfig{
			EditTimeout:       s.config.EditTimeout,
			DedupeGenerations: s.config.DedupeGenerations,
		},
		s.logger,
	)
	identity := service.NewIdentityService(resolver, s.logger)

	outfitHandler := handler.NewOutfitHandler(outfits, identity, s.logger)
	healthHandler := handler.NewHealthHandler(s.config.StoreDriver)
	shareHandler, err := handler.NewShareHandler(outfits, s.config.PublicURL, s.logger)
	if err != nil {
		return fmt.Errorf("creating share handler: %w", err)
	}

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Get("/outfit/{handle}", shareHandler.HandleShare)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/resolve-identity", outfitHandler.HandleResolveIdentity)
		r.Post("/generate-outfit", outfitHandler.HandleGenerateOutfit)
		r.Get("/gallery", outfitHandler.HandleGallery)
		r.Get("/outfits/{handle}", outfitHandler.HandleGetOutfit)
		r.Get("/outfits/{handle}/image", outfitHandler.HandleOutfitImage)
	})

	// === Admin Routes ===
	// Without a JWT secret and a password hash the upload route is simply
	// not mounted; everything else keeps working.
	if !s.config.AdminEnabled() {
		s.logger.Warn("JWT_SECRET or ADMIN_PASSWORD_HASH not set; admin routes are disabled")
		return nil
	}

	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	admin := service.NewAdminService(s.config.AdminPasswordHash, tokens, auth.NewPasswordService(), s.logger)
	adminHandler := handler.NewAdminHandler(admin, s.logger)

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", adminHandler.HandleLogin)
		r.Post("/logout", adminHandler.HandleLogout)
	})
	s.router.With(auth.RequireAdmin(tokens)).Post("/api/upload-outfit", outfitHandler.HandleUploadOutfit)

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StoreDriver),
			slog.Bool("admin", s.config.AdminEnabled()),
			slog.Bool("dedupe", s.config.DedupeGenerations),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
