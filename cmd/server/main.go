package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fieldlink/backend/internal/config"
	"github.com/fieldlink/backend/internal/handlers"
	appMiddleware "github.com/fieldlink/backend/internal/middleware"
	"github.com/fieldlink/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	accounts, profiles, requests, err := buildServices(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = profiles.Close(closeCtx)
		_ = requests.Close(closeCtx)
		if accounts != nil {
			_ = accounts.Close(closeCtx)
		}
	}()

	directory := services.NewDirectoryService(profiles, logger.Named("directory"))

	// Initial load; a failure just leaves the directory empty until the next
	// refresh.
	loadCtx, cancelLoad := context.WithTimeout(ctx, 15*time.Second)
	_ = directory.Refresh(loadCtx)
	cancelLoad()

	// Auth mode: verify Firebase ID tokens when a project is configured,
	// otherwise run the local account gateway with JWT sessions.
	var authMiddleware func(http.Handler) http.Handler
	var authHandler *handlers.AuthHandler
	if cfg.Firebase.ProjectID != "" {
		authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsJSON: cfg.Firebase.CredentialsJSON,
		})
		if err != nil {
			logger.Fatal("failed to initialize Firebase Auth client", zap.Error(err))
		}
		authMiddleware = appMiddleware.FirebaseAuth(authClient)
		logger.Info("identity: Firebase token verification", zap.String("project", cfg.Firebase.ProjectID))
	} else {
		authMiddleware = appMiddleware.JWTAuth(cfg.JWT.Secret)
		authHandler = handlers.NewAuthHandler(accounts, profiles, directory, cfg.JWT.Secret, cfg.JWT.Expiration, logger.Named("auth"))
		logger.Info("identity: local accounts with JWT sessions")
	}

	profileHandler := handlers.NewProfileHandler(profiles, logger.Named("profile"))
	directoryHandler := handlers.NewDirectoryHandler(directory, logger.Named("directory"))
	requestHandler := handlers.NewRequestHandler(requests, logger.Named("requests"))

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		if authHandler != nil {
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			if authHandler != nil {
				r.Get("/auth/me", authHandler.Me)
			}

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpsertProfile)
			r.Get("/users/{userId}", profileHandler.GetPublicProfile)

			r.Get("/directory", directoryHandler.List)
			r.Post("/directory/refresh", directoryHandler.Refresh)

			r.Get("/requests", requestHandler.List)
			r.Post("/requests/{userId}", requestHandler.Connect)
		})
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// buildServices picks the Mongo-backed stores when a URI is configured and
// the file-backed stores otherwise.
func buildServices(ctx context.Context, cfg *config.Config) (services.AccountService, services.ProfileService, services.RequestService, error) {
	if cfg.Mongo.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		profiles, err := services.NewMongoProfileService(connectCtx, cfg.Mongo.URI, cfg.Mongo.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		requests, err := services.NewMongoRequestService(connectCtx, cfg.Mongo.URI, cfg.Mongo.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		accounts, err := services.NewMongoAccountService(connectCtx, cfg.Mongo.URI, cfg.Mongo.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		return accounts, profiles, requests, nil
	}

	profiles, err := services.NewFileProfileService(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	requests, err := services.NewFileRequestService(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	accounts, err := services.NewFileAccountService(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	return accounts, profiles, requests, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
