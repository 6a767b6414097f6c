package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth_service/internal/auth"
	"auth_service/internal/config"
	deleteUsers "auth_service/internal/http_server/handlers/delete_users"
	forgotPassword "auth_service/internal/http_server/handlers/forgot_password"
	googleAuth "auth_service/internal/http_server/handlers/google_auth"
	"auth_service/internal/http_server/handlers/login"
	"auth_service/internal/http_server/handlers/logout"
	"auth_service/internal/http_server/handlers/register"
	resendEmail "auth_service/internal/http_server/handlers/resend_verification_email"
	resetPassword "auth_service/internal/http_server/handlers/reset_password"
	"auth_service/internal/http_server/handlers/user"
	validateToken "auth_service/internal/http_server/handlers/validate_token"
	verifyEmail "auth_service/internal/http_server/handlers/verify_email"
	verifyResetToken "auth_service/internal/http_server/handlers/verify_reset_token"
	"auth_service/internal/http_server/middleware/authn"
	sl "auth_service/internal/lib/logger"
	"auth_service/internal/lib/password"
	"auth_service/internal/lib/token"
	"auth_service/internal/notify"
	"auth_service/internal/oauth/google"
	"auth_service/internal/rabbitmq"
	"auth_service/internal/storage/postgres"
	"auth_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	redisRepo, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer redisRepo.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	tokens := token.New(cfg.Tokens.Secret)
	hasher := password.NewHasher(cfg.App.BcryptCost)
	notifier := notify.New(msgBroker, cfg.App.BaseURL)

	authService := auth.New(
		log,
		storage,
		storage,
		redisRepo,
		tokens,
		hasher,
		notifier,
		cfg.Tokens,
		cfg.App.TrustProviderEmailVerified,
	)

	googleClient := google.New(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})

	router := setupRouter(cfg, log, authService, tokens, redisRepo, googleClient, storage)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", sl.Err(err))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", sl.Err(err))
	} else {
		log.Info("server stopped gracefully")
	}
}

func setupRouter(
	cfg *config.Config,
	log *slog.Logger,
	authService *auth.Auth,
	tokens *token.Engine,
	redisRepo *redis.RedisRepo,
	googleClient *google.Client,
	storage *postgres.PostgresRepo,
) *chi.Mux {
	validate := validator.New()
	secure := cfg.Env == envProd

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/register", register.New(log, validate, authService, secure))
	r.Post("/login", login.New(log, validate, authService, secure))
	r.Post("/logout", logout.New(log, secure))
	r.Get("/verify-email", verifyEmail.New(log, authService))
	r.Post("/forgot-password", forgotPassword.New(log, validate, authService))
	r.Get("/verify-reset-token", verifyResetToken.New(log, authService))
	r.Post("/reset-password", resetPassword.New(log, validate, authService))

	r.Get("/google", googleAuth.Begin(log, redisRepo, googleClient, cfg.App.FrontendURL))
	r.Get("/google/callback", googleAuth.Callback(log, redisRepo, googleClient, authService, cfg.App.FrontendURL, secure))

	// Maintenance hook, not part of the account lifecycle.
	r.Get("/delete", deleteUsers.New(log, storage))

	r.Group(func(pr chi.Router) {
		pr.Use(authn.New(log, tokens))

		pr.Get("/user", user.New(log, authService))
		pr.Get("/resend-verification-email", resendEmail.New(log, authService))
		pr.Get("/validate-token", validateToken.New())
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
