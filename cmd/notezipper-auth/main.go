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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/priyanshp28/noteZipper/internal/config"
	httpserver "github.com/priyanshp28/noteZipper/internal/http"
	"github.com/priyanshp28/noteZipper/internal/notification"
	"github.com/priyanshp28/noteZipper/pkg/auth"
	"github.com/priyanshp28/noteZipper/pkg/repository"
	"github.com/priyanshp28/noteZipper/pkg/repository/memory"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Storage
	var (
		accounts auth.AccountStore
		ledger   auth.CodeLedger
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		accounts, ledger = store.Accounts(), store.Codes()
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("connected to database", "driver", cfg.Database.Driver)

		accounts = repository.NewAccountsRepository(db)
		ledger = repository.NewVerificationCodesRepository(db)
	}

	// Issuance limiter
	var limiter auth.RateLimiter = auth.NewMemoryRateLimiter()
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		limiter = auth.NewRedisRateLimiter(client, cfg.Redis.KeyPrefix)
		logger.Info("redis issuance limiter enabled", "addr", cfg.Redis.Addr)
	}

	// Mail
	var mailer auth.Mailer
	if cfg.SMTP.Enabled() {
		mailer = notification.NewEmailService(notification.EmailConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			User:      cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			From:      cfg.SMTP.From,
			FromName:  cfg.SMTP.FromName,
			TLSPolicy: cfg.SMTP.TLSPolicy,
		})
		logger.Info("email service enabled", "host", cfg.SMTP.Host)
	} else {
		mailer = notification.NewLogMailer(logger, cfg.SMTP.LogBody)
		logger.Warn("SMTP is not configured; emails are logged instead of sent")
	}

	// Services
	otp := auth.NewOTPEngine(auth.OTPConfig{
		TTL:                       cfg.OTP.TTL,
		CodeMin:                   cfg.OTP.Min,
		CodeMax:                   cfg.OTP.Max,
		HashCost:                  cfg.OTP.HashCost,
		RollbackOnDispatchFailure: cfg.OTP.RollbackOnDispatchFailure,
		IssueLimit:                cfg.OTP.IssueLimit,
		IssueWindow:               cfg.OTP.IssueWindow,
	}, ledger, mailer, limiter)

	sessions := auth.NewSessionIssuer(auth.SessionConfig{
		TokenTTL:      cfg.SessionTokenTTL,
		ResetGrantTTL: cfg.ResetGrantTTL,
		JWTSecret:     []byte(cfg.JWTSecret),
		Issuer:        cfg.JWTIssuer,
	})

	emailRules := auth.EmailRules{
		Strict:          cfg.Validation.StrictEmailValidation,
		BlockDisposable: cfg.Validation.BlockDisposableEmail,
	}
	passwordPolicy := auth.PasswordPolicy{
		MinLength:        cfg.PasswordPolicy.MinLength,
		RequireUppercase: cfg.PasswordPolicy.RequireUppercase,
		RequireLowercase: cfg.PasswordPolicy.RequireLowercase,
		RequireNumber:    cfg.PasswordPolicy.RequireNumber,
		RequireSpecial:   cfg.PasswordPolicy.RequireSpecial,
	}
	logger.Info("password policy", "requirements", passwordPolicy.GetRequirements())

	authenticator := auth.NewAuthenticator(auth.AuthenticatorConfig{
		PasswordPolicy:    passwordPolicy,
		EmailRules:        emailRules,
		RequireResetGrant: cfg.RequireResetGrant,
	}, accounts, otp, sessions, auth.NewArgon2Hasher(auth.DefaultArgon2Params))
	accountService := auth.NewAccountService(emailRules, accounts, otp)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		Authenticator:   authenticator,
		AccountService:  accountService,
		SessionIssuer:   sessions,
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
	})

	addr := cfg.ListenAddr()
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := repository.NewDB(ctx, cfg.Driver, cfg.DSN(), repository.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}
