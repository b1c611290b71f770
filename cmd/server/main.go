package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coachfit/internal/auth"
	"coachfit/internal/config"
	"coachfit/internal/database"
	"coachfit/internal/email"
	"coachfit/internal/logging"
	redisx "coachfit/internal/redis"
	"coachfit/internal/server"
	"coachfit/internal/sms"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("log setup error: %v", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	if !cfg.Email.Enabled() {
		logger.Warn("email delivery is not configured")
	}
	if !cfg.SMS.Enabled() {
		logger.Warn("sms delivery is not configured")
	}

	notifier := &auth.ChannelNotifier{
		Email: email.NewSender(cfg.Email),
		SMS:   sms.NewSender(cfg.SMS, &http.Client{Timeout: cfg.CallTimeout}),
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	svc := auth.NewService(
		auth.NewAccountRepository(db),
		auth.NewRedisCodeStore(redisClient, cfg.CodePrefix),
		notifier,
		auth.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		auth.ServiceConfig{
			VerifyCodeTTL:       cfg.VerifyCodeTTL,
			ResetCodeTTL:        cfg.ResetCodeTTL,
			CallTimeout:         cfg.CallTimeout,
			VerificationEnabled: !cfg.VerificationDisabled,
		},
		logger,
	)
	audit := &auth.AuditLogger{Redis: redisClient, Prefix: cfg.CodePrefix, MaxLen: cfg.AuditMaxLen}
	api := server.NewServer(cfg, svc, tokens, auth.NewRateLimiter(redisClient, cfg.CodePrefix), audit, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "verification", !cfg.VerificationDisabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
