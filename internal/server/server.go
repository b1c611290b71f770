package server

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coachfit/internal/auth"
	"coachfit/internal/config"
)

const (
	serviceName    = "CoachFit backend"
	serviceVersion = "1.0.0"
)

type Server struct {
	Auth           *auth.Service
	Tokens         *auth.TokenIssuer
	RateLimiter    *auth.RateLimiter
	Audit          *auth.AuditLogger
	Logger         *slog.Logger
	Config         config.Config
	trustedProxies []net.IPNet
}

func NewServer(cfg config.Config, svc *auth.Service, tokens *auth.TokenIssuer, rl *auth.RateLimiter, audit *auth.AuditLogger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Auth:           svc,
		Tokens:         tokens,
		RateLimiter:    rl,
		Audit:          audit,
		Logger:         logger,
		Config:         cfg,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(cors)
	r.Use(withLocale)

	r.With(s.requireRoles(accessRoles(http.MethodGet, "/"))).Get("/", s.handleIndex)

	r.Route("/auth", func(ar chi.Router) {
		ar.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/register"))).Post("/register", s.handleRegister)
		ar.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/verify"))).Post("/verify", s.handleVerify)
		ar.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/resend-code"))).Post("/resend-code", s.handleResendCode)
		ar.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/login"))).Post("/login", s.handleLogin)
		ar.With(s.requireRoles(accessRoles(http.MethodGet, "/auth/refreshToken"))).Get("/refreshToken", s.handleRefreshToken)
		ar.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/forgot-password"))).Post("/forgot-password", s.handleForgotPassword)
		ar.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/changePassword"))).Post("/changePassword", s.handleChangePassword)

		ar.With(s.requireToken, s.requireRoles(accessRoles(http.MethodGet, "/auth/me"))).Get("/me", s.handleMe)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireToken)

		pr.With(s.requireRoles(accessRoles(http.MethodPost, "/accounts"))).Post("/accounts", s.handleCreateAccount)
		pr.With(s.requireRoles(accessRoles(http.MethodGet, "/accounts/{id}"))).Get("/accounts/{id}", s.handleGetAccount)
		pr.With(s.requireRoles(accessRoles(http.MethodPut, "/accounts/{id}"))).Put("/accounts/{id}", s.handleUpdateAccount)
		pr.With(s.requireRoles(accessRoles(http.MethodPut, "/accounts/{id}/status"))).Put("/accounts/{id}/status", s.handleToggleStatus)
	})

	return r
}
