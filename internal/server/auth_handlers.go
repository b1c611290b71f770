package server

import (
	"net/http"

	"coachfit/internal/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r)
		return
	}
	in, err := req.Validate()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if locked, ttl, err := s.RateLimiter.RegisterSignupAttempt(ctx, ip); err != nil {
		s.writeInternal(w, r, err)
		return
	} else if locked {
		s.writeServiceError(w, r, tooManyRequests("register.too_many", ttl))
		return
	}

	res, err := s.Auth.Register(ctx, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit(r, "register", res.Account.ID, map[string]any{"channel": in.Identity.Channel})
	writeSuccess(w, r, res.MessageKey, nil)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r)
		return
	}
	in, err := req.Validate()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	locked, ttl, err := s.RateLimiter.RegisterVerifyAttempt(ctx, in.Identity)
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	if locked {
		s.writeServiceError(w, r, tooManyRequests("verify.too_many", ttl))
		return
	}

	if err := s.Auth.Verify(ctx, in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.ResetVerify(ctx, in.Identity)
	s.audit(r, "verify", 0, map[string]any{"identity": in.Identity.String()})
	writeSuccess(w, r, "verify.success", nil)
}

func (s *Server) handleResendCode(w http.ResponseWriter, r *http.Request) {
	var req auth.IdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r)
		return
	}
	id, err := req.Validate()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	if ttl := s.RateLimiter.CooldownTTL(ctx, "resend", id); ttl > 0 {
		s.writeServiceError(w, r, tooManyRequests("code.cooldown", ttl))
		return
	}

	key, err := s.Auth.ResendCode(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.SetCooldown(ctx, "resend", id, auth.CodeCooldown)
	writeSuccess(w, r, key, nil)
}

type loginUser struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if s.RateLimiter.IsIPBanned(ctx, ip) {
		s.writeFailure(w, r, http.StatusForbidden, string(auth.KindForbidden), "login.banned")
		return
	}

	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r)
		return
	}
	in, err := req.Validate()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.Auth.Login(ctx, in)
	if err != nil {
		if auth.KindOf(err) == auth.KindNotFound {
			if _, rlErr := s.RateLimiter.RegisterLoginFailure(ctx, ip); rlErr != nil {
				s.Logger.WarnContext(ctx, "record login failure", "ip", ip, "err", rlErr)
			}
			s.audit(r, "login_failed", 0, map[string]any{"identity": in.Identity.String()})
		}
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.ResetLogin(ctx, ip)
	s.audit(r, "login", res.Account.ID, nil)
	writeSuccess(w, r, "login.success", map[string]any{
		"user": loginUser{
			FirstName: res.Account.FirstName,
			LastName:  res.Account.LastName,
			Email:     res.Account.Email,
			Phone:     res.Account.Phone,
		},
		"token": res.Token,
	})
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.Auth.Refresh(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, r, "token.refreshed", map[string]any{"token": token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	account, err := s.Auth.GetAccount(r.Context(), claims.AccountID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, r, "account.profile", map[string]any{"user": viewAccount(account)})
}

// audit records a security event. Failures are logged and never surface to the client.
func (s *Server) audit(r *http.Request, event string, accountID int64, meta map[string]any) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.Log(r.Context(), auth.AuditEvent{
		EventType: event,
		AccountID: accountID,
		IP:        clientIP(r, s.trustedProxies),
		UserAgent: r.UserAgent(),
		Meta:      meta,
	})
	if err != nil {
		s.Logger.WarnContext(r.Context(), "audit log failed", "event", event, "err", err)
	}
}
