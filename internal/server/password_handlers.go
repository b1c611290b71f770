package server

import (
	"net/http"

	"coachfit/internal/auth"
)

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
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
	if ttl := s.RateLimiter.CooldownTTL(ctx, "reset", id); ttl > 0 {
		s.writeServiceError(w, r, tooManyRequests("code.cooldown", ttl))
		return
	}

	key, err := s.Auth.RequestReset(ctx, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.RateLimiter.SetCooldown(ctx, "reset", id, auth.CodeCooldown)
	s.audit(r, "password_reset_requested", 0, map[string]any{"identity": id.String()})
	writeSuccess(w, r, key, nil)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r)
		return
	}
	in, err := req.Validate()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.Auth.ChangePassword(r.Context(), in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit(r, "password_changed", 0, map[string]any{"identity": in.Identity.String()})
	writeSuccess(w, r, "reset.success", nil)
}
