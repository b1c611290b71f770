package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"coachfit/internal/auth"
)

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := s.Auth.CreateAccount(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit(r, "account_created", account.ID, map[string]any{"by": actorID(r)})
	writeSuccess(w, r, "account.created", map[string]any{"user": viewAccount(account)})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(r)
	if !ok {
		s.writeFailure(w, r, http.StatusNotFound, string(auth.KindNotFound), "account.not_found")
		return
	}

	account, err := s.Auth.GetAccount(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, r, "account.profile", map[string]any{"user": viewAccount(account)})
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(r)
	if !ok {
		s.writeFailure(w, r, http.StatusNotFound, string(auth.KindNotFound), "account.not_found")
		return
	}

	var req auth.UpdateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r)
		return
	}
	in, err := req.Validate()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	account, err := s.Auth.UpdateAccount(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit(r, "account_updated", id, map[string]any{"by": actorID(r), "password": in.Password != nil})
	writeSuccess(w, r, "account.updated", map[string]any{"user": viewAccount(account)})
}

// handleToggleStatus flips an account between active and inactive.
func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(r)
	if !ok {
		s.writeFailure(w, r, http.StatusNotFound, string(auth.KindNotFound), "account.not_found")
		return
	}

	active, err := s.Auth.ToggleActive(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.audit(r, "account_status_changed", id, map[string]any{"is_active": active, "by": actorID(r)})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"is_active": active,
	})
}

func accountIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func actorID(r *http.Request) int64 {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.AccountID
	}
	return 0
}
