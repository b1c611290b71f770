package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"coachfit/internal/auth"
	"coachfit/internal/i18n"
)

const (
	typeUnauthorized = "Auth/Unauthorized"
	typeInternal     = "Server/InternalServerError"
	typeJSONParse    = "Server/JSONParseError"
)

type failure struct {
	Success  bool              `json:"success"`
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Cooldown int64             `json:"cooldown,omitempty"`
}

func statusForKind(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation, auth.KindInvalidRole, auth.KindAlreadyVerified,
		auth.KindExpired, auth.KindMismatch,
		auth.KindTokenMissing, auth.KindTokenMalformed, auth.KindTokenInvalid:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindNotFound, auth.KindCodeNotFound, auth.KindCodeIncorrect:
		return http.StatusNotFound
	case auth.KindForbidden:
		return http.StatusForbidden
	case auth.KindTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeServiceError renders a domain error. Anything unrecognised is logged
// and reported as a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	locale := i18n.FromContext(r.Context())

	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		fields := make(map[string]string, len(verr.Fields))
		for field, key := range verr.Fields {
			fields[field] = i18n.T(locale, key)
		}
		writeJSON(w, http.StatusBadRequest, failure{
			Type:    string(auth.KindValidation),
			Message: i18n.T(locale, "validation.failed"),
			Fields:  fields,
		})
		return
	}

	var e *auth.Error
	if !errors.As(err, &e) {
		s.writeInternal(w, r, err)
		return
	}

	body := failure{Type: string(e.Kind), Message: i18n.T(locale, e.Key)}
	if e.RetryAfter > 0 {
		body.Cooldown = seconds(e.RetryAfter)
		body.Message = i18n.Tf(locale, e.Key, map[string]string{"seconds": strconv.FormatInt(body.Cooldown, 10)})
		w.Header().Set("Retry-After", strconv.FormatInt(body.Cooldown, 10))
	}
	writeJSON(w, statusForKind(e.Kind), body)
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, status int, kind, key string) {
	writeJSON(w, status, failure{
		Type:    kind,
		Message: i18n.T(i18n.FromContext(r.Context()), key),
	})
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	s.writeFailure(w, r, http.StatusInternalServerError, typeInternal, "server.internal")
}

func (s *Server) writeDecodeError(w http.ResponseWriter, r *http.Request) {
	s.writeFailure(w, r, http.StatusUnprocessableEntity, typeJSONParse, "server.json")
}

func tooManyRequests(key string, retryAfter time.Duration) *auth.Error {
	return &auth.Error{Kind: auth.KindTooManyRequests, Key: key, RetryAfter: retryAfter}
}

func seconds(d time.Duration) int64 {
	return int64(math.Ceil(d.Seconds()))
}
