package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Faraz011/virasat-backend/internal/service"
	"github.com/Faraz011/virasat-backend/pkg/httputil"
	"github.com/Faraz011/virasat-backend/pkg/middleware"
)

// SessionHandler exposes the device session list and revocation endpoints.
type SessionHandler struct {
	sessions      *service.SessionService
	secureCookies bool
	logger        *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions *service.SessionService, secureCookies bool, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:      sessions,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// List handles GET /api/account/sessions. The caller's own session is marked
// current in the result.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.sessions.List(ctx, middleware.UserIDFromContext(ctx), middleware.SessionIDFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sessions})
}

// Revoke handles DELETE /api/account/sessions/{id}. Revoking the current
// session also clears the cookie, which logs this device out.
func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx := r.Context()
	revokedCurrent, err := h.sessions.Revoke(ctx, middleware.UserIDFromContext(ctx), id.String(), middleware.SessionIDFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if revokedCurrent {
		clearCookie(w, h.secureCookies)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"revoked":         id.String(),
		"revoked_current": revokedCurrent,
	}})
}

// RevokeOthers handles POST /api/account/sessions/revoke-all
func (h *SessionHandler) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.sessions.RevokeOthers(ctx, middleware.UserIDFromContext(ctx), middleware.SessionIDFromContext(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int64{"revoked_count": count}})
}

// Logout handles POST /api/account/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.Logout(ctx, middleware.UserIDFromContext(ctx), middleware.SessionIDFromContext(ctx)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearCookie(w, h.secureCookies)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "logged out"}})
}

func clearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
