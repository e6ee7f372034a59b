package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/devflow-project/devflow/internal/audit"
	"github.com/devflow-project/devflow/internal/auth"
	"github.com/devflow-project/devflow/internal/obs"
)

const refreshCookieName = "refreshToken"

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	AccessToken string       `json:"accessToken"`
	User        auth.Profile `json:"user"`
}

// refreshResponse carries only the new access token. The rotated
// refresh token travels in the cookie, and the client already knows
// who it is.
type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := a.sessions.Register(r.Context(), req.Email, req.Password, req.ConfirmPassword, req.Name)
	if err != nil {
		obs.ObserveAuth("register", authOutcome(err))
		a.handleAuthError(w, r, err)
		return
	}
	obs.ObserveAuth("register", "ok")
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": sess.User.ID,
		"email":   sess.User.Email,
	})

	a.setRefreshCookie(w, sess.Tokens.RefreshToken)
	writeJSON(w, http.StatusCreated, sessionResponse{
		AccessToken: sess.Tokens.AccessToken,
		User:        sess.User,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.ObserveAuth("login", authOutcome(err))
		_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{
			"email": req.Email,
		})
		a.handleAuthError(w, r, err)
		return
	}
	obs.ObserveAuth("login", "ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": sess.User.ID,
	})

	a.setRefreshCookie(w, sess.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: sess.Tokens.AccessToken,
		User:        sess.User,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := a.refreshTokenFromRequest(w, r)
	if token == "" {
		obs.ObserveAuth("refresh", "denied")
		writeError(w, r, http.StatusUnauthorized, "refresh token is required")
		return
	}

	sess, err := a.sessions.Refresh(r.Context(), token)
	if err != nil {
		obs.ObserveAuth("refresh", authOutcome(err))
		a.handleAuthError(w, r, err)
		return
	}
	obs.ObserveAuth("refresh", "ok")
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id": sess.User.ID,
	})

	a.setRefreshCookie(w, sess.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: sess.Tokens.AccessToken,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token := a.refreshTokenFromRequest(w, r)

	if err := a.sessions.Logout(r.Context(), token); err != nil {
		obs.ObserveAuth("logout", "error")
		a.handleAuthError(w, r, err)
		return
	}
	obs.ObserveAuth("logout", "ok")
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	a.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "logged_out",
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

// refreshTokenFromRequest prefers the HttpOnly cookie and falls back to
// a JSON body for non-browser clients. An empty result is fine for
// logout, which is idempotent.
func (a *API) refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (a *API) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/v1/auth",
		MaxAge:   int(a.sessions.RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func authOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrForbidden):
		return "denied"
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, auth.ErrConflict):
		return "rejected"
	default:
		return "error"
	}
}
