package api

import (
	"errors"
	"net/http"

	"cm-admin/internal/domain"
	"cm-admin/internal/middleware"
)

type loginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	login, err := h.auth.Login(r.Context(), req.UserName, req.Password, middleware.ClientIP(r))
	if err != nil {
		var denied *domain.AccessDeniedError
		if !errors.As(err, &denied) {
			h.logger.Error("login failed", "error", err)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TabCookie,
		Value:    login.Session.TabID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  login.Session.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": login.Token})
}

// Logout handles POST /auth/logout. Without a token there is nothing to end.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
		return
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
