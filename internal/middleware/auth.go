package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cm-admin/internal/domain"
)

// TabCookie is the cookie carrying the browser tab id issued at login.
const TabCookie = "tab_session"

// SessionVerifier checks a session token against the live session store.
type SessionVerifier interface {
	Verify(ctx context.Context, token, ip, tabID string) (domain.Session, error)
}

// Auth accepts a session token first, then, when oidc is non-nil, a token
// from the external identity provider. Anything else gets 403.
func Auth(sessions SessionVerifier, oidc JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeForbidden(w, "Access denied")
				return
			}

			var tabID string
			if c, err := r.Cookie(TabCookie); err == nil {
				tabID = c.Value
			}
			sess, err := sessions.Verify(r.Context(), token, clientIP(r), tabID)
			if err == nil {
				ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{
					Name: sess.Username, SessionID: sess.ID, Type: "session",
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if oidc != nil {
				claims, oerr := oidc.Validate(r.Context(), token)
				if oerr == nil {
					name := claims.Subject
					if claims.Email != nil && *claims.Email != "" {
						name = *claims.Email
					}
					ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{Name: name, Type: "oidc"})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				logger.Debug("identity provider token rejected", "error", oerr)
			}

			msg := "Access denied"
			var denied *domain.AccessDeniedError
			if errors.As(err, &denied) {
				msg = denied.Message
			}
			logger.Info("request rejected", "path", r.URL.Path, "reason", err,
				"request_id", RequestIDFromContext(r.Context()))
			writeForbidden(w, msg)
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClientIP returns the request's remote address without the port.
func ClientIP(r *http.Request) string { return clientIP(r) }

func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
