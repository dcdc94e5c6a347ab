// Package auth issues and verifies the session tokens used by the back office
// UI.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"cm-admin/internal/domain"
)

// Credentials is the single back office account.
type Credentials struct {
	Username string
	Password string
}

// Claims are the session token claims. The session id is authoritative; IP
// and tab travel along for diagnostics.
type Claims struct {
	SessionID string `json:"sid"`
	IP        string `json:"ip,omitempty"`
	TabID     string `json:"tab,omitempty"`
	jwt.RegisteredClaims
}

// Login is a successful login.
type Login struct {
	Token   string
	Session domain.Session
}

// Service authenticates the back office account and manages its sessions.
type Service struct {
	creds    Credentials
	secret   []byte
	ttl      time.Duration
	sessions domain.SessionStore
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewService creates an auth Service. Tokens and sessions live for ttl.
func NewService(creds Credentials, secret string, ttl time.Duration, sessions domain.SessionStore, clock clockwork.Clock, logger *slog.Logger) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		creds:    creds,
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
		clock:    clock,
		logger:   logger.With("component", "auth"),
	}, nil
}

// Login checks the credentials and opens a session bound to ip.
func (s *Service) Login(_ context.Context, username, password, ip string) (*Login, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.creds.Password)) == 1
	if !userOK || !passOK || s.creds.Username == "" {
		s.logger.Warn("login rejected", "user", username, "ip", ip)
		return nil, domain.ErrAccessDenied("Invalid credentials")
	}

	now := s.clock.Now()
	sess := domain.Session{
		ID:        uuid.NewString(),
		Username:  username,
		IP:        ip,
		TabID:     strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	claims := Claims{
		SessionID: sess.ID,
		IP:        ip,
		TabID:     sess.TabID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.sessions.Put(sess, s.ttl)
	s.logger.Info("login", "user", username, "ip", ip, "session_id", sess.ID)
	return &Login{Token: token, Session: sess}, nil
}

// Logout ends the session named by token.
func (s *Service) Logout(_ context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return domain.ErrValidation("Invalid token")
	}
	s.sessions.Delete(claims.SessionID)
	s.logger.Info("logout", "user", claims.Subject, "session_id", claims.SessionID)
	return nil
}

// Verify returns the session a request presenting token from ip with the
// tab cookie tabID may act under. The session must be live and either the
// IP or the tab must match the ones it was issued to.
func (s *Service) Verify(_ context.Context, token, ip, tabID string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrAccessDenied("Access denied")
	}
	claims, err := s.parse(token)
	if err != nil {
		return domain.Session{}, domain.ErrAccessDenied("Invalid token")
	}
	sess, ok := s.sessions.Get(claims.SessionID)
	if !ok || !s.clock.Now().Before(sess.ExpiresAt) || !sess.Matches(ip, tabID) {
		return domain.Session{}, domain.ErrAccessDenied("Invalid session")
	}
	return sess, nil
}

// SweepExpired drops expired sessions and returns how many remain.
func (s *Service) SweepExpired() int {
	s.sessions.DeleteExpired()
	return s.sessions.Len()
}

func (s *Service) parse(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, errors.New("token has no session id")
	}
	return &claims, nil
}
