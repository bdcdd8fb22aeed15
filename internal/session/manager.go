package session

import (
	"context"
	"errors"
	"fmt"
	"leads/internal/models"
	"log/slog"
	"net/http"
)

// Manager ties the codec, cookie transport and denylist together for HTTP
// handlers.
type Manager struct {
	codec    *Codec
	cfg      models.SessionConfig
	denylist Denylist
}

// NewManager creates a Manager. denylist may be nil, in which case logout
// only clears the cookie.
func NewManager(cfg models.SessionConfig, denylist Denylist) (*Manager, error) {
	codec, err := NewCodec(cfg.Secret)
	if err != nil {
		return nil, err
	}
	return &Manager{codec: codec, cfg: cfg, denylist: denylist}, nil
}

// Codec exposes the underlying codec.
func (m *Manager) Codec() *Codec {
	return m.codec
}

// Issue mints a token for id and sets it as the session cookie.
func (m *Manager) Issue(w http.ResponseWriter, id models.Identity) (string, error) {
	token, err := m.codec.Mint(id)
	if err != nil {
		return "", err
	}
	SetCookie(w, m.cfg, token)
	return token, nil
}

// Identify returns the identity of the caller, or nil if the request carries
// no valid, unrevoked token. The rejection cause is logged at debug level.
func (m *Manager) Identify(r *http.Request) *models.Identity {
	token := TokenFromRequest(r, m.cfg.CookieName)
	id, err := m.codec.Parse(token)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			slog.DebugContext(r.Context(), "Session token rejected", "reason", err.Error(), "path", r.URL.Path)
		}
		return nil
	}

	if m.denylist != nil {
		revoked, err := m.denylist.IsRevoked(r.Context(), Signature(token))
		if err != nil {
			// Fail closed.
			slog.ErrorContext(r.Context(), "Revocation check failed", "error", err)
			return nil
		}
		if revoked {
			slog.DebugContext(r.Context(), "Session token rejected", "reason", "revoked", "path", r.URL.Path)
			return nil
		}
	}
	return id
}

// Revoke clears the session cookie and, when the request carries a validly
// signed token, denylists it for the remainder of the cookie lifetime.
func (m *Manager) Revoke(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ClearCookie(w, m.cfg)

	if m.denylist == nil {
		return nil
	}
	token := TokenFromRequest(r, m.cfg.CookieName)
	if _, err := m.codec.Parse(token); err != nil {
		return nil
	}
	if err := m.denylist.Revoke(ctx, Signature(token), m.cfg.CookieMaxAge); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// Close releases the denylist.
func (m *Manager) Close() error {
	if m.denylist == nil {
		return nil
	}
	return m.denylist.Close()
}
