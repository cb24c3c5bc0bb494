package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"

	"github.com/seatosky/storefront/internal/modal"
)

const (
	defaultCookieName = "s2sc_session"
	defaultCookiePath = "/"
	defaultLifetime   = 30 * 24 * time.Hour
	refreshDivisor    = 30
)

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Data is the persisted cookie payload.
type Data struct {
	VisitorID  string      `json:"vid"`
	CreatedAt  time.Time   `json:"createdAt"`
	LastActive time.Time   `json:"lastActive"`
	ExpiresAt  time.Time   `json:"expiresAt,omitempty"`
	Modal      modal.State `json:"modal,omitempty"`
	CartOpen   bool        `json:"cartOpen,omitempty"`
}

// Session holds the visitor state for one request.
type Session struct {
	data  Data
	dirty bool
	fresh bool
}

// Config controls cookie encoding and lifetime.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	Lifetime time.Duration
	// RefreshAfter is how long after the last save an unchanged session is
	// written again. Defaults to Lifetime/30.
	RefreshAfter time.Duration
	Now          func() time.Time
	NewID        func() string
}

// Manager decodes and persists visitor sessions via signed (and optionally encrypted) cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
	newID func() string
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.RefreshAfter <= 0 || cfg.RefreshAfter > cfg.Lifetime {
		cfg.RefreshAfter = cfg.Lifetime / refreshDivisor
	}
	if cfg.CookieSameSite == 0 || cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	idFn := cfg.NewID
	if idFn == nil {
		idFn = func() string { return ulid.Make().String() }
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime / time.Second))

	return &Manager{cfg: cfg, codec: codec, now: nowFn, newID: idFn}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string { return m.cfg.CookieName }

// Load retrieves the session from the request. A missing, tampered or
// expired cookie yields a new visitor.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New()
	}

	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.New()
	}
	if stored.VisitorID == "" {
		return m.New()
	}
	now := m.now().UTC()
	if !stored.ExpiresAt.IsZero() && now.After(stored.ExpiresAt.UTC()) {
		return m.New()
	}
	// Returning visitors who change nothing still slide their expiry forward.
	stale := now.Sub(stored.LastActive.UTC()) >= m.cfg.RefreshAfter
	return &Session{data: stored, dirty: stale}
}

// New returns a session for a new visitor.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{
		data: Data{
			VisitorID:  m.newID(),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		dirty: true,
		fresh: true,
	}
}

// Save writes the session cookie. The expiry slides forward on every save.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}

	now := m.now().UTC()
	sess.data.LastActive = now
	sess.data.ExpiresAt = now.Add(m.cfg.Lifetime)

	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
		Expires:  sess.data.ExpiresAt,
		MaxAge:   int(m.cfg.Lifetime.Round(time.Second).Seconds()),
	})
	sess.dirty = false
	return nil
}

// VisitorID returns the stable visitor identifier.
func (s *Session) VisitorID() string { return s.data.VisitorID }

// CreatedAt returns the session creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }

// ExpiresAt returns the absolute expiry timestamp.
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }

// Fresh reports whether the session was created during this request.
func (s *Session) Fresh() bool { return s.fresh }

// Dirty indicates whether the session contents changed during this request.
func (s *Session) Dirty() bool { return s.dirty }

// Modal returns the stored modal state.
func (s *Session) Modal() modal.State { return s.data.Modal }

// SetModal stores the modal state.
func (s *Session) SetModal(state modal.State) {
	if s.data.Modal == state {
		return
	}
	s.data.Modal = state
	s.dirty = true
}

// CartOpen reports whether the cart panel is open.
func (s *Session) CartOpen() bool { return s.data.CartOpen }

// SetCartOpen toggles the cart panel.
func (s *Session) SetCartOpen(open bool) {
	if s.data.CartOpen == open {
		return
	}
	s.data.CartOpen = open
	s.dirty = true
}
