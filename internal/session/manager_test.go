package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/seatosky/storefront/internal/modal"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName: "test_session",
		HashKey:    []byte("12345678901234567890123456789012"),
		BlockKey:   []byte("abcdefghijklmnopqrstuv0123456789"),
		Lifetime:   2 * time.Hour,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	return mgr, clock
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func roundTrip(t *testing.T, mgr *Manager, sess *Session) *Session {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))

	cookie := findCookie(rec.Result().Cookies(), mgr.CookieName())
	require.NotNil(t, cookie, "session cookie must be set")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	return mgr.Load(req)
}

func TestNewVisitorGetsULID(t *testing.T) {
	t.Parallel()

	mgr, clock := newTestManager(t)
	sess := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, sess.Fresh())
	require.True(t, sess.Dirty())
	_, err := ulid.ParseStrict(sess.VisitorID())
	require.NoError(t, err)
	require.True(t, sess.CreatedAt().Equal(clock.current))
	require.True(t, sess.ExpiresAt().Equal(clock.current.Add(2*time.Hour)))
}

func TestSessionRoundTripKeepsVisitorAndUIState(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t)
	sess := mgr.New()
	state := modal.State{ProductID: "604-skyline", Size: "11x14", Image: "assets/images/604_skyline.png"}
	sess.SetModal(state)
	sess.SetCartOpen(true)

	loaded := roundTrip(t, mgr, sess)
	require.False(t, loaded.Fresh())
	require.False(t, loaded.Dirty())
	require.Equal(t, sess.VisitorID(), loaded.VisitorID())
	require.Equal(t, state, loaded.Modal())
	require.True(t, loaded.CartOpen())
}

func TestSettersTrackDirty(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t)
	loaded := roundTrip(t, mgr, mgr.New())
	require.False(t, loaded.Dirty())

	loaded.SetCartOpen(false)
	loaded.SetModal(modal.State{})
	require.False(t, loaded.Dirty(), "unchanged values must not mark the session dirty")

	loaded.SetCartOpen(true)
	require.True(t, loaded.Dirty())
}

func TestExpiredSessionStartsNewVisitor(t *testing.T) {
	t.Parallel()

	mgr, clock := newTestManager(t)
	sess := mgr.New()

	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie)

	clock.current = clock.current.Add(3 * time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	loaded := mgr.Load(req)
	require.True(t, loaded.Fresh())
	require.NotEqual(t, sess.VisitorID(), loaded.VisitorID())
}

func TestTamperedCookieStartsNewVisitor(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged"})

	require.True(t, mgr.Load(req).Fresh())
}

func TestSaveSetsCookieAttributes(t *testing.T) {
	t.Parallel()

	mgr, clock := newTestManager(t)
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, mgr.New()))

	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, 7200, cookie.MaxAge)
	require.True(t, cookie.Expires.Equal(clock.current.Add(2*time.Hour).Truncate(time.Second)))

	require.Error(t, mgr.Save(rec, nil))
}

func TestNewManagerValidatesKeys(t *testing.T) {
	t.Parallel()

	_, err := NewManager(Config{})
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = NewManager(Config{HashKey: []byte("hash"), BlockKey: []byte("short")})
	require.ErrorIs(t, err, ErrInvalidConfig)

	mgr, err := NewManager(Config{HashKey: []byte("hash"), NewID: func() string { return "fixed" }})
	require.NoError(t, err)
	require.Equal(t, "s2sc_session", mgr.CookieName())
	require.Equal(t, "fixed", mgr.New().VisitorID())
}

func TestSameSiteDefaultsToLax(t *testing.T) {
	t.Parallel()

	for _, mode := range []http.SameSite{0, http.SameSiteDefaultMode} {
		mgr, err := NewManager(Config{HashKey: []byte("hash"), CookieSameSite: mode})
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		require.NoError(t, mgr.Save(rec, mgr.New()))
		cookie := findCookie(rec.Result().Cookies(), mgr.CookieName())
		require.NotNil(t, cookie)
		require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	}

	mgr, err := NewManager(Config{HashKey: []byte("hash"), CookieSameSite: http.SameSiteStrictMode})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, mgr.New()))
	require.Equal(t, http.SameSiteStrictMode, findCookie(rec.Result().Cookies(), mgr.CookieName()).SameSite)
}

func TestStaleSessionIsReissuedOnLoad(t *testing.T) {
	t.Parallel()

	mgr, clock := newTestManager(t)
	sess := mgr.New()
	rec := httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, sess))
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	require.NotNil(t, cookie)

	load := func() *Session {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		return mgr.Load(req)
	}

	// Lifetime is 2h, so the refresh threshold is 4 minutes.
	clock.current = clock.current.Add(time.Minute)
	require.False(t, load().Dirty())

	clock.current = clock.current.Add(10 * time.Minute)
	loaded := load()
	require.False(t, loaded.Fresh())
	require.True(t, loaded.Dirty())
	require.Equal(t, sess.VisitorID(), loaded.VisitorID())

	rec = httptest.NewRecorder()
	require.NoError(t, mgr.Save(rec, loaded))
	require.True(t, loaded.ExpiresAt().Equal(clock.current.Add(2*time.Hour)))
}
