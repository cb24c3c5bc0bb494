package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/seatosky/storefront/internal/cart"
	"github.com/seatosky/storefront/internal/catalog"
	"github.com/seatosky/storefront/internal/kv"
	"github.com/seatosky/storefront/internal/session"
	"github.com/seatosky/storefront/internal/web"
)

// ServerOption customises the storefront configuration for tests.
type ServerOption func(*web.Config)

// WithBackend overrides the cart store backend.
func WithBackend(store kv.Store) ServerOption {
	return func(cfg *web.Config) {
		cfg.Backend = store
	}
}

// WithCatalog overrides the product catalog.
func WithCatalog(cat *catalog.Catalog) ServerOption {
	return func(cfg *web.Config) {
		cfg.Catalog = cat
	}
}

// NewServer constructs an httptest server running the storefront stack with
// the embedded catalog and an in-memory cart backend.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	sessions, err := session.NewManager(session.Config{
		HashKey: []byte("storefront-test-hash-key-0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	cfg := web.Config{
		Address:  ":0",
		Catalog:  cat,
		Backend:  kv.NewMemory(),
		Shipping: cart.FlatShipping(),
		Sessions: sessions,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handler, err := web.NewRouter(cfg)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client with a cookie jar that does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
