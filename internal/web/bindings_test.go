package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestBindingsURL(t *testing.T) {
	t.Parallel()

	b, err := NewBindings(
		Binding{Action: ActionHome, Method: http.MethodGet, Route: "/", Handler: ok},
		Binding{Action: ActionModalOpen, Method: http.MethodGet, Route: "/products/{productID}", Handler: ok},
		Binding{Action: ActionCartRemove, Method: http.MethodPost, Route: "/cart/lines/{index}/remove", Handler: ok},
	)
	require.NoError(t, err)

	u, err := b.URL(ActionHome)
	require.NoError(t, err)
	require.Equal(t, "/", u)

	u, err = b.URL(ActionModalOpen, "ski dad/hat")
	require.NoError(t, err)
	require.Equal(t, "/products/ski%20dad%2Fhat", u)

	u, err = b.URL(ActionCartRemove, "3")
	require.NoError(t, err)
	require.Equal(t, "/cart/lines/3/remove", u)

	_, err = b.URL(ActionModalOpen)
	require.Error(t, err)
	_, err = b.URL(ActionHome, "extra")
	require.Error(t, err)
	_, err = b.URL("nope")
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestNewBindingsRejectsBadTables(t *testing.T) {
	t.Parallel()

	_, err := NewBindings(Binding{Action: ActionHome, Method: http.MethodGet})
	require.Error(t, err)

	_, err = NewBindings(
		Binding{Action: ActionHome, Method: http.MethodGet, Route: "/"},
		Binding{Action: ActionHome, Method: http.MethodGet, Route: "/again"},
	)
	require.ErrorContains(t, err, "duplicate action")
}

func TestMountWrapsOnlyStatefulBindings(t *testing.T) {
	t.Parallel()

	b, err := NewBindings(
		Binding{Action: ActionHome, Method: http.MethodGet, Route: "/", Handler: ok},
		Binding{Action: ActionHealth, Method: http.MethodGet, Route: "/healthz", Handler: ok, Stateless: true},
	)
	require.NoError(t, err)

	var wrapped []string
	sessions := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = append(wrapped, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewRouter()
	b.Mount(r, sessions)

	for _, path := range []string{"/", "/healthz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, []string{"/"}, wrapped)
}

func TestStorefrontBindingsAreComplete(t *testing.T) {
	t.Parallel()

	h := &Handlers{}
	b, err := h.Bindings()
	require.NoError(t, err)

	for _, action := range []string{
		ActionHome, ActionModalOpen, ActionModalImage, ActionModalSize, ActionModalClose, ActionModalAdd,
		ActionCartOpen, ActionCartClose, ActionCartRemove, ActionCartIncrement, ActionCartDecrement,
		ActionAPICart, ActionAPIRemove, ActionAPIIncrement, ActionAPIDecrement, ActionHealth,
	} {
		binding, found := b.Lookup(action)
		require.True(t, found, action)
		require.NotNil(t, binding.Handler, action)
	}
	health, _ := b.Lookup(ActionHealth)
	require.True(t, health.Stateless)
}
