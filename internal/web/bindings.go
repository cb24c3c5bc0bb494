package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Action names referenced by templates and tests.
const (
	ActionHome          = "page.home"
	ActionModalOpen     = "modal.open"
	ActionModalImage    = "modal.image"
	ActionModalSize     = "modal.size"
	ActionModalClose    = "modal.close"
	ActionModalAdd      = "modal.add"
	ActionCartOpen      = "cart.open"
	ActionCartClose     = "cart.close"
	ActionCartRemove    = "cart.remove"
	ActionCartIncrement = "cart.increment"
	ActionCartDecrement = "cart.decrement"
	ActionAPICart       = "api.cart"
	ActionAPIRemove     = "api.cart.remove"
	ActionAPIIncrement  = "api.cart.increment"
	ActionAPIDecrement  = "api.cart.decrement"
	ActionHealth        = "health"
)

// ErrUnknownAction is returned when resolving a URL for an unregistered action.
var ErrUnknownAction = errors.New("web: unknown action")

// Binding maps one user action to its route and handler. Stateless bindings
// run without the visitor session.
type Binding struct {
	Action    string
	Method    string
	Route     string
	Handler   http.HandlerFunc
	Stateless bool
}

// Bindings is the action table. It is built once per router and is read-only
// afterwards.
type Bindings struct {
	list  []Binding
	index map[string]int
}

// NewBindings validates and indexes the table. Action names must be unique.
func NewBindings(list ...Binding) (*Bindings, error) {
	b := &Bindings{list: make([]Binding, 0, len(list)), index: make(map[string]int, len(list))}
	for _, binding := range list {
		if binding.Action == "" || binding.Route == "" || binding.Method == "" {
			return nil, fmt.Errorf("web: incomplete binding %+v", binding)
		}
		if _, dup := b.index[binding.Action]; dup {
			return nil, fmt.Errorf("web: duplicate action %q", binding.Action)
		}
		b.index[binding.Action] = len(b.list)
		b.list = append(b.list, binding)
	}
	return b, nil
}

// All returns the bindings in registration order.
func (b *Bindings) All() []Binding {
	return append([]Binding(nil), b.list...)
}

// Lookup returns the binding for action.
func (b *Bindings) Lookup(action string) (Binding, bool) {
	i, ok := b.index[action]
	if !ok {
		return Binding{}, false
	}
	return b.list[i], true
}

// URL fills the route parameters of action in order and returns the path.
func (b *Bindings) URL(action string, params ...string) (string, error) {
	binding, ok := b.Lookup(action)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	segments := strings.Split(binding.Route, "/")
	next := 0
	for i, seg := range segments {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		if next >= len(params) {
			return "", fmt.Errorf("web: action %q needs parameter %s", action, seg)
		}
		segments[i] = url.PathEscape(params[next])
		next++
	}
	if next != len(params) {
		return "", fmt.Errorf("web: action %q takes %d parameters, got %d", action, next, len(params))
	}
	return strings.Join(segments, "/"), nil
}

// Mount registers every binding on the router. Stateful bindings are wrapped
// with the session middleware.
func (b *Bindings) Mount(r chi.Router, sessions func(http.Handler) http.Handler) {
	stateful := r
	if sessions != nil {
		stateful = r.With(sessions)
	}
	for _, binding := range b.list {
		if binding.Handler == nil {
			continue
		}
		if binding.Stateless {
			r.Method(binding.Method, binding.Route, binding.Handler)
			continue
		}
		stateful.Method(binding.Method, binding.Route, binding.Handler)
	}
}
