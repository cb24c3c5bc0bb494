package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seatosky/storefront/internal/cart"
	"github.com/seatosky/storefront/internal/catalog"
	"github.com/seatosky/storefront/internal/kv"
	"github.com/seatosky/storefront/internal/modal"
	"github.com/seatosky/storefront/internal/platform/observability"
	"github.com/seatosky/storefront/internal/session"
	"github.com/seatosky/storefront/internal/view"
)

// Handlers serves the storefront pages and fragments.
type Handlers struct {
	catalog  *catalog.Catalog
	backend  kv.Store
	cartKey  string
	shipping decimal.Decimal
	sessions *session.Manager
	title    string
	sections []view.Section
	renderer *view.Renderer
	bindings *Bindings
}

// visit is the per-request view of one visitor: session, modal and cart.
type visit struct {
	sess   *session.Session
	modal  *modal.Presenter
	cart   *cart.Controller
	logger *zap.Logger
}

func (h *Handlers) begin(r *http.Request) (*visit, error) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	sess, ok := SessionFromContext(ctx)
	if !ok {
		sess = h.sessions.New()
	}

	store, err := cart.NewStore(h.backend, cart.SlotKey(h.cartKey, sess.VisitorID()), logger)
	if err != nil {
		return nil, err
	}
	ctrl, err := cart.NewController(ctx, cart.ControllerDeps{
		Store:  store,
		Logger: logger,
		Observers: []cart.Observer{cart.ObserverFunc(func(ctx context.Context, c cart.Cart) {
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int("cart.lines", c.Len()),
				attribute.Int("cart.items", c.ItemCount()),
			)
		})},
	})
	if err != nil {
		return nil, err
	}

	presenter := modal.New(h.catalog, logger)
	presenter.Restore(sess.Modal())

	return &visit{sess: sess, modal: presenter, cart: ctrl, logger: logger}, nil
}

// withVisit adapts a visit-aware handler.
func (h *Handlers) withVisit(fn func(http.ResponseWriter, *http.Request, *visit)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.begin(r)
		if err != nil {
			observability.FromContext(r.Context()).Error("visit setup failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		fn(w, r, v)
	}
}

// respond persists the session and renders either fragments (htmx) or the
// full page. Non-htmx form posts redirect home.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, v *visit) {
	v.sess.SetModal(v.modal.State())
	h.saveSession(v, w)

	if IsHTMXRequest(r.Context()) {
		templ.Handler(h.renderer.Fragments(view.Fragments{
			Modal: v.modal.View(),
			Cart:  h.cartView(v),
		})).ServeHTTP(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Redirect(w, r, h.homeURL(), http.StatusSeeOther)
		return
	}
	templ.Handler(h.renderer.Page(h.page(v))).ServeHTTP(w, r)
}

// unchanged answers a lookup miss: 204 for htmx, otherwise the current view.
func (h *Handlers) unchanged(w http.ResponseWriter, r *http.Request, v *visit, err error) {
	v.logger.Debug("action ignored", zap.Error(err))
	if IsHTMXRequest(r.Context()) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respond(w, r, v)
}

func (h *Handlers) cartView(v *visit) view.CartView {
	cv := view.BuildCart(v.cart.Cart(), h.shipping)
	cv.Open = v.sess.CartOpen()
	return cv
}

func (h *Handlers) page(v *visit) view.Page {
	return view.Page{
		Title:    h.title,
		Sections: h.sections,
		Modal:    v.modal.View(),
		Cart:     h.cartView(v),
	}
}

func (h *Handlers) homeURL() string {
	if u, err := h.bindings.URL(ActionHome); err == nil {
		return u
	}
	return "/"
}

// Home renders the storefront with the visitor's current overlays.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request, v *visit) {
	h.respond(w, r, v)
}

// OpenModal opens the product detail dialog.
func (h *Handlers) OpenModal(w http.ResponseWriter, r *http.Request, v *visit) {
	productID := chi.URLParam(r, "productID")
	observability.SpanAttributes(r, attribute.String("product.id", productID))
	if err := v.modal.Open(productID); err != nil {
		h.unchanged(w, r, v, err)
		return
	}
	h.respond(w, r, v)
}

// SelectImage swaps the main gallery image.
func (h *Handlers) SelectImage(w http.ResponseWriter, r *http.Request, v *visit) {
	if err := v.modal.SelectImage(r.PostFormValue("src")); err != nil {
		h.unchanged(w, r, v, err)
		return
	}
	h.respond(w, r, v)
}

// SelectSize marks the chosen size.
func (h *Handlers) SelectSize(w http.ResponseWriter, r *http.Request, v *visit) {
	if err := v.modal.SelectSize(r.PostFormValue("size")); err != nil {
		h.unchanged(w, r, v, err)
		return
	}
	h.respond(w, r, v)
}

// CloseModal closes the product dialog. Closing twice is harmless.
func (h *Handlers) CloseModal(w http.ResponseWriter, r *http.Request, v *visit) {
	v.modal.Close()
	h.respond(w, r, v)
}

// AddToCart confirms the modal selection, closes it and opens the cart.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request, v *visit) {
	res, err := v.modal.ConfirmAddToCart(r.Context(), v.cart)
	switch {
	case errors.Is(err, modal.ErrClosed):
		h.unchanged(w, r, v, err)
		return
	case err != nil:
		http.Error(w, "cart is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if res.OpenCart {
		v.sess.SetCartOpen(true)
	}
	h.respond(w, r, v)
}

// OpenCart shows the cart panel.
func (h *Handlers) OpenCart(w http.ResponseWriter, r *http.Request, v *visit) {
	v.sess.SetCartOpen(true)
	h.respond(w, r, v)
}

// CloseCart hides the cart panel.
func (h *Handlers) CloseCart(w http.ResponseWriter, r *http.Request, v *visit) {
	v.sess.SetCartOpen(false)
	h.respond(w, r, v)
}

type lineOp func(*cart.Controller, context.Context, int) error

// CartLine applies op to the line addressed by the {index} route parameter.
func (h *Handlers) CartLine(op lineOp) func(http.ResponseWriter, *http.Request, *visit) {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		index, err := lineIndex(r)
		if err == nil {
			err = op(v.cart, r.Context(), index)
		}
		switch {
		case errors.Is(err, cart.ErrInvalidLineIndex):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			http.Error(w, "cart is temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		h.respond(w, r, v)
	}
}

func lineIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(cart.ErrInvalidLineIndex, err)
	}
	return index, nil
}
