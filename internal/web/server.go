package web

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/seatosky/storefront/internal/cart"
	"github.com/seatosky/storefront/internal/catalog"
	"github.com/seatosky/storefront/internal/kv"
	"github.com/seatosky/storefront/internal/platform/observability"
	"github.com/seatosky/storefront/internal/session"
	"github.com/seatosky/storefront/internal/view"
	"github.com/seatosky/storefront/public"
)

const defaultTitle = "Sea to Sky Co."

// Config wires the storefront HTTP server.
type Config struct {
	Address        string
	Catalog        *catalog.Catalog
	Backend        kv.Store
	CartKey        string
	Shipping       decimal.Decimal
	Sessions       *session.Manager
	Logger         *zap.Logger
	PublicDir      string
	Title          string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// New builds the http.Server for the storefront.
func New(cfg Config) (*http.Server, error) {
	handler, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, nil
}

// NewRouter assembles middleware, static assets and the action table.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("web: catalog is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("web: cart backend is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("web: session manager is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.CartKey) == "" {
		cfg.CartKey = cart.DefaultKey
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}

	h := &Handlers{
		catalog:  cfg.Catalog,
		backend:  cfg.Backend,
		cartKey:  cfg.CartKey,
		shipping: cfg.Shipping,
		sessions: cfg.Sessions,
		title:    cfg.Title,
		sections: view.BuildSections(cfg.Catalog),
	}
	bindings, err := h.Bindings()
	if err != nil {
		return nil, err
	}
	renderer, err := view.NewRenderer(bindings)
	if err != nil {
		return nil, err
	}
	h.bindings = bindings
	h.renderer = renderer

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.TraceMiddleware())
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	static, err := public.StaticFS()
	if err != nil {
		return nil, err
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	if cfg.PublicDir != "" {
		assets := filepath.Join(cfg.PublicDir, "assets")
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(assets))))
	}

	r.Group(func(r chi.Router) {
		r.Use(HTMX())
		r.Use(NoStore())
		bindings.Mount(r, Sessions(cfg.Sessions))
	})

	return r, nil
}

// Bindings builds the action table served by h.
func (h *Handlers) Bindings() (*Bindings, error) {
	return NewBindings(
		Binding{Action: ActionHome, Method: http.MethodGet, Route: "/", Handler: h.withVisit(h.Home)},
		Binding{Action: ActionModalOpen, Method: http.MethodGet, Route: "/products/{productID}", Handler: h.withVisit(h.OpenModal)},
		Binding{Action: ActionModalImage, Method: http.MethodPost, Route: "/modal/image", Handler: h.withVisit(h.SelectImage)},
		Binding{Action: ActionModalSize, Method: http.MethodPost, Route: "/modal/size", Handler: h.withVisit(h.SelectSize)},
		Binding{Action: ActionModalClose, Method: http.MethodPost, Route: "/modal/close", Handler: h.withVisit(h.CloseModal)},
		Binding{Action: ActionModalAdd, Method: http.MethodPost, Route: "/modal/add", Handler: h.withVisit(h.AddToCart)},
		Binding{Action: ActionCartOpen, Method: http.MethodGet, Route: "/cart", Handler: h.withVisit(h.OpenCart)},
		Binding{Action: ActionCartClose, Method: http.MethodPost, Route: "/cart/close", Handler: h.withVisit(h.CloseCart)},
		Binding{Action: ActionCartRemove, Method: http.MethodPost, Route: "/cart/lines/{index}/remove", Handler: h.withVisit(h.CartLine((*cart.Controller).Remove))},
		Binding{Action: ActionCartIncrement, Method: http.MethodPost, Route: "/cart/lines/{index}/increment", Handler: h.withVisit(h.CartLine((*cart.Controller).Increment))},
		Binding{Action: ActionCartDecrement, Method: http.MethodPost, Route: "/cart/lines/{index}/decrement", Handler: h.withVisit(h.CartLine((*cart.Controller).Decrement))},
		Binding{Action: ActionAPICart, Method: http.MethodGet, Route: "/api/cart", Handler: h.withVisit(h.APICart)},
		Binding{Action: ActionAPIRemove, Method: http.MethodPost, Route: "/api/cart/lines/{index}/remove", Handler: h.withVisit(h.APICartLine((*cart.Controller).Remove))},
		Binding{Action: ActionAPIIncrement, Method: http.MethodPost, Route: "/api/cart/lines/{index}/increment", Handler: h.withVisit(h.APICartLine((*cart.Controller).Increment))},
		Binding{Action: ActionAPIDecrement, Method: http.MethodPost, Route: "/api/cart/lines/{index}/decrement", Handler: h.withVisit(h.APICartLine((*cart.Controller).Decrement))},
		Binding{Action: ActionHealth, Method: http.MethodGet, Route: "/healthz", Handler: h.Health, Stateless: true},
	)
}
