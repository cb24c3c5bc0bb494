package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/seatosky/storefront/internal/cart"
	"github.com/seatosky/storefront/internal/format"
	"github.com/seatosky/storefront/internal/platform/httpx"
)

type cartSummaryPayload struct {
	Items    int    `json:"items"`
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Total    string `json:"total"`
}

type cartPayload struct {
	VisitorID string             `json:"visitor_id"`
	Lines     cart.Cart          `json:"lines"`
	Summary   cartSummaryPayload `json:"summary"`
}

func (h *Handlers) cartPayload(v *visit) cartPayload {
	c := v.cart.Cart()
	sum := c.Summarize(h.shipping)
	return cartPayload{
		VisitorID: v.sess.VisitorID(),
		Lines:     c,
		Summary: cartSummaryPayload{
			Items:    sum.Items,
			Subtotal: format.Money(sum.Subtotal),
			Shipping: format.Money(sum.Shipping),
			Total:    format.Money(sum.Total),
		},
	}
}

func (h *Handlers) saveSession(v *visit, w http.ResponseWriter) {
	if !v.sess.Dirty() {
		return
	}
	if err := h.sessions.Save(w, v.sess); err != nil {
		v.logger.Error("session save failed", zap.Error(err))
	}
}

// APICart returns the visitor's cart as JSON.
func (h *Handlers) APICart(w http.ResponseWriter, r *http.Request, v *visit) {
	h.saveSession(v, w)
	httpx.WriteJSON(w, http.StatusOK, h.cartPayload(v))
}

// APICartLine applies op to a line and returns the updated cart as JSON.
func (h *Handlers) APICartLine(op lineOp) func(http.ResponseWriter, *http.Request, *visit) {
	return func(w http.ResponseWriter, r *http.Request, v *visit) {
		index, err := lineIndex(r)
		if err == nil {
			err = op(v.cart, r.Context(), index)
		}
		switch {
		case errors.Is(err, cart.ErrInvalidLineIndex):
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_line_index", "line index is out of range", http.StatusBadRequest).
				WithDetails(map[string]any{"lines": v.cart.Lines()}))
			return
		case err != nil:
			httpx.WriteError(r.Context(), w, httpx.NewError("cart_unavailable", "cart could not be saved", http.StatusServiceUnavailable))
			return
		}
		h.saveSession(v, w)
		httpx.WriteJSON(w, http.StatusOK, h.cartPayload(v))
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness, probing the cart backend when it supports it.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.backend.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("backend_unavailable", "cart backend is unreachable", http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
