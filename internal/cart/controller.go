package cart

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/seatosky/storefront/internal/catalog"
)

var errControllerStoreRequired = errors.New("cart controller: store is required")

const metricNamespace = "github.com/seatosky/storefront/internal/cart"

// Mutation outcomes recorded on the cart.mutations counter.
const (
	outcomeOK         = "ok"
	outcomeRejected   = "rejected"
	outcomeSaveFailed = "save_failed"
)

// Observer is notified after every mutation has been persisted.
type Observer interface {
	CartChanged(ctx context.Context, c Cart)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Cart)

// CartChanged implements Observer.
func (f ObserverFunc) CartChanged(ctx context.Context, c Cart) { f(ctx, c) }

// ControllerDeps wires the controller collaborators.
type ControllerDeps struct {
	Store     *Store
	Logger    *zap.Logger
	Observers []Observer
	// Meter defaults to the global meter provider.
	Meter metric.Meter
}

// Controller owns one visitor's cart. Each mutation runs to completion:
// mutate, save, then notify observers.
type Controller struct {
	cart      Cart
	store     *Store
	logger    *zap.Logger
	observers []Observer

	mutations        metric.Int64Counter
	mutationsEnabled bool
}

// NewController loads the cart from the store and returns a controller.
func NewController(ctx context.Context, deps ControllerDeps) (*Controller, error) {
	if deps.Store == nil {
		return nil, errControllerStoreRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	mutations, err := meter.Int64Counter(
		"cart.mutations",
		metric.WithDescription("Cart mutations by operation and outcome"),
	)
	if err != nil {
		logger.Warn("cart: unable to register mutation metric", zap.Error(err))
	}
	return &Controller{
		cart:             deps.Store.Load(ctx),
		store:            deps.Store,
		logger:           logger,
		observers:        append([]Observer(nil), deps.Observers...),
		mutations:        mutations,
		mutationsEnabled: err == nil,
	}, nil
}

// Observe registers an additional observer.
func (c *Controller) Observe(o Observer) {
	if o != nil {
		c.observers = append(c.observers, o)
	}
}

// Cart returns the current cart value.
func (c *Controller) Cart() Cart { return c.cart }

// Lines returns the number of cart lines.
func (c *Controller) Lines() int { return c.cart.Len() }

// Add adds one unit of product in size. Callers pass a size drawn from the
// product's size list.
func (c *Controller) Add(ctx context.Context, p catalog.Product, size string) error {
	ctx, span := tracer.Start(ctx, "cart.Controller.Add")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", p.ID), attribute.String("product.size", size))

	return c.commit(ctx, "add", c.cart.Add(p, size))
}

// Remove deletes the line at index.
func (c *Controller) Remove(ctx context.Context, index int) error {
	return c.apply(ctx, "remove", index, Cart.Remove)
}

// Increment adds one to the line at index.
func (c *Controller) Increment(ctx context.Context, index int) error {
	return c.apply(ctx, "increment", index, Cart.Increment)
}

// Decrement subtracts one from the line at index without going below 1. The
// cart is persisted and observers notified even when the quantity is kept.
func (c *Controller) Decrement(ctx context.Context, index int) error {
	return c.apply(ctx, "decrement", index, Cart.Decrement)
}

func (c *Controller) apply(ctx context.Context, op string, index int, fn func(Cart, int) (Cart, error)) error {
	ctx, span := tracer.Start(ctx, "cart.Controller."+op)
	defer span.End()
	span.SetAttributes(attribute.Int("cart.index", index))

	next, err := fn(c.cart, index)
	if err != nil {
		span.RecordError(err)
		c.logger.Debug("cart mutation rejected",
			zap.String("op", op),
			zap.Int("index", index),
			zap.Int("lines", c.cart.Len()),
			zap.Error(err),
		)
		c.record(ctx, op, outcomeRejected)
		return err
	}
	return c.commit(ctx, op, next)
}

func (c *Controller) commit(ctx context.Context, op string, next Cart) error {
	c.cart = next
	if err := c.store.Save(ctx, next); err != nil {
		c.logger.Error("cart save failed", zap.String("op", op), zap.String("key", c.store.Key()), zap.Error(err))
		c.record(ctx, op, outcomeSaveFailed)
		return err
	}
	c.record(ctx, op, outcomeOK)
	for _, o := range c.observers {
		o.CartChanged(ctx, next)
	}
	return nil
}

func (c *Controller) record(ctx context.Context, op, outcome string) {
	if !c.mutationsEnabled {
		return
	}
	c.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cart.op", op),
		attribute.String("cart.outcome", outcome),
	))
}
