package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/seatosky/storefront/internal/kv"
)

// DefaultKey is the storage slot holding the serialised cart.
const DefaultKey = "s2sc_cart"

var tracer = otel.Tracer("github.com/seatosky/storefront/internal/cart")

// Store persists a cart as a single string slot in a key/value backend.
type Store struct {
	kv     kv.Store
	key    string
	logger *zap.Logger
}

// NewStore returns a store bound to one slot. Key defaults to DefaultKey.
func NewStore(backend kv.Store, key string, logger *zap.Logger) (*Store, error) {
	if backend == nil {
		return nil, errors.New("cart store: backend is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: backend, key: key, logger: logger}, nil
}

// SlotKey namespaces the base key for one visitor.
func SlotKey(base, visitorID string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultKey
	}
	if visitorID == "" {
		return base
	}
	return base + ":" + visitorID
}

// Key returns the slot key used by the store.
func (s *Store) Key() string { return s.key }

// Load reads the cart. A missing slot, an unreadable backend, or a slot that
// fails to parse all yield an empty cart.
func (s *Store) Load(ctx context.Context) Cart {
	ctx, span := tracer.Start(ctx, "cart.Store.Load")
	defer span.End()
	span.SetAttributes(attribute.String("cart.key", s.key))

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			span.RecordError(err)
			s.logger.Warn("cart load failed; using empty cart", zap.String("key", s.key), zap.Error(err))
		}
		return Cart{}
	}

	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		span.RecordError(err)
		s.logger.Warn("cart slot unparsable; using empty cart", zap.String("key", s.key), zap.Error(err))
		return Cart{}
	}
	span.SetAttributes(attribute.Int("cart.lines", c.Len()))
	return c
}

// Save serialises the whole cart and overwrites the slot.
func (s *Store) Save(ctx context.Context, c Cart) error {
	ctx, span := tracer.Start(ctx, "cart.Store.Save")
	defer span.End()
	span.SetAttributes(attribute.String("cart.key", s.key), attribute.Int("cart.lines", c.Len()))

	payload, err := json.Marshal(c)
	if err != nil {
		span.SetStatus(codes.Error, "encode")
		return fmt.Errorf("cart store: encode: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(payload)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write")
		return fmt.Errorf("cart store: save %s: %w", s.key, err)
	}
	return nil
}
