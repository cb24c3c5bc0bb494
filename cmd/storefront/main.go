package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/seatosky/storefront/internal/catalog"
	"github.com/seatosky/storefront/internal/kv"
	"github.com/seatosky/storefront/internal/platform/config"
	"github.com/seatosky/storefront/internal/platform/observability"
	"github.com/seatosky/storefront/internal/session"
	"github.com/seatosky/storefront/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	products, err := loadCatalog(cfg.Assets.CatalogFile)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	backend, closeBackend, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to initialise cart backend", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("cart backend close error", zap.Error(err))
		}
	}()

	sessions, err := newSessionManager(cfg.Session, logger)
	if err != nil {
		logger.Fatal("failed to initialise sessions", zap.Error(err))
	}

	srv, err := web.New(web.Config{
		Address:        cfg.Server.Address(),
		Catalog:        products,
		Backend:        backend,
		CartKey:        cfg.Store.CartKey,
		Shipping:       cfg.Shop.Shipping,
		Sessions:       sessions,
		Logger:         logger,
		PublicDir:      cfg.Assets.PublicDir,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening",
			zap.String("addr", srv.Addr),
			zap.String("store_driver", cfg.Store.Driver),
			zap.Int("products", len(products.All())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("storefront stopped")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func openBackend(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (kv.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory cart backend; carts are lost on restart")
		return kv.NewMemory(), noop, nil
	case config.DriverRedis:
		store := kv.NewRedis(kv.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.DriverFirestore:
		store, err := kv.NewFirestore(ctx, kv.FirestoreConfig{
			ProjectID:    cfg.Firestore.ProjectID,
			Collection:   cfg.Firestore.Collection,
			EmulatorHost: cfg.Firestore.EmulatorHost,
		})
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func newSessionManager(cfg config.SessionConfig, logger *zap.Logger) (*session.Manager, error) {
	hashKey := decodeKey(cfg.HashKey)
	if len(hashKey) == 0 {
		logger.Warn("STOREFRONT_SESSION_HASH_KEY not set; using an ephemeral key, sessions reset on restart")
		hashKey = securecookie.GenerateRandomKey(64)
		if hashKey == nil {
			return nil, errors.New("session: could not generate hash key")
		}
	}
	return session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     decodeKey(cfg.BlockKey),
		CookieSecure: cfg.Secure,
		Lifetime:     cfg.Lifetime,
	})
}

// decodeKey accepts base64 or raw key material.
func decodeKey(value string) []byte {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded
	}
	return []byte(value)
}
