package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/seatosky/storefront/internal/platform/requestctx"
)

func newObservedRouter(t *testing.T, register func(chi.Router)) (http.Handler, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(logger))
	r.Use(TraceMiddleware())
	r.Use(RequestLoggerMiddleware())
	r.Use(RecoveryMiddleware(logger))
	register(r)
	return r, logs
}

func TestRequestLoggerRecordsRouteStatusAndVisitor(t *testing.T) {
	t.Parallel()

	handler, logs := newObservedRouter(t, func(r chi.Router) {
		r.Get("/products/{productID}", func(w http.ResponseWriter, r *http.Request) {
			requestctx.SetVisitorID(r.Context(), "01HVISITOR")
			w.WriteHeader(http.StatusNoContent)
		})
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/604-skyline", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/products/{productID}", fields["route"])
	require.EqualValues(t, http.StatusNoContent, fields["status"])
	require.Equal(t, "01HVISITOR", fields["visitor_id"])
	require.Equal(t, "GET", fields["method"])
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestRequestLoggerWarnsOnClientErrors(t *testing.T) {
	t.Parallel()

	handler, logs := newObservedRouter(t, func(r chi.Router) {
		r.Post("/cart/lines/{index}/remove", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad index", http.StatusBadRequest)
		})
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/lines/9/remove", nil))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestRecoveryWritesEnvelopeForAPI(t *testing.T) {
	t.Parallel()

	handler, logs := newObservedRouter(t, func(r chi.Router) {
		r.Get("/api/cart", func(http.ResponseWriter, *http.Request) { panic("boom") })
		r.Get("/", func(http.ResponseWriter, *http.Request) { panic("boom") })
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "internal_server_error", body["error"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	require.Equal(t, 2, logs.FilterMessage("panic recovered").Len())
	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 2)
	require.Equal(t, zapcore.ErrorLevel, completed[0].Level)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("chatty")
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	debug, err := NewLogger("debug")
	require.NoError(t, err)
	require.True(t, debug.Core().Enabled(zapcore.DebugLevel))
}

func TestSanitizeStringDropsControlCharacters(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", sanitizeString("a\nb\x00c", 10))
	require.Equal(t, "ab", sanitizeString("abcdef", 2))
}
