package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Recoverer)
	r.Use(Metrics)
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	r.Get("/panic-late", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		panic("late boom")
	})
	return r
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(zerolog.New(&buf))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "inside handler", lines[0]["message"])
	assert.NotEmpty(t, lines[0]["request_id"])
	assert.Equal(t, lines[0]["request_id"], lines[1]["request_id"])
	assert.Equal(t, "request", lines[1]["message"])
	assert.Equal(t, float64(http.StatusTeapot), lines[1]["status"])
	assert.Equal(t, "/ok", lines[1]["path"])
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(zerolog.New(&buf))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Installer Error")
	assert.Contains(t, rec.Body.String(), "Request ID:")
	assert.NotContains(t, rec.Body.String(), "boom")

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "handler panic", lines[0]["message"])
	assert.Equal(t, "boom", lines[0]["panic"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestRecoverer_ResponseAlreadyStarted(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(zerolog.New(&buf))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic-late", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "handler panic", lines[0]["message"])
	assert.Equal(t, true, lines[0]["response_started"])
	assert.Equal(t, "info", lines[1]["level"])
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	router := newRouter(zerolog.Nop())
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/ok", "418"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/ok", "418"))
	assert.Equal(t, before+2, after)
}

func TestStatusWriter_FirstHeaderWins(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	w.Write([]byte("body"))
	w.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, w.status)
	assert.Equal(t, rec, w.Unwrap())
}
