package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serve(h http.Handler, method, path string) {
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, http.NoBody))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/rag/documents/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/rag/documents/{id}", "200", "false")
	before := testutil.ToFloat64(counter)
	serve(r, "GET", "/rag/documents/doc-1")
	serve(r, "GET", "/rag/documents/doc-2")

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests counted = %v, want 2", got)
	}
	if testutil.CollectAndCount(HTTPRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/created", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusCreated) })
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.Get("/silent", func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		path, status string
	}{
		{"/created", "201"},
		{"/missing", "404"},
		{"/silent", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c := HTTPRequestsTotal.WithLabelValues("GET", tt.path, tt.status, "false")
			before := testutil.ToFloat64(c)
			serve(r, "GET", tt.path)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("count = %v, want 1", got)
			}
		})
	}
}

func TestMiddleware_DegradedLabel(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/rag/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(DegradedHeader, "true")
		w.WriteHeader(http.StatusOK)
	})

	c := HTTPRequestsTotal.WithLabelValues("POST", "/rag/search", "200", "true")
	before := testutil.ToFloat64(c)
	serve(r, "POST", "/rag/search")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("degraded count = %v, want 1", got)
	}
}

func TestMiddleware_SkipPaths(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware("/metrics"))
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	c := HTTPRequestsTotal.WithLabelValues("GET", "/metrics", "200", "false")
	before := testutil.ToFloat64(c)
	serve(r, "GET", "/metrics")
	if after := testutil.ToFloat64(c); after != before {
		t.Errorf("skipped path counted: %v -> %v", before, after)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	// chi only runs the middleware stack once at least one route exists.
	r.Get("/known", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	c := HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404", "false")
	before := testutil.ToFloat64(c)
	serve(r, "GET", "/no/such/route")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("unmatched count = %v, want 1", got)
	}
}
