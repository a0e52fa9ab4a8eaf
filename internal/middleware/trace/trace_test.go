package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	clublog "trainingclub/internal/log"
	"trainingclub/internal/metrics"
)

func TestMiddlewareSetsRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil, clublog.New(clublog.DefaultConfig()))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "upstream-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "upstream-1" {
		t.Errorf("incoming request id not kept: %q", seen)
	}
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	reg := metrics.New()
	m := NewMiddleware(nil, reg, clublog.New(clublog.DefaultConfig()))

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/members/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/members/abc", nil))

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	want := `trainingclub_http_requests_total{method="GET",route="/api/members/{id}",status="404"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("metrics missing %q", want)
	}
}
