package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	jwt_service "friday/JWT"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("generated id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Fatalf("incoming id not reused: %q", seen)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeadersMiddleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'self'",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestLoggingAndMetricsKeepStatus(t *testing.T) {
	h := MetricsMiddleware(LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/todos/42", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsRouteLabel(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/api/todos/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms/{room_id}/check", func(w http.ResponseWriter, r *http.Request) {}).Methods(http.MethodPost)

	tests := []struct {
		method, path, route, status string
	}{
		{http.MethodGet, "/api/todos/42", "/api/todos/{id:[0-9]+}", "204"},
		{http.MethodGet, "/api/todos/43", "/api/todos/{id:[0-9]+}", "204"},
		{http.MethodPost, "/api/rooms/!abc:example.org/check", "/api/rooms/{room_id}/check", "200"},
	}
	for _, tt := range tests {
		counter := requestsTotal.WithLabelValues(tt.method, tt.route, tt.status)
		before := testutil.ToFloat64(counter)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))
		if got := testutil.ToFloat64(counter) - before; got != 1 {
			t.Errorf("%s %s: counter for route %q grew by %v, want 1", tt.method, tt.path, tt.route, got)
		}
	}
}

func TestMetricsRouteLabelOutsideRouter(t *testing.T) {
	counter := requestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "200")
	before := testutil.ToFloat64(counter)
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/todos/42", nil))
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("unmatched counter grew by %v, want 1", got)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer  abc ", "abc", false},
		{"", "", true},
		{"Token abc", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, err := BearerToken(req)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

type stubParser struct{}

func (stubParser) ParseJWT(token string) (*jwt_service.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &jwt_service.Claims{OperatorID: "7", Username: "ops"}, nil
}

func TestRequireOperator(t *testing.T) {
	var got *jwt_service.Claims
	h := RequireOperator(stubParser{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = OperatorFromContext(r.Context())
	}))

	tests := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("%q: status = %d, want %d", tt.header, rec.Code, tt.status)
		}
		if tt.status == http.StatusOK && (got == nil || got.Username != "ops") {
			t.Errorf("claims not in context: %+v", got)
		}
	}
}

func TestRequireOperatorWithManager(t *testing.T) {
	m := jwt_service.NewManager("secret", time.Minute)
	token, err := m.GenerateJWT("1", "admin")
	if err != nil {
		t.Fatal(err)
	}
	h := RequireOperator(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
