package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/respkv-go/internal/telemetry/logger"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	healthy := true
	h := NewRouter(RouterConfig{
		Health: func() error {
			if healthy {
				return nil
			}
			return errors.New("store: stopped")
		},
		Logger: logger.Discard(),
	})

	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	healthy = false
	rec = get(t, h, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["error"] != "store: stopped" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRouter_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "respkv_store_keys 3\n")
	})
	h := NewRouter(RouterConfig{Metrics: metrics, Logger: logger.Discard()})

	rec := get(t, h, "/metrics")
	if !strings.Contains(rec.Body.String(), "respkv_store_keys 3") {
		t.Errorf("body = %q", rec.Body.String())
	}

	h = NewRouter(RouterConfig{Logger: logger.Discard()})
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d without metrics, want 404", rec.Code)
	}
}

func TestRouter_Version(t *testing.T) {
	rec := get(t, NewRouter(RouterConfig{Logger: logger.Discard()}), "/version")
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["version"] == "" || body["go_version"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestRecover(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	rec := get(t, Recover(logger.Discard())(panicking), "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.NotFoundHandler(), mark("a"), mark("b"))
	get(t, h, "/")
	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v, want [a b]", order)
	}
}

func TestServer_StartShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", NewRouter(RouterConfig{Logger: logger.Discard()}), logger.Discard())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
