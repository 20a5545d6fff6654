package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/ratelimit"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type pingResponse struct {
	Pong bool `json:"pong"`
}

func (pingResponse) Message() string { return "pong" }

func newTestRouter(t *testing.T, yaml string) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return NewRouter(Config{Config: cfg, UUID: fixedID("cid-1")})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestRouter_SuccessEnvelope(t *testing.T) {
	// Arrange
	r := newTestRouter(t, "app: {}")
	r.POST("/ping", func(req *Request) (any, error) {
		var in struct {
			Name string `json:"name"`
		}
		if err := req.DecodeBody(&in); err != nil {
			return nil, err
		}
		return pingResponse{Pong: in.Name == "x"}, nil
	})

	// Act
	rec, out := do(t, r, http.MethodPost, "/ping", `{"name":"x"}`)

	// Assert
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["message"] != "pong" || out["data"].(map[string]any)["pong"] != true {
		t.Fatalf("body = %v", out)
	}
	if rec.Header().Get(HeaderCorrelationID) != "cid-1" {
		t.Fatalf("missing correlation header")
	}
}

func TestRouter_DecodeBodyRejectsUnknownFields(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.POST("/ping", func(req *Request) (any, error) {
		var in struct{}
		return nil, req.DecodeBody(&in)
	})

	rec, _ := do(t, r, http.MethodPost, "/ping", `{"extra":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRouter_BusinessErrorWithRetryAfter(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.POST("/issue", func(*Request) (any, error) {
		return nil, goerror.NewBusiness("wait", goerror.CodeTooManyRequest,
			goerror.FieldReason, "THROTTLED_WAIT", goerror.FieldRetryAfterMinutes, "7")
	})

	rec, out := do(t, r, http.MethodPost, "/issue", `{}`)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "420" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if out["error"].(map[string]any)["reason"] != "THROTTLED_WAIT" {
		t.Fatalf("body = %v", out)
	}
}

func TestRouter_UnclassifiedErrorIs500(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.GET("/boom", func(*Request) (any, error) { return nil, errors.New("db down") })

	rec, out := do(t, r, http.MethodGet, "/boom", "")
	if rec.Code != http.StatusInternalServerError || out["message"] != "Internal server error" {
		t.Fatalf("got %d %v", rec.Code, out)
	}
}

func TestRouter_RecoversPanic(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.GET("/panic", func(*Request) (any, error) { panic("oops") })

	rec, _ := do(t, r, http.MethodGet, "/panic", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouter_Maintenance(t *testing.T) {
	r := newTestRouter(t, "app:\n  maintenance:\n    endpoints: [/issue]\n")
	r.POST("/issue", func(*Request) (any, error) { return pingResponse{}, nil })
	r.POST("/other", func(*Request) (any, error) { return pingResponse{}, nil })

	if rec, _ := do(t, r, http.MethodPost, "/issue", `{}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodPost, "/other", `{}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

type stubLimiter struct {
	res ratelimit.Result
	err error
	key string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ ratelimit.Rule) (ratelimit.Result, error) {
	s.key = key
	return s.res, s.err
}

func TestRateLimit(t *testing.T) {
	rule := ratelimit.Rule{Max: 5, Window: time.Minute}

	t.Run("blocked", func(t *testing.T) {
		lim := &stubLimiter{res: ratelimit.Result{Limit: 5, RetryAfter: 1500 * time.Millisecond}}
		r := newTestRouter(t, "app: {}")
		r.POST("/issue", func(*Request) (any, error) { return pingResponse{}, nil }, RateLimit(lim, "issue", rule))

		rec, _ := do(t, r, http.MethodPost, "/issue", `{}`)

		if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "2" {
			t.Fatalf("got %d Retry-After=%q", rec.Code, rec.Header().Get("Retry-After"))
		}
		if lim.key != "issue:10.0.0.1" {
			t.Fatalf("key = %q", lim.key)
		}
	})

	t.Run("limiter failure lets request through", func(t *testing.T) {
		lim := &stubLimiter{err: errors.New("redis down")}
		r := newTestRouter(t, "app: {}")
		r.POST("/issue", func(*Request) (any, error) { return pingResponse{}, nil }, RateLimit(lim, "issue", rule))

		if rec, _ := do(t, r, http.MethodPost, "/issue", `{}`); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")

	if got := realIP(req); got != "203.0.113.9" {
		t.Fatalf("realIP = %q", got)
	}
}
