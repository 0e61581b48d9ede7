package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequestID_GeneratesID(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/api/v1/patients")

	h := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rid, _ := c.Get("request_id").(string)
	if rid == "" {
		t.Error("expected request_id to be set on context")
	}
	if rec.Header().Get("X-Request-ID") != rid {
		t.Error("expected X-Request-ID header to match context value")
	}
}

func TestRequestID_HonorsIncomingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rid, _ := c.Get("request_id").(string); rid != "upstream-id" {
		t.Errorf("expected upstream-id, got %q", rid)
	}
}

func TestRecovery_ConvertsPanicToError(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients")
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	h := Recovery(logger)(func(c echo.Context) error {
		panic("boom")
	})

	err := h(c)
	if err == nil {
		t.Fatal("expected error after panic")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 HTTPError, got %v", err)
	}
}

func TestRecovery_CommittedResponseKeepsStatus(t *testing.T) {
	c, rec := newTestContext(http.MethodPost, "/api/v1/visits/abc/diagnosis/stream")
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	h := Recovery(logger)(func(c echo.Context) error {
		if err := c.String(http.StatusOK, "event: stage_start\n\n"); err != nil {
			return err
		}
		panic("mid-stream")
	})

	if err := h(c); err != nil {
		t.Fatalf("expected no error once the response is committed, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected the committed 200 to stand, got %d", rec.Code)
	}
}

func TestLogger_EmitsRouteAndIdentityFields(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/diagnoses/4f2b", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/diagnoses/:id")
	c.SetParamNames("id")
	c.SetParamValues("4f2b")
	c.Set("request_id", "rid-1")
	c.Set("doctor_id", "doc-7")

	var buf bytes.Buffer
	h := Logger(zerolog.New(&buf))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := buf.String()
	for _, want := range []string{
		`"route":"/api/v1/diagnoses/:id"`,
		`"resource_id":"4f2b"`,
		`"doctor_id":"doc-7"`,
		`"request_id":"rid-1"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestLogger_ErrorLevelOnHandlerError(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients")

	var buf bytes.Buffer
	h := Logger(zerolog.New(&buf))(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})
	if err := h(c); err == nil {
		t.Fatal("expected handler error to propagate")
	}

	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("expected error-level log line, got %s", buf.String())
	}
}

func TestRateLimit_AllowsWithinBudget(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 5})
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 5; i++ {
		c, _ := newTestContext(http.MethodGet, "/api/v1/patients")
		if err := h(c); err != nil {
			t.Fatalf("request %d unexpectedly limited: %v", i, err)
		}
	}
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	c, _ := newTestContext(http.MethodGet, "/api/v1/patients")
	if err := h(c); err != nil {
		t.Fatalf("first request unexpectedly limited: %v", err)
	}

	c2, _ := newTestContext(http.MethodGet, "/api/v1/patients")
	err := h(c2)
	if err == nil {
		t.Fatal("expected second request to be limited")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", err)
	}
}

func TestParseLimit(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1M", 1 << 20},
		{"512K", 512 << 10},
		{"2G", 2 << 30},
		{"1024", 1024},
		{"", 1 << 20},
		{"garbage", 1 << 20},
	}
	for _, tc := range cases {
		if got := parseLimit(tc.in); got != tc.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
