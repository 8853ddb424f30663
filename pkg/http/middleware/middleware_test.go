package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	applogger "AlertRelay/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/panic", func(c echo.Context) error { panic("kaboom") })
	e.GET("/fail", func(c echo.Context) error { return errors.New("unexpected") })
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	e := newEcho(CORS(CORSConfig{
		AllowOrigins:  []string{"https://app.example.com"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{echo.HeaderContentType},
		ExposeHeaders: []string{echo.HeaderXRequestID},
		MaxAge:        10 * time.Minute,
	}))

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := serve(e, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	h := rec.Header()
	if h.Get(echo.HeaderAccessControlAllowOrigin) != "https://app.example.com" ||
		h.Get(echo.HeaderAccessControlAllowMethods) != "GET, POST" ||
		h.Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("preflight headers = %v", h)
	}

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example.com")
	rec = serve(e, req)
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("disallowed origin: status %d, headers %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
	rec = serve(e, req)
	if rec.Header().Get(echo.HeaderAccessControlExposeHeaders) != echo.HeaderXRequestID {
		t.Fatalf("simple request headers = %v", rec.Header())
	}
}

func TestCORSWildcard(t *testing.T) {
	e := newEcho(CORS(CORSConfig{AllowOrigins: []string{"*"}}))
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "https://anywhere.test")
	if got := serve(e, req).Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestRequestID(t *testing.T) {
	e := newEcho(RequestID())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	if got := serve(e, req).Header().Get(echo.HeaderXRequestID); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestRecoverAndLogging(t *testing.T) {
	l := applogger.NewNop()
	e := newEcho(Recover(l), RequestLogging(l))

	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/panic", nil)); rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic status = %d", rec.Code)
	}
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/fail", nil)); rec.Code != http.StatusInternalServerError {
		t.Fatalf("error status = %d", rec.Code)
	}
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil)); rec.Code != http.StatusOK {
		t.Fatalf("ok status = %d", rec.Code)
	}
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEcho(NewHTTPMetrics(reg).Middleware(applogger.NewNop(), time.Second))
	serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected http metrics to be collected")
	}
}
