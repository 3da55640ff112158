package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// separate bucket per key
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	e := echo.New()
	e.IPExtractor = ClientIP(nil)
	rl := NewRateLimiter(1, 2)
	h := rl.Middleware()(func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
		return rec
	}

	rec := send("192.0.2.1:40000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send("192.0.2.1:40001").Code)

	rec = send("192.0.2.1:40002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.JSONEq(t, `{"success":false,"error":"Too many requests"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, send("192.0.2.99:40000").Code)
}

func TestRateLimiter_IgnoresForwardingHeadersFromUntrustedPeers(t *testing.T) {
	e := echo.New()
	e.IPExtractor = ClientIP(nil)
	rl := NewRateLimiter(1, 2)
	h := rl.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:5555"
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("203.0.114.%d", i))
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	assert.Equal(t, 2, allowed)
	assert.Equal(t, 1, rl.Len())
}

func TestClientIP_TrustedProxy(t *testing.T) {
	_, proxies, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	extract := ClientIP([]*net.IPNet{proxies})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.9")
	assert.Equal(t, "203.0.113.9", extract(req))

	// an untrusted peer cannot choose its address
	req.RemoteAddr = "198.51.100.7:443"
	assert.Equal(t, "198.51.100.7", extract(req))

	// private ranges are not trusted unless listed
	req.RemoteAddr = "192.168.1.1:443"
	assert.Equal(t, "192.168.1.1", extract(req))
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Len())

	now = now.Add(DefaultIdleTTL / 2)
	assert.True(t, rl.Allow("c"))
	assert.Equal(t, 3, rl.Len())

	now = now.Add(DefaultIdleTTL/2 + time.Second)
	assert.True(t, rl.Allow("c"))
	assert.Equal(t, 1, rl.Len())
}

func TestCommon_CORS(t *testing.T) {
	assert.Len(t, Common(nil), 2)

	e := echo.New()
	e.Use(Common([]string{"https://portal.example.edu"})...)
	e.GET("/api/navigation", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/navigation", nil)
	req.Header.Set(echo.HeaderOrigin, "https://portal.example.edu")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "https://portal.example.edu", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
}
