package middleware

import (
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
)

// Common is the stack every portal request passes through before the gate.
// Credentials are allowed so the session cookies travel cross origin; with
// no origins configured CORS is not installed at all.
func Common(allowedOrigins []string) []echo.MiddlewareFunc {
	mws := []echo.MiddlewareFunc{
		ecM.RequestID(),
		ecM.SecureWithConfig(ecM.SecureConfig{
			XSSProtection:      "1; mode=block",
			ContentTypeNosniff: "nosniff",
			XFrameOptions:      "DENY",
			ReferrerPolicy:     "strict-origin-when-cross-origin",
		}),
	}
	if len(allowedOrigins) > 0 {
		mws = append(mws, ecM.CORSWithConfig(ecM.CORSConfig{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           600,
		}))
	}
	return mws
}

// ClientIP picks how echo resolves RealIP. With no trusted proxies the TCP
// peer is the client and forwarding headers are ignored. Otherwise the
// X-Forwarded-For chain is walked back through the trusted ranges only.
func ClientIP(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}
