package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mentor_portal/internal/metrics"
	"github.com/Skotchmaster/mentor_portal/pkg/apperrors"
	"github.com/Skotchmaster/mentor_portal/pkg/cookies"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
	"github.com/Skotchmaster/mentor_portal/pkg/tokens"
)

type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	ReturnToParam    = "returnTo"
)

var publicPrefixes = []string{
	LoginPath,
	"/register",
	"/forgot-password",
	"/reset-password",
	UnauthorizedPath,
	"/auth",
	"/health",
	"/metrics",
	"/static",
	"/favicon.ico",
}

// IsPublic reports whether path is reachable without a session.
func IsPublic(path string) bool {
	for _, p := range publicPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func IsAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// CleanPath resolves dot segments and repeated slashes so that every
// spelling of a route is classified as the route it reaches.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

// Decide classifies a protected or public request. claims is nil when no
// valid access token was presented.
func Decide(table *rbac.Table, p string, claims *tokens.Claims) Decision {
	p = CleanPath(p)
	if IsPublic(p) {
		return Allow
	}
	if claims == nil {
		return RedirectLogin
	}
	role := rbac.Role(claims.RoleID)
	if !role.Valid() {
		return RedirectLogin
	}
	if route, ok := table.Match(p); ok && !route.Allows(role) {
		return RedirectUnauthorized
	}
	return Allow
}

type Verifier interface {
	VerifyAccess(ctx context.Context, accessToken string) (*tokens.Claims, error)
}

// Gate runs in front of every handler. Page requests are redirected, API
// requests get 401 or 403 JSON errors.
type Gate struct {
	Table    *rbac.Table
	Verifier Verifier
	Metrics  *metrics.Metrics
}

func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			p := CleanPath(req.URL.Path)
			decision, principal := g.classify(c, p)
			g.Metrics.GateDecision(decision.String())

			switch decision {
			case Allow:
				if principal != nil {
					c.SetRequest(req.WithContext(rbac.ContextWithPrincipal(req.Context(), *principal)))
				}
				return next(c)
			case RedirectUnauthorized:
				if IsAPI(p) {
					return apperrors.Forbidden("You do not have access to this resource")
				}
				return c.Redirect(http.StatusFound, UnauthorizedPath)
			default:
				if IsAPI(p) {
					return apperrors.Unauthorized("Authentication required")
				}
				return c.Redirect(http.StatusFound, LoginPath+"?"+ReturnToParam+"="+url.QueryEscape(req.URL.RequestURI()))
			}
		}
	}
}

// classify never panics. Any failure while verifying fails closed. reqPath
// must already be cleaned.
func (g *Gate) classify(c echo.Context, reqPath string) (d Decision, p *rbac.Principal) {
	ctx := c.Request().Context()
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("gate_panic", "panic", fmt.Sprint(r))
			d, p = RedirectLogin, nil
		}
	}()

	if IsPublic(reqPath) {
		return Allow, nil
	}

	var claims *tokens.Claims
	if ck, err := c.Cookie(cookies.AccessToken); err == nil && ck.Value != "" {
		verified, err := g.Verifier.VerifyAccess(ctx, ck.Value)
		if err != nil {
			logging.FromContext(ctx).Debug("gate_token_rejected", "reason", tokens.KindOf(err), "error", err)
		} else {
			claims = verified
		}
	}

	d = Decide(g.Table, reqPath, claims)
	if d != Allow || claims == nil {
		return d, nil
	}
	return d, &rbac.Principal{
		ID:           claims.UserID,
		Email:        claims.Email,
		Role:         rbac.Role(claims.RoleID),
		DepartmentID: claims.DepartmentID,
	}
}

// RequireCapability rejects principals lacking c with 403.
func RequireCapability(c rbac.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			p, ok := rbac.PrincipalFromContext(ec.Request().Context())
			if !ok {
				return apperrors.Unauthorized("Authentication required")
			}
			if !p.Can(c) {
				return apperrors.Forbidden("You do not have access to this resource")
			}
			return next(ec)
		}
	}
}
