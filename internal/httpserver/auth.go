package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mentor_portal/internal/service"
	"github.com/Skotchmaster/mentor_portal/internal/transport"
	"github.com/Skotchmaster/mentor_portal/pkg/apperrors"
	"github.com/Skotchmaster/mentor_portal/pkg/cookies"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	Cookies cookies.Factory
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return apperrors.Validation("Invalid request body", nil)
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transport.OK(echo.Map{
		"user":    transport.NewUserDTO(user),
		"message": "Registration successful",
	}))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperrors.Validation("Invalid request body", nil)
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return err
	}

	c.SetCookie(h.Cookies.Create(cookies.AccessToken, res.AccessToken, res.AccessExp))
	c.SetCookie(h.Cookies.Create(cookies.RefreshToken, res.RefreshToken, res.RefreshExp))

	return c.JSON(http.StatusOK, transport.OK(echo.Map{
		"user":    transport.NewUserDTO(res.User),
		"message": "Login successful",
	}))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var token string
	if ck, err := c.Cookie(cookies.RefreshToken); err == nil {
		token = ck.Value
	}

	res, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		return err
	}

	c.SetCookie(h.Cookies.Create(cookies.AccessToken, res.AccessToken, res.AccessExp))
	return c.JSON(http.StatusOK, transport.OK(echo.Map{
		"message": "Token refreshed",
	}))
}

// LogOut only clears the cookies. Issued tokens stay valid until they expire.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_logout")

	c.SetCookie(h.Cookies.Delete(cookies.AccessToken))
	c.SetCookie(h.Cookies.Delete(cookies.RefreshToken))

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.OK(echo.Map{
		"message": "Logged out",
	}))
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	var token string
	if ck, err := c.Cookie(cookies.AccessToken); err == nil {
		token = ck.Value
	}

	user, err := h.Svc.Me(ctx, token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(echo.Map{
		"user": transport.NewUserDTO(user),
	}))
}
