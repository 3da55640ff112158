package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/mentor_portal/internal/service"
	"github.com/Skotchmaster/mentor_portal/internal/transport"
	"github.com/Skotchmaster/mentor_portal/pkg/apperrors"
	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
)

type UsersHTTP struct {
	Svc   *service.UserService
	Table *rbac.Table
}

func principal(c echo.Context) (rbac.Principal, error) {
	p, ok := rbac.PrincipalFromContext(c.Request().Context())
	if !ok {
		return rbac.Principal{}, apperrors.Unauthorized("Authentication required")
	}
	return p, nil
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("Invalid user id", map[string]string{"id": "must be a positive integer"})
	}
	return uint(id), nil
}

func (h *UsersHTTP) Navigation(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(transport.NavigationDTO{
		Role:         p.Role.String(),
		Routes:       h.Table.AllowedRoutes(p.Role),
		Capabilities: h.Table.Capabilities(p.Role),
	}))
}

func (h *UsersHTTP) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req service.CreateUserInput
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("Invalid request body", nil)
	}

	user, err := h.Svc.Create(c.Request().Context(), p, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.OK(echo.Map{
		"user": transport.NewUserDTO(user),
	}))
}

func (h *UsersHTTP) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	user, err := h.Svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(echo.Map{
		"user": transport.NewUserDTO(user),
	}))
}

func (h *UsersHTTP) ChangeRole(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.ChangeRoleInput
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("Invalid request body", nil)
	}

	user, err := h.Svc.ChangeRole(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(echo.Map{
		"user": transport.NewUserDTO(user),
	}))
}

func (h *UsersHTTP) SetStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req service.SetStatusInput
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("Invalid request body", nil)
	}

	user, err := h.Svc.SetStatus(c.Request().Context(), p, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.OK(echo.Map{
		"user": transport.NewUserDTO(user),
	}))
}
