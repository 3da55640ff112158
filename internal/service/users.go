package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Skotchmaster/mentor_portal/internal/events"
	"github.com/Skotchmaster/mentor_portal/internal/models"
	"github.com/Skotchmaster/mentor_portal/internal/repo"
	"github.com/Skotchmaster/mentor_portal/internal/revocation"
	"github.com/Skotchmaster/mentor_portal/pkg/apperrors"
	pkg_hash "github.com/Skotchmaster/mentor_portal/pkg/hash"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
)

// UserService holds the privileged identity flows: creating identities with
// any grantable role, role changes and activation.
type UserService struct {
	Repo   UserStore
	Hasher *pkg_hash.Hasher
	Epochs revocation.EpochStore
	Events events.Publisher
}

type CreateUserInput struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"required,max=100"`
	RoleID       uint   `json:"roleId" validate:"required,min=1,max=5"`
	DepartmentID *uint  `json:"departmentId"`
}

type ChangeRoleInput struct {
	RoleID uint `json:"roleId" validate:"required,min=1,max=5"`
}

type SetStatusInput struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// canManage reports whether actor may modify target. Nobody manages
// themselves, only higher ranks manage lower ones, and department admins
// stay inside their department.
func canManage(actor rbac.Principal, target *models.User) bool {
	if actor.ID == target.ID {
		return false
	}
	if actor.Role != rbac.SuperAdmin && !actor.Role.Outranks(target.Role()) {
		return false
	}
	if actor.Role == rbac.DepartmentAdmin && !actor.SameDepartment(target.DepartmentID) {
		return false
	}
	return true
}

func (s *UserService) Create(ctx context.Context, actor rbac.Principal, in CreateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.create", "actor_id", actor.ID)

	in.Email = repo.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	role := rbac.Role(in.RoleID)
	if !actor.Can(rbac.CapCreateUser) || !rbac.CanGrant(actor.Role, role) {
		l.Warn("create_user_denied", "status", 403, "target_role", role.String())
		return nil, apperrors.Forbidden("You are not allowed to create this role")
	}

	dept := in.DepartmentID
	if actor.Role == rbac.DepartmentAdmin {
		if actor.DepartmentID == nil {
			return nil, apperrors.Forbidden("Department admin has no department")
		}
		if dept == nil {
			dept = actor.DepartmentID
		}
		if !actor.SameDepartment(dept) {
			l.Warn("create_user_denied", "status", 403, "reason", "foreign department")
			return nil, apperrors.Forbidden("You can only create identities in your department")
		}
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("create_user_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, apperrors.Internal(err)
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: pwHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		RoleID:       uint(role),
		DepartmentID: dept,
		Status:       models.StatusActive,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, apperrors.Conflict("An account with this email already exists")
		}
		l.Error("create_user_error", "status", 500, "error", err)
		return nil, apperrors.Internal(err)
	}

	l.Info("user_created", "user_id", user.ID, "role", role.String())
	s.publish(ctx, events.Event{Type: events.TypeCreated, UserID: user.ID, Email: user.Email, RoleID: user.RoleID, ActorID: actor.ID})
	return user, nil
}

// Get returns an identity to a manager. Department admins only see their
// own department; identities outside it read as not found. Callers reading
// themselves go through AuthService.Me.
func (s *UserService) Get(ctx context.Context, actor rbac.Principal, id uint) (*models.User, error) {
	if !actor.Can(rbac.CapViewUsers) {
		return nil, apperrors.Forbidden("You are not allowed to view this identity")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == rbac.DepartmentAdmin && !actor.SameDepartment(user.DepartmentID) {
		return nil, apperrors.NotFound("User not found")
	}
	return user, nil
}

func (s *UserService) ChangeRole(ctx context.Context, actor rbac.Principal, id uint, in ChangeRoleInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.change_role", "actor_id", actor.ID, "user_id", id)

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !actor.Can(rbac.CapChangeRoles) {
		return nil, apperrors.Forbidden("You are not allowed to change roles")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	role := rbac.Role(in.RoleID)
	if !canManage(actor, user) || !rbac.CanGrant(actor.Role, role) {
		l.Warn("change_role_denied", "status", 403, "target_role", role.String())
		return nil, apperrors.Forbidden("You are not allowed to assign this role")
	}
	if user.Role() == role {
		return user, nil
	}

	if err := s.Repo.UpdateRole(ctx, id, uint(role)); err != nil {
		return nil, s.storeError(l, err)
	}
	user.RoleID = uint(role)
	s.bump(ctx, l, id)

	l.Info("role_changed", "role", role.String())
	s.publish(ctx, events.Event{Type: events.TypeRoleChanged, UserID: id, RoleID: uint(role), ActorID: actor.ID})
	return user, nil
}

func (s *UserService) SetStatus(ctx context.Context, actor rbac.Principal, id uint, in SetStatusInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.set_status", "actor_id", actor.ID, "user_id", id)

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !actor.Can(rbac.CapDeactivateUser) {
		return nil, apperrors.Forbidden("You are not allowed to change account status")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, user) {
		l.Warn("set_status_denied", "status", 403)
		return nil, apperrors.Forbidden("You are not allowed to manage this identity")
	}

	status := models.Status(in.Status)
	if user.Status == status {
		return user, nil
	}
	if err := s.Repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, s.storeError(l, err)
	}
	user.Status = status
	if status == models.StatusInactive {
		s.bump(ctx, l, id)
	}

	l.Info("status_changed", "new_status", string(status))
	s.publish(ctx, events.Event{Type: events.TypeStatusChanged, UserID: id, Status: string(status), ActorID: actor.ID})
	return user, nil
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *UserService) storeError(l *slog.Logger, err error) error {
	if errors.Is(err, repo.ErrUserNotFound) {
		return apperrors.NotFound("User not found")
	}
	l.Error("update_user_error", "status", 500, "error", err)
	return apperrors.Internal(err)
}

// bump invalidates outstanding access tokens. A failure leaves them valid
// until they expire, so it is logged rather than returned.
func (s *UserService) bump(ctx context.Context, l *slog.Logger, id uint) {
	if s.Epochs == nil {
		return
	}
	if err := s.Epochs.Bump(ctx, id); err != nil {
		l.Error("epoch_bump_failed", "error", err)
	}
}

func (s *UserService) publish(ctx context.Context, e events.Event) {
	publishEvent(ctx, s.Events, e)
}
