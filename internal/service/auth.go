package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/mentor_portal/internal/events"
	"github.com/Skotchmaster/mentor_portal/internal/metrics"
	"github.com/Skotchmaster/mentor_portal/internal/models"
	"github.com/Skotchmaster/mentor_portal/internal/repo"
	"github.com/Skotchmaster/mentor_portal/internal/revocation"
	"github.com/Skotchmaster/mentor_portal/pkg/apperrors"
	pkg_hash "github.com/Skotchmaster/mentor_portal/pkg/hash"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
	"github.com/Skotchmaster/mentor_portal/pkg/rbac"
	"github.com/Skotchmaster/mentor_portal/pkg/tokens"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidAccessToken  = errors.New("invalid access token")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
	UpdateRole(ctx context.Context, id uint, roleID uint) error
	UpdateStatus(ctx context.Context, id uint, status models.Status) error
}

type AuthService struct {
	Repo         UserStore
	Hasher       *pkg_hash.Hasher
	Access       *tokens.Codec
	RefreshCodec *tokens.Codec
	Epochs       revocation.EpochStore
	Events       events.Publisher
	Metrics      *metrics.Metrics
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type RefreshResult struct {
	User        *models.User
	AccessToken string
	AccessExp   time.Time
}

func identityOf(u *models.User) tokens.Identity {
	return tokens.Identity{
		UserID:       u.ID,
		Email:        u.Email,
		RoleID:       u.RoleID,
		DepartmentID: u.DepartmentID,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Email = repo.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateInput(in); err != nil {
		l.Warn("register_error", "status", 400, "reason", "validation")
		return nil, err
	}

	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, apperrors.Internal(err)
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: pwHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		RoleID:       uint(rbac.Student),
		Status:       models.StatusActive,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, apperrors.Conflict("An account with this email already exists")
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, apperrors.Internal(err)
	}

	l.Info("register_successful", "user_id", user.ID)
	s.publish(ctx, events.Event{Type: events.TypeRegistered, UserID: user.ID, Email: user.Email, RoleID: user.RoleID})
	return user, nil
}

// Login checks credentials and mints an access and a refresh token. Unknown
// emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	in.Email = repo.NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		s.Metrics.Login("validation")
		l.Warn("login_failed", "status", 400, "reason", "validation")
		return nil, err
	}

	user, err := s.Repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			s.Hasher.Burn(in.Password)
			s.Metrics.Login("invalid_credentials")
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, apperrors.InvalidCredentials()
		}
		s.Metrics.Login("error")
		l.Error("login_failed", "status", 500, "error", err)
		return nil, apperrors.Internal(err)
	}
	l = l.With("user_id", user.ID)

	if !user.IsActive() {
		s.Metrics.Login("disabled")
		l.Warn("login_failed", "status", 403, "reason", "account disabled")
		return nil, apperrors.AccountDisabled()
	}

	if !s.Hasher.Verify(in.Password, user.PasswordHash) {
		s.Metrics.Login("invalid_credentials")
		l.Warn("login_failed", "status", 401, "reason", "password mismatch")
		return nil, apperrors.InvalidCredentials()
	}

	id := identityOf(user)
	accessToken, accessExp, err := s.Access.Issue(id)
	if err != nil {
		s.Metrics.Login("error")
		l.Error("login_failed", "status", 500, "error", err)
		return nil, apperrors.Internal(err)
	}
	refreshToken, refreshExp, err := s.RefreshCodec.Issue(id)
	if err != nil {
		s.Metrics.Login("error")
		l.Error("login_failed", "status", 500, "error", err)
		return nil, apperrors.Internal(err)
	}

	s.Metrics.Login("ok")
	l.Info("login_successful", "role", user.Role().String())
	s.publish(ctx, events.Event{Type: events.TypeLoggedIn, UserID: user.ID, RoleID: user.RoleID})

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh mints a new access token from the identity's current stored state.
// Missing, inactive or unknown identities are rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		s.Metrics.TokenVerified(string(tokens.TypeRefresh), "missing")
		return nil, apperrors.Unauthorized("Missing refresh token")
	}

	claims, err := s.RefreshCodec.Verify(refreshToken)
	if err != nil {
		kind := tokens.KindOf(err)
		s.Metrics.TokenVerified(string(tokens.TypeRefresh), string(kind))
		l.Warn("refresh_failed", "status", 401, "reason", kind)
		return nil, &apperrors.AppError{Code: "UNAUTHORIZED", Message: "Invalid or expired refresh token", Err: errors.Join(apperrors.ErrUnauthorized, ErrInvalidRefreshToken)}
	}
	s.Metrics.TokenVerified(string(tokens.TypeRefresh), "ok")

	user, err := s.Repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "identity gone", "user_id", claims.UserID)
			return nil, apperrors.Unauthorized("Invalid or expired refresh token")
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, apperrors.Internal(err)
	}
	if !user.IsActive() {
		l.Warn("refresh_failed", "status", 401, "reason", "account disabled", "user_id", user.ID)
		return nil, apperrors.Unauthorized("Invalid or expired refresh token")
	}

	accessToken, accessExp, err := s.Access.Issue(identityOf(user))
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, apperrors.Internal(err)
	}

	l.Info("refresh_successful", "user_id", user.ID)
	return &RefreshResult{User: user, AccessToken: accessToken, AccessExp: accessExp}, nil
}

// VerifyAccess validates an access token and rejects tokens issued before
// the identity's session epoch. Epoch lookup failures reject as well.
func (s *AuthService) VerifyAccess(ctx context.Context, accessToken string) (*tokens.Claims, error) {
	if accessToken == "" {
		s.Metrics.TokenVerified(string(tokens.TypeAccess), "missing")
		return nil, apperrors.Unauthorized("Missing access token")
	}

	claims, err := s.Access.Verify(accessToken)
	if err != nil {
		s.Metrics.TokenVerified(string(tokens.TypeAccess), string(tokens.KindOf(err)))
		return nil, &apperrors.AppError{Code: "UNAUTHORIZED", Message: "Invalid or expired access token", Err: errors.Join(apperrors.ErrUnauthorized, ErrInvalidAccessToken, err)}
	}

	if s.Epochs != nil && claims.IssuedAt != nil {
		revoked, err := s.Epochs.Revoked(ctx, claims.UserID, claims.IssuedAt.Time)
		if err != nil {
			s.Metrics.TokenVerified(string(tokens.TypeAccess), "epoch_error")
			logging.FromContext(ctx).Error("epoch_lookup_failed", "user_id", claims.UserID, "error", err)
			return nil, apperrors.Unauthorized("Session could not be verified")
		}
		if revoked {
			s.Metrics.TokenVerified(string(tokens.TypeAccess), "revoked")
			return nil, apperrors.Unauthorized("Session is no longer valid")
		}
	}

	s.Metrics.TokenVerified(string(tokens.TypeAccess), "ok")
	return claims, nil
}

// Me returns the identity behind an access token as currently stored.
func (s *AuthService) Me(ctx context.Context, accessToken string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.me")

	claims, err := s.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.Repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperrors.Unauthorized("Identity no longer exists")
		}
		l.Error("me_failed", "status", 500, "error", err)
		return nil, apperrors.Internal(err)
	}
	if !user.IsActive() {
		return nil, apperrors.Unauthorized("Account is disabled")
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	publishEvent(ctx, s.Events, e)
}

// publishEvent never fails the caller. A lost event is logged.
func publishEvent(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}
