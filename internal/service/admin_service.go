package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/events"
	"github.com/spec-kit/study-share/internal/repository"
	apperrors "github.com/spec-kit/study-share/pkg/util/errorutil"
)

// AdminService manages privileged members.
type AdminService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AdminDependencies bundles collaborators for the admin service.
type AdminDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: deps.UserRepo, dispatcher: deps.Dispatcher, logger: logger.Named("admin")}
}

// ListAdministrators returns every admin and super-admin.
func (s *AdminService) ListAdministrators(ctx context.Context, actor domain.Identity) ([]domain.User, error) {
	if !actor.Role.Privileged() {
		return nil, forbidden()
	}
	users, err := s.users.ListByRoles(ctx, domain.RoleAdmin, domain.RoleSuperAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// SetRole changes a member's role. Only a super-admin may, and never their own.
func (s *AdminService) SetRole(ctx context.Context, actor domain.Identity, userID string, role domain.Role) (*domain.User, error) {
	if actor.Role != domain.RoleSuperAdmin {
		return nil, forbidden()
	}
	if actor.UserID == userID {
		return nil, apperrors.NewValidationError("cannot change your own role", nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return s.applyRole(ctx, events.ActorFrom(actor), user, role)
}

// SetRoleByEmail is the operator path used by the admin CLI; it carries no
// caller identity.
func (s *AdminService) SetRoleByEmail(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return s.applyRole(ctx, events.Actor{}, user, role)
}

func (s *AdminService) applyRole(ctx context.Context, actor events.Actor, user *domain.User, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	old := user.Role
	if old == role {
		return user, nil
	}
	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, notFoundOr(err, "user")
	}
	user.Role = role

	s.logger.Info("role changed",
		zap.String("user_id", user.ID),
		zap.String("old_role", string(old)),
		zap.String("new_role", string(role)),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventRoleChanged, actor, events.RoleChangedPayload{
			UserID:  user.ID,
			OldRole: old,
			NewRole: role,
		}))
	}
	return user, nil
}
