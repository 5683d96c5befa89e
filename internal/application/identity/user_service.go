package identity

import (
	"context"
	"fmt"

	appaudit "github.com/ledgerdesk/backend/internal/application/audit"
	"github.com/ledgerdesk/backend/internal/domain/audit"
	"github.com/ledgerdesk/backend/internal/domain/identity"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// UserService manages operator accounts
type UserService struct {
	userRepo identity.UserRepository
	recorder *appaudit.Recorder
	clock    shared.Clock
	logger   *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo identity.UserRepository, recorder *appaudit.Recorder, clock shared.Clock, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		recorder: recorder,
		clock:    clock,
		logger:   logger,
	}
}

// CreateUser creates an account. Only a SuperAdmin may do this.
func (s *UserService) CreateUser(ctx context.Context, actor identity.Actor, input CreateUserInput) (*UserInfo, error) {
	if err := actor.Authorize(identity.ActionManageAccounts); err != nil {
		s.recorder.RecordDenied(ctx, actor, identity.ActionManageAccounts, audit.EntityUser, identity.NormalizeUsername(input.Username))
		return nil, err
	}

	user, err := s.create(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// GetUser returns the account with the given username
func (s *UserService) GetUser(ctx context.Context, username string) (*UserInfo, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return nil, shared.NewNotFoundError("User", identity.NormalizeUsername(username))
		}
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// EnsureBootstrapAdmin creates a SuperAdmin when the account table is empty.
// It reports whether an account was created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if username == "" || password == "" {
		logger.WithLogger(ctx, s.logger).Warn("No accounts exist and no bootstrap admin is configured")
		return false, nil
	}

	user, err := s.create(ctx, identity.SystemActor(identity.SystemActorMaintenance), CreateUserInput{
		Username: username,
		Password: password,
		Role:     identity.RoleSuperAdmin,
	})
	if err != nil {
		return false, err
	}
	logger.WithLogger(ctx, s.logger).Info("Bootstrap admin created", zap.String("username", user.Username))
	return true, nil
}

func (s *UserService) create(ctx context.Context, actor identity.Actor, input CreateUserInput) (*identity.User, error) {
	user, err := identity.NewUser(input.Username, input.Password, input.Role, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if shared.IsCode(err, shared.CodeConflict) {
			return nil, shared.NewConflictError(fmt.Sprintf("Username %s is already taken", user.Username))
		}
		return nil, err
	}

	s.recorder.Record(ctx,
		audit.DraftFor(actor, audit.ActionUserCreated, audit.StatusSuccess).
			On(audit.EntityUser, user.Username).
			Describe(fmt.Sprintf("Created %s account %s", user.Role, user.Username)))
	return user, nil
}
