package service

import (
	"context"
	"fmt"

	"github.com/plurahq/agencyhub/internal/identity"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/repository"
	"go.uber.org/zap"
)

// UserService handles the principal's own user row: first-sign-in
// provisioning, profile reads, and profile/role updates.
type UserService struct {
	users       repository.UserRepository
	agencies    repository.AgencyRepository
	permissions repository.PermissionRepository
	provider    identity.Provider
	logger      *zap.Logger
}

func NewUserService(
	users repository.UserRepository,
	agencies repository.AgencyRepository,
	permissions repository.PermissionRepository,
	provider identity.Provider,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:       users,
		agencies:    agencies,
		permissions: permissions,
		provider:    provider,
		logger:      logger,
	}
}

// Init upserts the principal's user row on first sign-in and pushes
// the role into provider metadata. Replayable: the upsert keys on
// email, and the metadata push overwrites. A replay that carries no
// role keeps the role already on the row — only the first call
// defaults to SUBACCOUNT_USER.
func (s *UserService) Init(ctx context.Context, principal *models.Principal, role models.Role) (*models.User, error) {
	if principal == nil {
		return nil, ErrNotAuthenticated
	}
	if role == "" {
		existing, err := s.users.GetByEmail(ctx, principal.Email)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if existing != nil {
			role = existing.Role
		} else {
			role = models.RoleSubAccountUser
		}
	}

	user, err := s.users.Upsert(ctx, &models.User{
		ID:        principal.ID,
		Name:      principal.Name(),
		Email:     principal.Email,
		AvatarURL: principal.ImageURL,
		Role:      role,
	})
	if err != nil {
		return nil, fmt.Errorf("init user: %w", err)
	}

	if err := s.provider.SetUserMetadata(ctx, user.ID, user.Role); err != nil {
		s.logger.Warn("metadata propagation failed during init",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrMetadataUpdateFailed, err)
	}

	return user, nil
}

// UserDetails is the authenticated user's full context: their row,
// their agency (nil before onboarding) and their sub-account grants.
type UserDetails struct {
	User        models.User                       `json:"user"`
	Agency      *models.Agency                    `json:"agency"`
	Permissions []models.PermissionWithSubAccount `json:"permissions"`
}

// AuthDetails loads the principal's details, or nil, nil for a
// principal with no provisioned user yet.
func (s *UserService) AuthDetails(ctx context.Context, principal *models.Principal) (*UserDetails, error) {
	if principal == nil {
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.GetByEmail(ctx, principal.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	details := &UserDetails{User: *user}

	if user.AgencyID != nil {
		agency, err := s.agencies.GetByID(ctx, *user.AgencyID)
		if err != nil {
			return nil, fmt.Errorf("get agency: %w", err)
		}
		details.Agency = agency
	}

	perms, err := s.permissions.ListByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	details.Permissions = perms

	return details, nil
}

// UpdateUserInput is a profile/role update keyed by email.
type UpdateUserInput struct {
	Email     string
	Name      string
	AvatarURL string
	Role      models.Role
}

// Update applies the change and re-propagates the role to the
// provider. An email with no user behind it is ErrUserNotResolvable.
func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleSubAccountUser
	}

	user, err := s.users.Update(ctx, &models.User{
		Email:     in.Email,
		Name:      in.Name,
		AvatarURL: in.AvatarURL,
		Role:      role,
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("update %s: %w", in.Email, ErrUserNotResolvable)
	}

	if err := s.provider.SetUserMetadata(ctx, user.ID, user.Role); err != nil {
		s.logger.Warn("metadata propagation failed during update",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrMetadataUpdateFailed, err)
	}

	return user, nil
}

// SyncFromProvider applies a provider webhook event to the local user
// row. An unknown email is provisioned with the default role; a known
// one only gets its profile fields refreshed — the provider never
// outranks locally assigned roles.
func (s *UserService) SyncFromProvider(ctx context.Context, p models.Principal) (*models.User, error) {
	existing, err := s.users.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if existing == nil {
		user, err := s.users.Upsert(ctx, &models.User{
			ID:        p.ID,
			Name:      p.Name(),
			Email:     p.Email,
			AvatarURL: p.ImageURL,
			Role:      models.RoleSubAccountUser,
		})
		if err != nil {
			return nil, fmt.Errorf("provision user from webhook: %w", err)
		}
		return user, nil
	}

	existing.Name = p.Name()
	existing.AvatarURL = p.ImageURL
	user, err := s.users.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("sync user from webhook: %w", err)
	}
	return user, nil
}

// Permissions returns a user's grants joined with their sub-accounts.
func (s *UserService) Permissions(ctx context.Context, userID string) ([]models.PermissionWithSubAccount, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return []models.PermissionWithSubAccount{}, nil
	}
	return s.permissions.ListByEmail(ctx, user.Email)
}
