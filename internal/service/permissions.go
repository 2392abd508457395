package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/repository"
	"github.com/plurahq/agencyhub/internal/scope"
	"go.uber.org/zap"
)

// AccessCache is the invalidation + read-through surface the toggle
// needs. Implemented by cache.PermissionCache; nil disables caching.
type AccessCache interface {
	HasAccess(ctx context.Context, email string, subAccountID uuid.UUID, load func(ctx context.Context) (bool, error)) (bool, error)
	Invalidate(ctx context.Context, email string, subAccountID uuid.UUID)
}

// PermissionService sets per-user sub-account access grants.
type PermissionService struct {
	permissions repository.PermissionRepository
	subAccounts repository.SubAccountRepository
	users       repository.UserRepository
	activity    *ActivityService
	cache       AccessCache
	logger      *zap.Logger
}

func NewPermissionService(
	permissions repository.PermissionRepository,
	subAccounts repository.SubAccountRepository,
	users repository.UserRepository,
	activity *ActivityService,
	cache AccessCache,
	logger *zap.Logger,
) *PermissionService {
	return &PermissionService{
		permissions: permissions,
		subAccounts: subAccounts,
		users:       users,
		activity:    activity,
		cache:       cache,
		logger:      logger,
	}
}

// SetPermissionInput carries one toggle. PermissionID is the stable
// handle a caller may hold from a prior read; nil means "mint one".
// AgencyScoped marks calls coming from the agency-level user-details
// surface, which audit the change.
type SetPermissionInput struct {
	PermissionID *uuid.UUID
	Email        string
	SubAccountID uuid.UUID
	Access       bool
	AgencyScoped bool
}

// Set idempotently creates or flips the grant for
// (in.Email, in.SubAccountID). The upsert is a single statement
// conflicting on the pair's unique constraint, so two concurrent
// toggles cannot produce two rows; last write wins on Access.
func (s *PermissionService) Set(ctx context.Context, principal *models.Principal, in SetPermissionInput) (*models.Permission, error) {
	id := uuid.New()
	if in.PermissionID != nil {
		id = *in.PermissionID
	}

	perm, err := s.permissions.Upsert(ctx, &models.Permission{
		ID:           id,
		Email:        in.Email,
		SubAccountID: in.SubAccountID,
		Access:       in.Access,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, in.Email, in.SubAccountID)
	}

	if in.AgencyScoped {
		if err := s.recordToggle(ctx, principal, in); err != nil {
			return nil, err
		}
	}

	return perm, nil
}

// recordToggle audits an agency-scoped access change:
// "Gave <user> access to | <sub-account>", attributed to the
// sub-account's owning agency.
func (s *PermissionService) recordToggle(ctx context.Context, principal *models.Principal, in SetPermissionInput) error {
	target, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return fmt.Errorf("resolve permission target: %w", err)
	}
	sa, err := s.subAccounts.GetByID(ctx, in.SubAccountID)
	if err != nil {
		return fmt.Errorf("resolve sub-account: %w", err)
	}

	targetName := in.Email
	if target != nil {
		targetName = target.Name
	}
	subAccountName := in.SubAccountID.String()
	if sa != nil {
		subAccountName = sa.Name
	}

	description := fmt.Sprintf("Gave %s access to | %s", targetName, subAccountName)
	_, err = s.activity.Record(ctx, principal, scope.SubAccount(in.SubAccountID), description)
	return err
}

// HasAccess answers the hot-path check behind every sub-account-scoped
// request, through the cache when one is wired.
func (s *PermissionService) HasAccess(ctx context.Context, email string, subAccountID uuid.UUID) (bool, error) {
	load := func(ctx context.Context) (bool, error) {
		perm, err := s.permissions.Get(ctx, email, subAccountID)
		if err != nil {
			return false, err
		}
		return perm != nil && perm.Access, nil
	}

	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.HasAccess(ctx, email, subAccountID, load)
}
