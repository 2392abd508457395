package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/repository"
	"go.uber.org/zap"
)

// SubAccountService provisions and maintains client accounts.
type SubAccountService struct {
	subAccounts repository.SubAccountRepository
	users       repository.UserRepository
	permissions repository.PermissionRepository
	logger      *zap.Logger
}

func NewSubAccountService(
	subAccounts repository.SubAccountRepository,
	users repository.UserRepository,
	permissions repository.PermissionRepository,
	logger *zap.Logger,
) *SubAccountService {
	return &SubAccountService{
		subAccounts: subAccounts,
		users:       users,
		permissions: permissions,
		logger:      logger,
	}
}

// Upsert creates or updates a sub-account. A create also grants the
// agency's admin user an access=true permission with a fresh id, so a
// brand-new sub-account is immediately reachable by the person who
// made it. No owner user in the agency means provisioning cannot
// proceed.
func (s *SubAccountService) Upsert(ctx context.Context, sa *models.SubAccount) (*models.SubAccount, error) {
	if sa.CompanyEmail == "" {
		return nil, nil
	}
	if sa.ID == uuid.Nil {
		sa.ID = uuid.New()
	}

	owner, err := s.users.FindByAgencyAndRole(ctx, sa.AgencyID, models.RoleAgencyAdmin)
	if err != nil {
		return nil, fmt.Errorf("find agency owner: %w", err)
	}
	if owner == nil {
		// The original also accepts the agency owner itself here.
		owner, err = s.users.FindByAgencyAndRole(ctx, sa.AgencyID, models.RoleAgencyOwner)
		if err != nil {
			return nil, fmt.Errorf("find agency owner: %w", err)
		}
	}
	if owner == nil {
		return nil, ErrNoAgencyOwner
	}

	existing, err := s.subAccounts.GetByID(ctx, sa.ID)
	if err != nil {
		return nil, fmt.Errorf("check sub-account: %w", err)
	}

	out, err := s.subAccounts.Upsert(ctx, sa)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if _, err := s.permissions.Upsert(ctx, &models.Permission{
			ID:           uuid.New(),
			Email:        owner.Email,
			SubAccountID: out.ID,
			Access:       true,
		}); err != nil {
			return nil, fmt.Errorf("grant owner access: %w", err)
		}
	}

	return out, nil
}

// Get returns the sub-account, or nil, nil.
func (s *SubAccountService) Get(ctx context.Context, id uuid.UUID) (*models.SubAccount, error) {
	return s.subAccounts.GetByID(ctx, id)
}

// Delete removes the sub-account and its grants.
func (s *SubAccountService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.subAccounts.Delete(ctx, id)
}
