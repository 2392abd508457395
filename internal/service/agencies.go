package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/repository"
	"go.uber.org/zap"
)

// AgencyService handles the tenant root and its notification feed.
type AgencyService struct {
	agencies      repository.AgencyRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

func NewAgencyService(
	agencies repository.AgencyRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	logger *zap.Logger,
) *AgencyService {
	return &AgencyService{
		agencies:      agencies,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// Upsert creates or updates an agency and, on the bootstrap path,
// attaches the user whose email matches the agency's company email as
// its owner. An agency without a company email is rejected as nil —
// the original treats that as an incomplete form, not an error.
func (s *AgencyService) Upsert(ctx context.Context, agency *models.Agency) (*models.Agency, error) {
	if agency.CompanyEmail == "" {
		return nil, nil
	}
	if agency.ID == uuid.Nil {
		agency.ID = uuid.New()
	}
	if agency.Goal == 0 {
		agency.Goal = 5
	}

	existing, err := s.agencies.GetByID(ctx, agency.ID)
	if err != nil {
		return nil, fmt.Errorf("check agency: %w", err)
	}

	out, err := s.agencies.Upsert(ctx, agency)
	if err != nil {
		return nil, err
	}

	// Connect the bootstrapping user, on create only — editing an
	// existing agency's company email must not claim whoever owns
	// that address. Only an unattached user is claimed; an existing
	// member's agency is never reassigned.
	if existing == nil {
		owner, err := s.users.GetByEmail(ctx, agency.CompanyEmail)
		if err != nil {
			return nil, fmt.Errorf("find owning user: %w", err)
		}
		if owner != nil && owner.AgencyID == nil {
			owner.AgencyID = &out.ID
			owner.Role = models.RoleAgencyOwner
			if _, err := s.users.Upsert(ctx, owner); err != nil {
				return nil, fmt.Errorf("attach owner: %w", err)
			}
		}
	}

	return out, nil
}

// UpdateDetails applies a profile update to an existing agency.
// Returns nil, nil when the agency does not exist.
func (s *AgencyService) UpdateDetails(ctx context.Context, agency *models.Agency) (*models.Agency, error) {
	return s.agencies.UpdateDetails(ctx, agency)
}

// UpdateGoal sets the agency's numeric target.
func (s *AgencyService) UpdateGoal(ctx context.Context, id uuid.UUID, goal int) error {
	return s.agencies.UpdateGoal(ctx, id, goal)
}

// Delete removes the agency and everything under it.
func (s *AgencyService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.agencies.Delete(ctx, id)
}

// Get returns the agency, or nil, nil.
func (s *AgencyService) Get(ctx context.Context, id uuid.UUID) (*models.Agency, error) {
	return s.agencies.GetByID(ctx, id)
}

// Notifications returns the agency's audit feed with authors, newest
// first.
func (s *AgencyService) Notifications(ctx context.Context, agencyID uuid.UUID) ([]models.NotificationWithUser, error) {
	return s.notifications.ListByAgency(ctx, agencyID)
}
