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

// Publisher pushes a freshly recorded notification to live dashboard
// feeds. Implemented by realtime.Hub; nil disables publishing.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification)
}

// ActivityService resolves who acted and what scope the action applies
// to, then appends the audit row. It is the sink every mutating
// operation reports into.
type ActivityService struct {
	users         repository.UserRepository
	subAccounts   repository.SubAccountRepository
	notifications repository.NotificationRepository
	publisher     Publisher
	logger        *zap.Logger
}

func NewActivityService(
	users repository.UserRepository,
	subAccounts repository.SubAccountRepository,
	notifications repository.NotificationRepository,
	publisher Publisher,
	logger *zap.Logger,
) *ActivityService {
	return &ActivityService{
		users:         users,
		subAccounts:   subAccounts,
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
	}
}

// ResolveActingUser maps the ambient principal onto an application
// user. With no principal (webhook / server-triggered action) it falls
// back to any member of the agency owning subAccountID — a best-effort
// service identity. Read-only; nil, nil when nothing is resolvable.
func (s *ActivityService) ResolveActingUser(ctx context.Context, principal *models.Principal, subAccountID uuid.UUID) (*models.User, error) {
	if principal != nil {
		return s.users.GetByEmail(ctx, principal.Email)
	}
	if subAccountID == uuid.Nil {
		return nil, nil
	}
	return s.users.FindAgencyMemberBySubAccount(ctx, subAccountID)
}

// resolveAgency derives the owning agency from the scope union. A nil
// scope is the "neither id supplied" state and is always an error: an
// audited action must be attributable to some tenant.
func (s *ActivityService) resolveAgency(ctx context.Context, sc scope.Scope) (uuid.UUID, error) {
	switch v := sc.(type) {
	case scope.AgencyScope:
		return v.AgencyID, nil
	case scope.SubAccountScope:
		sa, err := s.subAccounts.GetByID(ctx, v.SubAccountID)
		if err != nil {
			return uuid.Nil, err
		}
		if sa == nil {
			return uuid.Nil, fmt.Errorf("sub-account %s: %w", v.SubAccountID, ErrInvalidScope)
		}
		return sa.AgencyID, nil
	default:
		return uuid.Nil, ErrInvalidScope
	}
}

// Record composes and persists one audit entry. It runs after the
// parent mutation already succeeded, so the failure rules are uneven
// on purpose:
//
//   - no attributable actor: the audit row is skipped with a log line,
//     nil, nil — an audit gap beats failing a committed write;
//   - unresolvable scope: returned as an error, because a write that
//     cannot name its tenant is a caller bug, not noise.
//
// The recorded row is also pushed to the live feed, best-effort.
func (s *ActivityService) Record(ctx context.Context, principal *models.Principal, sc scope.Scope, description string) (*models.Notification, error) {
	var subAccountID uuid.UUID
	if sas, ok := sc.(scope.SubAccountScope); ok {
		subAccountID = sas.SubAccountID
	}

	user, err := s.ResolveActingUser(ctx, principal, subAccountID)
	if err != nil {
		return nil, fmt.Errorf("resolve acting user: %w", err)
	}
	if user == nil {
		s.logger.Warn("could not find a user to attribute activity to",
			zap.String("description", description),
		)
		return nil, nil
	}

	agencyID, err := s.resolveAgency(ctx, sc)
	if err != nil {
		return nil, err
	}

	n := &models.Notification{
		Notification: user.Name + " | " + description,
		UserID:       user.ID,
		AgencyID:     agencyID,
	}
	if subAccountID != uuid.Nil {
		n.SubAccountID = &subAccountID
	}

	created, err := s.notifications.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, created)
	}
	return created, nil
}
