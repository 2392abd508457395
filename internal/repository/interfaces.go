package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/models"
)

// ErrDuplicate wraps a store-level unique-constraint violation on
// paths where a duplicate is a caller-visible condition (a second
// pending invitation) rather than an internal race absorbed by an
// upsert.
var ErrDuplicate = errors.New("duplicate row")

// Every method takes ctx first: all of these hit the database, and a
// cancelled request should cancel its queries. "Not found" is nil, nil
// on single-row getters — it is an expected state everywhere in this
// domain (no pending invitation, unprovisioned principal), never an
// error.

// AgencyRepository handles the tenant root.
type AgencyRepository interface {
	// GetByID returns an agency, or nil, nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agency, error)

	// Upsert creates or replaces the agency with a.ID.
	Upsert(ctx context.Context, a *models.Agency) (*models.Agency, error)

	// UpdateDetails applies a partial profile update.
	UpdateDetails(ctx context.Context, a *models.Agency) (*models.Agency, error)

	// UpdateGoal sets the agency's numeric target.
	UpdateGoal(ctx context.Context, id uuid.UUID, goal int) error

	// Delete removes the agency and, via FK cascade, everything under it.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubAccountRepository handles client accounts under an agency.
type SubAccountRepository interface {
	// GetByID returns a sub-account, or nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.SubAccount, error)

	// Upsert creates or replaces the sub-account with sa.ID. AgencyID
	// is written only on create; it is immutable afterwards.
	Upsert(ctx context.Context, sa *models.SubAccount) (*models.SubAccount, error)

	// Delete removes a sub-account and its grants.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepository handles application-level identities.
type UserRepository interface {
	// GetByEmail returns the user with that email, or nil, nil.
	// Email is the key both resolvers look up by.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with that provider id, or nil, nil.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// FindAgencyMemberBySubAccount returns any user belonging to the
	// agency that owns the given sub-account, or nil, nil. Best-effort
	// service identity for unauthenticated (webhook) attribution.
	FindAgencyMemberBySubAccount(ctx context.Context, subAccountID uuid.UUID) (*models.User, error)

	// FindByAgencyAndRole returns any user in the agency with the given
	// role, or nil, nil. Used to locate the owner when provisioning a
	// sub-account's initial grant.
	FindByAgencyAndRole(ctx context.Context, agencyID uuid.UUID, role models.Role) (*models.User, error)

	// Upsert inserts the user or, on an email conflict, updates the
	// mutable profile fields. The conflict path is what makes
	// first-sign-in and invitation acceptance safe to retry.
	Upsert(ctx context.Context, u *models.User) (*models.User, error)

	// Update applies profile/role changes keyed by email.
	Update(ctx context.Context, u *models.User) (*models.User, error)
}

// PermissionRepository handles per-sub-account access grants.
type PermissionRepository interface {
	// Upsert atomically creates or flips the grant for
	// (p.Email, p.SubAccountID). A concurrent duplicate converges on
	// one row; last write wins on Access.
	Upsert(ctx context.Context, p *models.Permission) (*models.Permission, error)

	// Get returns the grant for the pair, or nil, nil.
	Get(ctx context.Context, email string, subAccountID uuid.UUID) (*models.Permission, error)

	// ListByEmail returns the user's grants joined with their
	// sub-accounts. Empty slice, not nil, when there are none.
	ListByEmail(ctx context.Context, email string) ([]models.PermissionWithSubAccount, error)
}

// InvitationRepository handles pending membership offers.
type InvitationRepository interface {
	// Create inserts a PENDING invitation. The unique email constraint
	// rejects a second pending offer for the same address.
	Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)

	// FindPendingByEmail returns the pending invitation for the email,
	// or nil, nil.
	FindPendingByEmail(ctx context.Context, email string) (*models.Invitation, error)

	// DeleteByEmail removes the invitation. Deleting an already-deleted
	// invitation succeeds — the acceptance commit point must be
	// replayable.
	DeleteByEmail(ctx context.Context, email string) error
}

// NotificationRepository handles the append-only audit feed.
type NotificationRepository interface {
	// Create appends one audit row and returns it with ID and
	// timestamps populated.
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)

	// ListByAgency returns notifications with their authors, newest
	// first. Empty slice, not nil.
	ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]models.NotificationWithUser, error)
}
