package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/identity"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/repository"
	"github.com/plurahq/agencyhub/internal/scope"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// InvitationService runs the invitation state machine:
// PENDING -> accepted (row deleted) is the only terminal transition,
// and it must be safe to replay because the provider metadata call and
// the local delete cannot share a transaction.
type InvitationService struct {
	invitations repository.InvitationRepository
	users       repository.UserRepository
	activity    *ActivityService
	provider    identity.Provider
	logger      *zap.Logger
}

func NewInvitationService(
	invitations repository.InvitationRepository,
	users repository.UserRepository,
	activity *ActivityService,
	provider identity.Provider,
	logger *zap.Logger,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		users:       users,
		activity:    activity,
		provider:    provider,
		logger:      logger,
	}
}

// SendInvitationInput is the agency-side half of the state machine.
type SendInvitationInput struct {
	AgencyID uuid.UUID
	Email    string
	Role     models.Role
}

// Send creates a PENDING invitation and returns it together with the
// plaintext link token — the only time the token is ever visible. The
// row stores a bcrypt hash.
func (s *InvitationService) Send(ctx context.Context, principal *models.Principal, in SendInvitationInput) (*models.Invitation, string, error) {
	if principal == nil {
		return nil, "", ErrNotAuthenticated
	}

	role := in.Role
	if role == "" {
		role = models.RoleSubAccountUser
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generate invite token: %w", err)
	}
	token := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash invite token: %w", err)
	}

	inv, err := s.invitations.Create(ctx, &models.Invitation{
		ID:        uuid.New(),
		Email:     in.Email,
		AgencyID:  in.AgencyID,
		Role:      role,
		Status:    models.InvitationPending,
		TokenHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrInvitationExists
		}
		return nil, "", err
	}

	if _, err := s.activity.Record(ctx, principal, scope.Agency(in.AgencyID), "Invited "+in.Email); err != nil {
		return nil, "", err
	}

	return inv, token, nil
}

// VerifyAndAccept converts a pending invitation for the principal's
// email into a provisioned membership, exactly once, and returns the
// agency the principal now belongs to.
//
// With no pending invitation this is not an error: the principal is
// either already a member (their agency id comes back) or a fresh
// signup with nothing to accept (nil, nil — caller onboards).
//
// The sequence is replayable end to end. User provisioning is an
// upsert keyed on email, the metadata push is externally idempotent,
// and the delete tolerates an already-deleted row — so a retry after
// any partial failure converges instead of double-provisioning.
func (s *InvitationService) VerifyAndAccept(ctx context.Context, principal *models.Principal) (*uuid.UUID, error) {
	if principal == nil {
		return nil, ErrNotAuthenticated
	}

	inv, err := s.invitations.FindPendingByEmail(ctx, principal.Email)
	if err != nil {
		return nil, fmt.Errorf("find invitation: %w", err)
	}

	if inv == nil {
		// Already-a-member path.
		user, err := s.users.GetByEmail(ctx, principal.Email)
		if err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return nil, nil
		}
		return user.AgencyID, nil
	}

	user, err := s.provisionTeamUser(ctx, inv, principal)
	if err != nil {
		return nil, err
	}

	if _, err := s.activity.Record(ctx, principal, scope.Agency(inv.AgencyID), "Joined"); err != nil {
		return nil, err
	}

	if user == nil {
		// Owner-role invitations never provision through this path;
		// owners come from the agency bootstrap flow.
		return nil, nil
	}

	if err := s.provider.SetUserMetadata(ctx, user.ID, user.Role); err != nil {
		// Local provisioning is committed and the invitation still
		// exists, so the caller can retry the whole acceptance.
		s.logger.Warn("metadata propagation failed during acceptance",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrMetadataUpdateFailed, err)
	}

	// Commit point.
	if err := s.invitations.DeleteByEmail(ctx, user.Email); err != nil {
		return nil, fmt.Errorf("delete invitation: %w", err)
	}

	return &inv.AgencyID, nil
}

// provisionTeamUser creates the membership row for an accepted
// invitation. AGENCY_OWNER is guarded out: the returned nil signals
// "nothing provisioned here".
func (s *InvitationService) provisionTeamUser(ctx context.Context, inv *models.Invitation, principal *models.Principal) (*models.User, error) {
	if inv.Role == models.RoleAgencyOwner {
		return nil, nil
	}

	agencyID := inv.AgencyID
	user, err := s.users.Upsert(ctx, &models.User{
		ID:        principal.ID,
		Name:      principal.Name(),
		Email:     inv.Email,
		AvatarURL: principal.ImageURL,
		Role:      inv.Role,
		AgencyID:  &agencyID,
	})
	if err != nil {
		return nil, fmt.Errorf("provision team user: %w", err)
	}
	return user, nil
}

// ValidateLinkToken checks a presented invite-link token against the
// stored hash. The second return reports whether a pending invitation
// with a token hash exists at all — a consumed invitation is not a
// validation failure, it is simply no longer pending.
func (s *InvitationService) ValidateLinkToken(ctx context.Context, email, token string) (valid bool, pending bool, err error) {
	inv, err := s.invitations.FindPendingByEmail(ctx, email)
	if err != nil {
		return false, false, fmt.Errorf("find invitation: %w", err)
	}
	if inv == nil || inv.TokenHash == "" {
		return false, false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(inv.TokenHash), []byte(token)) == nil, true, nil
}
