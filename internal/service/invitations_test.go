package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type invitationFixture struct {
	invitations   *fakeInvitationRepo
	users         *fakeUserRepo
	subAccounts   *fakeSubAccountRepo
	notifications *fakeNotificationRepo
	provider      *fakeProvider
	svc           *InvitationService
}

func newInvitationFixture() *invitationFixture {
	subAccounts := newFakeSubAccountRepo()
	users := newFakeUserRepo(subAccounts)
	notifications := newFakeNotificationRepo()
	invitations := newFakeInvitationRepo()
	provider := newFakeProvider()
	activity := NewActivityService(users, subAccounts, notifications, nil, zap.NewNop())
	return &invitationFixture{
		invitations:   invitations,
		users:         users,
		subAccounts:   subAccounts,
		notifications: notifications,
		provider:      provider,
		svc:           NewInvitationService(invitations, users, activity, provider, zap.NewNop()),
	}
}

func (f *invitationFixture) seedInvitation(t *testing.T, email string, agencyID uuid.UUID, role models.Role) {
	t.Helper()
	_, err := f.invitations.Create(context.Background(), &models.Invitation{
		ID:       uuid.New(),
		Email:    email,
		AgencyID: agencyID,
		Role:     role,
		Status:   models.InvitationPending,
	})
	require.NoError(t, err)
}

func alicePrincipal() *models.Principal {
	return &models.Principal{
		ID:        "user_alice",
		Email:     "alice@x.com",
		FirstName: "Alice",
		LastName:  "Smith",
		ImageURL:  "https://img.example/alice.png",
	}
}

func TestAcceptPendingInvitation(t *testing.T) {
	f := newInvitationFixture()
	agencyID := uuid.New()
	f.seedInvitation(t, "alice@x.com", agencyID, models.RoleAgencyAdmin)

	got, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, agencyID, *got)

	// The member was provisioned with the invited role.
	user, err := f.users.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, models.RoleAgencyAdmin, user.Role)
	require.NotNil(t, user.AgencyID)
	assert.Equal(t, agencyID, *user.AgencyID)

	// The invitation was consumed.
	assert.Equal(t, 0, f.invitations.count())

	// The role reached the identity provider.
	assert.Equal(t, models.RoleAgencyAdmin, f.provider.calls["user_alice"])

	// One "Joined" audit entry against the invitation's agency.
	all := f.notifications.all()
	require.Len(t, all, 1)
	assert.True(t, strings.HasSuffix(all[0].Notification, "| Joined"))
	assert.Equal(t, agencyID, all[0].AgencyID)
}

func TestAcceptIsIdempotent(t *testing.T) {
	f := newInvitationFixture()
	agencyID := uuid.New()
	f.seedInvitation(t, "alice@x.com", agencyID, models.RoleAgencyAdmin)

	first, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	require.NoError(t, err)
	require.NotNil(t, first)

	// Second call lands on the already-a-member path and returns the
	// same agency; no new user, no pending invitation.
	second, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, f.users.count())
	assert.Equal(t, 0, f.invitations.count())
}

func TestAcceptRetriesAfterMetadataFailure(t *testing.T) {
	f := newInvitationFixture()
	agencyID := uuid.New()
	f.seedInvitation(t, "alice@x.com", agencyID, models.RoleSubAccountUser)

	// First attempt: user is provisioned locally, then the provider
	// call fails. The invitation must survive so the flow can replay.
	f.provider.err = errProviderDown
	_, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	assert.ErrorIs(t, err, ErrMetadataUpdateFailed)
	assert.Equal(t, 1, f.invitations.count())
	assert.Equal(t, 1, f.users.count())

	// Retry converges without double-provisioning.
	f.provider.err = nil
	got, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, agencyID, *got)
	assert.Equal(t, 1, f.users.count())
	assert.Equal(t, 0, f.invitations.count())
}

func TestAcceptOwnerRoleSkipsProvisioning(t *testing.T) {
	f := newInvitationFixture()
	agencyID := uuid.New()
	f.seedInvitation(t, "alice@x.com", agencyID, models.RoleAgencyOwner)

	// Owners come from the agency bootstrap flow, never from the
	// team-provisioning path.
	got, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, f.users.count())
	assert.Empty(t, f.provider.calls)
}

func TestAcceptWithoutInvitationReturnsExistingAgency(t *testing.T) {
	f := newInvitationFixture()
	agencyID := uuid.New()
	_, err := f.users.Upsert(context.Background(), &models.User{
		ID:       "user_alice",
		Name:     "Alice Smith",
		Email:    "alice@x.com",
		Role:     models.RoleAgencyOwner,
		AgencyID: &agencyID,
	})
	require.NoError(t, err)

	got, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, agencyID, *got)
}

func TestAcceptFreshSignupReturnsNil(t *testing.T) {
	f := newInvitationFixture()

	got, err := f.svc.VerifyAndAccept(context.Background(), alicePrincipal())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAcceptRequiresPrincipal(t *testing.T) {
	f := newInvitationFixture()

	_, err := f.svc.VerifyAndAccept(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSendInvitation(t *testing.T) {
	f := newInvitationFixture()
	agencyID := uuid.New()
	sender := &models.Principal{ID: "user_owner", Email: "owner@x.com"}
	_, err := f.users.Upsert(context.Background(), &models.User{
		ID:       "user_owner",
		Name:     "Owner",
		Email:    "owner@x.com",
		Role:     models.RoleAgencyOwner,
		AgencyID: &agencyID,
	})
	require.NoError(t, err)

	inv, token, err := f.svc.Send(context.Background(), sender, SendInvitationInput{
		AgencyID: agencyID,
		Email:    "bob@x.com",
		Role:     models.RoleSubAccountUser,
	})
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, token, inv.TokenHash)
	assert.Equal(t, models.InvitationPending, inv.Status)

	// The minted token validates against the stored hash.
	valid, pending, err := f.svc.ValidateLinkToken(context.Background(), "bob@x.com", token)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.True(t, valid)

	valid, pending, err = f.svc.ValidateLinkToken(context.Background(), "bob@x.com", "wrong-token")
	require.NoError(t, err)
	assert.True(t, pending)
	assert.False(t, valid)
}

func TestSendDuplicateInvitation(t *testing.T) {
	f := newInvitationFixture()
	agencyID := uuid.New()
	sender := &models.Principal{ID: "user_owner", Email: "owner@x.com"}
	_, err := f.users.Upsert(context.Background(), &models.User{
		ID:       "user_owner",
		Name:     "Owner",
		Email:    "owner@x.com",
		Role:     models.RoleAgencyOwner,
		AgencyID: &agencyID,
	})
	require.NoError(t, err)

	_, _, err = f.svc.Send(context.Background(), sender, SendInvitationInput{AgencyID: agencyID, Email: "bob@x.com"})
	require.NoError(t, err)

	_, _, err = f.svc.Send(context.Background(), sender, SendInvitationInput{AgencyID: agencyID, Email: "bob@x.com"})
	assert.ErrorIs(t, err, ErrInvitationExists)
}
