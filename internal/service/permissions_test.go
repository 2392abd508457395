package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type permissionFixture struct {
	permissions   *fakePermissionRepo
	users         *fakeUserRepo
	subAccounts   *fakeSubAccountRepo
	notifications *fakeNotificationRepo
	cache         *fakeCache
	svc           *PermissionService
}

func newPermissionFixture() *permissionFixture {
	subAccounts := newFakeSubAccountRepo()
	users := newFakeUserRepo(subAccounts)
	notifications := newFakeNotificationRepo()
	permissions := newFakePermissionRepo()
	cache := &fakeCache{}
	activity := NewActivityService(users, subAccounts, notifications, nil, zap.NewNop())
	return &permissionFixture{
		permissions:   permissions,
		users:         users,
		subAccounts:   subAccounts,
		notifications: notifications,
		cache:         cache,
		svc:           NewPermissionService(permissions, subAccounts, users, activity, cache, zap.NewNop()),
	}
}

func (f *permissionFixture) seed(t *testing.T) (principal models.Principal, subAccountID uuid.UUID) {
	t.Helper()
	agencyID := uuid.New()
	_, err := f.users.Upsert(context.Background(), &models.User{
		ID:       "user_owner",
		Name:     "Owner",
		Email:    "owner@x.com",
		Role:     models.RoleAgencyOwner,
		AgencyID: &agencyID,
	})
	require.NoError(t, err)
	_, err = f.users.Upsert(context.Background(), &models.User{
		ID:    "user_member",
		Name:  "Marys Membership",
		Email: "member@x.com",
		Role:  models.RoleSubAccountUser,
	})
	require.NoError(t, err)

	subAccountID = uuid.New()
	_, err = f.subAccounts.Upsert(context.Background(), &models.SubAccount{
		ID:           subAccountID,
		AgencyID:     agencyID,
		Name:         "Client One",
		CompanyEmail: "client@x.com",
	})
	require.NoError(t, err)

	return models.Principal{ID: "user_owner", Email: "owner@x.com"}, subAccountID
}

func TestSetPermissionMintsID(t *testing.T) {
	f := newPermissionFixture()
	principal, subAccountID := f.seed(t)

	perm, err := f.svc.Set(context.Background(), &principal, SetPermissionInput{
		Email:        "member@x.com",
		SubAccountID: subAccountID,
		Access:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, perm)
	assert.NotEqual(t, uuid.Nil, perm.ID)
	assert.True(t, perm.Access)
}

func TestSetPermissionKeepsStableID(t *testing.T) {
	f := newPermissionFixture()
	principal, subAccountID := f.seed(t)

	first, err := f.svc.Set(context.Background(), &principal, SetPermissionInput{
		Email:        "member@x.com",
		SubAccountID: subAccountID,
		Access:       true,
	})
	require.NoError(t, err)

	// A toggle through the caller-held handle flips access without
	// growing the table or changing the id.
	second, err := f.svc.Set(context.Background(), &principal, SetPermissionInput{
		PermissionID: &first.ID,
		Email:        "member@x.com",
		SubAccountID: subAccountID,
		Access:       false,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Access)
	assert.Equal(t, 1, f.permissions.count())
}

func TestSetPermissionConcurrentTogglesConverge(t *testing.T) {
	f := newPermissionFixture()
	principal, subAccountID := f.seed(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Set(context.Background(), &principal, SetPermissionInput{
				Email:        "member@x.com",
				SubAccountID: subAccountID,
				Access:       true,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.permissions.count())
	perm, err := f.permissions.Get(context.Background(), "member@x.com", subAccountID)
	require.NoError(t, err)
	require.NotNil(t, perm)
	assert.True(t, perm.Access)
}

func TestSetPermissionAgencyScopedRecordsAudit(t *testing.T) {
	f := newPermissionFixture()
	principal, subAccountID := f.seed(t)

	_, err := f.svc.Set(context.Background(), &principal, SetPermissionInput{
		Email:        "member@x.com",
		SubAccountID: subAccountID,
		Access:       true,
		AgencyScoped: true,
	})
	require.NoError(t, err)

	all := f.notifications.all()
	require.Len(t, all, 1)
	assert.Equal(t, "Owner | Gave Marys Membership access to | Client One", all[0].Notification)
	require.NotNil(t, all[0].SubAccountID)
	assert.Equal(t, subAccountID, *all[0].SubAccountID)
}

func TestSetPermissionSubAccountScopedSkipsAudit(t *testing.T) {
	f := newPermissionFixture()
	principal, subAccountID := f.seed(t)

	_, err := f.svc.Set(context.Background(), &principal, SetPermissionInput{
		Email:        "member@x.com",
		SubAccountID: subAccountID,
		Access:       true,
	})
	require.NoError(t, err)
	assert.Empty(t, f.notifications.all())
}

func TestSetPermissionInvalidatesCache(t *testing.T) {
	f := newPermissionFixture()
	principal, subAccountID := f.seed(t)

	_, err := f.svc.Set(context.Background(), &principal, SetPermissionInput{
		Email:        "member@x.com",
		SubAccountID: subAccountID,
		Access:       true,
	})
	require.NoError(t, err)

	require.Len(t, f.cache.invalidation, 1)
	assert.Equal(t, permKey("member@x.com", subAccountID), f.cache.invalidation[0])
}

func TestHasAccess(t *testing.T) {
	f := newPermissionFixture()
	principal, subAccountID := f.seed(t)

	access, err := f.svc.HasAccess(context.Background(), "member@x.com", subAccountID)
	require.NoError(t, err)
	assert.False(t, access)

	_, err = f.svc.Set(context.Background(), &principal, SetPermissionInput{
		Email:        "member@x.com",
		SubAccountID: subAccountID,
		Access:       true,
	})
	require.NoError(t, err)

	access, err = f.svc.HasAccess(context.Background(), "member@x.com", subAccountID)
	require.NoError(t, err)
	assert.True(t, access)
}
