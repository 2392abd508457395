package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/repository"
)

// In-memory repositories backing the service tests. Each one holds the
// same invariants the real store enforces with unique constraints:
// users unique on email, invitations unique on email, permissions
// unique on (email, sub_account_id).

type fakeSubAccountRepo struct {
	mu sync.Mutex
	m  map[uuid.UUID]models.SubAccount
}

func newFakeSubAccountRepo() *fakeSubAccountRepo {
	return &fakeSubAccountRepo{m: make(map[uuid.UUID]models.SubAccount)}
}

func (f *fakeSubAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*models.SubAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sa, ok := f.m[id]; ok {
		out := sa
		return &out, nil
	}
	return nil, nil
}

func (f *fakeSubAccountRepo) Upsert(_ context.Context, sa *models.SubAccount) (*models.SubAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *sa
	if existing, ok := f.m[sa.ID]; ok {
		stored.AgencyID = existing.AgencyID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	f.m[sa.ID] = stored
	out := stored
	return &out, nil
}

func (f *fakeSubAccountRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, id)
	return nil
}

type fakeUserRepo struct {
	mu          sync.Mutex
	byEmail     map[string]models.User
	subAccounts *fakeSubAccountRepo
}

func newFakeUserRepo(subAccounts *fakeSubAccountRepo) *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]models.User), subAccounts: subAccounts}
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmail[email]; ok {
		out := u
		return &out, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindAgencyMemberBySubAccount(ctx context.Context, subAccountID uuid.UUID) (*models.User, error) {
	sa, err := f.subAccounts.GetByID(ctx, subAccountID)
	if err != nil || sa == nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.AgencyID != nil && *u.AgencyID == sa.AgencyID {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByAgencyAndRole(_ context.Context, agencyID uuid.UUID, role models.Role) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.AgencyID != nil && *u.AgencyID == agencyID && u.Role == role {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Upsert(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *u
	if existing, ok := f.byEmail[u.Email]; ok {
		// Mirrors the SQL: id and created_at stay, agency only moves
		// when the new value is non-nil.
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		if stored.AgencyID == nil {
			stored.AgencyID = existing.AgencyID
		}
	} else {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	f.byEmail[u.Email] = stored
	out := stored
	return &out, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byEmail[u.Email]
	if !ok {
		return nil, nil
	}
	existing.Name = u.Name
	existing.AvatarURL = u.AvatarURL
	existing.Role = u.Role
	existing.UpdatedAt = time.Now()
	f.byEmail[u.Email] = existing
	out := existing
	return &out, nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

type fakePermissionRepo struct {
	mu sync.Mutex
	m  map[string]models.Permission
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{m: make(map[string]models.Permission)}
}

func permKey(email string, subAccountID uuid.UUID) string {
	return email + "/" + subAccountID.String()
}

func (f *fakePermissionRepo) Upsert(_ context.Context, p *models.Permission) (*models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := permKey(p.Email, p.SubAccountID)
	stored := *p
	if existing, ok := f.m[k]; ok {
		// Conflict path keeps the original id, like the SQL upsert.
		stored.ID = existing.ID
	}
	f.m[k] = stored
	out := stored
	return &out, nil
}

func (f *fakePermissionRepo) Get(_ context.Context, email string, subAccountID uuid.UUID) (*models.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.m[permKey(email, subAccountID)]; ok {
		out := p
		return &out, nil
	}
	return nil, nil
}

func (f *fakePermissionRepo) ListByEmail(_ context.Context, email string) ([]models.PermissionWithSubAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PermissionWithSubAccount, 0)
	for _, p := range f.m {
		if p.Email == email {
			out = append(out, models.PermissionWithSubAccount{Permission: p})
		}
	}
	return out, nil
}

func (f *fakePermissionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.m)
}

type fakeInvitationRepo struct {
	mu sync.Mutex
	m  map[string]models.Invitation
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{m: make(map[string]models.Invitation)}
}

func (f *fakeInvitationRepo) Create(_ context.Context, inv *models.Invitation) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.m[inv.Email]; ok {
		return nil, fmt.Errorf("invitation for %s: %w", inv.Email, repository.ErrDuplicate)
	}
	stored := *inv
	stored.CreatedAt = time.Now()
	f.m[inv.Email] = stored
	out := stored
	return &out, nil
}

func (f *fakeInvitationRepo) FindPendingByEmail(_ context.Context, email string) (*models.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.m[email]; ok && inv.Status == models.InvitationPending {
		out := inv
		return &out, nil
	}
	return nil, nil
}

func (f *fakeInvitationRepo) DeleteByEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, email)
	return nil
}

func (f *fakeInvitationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.m)
}

type fakeAgencyRepo struct {
	mu sync.Mutex
	m  map[uuid.UUID]models.Agency
}

func newFakeAgencyRepo() *fakeAgencyRepo {
	return &fakeAgencyRepo{m: make(map[uuid.UUID]models.Agency)}
}

func (f *fakeAgencyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Agency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.m[id]; ok {
		out := a
		return &out, nil
	}
	return nil, nil
}

func (f *fakeAgencyRepo) Upsert(_ context.Context, a *models.Agency) (*models.Agency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *a
	if existing, ok := f.m[a.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	f.m[a.ID] = stored
	out := stored
	return &out, nil
}

func (f *fakeAgencyRepo) UpdateDetails(_ context.Context, a *models.Agency) (*models.Agency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.m[a.ID]
	if !ok {
		return nil, nil
	}
	goal := existing.Goal
	created := existing.CreatedAt
	stored := *a
	stored.Goal = goal
	stored.CreatedAt = created
	stored.UpdatedAt = time.Now()
	f.m[a.ID] = stored
	out := stored
	return &out, nil
}

func (f *fakeAgencyRepo) UpdateGoal(_ context.Context, id uuid.UUID, goal int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.m[id]; ok {
		a.Goal = goal
		f.m[id] = a
	}
	return nil
}

func (f *fakeAgencyRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, id)
	return nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	items []models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *n
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	f.items = append(f.items, stored)
	out := stored
	return &out, nil
}

func (f *fakeNotificationRepo) ListByAgency(_ context.Context, agencyID uuid.UUID) ([]models.NotificationWithUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.NotificationWithUser, 0)
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].AgencyID == agencyID {
			out = append(out, models.NotificationWithUser{Notification: f.items[i]})
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.items...)
}

// fakeProvider records metadata pushes and can be told to fail.
type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]models.Role
	err   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: make(map[string]models.Role)}
}

func (f *fakeProvider) SetUserMetadata(_ context.Context, userID string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls[userID] = role
	return nil
}

// fakePublisher captures what the recorder pushes to the live feed.
type fakePublisher struct {
	mu        sync.Mutex
	published []models.Notification
}

func (f *fakePublisher) Publish(_ context.Context, n *models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, *n)
}

// fakeCache records invalidations and delegates reads to the loader.
type fakeCache struct {
	mu           sync.Mutex
	invalidation []string
}

func (f *fakeCache) HasAccess(ctx context.Context, email string, subAccountID uuid.UUID, load func(ctx context.Context) (bool, error)) (bool, error) {
	return load(ctx)
}

func (f *fakeCache) Invalidate(_ context.Context, email string, subAccountID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidation = append(f.invalidation, permKey(email, subAccountID))
}

var errProviderDown = errors.New("provider unreachable")
