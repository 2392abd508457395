package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plurahq/agencyhub/internal/models"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, name, email, avatar_url, role, agency_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.AvatarURL,
		&u.Role,
		&u.AgencyID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks a user up by email, globally. Email is how the
// ambient principal maps onto an application user.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// FindAgencyMemberBySubAccount returns any user whose agency owns the
// sub-account. Which member comes back is unspecified; the caller only
// needs some attributable identity for a server-triggered action.
func (s *UserStore) FindAgencyMemberBySubAccount(ctx context.Context, subAccountID uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.agency_id = (SELECT agency_id FROM sub_accounts WHERE id = $1)
		LIMIT 1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, subAccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find agency member by sub-account: %w", err)
	}
	return u, nil
}

func (s *UserStore) FindByAgencyAndRole(ctx context.Context, agencyID uuid.UUID, role models.Role) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE agency_id = $1 AND role = $2 LIMIT 1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, agencyID, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by agency and role: %w", err)
	}
	return u, nil
}

// Upsert inserts the user or updates the existing row with the same
// email. Keying the conflict on email (not id) is what makes
// first-sign-in and invitation acceptance replayable: a retry after a
// partial failure lands on DO UPDATE instead of a duplicate-key error.
func (s *UserStore) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, name, email, avatar_url, role, agency_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			role = EXCLUDED.role,
			agency_id = COALESCE(EXCLUDED.agency_id, users.agency_id),
			updated_at = now()
		RETURNING ` + userColumns

	out, err := scanUser(s.pool.QueryRow(ctx, query,
		u.ID, u.Name, u.Email, u.AvatarURL, u.Role, u.AgencyID,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

func (s *UserStore) Update(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		UPDATE users SET
			name = $2,
			avatar_url = $3,
			role = $4,
			updated_at = now()
		WHERE email = $1
		RETURNING ` + userColumns

	out, err := scanUser(s.pool.QueryRow(ctx, query, u.Email, u.Name, u.AvatarURL, u.Role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return out, nil
}
