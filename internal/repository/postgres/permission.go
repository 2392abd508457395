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

type PermissionStore struct {
	pool *pgxpool.Pool
}

func NewPermissionStore(pool *pgxpool.Pool) *PermissionStore {
	return &PermissionStore{pool: pool}
}

// Upsert creates or flips a grant in one statement. The conflict
// target is the (email, sub_account_id) unique pair, so two concurrent
// toggles for the same pair serialize inside Postgres and converge on
// a single row — no application lock needed. The row keeps its
// original id on the update path; a caller-held handle stays valid.
func (s *PermissionStore) Upsert(ctx context.Context, p *models.Permission) (*models.Permission, error) {
	query := `
		INSERT INTO permissions (id, email, sub_account_id, access)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email, sub_account_id) DO UPDATE SET
			access = EXCLUDED.access
		RETURNING id, email, sub_account_id, access`

	var out models.Permission
	err := s.pool.QueryRow(ctx, query, p.ID, p.Email, p.SubAccountID, p.Access).Scan(
		&out.ID,
		&out.Email,
		&out.SubAccountID,
		&out.Access,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert permission: %w", err)
	}
	return &out, nil
}

func (s *PermissionStore) Get(ctx context.Context, email string, subAccountID uuid.UUID) (*models.Permission, error) {
	query := `
		SELECT id, email, sub_account_id, access
		FROM permissions
		WHERE email = $1 AND sub_account_id = $2`

	var p models.Permission
	err := s.pool.QueryRow(ctx, query, email, subAccountID).Scan(
		&p.ID,
		&p.Email,
		&p.SubAccountID,
		&p.Access,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get permission: %w", err)
	}
	return &p, nil
}

func (s *PermissionStore) ListByEmail(ctx context.Context, email string) ([]models.PermissionWithSubAccount, error) {
	query := `
		SELECT p.id, p.email, p.sub_account_id, p.access,
			sa.id, sa.agency_id, sa.name, sa.company_email, sa.company_phone,
			sa.address, sa.city, sa.zip_code, sa.state, sa.country,
			sa.sub_account_logo, sa.created_at, sa.updated_at
		FROM permissions p
		JOIN sub_accounts sa ON sa.id = p.sub_account_id
		WHERE p.email = $1
		ORDER BY sa.name`

	rows, err := s.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]models.PermissionWithSubAccount, 0)
	for rows.Next() {
		var p models.PermissionWithSubAccount
		if err := rows.Scan(
			&p.ID, &p.Email, &p.SubAccountID, &p.Access,
			&p.SubAccount.ID, &p.SubAccount.AgencyID, &p.SubAccount.Name,
			&p.SubAccount.CompanyEmail, &p.SubAccount.CompanyPhone,
			&p.SubAccount.Address, &p.SubAccount.City, &p.SubAccount.ZipCode,
			&p.SubAccount.State, &p.SubAccount.Country,
			&p.SubAccount.SubAccountLogo, &p.SubAccount.CreatedAt, &p.SubAccount.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return perms, nil
}
