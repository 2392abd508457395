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

type SubAccountStore struct {
	pool *pgxpool.Pool
}

func NewSubAccountStore(pool *pgxpool.Pool) *SubAccountStore {
	return &SubAccountStore{pool: pool}
}

const subAccountColumns = `id, agency_id, name, company_email, company_phone,
	address, city, zip_code, state, country, sub_account_logo, created_at, updated_at`

func scanSubAccount(row pgx.Row) (*models.SubAccount, error) {
	var sa models.SubAccount
	err := row.Scan(
		&sa.ID,
		&sa.AgencyID,
		&sa.Name,
		&sa.CompanyEmail,
		&sa.CompanyPhone,
		&sa.Address,
		&sa.City,
		&sa.ZipCode,
		&sa.State,
		&sa.Country,
		&sa.SubAccountLogo,
		&sa.CreatedAt,
		&sa.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (s *SubAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*models.SubAccount, error) {
	query := `SELECT ` + subAccountColumns + ` FROM sub_accounts WHERE id = $1`

	sa, err := scanSubAccount(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sub-account: %w", err)
	}
	return sa, nil
}

// Upsert creates or replaces the sub-account. agency_id is
// deliberately absent from the conflict update list — a sub-account
// never moves between agencies.
func (s *SubAccountStore) Upsert(ctx context.Context, sa *models.SubAccount) (*models.SubAccount, error) {
	query := `
		INSERT INTO sub_accounts (id, agency_id, name, company_email, company_phone,
			address, city, zip_code, state, country, sub_account_logo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			company_email = EXCLUDED.company_email,
			company_phone = EXCLUDED.company_phone,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			zip_code = EXCLUDED.zip_code,
			state = EXCLUDED.state,
			country = EXCLUDED.country,
			sub_account_logo = EXCLUDED.sub_account_logo,
			updated_at = now()
		RETURNING ` + subAccountColumns

	out, err := scanSubAccount(s.pool.QueryRow(ctx, query,
		sa.ID, sa.AgencyID, sa.Name, sa.CompanyEmail, sa.CompanyPhone,
		sa.Address, sa.City, sa.ZipCode, sa.State, sa.Country, sa.SubAccountLogo,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert sub-account: %w", err)
	}
	return out, nil
}

func (s *SubAccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sub_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sub-account: %w", err)
	}
	return nil
}
