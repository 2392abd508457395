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

type AgencyStore struct {
	pool *pgxpool.Pool
}

func NewAgencyStore(pool *pgxpool.Pool) *AgencyStore {
	return &AgencyStore{pool: pool}
}

const agencyColumns = `id, name, company_email, company_phone, address, city,
	zip_code, state, country, agency_logo, goal, white_label, created_at, updated_at`

func scanAgency(row pgx.Row) (*models.Agency, error) {
	var a models.Agency
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.CompanyEmail,
		&a.CompanyPhone,
		&a.Address,
		&a.City,
		&a.ZipCode,
		&a.State,
		&a.Country,
		&a.AgencyLogo,
		&a.Goal,
		&a.WhiteLabel,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AgencyStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies WHERE id = $1`

	a, err := scanAgency(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agency: %w", err)
	}
	return a, nil
}

// Upsert creates the agency or, when the id already exists, replaces
// its profile. The caller supplies the id so that create and update go
// through one code path, same as the original admin surface.
func (s *AgencyStore) Upsert(ctx context.Context, a *models.Agency) (*models.Agency, error) {
	query := `
		INSERT INTO agencies (id, name, company_email, company_phone, address,
			city, zip_code, state, country, agency_logo, goal, white_label, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			company_email = EXCLUDED.company_email,
			company_phone = EXCLUDED.company_phone,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			zip_code = EXCLUDED.zip_code,
			state = EXCLUDED.state,
			country = EXCLUDED.country,
			agency_logo = EXCLUDED.agency_logo,
			goal = EXCLUDED.goal,
			white_label = EXCLUDED.white_label,
			updated_at = now()
		RETURNING ` + agencyColumns

	out, err := scanAgency(s.pool.QueryRow(ctx, query,
		a.ID, a.Name, a.CompanyEmail, a.CompanyPhone, a.Address,
		a.City, a.ZipCode, a.State, a.Country, a.AgencyLogo, a.Goal, a.WhiteLabel,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert agency: %w", err)
	}
	return out, nil
}

func (s *AgencyStore) UpdateDetails(ctx context.Context, a *models.Agency) (*models.Agency, error) {
	query := `
		UPDATE agencies SET
			name = $2,
			company_email = $3,
			company_phone = $4,
			address = $5,
			city = $6,
			zip_code = $7,
			state = $8,
			country = $9,
			agency_logo = $10,
			white_label = $11,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + agencyColumns

	out, err := scanAgency(s.pool.QueryRow(ctx, query,
		a.ID, a.Name, a.CompanyEmail, a.CompanyPhone, a.Address,
		a.City, a.ZipCode, a.State, a.Country, a.AgencyLogo, a.WhiteLabel,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update agency: %w", err)
	}
	return out, nil
}

func (s *AgencyStore) UpdateGoal(ctx context.Context, id uuid.UUID, goal int) error {
	query := `UPDATE agencies SET goal = $2, updated_at = now() WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, goal)
	if err != nil {
		return fmt.Errorf("update agency goal: %w", err)
	}
	return nil
}

// Delete removes the agency. Sub-accounts, users, invitations and
// notifications go with it via ON DELETE CASCADE; deleting a missing
// agency deletes zero rows and is not an error.
func (s *AgencyStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM agencies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agency: %w", err)
	}
	return nil
}
