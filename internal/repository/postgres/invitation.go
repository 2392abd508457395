package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plurahq/agencyhub/internal/models"
	"github.com/plurahq/agencyhub/internal/repository"
)

type InvitationStore struct {
	pool *pgxpool.Pool
}

func NewInvitationStore(pool *pgxpool.Pool) *InvitationStore {
	return &InvitationStore{pool: pool}
}

const invitationColumns = `id, email, agency_id, role, status, token_hash, created_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.ID,
		&inv.Email,
		&inv.AgencyID,
		&inv.Role,
		&inv.Status,
		&inv.TokenHash,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a PENDING invitation. A second invitation for the
// same address trips the unique email constraint; the caller maps that
// to "an invitation is already outstanding".
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	query := `
		INSERT INTO invitations (id, email, agency_id, role, status, token_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING ` + invitationColumns

	out, err := scanInvitation(s.pool.QueryRow(ctx, query,
		inv.ID, inv.Email, inv.AgencyID, inv.Role, inv.Status, inv.TokenHash,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("invitation for %s: %w", inv.Email, repository.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	return out, nil
}

func (s *InvitationStore) FindPendingByEmail(ctx context.Context, email string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE email = $1 AND status = 'PENDING'`

	inv, err := scanInvitation(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending invitation: %w", err)
	}
	return inv, nil
}

// DeleteByEmail is the acceptance commit point. DELETE of a missing
// row removes zero rows and succeeds, so a retried acceptance that
// already committed does not fail here.
func (s *InvitationStore) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM invitations WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}
