package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plurahq/agencyhub/internal/models"
)

type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Create appends one audit row. This store only ever inserts —
// notifications are immutable once written.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (id, notification, user_id, agency_id, sub_account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, notification, user_id, agency_id, sub_account_id, created_at, updated_at`

	id := n.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var out models.Notification
	err := s.pool.QueryRow(ctx, query, id, n.Notification, n.UserID, n.AgencyID, n.SubAccountID).Scan(
		&out.ID,
		&out.Notification,
		&out.UserID,
		&out.AgencyID,
		&out.SubAccountID,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &out, nil
}

func (s *NotificationStore) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]models.NotificationWithUser, error) {
	query := `
		SELECT n.id, n.notification, n.user_id, n.agency_id, n.sub_account_id,
			n.created_at, n.updated_at,
			u.id, u.name, u.email, u.avatar_url, u.role, u.agency_id,
			u.created_at, u.updated_at
		FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE n.agency_id = $1
		ORDER BY n.created_at DESC`

	rows, err := s.pool.Query(ctx, query, agencyID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]models.NotificationWithUser, 0)
	for rows.Next() {
		var it models.NotificationWithUser
		// it.Notification names the embedded struct, so the text column
		// needs the full path.
		if err := rows.Scan(
			&it.ID, &it.Notification.Notification, &it.UserID, &it.AgencyID, &it.SubAccountID,
			&it.CreatedAt, &it.UpdatedAt,
			&it.User.ID, &it.User.Name, &it.User.Email, &it.User.AvatarURL,
			&it.User.Role, &it.User.AgencyID, &it.User.CreatedAt, &it.User.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return items, nil
}
