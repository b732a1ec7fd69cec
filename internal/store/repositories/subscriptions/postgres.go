package subscriptions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/relaykeeper/internal/common"
	"github.com/dmitrijs2005/relaykeeper/internal/dbx"
	"github.com/dmitrijs2005/relaykeeper/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID int64, isActive bool) error {

	query :=
		`INSERT INTO subscriptions (user_id, is_active, last_check)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET is_active = EXCLUDED.is_active, last_check = now()
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, isActive); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*models.Subscription, error) {
	query :=
		`SELECT user_id, is_active, last_check FROM subscriptions
		 WHERE user_id = $1
		 `

	sub := &models.Subscription{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&sub.UserID, &sub.IsActive, &sub.LastCheck)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return sub, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*ActiveSubscriber, error) {
	query :=
		`SELECT u.id, u.platform_id, u.username, u.first_name, u.last_name, u.joined_at, u.is_admin,
		        s.user_id, s.is_active, s.last_check
		 FROM subscriptions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.is_active
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*ActiveSubscriber
	for rows.Next() {
		item := &ActiveSubscriber{}
		if err := rows.Scan(
			&item.User.ID, &item.User.PlatformID, &item.User.UserName,
			&item.User.FirstName, &item.User.LastName, &item.User.JoinedAt, &item.User.IsAdmin,
			&item.Subscription.UserID, &item.Subscription.IsActive, &item.Subscription.LastCheck,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
