package users

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

func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (platform_id, username, first_name, last_name, is_admin)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (platform_id) DO UPDATE
		 SET username = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     is_admin = users.is_admin OR EXCLUDED.is_admin
		 RETURNING id, joined_at, is_admin
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.PlatformID, user.UserName, user.FirstName, user.LastName, user.IsAdmin).
		Scan(&user.ID, &user.JoinedAt, &user.IsAdmin)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, platform_id, username, first_name, last_name, joined_at, is_admin
		 FROM users
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByPlatformID(ctx context.Context, platformID int64) (*models.User, error) {
	query :=
		`SELECT id, platform_id, username, first_name, last_name, joined_at, is_admin
		 FROM users
		 WHERE platform_id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, platformID))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.PlatformID, &user.UserName,
		&user.FirstName, &user.LastName, &user.JoinedAt, &user.IsAdmin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
