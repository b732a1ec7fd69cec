package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/relaykeeper/internal/common"
	"github.com/dmitrijs2005/relaykeeper/internal/dbx"
	"github.com/dmitrijs2005/relaykeeper/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, key *models.AccessKey) (*models.AccessKey, error) {

	query :=
		`INSERT INTO user_keys (user_id, secret, is_active, expires_at, data_limit_bytes)
		 VALUES ($1, $2, TRUE, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		key.UserID, key.Secret, key.ExpiresAt, key.DataLimitBytes).
		Scan(&key.ID, &key.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	key.IsActive = true
	return key, nil
}

func (r *PostgresRepository) DeactivateAllForUser(ctx context.Context, userID int64) error {
	query :=
		`UPDATE user_keys SET is_active = FALSE
		 WHERE user_id = $1 AND is_active
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetActiveByUserID(ctx context.Context, userID int64) (*models.AccessKey, error) {
	query :=
		`SELECT id, user_id, secret, is_active, provisioned, created_at, expires_at, data_limit_bytes, used_bytes
		 FROM user_keys
		 WHERE user_id = $1 AND is_active
		 `

	key := &models.AccessKey{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&key.ID, &key.UserID, &key.Secret, &key.IsActive, &key.Provisioned,
			&key.CreatedAt, &key.ExpiresAt, &key.DataLimitBytes, &key.UsedBytes)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, keyID int64) error {
	query :=
		`UPDATE user_keys SET is_active = FALSE
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, keyID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RecordUsage clamps instead of rejecting: daemon counters reset to zero on
// restart, and GREATEST keeps the stored value monotonic without wedging
// accounting until the live counter catches up again.
func (r *PostgresRepository) RecordUsage(ctx context.Context, keyID int64, usedBytes int64) error {
	query :=
		`UPDATE user_keys SET used_bytes = GREATEST(used_bytes, $2)
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, keyID, usedBytes); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetProvisioned(ctx context.Context, keyID int64, provisioned bool) error {
	query :=
		`UPDATE user_keys SET provisioned = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, keyID, provisioned); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearProvisionedForUser(ctx context.Context, userID int64) error {
	query :=
		`UPDATE user_keys SET provisioned = FALSE
		 WHERE user_id = $1 AND provisioned
		 `

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.AccessKey, error) {
	query :=
		`SELECT id, user_id, secret, is_active, provisioned, created_at, expires_at, data_limit_bytes, used_bytes
		 FROM user_keys
		 WHERE is_active
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessKey
	for rows.Next() {
		key := &models.AccessKey{}
		if err := rows.Scan(&key.ID, &key.UserID, &key.Secret, &key.IsActive, &key.Provisioned,
			&key.CreatedAt, &key.ExpiresAt, &key.DataLimitBytes, &key.UsedBytes); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListProvisionedUserIDs(ctx context.Context) ([]int64, error) {
	query :=
		`SELECT DISTINCT user_id FROM user_keys
		 WHERE provisioned
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
