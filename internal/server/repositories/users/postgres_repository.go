package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/unicore/internal/common"
	"github.com/dmitrijs2005/unicore/internal/dbx"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query :=
		`SELECT id, username, balance, created_at FROM users
		 WHERE id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.UserName, &user.Balance, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// LockBalance reads the balance and holds a row lock on the user until the
// surrounding transaction ends. Every purchase of a user takes this lock
// first, so purchases of one user are serialised.
func (r *PostgresRepository) LockBalance(ctx context.Context, id uuid.UUID) (int64, error) {
	query :=
		`SELECT balance FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `

	var balance int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&balance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

// Debit subtracts amount in one guarded statement and returns the new
// balance. A balance below amount yields common.ErrInsufficientFunds.
func (r *PostgresRepository) Debit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, common.ErrInvalidArgument
	}

	query :=
		`UPDATE users SET balance = balance - $2
		 WHERE id = $1 AND balance >= $2
		 RETURNING balance
		 `

	var balance int64
	err := r.db.QueryRowContext(ctx, query, id, amount).Scan(&balance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrInsufficientFunds
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

func (r *PostgresRepository) Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, common.ErrInvalidArgument
	}

	query :=
		`UPDATE users SET balance = balance + $2
		 WHERE id = $1
		 RETURNING balance
		 `

	var balance int64
	err := r.db.QueryRowContext(ctx, query, id, amount).Scan(&balance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}
