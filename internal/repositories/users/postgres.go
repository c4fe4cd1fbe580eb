package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/credstore/internal/common"
	"github.com/dmitrijs2005/credstore/internal/dbx"
	"github.com/dmitrijs2005/credstore/internal/models"
)

const usersTable = "users"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{"id", "username", "password_digest", "session_token", "created_at", "updated_at"}

var lookupColumns = map[Field]string{
	FieldID:           "id",
	FieldUserName:     "username",
	FieldSessionToken: "session_token",
}

// Constraint names from migrations/00001_create_users.sql.
var constraintFields = map[string]string{
	"users_username_key":      "username",
	"users_session_token_key": "session_token",
}

// PostgresRepository stores users in PostgreSQL over dbx.DBTX (a *sql.DB or
// a *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindOneBy(ctx context.Context, field Field, value string) (*models.User, error) {
	column, ok := lookupColumns[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrorInvalidField, field)
	}

	query, args, err := psql.Select(userColumns...).From(usersTable).Where(sq.Eq{column: value}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	u := &models.User{}
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.UserName, &u.PasswordDigest, &u.SessionToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query, args, err := psql.Insert(usersTable).
		Columns("id", "username", "password_digest", "session_token").
		Values(u.ID, u.UserName, u.PasswordDigest, u.SessionToken).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, writeError(err)
	}
	return u, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	query, args, err := psql.Update(usersTable).
		Set("username", u.UserName).
		Set("password_digest", u.PasswordDigest).
		Set("session_token", u.SessionToken).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": u.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, writeError(err)
	}
	return u, nil
}

func (r *PostgresRepository) UpdateSessionToken(ctx context.Context, id string, token string) (time.Time, error) {
	query, args, err := psql.Update(usersTable).
		Set("session_token", token).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("error building query: %w", err)
	}

	var updatedAt time.Time
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, writeError(err)
	}
	return updatedAt, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, digest string, token string) (time.Time, error) {
	query, args, err := psql.Update(usersTable).
		Set("password_digest", digest).
		Set("session_token", token).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("error building query: %w", err)
	}

	var updatedAt time.Time
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrorNotFound
		}
		return time.Time{}, writeError(err)
	}
	return updatedAt, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete(usersTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func writeError(err error) error {
	if constraint, ok := dbx.UniqueViolation(err); ok {
		if field, known := constraintFields[constraint]; known {
			return &common.UniquenessError{Field: field}
		}
		return &common.UniquenessError{Field: constraint}
	}
	return fmt.Errorf("db error: %w", err)
}
