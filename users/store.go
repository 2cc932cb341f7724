package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/usermgmt-go/apperror"
	"github.com/user/usermgmt-go/auth"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// UpdateFields describes a partial update of a user row. Nil fields are left
// untouched. PasswordHash, when set, must already be hashed.
type UpdateFields struct {
	Email        *string
	Name         *string
	PasswordHash *string
}

// Directory is the persistence boundary for user records. FindByEmail and
// FindByID signal absence with a nil user rather than an error; callers decide
// whether absence is a failure. Create and Update translate the storage
// layer's unique-email violation into a ConflictError, which makes the
// database constraint the authoritative guard against concurrent duplicate
// registrations.
type Directory interface {
	Create(ctx context.Context, email, name, passwordHash string) (*auth.User, error)
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	Update(ctx context.Context, id int64, fields UpdateFields) (*auth.User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]auth.User, error)
}

// PostgresDirectory implements Directory on top of a pgx connection pool.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory creates a new PostgresDirectory.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Create inserts a new user row. A duplicate normalized email, whether caught
// here or raced in by a concurrent insert, surfaces as the same ConflictError.
func (d *PostgresDirectory) Create(ctx context.Context, email, name, passwordHash string) (*auth.User, error) {
	user := &auth.User{
		Email:          email,
		Name:           name,
		HashedPassword: passwordHash,
	}

	query := `INSERT INTO users (email, name, password)
	          VALUES ($1, $2, $3)
	          RETURNING id, created_at`
	err := d.db.QueryRow(ctx, query, email, name, passwordHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "email") {
			return nil, apperror.NewConflictError("Email already registered", nil)
		}
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}
	return user, nil
}

// FindByEmail looks up a user by email. Returns (nil, nil) when no such user exists.
func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, email, name, password, created_at FROM users WHERE email = $1`
	err := d.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.Name, &user.HashedPassword, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.NewDatabaseError("failed to get user by email", err)
	}
	return &user, nil
}

// FindByID looks up a user by id. Returns (nil, nil) when no such user exists.
func (d *PostgresDirectory) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, email, name, password, created_at FROM users WHERE id = $1`
	err := d.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.Name, &user.HashedPassword, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.NewDatabaseError("failed to get user by id", err)
	}
	return &user, nil
}

// Update applies a partial update to a user row, returning the updated record.
// An email change is subject to the same uniqueness constraint as creation.
func (d *PostgresDirectory) Update(ctx context.Context, id int64, fields UpdateFields) (*auth.User, error) {
	var setClauses []string
	var args []interface{}
	argID := 1

	if fields.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", argID))
		args = append(args, *fields.Email)
		argID++
	}
	if fields.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *fields.Name)
		argID++
	}
	if fields.PasswordHash != nil {
		setClauses = append(setClauses, fmt.Sprintf("password = $%d", argID))
		args = append(args, *fields.PasswordHash)
		argID++
	}

	if len(setClauses) == 0 {
		user, err := d.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, apperror.NewNotFoundError("User not found", nil)
		}
		return user, nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d
		RETURNING id, email, name, password, created_at`,
		strings.Join(setClauses, ", "), argID)

	var user auth.User
	err := d.db.QueryRow(ctx, query, args...).Scan(&user.ID, &user.Email, &user.Name, &user.HashedPassword, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("User not found", nil)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "email") {
			return nil, apperror.NewConflictError("Email already registered", nil)
		}
		return nil, apperror.NewDatabaseError("failed to update user", err)
	}
	return &user, nil
}

// Delete removes a user row.
func (d *PostgresDirectory) Delete(ctx context.Context, id int64) error {
	tag, err := d.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("User not found", nil)
	}
	return nil
}

// List returns all user records. Outward serialization of the result strips
// the password hash via the model's json tags.
func (d *PostgresDirectory) List(ctx context.Context) ([]auth.User, error) {
	rows, err := d.db.Query(ctx, `SELECT id, email, name, password, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list users", err)
	}
	defer rows.Close()

	var result []auth.User
	for rows.Next() {
		var user auth.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.HashedPassword, &user.CreatedAt); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan user row", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to iterate user rows", err)
	}
	return result, nil
}
