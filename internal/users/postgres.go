package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/campushub/auth-service/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `user_id, email, username, password_hash, user_role, status, active,
		       profile_picture, COALESCE(google_id, ''), registration_date`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the users table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			user_id           BIGSERIAL PRIMARY KEY,
			email             TEXT NOT NULL UNIQUE,
			username          TEXT NOT NULL,
			password_hash     TEXT NOT NULL DEFAULT '',
			user_role         TEXT NOT NULL DEFAULT 'student',
			status            TEXT NOT NULL DEFAULT 'active',
			active            BOOLEAN NOT NULL DEFAULT TRUE,
			profile_picture   TEXT NOT NULL DEFAULT '',
			google_id         TEXT,
			registration_date TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return wrapPgErr("creating users table", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role, status string
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &status, &u.Active,
		&u.ProfilePicture, &u.GoogleID, &u.RegistrationDate,
	)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.Status = models.Status(status)
	return &u, nil
}

// GetByEmail retrieves a single user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapPgErr("querying user by email", err)
	}
	return u, nil
}

// GetByID retrieves a single user by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapPgErr("querying user by id", err)
	}
	return u, nil
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, user_role, status, active, profile_picture, google_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING user_id, registration_date`

	err := r.pool.QueryRow(ctx, query,
		u.Email,
		u.Username,
		u.PasswordHash,
		string(u.Role),
		string(u.Status),
		u.Active,
		u.ProfilePicture,
		u.GoogleID,
	).Scan(&u.ID, &u.RegistrationDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return wrapPgErr("inserting user", err)
	}
	return nil
}

// UpdateFederated refreshes the federated fields and returns the updated row.
func (r *PostgresRepository) UpdateFederated(ctx context.Context, email string, upd models.FederatedUpdate) (*models.User, error) {
	query := `
		UPDATE users
		SET google_id = NULLIF($2, ''), username = $3, profile_picture = $4
		WHERE email = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, email, upd.GoogleID, upd.Username, upd.ProfilePicture))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapPgErr("updating user", err)
	}
	return u, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, email string, status models.Status, active bool) (*models.User, error) {
	query := `UPDATE users SET status = $2, active = $3 WHERE email = $1 RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, email, string(status), active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapPgErr("updating user status", err)
	}
	return u, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func wrapPgErr(op string, err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
