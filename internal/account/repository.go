package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"modernc.org/sqlite"
)

// sqlite extended result code for a UNIQUE constraint violation.
const sqliteConstraintUnique = 2067

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	Create(ctx context.Context, reg Registration) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	CartSnapshot(ctx context.Context, accountID int64) ([]byte, error)
	SaveCartSnapshot(ctx context.Context, accountID int64, data []byte) error
	Close() error
	RunMigrations(string) error
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// Create validates the registration, hashes the password and inserts the
// account. A new account starts with an empty cart snapshot.
func (r *Repository) Create(ctx context.Context, reg Registration) (*Account, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := `
		INSERT INTO accounts (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	acc := &Account{Name: reg.Name, Email: reg.Email, PasswordHash: hash}
	err = r.db.QueryRowContext(ctx, query, reg.Name, reg.Email, hash).
		Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqliteConstraintUnique {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return acc, nil
}

// Authenticate looks up an account by email and verifies the password.
// A missing account and a wrong password are indistinguishable to callers.
func (r *Repository) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acc, err := r.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(acc.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return acc, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM accounts
		WHERE id = $1
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) scanAccount(row *sql.Row) (*Account, error) {
	acc := &Account{}
	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return acc, nil
}

// CartSnapshot returns the serialized cart last saved for the account,
// nil if the account has never saved one.
func (r *Repository) CartSnapshot(ctx context.Context, accountID int64) ([]byte, error) {
	query := `SELECT cart_snapshot FROM accounts WHERE id = $1`

	var data []byte
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart snapshot: %w", err)
	}
	return data, nil
}

func (r *Repository) SaveCartSnapshot(ctx context.Context, accountID int64, data []byte) error {
	query := `UPDATE accounts SET cart_snapshot = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, data, accountID)
	if err != nil {
		return fmt.Errorf("update cart snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart snapshot: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
