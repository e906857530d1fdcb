package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Session is one checkout attempt: the principal whose cart is being paid
// for, the priced snapshot, and where the attempt stands.
type Session struct {
	ID             string
	Principal      string
	CartSnapshot   []byte
	IdempotencyKey string
	Status         Status
	TotalAmount    string
	ProviderRef    sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetSessionByIdempotencyKey(ctx context.Context, key string) (*string, *Status, error)
	UpdateSessionStatus(ctx context.Context, id string, status Status) error
	SetProviderSession(ctx context.Context, id, providerRef string, status Status) error
	CompleteSession(ctx context.Context, id string, payload []byte) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID int64) error
	ExpirePendingSessions(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
	RunMigrations(*Credentials) error
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := migratepg.WithInstance(r.db, &migratepg.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	query := `INSERT INTO checkout_sessions (id, principal, cart_snapshot, idempotency_key, status, total_amount, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Principal,
		session.CartSnapshot,
		session.IdempotencyKey,
		StatusInitiated,
		session.TotalAmount)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate idempotency key %q: %w", session.IdempotencyKey, err)
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `SELECT id, principal, cart_snapshot, idempotency_key, status, total_amount, provider_ref, created_at, updated_at
	          FROM checkout_sessions WHERE id = $1`

	var s Session
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Principal,
		&s.CartSnapshot,
		&s.IdempotencyKey,
		&s.Status,
		&s.TotalAmount,
		&s.ProviderRef,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	return &s, nil
}

func (r *Repository) GetSessionByIdempotencyKey(ctx context.Context, key string) (*string, *Status, error) {
	query := `SELECT id, status FROM checkout_sessions WHERE idempotency_key = $1`

	var id string
	var status Status
	err := r.db.QueryRowContext(ctx, query, key).Scan(&id, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query by idempotency key: %w", err)
	}
	return &id, &status, nil
}

func (r *Repository) UpdateSessionStatus(ctx context.Context, id string, status Status) error {
	query := `UPDATE checkout_sessions SET status = $1, updated_at = NOW() WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update checkout status: %w", err)
	}
	return ensureRowAffected(res)
}

func (r *Repository) SetProviderSession(ctx context.Context, id, providerRef string, status Status) error {
	query := `UPDATE checkout_sessions SET provider_ref = $1, status = $2, updated_at = NOW() WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, providerRef, status, id)
	if err != nil {
		return fmt.Errorf("set provider session: %w", err)
	}
	return ensureRowAffected(res)
}

// CompleteSession marks the session COMPLETED and writes the completed-order
// event into the outbox in the same transaction, so an order event exists
// exactly when a session is completed.
func (r *Repository) CompleteSession(ctx context.Context, id string, payload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $1, updated_at = NOW() WHERE id = $2`,
		StatusCompleted, id)
	if err != nil {
		return fmt.Errorf("complete checkout status: %w", err)
	}
	if err := ensureRowAffected(res); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkout_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		id, "checkout.completed", payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete tx: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
	          FROM checkout_outbox
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		ev := &OutboxEvent{}
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, eventID int64) error {
	query := `UPDATE checkout_outbox SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

// ExpirePendingSessions fails payment-pending sessions the shopper walked
// away from. Their carts stay untouched.
func (r *Repository) ExpirePendingSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `UPDATE checkout_sessions SET status = $1, updated_at = NOW()
	          WHERE status = $2 AND updated_at < NOW() - $3::interval`

	interval := fmt.Sprintf("%d seconds", int(olderThan.Seconds()))
	res, err := r.db.ExecContext(ctx, query, StatusFailed, StatusPaymentPending, interval)
	if err != nil {
		return 0, fmt.Errorf("expire pending sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire pending sessions: %w", err)
	}
	return n, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func ensureRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
