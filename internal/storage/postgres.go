package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"leads/internal/models"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStorage implements the Storage interface using PostgreSQL.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance and applies
// pending migrations.
func NewPostgresStorage(ctx context.Context, cfg models.DatabaseConfig) (*PostgresStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(min(cfg.MaxIdleConns, int(poolCfg.MaxConns)))
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migratePostgres(ctx, cfg.DSN); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{pool: pool}, nil
}

// migratePostgres runs migrations over a short-lived database/sql handle.
func migratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()
	return migrate(ctx, db, goose.DialectPostgres, "postgres")
}

func (ps *PostgresStorage) FindOrCreateUserByEmail(ctx context.Context, email, name string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	_, err := ps.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, is_admin, created_at) VALUES ($1, $2, $3, FALSE, $4)
		 ON CONFLICT (email) DO NOTHING`,
		uuid.New().String(), email, models.DisplayNameFallback(name, email), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return ps.GetUserByEmail(ctx, email)
}

func (ps *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, email, name, is_admin, created_at FROM users WHERE email = $1`,
		models.NormalizeEmail(email))
	u, err := scanPgUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (ps *PostgresStorage) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	email := models.NormalizeEmail(user.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	id := user.ID
	if id == "" {
		id = uuid.New().String()
	}

	row := ps.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, is_admin, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, is_admin = EXCLUDED.is_admin
		 RETURNING id, email, name, is_admin, created_at`,
		id, email, models.DisplayNameFallback(user.Name, email), user.IsAdmin, time.Now().UTC())
	u, err := scanPgUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (ps *PostgresStorage) CreateBuyer(ctx context.Context, buyer *models.Buyer, history *models.BuyerHistory) error {
	tags := buyer.Tags
	if tags == nil {
		tags = []string{}
	}

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO buyers (`+buyerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		buyer.ID, buyer.FullName, buyer.Email, buyer.Phone, buyer.City, buyer.PropertyType,
		buyer.BHK, buyer.Purpose, buyer.BudgetMin, buyer.BudgetMax, buyer.Timeline, buyer.Source,
		buyer.Status, buyer.Notes, tags, buyer.OwnerID, buyer.CreatedAt.UTC(), buyer.UpdatedAt.UTC())
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("buyer %s: %w", buyer.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert buyer: %w", err)
	}

	if history != nil {
		diff, err := marshalDiff(history.Diff)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO buyer_history (id, buyer_id, changed_by, changed_at, diff) VALUES ($1, $2, $3, $4, $5)`,
			history.ID, buyer.ID, history.ChangedBy, history.ChangedAt.UTC(), diff)
		if err != nil {
			return fmt.Errorf("failed to insert buyer history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit buyer: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) GetBuyer(ctx context.Context, id string) (*models.Buyer, error) {
	row := ps.pool.QueryRow(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = $1`, id)
	b, err := scanPgBuyer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("buyer %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get buyer: %w", err)
	}
	return b, nil
}

func (ps *PostgresStorage) ListBuyers(ctx context.Context, filter models.ListBuyersRequest) ([]*models.Buyer, int, error) {
	where, args := buyerFilter(placeholderDollar, filter)

	var total int
	if err := ps.pool.QueryRow(ctx, `SELECT COUNT(*) FROM buyers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count buyers: %w", err)
	}

	query := `SELECT ` + buyerColumns + ` FROM buyers` + where + ` ORDER BY updated_at DESC, id DESC`
	if filter.PageSize > 0 {
		args = append(args, filter.PageSize)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, filter.Offset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list buyers: %w", err)
	}
	defer rows.Close()

	buyers := make([]*models.Buyer, 0)
	for rows.Next() {
		b, err := scanPgBuyer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan buyer: %w", err)
		}
		buyers = append(buyers, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list buyers: %w", err)
	}
	return buyers, total, nil
}

func (ps *PostgresStorage) BuyerHistory(ctx context.Context, buyerID string) ([]*models.BuyerHistory, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT id, buyer_id, changed_by, changed_at, diff FROM buyer_history
		 WHERE buyer_id = $1 ORDER BY changed_at DESC, id DESC`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get buyer history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.BuyerHistory, 0)
	for rows.Next() {
		var (
			h    models.BuyerHistory
			diff []byte
		)
		if err := rows.Scan(&h.ID, &h.BuyerID, &h.ChangedBy, &h.ChangedAt, &diff); err != nil {
			return nil, fmt.Errorf("failed to scan buyer history: %w", err)
		}
		h.ChangedAt = h.ChangedAt.UTC()
		if h.Diff, err = unmarshalDiff(diff); err != nil {
			return nil, err
		}
		entries = append(entries, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get buyer history: %w", err)
	}
	return entries, nil
}

func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}

func scanPgUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func scanPgBuyer(row pgx.Row) (*models.Buyer, error) {
	var b models.Buyer
	err := row.Scan(&b.ID, &b.FullName, &b.Email, &b.Phone, &b.City, &b.PropertyType, &b.BHK, &b.Purpose,
		&b.BudgetMin, &b.BudgetMax, &b.Timeline, &b.Source, &b.Status, &b.Notes, &b.Tags, &b.OwnerID,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
