package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"leads/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage on an embedded SQLite database.
// All access goes through a single connection, so ":memory:" databases keep
// their contents for the lifetime of the storage.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database at dsn and applies pending migrations.
func NewSQLiteStorage(ctx context.Context, cfg models.DatabaseConfig) (*SQLiteStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db}, nil
}

func (ss *SQLiteStorage) FindOrCreateUserByEmail(ctx context.Context, email, name string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, is_admin, created_at) VALUES (?, ?, ?, 0, ?)
		 ON CONFLICT (email) DO NOTHING`,
		uuid.New().String(), email, models.DisplayNameFallback(name, email), formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return ss.GetUserByEmail(ctx, email)
}

func (ss *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, email, name, is_admin, created_at FROM users WHERE email = ?`,
		models.NormalizeEmail(email))
	u, err := scanSQLiteUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (ss *SQLiteStorage) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	email := models.NormalizeEmail(user.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	id := user.ID
	if id == "" {
		id = uuid.New().String()
	}

	row := ss.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, name, is_admin, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET name = excluded.name, is_admin = excluded.is_admin
		 RETURNING id, email, name, is_admin, created_at`,
		id, email, models.DisplayNameFallback(user.Name, email), user.IsAdmin, formatTime(time.Now()))
	u, err := scanSQLiteUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (ss *SQLiteStorage) CreateBuyer(ctx context.Context, buyer *models.Buyer, history *models.BuyerHistory) error {
	tags, err := marshalTags(buyer.Tags)
	if err != nil {
		return err
	}

	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO buyers (`+buyerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		buyer.ID, buyer.FullName, nullString(buyer.Email), buyer.Phone, buyer.City, buyer.PropertyType,
		nullString(buyer.BHK), buyer.Purpose, nullInt64(buyer.BudgetMin), nullInt64(buyer.BudgetMax),
		buyer.Timeline, buyer.Source, buyer.Status, nullString(buyer.Notes), tags, buyer.OwnerID,
		formatTime(buyer.CreatedAt), formatTime(buyer.UpdatedAt))
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("buyer %s: %w", buyer.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert buyer: %w", err)
	}

	if history != nil {
		diff, err := marshalDiff(history.Diff)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO buyer_history (id, buyer_id, changed_by, changed_at, diff) VALUES (?, ?, ?, ?, ?)`,
			history.ID, buyer.ID, history.ChangedBy, formatTime(history.ChangedAt), string(diff))
		if err != nil {
			return fmt.Errorf("failed to insert buyer history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit buyer: %w", err)
	}
	return nil
}

func (ss *SQLiteStorage) GetBuyer(ctx context.Context, id string) (*models.Buyer, error) {
	row := ss.db.QueryRowContext(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = ?`, id)
	b, err := scanSQLiteBuyer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("buyer %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get buyer: %w", err)
	}
	return b, nil
}

func (ss *SQLiteStorage) ListBuyers(ctx context.Context, filter models.ListBuyersRequest) ([]*models.Buyer, int, error) {
	where, args := buyerFilter(placeholderQuestion, filter)

	var total int
	if err := ss.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buyers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count buyers: %w", err)
	}

	limit := -1
	if filter.PageSize > 0 {
		limit = filter.PageSize
	}
	query := `SELECT ` + buyerColumns + ` FROM buyers` + where +
		` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := ss.db.QueryContext(ctx, query, append(args, limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list buyers: %w", err)
	}
	defer rows.Close()

	buyers := make([]*models.Buyer, 0)
	for rows.Next() {
		b, err := scanSQLiteBuyer(rows)
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

func (ss *SQLiteStorage) BuyerHistory(ctx context.Context, buyerID string) ([]*models.BuyerHistory, error) {
	rows, err := ss.db.QueryContext(ctx,
		`SELECT id, buyer_id, changed_by, changed_at, diff FROM buyer_history
		 WHERE buyer_id = ? ORDER BY changed_at DESC, rowid DESC`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get buyer history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.BuyerHistory, 0)
	for rows.Next() {
		var (
			h         models.BuyerHistory
			changedAt string
			diff      string
		)
		if err := rows.Scan(&h.ID, &h.BuyerID, &h.ChangedBy, &changedAt, &diff); err != nil {
			return nil, fmt.Errorf("failed to scan buyer history: %w", err)
		}
		if h.ChangedAt, err = parseTime(changedAt); err != nil {
			return nil, err
		}
		if h.Diff, err = unmarshalDiff([]byte(diff)); err != nil {
			return nil, err
		}
		entries = append(entries, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get buyer history: %w", err)
	}
	return entries, nil
}

func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}

func scanSQLiteBuyer(row rowScanner) (*models.Buyer, error) {
	var (
		b                    models.Buyer
		email, bhk, notes    sql.NullString
		budgetMin, budgetMax sql.NullInt64
		tags                 string
		createdAt, updatedAt string
	)
	err := row.Scan(&b.ID, &b.FullName, &email, &b.Phone, &b.City, &b.PropertyType, &bhk, &b.Purpose,
		&budgetMin, &budgetMax, &b.Timeline, &b.Source, &b.Status, &notes, &tags, &b.OwnerID,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	b.Email = stringPtr(email)
	b.BHK = stringPtr(bhk)
	b.Notes = stringPtr(notes)
	b.BudgetMin = int64Ptr(budgetMin)
	b.BudgetMax = int64Ptr(budgetMax)
	if b.Tags, err = unmarshalTags(tags); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func isSQLiteUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
