package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/models"

	"github.com/go-sql-driver/mysql"
)

// MySQLStore keeps issues in the issues table. The seq column is the
// internal key and is never selected.
type MySQLStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewMySQLStore opens and pings the database at dsn.
func NewMySQLStore(ctx context.Context, dsn string, timeout time.Duration) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := NewMySQLStoreWithDB(db, timeout)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStoreWithDB wraps an open *sql.DB.
func NewMySQLStoreWithDB(db *sql.DB, timeout time.Duration) *MySQLStore {
	return &MySQLStore{db: db, timeout: timeout}
}

// CreateIssuesTable creates the issues table if it doesn't exist
func (s *MySQLStore) CreateIssuesTable(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
	CREATE TABLE IF NOT EXISTS issues (
		seq INT NOT NULL AUTO_INCREMENT,
		id VARCHAR(36) NOT NULL,
		type VARCHAR(32) NOT NULL,
		lat DOUBLE NOT NULL,
		lng DOUBLE NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'Pending',
		image VARCHAR(255) NULL,
		description TEXT NULL,
		user_id VARCHAR(255) NULL,
		created_at DATETIME(6) NOT NULL,
		PRIMARY KEY (seq),
		UNIQUE INDEX id_unique (id)
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return sqlError("create issues table", err)
	}
	return nil
}

func (s *MySQLStore) Insert(ctx context.Context, issue *models.Issue) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO issues (id, type, lat, lng, status, image, description, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.Type, issue.Lat, issue.Lng, issue.Status,
		nullString(issue.Image), nullString(issue.Description), nullString(issue.UserID),
		issue.CreatedAt)
	if err != nil {
		return "", sqlError("insert issue", err)
	}
	return issue.ID, nil
}

// ListRecent returns up to limit issues in insertion order.
func (s *MySQLStore) ListRecent(ctx context.Context, limit int) ([]models.Issue, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, lat, lng, status, image, description, user_id, created_at
		FROM issues ORDER BY seq LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, sqlError("query issues", err)
	}
	defer rows.Close()

	issues := make([]models.Issue, 0)
	for rows.Next() {
		var issue models.Issue
		var image, description, userID sql.NullString
		if err := rows.Scan(&issue.ID, &issue.Type, &issue.Lat, &issue.Lng, &issue.Status,
			&image, &description, &userID, &issue.CreatedAt); err != nil {
			return nil, sqlError("scan issue", err)
		}
		issue.Image = fromNullString(image)
		issue.Description = fromNullString(description)
		issue.UserID = fromNullString(userID)
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlError("iterate issues", err)
	}
	return issues, nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *MySQLStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *MySQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// sqlError marks connectivity failures (dial errors, dead connections,
// timeouts) with ErrStorageUnavailable. Errors the
// server answered with (*mysql.MySQLError) are passed through wrapped.
func sqlError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: failed to %s: %v", ErrStorageUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
