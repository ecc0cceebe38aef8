package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/valentine/internal/domain"
	"github.com/containerd/errdefs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ Repository = (*SQLiteStore)(nil)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps the async sink writers from blocking health pings.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS valentine_responses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		answers_json TEXT NOT NULL DEFAULT '[]',
		yes_attempts INTEGER NOT NULL DEFAULT 0,
		no_attempts INTEGER NOT NULL DEFAULT 0,
		final_response TEXT NOT NULL DEFAULT 'PENDING',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_responses_final ON valentine_responses(final_response);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateResponse inserts a new record and assigns its ID.
func (s *SQLiteStore) CreateResponse(ctx context.Context, resp *domain.Response) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = s.now()
	}
	if resp.FinalResponse == "" {
		resp.FinalResponse = domain.FinalPending
	}

	answers, err := encodeAnswers(resp.Answers)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO valentine_responses (
		id, name, answers_json, yes_attempts, no_attempts, final_response, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		resp.ID, resp.Name, answers,
		resp.YesAttempts, resp.NoAttempts, string(resp.FinalResponse),
		resp.CreatedAt.Unix(), s.now().Unix(),
	)
	if err != nil {
		return classify("insert response", err)
	}
	return nil
}

// UpdateResponse applies the non-nil fields of patch to the record.
func (s *SQLiteStore) UpdateResponse(ctx context.Context, id string, patch domain.Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []interface{}

	if patch.Answers != nil {
		answers, err := encodeAnswers(patch.Answers)
		if err != nil {
			return err
		}
		sets = append(sets, "answers_json = ?")
		args = append(args, answers)
	}
	if patch.YesAttempts != nil {
		sets = append(sets, "yes_attempts = ?")
		args = append(args, *patch.YesAttempts)
	}
	if patch.NoAttempts != nil {
		sets = append(sets, "no_attempts = ?")
		args = append(args, *patch.NoAttempts)
	}
	if patch.FinalResponse != nil {
		sets = append(sets, "final_response = ?")
		args = append(args, string(*patch.FinalResponse))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now().Unix(), id)

	query := `UPDATE valentine_responses SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify("update response", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("response %s: %w", id, errdefs.ErrNotFound)
	}
	return nil
}

// GetResponse retrieves a record by ID.
func (s *SQLiteStore) GetResponse(ctx context.Context, id string) (*domain.Response, error) {
	query := `
		SELECT id, name, answers_json, yes_attempts, no_attempts, final_response, created_at
		FROM valentine_responses WHERE id = ?`

	var resp domain.Response
	var answers, final string
	var createdAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&resp.ID, &resp.Name, &answers,
		&resp.YesAttempts, &resp.NoAttempts, &final, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("response %s: %w", id, errdefs.ErrNotFound)
	}
	if err != nil {
		return nil, classify("scan response row", err)
	}

	if err := json.Unmarshal([]byte(answers), &resp.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	resp.FinalResponse = domain.FinalResponse(final)
	resp.CreatedAt = time.Unix(createdAt, 0)

	return &resp, nil
}

// CountResponses returns the number of records. An empty final counts all.
func (s *SQLiteStore) CountResponses(ctx context.Context, final domain.FinalResponse) (int64, error) {
	query := `SELECT COUNT(*) FROM valentine_responses`
	var args []interface{}
	if final != "" {
		query += ` WHERE final_response = ?`
		args = append(args, string(final))
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count responses", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func encodeAnswers(answers []domain.Answer) (string, error) {
	if answers == nil {
		answers = []domain.Answer{}
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return string(b), nil
}
