package gochat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shaharia-lab/gochat/observability"
)

// SQLiteSessionStore is an SQLite implementation of SessionStore.
type SQLiteSessionStore struct {
	db     *sql.DB
	logger observability.Logger
}

// NewSQLiteSessionStore opens (or creates) the SQLite database at
// databasePath and initializes the schema.
func NewSQLiteSessionStore(databasePath string, logger observability.Logger) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite3", databasePath+"?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// sql.Open is lazy; force a connection so a bad path fails here.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	store := &SQLiteSessionStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return store, nil
}

// NewSQLiteSessionStoreWithDB wraps an existing database handle. The
// caller owns the handle; the schema is still initialized.
func NewSQLiteSessionStoreWithDB(db *sql.DB, logger observability.Logger) (*SQLiteSessionStore, error) {
	store := &SQLiteSessionStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return store, nil
}

// Close closes the underlying database handle.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteSessionStore) initSchema(ctx context.Context) error {
	createSessionsTableSQL := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);`

	createRecordsTableSQL := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		generated_at DATETIME NOT NULL,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);`

	createRecordsIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_records_session_id ON records (session_id);`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schema init: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createSessionsTableSQL); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createRecordsTableSQL); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createRecordsIndexSQL); err != nil {
		return fmt.Errorf("failed to create records index: %w", err)
	}

	return tx.Commit()
}

// CreateSession initializes a new session transcript.
func (s *SQLiteSessionStore) CreateSession(ctx context.Context) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		Records:   []ExchangeRecord{},
		CreatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
		session.ID, session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{"session_id": session.ID}).Debug("session created")
	return session, nil
}

// AppendRecord appends a record to an existing session.
func (s *SQLiteSessionStore) AppendRecord(ctx context.Context, sessionID string, record ExchangeRecord) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("session with ID %s not found", sessionID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (session_id, role, text, generated_at, input_tokens, output_tokens)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, string(record.Role), record.Text, record.GeneratedAt,
		record.InputTokens, record.OutputTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteSessionStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session := &Session{ID: sessionID, Records: []ExchangeRecord{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM sessions WHERE id = ?`, sessionID,
	).Scan(&session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session with ID %s not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, text, generated_at, input_tokens, output_tokens
		 FROM records WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record ExchangeRecord
		var role string
		if err := rows.Scan(&role, &record.Text, &record.GeneratedAt,
			&record.InputTokens, &record.OutputTokens); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Role = Role(role)
		session.Records = append(session.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return session, nil
}

// ListSessions returns all stored sessions without their records.
func (s *SQLiteSessionStore) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteSession removes a session and its records.
func (s *SQLiteSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session with ID %s not found", sessionID)
	}

	return tx.Commit()
}
