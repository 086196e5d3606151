// Package logging persists generation audit records to sqlite. Both call
// sites tolerate a nil logger so audit can be switched off without branching.
package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type GenerationLog struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Choice       string    `json:"choice"`
	SystemPrompt string    `json:"system_prompt"`
	UserPrompt   string    `json:"user_prompt"`
	Response     string    `json:"response"`
	Metadata     string    `json:"metadata"`
}

type GenerationMetadata struct {
	Model        string        `json:"model"`
	MaxTokens    int           `json:"max_tokens"`
	ResponseTime time.Duration `json:"response_time_ms"`
	Attempt      int           `json:"attempt"`
	Error        *string       `json:"error,omitempty"`
}

type AuditLogger struct {
	db *sql.DB
}

func NewAuditLogger(path string) (*AuditLogger, error) {
	if path == "" {
		path = "./audit.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	logger := &AuditLogger{db: db}
	if err := logger.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create audit tables: %w", err)
	}

	return logger, nil
}

func (al *AuditLogger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL,
		choice TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		user_prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		metadata TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_generations_session ON generations(session_id);
	CREATE INDEX IF NOT EXISTS idx_generations_timestamp ON generations(timestamp);

	CREATE TABLE IF NOT EXISTS parse_failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL,
		choice TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		raw TEXT NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_parse_failures_session ON parse_failures(session_id);
	`

	_, err := al.db.Exec(schema)
	return err
}

func (al *AuditLogger) LogGeneration(
	sessionID string,
	choice string,
	systemPrompt string,
	userPrompt string,
	response string,
	metadata GenerationMetadata,
) error {
	if al == nil {
		return nil
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = al.db.Exec(`
		INSERT INTO generations (session_id, choice, system_prompt, user_prompt, response, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, choice, systemPrompt, userPrompt, response, string(metadataJSON))

	return err
}

// LogParseFailure records a model response the patch normalizer rejected,
// keeping the raw text for later inspection.
func (al *AuditLogger) LogParseFailure(sessionID, choice string, attempt int, raw, reason string) error {
	if al == nil {
		return nil
	}

	_, err := al.db.Exec(`
		INSERT INTO parse_failures (session_id, choice, attempt, raw, reason)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, choice, attempt, raw, reason)

	return err
}

func (al *AuditLogger) Close() error {
	if al == nil || al.db == nil {
		return nil
	}
	return al.db.Close()
}
