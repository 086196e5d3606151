// Package storage keeps world-state snapshots in sqlite, one row per
// session. The full state travels as a JSON blob; a few columns are
// duplicated for listing without deserializing every save.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"medievalrpg/internal/game"
)

var ErrNotFound = errors.New("save not found")

type SaveSummary struct {
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Day       int       `json:"day"`
	Timestamp time.Time `json:"timestamp"`
}

type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "./saves.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open saves database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create saves table: %w", err)
	}

	return store, nil
}

func (st *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		day INTEGER NOT NULL,
		state TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := st.db.Exec(schema)
	return err
}

// Save writes the state under the session id, replacing any previous
// snapshot for that session.
func (st *Store) Save(sessionID string, state *game.WorldState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal world state: %w", err)
	}

	_, err = st.db.Exec(`
		INSERT INTO saves (id, name, location, day, state, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			day = excluded.day,
			state = excluded.state,
			timestamp = excluded.timestamp
	`, sessionID, state.Name, state.Location, state.Date.Day, string(raw), time.Now().UTC())

	return err
}

// Load restores a snapshot. Saves written before the survival mechanics
// existed lack satiety and energy fields; those are detected by probing the
// raw JSON and backfilled with sensible defaults.
func (st *Store) Load(sessionID string) (*game.WorldState, error) {
	var raw string
	err := st.db.QueryRow(`SELECT state FROM saves WHERE id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read save: %w", err)
	}

	return DecodeState([]byte(raw))
}

// DecodeState unmarshals a state blob and repairs legacy saves. Shared with
// the load-from-payload path on the websocket layer.
func DecodeState(raw []byte) (*game.WorldState, error) {
	var probe struct {
		Satiety *int `json:"satiety"`
		Energy  *int `json:"energy"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse save: %w", err)
	}

	var state game.WorldState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to parse save: %w", err)
	}

	state.RepairLegacySave(probe.Satiety != nil, probe.Energy != nil)
	state.EnsureIntegrity()
	return &state, nil
}

func (st *Store) List() ([]SaveSummary, error) {
	rows, err := st.db.Query(`
		SELECT id, name, location, day, timestamp
		FROM saves
		ORDER BY timestamp DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	defer rows.Close()

	var saves []SaveSummary
	for rows.Next() {
		var s SaveSummary
		if err := rows.Scan(&s.SessionID, &s.Name, &s.Location, &s.Day, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan save row: %w", err)
		}
		saves = append(saves, s)
	}
	return saves, rows.Err()
}

func (st *Store) Delete(sessionID string) error {
	_, err := st.db.Exec(`DELETE FROM saves WHERE id = ?`, sessionID)
	return err
}

func (st *Store) Close() error {
	return st.db.Close()
}
