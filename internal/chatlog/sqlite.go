package chatlog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_logs (
	user_id    TEXT PRIMARY KEY,
	turns      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLiteStore keeps each user's conversation as one JSON document in a
// SQLite table keyed by the raw user identifier.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init chat_logs schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(userID string) []Turn {
	var raw string
	err := s.db.QueryRow(`SELECT turns FROM chat_logs WHERE user_id = ?`, userID).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("chat log: query %q failed, starting empty: %v", userID, err)
		}
		return []Turn{}
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		log.Printf("chat log: malformed record for %q, starting empty: %v", userID, err)
		return []Turn{}
	}
	if turns == nil {
		turns = []Turn{}
	}
	return turns
}

func (s *SQLiteStore) Save(userID string, turns []Turn) error {
	if userID == "" {
		return fmt.Errorf("empty user id")
	}
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO chat_logs (user_id, turns, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET turns = excluded.turns, updated_at = excluded.updated_at`,
		userID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert chat log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(userID string) error {
	res, err := s.db.Exec(`DELETE FROM chat_logs WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete chat log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete chat log: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Export(userID string) (string, bool) {
	return export(s.Load(userID))
}
