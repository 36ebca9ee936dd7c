package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"RafflePool/internal/model"
)

// SQLiteRecorder persists raffle history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (dashboards read while
	// the daemon writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			address      TEXT NOT NULL,
			contribution INTEGER NOT NULL,
			pool_after   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_ts ON entries(timestamp)`,

		`CREATE TABLE IF NOT EXISTS draw_requests (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			round      TEXT NOT NULL,
			request_id INTEGER NOT NULL,
			entrants   INTEGER NOT NULL,
			pool       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_ts ON draw_requests(timestamp)`,

		`CREATE TABLE IF NOT EXISTS settlements (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			round        TEXT NOT NULL,
			request_id   INTEGER NOT NULL,
			random_value INTEGER NOT NULL,
			winner_index INTEGER NOT NULL,
			winner       TEXT NOT NULL,
			prize        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_settlements_ts ON settlements(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEntry(evt *model.EntryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO entries
		(timestamp, address, contribution, pool_after)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Address, evt.Contribution, evt.Pool,
	)
	return err
}

func (r *SQLiteRecorder) RecordDrawRequest(evt *model.DrawRequestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO draw_requests
		(timestamp, round, request_id, entrants, pool)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Round, int64(evt.RequestID), evt.Entrants, evt.Pool,
	)
	return err
}

func (r *SQLiteRecorder) RecordSettlement(evt *model.SettlementEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO settlements
		(timestamp, round, request_id, random_value, winner_index, winner, prize)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Round, int64(evt.RequestID), int64(evt.RandomValue),
		evt.WinnerIndex, evt.Winner, evt.Prize,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
