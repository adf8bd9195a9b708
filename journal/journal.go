package journal

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// MemoryDB is the data source name of a shared in-memory database.
const MemoryDB = "file::memory:?cache=shared"

// Entry is the record of one proxied transaction.
type Entry struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"startedAt"`
	Remote      string        `json:"remote"`
	Method      string        `json:"method"`
	Target      string        `json:"target"`
	Status      int           `json:"status"`
	CacheStatus string        `json:"cacheStatus"`
	Bytes       int64         `json:"bytes"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Recorder receives an entry for every finished transaction.
//
// Implementations must be thread-safe!
type Recorder interface {
	Record(Entry) error
}

// Journal is a Recorder that can also be queried.
type Journal interface {
	Recorder
	// Recent returns up to limit entries, newest first.
	Recent(limit int) ([]Entry, error)
	// StatusCounts returns the number of recorded transactions per status code.
	StatusCounts() (map[int]int, error)
	Close() error
}

// Discard is a Recorder that drops everything.
type Discard struct{}

func (Discard) Record(Entry) error { return nil }

type SQLiteJournal struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteJournal opens the journal with the given filename as the db.
// If filename is empty or "memory", a shared in-memory db is opened.
func NewSQLiteJournal(filename string) (*SQLiteJournal, error) {
	if filename == "" || filename == "memory" {
		filename = MemoryDB
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			started_at INTEGER,
			remote TEXT,
			method TEXT,
			target TEXT,
			status INTEGER,
			cache_status TEXT,
			bytes INTEGER,
			duration INTEGER,
			error TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS started_at_idx ON transactions (started_at)",
		"PRAGMA journal_mode=WAL",
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SQLiteJournal{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLiteJournal) Record(e Entry) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec(`INSERT OR REPLACE INTO transactions
		(id, started_at, remote, method, target, status, cache_status, bytes, duration, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StartedAt.UnixNano(), e.Remote, e.Method, e.Target, e.Status,
		e.CacheStatus, e.Bytes, int64(e.Duration), e.Error)
	return err
}

func (s *SQLiteJournal) Recent(limit int) ([]Entry, error) {
	entries := make([]Entry, 0)
	rows, err := s.db.Query(`SELECT
		id, started_at, remote, method, target, status, cache_status, bytes, duration, error
		FROM transactions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return entries, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		var started, duration int64
		if err := rows.Scan(&e.ID, &started, &e.Remote, &e.Method, &e.Target, &e.Status,
			&e.CacheStatus, &e.Bytes, &duration, &e.Error); err != nil {
			return entries, err
		}
		e.StartedAt = time.Unix(0, started)
		e.Duration = time.Duration(duration)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteJournal) StatusCounts() (map[int]int, error) {
	counts := make(map[int]int)
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM transactions GROUP BY status")
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return counts, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
