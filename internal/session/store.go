// Package session persists the login session and the last filter selection.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTTL is how long a stored value stays valid after it is written.
const DefaultTTL = 24 * time.Hour

const (
	keyToken   = "stucon_session"
	keyEmail   = "stucon_userEmail"
	keyScheme  = "stucon_scheme"
	keyBranch  = "stucon_branch"
	keySubject = "stucon_subject"
	keySem     = "stucon_sem"
)

var allKeys = []string{keyToken, keyEmail, keyScheme, keyBranch, keySubject, keySem}

// Preferences is the last committed filter selection. Empty fields mean
// nothing is stored for that axis.
type Preferences struct {
	Scheme   string
	Branch   string
	Subject  string
	Semester int
}

// Session is the stored login.
type Session struct {
	Token string
	Email string
}

// Store is a small SQLite key-value store with per-entry expiry.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the store at path. ":memory:" gives a private
// in-memory store. A non-positive ttl means DefaultTTL.
func Open(path string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session db: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsAuthenticated reports whether an unexpired token and email are stored.
func (s *Store) IsAuthenticated() bool {
	sess, err := s.Session()
	return err == nil && sess.Token != "" && sess.Email != ""
}

// Session returns the stored login; missing values are empty.
func (s *Store) Session() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, err := s.get(keyToken)
	if err != nil {
		return Session{}, err
	}
	email, err := s.get(keyEmail)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Email: email}, nil
}

// SetSession stores the login token and email.
func (s *Store) SetSession(token, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(map[string]string{keyToken: token, keyEmail: email})
}

// Clear removes the session and every stored preference.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, k := range allKeys {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// FilterPreferences returns the stored selection. Values that fail to parse
// read as unset.
func (s *Store) FilterPreferences() (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Preferences
	var err error
	if p.Scheme, err = s.get(keyScheme); err != nil {
		return Preferences{}, err
	}
	if p.Branch, err = s.get(keyBranch); err != nil {
		return Preferences{}, err
	}
	if p.Subject, err = s.get(keySubject); err != nil {
		return Preferences{}, err
	}
	sem, err := s.get(keySem)
	if err != nil {
		return Preferences{}, err
	}
	if n, err := strconv.Atoi(sem); err == nil && n >= 1 && n <= 8 {
		p.Semester = n
	}
	return p, nil
}

// SetFilterPreferences stores p. An empty field deletes its key so a cleared
// filter stays cleared on the next start.
func (s *Store) SetFilterPreferences(p Preferences) error {
	sem := ""
	if p.Semester > 0 {
		sem = strconv.Itoa(p.Semester)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(map[string]string{
		keyScheme:  p.Scheme,
		keyBranch:  p.Branch,
		keySubject: p.Subject,
		keySem:     sem,
	})
}

// get returns the value for key, or "" if absent or expired. Expired rows are
// deleted on the next write. Callers hold mu.
func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM kv WHERE key = ? AND expires_at > ?`,
		key, s.now().UnixNano(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

// put writes all entries in one transaction; empty values delete. Callers hold mu.
func (s *Store) put(entries map[string]string) error {
	now := s.now()
	expires := now.Add(s.ttl).UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM kv WHERE expires_at <= ?`, now.UnixNano()); err != nil {
		return fmt.Errorf("purge expired: %w", err)
	}

	for k, v := range entries {
		if v == "" {
			if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, k); err != nil {
				return fmt.Errorf("delete %s: %w", k, err)
			}
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
		`, k, v, expires); err != nil {
			return fmt.Errorf("write %s: %w", k, err)
		}
	}
	return tx.Commit()
}
