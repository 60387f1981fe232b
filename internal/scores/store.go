// Package scores persists the local high-score table and serves it over a
// loopback HTTP API.
package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// tableCap bounds the stored table; entries below the cut are pruned after
// every insert.
const tableCap = 100

var (
	ErrInvalidName   = errors.New("scores: name must be 3-10 characters of A-Z, 0-9 or _")
	ErrDuplicateName = errors.New("scores: name already on the table")
	ErrNotFound      = errors.New("scores: entry not found")
)

var namePattern = regexp.MustCompile(`^[A-Z0-9_]{3,10}$`)

// Entry is one row of the high-score table.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Score         int       `json:"score"`
	Collectibles  int       `json:"collectibles"`
	BonusUnlocked bool      `json:"bonusUnlocked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NormalizeName uppercases a submitted name and validates it against the
// table's character set.
func NormalizeName(name string) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !namePattern.MatchString(name) {
		return "", ErrInvalidName
	}
	return name, nil
}

// Store is the SQLite-backed score table.
type Store struct {
	db *sql.DB
}

// NewStore opens/creates a SQLite database at dbPath and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&cache=shared", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			score INTEGER NOT NULL,
			collectibles INTEGER NOT NULL DEFAULT 0,
			bonus_unlocked INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores(score DESC, collectibles DESC, created_at ASC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Add inserts a new entry. The name is normalized first; a name already on
// the table is rejected, not overwritten. After the insert the table is
// pruned back to its cap.
func (s *Store) Add(ctx context.Context, name string, score, collectibles int, bonusUnlocked bool) (Entry, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Entry{}, err
	}
	if score < 0 {
		return Entry{}, fmt.Errorf("scores: negative score %d", score)
	}

	now := time.Now().UTC()
	e := Entry{
		ID:            uuid.New(),
		Name:          normalized,
		Score:         score,
		Collectibles:  collectibles,
		BonusUnlocked: bonusUnlocked,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scores(id, name, score, collectibles, bonus_unlocked, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Name, e.Score, e.Collectibles, e.BonusUnlocked, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return Entry{}, ErrDuplicateName
		}
		return Entry{}, err
	}

	if err := s.prune(ctx); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// UpdateByName replaces the score and collectibles of an existing entry.
// Entries are addressed by the name the player submitted under; the name is
// normalized the same way Add normalizes it.
func (s *Store) UpdateByName(ctx context.Context, name string, score, collectibles int) (Entry, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Entry{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scores SET score=?, collectibles=?, updated_at=? WHERE name=?`,
		score, collectibles, time.Now().UTC(), normalized)
	if err != nil {
		return Entry{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, err
	}
	if n == 0 {
		return Entry{}, ErrNotFound
	}
	return s.GetByName(ctx, normalized)
}

// GetByName returns one entry by its normalized name.
func (s *Store) GetByName(ctx context.Context, name string) (Entry, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Entry{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, score, collectibles, bonus_unlocked, created_at, updated_at
		 FROM scores WHERE name=?`, normalized)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// UpdatedAt reports when the table last changed; zero when the table is
// empty.
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM scores ORDER BY updated_at DESC LIMIT 1`).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	return ts, err
}

// List returns the table ranked by score desc, collectibles desc, then the
// earliest submission first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > tableCap {
		limit = tableCap
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, score, collectibles, bonus_unlocked, created_at, updated_at
		FROM scores
		ORDER BY score DESC, collectibles DESC, created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// prune drops everything ranked below the table cap.
func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM scores WHERE id NOT IN (
			SELECT id FROM scores
			ORDER BY score DESC, collectibles DESC, created_at ASC
			LIMIT ?
		)`, tableCap)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var idStr string
	if err := row.Scan(&idStr, &e.Name, &e.Score, &e.Collectibles, &e.BonusUnlocked, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Entry{}, err
	}
	e.ID = id
	return e, nil
}

func isConstraintErr(err error) bool {
	// modernc sqlite reports constraint violations by message text only.
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "unique constraint")
}
