package keepsake

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// Store wraps a SQLite connection for character memory persistence.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database and runs migrations.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("keepsake: mkdir %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("keepsake: open db: %w", err)
	}

	// Single connection avoids write contention for our scale
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("keepsake: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)

	var version int
	s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)

	if version < 1 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS character_memories (
				id                TEXT PRIMARY KEY,
				character_id      TEXT    NOT NULL,
				user_id           TEXT    NOT NULL,
				memory_type       TEXT    NOT NULL,
				memory_content    TEXT    NOT NULL,
				memory_strength   INTEGER NOT NULL DEFAULT 50,
				mentioned_count   INTEGER NOT NULL DEFAULT 1,
				original_message  TEXT    NOT NULL DEFAULT '',
				last_mentioned_at TEXT    NOT NULL DEFAULT (datetime('now')),
				created_at        TEXT    NOT NULL DEFAULT (datetime('now')),
				updated_at        TEXT    NOT NULL DEFAULT (datetime('now'))
			);
			CREATE INDEX IF NOT EXISTS idx_memories_pair
				ON character_memories(character_id, user_id);
			CREATE INDEX IF NOT EXISTS idx_memories_pair_type
				ON character_memories(character_id, user_id, memory_type);
		`); err != nil {
			return err
		}
		s.db.Exec(`INSERT INTO schema_version (version) VALUES (1)`)
	}

	return nil
}

const memorySelectCols = `id, character_id, user_id, memory_type, memory_content,
	memory_strength, mentioned_count, original_message,
	last_mentioned_at, created_at, updated_at`

func scanMemory(rows *sql.Rows) (Memory, error) {
	var m Memory
	var lastMentioned, created, updated string

	if err := rows.Scan(
		&m.ID, &m.CharacterID, &m.UserID, &m.Type, &m.Content,
		&m.Strength, &m.MentionedCount, &m.OriginalMessage,
		&lastMentioned, &created, &updated,
	); err != nil {
		return m, err
	}

	m.LastMentionedAt, _ = time.Parse(sqliteTimeLayout, lastMentioned)
	m.CreatedAt, _ = time.Parse(sqliteTimeLayout, created)
	m.UpdatedAt, _ = time.Parse(sqliteTimeLayout, updated)
	return m, nil
}

// SaveFact upserts one extracted fact for a (character, user) pair.
//
// A persona_name fact first deletes any other name rows for the pair, so the
// user only ever has one current name. If a row with the same (type, content)
// exists it is reinforced (count +1, strength +boost, recency bumped);
// otherwise a new row is created with strength = extraction confidence.
// The delete + lookup + write run in one transaction.
func (s *Store) SaveFact(ctx context.Context, characterID, userID string, fact Fact, originalMessage string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if fact.Type == TypePersonaName {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM character_memories
			WHERE character_id = ? AND user_id = ? AND memory_type = ? AND memory_content != ?`,
			characterID, userID, string(TypePersonaName), fact.Value,
		); err != nil {
			return err
		}
	}

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM character_memories
		WHERE character_id = ? AND user_id = ? AND memory_type = ? AND memory_content = ?`,
		characterID, userID, string(fact.Type), fact.Value,
	).Scan(&existingID)

	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE character_memories
			SET mentioned_count = mentioned_count + 1,
			    memory_strength = memory_strength + ?,
			    last_mentioned_at = datetime('now'),
			    updated_at = datetime('now')
			WHERE id = ?`,
			reinforceBoost, existingID,
		)
		if err != nil {
			return err
		}
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO character_memories
				(id, character_id, user_id, memory_type, memory_content,
				 memory_strength, original_message, last_mentioned_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
			uuid.NewString(), characterID, userID, string(fact.Type), fact.Value,
			fact.Confidence, originalMessage,
		)
		if err != nil {
			return err
		}
	default:
		return err
	}

	return tx.Commit()
}

// LoadStrongest returns the most relevant memories for a pair: strength at or
// above the floor, most recently mentioned first, strongest first on ties.
func (s *Store) LoadStrongest(ctx context.Context, characterID, userID string, minStrength, limit int) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memorySelectCols+`
		FROM character_memories
		WHERE character_id = ? AND user_id = ? AND memory_strength >= ?
		ORDER BY last_mentioned_at DESC, memory_strength DESC
		LIMIT ?`,
		characterID, userID, minStrength, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// AllForPair returns every memory row for a pair, regardless of strength.
func (s *Store) AllForPair(ctx context.Context, characterID, userID string) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memorySelectCols+`
		FROM character_memories
		WHERE character_id = ? AND user_id = ?
		ORDER BY created_at DESC`,
		characterID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// Pair identifies one (character, user) memory scope.
type Pair struct {
	CharacterID string
	UserID      string
}

// ActivePairs returns every distinct (character, user) pair with stored rows.
func (s *Store) ActivePairs(ctx context.Context) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT character_id, user_id FROM character_memories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.CharacterID, &p.UserID); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// decayPercent maps full days of inactivity to a strength multiplier, in
// percent. 1-6 days decay linearly at 2% per day; at 7+ days the factor is a
// flat 80% no matter how stale the memory is. The flat tail is deliberate: a
// week-old fact and a year-old fact fade the same amount per sweep.
// Integer percent keeps floor(strength × factor) exact.
func decayPercent(days int) int {
	if days < 7 {
		return 100 - days*2
	}
	return 80
}

// RunDecaySweep decays every memory for a pair that has been inactive for at
// least one full day. Rows already updated within the last 24 hours are
// skipped, so repeated sweeps within the same day do not double-decay.
// Returns the number of rows whose strength changed.
func (s *Store) RunDecaySweep(ctx context.Context, characterID, userID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, memory_strength, last_mentioned_at, created_at, updated_at
		FROM character_memories
		WHERE character_id = ? AND user_id = ?`,
		characterID, userID,
	)
	if err != nil {
		return 0, err
	}

	type strengthUpdate struct {
		id       string
		strength int
	}
	var updates []strengthUpdate

	now := time.Now().UTC()
	for rows.Next() {
		var id string
		var strength int
		var lastMentioned, created, updated string

		if err := rows.Scan(&id, &strength, &lastMentioned, &created, &updated); err != nil {
			rows.Close()
			return 0, err
		}

		lastMention, err := time.Parse(sqliteTimeLayout, lastMentioned)
		if err != nil {
			lastMention, _ = time.Parse(sqliteTimeLayout, created)
		}
		days := int(now.Sub(lastMention).Hours() / 24)
		if days < 1 {
			continue
		}

		// Double-decay guard: one strength write per day at most.
		lastUpdate, _ := time.Parse(sqliteTimeLayout, updated)
		if now.Sub(lastUpdate) < 24*time.Hour {
			continue
		}

		newStrength := strength * decayPercent(days) / 100
		if newStrength != strength {
			updates = append(updates, strengthUpdate{id, newStrength})
		}
	}
	rows.Close()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE character_memories
		SET memory_strength = ?, updated_at = datetime('now')
		WHERE id = ?`)
	if err != nil {
		return 0, err
	}
	for _, u := range updates {
		stmt.Exec(u.strength, u.id)
	}
	stmt.Close()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// ClearPair deletes every memory row for a pair. Returns rows deleted.
func (s *Store) ClearPair(ctx context.Context, characterID, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM character_memories
		WHERE character_id = ? AND user_id = ?`,
		characterID, userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetStrength overwrites a memory's strength directly. Used by tests and the
// inspect tooling; normal mutation goes through SaveFact and RunDecaySweep.
func (s *Store) SetStrength(ctx context.Context, id string, strength int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE character_memories
		SET memory_strength = ?, updated_at = datetime('now')
		WHERE id = ?`,
		strength, id,
	)
	return err
}

// Touch backdates a memory's timestamps. Test hook for decay scenarios.
func (s *Store) Touch(ctx context.Context, id string, lastMentionedAt, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE character_memories
		SET last_mentioned_at = ?, updated_at = ?
		WHERE id = ?`,
		lastMentionedAt.UTC().Format(sqliteTimeLayout),
		updatedAt.UTC().Format(sqliteTimeLayout),
		id,
	)
	return err
}

// Close shuts down the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
