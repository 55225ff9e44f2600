package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fluentvoice/synapse/internal/domain"
	"github.com/fluentvoice/synapse/internal/srs"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Store-level errors. Check with errors.Is.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrRevisionConflict means a compare-and-swap save lost the race: the
	// stored revision no longer matches the snapshot the caller reviewed.
	ErrRevisionConflict = errors.New("storage: card revision conflict")
)

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// StoredCard is a card row: the engine snapshot plus its owning learner and
// the revision used for optimistic concurrency.
type StoredCard struct {
	Learner  string
	Card     srs.Card
	Revision int64
}

const cardColumns = `card_id, content_ref, state, step, ease, interval_days,
	due_at, last_review, lapses, repetitions, added_seq, revision`

// InsertCard inserts a new card for the learner, assigning the next
// insertion sequence number.
func (db *DB) InsertCard(learner string, c srs.Card) error {
	state, err := c.State.MarshalText()
	if err != nil {
		return fmt.Errorf("failed to encode state for card %s: %w", c.ID, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO cards (learner_id, card_id, content_ref, state, step, ease,
			interval_days, due_at, last_review, lapses, repetitions, added_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(added_seq), 0) + 1 FROM cards WHERE learner_id = ?))
	`,
		learner,
		c.ID,
		c.ContentRef,
		string(state),
		c.Step,
		c.Ease,
		c.IntervalDays,
		c.DueAt,
		nullTime(c.LastReview),
		c.Lapses,
		c.Repetitions,
		learner,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
	}
	return nil
}

// GetCard retrieves one card. Returns ErrNotFound if it does not exist.
func (db *DB) GetCard(learner, cardID string) (*StoredCard, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+`
		FROM cards WHERE learner_id = ? AND card_id = ?
	`, learner, cardID)

	sc, err := scanCard(learner, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %s for learner %s: %w", cardID, learner, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get card %s: %w", cardID, err)
	}
	return sc, nil
}

// ListCards retrieves the learner's whole deck in insertion order.
func (db *DB) ListCards(learner string) ([]StoredCard, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE learner_id = ? ORDER BY added_seq
	`, learner)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards for learner %s: %w", learner, err)
	}
	defer rows.Close()

	return collectCards(learner, rows)
}

// ListDue retrieves the learner's cards with due_at <= now, earliest first.
// The new-card daily cap is not applied here; that is the scheduler's concern.
func (db *DB) ListDue(learner string, now time.Time) ([]StoredCard, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE learner_id = ? AND due_at <= ?
		ORDER BY due_at, added_seq
	`, learner, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due cards for learner %s: %w", learner, err)
	}
	defer rows.Close()

	return collectCards(learner, rows)
}

// SaveCard writes an updated card snapshot if the stored revision still
// matches expectedRevision, bumping the revision on success. Returns
// ErrRevisionConflict when another writer got there first and ErrNotFound
// when the card no longer exists.
func (db *DB) SaveCard(learner string, c srs.Card, expectedRevision int64) error {
	state, err := c.State.MarshalText()
	if err != nil {
		return fmt.Errorf("failed to encode state for card %s: %w", c.ID, err)
	}
	res, err := db.conn.Exec(`
		UPDATE cards
		SET content_ref = ?, state = ?, step = ?, ease = ?, interval_days = ?,
			due_at = ?, last_review = ?, lapses = ?, repetitions = ?,
			revision = revision + 1
		WHERE learner_id = ? AND card_id = ? AND revision = ?
	`,
		c.ContentRef,
		string(state),
		c.Step,
		c.Ease,
		c.IntervalDays,
		c.DueAt,
		nullTime(c.LastReview),
		c.Lapses,
		c.Repetitions,
		learner,
		c.ID,
		expectedRevision,
	)
	if err != nil {
		return fmt.Errorf("failed to save card %s: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check save of card %s: %w", c.ID, err)
	}
	if n == 0 {
		if _, getErr := db.GetCard(learner, c.ID); errors.Is(getErr, ErrNotFound) {
			return fmt.Errorf("card %s: %w", c.ID, ErrNotFound)
		}
		return fmt.Errorf("card %s at revision %d: %w", c.ID, expectedRevision, ErrRevisionConflict)
	}
	return nil
}

// DeleteCard removes a learner's card.
func (db *DB) DeleteCard(learner, cardID string) error {
	_, err := db.conn.Exec(`
		DELETE FROM cards WHERE learner_id = ? AND card_id = ?
	`, learner, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	return nil
}

// DeleteCardEverywhere removes a card for all learners, used when its
// content disappears from every source.
func (db *DB) DeleteCardEverywhere(cardID string) error {
	_, err := db.conn.Exec(`DELETE FROM cards WHERE card_id = ?`, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	return nil
}

// ListLearners returns every learner with at least one card.
func (db *DB) ListLearners() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT learner_id FROM cards ORDER BY learner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list learners: %w", err)
	}
	defer rows.Close()

	var learners []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("failed to scan learner row: %w", err)
		}
		learners = append(learners, l)
	}
	return learners, rows.Err()
}

// AppendReviewLog journals one graded review.
func (db *DB) AppendReviewLog(learner string, log srs.ReviewLog) error {
	grade, err := log.Grade.MarshalText()
	if err != nil {
		return fmt.Errorf("failed to encode grade for card %s: %w", log.CardID, err)
	}
	prev, err := log.PrevState.MarshalText()
	if err != nil {
		return fmt.Errorf("failed to encode state for card %s: %w", log.CardID, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO review_logs (learner_id, card_id, grade, prev_state, reviewed_at)
		VALUES (?, ?, ?, ?, ?)
	`, learner, log.CardID, string(grade), string(prev), log.ReviewedAt)
	if err != nil {
		return fmt.Errorf("failed to append review log for card %s: %w", log.CardID, err)
	}
	return nil
}

// CountNewIntroducedSince reports how many reviews since the given time were
// of cards still in the New state, i.e. how much of the daily new-card
// budget is already spent.
func (db *DB) CountNewIntroducedSince(learner string, since time.Time) (int, error) {
	var n int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM review_logs
		WHERE learner_id = ? AND prev_state = 'new' AND reviewed_at >= ?
	`, learner, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count introduced cards for learner %s: %w", learner, err)
	}
	return n, nil
}

// UpsertItem stores a content payload, keyed by its content hash.
func (db *DB) UpsertItem(item domain.Item, sourceID int64) error {
	_, err := db.conn.Exec(`
		INSERT INTO items (hash, kind, verb, sense_number, definition, example,
			character, situation, context_text, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET source_id = excluded.source_id
	`,
		item.Hash,
		string(item.Kind),
		item.Verb,
		item.SenseNumber,
		item.Definition,
		item.Example,
		item.Character,
		item.Situation,
		item.ContextText,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.Hash, err)
	}
	return nil
}

// GetItem retrieves a content payload by hash. Returns ErrNotFound if absent.
func (db *DB) GetItem(hash string) (*domain.Item, error) {
	var item domain.Item
	var kind string
	err := db.conn.QueryRow(`
		SELECT hash, kind, verb, sense_number, definition, example,
			character, situation, context_text
		FROM items WHERE hash = ?
	`, hash).Scan(
		&item.Hash,
		&kind,
		&item.Verb,
		&item.SenseNumber,
		&item.Definition,
		&item.Example,
		&item.Character,
		&item.Situation,
		&item.ContextText,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", hash, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item %s: %w", hash, err)
	}
	item.Kind = domain.ItemKind(kind)
	return &item, nil
}

// ListItemHashesBySource returns the hashes of all items from one source.
func (db *DB) ListItemHashesBySource(sourceID int64) ([]string, error) {
	rows, err := db.conn.Query(`SELECT hash FROM items WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan item hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// DeleteItem removes a content payload.
func (db *DB) DeleteItem(hash string) error {
	_, err := db.conn.Exec(`DELETE FROM items WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", hash, err)
	}
	return nil
}

// Source is a card content source, either a local path or a git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, or nil when unknown.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source row. Items and cards that came from it are
// cleaned up by the next sync.
func (db *DB) DeleteSource(id int64) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64, at time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, at, sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(learner string, row rowScanner) (*StoredCard, error) {
	var sc StoredCard
	var state string
	var lastReview sql.NullTime

	err := row.Scan(
		&sc.Card.ID,
		&sc.Card.ContentRef,
		&state,
		&sc.Card.Step,
		&sc.Card.Ease,
		&sc.Card.IntervalDays,
		&sc.Card.DueAt,
		&lastReview,
		&sc.Card.Lapses,
		&sc.Card.Repetitions,
		&sc.Card.AddedSeq,
		&sc.Revision,
	)
	if err != nil {
		return nil, err
	}

	sc.Learner = learner
	if err := sc.Card.State.UnmarshalText([]byte(state)); err != nil {
		return nil, fmt.Errorf("card %s has unknown state %q: %w", sc.Card.ID, state, err)
	}
	if lastReview.Valid {
		sc.Card.LastReview = lastReview.Time
	}
	return &sc, nil
}

func collectCards(learner string, rows *sql.Rows) ([]StoredCard, error) {
	var cards []StoredCard
	for rows.Next() {
		sc, err := scanCard(learner, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, *sc)
	}
	return cards, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
