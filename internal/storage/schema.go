package storage

const schema = `
-- One row per learner per card. The scheduling columns mirror srs.Card;
-- revision supports compare-and-swap saves so concurrent review
-- submissions cannot silently overwrite each other.
CREATE TABLE IF NOT EXISTS cards (
    learner_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    content_ref TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'new',
    step INTEGER NOT NULL DEFAULT 0,
    ease REAL NOT NULL,
    interval_days INTEGER NOT NULL DEFAULT 0,
    due_at DATETIME NOT NULL,
    last_review DATETIME,
    lapses INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    added_seq INTEGER NOT NULL,
    revision INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (learner_id, card_id)
);

CREATE INDEX IF NOT EXISTS idx_cards_due ON cards(learner_id, due_at);

-- Append-only journal of graded reviews. prev_state lets hosts count how
-- many never-seen cards a day has introduced, which feeds the new-card cap.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    learner_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    grade TEXT NOT NULL,
    prev_state TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_logs_learner_time ON review_logs(learner_id, reviewed_at);

-- Content payloads, keyed by their stable content hash. The scheduler never
-- reads these; they exist so the session API can return displayable text.
CREATE TABLE IF NOT EXISTS items (
    hash TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    verb TEXT NOT NULL DEFAULT '',
    sense_number INTEGER NOT NULL DEFAULT 0,
    definition TEXT NOT NULL DEFAULT '',
    example TEXT NOT NULL DEFAULT '',
    character TEXT NOT NULL DEFAULT '',
    situation TEXT NOT NULL DEFAULT '',
    context_text TEXT NOT NULL DEFAULT '',
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Content sources: a local directory of deck files or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
