package db

// Activity rows reference heroes without a foreign key so the audit trail
// outlives the hero it describes.
//
// heroes.import_key holds the hero id an imported hero carried in its
// document, so importing the same document again finds the copy.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash BYTEA NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
    id         TEXT PRIMARY KEY,
    user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires_at ON auth_sessions(expires_at);

CREATE TABLE IF NOT EXISTS heroes (
    id            BIGSERIAL PRIMARY KEY,
    user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    system        TEXT NOT NULL,
    race          TEXT NOT NULL DEFAULT '',
    class         TEXT NOT NULL DEFAULT '',
    level         INTEGER NOT NULL DEFAULT 1 CHECK (level > 0),
    age           INTEGER,
    deceased      BOOLEAN NOT NULL DEFAULT FALSE,
    portrait      TEXT NOT NULL DEFAULT '',
    backstory     TEXT NOT NULL DEFAULT '',
    backstory_pdf TEXT NOT NULL DEFAULT '',
    tags          JSONB NOT NULL DEFAULT '[]',
    stats         JSONB NOT NULL DEFAULT '{}',
    import_key    BIGINT,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_heroes_user_id ON heroes(user_id);
CREATE INDEX IF NOT EXISTS idx_heroes_user_import_key ON heroes(user_id, import_key);

CREATE TABLE IF NOT EXISTS session_logs (
    id         BIGSERIAL PRIMARY KEY,
    hero_id    BIGINT NOT NULL REFERENCES heroes(id) ON DELETE CASCADE,
    title      TEXT NOT NULL,
    date       TEXT NOT NULL,
    content    TEXT NOT NULL DEFAULT '',
    tags       JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_logs_hero_date ON session_logs(hero_id, date DESC);

CREATE TABLE IF NOT EXISTS npcs (
    id               BIGSERIAL PRIMARY KEY,
    hero_id          BIGINT NOT NULL REFERENCES heroes(id) ON DELETE CASCADE,
    name             TEXT NOT NULL,
    image            TEXT NOT NULL DEFAULT '',
    relationship     TEXT NOT NULL DEFAULT 'neutral',
    location         TEXT NOT NULL DEFAULT '',
    notes            TEXT NOT NULL DEFAULT '',
    favorite         BOOLEAN NOT NULL DEFAULT FALSE,
    first_session_id BIGINT REFERENCES session_logs(id) ON DELETE SET NULL,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_npcs_hero_id ON npcs(hero_id);

CREATE TABLE IF NOT EXISTS quests (
    id          BIGSERIAL PRIMARY KEY,
    hero_id     BIGINT NOT NULL REFERENCES heroes(id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT 'side',
    completed   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quests_hero_id ON quests(hero_id);

CREATE TABLE IF NOT EXISTS activities (
    id         BIGSERIAL PRIMARY KEY,
    hero_id    BIGINT NOT NULL,
    user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    type       TEXT NOT NULL,
    message    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_hero_created ON activities(hero_id, created_at DESC);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash BLOB NOT NULL,
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
    id         TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at DATETIME NOT NULL,
    expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires_at ON auth_sessions(expires_at);

CREATE TABLE IF NOT EXISTS heroes (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    system        TEXT NOT NULL,
    race          TEXT NOT NULL DEFAULT '',
    class         TEXT NOT NULL DEFAULT '',
    level         INTEGER NOT NULL DEFAULT 1 CHECK (level > 0),
    age           INTEGER,
    deceased      INTEGER NOT NULL DEFAULT 0,
    portrait      TEXT NOT NULL DEFAULT '',
    backstory     TEXT NOT NULL DEFAULT '',
    backstory_pdf TEXT NOT NULL DEFAULT '',
    tags          TEXT NOT NULL DEFAULT '[]',
    stats         TEXT NOT NULL DEFAULT '{}',
    import_key    INTEGER,
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_heroes_user_id ON heroes(user_id);
CREATE INDEX IF NOT EXISTS idx_heroes_user_import_key ON heroes(user_id, import_key);

CREATE TABLE IF NOT EXISTS session_logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    hero_id    INTEGER NOT NULL REFERENCES heroes(id) ON DELETE CASCADE,
    title      TEXT NOT NULL,
    date       TEXT NOT NULL,
    content    TEXT NOT NULL DEFAULT '',
    tags       TEXT NOT NULL DEFAULT '[]',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_logs_hero_date ON session_logs(hero_id, date DESC);

CREATE TABLE IF NOT EXISTS npcs (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    hero_id          INTEGER NOT NULL REFERENCES heroes(id) ON DELETE CASCADE,
    name             TEXT NOT NULL,
    image            TEXT NOT NULL DEFAULT '',
    relationship     TEXT NOT NULL DEFAULT 'neutral',
    location         TEXT NOT NULL DEFAULT '',
    notes            TEXT NOT NULL DEFAULT '',
    favorite         INTEGER NOT NULL DEFAULT 0,
    first_session_id INTEGER REFERENCES session_logs(id) ON DELETE SET NULL,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_npcs_hero_id ON npcs(hero_id);

CREATE TABLE IF NOT EXISTS quests (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    hero_id     INTEGER NOT NULL REFERENCES heroes(id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT 'side',
    completed   INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quests_hero_id ON quests(hero_id);

CREATE TABLE IF NOT EXISTS activities (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    hero_id    INTEGER NOT NULL,
    user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    type       TEXT NOT NULL,
    message    TEXT NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_hero_created ON activities(hero_id, created_at DESC);
`

// Schema returns the DDL for the dialect.
func (d Dialect) Schema() string {
	if d == SQLite {
		return sqliteSchema
	}
	return postgresSchema
}
