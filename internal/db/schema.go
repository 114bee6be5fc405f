package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_types (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by  INTEGER REFERENCES users(id),
    updated_at  DATETIME,
    updated_by  INTEGER REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS locations (
    id             INTEGER PRIMARY KEY,
    name           TEXT NOT NULL,
    kind           TEXT NOT NULL CHECK (kind IN ('room', 'area')),
    status         TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'deleted')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by     INTEGER REFERENCES users(id),
    updated_at     DATETIME,
    updated_by     INTEGER REFERENCES users(id),
    deleted_at     DATETIME,
    deleted_by     INTEGER REFERENCES users(id),
    deleted_reason TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_name_active
    ON locations(kind, name) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS items (
    id             INTEGER PRIMARY KEY,
    type_id        INTEGER NOT NULL REFERENCES item_types(id),
    name           TEXT NOT NULL,
    brand          TEXT NOT NULL,
    serial_no      TEXT NOT NULL UNIQUE,
    barcode        TEXT NOT NULL UNIQUE,
    details        TEXT,
    photo          BLOB,
    status         TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'assigned', 'defective', 'deleted')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by     INTEGER REFERENCES users(id),
    updated_at     DATETIME,
    updated_by     INTEGER REFERENCES users(id),
    deleted_at     DATETIME,
    deleted_by     INTEGER REFERENCES users(id),
    deleted_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_items_type ON items(type_id);

CREATE TABLE IF NOT EXISTS assignments (
    id             INTEGER PRIMARY KEY,
    date           DATETIME NOT NULL,
    item_id        INTEGER NOT NULL REFERENCES items(id),
    location_id    INTEGER NOT NULL REFERENCES locations(id),
    assigned_by    INTEGER NOT NULL REFERENCES users(id),
    remarks        TEXT,
    signature      TEXT,
    status         TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'deleted', 'transferred', 'surrendered')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by     INTEGER REFERENCES users(id),
    updated_at     DATETIME,
    updated_by     INTEGER REFERENCES users(id),
    deleted_at     DATETIME,
    deleted_by     INTEGER REFERENCES users(id),
    deleted_reason TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_item_active
    ON assignments(item_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS issuances (
    id             INTEGER PRIMARY KEY,
    date           DATETIME NOT NULL,
    item_id        INTEGER NOT NULL REFERENCES items(id),
    location_id    INTEGER NOT NULL REFERENCES locations(id),
    assigned_by    INTEGER NOT NULL REFERENCES users(id),
    remarks        TEXT,
    signature      TEXT,
    status         TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'deleted', 'transferred', 'surrendered')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by     INTEGER REFERENCES users(id),
    updated_at     DATETIME,
    updated_by     INTEGER REFERENCES users(id),
    deleted_at     DATETIME,
    deleted_by     INTEGER REFERENCES users(id),
    deleted_reason TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_issuances_item_active
    ON issuances(item_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS repairs (
    id             INTEGER PRIMARY KEY,
    date           DATETIME NOT NULL,
    item_id        INTEGER NOT NULL REFERENCES items(id),
    problem        TEXT NOT NULL,
    reported_by    INTEGER NOT NULL REFERENCES users(id),
    diagnosis      TEXT,
    checked_by     INTEGER REFERENCES users(id),
    defect_reason  TEXT,
    status         TEXT NOT NULL DEFAULT 'ongoing' CHECK (status IN ('ongoing', 'completed', 'defective', 'deleted')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by     INTEGER REFERENCES users(id),
    updated_at     DATETIME,
    updated_by     INTEGER REFERENCES users(id),
    deleted_at     DATETIME,
    deleted_by     INTEGER REFERENCES users(id),
    deleted_reason TEXT
);

CREATE INDEX IF NOT EXISTS idx_repairs_item ON repairs(item_id, status);

CREATE TABLE IF NOT EXISTS trails (
    id          INTEGER PRIMARY KEY,
    actor_id    INTEGER NOT NULL,
    action      TEXT NOT NULL,
    entity      TEXT NOT NULL,
    entity_kind TEXT NOT NULL CHECK (entity_kind IN ('id', 'label')),
    entity_ref  TEXT NOT NULL,
    details     TEXT,
    origin      TEXT,
    created_at  DATETIME NOT NULL,
    viewed_at   DATETIME,
    viewed_by   INTEGER
);

CREATE INDEX IF NOT EXISTS idx_trails_unviewed ON trails(viewed_at) WHERE viewed_at IS NULL;
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
