package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// IMPORTANT: groups and transactions tables must be created before their
// dependent tables due to foreign key constraints.
const schema = `
CREATE TABLE IF NOT EXISTS people (
    sub TEXT PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS person_groups (
    sub TEXT NOT NULL,
    group_id TEXT NOT NULL,
    PRIMARY KEY (sub, group_id),
    FOREIGN KEY (sub) REFERENCES people(sub) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS person_invites (
    sub TEXT NOT NULL,
    group_id TEXT NOT NULL,
    PRIMARY KEY (sub, group_id),
    FOREIGN KEY (sub) REFERENCES people(sub) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    admin TEXT NOT NULL,
    only_admin_invite INTEGER NOT NULL DEFAULT 1,
    only_owner_modify INTEGER NOT NULL DEFAULT 1,
    admin_overrule_modify INTEGER NOT NULL DEFAULT 1,
    user_delete INTEGER NOT NULL DEFAULT 1,
    only_owner_delete INTEGER NOT NULL DEFAULT 1,
    admin_overrule_delete INTEGER NOT NULL DEFAULT 1,
    only_admin_remove INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    sub TEXT NOT NULL,
    PRIMARY KEY (group_id, sub),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_invites (
    group_id TEXT NOT NULL,
    email TEXT NOT NULL,
    PRIMARY KEY (group_id, email),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_ledger (
    group_id TEXT NOT NULL,
    sub TEXT NOT NULL,
    amount REAL NOT NULL,
    PRIMARY KEY (group_id, sub),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_balances (
    group_id TEXT NOT NULL,
    owed_to TEXT NOT NULL,
    owed_by TEXT NOT NULL,
    amount REAL NOT NULL,
    PRIMARY KEY (group_id, owed_to, owed_by),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_transactions (
    group_id TEXT NOT NULL,
    transaction_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (group_id, transaction_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    vendor TEXT NOT NULL DEFAULT '',
    total_price REAL NOT NULL DEFAULT 0,
    created_by TEXT NOT NULL,
    modified_by TEXT NOT NULL,
    date_purchased INTEGER NOT NULL,
    date_created INTEGER NOT NULL,
    date_modified INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transaction_payers (
    transaction_id TEXT NOT NULL,
    sub TEXT NOT NULL,
    amount REAL NOT NULL,
    PRIMARY KEY (transaction_id, sub),
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transaction_items (
    transaction_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    item_id TEXT NOT NULL,
    owed_by TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    item_cost REAL NOT NULL,
    PRIMARY KEY (transaction_id, position),
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transaction_ledger_deltas (
    transaction_id TEXT NOT NULL,
    sub TEXT NOT NULL,
    amount REAL NOT NULL,
    PRIMARY KEY (transaction_id, sub),
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transaction_balance_deltas (
    transaction_id TEXT NOT NULL,
    owed_to TEXT NOT NULL,
    owed_by TEXT NOT NULL,
    amount REAL NOT NULL,
    PRIMARY KEY (transaction_id, owed_to, owed_by),
    FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    unit_price REAL NOT NULL,
    usage_count INTEGER NOT NULL DEFAULT 0,
    UNIQUE (name, description, unit_price)
);

CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_group_ledger_group_id ON group_ledger(group_id);
CREATE INDEX IF NOT EXISTS idx_group_balances_group_id ON group_balances(group_id);
CREATE INDEX IF NOT EXISTS idx_group_transactions_group_id ON group_transactions(group_id);
CREATE INDEX IF NOT EXISTS idx_transactions_group_id ON transactions(group_id);
CREATE INDEX IF NOT EXISTS idx_transaction_items_tx_id ON transaction_items(transaction_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
