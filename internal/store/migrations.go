package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
	key        TEXT PRIMARY KEY,
	tenant     TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	is_default INTEGER NOT NULL DEFAULT 0 CHECK(is_default IN (0, 1)),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_categories_tenant ON categories(tenant);

CREATE TABLE IF NOT EXISTS contacts (
	tenant TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	kind   TEXT NOT NULL CHECK(kind IN ('customer', 'company', 'manager')),
	id     TEXT NOT NULL,
	name   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (tenant, kind, id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	tenant          TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	title           TEXT NOT NULL,
	content         TEXT NOT NULL DEFAULT '',
	category        TEXT REFERENCES categories(key),
	contract_number TEXT NOT NULL DEFAULT '',
	schedule        INTEGER NOT NULL,
	completed       INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	customer_id     TEXT,
	company_id      TEXT,
	manager_id      TEXT,
	entity_type     TEXT NOT NULL DEFAULT '',
	entity_id       TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_tenant ON tasks(tenant);
CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(tenant, category);
CREATE INDEX IF NOT EXISTS idx_tasks_manager ON tasks(tenant, manager_id);
CREATE INDEX IF NOT EXISTS idx_tasks_customer ON tasks(tenant, customer_id);
CREATE INDEX IF NOT EXISTS idx_tasks_schedule ON tasks(tenant, completed, schedule);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_tasks_contract ON tasks(tenant, contract_number);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
