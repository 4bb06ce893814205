package store

// migration holds a single schema step and the user_version it brings the
// database to.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Versions must be
// sequential starting from 1. The table layout of version 1 matches the
// emails.db files written by earlier releases, so those open unchanged.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS emails (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	subject TEXT NOT NULL
);
`,
	},
	{
		// Older files were deduplicated by a select-then-insert and may hold
		// repeated subjects. Keep the first occurrence before adding the index.
		version: 2,
		sql: `
DELETE FROM emails
WHERE id NOT IN (SELECT MIN(id) FROM emails GROUP BY subject);

CREATE UNIQUE INDEX IF NOT EXISTS idx_emails_subject ON emails(subject);
`,
	},
}
