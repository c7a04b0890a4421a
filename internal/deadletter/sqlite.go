package deadletter

import (
	"database/sql"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver, for example
// "modernc.org/sqlite". The caller is responsible for importing it:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	sqlStore
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates the dead_letters table if needed and returns a
// store using db. db is limited to a single open connection so that
// ":memory:" databases are shared by every query.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{sqlStore{db: db, placeholder: func(int) string { return "?" }}}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS dead_letters (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			instance_id TEXT NOT NULL,
			task_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			error TEXT,
			payload BLOB,
			at_unix_nano INTEGER NOT NULL
		);`,
	)
	return err
}
