package deadletter

import (
	"database/sql"
	"strconv"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// It expects an *sql.DB opened with a PostgreSQL driver such as
// "github.com/jackc/pgx/v5/stdlib".
type PostgresStore struct {
	sqlStore
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates the dead_letters table if needed and returns a
// store using db.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{sqlStore{db: db, placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS dead_letters (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			instance_id TEXT NOT NULL,
			task_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			error TEXT,
			payload BYTEA,
			at_unix_nano BIGINT NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS dead_letters_instance_idx ON dead_letters (instance_id)`)
	return err
}
