package deadletter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petrijr/taskhub/pkg/api"
)

// sqlStore holds the queries shared by the SQLite and Postgres stores.
// The dialects differ only in schema types and placeholder syntax.
type sqlStore struct {
	db          *sql.DB
	placeholder func(n int) string
}

const deadLetterColumns = `id, kind, instance_id, task_id, name, attempts, error, payload, at_unix_nano`

func (s *sqlStore) args(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

func (s *sqlStore) Put(ctx context.Context, dl *api.DeadLetter) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (`+deadLetterColumns+`) VALUES (`+s.args(9)+`)`,
		dl.ID,
		string(dl.Kind),
		dl.InstanceID,
		dl.TaskID,
		dl.Name,
		dl.Attempts,
		dl.Error,
		dl.Payload,
		dl.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert dead letter %s: %w", dl.ID, err)
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (*api.DeadLetter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deadLetterColumns+` FROM dead_letters WHERE id = `+s.placeholder(1),
		id,
	)
	dl, err := scanDeadLetter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return dl, nil
}

func (s *sqlStore) List(ctx context.Context, filter Filter) ([]*api.DeadLetter, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters`
	var args []any
	var clauses []string

	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		clauses = append(clauses, "kind = "+s.placeholder(len(args)))
	}
	if filter.InstanceID != "" {
		args = append(args, filter.InstanceID)
		clauses = append(clauses, "instance_id = "+s.placeholder(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY at_unix_nano, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*api.DeadLetter
	for rows.Next() {
		dl, err := scanDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = `+s.placeholder(1), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeadLetter(row rowScanner) (*api.DeadLetter, error) {
	var dl api.DeadLetter
	var kind string
	var errStr sql.NullString
	var at int64

	if err := row.Scan(&dl.ID, &kind, &dl.InstanceID, &dl.TaskID, &dl.Name, &dl.Attempts, &errStr, &dl.Payload, &at); err != nil {
		return nil, err
	}
	dl.Kind = api.WorkItemKind(kind)
	dl.Error = errStr.String
	dl.At = time.Unix(0, at)
	return &dl, nil
}
