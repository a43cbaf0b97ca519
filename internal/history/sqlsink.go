package history

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// SQLSink appends events to a recorder_history table. It is shared by the
// sqlite and postgres sinks, which differ only in driver and dialect.
type SQLSink struct {
	db      *sql.DB
	dialect string // "sqlite" or "postgres"
}

// NewSQLSink wraps an open database and creates the schema if missing.
func NewSQLSink(ctx context.Context, db *sql.DB, dialect string) (*SQLSink, error) {
	if db == nil {
		return nil, errors.New("nil database for SQL history sink")
	}
	if dialect != "sqlite" && dialect != "postgres" {
		return nil, errors.New("unsupported SQL dialect: " + dialect)
	}
	s := &SQLSink{db: db, dialect: dialect}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLSink) ensureSchema(ctx context.Context) error {
	idType, tsType := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if s.dialect == "postgres" {
		idType, tsType = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recorder_history(
			id ` + idType + `,
			occurred_at ` + tsType + ` NOT NULL,
			event TEXT NOT NULL,
			name TEXT NOT NULL,
			handle_id TEXT NOT NULL,
			pid INTEGER NOT NULL,
			executable TEXT NOT NULL,
			args TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			error TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recorder_history_handle ON recorder_history(handle_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLSink) rebind(q string) string {
	if s.dialect != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLSink) Send(ctx context.Context, e Event) error {
	rec := e.Record
	var errText any
	if rec.Error != "" {
		errText = rec.Error
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO recorder_history(occurred_at, event, name, handle_id, pid, executable, args, exit_code, error)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);`),
		e.OccurredAt.UTC(), string(e.Type), rec.Name, rec.HandleID, rec.PID, rec.Executable, rec.Args(), rec.ExitCode, errText)
	return err
}

// Recent returns up to limit events, newest first.
func (s *SQLSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT occurred_at, event, name, handle_id, pid, executable, args, exit_code, error
		FROM recorder_history ORDER BY id DESC LIMIT ?;`), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Event
	for rows.Next() {
		var (
			e       Event
			evt     string
			args    string
			errText sql.NullString
		)
		if err := rows.Scan(&e.OccurredAt, &evt, &e.Record.Name, &e.Record.HandleID, &e.Record.PID,
			&e.Record.Executable, &args, &e.Record.ExitCode, &errText); err != nil {
			return nil, err
		}
		e.Type = EventType(evt)
		if args != "" {
			e.Record.Flags = strings.Fields(args)
		}
		e.Record.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
