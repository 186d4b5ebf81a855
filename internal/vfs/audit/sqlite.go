package audit

import (
	"context"
	"database/sql"
	"regexp"

	errors "github.com/Laisky/errors/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Laisky/laisky-vfs/internal/vfs/model"
)

var regexpTableName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)

type sqliteOption struct {
	tableName string
	ownsDB    bool
}

// SQLiteOption configures a SQLiteSink.
type SQLiteOption func(*sqliteOption) error

// WithTableName sets the table holding account logs.
func WithTableName(name string) SQLiteOption {
	return func(o *sqliteOption) error {
		if !regexpTableName.MatchString(name) {
			return errors.Errorf("invalid table name: %s", name)
		}
		o.tableName = name
		return nil
	}
}

// SQLiteSink keeps entries in a SQLite table.
type SQLiteSink struct {
	opt *sqliteOption
	db  *sql.DB
}

var _ Sink = (*SQLiteSink)(nil)

// OpenSQLiteSink opens the SQLite file at path and prepares the table.
func OpenSQLiteSink(path string, opts ...SQLiteOption) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %q", path)
	}

	sink, err := NewSQLiteSink(db, append(opts, func(o *sqliteOption) error {
		o.ownsDB = true
		return nil
	})...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return sink, nil
}

// NewSQLiteSink wraps db and prepares the table.
func NewSQLiteSink(db *sql.DB, opts ...SQLiteOption) (*SQLiteSink, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	opt := &sqliteOption{tableName: "account_logs"}
	for _, f := range opts {
		if err := f(opt); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	sink := &SQLiteSink{opt: opt, db: db}
	if err := sink.setup(); err != nil {
		return nil, errors.Wrap(err, "setup account log table")
	}
	return sink, nil
}

func (s *SQLiteSink) setup() error {
	stmt := `
CREATE TABLE IF NOT EXISTS ` + s.opt.tableName + ` (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  timestamp TIMESTAMP NOT NULL,
  address TEXT NOT NULL,
  username TEXT NOT NULL,
  success BOOLEAN NOT NULL,
  detail TEXT NOT NULL
)`

	if _, err := s.db.Exec(stmt); err != nil {
		return errors.Wrap(err, "create table")
	}
	return nil
}

// Record inserts entry.
func (s *SQLiteSink) Record(ctx context.Context, entry *model.AccountLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.opt.tableName+` (id, type, timestamp, address, username, success, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.Hex(), entry.Type, entry.Timestamp, entry.Address, entry.Username, entry.Success, entry.Detail)
	if err != nil {
		return errors.Wrap(err, "insert account log")
	}
	return nil
}

// Count returns the number of stored entries for username, or all entries
// when username is empty.
func (s *SQLiteSink) Count(ctx context.Context, username string) (int, error) {
	query := `SELECT COUNT(*) FROM ` + s.opt.tableName
	args := []any{}
	if username != "" {
		query += ` WHERE username = ?`
		args = append(args, username)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count account logs")
	}
	return n, nil
}

// Close closes the database if the sink opened it.
func (s *SQLiteSink) Close() error {
	if !s.opt.ownsDB {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close sqlite")
	}
	return nil
}
