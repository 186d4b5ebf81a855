// Package badger is a small document layer over an embedded badger database.
//
// Documents are BSON encoded and addressed by slash separated keys whose
// first segment is the collection name.
package badger

import (
	"context"
	"fmt"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/Laisky/laisky-vfs/library/log"
)

// Options configures Open.
type Options struct {
	// Path is the data directory, ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     logSDK.Logger
}

// DB wraps an opened badger database.
type DB struct {
	db     *badger.DB
	logger logSDK.Logger
}

// Open opens or creates the database.
func Open(ctx context.Context, opt Options) (*DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if opt.Logger == nil {
		opt.Logger = log.Logger.Named("badger")
	}

	var opts badger.Options
	if opt.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opt.Path == "" {
			return nil, errors.New("badger path is required")
		}
		opts = badger.DefaultOptions(opt.Path).WithSyncWrites(opt.SyncWrites)
	}
	opts = opts.
		WithLogger(&zapLogger{logger: opt.Logger}).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %q", opt.Path)
	}

	return &DB{db: db, logger: opt.Logger}, nil
}

// Raw returns the underlying database.
func (d *DB) Raw() *badger.DB {
	return d.db
}

// Close flushes and closes the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return errors.Wrap(err, "close badger")
	}
	return nil
}

// View runs fn inside one read-only snapshot.
func (d *DB) View(fn func(Session) error) error {
	return d.db.View(func(txn *badger.Txn) error {
		return fn(NewTxnSession(txn))
	})
}

// Update runs fn inside one read-write transaction and commits it.
func (d *DB) Update(fn func(Session) error) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return fn(NewTxnSession(txn))
	})
}

// zapLogger routes badger's internal logging to zap.
type zapLogger struct {
	logger logSDK.Logger
}

func (l *zapLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *zapLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *zapLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *zapLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
