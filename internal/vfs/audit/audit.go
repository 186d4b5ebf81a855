// Package audit records one AccountLog entry per RPC call.
package audit

import (
	"context"
	"slices"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
	"github.com/Laisky/laisky-vfs/library/log"
)

// Sink persists audit entries.
type Sink interface {
	Record(ctx context.Context, entry *model.AccountLog) error
	Close() error
}

// Recorder writes entries to a sink and never fails the caller. Entries are
// written outside any mutation transaction.
type Recorder struct {
	sink   Sink
	logger logSDK.Logger
	clock  vfs.Clock
}

// NewRecorder returns a recorder over sink.
func NewRecorder(sink Sink, logger logSDK.Logger, clock vfs.Clock) (*Recorder, error) {
	if sink == nil {
		return nil, errors.New("audit sink is required")
	}
	if logger == nil {
		logger = log.Logger.Named("audit")
	}
	if clock == nil {
		clock = vfs.DefaultClock
	}

	return &Recorder{sink: sink, logger: logger, clock: clock}, nil
}

// Record stores one entry. Failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, rpc, address, username string, callErr error) {
	entry := &model.AccountLog{
		ID:        primitive.NewObjectID(),
		Type:      rpc,
		Timestamp: r.clock(),
		Address:   address,
		Username:  username,
		Success:   callErr == nil,
	}
	if callErr != nil {
		entry.Detail = string(vfs.CodeOf(callErr)) + ": " + vfs.PublicMessage(callErr)
	}

	if err := r.sink.Record(ctx, entry); err != nil {
		r.logger.Warn("write account log",
			zap.Error(err),
			zap.String("rpc", rpc),
			zap.String("username", username))
	}
}

// Close closes the sink.
func (r *Recorder) Close() error {
	return r.sink.Close()
}

// StoreSink keeps entries in the document store.
type StoreSink struct {
	db *docdb.DB
}

var _ Sink = (*StoreSink)(nil)

// NewStoreSink returns a sink writing to db. Closing the sink leaves db open.
func NewStoreSink(db *docdb.DB) (*StoreSink, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	return &StoreSink{db: db}, nil
}

// Record writes entry in its own transaction.
func (s *StoreSink) Record(_ context.Context, entry *model.AccountLog) error {
	return s.db.Update(func(session docdb.Session) error {
		return docdb.PutDoc(session, docdb.Key(model.CollectionAccountLogs, entry.ID.Hex()), entry)
	})
}

// List returns up to limit most recent entries, newest first. A username
// filters by account.
func (s *StoreSink) List(_ context.Context, username string, limit int) ([]*model.AccountLog, error) {
	var entries []*model.AccountLog
	err := s.db.View(func(session docdb.Session) error {
		var err error
		entries, err = docdb.FindDocs(session, docdb.Prefix(model.CollectionAccountLogs), func(e *model.AccountLog) bool {
			return username == "" || e.Username == username
		})
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list account logs")
	}

	// ids are time ordered
	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Close is a no-op, the database belongs to the caller.
func (s *StoreSink) Close() error {
	return nil
}
