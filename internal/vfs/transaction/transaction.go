// Package transaction runs storage transactions on a dedicated,
// OS-thread-locked worker goroutine.
//
// The storage transaction handle must be created, used and finished on one
// thread. A Scope owns such a worker: every Session call made through the
// scope is shipped to the worker and the caller blocks until it completes.
//
// A Controller admits one open scope at a time, so read-write transactions
// serialize and the later writer always sees the earlier one's commit.
package transaction

import (
	"context"
	"runtime"
	"sync"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/dgraph-io/badger/v4"

	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
	"github.com/Laisky/laisky-vfs/library/log"
)

// ErrScopeFinished is returned when a scope is used after commit or rollback.
var ErrScopeFinished = errors.New("transaction scope already finished")

// ErrConflict is returned by Commit when the store reports a conflicting
// writer outside the controller.
var ErrConflict = errors.New("transaction conflict")

// Controller opens transaction scopes.
type Controller struct {
	db     *badger.DB
	logger logSDK.Logger
	// writer holds a token while a scope is open.
	writer chan struct{}
}

// NewController returns a controller over db.
func NewController(db *docdb.DB, logger logSDK.Logger) (*Controller, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		logger = log.Logger.Named("transaction")
	}

	return &Controller{
		db:     db.Raw(),
		logger: logger,
		writer: make(chan struct{}, 1),
	}, nil
}

type requestKind int

const (
	requestExec requestKind = iota
	requestCommit
	requestRollback
)

type request struct {
	kind  requestKind
	fn    func(docdb.Session) error
	reply chan error
}

// Scope is one open read-write transaction. It implements docdb.Session.
//
// A scope is meant for a single caller goroutine:
//
//	scope, err := ctl.BeginTrans(ctx)
//	if err != nil { ... }
//	defer scope.Release()
//	...
//	return scope.Commit()
type Scope struct {
	mu       sync.Mutex
	requests chan request
	finished bool
	logger   logSDK.Logger
}

var _ docdb.Session = (*Scope)(nil)

// BeginTrans waits until no other scope is open, then starts a worker and
// opens a transaction on it. The wait ends early when ctx is done.
//
// The scope holds the controller until Commit or Rollback, so a caller must
// not open a second scope while its first one is still open.
func (c *Controller) BeginTrans(ctx context.Context) (*Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	select {
	case c.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "wait for writer")
	}

	s := &Scope{
		requests: make(chan request),
		logger:   c.logger,
	}
	started := make(chan struct{})
	go s.run(c.db, started, func() { <-c.writer })
	<-started

	return s, nil
}

func (s *Scope) run(db *badger.DB, started chan<- struct{}, release func()) {
	defer release()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	txn := db.NewTransaction(true)
	defer txn.Discard()
	session := docdb.NewTxnSession(txn)
	close(started)

	for req := range s.requests {
		switch req.kind {
		case requestExec:
			req.reply <- capture(func() error { return req.fn(session) })
		case requestCommit:
			req.reply <- capture(txn.Commit)
			return
		case requestRollback:
			txn.Discard()
			req.reply <- nil
			return
		}
	}
}

// capture runs fn and turns a panic into an error so it can be re-raised on
// the caller's goroutine.
func capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("transaction worker panic: %v", r)
		}
	}()
	return fn()
}

// exec runs fn on the worker and waits for it.
func (s *Scope) exec(kind requestKind, fn func(docdb.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return ErrScopeFinished
	}
	if kind != requestExec {
		s.finished = true
	}

	reply := make(chan error, 1)
	s.requests <- request{kind: kind, fn: fn, reply: reply}
	return <-reply
}

// Commit makes the transaction's writes durable and stops the worker.
func (s *Scope) Commit() error {
	err := s.exec(requestCommit, nil)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict):
		return errors.Wrap(ErrConflict, "commit")
	default:
		return errors.Wrap(err, "commit")
	}
}

// Rollback discards the transaction's writes and stops the worker.
func (s *Scope) Rollback() error {
	if err := s.exec(requestRollback, nil); err != nil {
		return errors.Wrap(err, "rollback")
	}
	return nil
}

// Release rolls back unless the scope already finished. Meant for defer.
func (s *Scope) Release() {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished {
		return
	}

	if err := s.Rollback(); err != nil && !errors.Is(err, ErrScopeFinished) {
		s.logger.Warn("rollback transaction", zap.Error(err))
	}
}

// Get implements docdb.Session.
func (s *Scope) Get(key []byte) (val []byte, err error) {
	err = s.exec(requestExec, func(session docdb.Session) error {
		var getErr error
		val, getErr = session.Get(key)
		return getErr
	})
	return val, err
}

// Set implements docdb.Session.
func (s *Scope) Set(key, value []byte) error {
	return s.exec(requestExec, func(session docdb.Session) error {
		return session.Set(key, value)
	})
}

// Delete implements docdb.Session.
func (s *Scope) Delete(key []byte) error {
	return s.exec(requestExec, func(session docdb.Session) error {
		return session.Delete(key)
	})
}

// Iterate implements docdb.Session. fn runs on the worker while the caller
// is blocked, so it must not call back into the scope.
func (s *Scope) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return s.exec(requestExec, func(session docdb.Session) error {
		return session.Iterate(prefix, fn)
	})
}

// Do runs fn on the worker with direct access to the transaction session.
func (s *Scope) Do(fn func(docdb.Session) error) error {
	return s.exec(requestExec, fn)
}
