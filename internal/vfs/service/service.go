// Package service is the RPC façade of the virtual file system.
//
// Every call authenticates and authorizes first, validates its input, runs
// its mutations in one transaction scope and finally writes one audit entry.
package service

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/account"
	"github.com/Laisky/laisky-vfs/internal/vfs/audit"
	"github.com/Laisky/laisky-vfs/internal/vfs/authz"
	"github.com/Laisky/laisky-vfs/internal/vfs/credential"
	"github.com/Laisky/laisky-vfs/internal/vfs/filesystem"
	"github.com/Laisky/laisky-vfs/internal/vfs/transaction"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
	"github.com/Laisky/laisky-vfs/library/log"
)

// Caller describes who is calling, as seen by the transport.
type Caller struct {
	Token   string
	Address string
}

type callerCtxKey struct{}

// WithCaller attaches caller to ctx.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, caller)
}

// CallerFromContext returns the caller attached to ctx, if any.
func CallerFromContext(ctx context.Context) Caller {
	caller, _ := ctx.Value(callerCtxKey{}).(Caller)
	return caller
}

// Options wires a Services.
type Options struct {
	DB       *docdb.DB
	Issuer   *credential.Issuer
	Recorder *audit.Recorder
	Settings vfs.Settings
	Logger   logSDK.Logger
	Clock    vfs.Clock
}

// Services groups the three RPC services.
type Services struct {
	Account    *AccountService
	Computer   *ComputerService
	Filesystem *FilesystemService
}

type core struct {
	db       *docdb.DB
	tx       *transaction.Controller
	accounts *account.Manager
	fs       *filesystem.Manager
	gate     *authz.Gate
	issuer   *credential.Issuer
	recorder *audit.Recorder
	settings vfs.Settings
	logger   logSDK.Logger
}

// New builds the services.
func New(opt Options) (*Services, error) {
	if opt.DB == nil {
		return nil, errors.New("database is required")
	}
	if opt.Issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	if opt.Recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	if opt.Logger == nil {
		opt.Logger = log.Logger.Named("vfs")
	}
	if opt.Clock == nil {
		opt.Clock = vfs.DefaultClock
	}
	opt.Settings = opt.Settings.Normalize()

	tx, err := transaction.NewController(opt.DB, opt.Logger.Named("transaction"))
	if err != nil {
		return nil, errors.Wrap(err, "new transaction controller")
	}

	c := &core{
		db:       opt.DB,
		tx:       tx,
		accounts: account.NewManager(opt.Logger.Named("account"), opt.Clock),
		fs:       filesystem.NewManager(opt.Logger.Named("filesystem"), opt.Clock),
		issuer:   opt.Issuer,
		recorder: opt.Recorder,
		settings: opt.Settings,
		logger:   opt.Logger,
	}
	if c.gate, err = authz.NewGate(opt.Issuer, c.accounts, c.fs); err != nil {
		return nil, errors.Wrap(err, "new gate")
	}

	return &Services{
		Account:    &AccountService{core: c},
		Computer:   &ComputerService{core: c},
		Filesystem: &FilesystemService{core: c},
	}, nil
}

// update runs fn in a transaction scope and commits when fn succeeds.
func (c *core) update(ctx context.Context, fn func(tx docdb.Session) error) error {
	scope, err := c.tx.BeginTrans(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer scope.Release()

	if err = fn(scope); err != nil {
		return err
	}
	if err = scope.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// view runs fn in one read-only snapshot.
func (c *core) view(fn func(s docdb.Session) error) error {
	return c.db.View(fn)
}

// finish logs unexpected failures and writes the audit entry for rpc.
func (c *core) finish(ctx context.Context, rpc string, caller Caller, username string, err error) {
	if err != nil && vfs.CodeOf(err) == vfs.CodeInternal {
		c.logger.Error("rpc failed",
			zap.String("rpc", rpc),
			zap.String("username", username),
			zap.Error(err))
	}
	c.recorder.Record(ctx, rpc, caller.Address, username, err)
}

func (c *core) validatePassword(password string) error {
	if password == "" {
		return vfs.NewError(vfs.CodeInvalidArgument, "password is required")
	}
	if len(password) > c.settings.MaxPasswordLength {
		return vfs.Errorf(vfs.CodeInvalidArgument, "password must be at most %d bytes", c.settings.MaxPasswordLength)
	}
	return nil
}

func (c *core) validateContent(data []byte) error {
	if int64(len(data)) > c.settings.MaxDataFileBytes {
		return vfs.Errorf(vfs.CodeInvalidArgument, "content must be at most %d bytes", c.settings.MaxDataFileBytes)
	}
	return nil
}
