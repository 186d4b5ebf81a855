// Package authz decides whether an authenticated caller may act.
package authz

import (
	"fmt"

	errors "github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/account"
	"github.com/Laisky/laisky-vfs/internal/vfs/credential"
	"github.com/Laisky/laisky-vfs/internal/vfs/filesystem"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// Action is a gated account operation.
type Action string

const (
	ActionGenerateActivationCode Action = "GenerateActivationCode"
	ActionDeleteAccount          Action = "DeleteAccount"
	ActionChangeUsername         Action = "ChangeUsername"
	ActionChangePassword         Action = "ChangePassword"
)

// IsAllowed is the pure permission rule. Unknown actions panic.
func IsAllowed(role model.Role, actor string, action Action, owner string) bool {
	switch action {
	case ActionGenerateActivationCode:
		return role == model.RoleAdmin
	case ActionDeleteAccount, ActionChangeUsername, ActionChangePassword:
		return role == model.RoleAdmin || actor == owner
	default:
		panic(fmt.Sprintf("unknown action %q", action))
	}
}

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	VerifyToken(token string) (*credential.Identity, error)
}

// Gate authenticates tokens and enforces permissions.
type Gate struct {
	tokens   TokenVerifier
	accounts *account.Manager
	fs       *filesystem.Manager
}

// NewGate returns a gate.
func NewGate(tokens TokenVerifier, accounts *account.Manager, fs *filesystem.Manager) (*Gate, error) {
	if tokens == nil || accounts == nil || fs == nil {
		return nil, errors.New("token verifier, account manager and filesystem manager are required")
	}
	return &Gate{tokens: tokens, accounts: accounts, fs: fs}, nil
}

type checkOption struct {
	stepUp   bool
	password string
}

// Option tunes EnsurePermission.
type Option func(*checkOption)

// WithPassword also requires password to match the caller's current one.
func WithPassword(password string) Option {
	return func(o *checkOption) {
		o.stepUp = true
		o.password = password
	}
}

// Authenticate verifies token only.
func (g *Gate) Authenticate(token string) (*credential.Identity, error) {
	return g.tokens.VerifyToken(token)
}

// EnsurePermission verifies token and checks the caller may perform action
// on the account named owner.
func (g *Gate) EnsurePermission(s docdb.Session, token string, action Action, owner string, opts ...Option) (*credential.Identity, error) {
	opt := new(checkOption)
	for _, f := range opts {
		f(opt)
	}

	identity, err := g.tokens.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	if opt.stepUp {
		caller, err := g.accounts.QueryAccount(s, identity.Username)
		if err != nil {
			if vfs.IsCode(err, vfs.CodeNotFound) {
				return nil, vfs.NewError(vfs.CodeUnauthenticated, "caller account no longer exists")
			}
			return nil, err
		}
		if caller.ID != identity.AccountID {
			return nil, vfs.NewError(vfs.CodeUnauthenticated, "caller account no longer exists")
		}
		if !credential.VerifyPassword(opt.password, caller.Username, caller.PasswordHash) {
			return nil, vfs.NewError(vfs.CodeUnauthenticated, "wrong password")
		}
	}

	if !IsAllowed(identity.Role, identity.Username, action, owner) {
		return nil, vfs.Errorf(vfs.CodePermissionDenied, "%s is not allowed", action)
	}
	return identity, nil
}

// EnsurePermissionForComputer verifies token and checks the caller owns
// the live computer.
func (g *Gate) EnsurePermissionForComputer(s docdb.Session, token string, computerID primitive.ObjectID) (*credential.Identity, *model.Computer, error) {
	identity, err := g.tokens.VerifyToken(token)
	if err != nil {
		return nil, nil, err
	}

	computer, err := g.fs.GetComputer(s, computerID)
	if err != nil {
		return nil, nil, err
	}
	if computer.Owner != identity.AccountID {
		return nil, nil, vfs.NewError(vfs.CodePermissionDenied, "computer belongs to another account")
	}
	return identity, computer, nil
}
