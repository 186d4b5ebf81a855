// Package account stores accounts and activation codes.
package account

import (
	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
	"github.com/Laisky/laisky-vfs/library/log"
)

// Manager performs account and activation code operations on a caller
// supplied session. It never opens transactions itself.
type Manager struct {
	clock  vfs.Clock
	logger logSDK.Logger
}

// NewManager returns an account manager.
func NewManager(logger logSDK.Logger, clock vfs.Clock) *Manager {
	if logger == nil {
		logger = log.Logger.Named("account")
	}
	if clock == nil {
		clock = vfs.DefaultClock
	}

	return &Manager{clock: clock, logger: logger}
}

func accountKey(id primitive.ObjectID) []byte {
	return docdb.Key(model.CollectionAccounts, id.Hex())
}

func activationCodeKey(code string) []byte {
	return docdb.Key(model.CollectionActivationCodes, code)
}

// CreateAccount inserts a new activated account.
func (m *Manager) CreateAccount(s docdb.Session, username, passwordHash string, role model.Role) (*model.Account, error) {
	if !model.ValidUsername(username) {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "invalid username")
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, vfs.Errorf(vfs.CodeInvalidArgument, "invalid role %q", role)
	}

	exists, err := m.ExistsUsername(s, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, vfs.NewError(vfs.CodeAlreadyExists, "username already exists")
	}

	now := m.clock()
	acc := &model.Account{
		ID:           primitive.NewObjectID(),
		Username:     username,
		PasswordHash: passwordHash,
		Status:       model.AccountStatusActivated,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = docdb.PutDoc(s, accountKey(acc.ID), acc); err != nil {
		return nil, errors.Wrap(err, "insert account")
	}

	m.logger.Debug("create account", zap.String("username", username), zap.String("role", string(role)))
	return acc, nil
}

// ExistsUsername reports whether a live account uses username.
func (m *Manager) ExistsUsername(s docdb.Session, username string) (bool, error) {
	_, err := m.QueryAccount(s, username)
	switch {
	case err == nil:
		return true, nil
	case vfs.IsCode(err, vfs.CodeNotFound):
		return false, nil
	default:
		return false, err
	}
}

// QueryAccount returns the live account named username.
func (m *Manager) QueryAccount(s docdb.Session, username string) (*model.Account, error) {
	acc, err := docdb.FindOne(s, docdb.Prefix(model.CollectionAccounts), func(a *model.Account) bool {
		return a.IsActive() && a.Username == username
	})
	if err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, vfs.NewError(vfs.CodeNotFound, "account not found")
		}
		return nil, errors.Wrap(err, "query account")
	}
	return acc, nil
}

// GetAccount returns the live account with id.
func (m *Manager) GetAccount(s docdb.Session, id primitive.ObjectID) (*model.Account, error) {
	acc := new(model.Account)
	if err := docdb.GetDoc(s, accountKey(id), acc); err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, vfs.NewError(vfs.CodeNotFound, "account not found")
		}
		return nil, errors.Wrap(err, "get account")
	}
	if !acc.IsActive() {
		return nil, vfs.NewError(vfs.CodeNotFound, "account not found")
	}
	return acc, nil
}

// ChangeUsername renames the account. A non-empty newPasswordHash replaces
// the stored hash in the same write.
func (m *Manager) ChangeUsername(s docdb.Session, username, newUsername, newPasswordHash string) (*model.Account, error) {
	if !model.ValidUsername(newUsername) {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "invalid new username")
	}

	acc, err := m.QueryAccount(s, username)
	if err != nil {
		return nil, err
	}
	if username == newUsername {
		return acc, nil
	}

	exists, err := m.ExistsUsername(s, newUsername)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, vfs.NewError(vfs.CodeAlreadyExists, "username already exists")
	}

	acc.Username = newUsername
	if newPasswordHash != "" {
		acc.PasswordHash = newPasswordHash
	}
	acc.UpdatedAt = m.clock()
	if err = docdb.PutDoc(s, accountKey(acc.ID), acc); err != nil {
		return nil, errors.Wrap(err, "update account")
	}
	return acc, nil
}

// ChangePassword replaces the stored hash.
func (m *Manager) ChangePassword(s docdb.Session, username, newPasswordHash string) error {
	acc, err := m.QueryAccount(s, username)
	if err != nil {
		return err
	}

	acc.PasswordHash = newPasswordHash
	acc.UpdatedAt = m.clock()
	if err = docdb.PutDoc(s, accountKey(acc.ID), acc); err != nil {
		return errors.Wrap(err, "update account")
	}
	return nil
}

// DeleteAccount marks the account deleted and returns it.
func (m *Manager) DeleteAccount(s docdb.Session, username string) (*model.Account, error) {
	acc, err := m.QueryAccount(s, username)
	if err != nil {
		return nil, err
	}

	acc.Status = model.AccountStatusDeleted
	acc.UpdatedAt = m.clock()
	if err = docdb.PutDoc(s, accountKey(acc.ID), acc); err != nil {
		return nil, errors.Wrap(err, "update account")
	}
	return acc, nil
}

// CreateActivationCodes stores n fresh codes and returns them.
func (m *Manager) CreateActivationCodes(s docdb.Session, n int) ([]string, error) {
	if n <= 0 {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "count must be positive")
	}

	now := m.clock()
	codes := make([]string, 0, n)
	for range n {
		code := &model.ActivationCode{Code: uuid.NewString(), CreatedAt: now}
		if err := docdb.PutDoc(s, activationCodeKey(code.Code), code); err != nil {
			return nil, errors.Wrap(err, "insert activation code")
		}
		codes = append(codes, code.Code)
	}

	return codes, nil
}

// ExistsActivationCode reports whether code is unused.
func (m *Manager) ExistsActivationCode(s docdb.Session, code string) (bool, error) {
	if code == "" {
		return false, nil
	}

	_, err := s.Get(activationCodeKey(code))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, docdb.ErrNotFound):
		return false, nil
	default:
		return false, errors.Wrap(err, "get activation code")
	}
}

// ConsumeActivationCode removes code so it cannot be used again.
func (m *Manager) ConsumeActivationCode(s docdb.Session, code string) error {
	exists, err := m.ExistsActivationCode(s, code)
	if err != nil {
		return err
	}
	if !exists {
		return vfs.NewError(vfs.CodeNotFound, "activation code not found")
	}

	if err = s.Delete(activationCodeKey(code)); err != nil {
		return errors.Wrap(err, "delete activation code")
	}
	return nil
}
