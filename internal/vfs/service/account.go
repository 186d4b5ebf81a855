package service

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/authz"
	"github.com/Laisky/laisky-vfs/internal/vfs/credential"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// AccountService implements the Account RPCs.
type AccountService struct {
	*core
}

var errBadLogin = vfs.NewError(vfs.CodeUnauthenticated, "invalid username or password")

// Login exchanges a username and password for a bearer token.
func (s *AccountService) Login(ctx context.Context, req *LoginRequest) (resp *LoginResponse, err error) {
	defer func() { s.finish(ctx, "Login", CallerFromContext(ctx), req.Username, err) }()

	if req.Username == "" || req.Password == "" {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "username and password are required")
	}

	var acc *model.Account
	err = s.view(func(tx docdb.Session) error {
		var err error
		acc, err = s.accounts.QueryAccount(tx, req.Username)
		return err
	})
	if err != nil {
		if vfs.IsCode(err, vfs.CodeNotFound) {
			return nil, errBadLogin
		}
		return nil, err
	}
	if !credential.VerifyPassword(req.Password, acc.Username, acc.PasswordHash) {
		return nil, errBadLogin
	}

	token, err := s.issuer.IssueToken(acc.ID, acc.Username, acc.Role)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}

	return &LoginResponse{
		StatusResponse: StatusResponse{Success: true, Message: "login succeeded"},
		Token:          token,
	}, nil
}

// Register consumes an activation code and creates a user account together
// with its computer.
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (resp *StatusResponse, err error) {
	defer func() { s.finish(ctx, "Register", CallerFromContext(ctx), req.Username, err) }()

	if !model.ValidUsername(req.Username) {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "invalid username")
	}
	if err = s.validatePassword(req.Password); err != nil {
		return nil, err
	}

	err = s.update(ctx, func(tx docdb.Session) error {
		ok, err := s.accounts.ExistsActivationCode(tx, req.ActivationCode)
		if err != nil {
			return err
		}
		if !ok {
			return vfs.NewError(vfs.CodeInvalidArgument, "Invalid activation code")
		}

		taken, err := s.accounts.ExistsUsername(tx, req.Username)
		if err != nil {
			return err
		}
		if taken {
			return vfs.NewError(vfs.CodeAlreadyExists, "username already exists")
		}

		if err = s.accounts.ConsumeActivationCode(tx, req.ActivationCode); err != nil {
			return err
		}
		return s.createAccount(tx, req.Username, req.Password, model.RoleUser)
	})
	if err != nil {
		return nil, err
	}

	return &StatusResponse{Success: true, Message: "account registered"}, nil
}

func (s *AccountService) createAccount(tx docdb.Session, username, password string, role model.Role) error {
	acc, err := s.accounts.CreateAccount(tx, username, credential.HashPassword(password, username), role)
	if err != nil {
		return err
	}
	if _, err = s.fs.CreateComputer(tx, username, acc.ID); err != nil {
		return errors.Wrap(err, "provision computer")
	}
	return nil
}

// GenerateActivationCode mints registration codes. Admin only.
func (s *AccountService) GenerateActivationCode(ctx context.Context, req *GenerateActivationCodeRequest) (resp *GenerateActivationCodeResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "GenerateActivationCode", caller, username, err) }()

	var identity *credential.Identity
	err = s.view(func(tx docdb.Session) error {
		var err error
		identity, err = s.gate.EnsurePermission(tx, caller.Token, authz.ActionGenerateActivationCode, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	username = identity.Username

	codes, err := s.createActivationCodes(ctx, req.Count)
	if err != nil {
		return nil, err
	}

	return &GenerateActivationCodeResponse{
		StatusResponse: StatusResponse{Success: true, Message: "activation codes generated"},
		Codes:          codes,
	}, nil
}

func (s *AccountService) createActivationCodes(ctx context.Context, count int) (codes []string, err error) {
	if count < 1 || count > s.settings.MaxActivationCodes {
		return nil, vfs.Errorf(vfs.CodeInvalidArgument, "count must be within [1, %d]", s.settings.MaxActivationCodes)
	}

	err = s.update(ctx, func(tx docdb.Session) error {
		var err error
		codes, err = s.accounts.CreateActivationCodes(tx, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// authorizeAccountChange resolves the target account and runs the step-up
// permission check for action.
func (s *AccountService) authorizeAccountChange(caller Caller, action authz.Action, target, password string) (*credential.Identity, string, error) {
	if target == "" {
		identity, err := s.gate.Authenticate(caller.Token)
		if err != nil {
			return nil, "", err
		}
		target = identity.Username
	}

	var identity *credential.Identity
	err := s.view(func(tx docdb.Session) error {
		var err error
		identity, err = s.gate.EnsurePermission(tx, caller.Token, action, target, authz.WithPassword(password))
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return identity, target, nil
}

// ChangePassword sets a new password for the target account.
func (s *AccountService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (resp *StatusResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "ChangePassword", caller, username, err) }()

	identity, target, err := s.authorizeAccountChange(caller, authz.ActionChangePassword, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	username = identity.Username

	if err = s.validatePassword(req.NewPassword); err != nil {
		return nil, err
	}

	err = s.update(ctx, func(tx docdb.Session) error {
		return s.accounts.ChangePassword(tx, target, credential.HashPassword(req.NewPassword, target))
	})
	if err != nil {
		return nil, err
	}

	return &StatusResponse{Success: true, Message: "password changed"}, nil
}

// ChangeUsername renames the target account. The stored hash is bound to
// the username, so it is rebuilt when callers rename themselves. An admin
// renaming someone else leaves that account needing a new password.
func (s *AccountService) ChangeUsername(ctx context.Context, req *ChangeUsernameRequest) (resp *StatusResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "ChangeUsername", caller, username, err) }()

	identity, target, err := s.authorizeAccountChange(caller, authz.ActionChangeUsername, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	username = identity.Username

	if !model.ValidUsername(req.NewUsername) {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "invalid new username")
	}

	var newHash string
	if target == identity.Username {
		newHash = credential.HashPassword(req.Password, req.NewUsername)
	}

	err = s.update(ctx, func(tx docdb.Session) error {
		_, err := s.accounts.ChangeUsername(tx, target, req.NewUsername, newHash)
		return err
	})
	if err != nil {
		return nil, err
	}

	if newHash == "" && target != req.NewUsername {
		s.logger.Info("account renamed by admin, password must be reset",
			zap.String("admin", identity.Username),
			zap.String("username", req.NewUsername))
	}
	return &StatusResponse{Success: true, Message: "username changed"}, nil
}

// DeleteAccount soft-deletes the target account and its computer.
func (s *AccountService) DeleteAccount(ctx context.Context, req *DeleteAccountRequest) (resp *StatusResponse, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "DeleteAccount", caller, username, err) }()

	identity, target, err := s.authorizeAccountChange(caller, authz.ActionDeleteAccount, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	username = identity.Username

	err = s.update(ctx, func(tx docdb.Session) error {
		acc, err := s.accounts.DeleteAccount(tx, target)
		if err != nil {
			return err
		}

		computer, err := s.fs.GetComputerByOwner(tx, acc.ID)
		switch {
		case err == nil:
			return s.fs.DeleteComputer(tx, computer.ID)
		case vfs.IsCode(err, vfs.CodeNotFound):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	return &StatusResponse{Success: true, Message: "account deleted"}, nil
}

// CreateAdmin creates an admin account with its computer. It is not exposed
// over RPC and bypasses activation codes.
func (s *AccountService) CreateAdmin(ctx context.Context, username, password string) error {
	if !model.ValidUsername(username) {
		return vfs.NewError(vfs.CodeInvalidArgument, "invalid username")
	}
	if err := s.validatePassword(password); err != nil {
		return err
	}

	if err := s.update(ctx, func(tx docdb.Session) error {
		return s.createAccount(tx, username, password, model.RoleAdmin)
	}); err != nil {
		return err
	}

	s.logger.Info("create admin account", zap.String("username", username))
	return nil
}

// CreateActivationCodes mints codes without a caller. It is not exposed
// over RPC.
func (s *AccountService) CreateActivationCodes(ctx context.Context, count int) ([]string, error) {
	return s.createActivationCodes(ctx, count)
}
