package service

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// ComputerService implements the Computer RPCs.
type ComputerService struct {
	*core
}

// GetMyComputer returns the computer owned by the caller.
func (s *ComputerService) GetMyComputer(ctx context.Context, _ *GetMyComputerRequest) (resp *ComputerInfo, err error) {
	caller := CallerFromContext(ctx)
	var username string
	defer func() { s.finish(ctx, "GetMyComputer", caller, username, err) }()

	identity, err := s.gate.Authenticate(caller.Token)
	if err != nil {
		return nil, err
	}
	username = identity.Username

	var computer *model.Computer
	if err = s.view(func(tx docdb.Session) error {
		var err error
		computer, err = s.fs.GetComputerByOwner(tx, identity.AccountID)
		return err
	}); err != nil {
		return nil, err
	}

	resp = new(ComputerInfo)
	if err = copier.Copy(resp, computer); err != nil {
		return nil, errors.Wrap(err, "copy computer")
	}
	return resp, nil
}
