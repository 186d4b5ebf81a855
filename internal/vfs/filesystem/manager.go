// Package filesystem manages computers and their directory trees.
//
// Nodes are stored flat, keyed by computer and id, and link to their parent
// by id. Deleting a node only flags it, except FileData which is removed.
package filesystem

import (
	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
	"github.com/Laisky/laisky-vfs/library/log"
)

// maxTreeDepth bounds parent walks so corrupted cycles terminate.
const maxTreeDepth = 4096

// Manager performs filesystem operations on a caller supplied session.
// It never opens transactions itself.
type Manager struct {
	clock  vfs.Clock
	logger logSDK.Logger
}

// NewManager returns a filesystem manager.
func NewManager(logger logSDK.Logger, clock vfs.Clock) *Manager {
	if logger == nil {
		logger = log.Logger.Named("filesystem")
	}
	if clock == nil {
		clock = vfs.DefaultClock
	}

	return &Manager{clock: clock, logger: logger}
}

func computerKey(id primitive.ObjectID) []byte {
	return docdb.Key(model.CollectionComputers, id.Hex())
}

func directoryKey(computer, id primitive.ObjectID) []byte {
	return docdb.Key(model.CollectionDirectories, computer.Hex(), id.Hex())
}

func fileKey(computer, id primitive.ObjectID) []byte {
	return docdb.Key(model.CollectionFiles, computer.Hex(), id.Hex())
}

func fileDataKey(computer, id primitive.ObjectID) []byte {
	return docdb.Key(model.CollectionFileData, computer.Hex(), id.Hex())
}

func notFound(what string) error {
	return vfs.NewError(vfs.CodeNotFound, what+" not found")
}

// CreateComputer creates a computer together with its root directory.
func (m *Manager) CreateComputer(s docdb.Session, name string, owner primitive.ObjectID) (*model.Computer, error) {
	if name == "" {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "computer name is required")
	}
	if owner.IsZero() {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "computer owner is required")
	}

	now := m.clock()
	computer := &model.Computer{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Owner:     owner,
		CreatedAt: now,
	}
	root := &model.Directory{
		ID:         primitive.NewObjectID(),
		ComputerID: computer.ID,
		Parent:     primitive.NilObjectID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	computer.RootDirectory = root.ID

	if err := docdb.PutDoc(s, directoryKey(computer.ID, root.ID), root); err != nil {
		return nil, errors.Wrap(err, "insert root directory")
	}
	if err := docdb.PutDoc(s, computerKey(computer.ID), computer); err != nil {
		return nil, errors.Wrap(err, "insert computer")
	}

	m.logger.Debug("create computer",
		zap.String("computer", computer.ID.Hex()),
		zap.String("owner", owner.Hex()))
	return computer, nil
}

// GetComputer returns the live computer with id.
func (m *Manager) GetComputer(s docdb.Session, id primitive.ObjectID) (*model.Computer, error) {
	computer := new(model.Computer)
	if err := docdb.GetDoc(s, computerKey(id), computer); err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, notFound("computer")
		}
		return nil, errors.Wrap(err, "get computer")
	}
	if computer.IsDeleted {
		return nil, notFound("computer")
	}
	return computer, nil
}

// GetComputerByOwner returns the first live computer owned by owner.
func (m *Manager) GetComputerByOwner(s docdb.Session, owner primitive.ObjectID) (*model.Computer, error) {
	computer, err := docdb.FindOne(s, docdb.Prefix(model.CollectionComputers), func(c *model.Computer) bool {
		return !c.IsDeleted && c.Owner == owner
	})
	if err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, notFound("computer")
		}
		return nil, errors.Wrap(err, "find computer by owner")
	}
	return computer, nil
}

// DeleteComputer flags the computer deleted. Its tree stays in place but is
// unreachable since every filesystem call resolves the computer first.
func (m *Manager) DeleteComputer(s docdb.Session, id primitive.ObjectID) error {
	computer, err := m.GetComputer(s, id)
	if err != nil {
		return err
	}

	computer.IsDeleted = true
	if err = docdb.PutDoc(s, computerKey(id), computer); err != nil {
		return errors.Wrap(err, "update computer")
	}
	return nil
}
