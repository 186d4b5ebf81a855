package filesystem

import (
	"slices"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// GetDirectoryByID returns the live directory id of computer.
func (m *Manager) GetDirectoryByID(s docdb.Session, computer, id primitive.ObjectID) (*model.Directory, error) {
	dir := new(model.Directory)
	if err := docdb.GetDoc(s, directoryKey(computer, id), dir); err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, notFound("directory")
		}
		return nil, errors.Wrap(err, "get directory")
	}
	if dir.IsDeleted {
		return nil, notFound("directory")
	}
	return dir, nil
}

// ExistsDirectory reports whether id is a live directory of computer.
func (m *Manager) ExistsDirectory(s docdb.Session, computer, id primitive.ObjectID) (bool, error) {
	return exists(m.GetDirectoryByID(s, computer, id))
}

// GetDirectoryByName returns the live child directory name of parent.
func (m *Manager) GetDirectoryByName(s docdb.Session, computer, parent primitive.ObjectID, name string) (*model.Directory, error) {
	dir, err := docdb.FindOne(s, docdb.Prefix(model.CollectionDirectories, computer.Hex()), func(d *model.Directory) bool {
		return !d.IsDeleted && d.Parent == parent && d.Name == name && !d.IsRoot()
	})
	if err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, notFound("directory")
		}
		return nil, errors.Wrap(err, "find directory by name")
	}
	return dir, nil
}

// ExistsDirectoryByName reports whether parent has a live child directory name.
func (m *Manager) ExistsDirectoryByName(s docdb.Session, computer, parent primitive.ObjectID, name string) (bool, error) {
	return exists(m.GetDirectoryByName(s, computer, parent, name))
}

// ListDirectories returns the live child directories of parent sorted by name.
func (m *Manager) ListDirectories(s docdb.Session, computer, parent primitive.ObjectID) ([]*model.Directory, error) {
	if _, err := m.GetDirectoryByID(s, computer, parent); err != nil {
		return nil, err
	}
	return m.childDirectories(s, computer, parent)
}

func (m *Manager) childDirectories(s docdb.Session, computer, parent primitive.ObjectID) ([]*model.Directory, error) {
	dirs, err := docdb.FindDocs(s, docdb.Prefix(model.CollectionDirectories, computer.Hex()), func(d *model.Directory) bool {
		return !d.IsDeleted && d.Parent == parent && !d.IsRoot()
	})
	if err != nil {
		return nil, errors.Wrap(err, "list directories")
	}

	slices.SortFunc(dirs, func(a, b *model.Directory) int { return strings.Compare(a.Name, b.Name) })
	return dirs, nil
}

// CreateDirectory creates name under parent and returns its id.
func (m *Manager) CreateDirectory(s docdb.Session, computer, parent primitive.ObjectID, name string) (primitive.ObjectID, error) {
	if !model.ValidNodeName(name) {
		return primitive.NilObjectID, vfs.Errorf(vfs.CodeInvalidArgument, "invalid directory name %q", name)
	}
	if _, err := m.GetDirectoryByID(s, computer, parent); err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "parent directory")
	}
	if err := m.ensureNameFree(s, computer, parent, name); err != nil {
		return primitive.NilObjectID, err
	}

	now := m.clock()
	dir := &model.Directory{
		ID:         primitive.NewObjectID(),
		ComputerID: computer,
		Name:       name,
		Parent:     parent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := docdb.PutDoc(s, directoryKey(computer, dir.ID), dir); err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "insert directory")
	}
	return dir.ID, nil
}

// RenameDirectory changes the name of a non-root directory.
func (m *Manager) RenameDirectory(s docdb.Session, computer, id primitive.ObjectID, newName string) error {
	if !model.ValidNodeName(newName) {
		return vfs.Errorf(vfs.CodeInvalidArgument, "invalid directory name %q", newName)
	}

	dir, err := m.GetDirectoryByID(s, computer, id)
	if err != nil {
		return err
	}
	if dir.IsRoot() {
		return vfs.NewError(vfs.CodeInvalidArgument, "root directory cannot be renamed")
	}
	if dir.Name == newName {
		return nil
	}
	if err = m.ensureNameFree(s, computer, dir.Parent, newName); err != nil {
		return err
	}

	dir.Name = newName
	dir.UpdatedAt = m.clock()
	if err = docdb.PutDoc(s, directoryKey(computer, id), dir); err != nil {
		return errors.Wrap(err, "update directory")
	}
	return nil
}

// IsDirectoryEmpty reports whether id has no live children of either kind.
func (m *Manager) IsDirectoryEmpty(s docdb.Session, computer, id primitive.ObjectID) (bool, error) {
	if _, err := m.GetDirectoryByID(s, computer, id); err != nil {
		return false, err
	}

	dirs, err := m.childDirectories(s, computer, id)
	if err != nil {
		return false, err
	}
	if len(dirs) > 0 {
		return false, nil
	}

	files, err := m.childFiles(s, computer, id)
	if err != nil {
		return false, err
	}
	return len(files) == 0, nil
}

// ensureNameFree fails when parent already holds a live node called name.
// The check and the following insert are atomic only because writers are
// serialized by the transaction controller.
func (m *Manager) ensureNameFree(s docdb.Session, computer, parent primitive.ObjectID, name string) error {
	dirTaken, err := m.ExistsDirectoryByName(s, computer, parent, name)
	if err != nil {
		return err
	}
	fileTaken, err := m.ExistsFileByName(s, computer, parent, name)
	if err != nil {
		return err
	}
	if dirTaken || fileTaken {
		return vfs.Errorf(vfs.CodeAlreadyExists, "%q already exists", name)
	}
	return nil
}

func exists[T any](_ *T, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case vfs.IsCode(err, vfs.CodeNotFound):
		return false, nil
	default:
		return false, err
	}
}
