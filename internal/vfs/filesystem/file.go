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

// GetFileByID returns the live file id of computer.
func (m *Manager) GetFileByID(s docdb.Session, computer, id primitive.ObjectID) (*model.File, error) {
	file := new(model.File)
	if err := docdb.GetDoc(s, fileKey(computer, id), file); err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, notFound("file")
		}
		return nil, errors.Wrap(err, "get file")
	}
	if file.IsDeleted {
		return nil, notFound("file")
	}
	return file, nil
}

// ExistsFile reports whether id is a live file of computer.
func (m *Manager) ExistsFile(s docdb.Session, computer, id primitive.ObjectID) (bool, error) {
	return exists(m.GetFileByID(s, computer, id))
}

// GetFileByName returns the live child file name of parent.
func (m *Manager) GetFileByName(s docdb.Session, computer, parent primitive.ObjectID, name string) (*model.File, error) {
	file, err := docdb.FindOne(s, docdb.Prefix(model.CollectionFiles, computer.Hex()), func(f *model.File) bool {
		return !f.IsDeleted && f.Parent == parent && f.Name == name
	})
	if err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return nil, notFound("file")
		}
		return nil, errors.Wrap(err, "find file by name")
	}
	return file, nil
}

// ExistsFileByName reports whether parent has a live child file name.
func (m *Manager) ExistsFileByName(s docdb.Session, computer, parent primitive.ObjectID, name string) (bool, error) {
	return exists(m.GetFileByName(s, computer, parent, name))
}

// ListFiles returns the live child files of parent sorted by name.
func (m *Manager) ListFiles(s docdb.Session, computer, parent primitive.ObjectID) ([]*model.File, error) {
	if _, err := m.GetDirectoryByID(s, computer, parent); err != nil {
		return nil, err
	}
	return m.childFiles(s, computer, parent)
}

func (m *Manager) childFiles(s docdb.Session, computer, parent primitive.ObjectID) ([]*model.File, error) {
	files, err := docdb.FindDocs(s, docdb.Prefix(model.CollectionFiles, computer.Hex()), func(f *model.File) bool {
		return !f.IsDeleted && f.Parent == parent
	})
	if err != nil {
		return nil, errors.Wrap(err, "list files")
	}

	slices.SortFunc(files, func(a, b *model.File) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}

// CreateFile creates name under parent. Data files get a FileData document
// holding data, other files must not carry content.
func (m *Manager) CreateFile(s docdb.Session, computer, parent primitive.ObjectID, name string, fileType model.FileType, data []byte) (primitive.ObjectID, error) {
	if !model.ValidNodeName(name) {
		return primitive.NilObjectID, vfs.Errorf(vfs.CodeInvalidArgument, "invalid file name %q", name)
	}
	if !fileType.Valid() {
		return primitive.NilObjectID, vfs.Errorf(vfs.CodeInvalidArgument, "invalid file type %d", fileType)
	}
	if !fileType.IsDataFile() && len(data) > 0 {
		return primitive.NilObjectID, vfs.NewError(vfs.CodeInvalidArgument, "only readable and writable files carry content")
	}
	if _, err := m.GetDirectoryByID(s, computer, parent); err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "parent directory")
	}
	if err := m.ensureNameFree(s, computer, parent, name); err != nil {
		return primitive.NilObjectID, err
	}

	now := m.clock()
	file := &model.File{
		ID:         primitive.NewObjectID(),
		ComputerID: computer,
		Name:       name,
		Parent:     parent,
		Type:       fileType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := docdb.PutDoc(s, fileKey(computer, file.ID), file); err != nil {
		return primitive.NilObjectID, errors.Wrap(err, "insert file")
	}

	if fileType.IsDataFile() {
		if data == nil {
			data = []byte{}
		}
		content := &model.FileData{ID: file.ID, ComputerID: computer, Content: data}
		if err := docdb.PutDoc(s, fileDataKey(computer, file.ID), content); err != nil {
			return primitive.NilObjectID, errors.Wrap(err, "insert file data")
		}
	}

	return file.ID, nil
}

// RenameFile changes the name of a file.
func (m *Manager) RenameFile(s docdb.Session, computer, id primitive.ObjectID, newName string) error {
	if !model.ValidNodeName(newName) {
		return vfs.Errorf(vfs.CodeInvalidArgument, "invalid file name %q", newName)
	}

	file, err := m.GetFileByID(s, computer, id)
	if err != nil {
		return err
	}
	if file.Name == newName {
		return nil
	}
	if err = m.ensureNameFree(s, computer, file.Parent, newName); err != nil {
		return err
	}

	file.Name = newName
	file.UpdatedAt = m.clock()
	if err = docdb.PutDoc(s, fileKey(computer, id), file); err != nil {
		return errors.Wrap(err, "update file")
	}
	return nil
}

// DeleteFile flags the file deleted and drops its content.
func (m *Manager) DeleteFile(s docdb.Session, computer, id primitive.ObjectID) error {
	file, err := m.GetFileByID(s, computer, id)
	if err != nil {
		return err
	}
	return m.deleteFile(s, file)
}

func (m *Manager) deleteFile(s docdb.Session, file *model.File) error {
	file.IsDeleted = true
	file.UpdatedAt = m.clock()
	if err := docdb.PutDoc(s, fileKey(file.ComputerID, file.ID), file); err != nil {
		return errors.Wrap(err, "update file")
	}

	if file.Type.IsDataFile() {
		if err := s.Delete(fileDataKey(file.ComputerID, file.ID)); err != nil {
			return errors.Wrap(err, "delete file data")
		}
	}
	return nil
}

// ReadDataFile returns the content of a data file.
func (m *Manager) ReadDataFile(s docdb.Session, computer, id primitive.ObjectID) ([]byte, error) {
	file, err := m.GetFileByID(s, computer, id)
	if err != nil {
		return nil, err
	}
	if !file.Type.IsDataFile() {
		return nil, vfs.NewError(vfs.CodeInvalidArgument, "file is not readable and writable")
	}

	content := new(model.FileData)
	if err = docdb.GetDoc(s, fileDataKey(computer, id), content); err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			m.logger.Error("data file without content")
			return nil, vfs.NewError(vfs.CodeDataLoss, "file content is missing")
		}
		return nil, errors.Wrap(err, "get file data")
	}
	if content.Content == nil {
		return []byte{}, nil
	}
	return content.Content, nil
}

// ModifyDataFile replaces the content of a data file.
func (m *Manager) ModifyDataFile(s docdb.Session, computer, id primitive.ObjectID, data []byte) error {
	file, err := m.GetFileByID(s, computer, id)
	if err != nil {
		return err
	}
	if !file.Type.IsDataFile() {
		return vfs.NewError(vfs.CodeInvalidArgument, "file is not readable and writable")
	}

	key := fileDataKey(computer, id)
	if _, err = s.Get(key); err != nil {
		if errors.Is(err, docdb.ErrNotFound) {
			return vfs.NewError(vfs.CodeDataLoss, "file content is missing")
		}
		return errors.Wrap(err, "get file data")
	}

	if data == nil {
		data = []byte{}
	}
	if err = docdb.PutDoc(s, key, &model.FileData{ID: id, ComputerID: computer, Content: data}); err != nil {
		return errors.Wrap(err, "update file data")
	}

	file.UpdatedAt = m.clock()
	if err = docdb.PutDoc(s, fileKey(computer, id), file); err != nil {
		return errors.Wrap(err, "update file")
	}
	return nil
}
