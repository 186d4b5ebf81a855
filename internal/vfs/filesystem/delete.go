package filesystem

import (
	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// DeleteDirectory deletes a non-root directory. Without recursive the
// directory must be empty. With recursive its subtree is swept breadth
// first: each wave deletes the files it holds and flags its directories,
// whose children form the next wave.
func (m *Manager) DeleteDirectory(s docdb.Session, computer, id primitive.ObjectID, recursive bool) error {
	dir, err := m.GetDirectoryByID(s, computer, id)
	if err != nil {
		return err
	}
	if dir.IsRoot() {
		return vfs.NewError(vfs.CodePermissionDenied, "root directory cannot be deleted")
	}

	if !recursive {
		empty, err := m.IsDirectoryEmpty(s, computer, id)
		if err != nil {
			return err
		}
		if !empty {
			return vfs.NewError(vfs.CodeFailedPrecondition, "directory is not empty")
		}
		return m.flagDirectory(s, dir)
	}

	var (
		nDirs, nFiles int
		wave          = []primitive.ObjectID{id}
	)
	for depth := 0; len(wave) > 0; depth++ {
		if depth > maxTreeDepth {
			return vfs.NewError(vfs.CodeDataLoss, "directory tree too deep")
		}

		var next []primitive.ObjectID
		for _, parent := range wave {
			files, err := m.childFiles(s, computer, parent)
			if err != nil {
				return err
			}
			for _, f := range files {
				if err = m.deleteFile(s, f); err != nil {
					return err
				}
			}
			nFiles += len(files)

			dirs, err := m.childDirectories(s, computer, parent)
			if err != nil {
				return err
			}
			for _, d := range dirs {
				if err = m.flagDirectory(s, d); err != nil {
					return err
				}
				next = append(next, d.ID)
			}
			nDirs += len(dirs)
		}
		wave = next
	}

	if err = m.flagDirectory(s, dir); err != nil {
		return err
	}

	m.logger.Debug("delete directory recursively",
		zap.String("directory", id.Hex()),
		zap.Int("directories", nDirs),
		zap.Int("files", nFiles))
	return nil
}

func (m *Manager) flagDirectory(s docdb.Session, dir *model.Directory) error {
	dir.IsDeleted = true
	dir.UpdatedAt = m.clock()
	if err := docdb.PutDoc(s, directoryKey(dir.ComputerID, dir.ID), dir); err != nil {
		return errors.Wrap(err, "update directory")
	}
	return nil
}
