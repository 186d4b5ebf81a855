package filesystem

import (
	"strings"

	errors "github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// PathSeparator separates path segments. The root's path is the separator
// alone.
const PathSeparator = "/"

// FromIdToPath returns the absolute path of a directory or file, and
// whether it is a directory.
func (m *Manager) FromIdToPath(s docdb.Session, computer, id primitive.ObjectID) (isDirectory bool, path string, err error) {
	var (
		names  []string
		parent primitive.ObjectID
	)

	dir, err := m.GetDirectoryByID(s, computer, id)
	switch {
	case err == nil:
		isDirectory = true
		if dir.IsRoot() {
			return true, PathSeparator, nil
		}
		names = append(names, dir.Name)
		parent = dir.Parent
	case vfs.IsCode(err, vfs.CodeNotFound):
		file, err := m.GetFileByID(s, computer, id)
		if err != nil {
			return false, "", err
		}
		names = append(names, file.Name)
		parent = file.Parent
	default:
		return false, "", err
	}

	for depth := 0; ; depth++ {
		if depth > maxTreeDepth {
			return false, "", vfs.NewError(vfs.CodeDataLoss, "directory tree too deep")
		}

		dir, err := m.GetDirectoryByID(s, computer, parent)
		if err != nil {
			if vfs.IsCode(err, vfs.CodeNotFound) {
				return false, "", vfs.Errorf(vfs.CodeDataLoss, "parent directory %s is missing", parent.Hex())
			}
			return false, "", err
		}
		if dir.IsRoot() {
			break
		}
		names = append(names, dir.Name)
		parent = dir.Parent
	}

	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteString(PathSeparator)
		b.WriteString(names[i])
	}
	return isDirectory, b.String(), nil
}

// FromPathToId resolves path to a directory or file id. Relative paths start
// at start (the root when start is nil), absolute ones at the computer's root.
// Intermediate "." and ".." navigate and an empty intermediate segment
// ("a//b") is not found. A trailing separator resolves to the directory
// reached so far. The last segment names a file first, then a directory, and
// is always looked up by name, so a final "." or ".." is not found.
func (m *Manager) FromPathToId(s docdb.Session, computer, start primitive.ObjectID, path string) (isDirectory bool, id primitive.ObjectID, err error) {
	var cur *model.Directory
	if start.IsZero() {
		cur, err = m.rootOf(s, computer)
	} else {
		cur, err = m.GetDirectoryByID(s, computer, start)
	}
	if err != nil {
		return false, primitive.NilObjectID, errors.Wrap(err, "start directory")
	}

	if path == "" {
		root, err := m.rootOf(s, computer)
		if err != nil {
			return false, primitive.NilObjectID, err
		}
		return true, root.ID, nil
	}

	segments := strings.Split(path, PathSeparator)
	if segments[0] == "" {
		if cur, err = m.rootOf(s, computer); err != nil {
			return false, primitive.NilObjectID, err
		}
		segments = segments[1:]
	}

	last := len(segments) - 1
	for i, seg := range segments {
		switch seg {
		case "":
			if i == last {
				return true, cur.ID, nil
			}
			return false, primitive.NilObjectID, vfs.NewError(vfs.CodeNotFound, "empty path segment")
		case ".", "..":
			if i == last {
				return false, primitive.NilObjectID, vfs.Errorf(vfs.CodeNotFound, "%q not found", seg)
			}
			if seg == "." {
				continue
			}
			if cur.IsRoot() {
				return false, primitive.NilObjectID, vfs.NewError(vfs.CodeNotFound, "root directory has no parent")
			}
			parent, err := m.GetDirectoryByID(s, computer, cur.Parent)
			if err != nil {
				if vfs.IsCode(err, vfs.CodeNotFound) {
					return false, primitive.NilObjectID, vfs.Errorf(vfs.CodeDataLoss, "parent directory %s is missing", cur.Parent.Hex())
				}
				return false, primitive.NilObjectID, err
			}
			cur = parent
		default:
			if i == last {
				return m.lookupChild(s, computer, cur.ID, seg)
			}
			next, err := m.GetDirectoryByName(s, computer, cur.ID, seg)
			if err != nil {
				return false, primitive.NilObjectID, err
			}
			cur = next
		}
	}

	return true, cur.ID, nil
}

func (m *Manager) lookupChild(s docdb.Session, computer, parent primitive.ObjectID, name string) (bool, primitive.ObjectID, error) {
	file, err := m.GetFileByName(s, computer, parent, name)
	if err == nil {
		return false, file.ID, nil
	}
	if !vfs.IsCode(err, vfs.CodeNotFound) {
		return false, primitive.NilObjectID, err
	}

	dir, err := m.GetDirectoryByName(s, computer, parent, name)
	if err != nil {
		if vfs.IsCode(err, vfs.CodeNotFound) {
			return false, primitive.NilObjectID, vfs.Errorf(vfs.CodeNotFound, "%q not found", name)
		}
		return false, primitive.NilObjectID, err
	}
	return true, dir.ID, nil
}

func (m *Manager) rootOf(s docdb.Session, computerID primitive.ObjectID) (*model.Directory, error) {
	computer, err := m.GetComputer(s, computerID)
	if err != nil {
		return nil, err
	}

	root, err := m.GetDirectoryByID(s, computerID, computer.RootDirectory)
	if err != nil {
		if vfs.IsCode(err, vfs.CodeNotFound) {
			return nil, vfs.NewError(vfs.CodeDataLoss, "root directory is missing")
		}
		return nil, err
	}
	return root, nil
}
