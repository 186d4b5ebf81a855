package filesystem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/laisky-vfs/internal/vfs/model"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

type fsFixture struct {
	m        *Manager
	db       *docdb.DB
	computer *model.Computer
}

func newFixture(t *testing.T) *fsFixture {
	t.Helper()
	db, err := docdb.Open(context.Background(), docdb.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	m := NewManager(nil, func() time.Time { return now })

	f := &fsFixture{m: m, db: db}
	f.update(t, func(s docdb.Session) {
		f.computer, err = m.CreateComputer(s, "alice's computer", primitive.NewObjectID())
		require.NoError(t, err)
	})
	return f
}

func (f *fsFixture) root() primitive.ObjectID {
	return f.computer.RootDirectory
}

func (f *fsFixture) id() primitive.ObjectID {
	return f.computer.ID
}

// update runs fn in one committed transaction.
func (f *fsFixture) update(t *testing.T, fn func(s docdb.Session)) {
	t.Helper()
	require.NoError(t, f.db.Update(func(s docdb.Session) error {
		fn(s)
		return nil
	}))
}

func (f *fsFixture) mkdir(t *testing.T, parent primitive.ObjectID, name string) primitive.ObjectID {
	t.Helper()
	var id primitive.ObjectID
	f.update(t, func(s docdb.Session) {
		var err error
		id, err = f.m.CreateDirectory(s, f.id(), parent, name)
		require.NoError(t, err)
	})
	return id
}

func (f *fsFixture) touch(t *testing.T, parent primitive.ObjectID, name string, data []byte) primitive.ObjectID {
	t.Helper()
	var id primitive.ObjectID
	f.update(t, func(s docdb.Session) {
		var err error
		id, err = f.m.CreateFile(s, f.id(), parent, name, model.FileTypeData, data)
		require.NoError(t, err)
	})
	return id
}

// mkdirUnchecked writes a directory document directly, skipping validation.
func (f *fsFixture) mkdirUnchecked(t *testing.T, s docdb.Session, parent primitive.ObjectID, name string) primitive.ObjectID {
	t.Helper()
	dir := &model.Directory{
		ID:         primitive.NewObjectID(),
		ComputerID: f.id(),
		Name:       name,
		Parent:     parent,
	}
	require.NoError(t, docdb.PutDoc(s, directoryKey(f.id(), dir.ID), dir))
	return dir.ID
}
