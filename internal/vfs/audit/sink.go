package audit

import (
	errors "github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
)

// NewSinkFromSettings builds the sink selected by settings.
func NewSinkFromSettings(settings vfs.AuditSettings, db *docdb.DB) (Sink, error) {
	switch settings.Backend {
	case vfs.AuditBackendSQLite:
		sink, err := OpenSQLiteSink(settings.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite audit sink")
		}
		return sink, nil
	case vfs.AuditBackendStore, "":
		return NewStoreSink(db)
	default:
		return nil, errors.Errorf("unknown audit backend %q", settings.Backend)
	}
}
