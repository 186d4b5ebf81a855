package cmd

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/audit"
	"github.com/Laisky/laisky-vfs/internal/vfs/credential"
	"github.com/Laisky/laisky-vfs/internal/vfs/service"
	docdb "github.com/Laisky/laisky-vfs/library/db/badger"
	"github.com/Laisky/laisky-vfs/library/log"
)

// stack owns every resource behind the services.
type stack struct {
	settings vfs.Settings
	db       *docdb.DB
	keys     *credential.KeyStore
	recorder *audit.Recorder
	svcs     *service.Services
}

func openStack(ctx context.Context) (_ *stack, err error) {
	st := &stack{settings: vfs.LoadSettingsFromConfig()}
	defer func() {
		if err != nil {
			st.Close()
		}
	}()

	if st.db, err = docdb.Open(ctx, docdb.Options{
		Path:     st.settings.DBPath,
		InMemory: st.settings.InMemory,
		Logger:   log.Logger.Named("badger"),
	}); err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if st.keys, err = credential.NewKeyStore(st.settings.KeyDir, log.Logger.Named("keystore")); err != nil {
		return nil, errors.Wrap(err, "new key store")
	}
	issuer, err := credential.NewIssuer(st.keys, st.settings.TokenTTL, st.settings.TokenIssuer, vfs.DefaultClock)
	if err != nil {
		return nil, errors.Wrap(err, "new token issuer")
	}

	sink, err := audit.NewSinkFromSettings(st.settings.Audit, st.db)
	if err != nil {
		return nil, errors.Wrap(err, "new audit sink")
	}
	if st.recorder, err = audit.NewRecorder(sink, log.Logger.Named("audit"), vfs.DefaultClock); err != nil {
		_ = sink.Close()
		return nil, errors.Wrap(err, "new audit recorder")
	}

	if st.svcs, err = service.New(service.Options{
		DB:       st.db,
		Issuer:   issuer,
		Recorder: st.recorder,
		Settings: st.settings,
		Logger:   log.Logger.Named("vfs"),
		Clock:    vfs.DefaultClock,
	}); err != nil {
		return nil, errors.Wrap(err, "new services")
	}

	log.Logger.Info("open vfs",
		zap.String("db", st.settings.DBPath),
		zap.Bool("in_memory", st.settings.InMemory),
		zap.String("audit", st.settings.Audit.Backend))
	return st, nil
}

// Close releases the audit sink and the database.
func (s *stack) Close() {
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			log.Logger.Warn("close audit recorder", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Logger.Warn("close database", zap.Error(err))
		}
	}
}
