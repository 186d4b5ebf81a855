// Package config loads the YAML settings file into the shared go-config store.
package config

import (
	"os"
	"path/filepath"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-vfs/library/log"
)

// LoadFromFile loads cfgPath into gconfig.S.
//
// An empty path is allowed and leaves every key at its default,
// a path that does not exist is an error.
func LoadFromFile(cfgPath string) error {
	if cfgPath == "" {
		log.Logger.Info("no configuration file, use defaults")
		return nil
	}

	if _, err := os.Stat(cfgPath); err != nil {
		return errors.Wrapf(err, "stat config file %q", cfgPath)
	}

	gconfig.S.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.S.LoadFromFile(cfgPath); err != nil {
		return errors.Wrapf(err, "load config file %q", cfgPath)
	}

	log.Logger.Info("load configuration", zap.String("config", cfgPath))
	return nil
}
