// Package cmd command line
package cmd

import (
	"context"
	"fmt"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-vfs/library/config"
	"github.com/Laisky/laisky-vfs/library/log"
)

var rootCMD = &cobra.Command{
	Use:   "laisky-vfs",
	Short: "laisky-vfs",
	Long:  `multi-tenant virtual file system service`,
	Args:  gcmd.NoExtraArgs,
}

func initialize(ctx context.Context, cmd *cobra.Command) error {
	if err := gconfig.S.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind pflags")
	}

	if err := setupSettings(ctx); err != nil {
		return errors.Wrap(err, "setup settings")
	}
	setupLogger(ctx)

	if err := validateStartupConfig(); err != nil {
		return errors.Wrap(err, "validate config")
	}

	return nil
}

func setupSettings(_ context.Context) error {
	// mode
	if gconfig.S.GetBool("debug") {
		fmt.Println("run in debug mode")
		gconfig.S.Set("log-level", "debug")
	} else { // prod mode
		fmt.Println("run in prod mode")
	}

	// load configuration
	return config.LoadFromFile(gconfig.S.GetString("config"))
}

func setupLogger(_ context.Context) {
	lvl := gconfig.S.GetString("log-level")
	if err := log.Logger.ChangeLevel(logSDK.Level(lvl)); err != nil {
		log.Logger.Panic("change log level", zap.Error(err), zap.String("level", lvl))
	}
}

func init() {
	rootCMD.PersistentFlags().Bool("debug", false, "run in debug mode")
	rootCMD.PersistentFlags().String("listen", "localhost:8080", "http listen address, like `localhost:8080`")
	rootCMD.PersistentFlags().String("grpc_listen", "localhost:8081", "grpc listen address, empty to disable")
	rootCMD.PersistentFlags().StringP("config", "c", "", "config file path, empty to use defaults")
	rootCMD.PersistentFlags().String("log-level", "info", "`debug/info/error`")
}

// Execute execute root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		logSDK.Shared.Panic("start", zap.Error(err))
	}
}
