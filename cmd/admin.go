package cmd

import (
	"context"
	"fmt"

	errors "github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-vfs/library/log"
)

var adminCMD = &cobra.Command{
	Use:   "admin",
	Short: "administrative tasks",
	Long:  `Administrative tasks run directly against the database, without the API server.`,
	Args:  gcmd.NoExtraArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := initialize(context.Background(), cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
}

var adminCreateCMD = &cobra.Command{
	Use:   "create",
	Short: "create an admin account",
	Long: `Create an admin account together with its computer.

Example:
  laisky-vfs admin create -c settings.yml --username=root_admin --password=...`,
	Args: gcmd.NoExtraArgs,
	Run: func(cmd *cobra.Command, args []string) {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if err := runAdminCreate(context.Background(), username, password); err != nil {
			log.Logger.Panic("create admin", zap.Error(err))
		}
	},
}

var adminCodesCMD = &cobra.Command{
	Use:   "codes",
	Short: "print fresh activation codes",
	Long:  `Generate activation codes and print one per line.`,
	Args:  gcmd.NoExtraArgs,
	Run: func(cmd *cobra.Command, args []string) {
		count, _ := cmd.Flags().GetInt("count")
		if err := runAdminCodes(context.Background(), count); err != nil {
			log.Logger.Panic("generate activation codes", zap.Error(err))
		}
	},
}

func runAdminCreate(ctx context.Context, username, password string) error {
	st, err := openStack(ctx)
	if err != nil {
		return errors.Wrap(err, "open stack")
	}
	defer st.Close()

	return st.svcs.Account.CreateAdmin(ctx, username, password)
}

func runAdminCodes(ctx context.Context, count int) error {
	st, err := openStack(ctx)
	if err != nil {
		return errors.Wrap(err, "open stack")
	}
	defer st.Close()

	codes, err := st.svcs.Account.CreateActivationCodes(ctx, count)
	if err != nil {
		return err
	}
	for _, code := range codes {
		fmt.Println(code)
	}
	return nil
}

func init() {
	rootCMD.AddCommand(adminCMD)
	adminCMD.AddCommand(adminCreateCMD, adminCodesCMD)

	adminCreateCMD.Flags().String("username", "", "admin username (required)")
	adminCreateCMD.Flags().String("password", "", "admin password (required)")
	_ = adminCreateCMD.MarkFlagRequired("username")
	_ = adminCreateCMD.MarkFlagRequired("password")

	adminCodesCMD.Flags().Int("count", 1, "how many codes to generate")
}
