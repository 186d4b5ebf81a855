package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/laisky-vfs/internal/rpc"
	"github.com/Laisky/laisky-vfs/internal/web"
	"github.com/Laisky/laisky-vfs/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `serve the virtual file system over HTTP and gRPC`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func runAPI(ctx context.Context) error {
	st, err := openStack(ctx)
	if err != nil {
		return errors.Wrap(err, "open stack")
	}
	defer st.Close()

	// fail fast on unreadable key material instead of on the first login
	if _, err = st.keys.KeyPair(); err != nil {
		return errors.Wrap(err, "load signing key")
	}

	if !gconfig.S.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.RunServer(gctx, gconfig.S.GetString("listen"), web.NewServer(st.svcs, log.Logger.Named("gin")))
	})
	if addr := gconfig.S.GetString("grpc_listen"); addr != "" {
		g.Go(func() error {
			return rpc.RunServer(gctx, addr, rpc.NewServer(st.svcs, log.Logger.Named("grpc")))
		})
	}

	return g.Wait()
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
