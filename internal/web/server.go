// Package web serves the RPC surface as JSON over HTTP.
package web

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/service"
	"github.com/Laisky/laisky-vfs/library/log"
)

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Code    vfs.Code `json:"code"`
	Message string   `json:"message"`
}

// NewServer returns an engine routing POST /api/v1/{service}/{method}.
func NewServer(svcs *service.Services, logger logSDK.Logger) *gin.Engine {
	if logger == nil {
		logger = log.Logger.Named("gin")
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(gmw.WithLogger(logger)),
	)

	server.GET("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})

	api := server.Group("/api/v1")

	account := api.Group("/Account")
	account.POST("/Login", handle(svcs.Account.Login))
	account.POST("/Register", handle(svcs.Account.Register))
	account.POST("/GenerateActivationCode", handle(svcs.Account.GenerateActivationCode))
	account.POST("/ChangePassword", handle(svcs.Account.ChangePassword))
	account.POST("/ChangeUsername", handle(svcs.Account.ChangeUsername))
	account.POST("/DeleteAccount", handle(svcs.Account.DeleteAccount))

	computer := api.Group("/Computer")
	computer.POST("/GetMyComputer", handle(svcs.Computer.GetMyComputer))

	fs := api.Group("/Filesystem")
	fs.POST("/CreateDirectory", handle(svcs.Filesystem.CreateDirectory))
	fs.POST("/CreateFile", handle(svcs.Filesystem.CreateFile))
	fs.POST("/DeleteDirectory", handle(svcs.Filesystem.DeleteDirectory))
	fs.POST("/DeleteFile", handle(svcs.Filesystem.DeleteFile))
	fs.POST("/RenameDirectory", handle(svcs.Filesystem.RenameDirectory))
	fs.POST("/RenameFile", handle(svcs.Filesystem.RenameFile))
	fs.POST("/ListDirectories", handle(svcs.Filesystem.ListDirectories))
	fs.POST("/ListFiles", handle(svcs.Filesystem.ListFiles))
	fs.POST("/GetDirectoryInfo", handle(svcs.Filesystem.GetDirectoryInfo))
	fs.POST("/GetFileInfo", handle(svcs.Filesystem.GetFileInfo))
	fs.POST("/ReadDataFile", handle(svcs.Filesystem.ReadDataFile))
	fs.POST("/ModifyDataFile", handle(svcs.Filesystem.ModifyDataFile))
	fs.POST("/FromIdToPath", handle(svcs.Filesystem.FromIdToPath))
	fs.POST("/FromPathToId", handle(svcs.Filesystem.FromPathToId))

	return server
}

// RunServer serves engine on addr until ctx is done.
func RunServer(ctx context.Context, addr string, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Logger.Warn("shutdown http server", zap.Error(err))
		}
	}()

	log.Logger.Info("listening on http", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve http")
	}
	return nil
}

// handle adapts a service method to a gin handler. An empty body decodes to
// the zero request.
func handle[Req, Resp any](call func(context.Context, *Req) (*Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := new(Req)
		if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    vfs.CodeInvalidArgument,
				Message: "malformed request body",
			})
			return
		}

		ctx := service.WithCaller(c.Request.Context(), service.Caller{
			Token:   bearerToken(c.GetHeader("Authorization")),
			Address: c.Request.RemoteAddr,
		})

		resp, err := call(ctx, req)
		if err != nil {
			code := vfs.CodeOf(err)
			if code == vfs.CodeInternal {
				gmw.GetLogger(c).Error("call failed", zap.String("path", c.FullPath()), zap.Error(err))
			}
			c.JSON(HTTPStatus(code), ErrorResponse{Code: code, Message: vfs.PublicMessage(err)})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// HTTPStatus maps an error code to its HTTP status.
func HTTPStatus(code vfs.Code) int {
	switch code {
	case vfs.CodeUnauthenticated:
		return http.StatusUnauthorized
	case vfs.CodePermissionDenied:
		return http.StatusForbidden
	case vfs.CodeInvalidArgument:
		return http.StatusBadRequest
	case vfs.CodeNotFound:
		return http.StatusNotFound
	case vfs.CodeAlreadyExists:
		return http.StatusConflict
	case vfs.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
