// Package web gin server
package web

import (
	"net/http"

	ginMw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/drive-gallery/gallery/internal/web/gallery/controller"
	"github.com/drive-gallery/gallery/library/log"
)

var (
	server = gin.New()
)

func RunServer(addr string) {
	server.Use(
		gin.Recovery(),
		ginMw.NewLoggerMiddleware(
			ginMw.WithLoggerMwColored(),
			ginMw.WithLevel(log.Logger.Level().String()),
			ginMw.WithLogger(log.Logger.Named("gin")),
		),
		allowCORS,
	)
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := ginMw.EnableMetric(server); err != nil {
		log.Logger.Panic("enable metric server", zap.Error(err))
	}

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})

	registerRoutes(server)

	log.Logger.Info("listening on http", zap.String("addr", addr))
	log.Logger.Panic("httpServer exit", zap.Error(server.Run(addr)))
}

func registerRoutes(server *gin.Engine) {
	ctl := controller.Instance

	server.POST("/api/upload/file", ctl.UploadFile)
	server.GET("/api/files/:folderID", ctl.ListFiles)
	server.GET("/api/folders", ctl.Folders)
	server.GET("/api/folder-name/:folderID", ctl.FolderName)
	server.POST("/api/update/file-metadata", ctl.UpdateFileMetadata)
	server.POST("/api/delete/file", ctl.DeleteFile)
	server.GET("/ws", ctl.WS)
}

// allowCORS lets the separately hosted frontend (and local Vite dev
// server) call the API.
func allowCORS(ctx *gin.Context) {
	ctx.Header("Access-Control-Allow-Origin", "*")
	ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if ctx.Request.Method == http.MethodOptions {
		ctx.AbortWithStatus(http.StatusNoContent)
		return
	}

	ctx.Next()
}
