// Package controller exposes the gallery catalog over REST.
package controller

import (
	"context"
	"io"
	"net/http"
	"strconv"

	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/errors/v2"

	"github.com/drive-gallery/gallery/internal/web/gallery/dao"
	"github.com/drive-gallery/gallery/internal/web/gallery/dto"
	"github.com/drive-gallery/gallery/internal/web/gallery/notify"
	"github.com/drive-gallery/gallery/internal/web/gallery/service"
)

// maxUploadBytes bounds one multipart upload.
const maxUploadBytes = 32 << 20

// error codes clients can branch on without parsing messages
const (
	codeInvalidCursor    = "INVALID_CURSOR"
	codeInvalidInput     = "INVALID_INPUT"
	codeNotFound         = "NOT_FOUND"
	codeStoreUnavailable = "STORE_UNAVAILABLE"
	codeInternal         = "INTERNAL"
)

var Instance *Type

type Type struct {
	svc *service.Type
	hub *notify.Hub
}

func Initialize(ctx context.Context) {
	service.Initialize(ctx)

	Instance = New(service.Instance, notify.Instance)
}

func New(svc *service.Type, hub *notify.Hub) *Type {
	return &Type{svc: svc, hub: hub}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// abortErr translates a service error into an HTTP status + error body.
func abortErr(ctx *gin.Context, err error) {
	logger := gmw.GetLogger(ctx)

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		ctx.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: codeInvalidInput})
	case errors.Is(err, dao.ErrInvalidCursor):
		ctx.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: codeInvalidCursor})
	case errors.Is(err, dao.ErrNotFound):
		ctx.AbortWithStatusJSON(http.StatusNotFound, errorBody{Error: err.Error(), Code: codeNotFound})
	case errors.Is(err, dao.ErrStoreUnavailable):
		// transient backend outage, the client may retry
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: err.Error(), Code: codeStoreUnavailable})
	default:
		logger.Error("gallery request", zap.Error(err))
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error", Code: codeInternal})
	}
}

// UploadFile ingests one multipart-submitted file.
//
// POST /api/upload/file
// form fields: file, folder_name, relative_path, mime_type (optional)
func (c *Type) UploadFile(ctx *gin.Context) {
	if err := ctx.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		abortErr(ctx, errors.Wrapf(service.ErrInvalidInput, "parse form: %v", err))
		return
	}

	file, _, err := ctx.Request.FormFile("file")
	if err != nil {
		abortErr(ctx, errors.Wrapf(service.ErrInvalidInput, "missing file field: %v", err))
		return
	}
	defer file.Close() // nolint:errcheck

	content, err := io.ReadAll(file)
	if err != nil {
		abortErr(ctx, errors.Wrap(err, "read file content"))
		return
	}

	url, deduped, err := c.svc.Ingest(ctx.Request.Context(), dto.IngestArgs{
		FolderLabel:  ctx.Request.FormValue("folder_name"),
		RelativePath: ctx.Request.FormValue("relative_path"),
		ContentType:  ctx.Request.FormValue("mime_type"),
		Content:      content,
	})
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"download_url": url,
		"deduplicated": deduped,
	})
}

// ListFiles returns one page of a folder's files.
//
// GET /api/files/:folderID?pageSize=&pageToken=&filter=
// The root folder is addressed as "-".
func (c *Type) ListFiles(ctx *gin.Context) {
	folderID := ctx.Param("folderID")
	if folderID == "-" {
		folderID = service.RootFolderID
	}

	pageSize := 0
	if raw := ctx.Query("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			abortErr(ctx, errors.Wrapf(service.ErrInvalidInput, "bad pageSize `%s`", raw))
			return
		}
		pageSize = parsed
	}

	files, nextCursor, err := c.svc.ListFiles(ctx.Request.Context(),
		folderID, pageSize, ctx.Query("pageToken"), ctx.Query("filter"))
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data":          files,
		"nextPageToken": nextCursor,
	})
}

// Folders lists every folder.
//
// GET /api/folders
func (c *Type) Folders(ctx *gin.Context) {
	folders, err := c.svc.Folders(ctx.Request.Context())
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": folders})
}

// FolderName resolves a folder id to its label.
//
// GET /api/folder-name/:folderID
func (c *Type) FolderName(ctx *gin.Context) {
	name, err := c.svc.FolderName(ctx.Request.Context(), ctx.Param("folderID"))
	if err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"name": name})
}

// UpdateFileMetadata corrects the content type of a file record.
//
// POST /api/update/file-metadata  {"id": ..., "mime_type": ...}
func (c *Type) UpdateFileMetadata(ctx *gin.Context) {
	var req struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abortErr(ctx, errors.Wrapf(service.ErrInvalidInput, "bad request body: %v", err))
		return
	}

	if err := c.svc.CorrectContentType(ctx.Request.Context(), req.ID, req.MimeType); err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "file metadata updated"})
}

// DeleteFile removes a file's blob and record together.
//
// POST /api/delete/file  {"id": ...}
func (c *Type) DeleteFile(ctx *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abortErr(ctx, errors.Wrapf(service.ErrInvalidInput, "bad request body: %v", err))
		return
	}

	if err := c.svc.DeleteFile(ctx.Request.Context(), req.ID); err != nil {
		abortErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

// WS subscribes the caller to catalog change events.
//
// GET /ws
func (c *Type) WS(ctx *gin.Context) {
	c.hub.ServeWS(ctx.Writer, ctx.Request)
}
