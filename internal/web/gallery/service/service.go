// Package service implements the gallery catalog: the content-addressed
// ingestion pipeline and the cursor-paginated query engine.
package service

import (
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Laisky/errors/v2"

	"github.com/drive-gallery/gallery/internal/web/gallery/dao"
	"github.com/drive-gallery/gallery/internal/web/gallery/dto"
	"github.com/drive-gallery/gallery/internal/web/gallery/model"
	"github.com/drive-gallery/gallery/internal/web/gallery/notify"
	"github.com/drive-gallery/gallery/library/db/s3"
	"github.com/drive-gallery/gallery/library/fingerprint"
	"github.com/drive-gallery/gallery/library/log"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500

	// RootFolderID is the sentinel folder id of uncategorized files.
	RootFolderID = ""

	folderNameCacheSize = 128
)

// Catalog is the document-store surface the service relies on.
// *dao.Catalog implements it over Firestore.
type Catalog interface {
	FileByHash(ctx context.Context, hash string) (*model.File, error)
	File(ctx context.Context, id string) (*model.File, error)
	CreateFile(ctx context.Context, file *model.File) error
	DeleteFile(ctx context.Context, id string) error
	UpdateFileContentType(ctx context.Context, id, contentType string) error
	FolderByName(ctx context.Context, name string) (*model.Folder, error)
	Folder(ctx context.Context, id string) (*model.Folder, error)
	CreateFolder(ctx context.Context, folder *model.Folder) error
	Folders(ctx context.Context) ([]*model.Folder, error)
	ListFiles(ctx context.Context, folderID string, pageSize int, cursor, category string) ([]*model.File, string, error)
}

// ContentStore is the blob-store surface the service relies on.
// *s3.Store implements it.
type ContentStore interface {
	Put(ctx context.Context, path string, content []byte, contentType string) (string, error)
	PublicURL(path string) string
	Remove(ctx context.Context, path string) error
}

// Broadcaster pushes opaque change events to all current subscribers,
// fire and forget.
type Broadcaster interface {
	Broadcast(event any)
}

var Instance *Type

type Type struct {
	catalog  Catalog
	store    ContentStore
	notifier Broadcaster

	// folder documents are immutable, so names cache indefinitely
	folderNames *lru.Cache[string, string]
}

func Initialize(ctx context.Context) {
	dao.Initialize(ctx)
	notify.Initialize(ctx)

	store, err := s3.NewStore(ctx, s3.Config{
		Endpoint:      gconfig.Shared.GetString("settings.gallery.s3.endpoint"),
		AccessKey:     gconfig.Shared.GetString("settings.gallery.s3.access_key"),
		SecretKey:     gconfig.Shared.GetString("settings.gallery.s3.secret_key"),
		Bucket:        gconfig.Shared.GetString("settings.gallery.s3.bucket"),
		Secure:        gconfig.Shared.GetBool("settings.gallery.s3.secure"),
		PublicBaseURL: gconfig.Shared.GetString("settings.gallery.s3.public_base_url"),
	})
	if err != nil {
		log.Logger.Panic("create blob store", zap.Error(err))
	}
	store.EnsurePublicRead(ctx)

	Instance = New(dao.Instance, store, notify.Instance)
}

func New(catalog Catalog, store ContentStore, notifier Broadcaster) *Type {
	folderNames, err := lru.New[string, string](folderNameCacheSize)
	if err != nil {
		log.Logger.Panic("create folder name cache", zap.Error(err))
	}

	return &Type{
		catalog:     catalog,
		store:       store,
		notifier:    notifier,
		folderNames: folderNames,
	}
}

// Ingest runs the ingestion pipeline for one submitted file and returns
// its durable download URL. Identical bytes are never stored twice:
// re-submitting known content returns the existing record's URL with
// deduped set, no matter which folder or path it was submitted under
// (first writer wins; the duplicate's folder association is discarded).
func (s *Type) Ingest(ctx context.Context, args dto.IngestArgs) (url string, deduped bool, err error) {
	logger := gmw.GetLogger(ctx)

	if args.RelativePath == "" {
		return "", false, errors.Wrap(ErrInvalidInput, "relative path is required")
	}

	hash := fingerprint.Hash(args.Content)

	// dedup before any write: known content short-circuits the whole
	// pipeline
	existing, err := s.catalog.FileByHash(ctx, hash)
	if err == nil {
		logger.Info("content already ingested",
			zap.String("hash", hash),
			zap.String("file", existing.ID))
		return existing.DownloadURL, true, nil
	}
	if !errors.Is(err, dao.ErrNotFound) {
		return "", false, errors.Wrap(err, "dedup lookup")
	}

	folderID, err := s.ResolveFolder(ctx, args.FolderLabel)
	if err != nil {
		return "", false, errors.WithStack(err)
	}

	contentType := args.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(args.Content)
	}

	storagePath := strings.TrimPrefix(args.RelativePath, "/")
	if folderID != RootFolderID {
		storagePath = folderID + "/" + storagePath
	}

	addr, err := s.store.Put(ctx, storagePath, args.Content, contentType)
	if err != nil {
		return "", false, &blobWriteError{storagePath: storagePath, cause: err}
	}
	url = s.store.PublicURL(addr)

	file := &model.File{
		ID:          uuid.New().String(),
		Name:        path.Base(args.RelativePath),
		ContentType: contentType,
		Category:    model.Categorize(contentType),
		StoragePath: addr,
		DownloadURL: url,
		FolderID:    folderID,
		Hash:        hash,
		CreatedAt:   time.Now().UTC(),
	}

	if err = s.catalog.CreateFile(ctx, file); err != nil {
		// compensation: the blob exists without a record, try to take
		// it back out. An orphaned blob is preferred over reporting
		// success without a durable record.
		perr := &PersistError{StoragePath: addr, cause: err}
		if delErr := s.store.Remove(ctx, addr); delErr != nil {
			perr.OrphanedBlob = true
			logger.Error("delete orphaned blob",
				zap.String("path", addr),
				zap.Error(delErr))
		}

		return "", false, perr
	}

	s.notifier.Broadcast(dto.ChangeEvent{
		Type:     "files-changed",
		FolderID: folderID,
		FileID:   file.ID,
	})

	logger.Info("ingested file",
		zap.String("file", file.ID),
		zap.String("folder", folderID),
		zap.String("hash", hash))
	return url, false, nil
}

// ResolveFolder maps a folder label to its folder id, creating the
// folder record on first use. The empty label resolves to the root
// sentinel.
//
// Lookup-then-create is not atomic: two concurrent first uploads under
// the same label may both create a folder. The catalog tolerates the
// duplicate rather than serializing every ingestion.
func (s *Type) ResolveFolder(ctx context.Context, label string) (string, error) {
	if label == "" {
		return RootFolderID, nil
	}

	folder, err := s.catalog.FolderByName(ctx, label)
	if err == nil {
		return folder.ID, nil
	}
	if !errors.Is(err, dao.ErrNotFound) {
		return "", errors.Wrapf(err, "lookup folder `%s`", label)
	}

	folder = &model.Folder{
		ID:        uuid.New().String(),
		Name:      label,
		CreatedAt: time.Now().UTC(),
	}
	if err = s.catalog.CreateFolder(ctx, folder); err != nil {
		return "", errors.Wrapf(err, "create folder `%s`", label)
	}

	s.folderNames.Add(folder.ID, folder.Name)
	gmw.GetLogger(ctx).Info("created folder",
		zap.String("folder", folder.ID),
		zap.String("name", label))
	return folder.ID, nil
}

// ListFiles returns one page of a folder's catalog, newest first, plus
// the opaque cursor of the next page (empty on the last page). filter
// is one of all/image/video; cursors are only valid for the
// (folderID, filter) combination they were issued for.
func (s *Type) ListFiles(ctx context.Context,
	folderID string, pageSize int, cursor, filter string,
) ([]*model.File, string, error) {
	var category string
	switch filter {
	case "", dto.FilterAll:
		category = ""
	case dto.FilterImage:
		category = model.CategoryImage
	case dto.FilterVideo:
		category = model.CategoryVideo
	default:
		return nil, "", errors.Wrapf(ErrInvalidInput, "unknown filter `%s`", filter)
	}

	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	files, nextCursor, err := s.catalog.ListFiles(ctx, folderID, pageSize, cursor, category)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}

	return files, nextCursor, nil
}

// FolderName resolves a folder id to its label, cached since folder
// records never change.
func (s *Type) FolderName(ctx context.Context, folderID string) (string, error) {
	if folderID == RootFolderID {
		return "", nil
	}

	if name, ok := s.folderNames.Get(folderID); ok {
		return name, nil
	}

	folder, err := s.catalog.Folder(ctx, folderID)
	if err != nil {
		return "", errors.WithStack(err)
	}

	s.folderNames.Add(folderID, folder.Name)
	return folder.Name, nil
}

// Folders lists every folder, newest first.
func (s *Type) Folders(ctx context.Context) ([]*model.Folder, error) {
	folders, err := s.catalog.Folders(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return folders, nil
}

// CorrectContentType fixes the recorded content type of a file, the
// only mutation a file record ever sees.
func (s *Type) CorrectContentType(ctx context.Context, fileID, contentType string) error {
	if fileID == "" || contentType == "" {
		return errors.Wrap(ErrInvalidInput, "file id and content type are required")
	}

	if err := s.catalog.UpdateFileContentType(ctx, fileID, contentType); err != nil {
		return errors.WithStack(err)
	}

	s.notifier.Broadcast(dto.ChangeEvent{Type: "file-updated", FileID: fileID})
	return nil
}

// DeleteFile removes a file's blob and record together. The blob goes
// first: a record pointing at missing bytes is worse than an unlisted
// blob, and blob removal is idempotent if the record delete fails and
// the caller retries.
func (s *Type) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return errors.Wrap(ErrInvalidInput, "file id is required")
	}

	file, err := s.catalog.File(ctx, fileID)
	if err != nil {
		return errors.WithStack(err)
	}

	if err = s.store.Remove(ctx, file.StoragePath); err != nil {
		return errors.Wrapf(err, "remove blob of file `%s`", fileID)
	}

	if err = s.catalog.DeleteFile(ctx, fileID); err != nil {
		return errors.Wrapf(err, "delete record of file `%s`", fileID)
	}

	s.notifier.Broadcast(dto.ChangeEvent{
		Type:     "files-changed",
		FolderID: file.FolderID,
		FileID:   fileID,
	})
	return nil
}
