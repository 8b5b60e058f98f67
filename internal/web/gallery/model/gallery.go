// Package model defines the catalog documents stored in Firestore.
package model

import (
	"strings"
	"time"
)

const (
	// CategoryImage marks files whose content type is image/*.
	CategoryImage = "image"
	// CategoryVideo marks files whose content type is video/*.
	CategoryVideo = "video"
	// CategoryOther marks everything else.
	CategoryOther = "other"
)

// File is one ingested file. Created once by the ingestion pipeline;
// only ContentType (and the derived Category) may change afterwards,
// through the metadata-correction path.
type File struct {
	ID          string `json:"id" firestore:"id"`
	Name        string `json:"name" firestore:"name"`
	ContentType string `json:"mimeType" firestore:"mimeType"`
	// Category is the top-level MIME class of ContentType, kept as its
	// own field so type filtering is an equality query that composes
	// with the createdAt ordering.
	Category string `json:"category" firestore:"category"`
	// StoragePath is the object key in the blob store, immutable.
	StoragePath string `json:"storagePath" firestore:"storagePath"`
	// DownloadURL is the durable public URL for the bytes, immutable.
	DownloadURL string `json:"downloadUrl" firestore:"downloadUrl"`
	FolderID    string `json:"folderId" firestore:"folderId"`
	// Hash is the content fingerprint, unique across the whole catalog.
	Hash      string    `json:"hash" firestore:"hash"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Folder is a logical grouping of files, created on first use of a
// label and never updated.
type Folder struct {
	ID        string    `json:"id" firestore:"id"`
	Name      string    `json:"name" firestore:"name"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// Categorize maps a MIME type to its catalog category.
func Categorize(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return CategoryImage
	case strings.HasPrefix(contentType, "video/"):
		return CategoryVideo
	default:
		return CategoryOther
	}
}
