// Package dto defines the request/response shapes of the gallery API.
package dto

// Type filter values accepted by the file listing.
const (
	FilterAll   = "all"
	FilterImage = "image"
	FilterVideo = "video"
)

// IngestArgs carries one file submission into the ingestion pipeline.
type IngestArgs struct {
	// FolderLabel is the human folder label; empty files the upload at
	// the root.
	FolderLabel string
	// RelativePath is the path of the file inside the submitted folder,
	// its last segment becomes the display name. Required.
	RelativePath string
	// ContentType is optional; sniffed from the leading bytes when
	// absent.
	ContentType string
	Content     []byte
}

// ChangeEvent is broadcast to subscribers whenever the catalog changes.
// Subscribers only need "something changed, re-sync".
type ChangeEvent struct {
	Type     string `json:"type"`
	FolderID string `json:"folderId"`
	FileID   string `json:"fileId,omitempty"`
}
