// Package dao provides Firestore data access for the gallery catalog.
package dao

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/Laisky/errors/v2"

	"github.com/drive-gallery/gallery/internal/web/gallery/model"
	fsDB "github.com/drive-gallery/gallery/library/db/firestore"
)

const (
	colFiles   = "files"
	colFolders = "folders"
)

var (
	// ErrNotFound reports a missing document.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCursor reports a page cursor that no longer resolves,
	// most commonly because the boundary record behind it was deleted.
	ErrInvalidCursor = errors.New("invalid cursor")
)

var Instance *Catalog

type Catalog struct {
	db *fsDB.DB
}

func Initialize(ctx context.Context) {
	model.Initialize(ctx)

	Instance = New(model.GalleryDB)
}

func New(db *fsDB.DB) *Catalog {
	return &Catalog{db: db}
}

func (d *Catalog) filesCol() *firestore.CollectionRef {
	return d.db.Collection(colFiles)
}

func (d *Catalog) foldersCol() *firestore.CollectionRef {
	return d.db.Collection(colFolders)
}
