package dao

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/Laisky/errors/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/drive-gallery/gallery/internal/web/gallery/model"
)

// FolderByName returns the folder labeled name.
func (d *Catalog) FolderByName(ctx context.Context, name string) (*model.Folder, error) {
	iter := d.foldersCol().Where("name", "==", name).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.Wrapf(ErrNotFound, "folder named `%s`", name)
	}
	if err != nil {
		return nil, storeErr(err, "query folder by name `%s`", name)
	}

	folder := new(model.Folder)
	if err = doc.DataTo(folder); err != nil {
		return nil, errors.Wrap(err, "unmarshal folder")
	}

	return folder, nil
}

// Folder returns a folder document by id.
func (d *Catalog) Folder(ctx context.Context, id string) (*model.Folder, error) {
	doc, err := d.foldersCol().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.Wrapf(ErrNotFound, "folder `%s`", id)
		}

		return nil, storeErr(err, "get folder `%s`", id)
	}

	folder := new(model.Folder)
	if err = doc.DataTo(folder); err != nil {
		return nil, errors.Wrap(err, "unmarshal folder")
	}

	return folder, nil
}

// CreateFolder writes a new folder document keyed by its id.
func (d *Catalog) CreateFolder(ctx context.Context, folder *model.Folder) error {
	if _, err := d.foldersCol().Doc(folder.ID).Set(ctx, folder); err != nil {
		return storeErr(err, "create folder `%s`", folder.ID)
	}

	return nil
}

// Folders lists every folder, newest first.
func (d *Catalog) Folders(ctx context.Context) (folders []*model.Folder, err error) {
	iter := d.foldersCol().OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, storeErr(err, "iterate folders")
		}

		folder := new(model.Folder)
		if err = doc.DataTo(folder); err != nil {
			return nil, errors.Wrap(err, "unmarshal folder")
		}

		folders = append(folders, folder)
	}

	return folders, nil
}
