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

// FileByHash returns the file whose content fingerprint equals hash.
// The fingerprint is unique across the whole catalog, so at most one
// document can match.
func (d *Catalog) FileByHash(ctx context.Context, hash string) (*model.File, error) {
	iter := d.filesCol().Where("hash", "==", hash).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.Wrapf(ErrNotFound, "file with hash `%s`", hash)
	}
	if err != nil {
		return nil, storeErr(err, "query file by hash `%s`", hash)
	}

	file := new(model.File)
	if err = doc.DataTo(file); err != nil {
		return nil, errors.Wrap(err, "unmarshal file")
	}

	return file, nil
}

// File returns a file document by id.
func (d *Catalog) File(ctx context.Context, id string) (*model.File, error) {
	doc, err := d.filesCol().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.Wrapf(ErrNotFound, "file `%s`", id)
		}

		return nil, storeErr(err, "get file `%s`", id)
	}

	file := new(model.File)
	if err = doc.DataTo(file); err != nil {
		return nil, errors.Wrap(err, "unmarshal file")
	}

	return file, nil
}

// CreateFile writes a new file document keyed by its id.
func (d *Catalog) CreateFile(ctx context.Context, file *model.File) error {
	if _, err := d.filesCol().Doc(file.ID).Set(ctx, file); err != nil {
		return storeErr(err, "create file `%s`", file.ID)
	}

	return nil
}

// DeleteFile removes a file document.
func (d *Catalog) DeleteFile(ctx context.Context, id string) error {
	if _, err := d.filesCol().Doc(id).Delete(ctx); err != nil {
		return storeErr(err, "delete file `%s`", id)
	}

	return nil
}

// UpdateFileContentType corrects the content type of an existing file.
// Both mimeType and the derived category change in one document update,
// the store's per-document atomicity keeps them consistent.
func (d *Catalog) UpdateFileContentType(ctx context.Context, id, contentType string) error {
	_, err := d.filesCol().Doc(id).Update(ctx, []firestore.Update{
		{Path: "mimeType", Value: contentType},
		{Path: "category", Value: model.Categorize(contentType)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.Wrapf(ErrNotFound, "file `%s`", id)
		}

		return storeErr(err, "update content type of file `%s`", id)
	}

	return nil
}

// ListFiles returns one page of a folder's files, newest first, and the
// cursor of the next page (empty on the last page).
//
// The cursor is the document id of the previous page's last record;
// iteration resumes strictly after it. category narrows the page to one
// MIME class, empty means no filter. Ties on createdAt break on the
// document id so a cursor chain never skips or repeats a record.
func (d *Catalog) ListFiles(ctx context.Context,
	folderID string, pageSize int, cursor, category string,
) (files []*model.File, nextCursor string, err error) {
	query := d.filesCol().
		Where("folderId", "==", folderID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)

	if category != "" {
		query = query.Where("category", "==", category)
	}

	if cursor != "" {
		boundary, err := d.filesCol().Doc(cursor).Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, "", errors.Wrapf(ErrInvalidCursor, "cursor `%s`", cursor)
			}

			return nil, "", storeErr(err, "resolve cursor `%s`", cursor)
		}

		query = query.StartAfter(boundary)
	}

	// fetch one extra record so a full final page still reports an
	// empty next cursor
	iter := query.Limit(pageSize + 1).Documents(ctx)
	defer iter.Stop()

	var hasMore bool
	var lastDocID string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, "", storeErr(err, "iterate files")
		}

		if len(files) == pageSize {
			hasMore = true
			break
		}

		file := new(model.File)
		if err = doc.DataTo(file); err != nil {
			return nil, "", errors.Wrap(err, "unmarshal file")
		}

		files = append(files, file)
		lastDocID = doc.Ref.ID
	}

	if hasMore {
		nextCursor = lastDocID
	}

	return files, nextCursor, nil
}
