package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/drive-gallery/gallery/internal/web/gallery/controller"
	"github.com/drive-gallery/gallery/internal/web/gallery/dao"
	"github.com/drive-gallery/gallery/internal/web/gallery/model"
	"github.com/drive-gallery/gallery/internal/web/gallery/notify"
	"github.com/drive-gallery/gallery/internal/web/gallery/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memCatalog backs the HTTP tests with an in-memory document store
// honoring the listing contract (createdAt descending, id tiebreak,
// cursor names the last returned record).
type memCatalog struct {
	mu      sync.Mutex
	files   map[string]*model.File
	folders map[string]*model.Folder

	// listErr, when set, fails every ListFiles call
	listErr error
}

func (c *memCatalog) setListErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

func newMemCatalog() *memCatalog {
	return &memCatalog{files: map[string]*model.File{}, folders: map[string]*model.Folder{}}
}

func (c *memCatalog) FileByHash(ctx context.Context, hash string) (*model.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.files {
		if f.Hash == hash {
			return f, nil
		}
	}
	return nil, errors.WithStack(dao.ErrNotFound)
}

func (c *memCatalog) File(ctx context.Context, id string) (*model.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.files[id]; ok {
		return f, nil
	}
	return nil, errors.WithStack(dao.ErrNotFound)
}

func (c *memCatalog) CreateFile(ctx context.Context, file *model.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[file.ID] = file
	return nil
}

func (c *memCatalog) DeleteFile(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, id)
	return nil
}

func (c *memCatalog) UpdateFileContentType(ctx context.Context, id, contentType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[id]
	if !ok {
		return errors.WithStack(dao.ErrNotFound)
	}
	f.ContentType = contentType
	f.Category = model.Categorize(contentType)
	return nil
}

func (c *memCatalog) FolderByName(ctx context.Context, name string) (*model.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.folders {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, errors.WithStack(dao.ErrNotFound)
}

func (c *memCatalog) Folder(ctx context.Context, id string) (*model.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.folders[id]; ok {
		return f, nil
	}
	return nil, errors.WithStack(dao.ErrNotFound)
}

func (c *memCatalog) CreateFolder(ctx context.Context, folder *model.Folder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.folders[folder.ID] = folder
	return nil
}

func (c *memCatalog) Folders(ctx context.Context) ([]*model.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var folders []*model.Folder
	for _, f := range c.folders {
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].CreatedAt.After(folders[j].CreatedAt)
	})
	return folders, nil
}

func (c *memCatalog) ListFiles(ctx context.Context,
	folderID string, pageSize int, cursor, category string,
) ([]*model.File, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return nil, "", c.listErr
	}

	var matched []*model.File
	for _, f := range c.files {
		if f.FolderID != folderID {
			continue
		}
		if category != "" && f.Category != category {
			continue
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	start := 0
	if cursor != "" {
		boundary, ok := c.files[cursor]
		if !ok {
			return nil, "", errors.WithStack(dao.ErrInvalidCursor)
		}
		start = len(matched)
		for i, f := range matched {
			if boundary.CreatedAt.After(f.CreatedAt) ||
				(boundary.CreatedAt.Equal(f.CreatedAt) && f.ID < boundary.ID) {
				start = i
				break
			}
		}
	}

	rest := matched[start:]
	if len(rest) > pageSize {
		return rest[:pageSize], rest[pageSize-1].ID, nil
	}
	return rest, "", nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Put(ctx context.Context, path string, content []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = content
	return path, nil
}

func (s *memStore) PublicURL(path string) string { return "https://cdn.test/" + path }

func (s *memStore) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

type nopBroadcast struct{}

func (nopBroadcast) Broadcast(event any) {}

func newTestRouter() *gin.Engine {
	engine, _ := newTestRouterWithCatalog()
	return engine
}

func newTestRouterWithCatalog() (*gin.Engine, *memCatalog) {
	catalog := newMemCatalog()
	svc := service.New(catalog, &memStore{objects: map[string][]byte{}}, nopBroadcast{})
	ctl := controller.New(svc, notify.NewHub())

	engine := gin.New()
	engine.POST("/api/upload/file", ctl.UploadFile)
	engine.GET("/api/files/:folderID", ctl.ListFiles)
	engine.GET("/api/folders", ctl.Folders)
	engine.GET("/api/folder-name/:folderID", ctl.FolderName)
	engine.POST("/api/update/file-metadata", ctl.UpdateFileMetadata)
	engine.POST("/api/delete/file", ctl.DeleteFile)

	return engine, catalog
}

func doReq(t *testing.T, engine *gin.Engine, method, path, contentType string, body *bytes.Buffer) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func uploadReq(t *testing.T, folder, relativePath string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", relativePath)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("folder_name", folder))
	require.NoError(t, writer.WriteField("relative_path", relativePath))
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUploadThenListRoundTrip(t *testing.T) {
	t.Parallel()
	engine := newTestRouter()

	body, contentType := uploadReq(t, "trip", "pics/sunset.jpg", []byte("jpeg bytes"))
	rec, resp := doReq(t, engine, http.MethodPost, "/api/upload/file", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, resp["deduplicated"].(bool))
	firstURL := resp["download_url"].(string)
	require.NotEmpty(t, firstURL)

	rec, resp = doReq(t, engine, http.MethodGet, "/api/folders", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	folders := resp["data"].([]any)
	require.Len(t, folders, 1)
	folderID := folders[0].(map[string]any)["id"].(string)

	rec, resp = doReq(t, engine, http.MethodGet, "/api/files/"+folderID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := resp["data"].([]any)
	require.Len(t, files, 1)
	require.Equal(t, "sunset.jpg", files[0].(map[string]any)["name"].(string))
	require.Empty(t, resp["nextPageToken"].(string))

	// same bytes again, even under another folder, is a dedup hit
	body, contentType = uploadReq(t, "other", "copy.jpg", []byte("jpeg bytes"))
	rec, resp = doReq(t, engine, http.MethodPost, "/api/upload/file", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp["deduplicated"].(bool))
	require.Equal(t, firstURL, resp["download_url"].(string))
}

func TestUploadMissingFileField(t *testing.T) {
	t.Parallel()
	engine := newTestRouter()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("folder_name", "x"))
	require.NoError(t, writer.Close())

	rec, resp := doReq(t, engine, http.MethodPost, "/api/upload/file", writer.FormDataContentType(), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_INPUT", resp["code"].(string))
}

func TestListFilesRejectsStaleCursor(t *testing.T) {
	t.Parallel()
	engine := newTestRouter()

	rec, resp := doReq(t, engine, http.MethodGet, "/api/files/-?pageToken=gone", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_CURSOR", resp["code"].(string))
}

func TestListFilesStoreOutageReturns503(t *testing.T) {
	t.Parallel()
	engine, catalog := newTestRouterWithCatalog()

	catalog.setListErr(errors.Wrap(dao.ErrStoreUnavailable, "firestore unreachable"))

	rec, resp := doReq(t, engine, http.MethodGet, "/api/files/-", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "STORE_UNAVAILABLE", resp["code"].(string))
}

func TestListFilesRejectsBadPageSize(t *testing.T) {
	t.Parallel()
	engine := newTestRouter()

	for _, raw := range []string{"0", "-3", "nan"} {
		rec, resp := doReq(t, engine, http.MethodGet, "/api/files/-?pageSize="+raw, "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, raw)
		require.Equal(t, "INVALID_INPUT", resp["code"].(string), raw)
	}
}

func TestListFilesPaginatesViaQueryParams(t *testing.T) {
	t.Parallel()
	engine := newTestRouter()

	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		body, contentType := uploadReq(t, "paged", name, []byte("content of "+name))
		rec, _ := doReq(t, engine, http.MethodPost, "/api/upload/file", contentType, body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	_, resp := doReq(t, engine, http.MethodGet, "/api/folders", "", nil)
	folderID := resp["data"].([]any)[0].(map[string]any)["id"].(string)

	var seen []string
	cursor := ""
	for range [3]struct{}{} {
		path := "/api/files/" + folderID + "?pageSize=2"
		if cursor != "" {
			path += "&pageToken=" + cursor
		}
		rec, page := doReq(t, engine, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		for _, f := range page["data"].([]any) {
			seen = append(seen, f.(map[string]any)["name"].(string))
		}
		cursor = page["nextPageToken"].(string)
		if cursor == "" {
			break
		}
	}

	require.Len(t, seen, 3)
	require.ElementsMatch(t, []string{"a.bin", "b.bin", "c.bin"}, seen)
}

func TestFolderNameUnknownFolder(t *testing.T) {
	t.Parallel()
	engine := newTestRouter()

	rec, resp := doReq(t, engine, http.MethodGet, "/api/folder-name/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", resp["code"].(string))
}

func TestUpdateMetadataAndDelete(t *testing.T) {
	t.Parallel()
	engine := newTestRouter()

	body, contentType := uploadReq(t, "edits", "clip", []byte("raw clip bytes"))
	rec, _ := doReq(t, engine, http.MethodPost, "/api/upload/file", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp := doReq(t, engine, http.MethodGet, "/api/folders", "", nil)
	folderID := resp["data"].([]any)[0].(map[string]any)["id"].(string)
	_, resp = doReq(t, engine, http.MethodGet, "/api/files/"+folderID, "", nil)
	fileID := resp["data"].([]any)[0].(map[string]any)["id"].(string)

	update := bytes.NewBufferString(`{"id":"` + fileID + `","mime_type":"video/mp4"}`)
	rec, _ = doReq(t, engine, http.MethodPost, "/api/update/file-metadata", "application/json", update)
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp = doReq(t, engine, http.MethodGet, "/api/files/"+folderID+"?filter=video", "", nil)
	require.Len(t, resp["data"].([]any), 1)

	del := bytes.NewBufferString(`{"id":"` + fileID + `"}`)
	rec, _ = doReq(t, engine, http.MethodPost, "/api/delete/file", "application/json", del)
	require.Equal(t, http.StatusOK, rec.Code)

	_, resp = doReq(t, engine, http.MethodGet, "/api/files/"+folderID, "", nil)
	require.Empty(t, resp["data"])

	rec, resp = doReq(t, engine, http.MethodPost, "/api/delete/file", "application/json",
		bytes.NewBufferString(`{"id":"`+fileID+`"}`))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", resp["code"].(string))
}
