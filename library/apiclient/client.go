// Package apiclient is the HTTP client for the gallery REST API, used
// by the uploader and the interactive browser.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/drive-gallery/gallery/internal/web/gallery/model"
)

// APIError is a non-2xx response from the gallery API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsInvalidCursor reports whether err is the server rejecting a stale
// page cursor. The pager uses this to restart from page 1.
func IsInvalidCursor(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "INVALID_CURSOR"
}

type Client struct {
	base string
	hc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimSuffix(baseURL, "/"),
		hc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer resp.Body.Close() // nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jerr := json.Unmarshal(body, apiErr); jerr != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "unmarshal response")
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}

	return c.do(req, out)
}

// ListFiles fetches one page of a folder's files. An empty folderID
// addresses the root.
func (c *Client) ListFiles(ctx context.Context,
	folderID string, pageSize int, cursor, filter string,
) (files []model.File, nextCursor string, err error) {
	if folderID == "" {
		folderID = "-"
	}

	query := url.Values{}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	if cursor != "" {
		query.Set("pageToken", cursor)
	}
	if filter != "" {
		query.Set("filter", filter)
	}

	var resp struct {
		Data          []model.File `json:"data"`
		NextPageToken string       `json:"nextPageToken"`
	}
	path := "/api/files/" + url.PathEscape(folderID)
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	if err = c.get(ctx, path, &resp); err != nil {
		return nil, "", errors.Wrapf(err, "list files of folder `%s`", folderID)
	}

	return resp.Data, resp.NextPageToken, nil
}

// Folders fetches every folder, newest first.
func (c *Client) Folders(ctx context.Context) ([]model.Folder, error) {
	var resp struct {
		Data []model.Folder `json:"data"`
	}
	if err := c.get(ctx, "/api/folders", &resp); err != nil {
		return nil, errors.Wrap(err, "list folders")
	}

	return resp.Data, nil
}

// FolderName resolves a folder id to its label.
func (c *Client) FolderName(ctx context.Context, folderID string) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}
	if err := c.get(ctx, "/api/folder-name/"+url.PathEscape(folderID), &resp); err != nil {
		return "", errors.Wrapf(err, "resolve folder `%s`", folderID)
	}

	return resp.Name, nil
}

// UploadFile submits one file for ingestion and returns its durable
// download URL. deduplicated is true when the server already knew the
// content and no new record was created.
func (c *Client) UploadFile(ctx context.Context,
	folderName, relativePath, contentType string, content []byte,
) (downloadURL string, deduplicated bool, err error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", relativePath)
	if err != nil {
		return "", false, errors.Wrap(err, "create form file")
	}
	if _, err = part.Write(content); err != nil {
		return "", false, errors.Wrap(err, "write form file")
	}

	_ = writer.WriteField("folder_name", folderName)
	_ = writer.WriteField("relative_path", relativePath)
	if contentType != "" {
		_ = writer.WriteField("mime_type", contentType)
	}
	if err = writer.Close(); err != nil {
		return "", false, errors.Wrap(err, "close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/upload/file", body)
	if err != nil {
		return "", false, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp struct {
		DownloadURL  string `json:"download_url"`
		Deduplicated bool   `json:"deduplicated"`
	}
	if err = c.do(req, &resp); err != nil {
		return "", false, errors.Wrapf(err, "upload `%s`", relativePath)
	}

	return resp.DownloadURL, resp.Deduplicated, nil
}
