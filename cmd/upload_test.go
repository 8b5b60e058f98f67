package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newUploadTestCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestRunUploadSubmitsEveryFile(t *testing.T) {
	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"download_url": "https://cdn.test/x",
			"deduplicated": false,
		})
	}))
	defer srv.Close()

	dir := writeTree(t, map[string]string{
		"a.txt":      "alpha",
		"sub/b.txt":  "beta",
		"sub/c.jpeg": "gamma",
	})

	err := runUpload(newUploadTestCmd(), dir, "batch", srv.URL, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, received.Load())
}

func TestRunUploadReportsFailureCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom","code":"INTERNAL"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := writeTree(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})

	err := runUpload(newUploadTestCmd(), dir, "batch", srv.URL, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 of 2 files failed")
}

func TestRunUploadWalkFailureReturnsError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	err := runUpload(newUploadTestCmd(), dir, "batch", "http://127.0.0.1:0", 2)
	require.Error(t, err)
}
