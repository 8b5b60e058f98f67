package cmd

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/drive-gallery/gallery/library/apiclient"
	"github.com/drive-gallery/gallery/library/log"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var uploadCMD = &cobra.Command{
	Use:   "upload",
	Short: "upload a local directory into a gallery folder",
	Long: `walk a local directory and submit every file to a running gallery API.

Each file is ingested independently: one failed upload does not abort
the rest of the batch. Files whose content the catalog already knows
are deduplicated server-side.`,
	Args: gcmd.NoExtraArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := cmd.Flags().GetString("path")
		if err != nil {
			return errors.Wrap(err, "get path flag")
		}
		folderName, err := cmd.Flags().GetString("folder-name")
		if err != nil {
			return errors.Wrap(err, "get folder-name flag")
		}
		apiURL, err := cmd.Flags().GetString("api-url")
		if err != nil {
			return errors.Wrap(err, "get api-url flag")
		}
		concurrency, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return errors.Wrap(err, "get concurrency flag")
		}

		return runUpload(cmd, dir, folderName, apiURL, concurrency)
	},
}

func init() {
	uploadCMD.Flags().String("path", "", "local directory to upload")
	uploadCMD.Flags().String("folder-name", "", "target logical folder label")
	uploadCMD.Flags().String("api-url", "http://localhost:8080", "gallery API base URL")
	uploadCMD.Flags().Int("concurrency", 4, "parallel uploads")
	_ = uploadCMD.MarkFlagRequired("path")

	rootCMD.AddCommand(uploadCMD)
}

func runUpload(cmd *cobra.Command, dir, folderName, apiURL string, concurrency int) error {
	cli := apiclient.New(apiURL)
	logger := log.Logger.Named("upload")

	var pool errgroup.Group
	if concurrency < 1 {
		concurrency = 1
	}
	pool.SetLimit(concurrency)

	var total int
	var failed atomic.Int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walk `%s`", path)
		}
		if info.IsDir() {
			return nil
		}

		relativePath, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.Wrapf(err, "relative path of `%s`", path)
		}
		relativePath = filepath.ToSlash(relativePath)

		total++
		pool.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				failed.Add(1)
				logger.Error("read file", zap.String("path", path), zap.Error(err))
				return nil // one failed file must not abort the batch
			}

			url, deduped, err := cli.UploadFile(cmd.Context(),
				folderName, relativePath,
				http.DetectContentType(content), content)
			if err != nil {
				failed.Add(1)
				logger.Error("upload file", zap.String("path", relativePath), zap.Error(err))
				return nil
			}

			logger.Info("uploaded",
				zap.String("path", relativePath),
				zap.Bool("deduplicated", deduped),
				zap.String("url", url))
			return nil
		})

		return nil
	})
	if err != nil {
		// drain in-flight uploads before reporting the walk failure
		if waitErr := pool.Wait(); waitErr != nil {
			logger.Error("wait uploads", zap.Error(waitErr))
		}

		return errors.WithStack(err)
	}

	if err = pool.Wait(); err != nil {
		return errors.Wrap(err, "wait uploads")
	}

	logger.Info("batch done",
		zap.Int("total", total),
		zap.Int64("failed", failed.Load()),
		zap.String("folder", strings.TrimSpace(folderName)))
	if n := failed.Load(); n > 0 {
		return errors.Errorf("%d of %d files failed to upload", n, total)
	}

	return nil
}
