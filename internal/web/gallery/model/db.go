package model

import (
	"context"
	"path/filepath"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"google.golang.org/api/option"

	fsDB "github.com/drive-gallery/gallery/library/db/firestore"
	"github.com/drive-gallery/gallery/library/log"
)

var GalleryDB *fsDB.DB

func Initialize(ctx context.Context) {
	defer log.Logger.Info("connected gcp firestore")

	// fall back to application default credentials when no credential
	// file is configured
	var opts []option.ClientOption
	if credFile := gconfig.Shared.GetString("settings.gallery.credential_file"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(filepath.Join(
			gconfig.Shared.GetString("cfg_dir"), credFile)))
	}

	var err error
	if GalleryDB, err = fsDB.NewDB(
		ctx,
		gconfig.Shared.GetString("settings.gallery.project_id"),
		opts...,
	); err != nil {
		log.Logger.Panic("create firestore client", zap.Error(err))
	}
}
