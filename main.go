package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/boardhub/config"
	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/routes"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/storage"
	"github.com/cppla/boardhub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := services.PromoteAdmins(ctx, db, cfg.AdminUsernames); err != nil {
		utils.Logger.Error("admin bootstrap failed", zap.Error(err))
	} else if n > 0 {
		utils.Logger.Info("promoted configured admins", zap.Int64("count", n))
	}

	blobs, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL, int64(cfg.UploadMaxSizeMB)<<20)
	if err != nil {
		utils.Sugar.Fatalf("blob store: %v", err)
	}
	events := utils.NewEventPublisher(cfg)

	r := routes.SetupRouter(db, blobs, events)

	utils.StartUploadSweeper(ctx, db, blobs, time.Duration(cfg.UploadOrphanTTLMinutes)*time.Minute, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r, cancel, func() {
		if err := events.Close(); err != nil {
			utils.Logger.Warn("event publisher close failed", zap.Error(err))
		}
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
