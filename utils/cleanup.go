package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/storage"
)

// StartUploadSweeper periodically removes uploads that no post claimed within ttl.
// It stops when ctx is cancelled.
func StartUploadSweeper(ctx context.Context, db *gorm.DB, blobs storage.BlobStore, ttl, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := SweepOrphanUploads(ctx, db, blobs, time.Now().Add(-ttl))
				if err != nil {
					Logger.Warn("upload sweep failed", zap.Error(err))
				} else if n > 0 {
					Logger.Info("upload sweep", zap.Int("removed", n))
				}
			}
		}
	}()
}

// SweepOrphanUploads deletes unattached uploads created before cutoff, blob first, and returns how many rows went.
// A row whose blob cannot be deleted is kept for the next round.
func SweepOrphanUploads(ctx context.Context, db *gorm.DB, blobs storage.BlobStore, cutoff time.Time) (int, error) {
	var items []models.UploadedFile
	if err := db.WithContext(ctx).
		Where("attached = ? AND created_at <= ?", false, cutoff).
		Limit(100).Find(&items).Error; err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		if err := blobs.Delete(ctx, it.URL); err != nil {
			Logger.Warn("orphan blob delete failed", zap.String("blob", it.BlobName), zap.Error(err))
			continue
		}
		if err := db.WithContext(ctx).Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
			Logger.Warn("orphan upload row delete failed", zap.Uint("id", it.ID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
