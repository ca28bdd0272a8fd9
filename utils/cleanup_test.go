package utils

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/boardhub/config"
	"github.com/cppla/boardhub/models"
)

type recordingBlobs struct {
	deleted []string
	failOn  string
}

func (r *recordingBlobs) Put(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("not used")
}

func (r *recordingBlobs) Delete(_ context.Context, url string) error {
	if url == r.failOn {
		return errors.New("delete failed")
	}
	r.deleted = append(r.deleted, url)
	return nil
}

func TestSweepOrphanUploads(t *testing.T) {
	db, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", SQLitePath: ":memory:", LogLevel: "silent"}, models.All()...)
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	old := time.Now().Add(-48 * time.Hour)
	rows := []models.UploadedFile{
		{UserID: 1, BlobName: "old.png", URL: "/u/old.png", CreatedAt: old},
		{UserID: 1, BlobName: "stuck.png", URL: "/u/stuck.png", CreatedAt: old},
		{UserID: 1, BlobName: "claimed.png", URL: "/u/claimed.png", Attached: true, CreatedAt: old},
		{UserID: 1, BlobName: "fresh.png", URL: "/u/fresh.png"},
	}
	require.NoError(t, db.Create(&rows).Error)

	blobs := &recordingBlobs{failOn: "/u/stuck.png"}
	n, err := SweepOrphanUploads(context.Background(), db, blobs, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"/u/old.png"}, blobs.deleted)

	var left []string
	require.NoError(t, db.Model(&models.UploadedFile{}).Order("blob_name").Pluck("blob_name", &left).Error)
	assert.Equal(t, []string{"claimed.png", "fresh.png", "stuck.png"}, left)
}
