package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/storage"
	"github.com/cppla/boardhub/utils"
)

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

// UploadController stores post images in the blob store.
type UploadController struct {
	db       *gorm.DB
	blobs    storage.BlobStore
	maxBytes int64
}

func NewUploadController(db *gorm.DB, blobs storage.BlobStore, maxBytes int64) *UploadController {
	return &UploadController{db: db, blobs: blobs, maxBytes: maxBytes}
}

// UploadImage accepts multipart field "image" and returns the public URL.
// The upload stays unattached until a post references it.
func (u *UploadController) UploadImage(ctx *gin.Context) {
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		respondError(ctx, services.Validation(40060, "no file uploaded"))
		return
	}
	defer file.Close()

	limitMsg := fmt.Sprintf("file size exceeds %dMB", u.maxBytes/(1<<20))
	if header.Size > u.maxBytes {
		respondError(ctx, services.Validation(40061, limitMsg))
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		respondError(ctx, services.Internal(50060, "failed to read upload", err))
		return
	}
	head = head[:n]
	if n == 0 || !strings.HasPrefix(http.DetectContentType(head), "image/") {
		respondError(ctx, services.Validation(40062, "only image files are allowed"))
		return
	}

	name := storage.BlobName(header.Filename)
	url, err := u.blobs.Put(ctx.Request.Context(), name, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			respondError(ctx, services.Validation(40061, limitMsg))
			return
		}
		respondError(ctx, services.External(50061, "failed to store image", err))
		return
	}

	record := models.UploadedFile{UserID: caller.ID, BlobName: name, URL: url}
	if err := u.db.WithContext(ctx.Request.Context()).Create(&record).Error; err != nil {
		if derr := u.blobs.Delete(ctx.Request.Context(), url); derr != nil {
			utils.Logger.Warn("rollback of stored image failed", zap.String("blob", name), zap.Error(derr))
		}
		respondError(ctx, services.Internal(50062, "failed to record upload", err))
		return
	}

	utils.Logger.Info("image uploaded",
		zap.Uint("user_id", caller.ID),
		zap.String("blob", name),
		zap.Int64("size", header.Size),
	)
	utils.OK(ctx, gin.H{"imageUrl": url})
}
