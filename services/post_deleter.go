package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/storage"
	"github.com/cppla/boardhub/utils"
)

// DeleteResult reports what a cascade delete removed.
type DeleteResult struct {
	PostID          uint  `json:"post_id"`
	CommentsRemoved int64 `json:"comments_removed"`
	RepliesRemoved  int64 `json:"replies_removed"`
	ImageRemoved    bool  `json:"image_removed"`
}

// PostDeleter removes a post together with its comments, replies and image.
type PostDeleter struct {
	db     *gorm.DB
	blobs  storage.BlobStore
	events utils.EventPublisher
}

func NewPostDeleter(db *gorm.DB, blobs storage.BlobStore, events utils.EventPublisher) *PostDeleter {
	return &PostDeleter{db: db, blobs: blobs, events: events}
}

// Delete runs the cascade in one transaction: ownership gate, blob, replies, comments, post.
//
// The blob store is not transactional. Its delete runs before any row is touched and a failure
// aborts everything, so rows never outlive a half-deleted image. The reverse window remains: once
// the blob is gone a later rollback or crash leaves the rows with a dangling image_url.
// No row lock is held between the ownership check and the deletes; a concurrent delete of the
// same post makes the loser observe NotFound.
func (d *PostDeleter) Delete(ctx context.Context, postID uint, caller Caller) (*DeleteResult, error) {
	res := &DeleteResult{PostID: postID}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound(40401, "post not found")
			}
			return Internal(50010, "failed to load post", err)
		}

		if !CanMutate(post.UserID, caller) {
			return Forbidden(40301, "you can only delete your own posts")
		}

		// Only an upload owned by the post's author is removed with it. A foreign
		// or unknown image_url is left in place.
		var upload *models.UploadedFile
		if post.ImageURL != nil && *post.ImageURL != "" {
			var rows []models.UploadedFile
			if err := tx.Where("url = ? AND user_id = ?", *post.ImageURL, post.UserID).Limit(1).Find(&rows).Error; err != nil {
				return Internal(50017, "failed to load upload record", err)
			}
			if len(rows) > 0 {
				upload = &rows[0]
			}
		}
		if upload != nil {
			if err := d.blobs.Delete(ctx, upload.URL); err != nil {
				return External(50011, "failed to delete associated image", err)
			}
			res.ImageRemoved = true
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", post.ID)
		r := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Reply{})
		if r.Error != nil {
			return Internal(50012, "failed to delete replies", r.Error)
		}
		res.RepliesRemoved = r.RowsAffected

		r = tx.Where("post_id = ?", post.ID).Delete(&models.Comment{})
		if r.Error != nil {
			return Internal(50013, "failed to delete comments", r.Error)
		}
		res.CommentsRemoved = r.RowsAffected

		if upload != nil {
			if err := tx.Delete(&models.UploadedFile{}, upload.ID).Error; err != nil {
				return Internal(50014, "failed to delete upload record", err)
			}
		}

		r = tx.Delete(&models.Post{}, post.ID)
		if r.Error != nil {
			return Internal(50015, "failed to delete post", r.Error)
		}
		if r.RowsAffected == 0 {
			return NotFound(40402, "post not found or already deleted")
		}
		return nil
	})
	if err != nil {
		var se *Error
		if !errors.As(err, &se) {
			err = Internal(50016, "failed to commit post deletion", err)
		}
		if KindOf(err) == KindExternal || KindOf(err) == KindInternal {
			utils.Logger.Error("cascade delete aborted",
				zap.Uint("post_id", postID),
				zap.Uint("caller_id", caller.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	utils.InvalidateByPrefix(ctx, utils.PostListCachePrefix)
	d.events.Publish(ctx, utils.Event{
		Type:    utils.EventPostDeleted,
		ActorID: caller.ID,
		Data: map[string]interface{}{
			"post_id":          res.PostID,
			"comments_removed": res.CommentsRemoved,
			"replies_removed":  res.RepliesRemoved,
			"image_removed":    res.ImageRemoved,
		},
	})
	utils.Logger.Info("post deleted",
		zap.Uint("post_id", postID),
		zap.Uint("caller_id", caller.ID),
		zap.Int64("comments", res.CommentsRemoved),
		zap.Int64("replies", res.RepliesRemoved),
	)
	return res, nil
}
