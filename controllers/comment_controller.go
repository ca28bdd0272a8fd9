package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/utils"
)

// CommentController manages first-level comments on posts.
type CommentController struct {
	db *gorm.DB
}

func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

type textRequest struct {
	Content string `json:"content" binding:"required"`
}

// bindText reads {"content": "..."} and returns the sanitized, non-empty text.
func bindText(ctx *gin.Context, code int, label string) (string, error) {
	var req textRequest
	if err := bindJSON(ctx, &req, code); err != nil {
		return "", err
	}
	text := utils.Sanitize(req.Content)
	if text == "" {
		return "", services.Validation(code+1, label+" content is required")
	}
	return text, nil
}

// ListComments returns a post's comments oldest first. A missing post is 404.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, err := parseID(ctx, "id", 40020, "post")
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := c.db.WithContext(ctx.Request.Context())
	if err := ensureExists(db, &models.Post{}, postID, services.NotFound(40401, "post not found"), 50020); err != nil {
		respondError(ctx, err)
		return
	}

	comments := []models.CommentView{}
	if err := commentViewQuery(db).
		Where("c.post_id = ?", postID).
		Order("c.created_at ASC, c.id ASC").
		Scan(&comments).Error; err != nil {
		respondError(ctx, services.Internal(50031, "failed to list comments", err))
		return
	}
	utils.OK(ctx, comments)
}

// CreateComment adds a comment to an existing post.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID, err := parseID(ctx, "id", 40020, "post")
	if err != nil {
		respondError(ctx, err)
		return
	}
	text, err := bindText(ctx, 40031, "comment")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := c.db.WithContext(ctx.Request.Context())
	if err := ensureExists(db, &models.Post{}, postID, services.NotFound(40401, "post not found"), 50020); err != nil {
		respondError(ctx, err)
		return
	}

	comment := models.Comment{PostID: postID, UserID: caller.ID, CommentText: text}
	if err := db.Create(&comment).Error; err != nil {
		// the post vanished between the check and the insert
		if services.IsForeignKeyViolation(err) {
			respondError(ctx, services.NotFound(40401, "post not found"))
			return
		}
		respondError(ctx, services.Internal(50032, "failed to create comment", err))
		return
	}
	invalidatePostLists(ctx)

	utils.Created(ctx, models.CommentView{
		ID:             comment.ID,
		PostID:         comment.PostID,
		UserID:         comment.UserID,
		CommentText:    comment.CommentText,
		CreatedAt:      comment.CreatedAt,
		UpdatedAt:      comment.UpdatedAt,
		AuthorUsername: caller.Username,
	})
}

func (c *CommentController) GetComment(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40030, "comment")
	if err != nil {
		respondError(ctx, err)
		return
	}
	view, err := loadCommentView(c.db.WithContext(ctx.Request.Context()), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, view)
}

// UpdateComment replaces the comment text. Owner or admin only.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40030, "comment")
	if err != nil {
		respondError(ctx, err)
		return
	}
	text, err := bindText(ctx, 40031, "comment")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := c.db.WithContext(ctx.Request.Context())
	comment, err := c.find(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !services.CanMutate(comment.UserID, caller) {
		respondError(ctx, services.Forbidden(40303, "you can only edit your own comments"))
		return
	}
	if err := db.Model(comment).Update("comment_text", text).Error; err != nil {
		respondError(ctx, services.Internal(50033, "failed to update comment", err))
		return
	}

	view, err := loadCommentView(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, view)
}

// DeleteComment removes the comment and its replies. Owner or admin only.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40030, "comment")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	err = c.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		comment, err := c.find(tx, id)
		if err != nil {
			return err
		}
		if !services.CanMutate(comment.UserID, caller) {
			return services.Forbidden(40304, "you can only delete your own comments")
		}
		// the FK cascades too; deleting explicitly keeps older schemas consistent
		if err := tx.Where("comment_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return services.Internal(50034, "failed to delete replies", err)
		}
		r := tx.Delete(&models.Comment{}, id)
		if r.Error != nil {
			return services.Internal(50035, "failed to delete comment", r.Error)
		}
		if r.RowsAffected == 0 {
			return services.NotFound(40403, "comment not found")
		}
		return nil
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePostLists(ctx)
	utils.Message(ctx, "comment deleted successfully")
}

func (c *CommentController) find(db *gorm.DB, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFound(40403, "comment not found")
		}
		return nil, services.Internal(50030, "failed to load comment", err)
	}
	return &comment, nil
}
