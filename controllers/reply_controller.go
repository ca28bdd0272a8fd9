package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/utils"
)

// ReplyController manages replies to comments.
type ReplyController struct {
	db *gorm.DB
}

func NewReplyController(db *gorm.DB) *ReplyController {
	return &ReplyController{db: db}
}

// ListReplies returns a comment's replies oldest first. A missing comment yields an empty list.
func (r *ReplyController) ListReplies(ctx *gin.Context) {
	commentID, err := parseID(ctx, "id", 40030, "comment")
	if err != nil {
		respondError(ctx, err)
		return
	}

	replies := []models.ReplyView{}
	if err := replyViewQuery(r.db.WithContext(ctx.Request.Context())).
		Where("r.comment_id = ?", commentID).
		Order("r.created_at ASC, r.id ASC").
		Scan(&replies).Error; err != nil {
		respondError(ctx, services.Internal(50041, "failed to list replies", err))
		return
	}
	utils.OK(ctx, replies)
}

// CreateReply answers an existing comment.
func (r *ReplyController) CreateReply(ctx *gin.Context) {
	commentID, err := parseID(ctx, "id", 40030, "comment")
	if err != nil {
		respondError(ctx, err)
		return
	}
	text, err := bindText(ctx, 40041, "reply")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := r.db.WithContext(ctx.Request.Context())
	if err := ensureExists(db, &models.Comment{}, commentID, services.NotFound(40403, "comment not found"), 50030); err != nil {
		respondError(ctx, err)
		return
	}

	reply := models.Reply{CommentID: commentID, UserID: caller.ID, ReplyText: text}
	if err := db.Create(&reply).Error; err != nil {
		if services.IsForeignKeyViolation(err) {
			respondError(ctx, services.NotFound(40403, "comment not found"))
			return
		}
		respondError(ctx, services.Internal(50042, "failed to create reply", err))
		return
	}
	invalidatePostLists(ctx)

	utils.Created(ctx, models.ReplyView{
		ID:             reply.ID,
		CommentID:      reply.CommentID,
		UserID:         reply.UserID,
		ReplyText:      reply.ReplyText,
		CreatedAt:      reply.CreatedAt,
		UpdatedAt:      reply.UpdatedAt,
		AuthorUsername: caller.Username,
	})
}

func (r *ReplyController) GetReply(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40040, "reply")
	if err != nil {
		respondError(ctx, err)
		return
	}
	view, err := loadReplyView(r.db.WithContext(ctx.Request.Context()), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, view)
}

func (r *ReplyController) UpdateReply(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40040, "reply")
	if err != nil {
		respondError(ctx, err)
		return
	}
	text, err := bindText(ctx, 40041, "reply")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := r.db.WithContext(ctx.Request.Context())
	reply, err := r.find(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !services.CanMutate(reply.UserID, caller) {
		respondError(ctx, services.Forbidden(40305, "you can only edit your own replies"))
		return
	}
	if err := db.Model(reply).Update("reply_text", text).Error; err != nil {
		respondError(ctx, services.Internal(50043, "failed to update reply", err))
		return
	}

	view, err := loadReplyView(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, view)
}

func (r *ReplyController) DeleteReply(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40040, "reply")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := r.db.WithContext(ctx.Request.Context())
	reply, err := r.find(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !services.CanMutate(reply.UserID, caller) {
		respondError(ctx, services.Forbidden(40306, "you can only delete your own replies"))
		return
	}
	res := db.Delete(&models.Reply{}, id)
	if res.Error != nil {
		respondError(ctx, services.Internal(50044, "failed to delete reply", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		respondError(ctx, services.NotFound(40404, "reply not found"))
		return
	}
	invalidatePostLists(ctx)
	utils.Message(ctx, "reply deleted successfully")
}

func (r *ReplyController) find(db *gorm.DB, id uint) (*models.Reply, error) {
	var reply models.Reply
	if err := db.First(&reply, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFound(40404, "reply not found")
		}
		return nil, services.Internal(50040, "failed to load reply", err)
	}
	return &reply, nil
}
