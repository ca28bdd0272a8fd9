package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/utils"
)

// PostController manages posts. Deletion goes through the cascade workflow.
type PostController struct {
	db      *gorm.DB
	deleter *services.PostDeleter
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, deleter *services.PostDeleter) *PostController {
	return &PostController{db: db, deleter: deleter}
}

// ListPosts returns posts newest first with author and thread counts, optionally filtered by community.
func (p *PostController) ListPosts(ctx *gin.Context) {
	community := strings.TrimSpace(ctx.Query("community"))
	page, pageSize, paged := parsePagination(ctx)

	cacheKey := fmt.Sprintf("%scommunity=%s:page=%d:size=%d:paged=%t", utils.PostListCachePrefix, community, page, pageSize, paged)
	var posts []models.PostView
	if utils.CacheGetJSON(ctx.Request.Context(), cacheKey, &posts) {
		utils.OK(ctx, posts)
		return
	}

	query := postViewQuery(p.db.WithContext(ctx.Request.Context())).Order("p.created_at DESC, p.id DESC")
	if community != "" {
		query = query.Where("p.community = ?", community)
	}
	if paged {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}
	if err := query.Scan(&posts).Error; err != nil {
		respondError(ctx, services.Internal(50021, "failed to list posts", err))
		return
	}
	if posts == nil {
		posts = []models.PostView{}
	}

	utils.CacheSetJSON(ctx.Request.Context(), cacheKey, posts, time.Minute)
	utils.OK(ctx, posts)
}

// GetPost returns a single post in the listing shape.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40020, "post")
	if err != nil {
		respondError(ctx, err)
		return
	}
	view, err := loadPostView(p.db.WithContext(ctx.Request.Context()), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, view)
}

// CreatePost allows authenticated users to create new posts.
// An imageUrl must name an unattached upload of the caller; the post claims it.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title     string `json:"title" binding:"required"`
		Content   string `json:"content" binding:"required"`
		ImageURL  string `json:"imageUrl" binding:"omitempty,max=1024"`
		Community string `json:"community" binding:"required,max=50"`
	}
	if err := bindJSON(ctx, &req, 40021); err != nil {
		respondError(ctx, err)
		return
	}

	title := utils.Sanitize(req.Title)
	content := utils.Sanitize(req.Content)
	community := strings.TrimSpace(req.Community)
	if title == "" || content == "" || community == "" {
		respondError(ctx, services.Validation(40022, "title, content, and community are required"))
		return
	}

	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	post := models.Post{
		UserID:    caller.ID,
		Title:     title,
		Content:   content,
		Community: community,
	}
	if img := strings.TrimSpace(req.ImageURL); img != "" {
		post.ImageURL = &img
	}

	err = p.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if post.ImageURL != nil {
			r := tx.Model(&models.UploadedFile{}).
				Where("url = ? AND user_id = ? AND attached = ?", *post.ImageURL, caller.ID, false).
				Update("attached", true)
			if r.Error != nil {
				return services.Internal(50024, "failed to claim uploaded image", r.Error)
			}
			if r.RowsAffected == 0 {
				return services.Validation(40023, "imageUrl must reference an unused image you uploaded")
			}
		}
		if err := tx.Create(&post).Error; err != nil {
			return services.Internal(50022, "failed to create post", err)
		}
		return nil
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	invalidatePostLists(ctx)

	utils.Logger.Info("post created",
		zap.Uint("post_id", post.ID),
		zap.Uint("user_id", caller.ID),
		zap.Bool("with_image", post.ImageURL != nil),
	)
	utils.Created(ctx, models.PostView{
		ID:             post.ID,
		UserID:         post.UserID,
		Title:          post.Title,
		Content:        post.Content,
		ImageURL:       post.ImageURL,
		Community:      post.Community,
		CreatedAt:      post.CreatedAt,
		UpdatedAt:      post.UpdatedAt,
		AuthorUsername: caller.Username,
	})
}

// UpdatePost changes title and content. Owner or admin only.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40020, "post")
	if err != nil {
		respondError(ctx, err)
		return
	}

	var req struct {
		Title   string `json:"title" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := bindJSON(ctx, &req, 40021); err != nil {
		respondError(ctx, err)
		return
	}
	title := utils.Sanitize(req.Title)
	content := utils.Sanitize(req.Content)
	if title == "" || content == "" {
		respondError(ctx, services.Validation(40024, "title and content are required"))
		return
	}

	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := p.db.WithContext(ctx.Request.Context())
	var post models.Post
	if err := db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, services.NotFound(40401, "post not found"))
			return
		}
		respondError(ctx, services.Internal(50020, "failed to load post", err))
		return
	}
	if !services.CanMutate(post.UserID, caller) {
		respondError(ctx, services.Forbidden(40302, "you can only edit your own posts"))
		return
	}

	r := db.Model(&post).Updates(map[string]interface{}{"title": title, "content": content})
	if r.Error != nil {
		respondError(ctx, services.Internal(50023, "failed to update post", r.Error))
		return
	}
	if r.RowsAffected == 0 {
		respondError(ctx, services.NotFound(40401, "post not found"))
		return
	}
	invalidatePostLists(ctx)

	view, err := loadPostView(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, view)
}

// DeletePost removes the post with everything under it and its image.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40020, "post")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	res, err := p.deleter.Delete(ctx.Request.Context(), id, caller)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, gin.H{"message": "post deleted", "result": res})
}
