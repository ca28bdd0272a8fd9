package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/middleware"
	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/utils"
)

func init() {
	// report fields by their JSON names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindJSON decodes the body into req and runs its binding rules.
// Every failure is a validation error carrying code.
func bindJSON(ctx *gin.Context, req interface{}, code int) error {
	err := ctx.ShouldBindJSON(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return services.Validation(code, fieldMessage(verrs[0]))
	}
	return services.Validation(code, "invalid request payload")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return "invalid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return "invalid " + field
}

// respondError maps err onto the JSON error envelope. Causes are logged, never returned.
func respondError(ctx *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = services.Internal(50000, "internal server error", err)
	}
	if se.Kind == services.KindInternal || se.Kind == services.KindExternal {
		utils.Logger.Error(se.Message,
			zap.Int("code", se.Code),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(se.Err),
		)
	}
	utils.Error(ctx, se.Kind.Status(), se.Code, se.Message)
}

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, param string, code int, label string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(param)), 10, 64)
	if err != nil || n == 0 {
		return 0, services.Validation(code, "invalid "+label+" id")
	}
	return uint(n), nil
}

func currentCaller(ctx *gin.Context) (services.Caller, error) {
	caller, ok := middleware.CurrentCaller(ctx)
	if !ok {
		return caller, services.Unauthenticated(40107, "unauthorized")
	}
	return caller, nil
}

// parsePagination returns ok=false when the client did not ask for a page.
func parsePagination(ctx *gin.Context) (page, pageSize int, ok bool) {
	page, pageSize = 1, 20
	pageStr, sizeStr := ctx.Query("page"), ctx.Query("page_size")
	if pageStr == "" && sizeStr == "" {
		return page, pageSize, false
	}
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize, true
}

func postViewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("posts AS p").
		Select(`p.id, p.user_id, p.title, p.content, p.image_url, p.community, p.created_at, p.updated_at,
			u.username AS author_username,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count,
			(SELECT COUNT(*) FROM replies r JOIN comments rc ON rc.id = r.comment_id WHERE rc.post_id = p.id) AS reply_count`).
		Joins("JOIN users u ON u.id = p.user_id")
}

func loadPostView(db *gorm.DB, id uint) (*models.PostView, error) {
	var rows []models.PostView
	if err := postViewQuery(db).Where("p.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, services.Internal(50020, "failed to load post", err)
	}
	if len(rows) == 0 {
		return nil, services.NotFound(40401, "post not found")
	}
	return &rows[0], nil
}

func commentViewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("comments AS c").
		Select("c.id, c.post_id, c.user_id, c.comment_text, c.created_at, c.updated_at, u.username AS author_username").
		Joins("JOIN users u ON u.id = c.user_id")
}

func loadCommentView(db *gorm.DB, id uint) (*models.CommentView, error) {
	var rows []models.CommentView
	if err := commentViewQuery(db).Where("c.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, services.Internal(50030, "failed to load comment", err)
	}
	if len(rows) == 0 {
		return nil, services.NotFound(40403, "comment not found")
	}
	return &rows[0], nil
}

func replyViewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("replies AS r").
		Select("r.id, r.comment_id, r.user_id, r.reply_text, r.created_at, r.updated_at, u.username AS author_username").
		Joins("JOIN users u ON u.id = r.user_id")
}

func loadReplyView(db *gorm.DB, id uint) (*models.ReplyView, error) {
	var rows []models.ReplyView
	if err := replyViewQuery(db).Where("r.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, services.Internal(50040, "failed to load reply", err)
	}
	if len(rows) == 0 {
		return nil, services.NotFound(40404, "reply not found")
	}
	return &rows[0], nil
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	}
}

func invalidatePostLists(ctx *gin.Context) {
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.PostListCachePrefix)
}

// ensureExists returns notFound when no row of model has the given primary key.
func ensureExists(db *gorm.DB, model interface{}, id uint, notFound error, internalCode int) error {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return services.Internal(internalCode, "failed to load record", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
