package controllers

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/utils"
)

// UserController exposes account administration. Every route is admin only.
type UserController struct {
	db     *gorm.DB
	events utils.EventPublisher
}

func NewUserController(db *gorm.DB, events utils.EventPublisher) *UserController {
	return &UserController{db: db, events: events}
}

// ListUsers returns all accounts ordered by username.
func (u *UserController) ListUsers(ctx *gin.Context) {
	users := []models.User{}
	if err := u.db.WithContext(ctx.Request.Context()).Order("username ASC").Find(&users).Error; err != nil {
		respondError(ctx, services.Internal(50050, "failed to list users", err))
		return
	}
	utils.OK(ctx, users)
}

func (u *UserController) GetUser(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40050, "user")
	if err != nil {
		respondError(ctx, err)
		return
	}
	user, err := u.find(u.db.WithContext(ctx.Request.Context()), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.OK(ctx, user)
}

// UpdateUser rewrites username, email and role. Role changes apply on the target's next request.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40050, "user")
	if err != nil {
		respondError(ctx, err)
		return
	}

	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Email    string `json:"email" binding:"required,email"`
		Role     string `json:"role" binding:"required,oneof=user admin"`
	}
	if err := bindJSON(ctx, &req, 40051); err != nil {
		respondError(ctx, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if l := utf8.RuneCountInString(req.Username); l < 3 || l > 64 {
		respondError(ctx, services.Validation(40003, "username must be 3-64 characters"))
		return
	}

	db := u.db.WithContext(ctx.Request.Context())
	user, err := u.find(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var taken int64
	if err := db.Model(&models.User{}).
		Where("(username = ? OR email = ?) AND id <> ?", req.Username, req.Email, id).
		Count(&taken).Error; err != nil {
		respondError(ctx, services.Internal(50052, "failed to check existing users", err))
		return
	}
	if taken > 0 {
		respondError(ctx, services.Conflict(40902, "username or email already taken by another user"))
		return
	}

	err = db.Model(user).Updates(map[string]interface{}{
		"username": req.Username,
		"email":    req.Email,
		"role":     req.Role,
	}).Error
	if err != nil {
		if services.IsDuplicateKey(err) {
			respondError(ctx, services.Conflict(40902, "username or email already taken by another user"))
			return
		}
		respondError(ctx, services.Internal(50053, "failed to update user", err))
		return
	}
	user.Username, user.Email, user.Role = req.Username, req.Email, req.Role

	caller, _ := currentCaller(ctx)
	utils.Logger.Info("user updated by admin",
		zap.Uint("user_id", user.ID),
		zap.Uint("admin_id", caller.ID),
		zap.String("role", user.Role),
	)
	utils.OK(ctx, gin.H{
		"message": "user updated successfully",
		"user":    userResponse(*user),
	})
}

// DeleteUser removes an account that no longer owns any content.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	id, err := parseID(ctx, "id", 40050, "user")
	if err != nil {
		respondError(ctx, err)
		return
	}
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if id == caller.ID {
		respondError(ctx, services.Validation(40054, "you cannot delete your own account"))
		return
	}

	db := u.db.WithContext(ctx.Request.Context())
	user, err := u.find(db, id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	r := db.Delete(&models.User{}, id)
	if r.Error != nil {
		if services.IsForeignKeyViolation(r.Error) {
			respondError(ctx, services.Conflict(40903, "user still owns content"))
			return
		}
		respondError(ctx, services.Internal(50054, "failed to delete user", r.Error))
		return
	}
	if r.RowsAffected == 0 {
		respondError(ctx, services.NotFound(40405, "user not found"))
		return
	}

	u.events.Publish(ctx.Request.Context(), utils.Event{
		Type:    utils.EventUserDeleted,
		ActorID: caller.ID,
		Data:    map[string]interface{}{"user_id": user.ID, "username": user.Username},
	})
	utils.Message(ctx, "user deleted successfully")
}

func (u *UserController) find(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NotFound(40405, "user not found")
		}
		return nil, services.Internal(50051, "failed to load user", err)
	}
	return &user, nil
}
