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

// AuthController handles registration, login and the caller's own account.
type AuthController struct {
	db     *gorm.DB
	events utils.EventPublisher
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, events utils.EventPublisher) *AuthController {
	return &AuthController{db: db, events: events}
}

// Register creates a local account with role user. No token is issued.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := bindJSON(ctx, &req, 40001); err != nil {
		respondError(ctx, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := utf8.RuneCountInString(req.Username); l < 3 || l > 64 {
		respondError(ctx, services.Validation(40003, "username must be 3-64 characters"))
		return
	}

	db := a.db.WithContext(ctx.Request.Context())
	var taken int64
	if err := db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&taken).Error; err != nil {
		respondError(ctx, services.Internal(50002, "failed to check existing users", err))
		return
	}
	if taken > 0 {
		respondError(ctx, services.Conflict(40901, "username or email already exists"))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(ctx, services.Internal(50003, "failed to hash password", err))
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		// lost a race with a concurrent register
		if services.IsDuplicateKey(err) {
			respondError(ctx, services.Conflict(40901, "username or email already exists"))
			return
		}
		respondError(ctx, services.Internal(50004, "failed to create user", err))
		return
	}

	a.events.Publish(ctx.Request.Context(), utils.Event{
		Type:    utils.EventUserRegistered,
		ActorID: user.ID,
		Data:    map[string]interface{}{"user_id": user.ID, "username": user.Username},
	})

	utils.Created(ctx, gin.H{
		"message": "user registered successfully",
		"user":    userResponse(user),
	})
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := bindJSON(ctx, &req, 40006); err != nil {
		respondError(ctx, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, services.Internal(50005, "failed to load user", err))
			return
		}
		// same bcrypt cost as a real mismatch
		utils.CheckPasswordDummy(req.Password)
		respondError(ctx, services.Unauthenticated(40111, "invalid credentials"))
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		respondError(ctx, services.Unauthenticated(40111, "invalid credentials"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(ctx, services.Internal(50006, "failed to generate token", err))
		return
	}

	utils.OK(ctx, gin.H{
		"message": "login successful",
		"token":   token,
		"user":    userResponse(user),
	})
}

// Logout is stateless; the client drops its token.
func (a *AuthController) Logout(ctx *gin.Context) {
	utils.Message(ctx, "logged out successfully")
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, caller.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, services.UserVanished(40106, "user no longer exists"))
			return
		}
		respondError(ctx, services.Internal(50007, "failed to load user", err))
		return
	}
	utils.OK(ctx, gin.H{"user": userResponse(user)})
}

// UpdatePassword replaces the caller's password after checking the old one.
func (a *AuthController) UpdatePassword(ctx *gin.Context) {
	var req struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=6"`
	}
	if err := bindJSON(ctx, &req, 40007); err != nil {
		respondError(ctx, err)
		return
	}
	if req.NewPassword == req.OldPassword {
		respondError(ctx, services.Validation(40008, "new password must differ from the old one"))
		return
	}

	caller, err := currentCaller(ctx)
	if err != nil {
		respondError(ctx, err)
		return
	}

	db := a.db.WithContext(ctx.Request.Context())
	var user models.User
	if err := db.First(&user, caller.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(ctx, services.UserVanished(40106, "user no longer exists"))
			return
		}
		respondError(ctx, services.Internal(50007, "failed to load user", err))
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.OldPassword) {
		respondError(ctx, services.Unauthenticated(40112, "old password is incorrect"))
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		respondError(ctx, services.Internal(50003, "failed to hash password", err))
		return
	}
	if err := db.Model(&user).Update("password_hash", hash).Error; err != nil {
		respondError(ctx, services.Internal(50008, "failed to update password", err))
		return
	}

	utils.Logger.Info("password updated", zap.Uint("user_id", user.ID))
	utils.Message(ctx, "password updated successfully")
}
