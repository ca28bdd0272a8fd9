package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/models"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the role as read from the database on this request.
	ContextRoleKey = "role"
	// ContextCallerKey stores the full services.Caller.
	ContextCallerKey = "caller"
)

// AuthRequired verifies the bearer token and reloads the user so role changes apply immediately.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				abort(ctx, http.StatusUnauthorized, 40104, "token expired")
				return
			}
			abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		var user models.User
		err = db.WithContext(ctx.Request.Context()).
			Select("id", "username", "role").
			First(&user, claims.UserID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(ctx, http.StatusUnauthorized, 40106, "user no longer exists")
				return
			}
			utils.Logger.Error("auth user reload failed", zap.Uint("user_id", claims.UserID), zap.Error(err))
			abort(ctx, http.StatusInternalServerError, 50001, "internal server error during authentication")
			return
		}

		caller := services.Caller{ID: user.ID, Username: user.Username, Role: user.Role}
		ctx.Set(ContextUserIDKey, caller.ID)
		ctx.Set(ContextUsernameKey, caller.Username)
		ctx.Set(ContextRoleKey, caller.Role)
		ctx.Set(ContextCallerKey, caller)
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		caller, ok := CurrentCaller(ctx)
		if !ok {
			abort(ctx, http.StatusUnauthorized, 40107, "unauthorized")
			return
		}
		if !caller.IsAdmin() {
			abort(ctx, http.StatusForbidden, 40300, "administrator privileges required")
			return
		}
		ctx.Next()
	}
}

// CurrentCaller returns the identity attached by AuthRequired.
func CurrentCaller(ctx *gin.Context) (services.Caller, bool) {
	v, ok := ctx.Get(ContextCallerKey)
	if !ok {
		return services.Caller{}, false
	}
	caller, ok := v.(services.Caller)
	return caller, ok && caller.ID != 0
}

func abort(ctx *gin.Context, status, code int, msg string) {
	utils.Error(ctx, status, code, msg)
	ctx.Abort()
}
