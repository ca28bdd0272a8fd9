package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/boardhub/config"
	"github.com/cppla/boardhub/controllers"
	"github.com/cppla/boardhub/middleware"
	"github.com/cppla/boardhub/services"
	"github.com/cppla/boardhub/storage"
	"github.com/cppla/boardhub/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, blobs storage.BlobStore, events utils.EventPublisher) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.GinLogger(accessLogger(cfg)))
	r.Use(utils.GinRecovery(utils.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if local, ok := blobs.(*storage.LocalStore); ok && strings.HasPrefix(local.BaseURL, "/") {
		r.Static(local.BaseURL, local.Dir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.OK(ctx, gin.H{"status": "ok"})
	})

	deleter := services.NewPostDeleter(db, blobs, events)
	authController := controllers.NewAuthController(db, events)
	postController := controllers.NewPostController(db, deleter)
	commentController := controllers.NewCommentController(db)
	replyController := controllers.NewReplyController(db)
	userController := controllers.NewUserController(db, events)
	uploadController := controllers.NewUploadController(db, blobs, int64(cfg.UploadMaxSizeMB)<<20)
	configController := controllers.NewConfigController()

	authRequired := middleware.AuthRequired(db)
	authLimit := middleware.RateLimit(cfg.RateLimitPerMinute)
	writeLimit := middleware.RateLimit(cfg.RateLimitPerMinute)

	api := r.Group("/api")

	api.POST("/register", authLimit, authController.Register)
	api.POST("/login", authLimit, authController.Login)

	// Public reads
	api.GET("/communities", configController.GetCommunities)
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/posts/:id/comments", commentController.ListComments)
	api.GET("/comments/:id", commentController.GetComment)
	api.GET("/comments/:id/replies", replyController.ListReplies)
	api.GET("/replies/:id", replyController.GetReply)

	protected := api.Group("")
	protected.Use(authRequired)
	protected.POST("/logout", authController.Logout)
	protected.GET("/me", authController.Me)
	protected.PUT("/update-password", authLimit, authController.UpdatePassword)

	writes := protected.Group("")
	writes.Use(writeLimit)
	writes.POST("/upload-image", uploadController.UploadImage)
	writes.POST("/posts", postController.CreatePost)
	writes.PUT("/posts/:id", postController.UpdatePost)
	writes.DELETE("/posts/:id", postController.DeletePost)
	writes.POST("/posts/:id/comments", commentController.CreateComment)
	writes.PUT("/comments/:id", commentController.UpdateComment)
	writes.DELETE("/comments/:id", commentController.DeleteComment)
	writes.POST("/comments/:id/replies", replyController.CreateReply)
	writes.PUT("/replies/:id", replyController.UpdateReply)
	writes.DELETE("/replies/:id", replyController.DeleteReply)

	admin := protected.Group("/users")
	admin.Use(middleware.AdminRequired())
	admin.GET("", userController.ListUsers)
	admin.GET("/:id", userController.GetUser)
	admin.PUT("/:id", userController.UpdateUser)
	admin.DELETE("/:id", userController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}

// accessLogger writes request lines to GinPath, falling back to the application logger.
func accessLogger(cfg config.AppConfig) *zap.Logger {
	if gin.Mode() == gin.TestMode || cfg.GinPath == "" {
		return utils.Logger
	}
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err != nil {
		utils.Logger.Warn("gin access log unavailable, using app logger", zap.Error(err))
		return utils.Logger
	}
	return gl
}
