package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clipcast/api/internal/ai"
	"clipcast/api/internal/config"
	"clipcast/api/internal/gate"
	"clipcast/api/internal/middleware"
	"clipcast/api/internal/publisher"
	"clipcast/api/internal/repository"
	"clipcast/api/internal/service"
	"clipcast/api/internal/storage"
	"clipcast/api/internal/trends"
)

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	gate         *gate.Gate
	authService  *service.AuthService
	videoService *service.VideoService
	postService  *service.PostService
	adminService *service.AdminService
	trends       *trends.Client
	activity     *repository.ActivityRepository
	db           *pgxpool.Pool
	cache        *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	postRepo := repository.NewPostRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	principals := repository.NewPrincipalStore(userRepo, adminRepo)
	accessGate := gate.New(principals, cfg.Security.JWTAccessSecret, log)

	captionsClient := ai.NewClient(cfg.AI)
	publisherClient := publisher.NewClient(cfg.Publisher)
	trendsClient := trends.NewClient(cfg.Trends, cache)

	activityLog := service.NewActivityLogger(activityRepo, log)
	auth := service.NewAuthService(userRepo, adminRepo, tokenRepo, cfg, log)
	videos := service.NewVideoService(videoRepo, store, captionsClient, cache, cfg, log)
	posts := service.NewPostService(postRepo, videoRepo, store, publisherClient, cache, cfg, log)
	admin := service.NewAdminService(userRepo, adminRepo, videoRepo, postRepo, tokenRepo, settingRepo, store, activityLog, log)

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		gate:         accessGate,
		authService:  auth,
		videoService: videos,
		postService:  posts,
		adminService: admin,
		trends:       trendsClient,
		activity:     activityRepo,
		db:           db,
		cache:        cache,
	}
}

// PostService exposes the post service for the job scheduler.
func (h HandlerSet) PostService() *service.PostService {
	return h.postService
}

// Routes mounts every endpoint group. Access checks live on the
// groups themselves so the required role and permissions of a surface
// are visible at the mount site.
func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)

		me := v1.Group("/auth")
		me.Use(middleware.Gate(h.gate))
		me.GET("/me", h.Me)
		me.POST("/logout", h.Logout)
	}

	user := v1.Group("")
	user.Use(middleware.Gate(h.gate))
	{
		user.POST("/videos/upload", h.UploadVideo)
		user.GET("/videos", h.ListVideos)
		user.GET("/videos/:id", h.GetVideo)
		user.DELETE("/videos/:id", h.DeleteVideo)
		user.POST("/videos/:id/captions", h.GenerateCaptions)

		user.POST("/posts", h.SchedulePost)
		user.GET("/posts", h.ListPosts)
		user.DELETE("/posts/:id", h.CancelPost)

		user.GET("/trends", h.Trends)
	}

	admin := v1.Group("/admin")
	admin.POST("/auth/login", h.AdminLogin)
	admin.POST("/auth/refresh", h.Refresh)

	adminRoles := []gate.Role{gate.RoleSuperAdmin, gate.RoleAdmin, gate.RoleModerator}

	users := admin.Group("/users")
	users.Use(middleware.Gate(h.gate, gate.RequireRole(adminRoles...), gate.RequirePermission(gate.PermUsers)))
	users.GET("", h.AdminListUsers)
	users.POST("/:id/ban", h.AdminBanUser)
	users.POST("/:id/suspend", h.AdminSuspendUser)
	users.POST("/:id/reactivate", h.AdminReactivateUser)
	users.DELETE("/:id", h.AdminDeleteUser)

	media := admin.Group("/media")
	media.Use(middleware.Gate(h.gate, gate.RequireRole(adminRoles...), gate.RequirePermission(gate.PermMedia, gate.PermVideos)))
	media.GET("", h.AdminListMedia)
	media.DELETE("/:id", h.AdminDeleteMedia)

	posts := admin.Group("/posts")
	posts.Use(middleware.Gate(h.gate, gate.RequireRole(adminRoles...), gate.RequirePermission(gate.PermPosts)))
	posts.GET("", h.AdminListPosts)

	settings := admin.Group("/settings")
	settings.Use(middleware.Gate(h.gate, gate.RequireRole(adminRoles...), gate.RequirePermission(gate.PermSettings)))
	settings.GET("", h.AdminListSettings)
	settings.PUT("/:key", h.AdminPutSetting)

	activity := admin.Group("/activity")
	activity.Use(middleware.Gate(h.gate, gate.RequireRole(adminRoles...), gate.RequirePermission(gate.PermAnalytics)))
	activity.GET("", h.AdminListActivity)

	admins := admin.Group("/admins")
	admins.Use(middleware.Gate(h.gate, gate.RequireRole(gate.RoleSuperAdmin)))
	admins.GET("", h.AdminListAdmins)
	admins.POST("", h.AdminCreateAdmin)
	admins.PUT("/:id/role", h.AdminUpdateAdminRole)
	admins.PUT("/:id/active", h.AdminSetAdminActive)
}
