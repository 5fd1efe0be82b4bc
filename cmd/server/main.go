// Package main 是服务端的入口点
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"arzuno-builder-server/internal/cache"
	"arzuno-builder-server/internal/config"
	"arzuno-builder-server/internal/handler"
	"arzuno-builder-server/internal/llm"
	"arzuno-builder-server/internal/media"
	"arzuno-builder-server/internal/middleware"
	"arzuno-builder-server/internal/model"
	"arzuno-builder-server/internal/repository"
	"arzuno-builder-server/internal/service"
	"arzuno-builder-server/internal/websocket"
	"arzuno-builder-server/pkg/jwt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load("./configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		log.Fatalf("Failed to init redis: %v", err)
	}

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化 Repository 层
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	frameRepo := repository.NewFrameRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// 初始化外部服务客户端
	llmClient := llm.NewClient(cfg.AI)
	mediaService := media.NewService(cfg.ImageKit)

	// 初始化 Service 层
	authService := service.NewAuthService(userRepo, redisCache, jwtService)
	userService := service.NewUserService(userRepo)
	projectService := service.NewProjectService(projectRepo, frameRepo, chatRepo)
	frameService := service.NewFrameService(frameRepo, chatRepo, redisCache)
	chatService := service.NewChatService(chatRepo, frameRepo)

	// 初始化 WebSocket Hub 和生成服务
	// Hub 是预览文档的接收方，生成服务是渲染器的提供方，
	// 两者互相依赖，渲染器提供方在构造后注入
	wsHub := websocket.NewHub(frameService, mediaService, redisCache)
	generationService := service.NewGenerationService(
		service.NewLLMStreamer(llmClient),
		frameService,
		chatService,
		redisCache,
		wsHub,
	)
	wsHub.SetRendererProvider(generationService)
	go wsHub.Run() // 在单独的 goroutine 中运行

	// 初始化 Handler 层
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	projectHandler := handler.NewProjectHandler(projectService)
	frameHandler := handler.NewFrameHandler(frameService)
	chatHandler := handler.NewChatHandler(chatService)
	generateHandler := handler.NewGenerateHandler(generationService)
	mediaHandler := handler.NewMediaHandler(mediaService)
	exportHandler := handler.NewExportHandler(frameService)
	wsHandler := websocket.NewHandler(wsHub, cfg.JWT.Secret)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())                // 恢复 panic
	router.Use(middleware.LoggerMiddleware()) // 请求日志
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(cfg.Server.CORS)))

	// 注册路由
	registerRoutes(
		router,
		jwtService,
		redisCache,
		authHandler,
		userHandler,
		projectHandler,
		frameHandler,
		chatHandler,
		generateHandler,
		mediaHandler,
		exportHandler,
		wsHandler,
	)

	// 创建 HTTP 服务器
	// 生成接口是长连接的 SSE 流，不设置 WriteTimeout
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 创建关闭上下文，设置超时
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// 关闭 Redis 连接
	if err := redisCache.Close(); err != nil {
		log.Printf("Failed to close redis: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase 初始化数据库连接
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 构建 DSN (Data Source Name)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.MySQL.Username,
		cfg.MySQL.Password,
		cfg.MySQL.Host,
		cfg.MySQL.Port,
		cfg.MySQL.Database,
		cfg.MySQL.Charset,
	)

	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	// 连接数据库
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MySQL.MaxLifetime) * time.Second)

	log.Println("Database connected successfully")
	return db, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Frame{},
		&model.Chat{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// registerRoutes 注册所有路由
func registerRoutes(
	router *gin.Engine,
	jwtService *jwt.JWTService,
	redisCache *cache.RedisCache,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	projectHandler *handler.ProjectHandler,
	frameHandler *handler.FrameHandler,
	chatHandler *handler.ChatHandler,
	generateHandler *handler.GenerateHandler,
	mediaHandler *handler.MediaHandler,
	exportHandler *handler.ExportHandler,
	wsHandler *websocket.Handler,
) {
	// 健康检查，顺带探测 Redis 连通性
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := redisCache.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 路由组
	v1 := router.Group("/api/v1")

	// 认证相关（无需登录）
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh) // 刷新 Token
	}

	// 登出需要带有效 Token
	authed := v1.Group("/auth")
	authed.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		authed.POST("/logout", authHandler.Logout)
	}

	// 用户相关（需要登录）
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		users.GET("/me", userHandler.GetProfile)
		users.PUT("/me", userHandler.UpdateProfile)
	}

	// 项目相关（需要登录）
	projects := v1.Group("/projects")
	projects.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		projects.POST("", projectHandler.Create)
		projects.GET("", projectHandler.List)
		projects.GET("/:projectId", projectHandler.Get)
		projects.DELETE("/:projectId", projectHandler.Delete)
	}

	// 画框相关（需要登录）
	frames := v1.Group("/frames")
	frames.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		frames.GET("/:frameId", frameHandler.Get)
		frames.PUT("/:frameId", frameHandler.Save)
		frames.GET("/:frameId/chat", chatHandler.Get)
		frames.PUT("/:frameId/chat", chatHandler.Save)
		frames.POST("/:frameId/generate", generateHandler.Generate)
		frames.GET("/:frameId/export", exportHandler.Export)
	}

	// 媒体相关（需要登录）
	mediaGroup := v1.Group("/media")
	mediaGroup.Use(middleware.AuthMiddleware(jwtService, redisCache))
	{
		mediaGroup.GET("/auth", mediaHandler.AuthParams)
		mediaGroup.POST("/upload", mediaHandler.Upload)
		mediaGroup.POST("/generate", mediaHandler.Generate)
	}

	// WebSocket 预览通道
	// 鉴权走查询参数里的 Token，匿名连接只能看不能编辑
	router.GET("/ws/preview/:frameId", wsHandler.ServePreview)
}
