package router

import (
	"equipment-web/internal/config"
	"equipment-web/internal/handler"
	"equipment-web/internal/middleware"
	"equipment-web/internal/repository"
	"equipment-web/internal/service"
	"equipment-web/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redisClient *redis.Client,
	cfg *config.Config,
) {
	// Repositories
	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewImportJobRepository(db)
	equipRepo := repository.NewEquipmentRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	catRepo := repository.NewCategoryRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, cfg)
	excelService := service.NewExcelService()
	refLoader := service.NewRefDataLoader(deptRepo, catRepo, equipRepo)

	// Asynq client (optional - only if Redis is available)
	var enqueuer service.TaskEnqueuer
	if redisClient != nil {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
		enqueuer = worker.NewAsynqEnqueuer(asynqClient)
	}

	controller := service.NewImportController(jobRepo, excelService, equipRepo, refLoader, enqueuer, redisClient, cfg.UploadPath)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	importHandler := handler.NewImportHandler(controller, jobRepo, excelService, cfg)
	equipmentHandler := handler.NewEquipmentHandler(equipRepo)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/auth/me", authHandler.Me)

	imports := protected.Group("/imports")
	imports.Get("/", importHandler.ListImports)
	imports.Get("/statistics", importHandler.GetStatistics)
	imports.Get("/template", importHandler.DownloadTemplate)
	imports.Post("/", importHandler.CreateImport)
	imports.Get("/:id", importHandler.GetImport)
	imports.Post("/:id/start", importHandler.StartImport)
	imports.Post("/:id/pause", importHandler.PauseImport)
	imports.Post("/:id/resume", importHandler.ResumeImport)
	imports.Post("/:id/cancel", importHandler.CancelImport)
	imports.Get("/:id/error-report", importHandler.DownloadErrorReport)

	// Direct record inspection is admin-scoped; regular users see their
	// rows through the job's detailed results.
	equipment := protected.Group("/equipment", middleware.AdminOnly())
	equipment.Get("/:id", equipmentHandler.GetEquipment)
}
