package main

import (
	"context"
	"log"

	_ "procurehub/api/swagger" // swagger docs
	"procurehub/internal/config"
	"procurehub/internal/database"
	"procurehub/internal/handler"
	"procurehub/internal/kvstore"
	"procurehub/internal/middleware"
	"procurehub/internal/repository"
	"procurehub/internal/service"
	"procurehub/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           ProcureHub API
// @version         1.0
// @description     Procurement requirements API: draft auto-save, requirement wizard, multi-level approval workflows, and vendor publishing.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	ctx := context.Background()

	// The demo credential registry must survive a database outage, so it
	// lives in a memory-backed KV store regardless of DB health. Drafts and
	// pricing sessions use the DB-backed store when the DB is up.
	registry := kvstore.NewMemoryStore()
	if err := service.SeedDemoUsers(ctx, registry); err != nil {
		log.Fatalf("Failed to seed demo users: %v", err)
	}

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.SeedPermissions(db); err != nil {
		log.Printf("WARNING: failed to seed permissions: %v", err)
	}
	middleware.InitPermissionMiddleware(db)
	cache := kvstore.NewGormStore(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	matrixRepo := repository.NewMatrixRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	optionRepo := repository.NewOptionRepository(db)

	userService := service.NewUserService(userRepo, db, registry)
	requirementService := service.NewRequirementService(txm, requirementRepo, workflowRepo, userRepo, auditRepo)
	draftService := service.NewDraftService(draftRepo, cache, auditRepo)
	approvalService := service.NewApprovalService(txm, workflowRepo, matrixRepo, requirementRepo, auditRepo, wsHub)
	optionService := service.NewOptionService(optionRepo)
	auditService := service.NewAuditService(auditRepo)
	pricingSessions := kvstore.NewPricingSessionStore(cache)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	requirementHandler := handler.NewRequirementHandler(requirementService)
	draftHandler := handler.NewDraftHandler(draftService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	optionHandler := handler.NewOptionHandler(optionService)
	pricingHandler := handler.NewPricingHandler(pricingSessions)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Cors.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	requirementHandler.RegisterRoutes(router.Group(""))
	draftHandler.RegisterRoutes(router.Group(""))
	approvalHandler.RegisterRoutes(router.Group(""))
	optionHandler.RegisterRoutes(router.Group(""))
	pricingHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
