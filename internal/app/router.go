package app

import (
	"solveit_backend/docs"
	"solveit_backend/internal/config"
	"solveit_backend/internal/middleware"
	"solveit_backend/internal/model"
	"solveit_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要登录的通用接口
	router.GET("/api/protected/me", middleware.AuthMiddleware(cfg), c.auth.Me)
	router.POST("/transcribe", middleware.AuthMiddleware(cfg), c.transcription.Transcribe)

	// 3. 用户面板
	a.registerUserRoutes(router, c, cfg)

	// 4. 公司面板
	a.registerCompanyRoutes(router, c, cfg)

	// 5. 实时推送，token 通过 query 传递
	a.registerWebSocketRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		auth := public.Group("/auth")
		auth.POST("/register/user", c.auth.RegisterUser)
		auth.POST("/register/company", c.auth.RegisterCompany)
		auth.POST("/login", c.auth.Login)
	}
}

func (a *App) registerUserRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	user := router.Group("/api/user-dashboard")
	user.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleUser))
	{
		user.POST("/user-request", c.userDashboard.UserRequest)
		user.GET("/get-all-services", c.userDashboard.GetAllServices)
		user.GET("/logs", c.userDashboard.Logs)
		user.GET("/pending-logs", c.userDashboard.PendingLogs)
	}
}

func (a *App) registerCompanyRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	company := router.Group("/api/company-dashboard")
	company.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleCompany))
	{
		company.POST("/register-service", c.company.RegisterService)
		company.GET("/my-services", c.company.MyServices)
		company.GET("/logs", c.company.Logs)
		company.GET("/pending-logs", c.company.PendingLogs)
		company.PATCH("/update-response/:id", c.company.UpdateResponse)
	}
}

func (a *App) registerWebSocketRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	ws := router.Group("/ws")
	ws.Use(middleware.AuthMiddleware(cfg))
	{
		ws.GET("/company-dashboard/updates", middleware.RoleMiddleware(model.RoleCompany), c.websocket.CompanyUpdates)
		ws.GET("/user-dashboard/updates", middleware.RoleMiddleware(model.RoleUser), c.websocket.UserUpdates)
	}
}
