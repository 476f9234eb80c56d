package routes

import (
	"rate-analysis-service/controllers"
	"rate-analysis-service/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers bundles every controller the router mounts.
type Controllers struct {
	Analyses *controllers.AnalysisController
	Profiles *controllers.MarkupProfileController
	Configs  *controllers.CarrierConfigController
	Clients  *controllers.ClientController
	Reports  *controllers.ReportController
}

// Register mounts all routes. Every route group is protected by the auth
// middleware; health stays open for load balancer checks.
func Register(r *gin.Engine, jwtSecret string, c Controllers) {
	auth := middleware.AuthMiddleware(jwtSecret)

	analyses := r.Group("/analyses")
	analyses.Use(auth)
	analyses.POST("", c.Analyses.CreateAnalysis)
	analyses.GET("", c.Analyses.ListAnalyses)
	analyses.GET("/:id", c.Analyses.GetAnalysis)
	analyses.PATCH("/:id", c.Analyses.UpdateAnalysis)
	analyses.DELETE("/:id", c.Analyses.DeleteAnalysis)
	analyses.POST("/:id/process", c.Analyses.StartProcessing)
	analyses.GET("/:id/status", c.Analyses.GetStatus)
	analyses.GET("/:id/rates", c.Analyses.GetRates)
	analyses.POST("/:id/report", c.Reports.ExportReport)

	rates := r.Group("/rates")
	rates.Use(auth)
	rates.POST("/preview", c.Analyses.PreviewRates)

	profiles := r.Group("/markup-profiles")
	profiles.Use(auth)
	profiles.POST("", c.Profiles.CreateProfile)
	profiles.GET("", c.Profiles.ListProfiles)
	profiles.GET("/:id", c.Profiles.GetProfile)
	profiles.PATCH("/:id", c.Profiles.UpdateProfile)
	profiles.DELETE("/:id", c.Profiles.DeleteProfile)

	configs := r.Group("/carrier-configs")
	configs.Use(auth)
	configs.POST("", c.Configs.CreateConfig)
	configs.GET("", c.Configs.ListConfigs)
	configs.GET("/:id", c.Configs.GetConfig)
	configs.PATCH("/:id", c.Configs.UpdateConfig)
	configs.DELETE("/:id", c.Configs.DeleteConfig)

	clients := r.Group("/clients")
	clients.Use(auth)
	clients.POST("", c.Clients.CreateClient)
	clients.GET("", c.Clients.ListClients)
	clients.GET("/:id", c.Clients.GetClient)
	clients.PATCH("/:id", c.Clients.UpdateClient)
	clients.DELETE("/:id", c.Clients.DeleteClient)

	reports := r.Group("/reports")
	reports.Use(auth)
	reports.GET("", c.Reports.ListReports)
	reports.GET("/:id/download", c.Reports.GetDownloadURL)
}
