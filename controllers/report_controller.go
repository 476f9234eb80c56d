package controllers

import (
	"net/http"

	"rate-analysis-service/middleware"
	"rate-analysis-service/models"
	"rate-analysis-service/services"

	"github.com/gin-gonic/gin"
)

// ReportController handles HTTP requests for exported reports.
type ReportController struct {
	reportService services.ReportService
}

// NewReportController creates a new ReportController.
func NewReportController(svc services.ReportService) *ReportController {
	return &ReportController{reportService: svc}
}

// ExportReport handles POST /analyses/:id/report
func (rc *ReportController) ExportReport(ctx *gin.Context) {
	userID, analysisID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	var req models.ExportReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	report, svcErr := rc.reportService.ExportReport(ctx.Request.Context(), userID, analysisID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"report": report})
}

// ListReports handles GET /reports
func (rc *ReportController) ListReports(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reports, svcErr := rc.reportService.ListReports(ctx.Request.Context(), userID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetDownloadURL handles GET /reports/:id/download
func (rc *ReportController) GetDownloadURL(ctx *gin.Context) {
	userID, reportID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	url, svcErr := rc.reportService.GetDownloadURL(ctx.Request.Context(), userID, reportID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"download_url": url})
}
