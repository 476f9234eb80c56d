package controllers

import (
	"net/http"
	"strconv"

	"rate-analysis-service/middleware"
	"rate-analysis-service/models"
	"rate-analysis-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AnalysisController handles HTTP requests for analyses.
type AnalysisController struct {
	analysisService services.AnalysisService
}

// NewAnalysisController creates a new AnalysisController.
func NewAnalysisController(svc services.AnalysisService) *AnalysisController {
	return &AnalysisController{analysisService: svc}
}

// CreateAnalysis handles POST /analyses
func (ac *AnalysisController) CreateAnalysis(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateAnalysisRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	analysis, svcErr := ac.analysisService.CreateAnalysis(ctx.Request.Context(), userID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"analysis": analysis})
}

// ListAnalyses handles GET /analyses
func (ac *AnalysisController) ListAnalyses(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := parsePaginationParams(ctx)

	analyses, total, svcErr := ac.analysisService.ListAnalyses(ctx.Request.Context(), userID, page, limit)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"analyses": analyses,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// GetAnalysis handles GET /analyses/:id
func (ac *AnalysisController) GetAnalysis(ctx *gin.Context) {
	userID, analysisID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	analysis, svcErr := ac.analysisService.GetAnalysis(ctx.Request.Context(), userID, analysisID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// StartProcessing handles POST /analyses/:id/process
func (ac *AnalysisController) StartProcessing(ctx *gin.Context) {
	userID, analysisID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	var req models.ProcessAnalysisRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if svcErr := ac.analysisService.StartProcessing(ctx.Request.Context(), userID, analysisID, &req); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"message": "Analysis processing started"})
}

// GetStatus handles GET /analyses/:id/status
func (ac *AnalysisController) GetStatus(ctx *gin.Context) {
	userID, analysisID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	status, svcErr := ac.analysisService.GetStatus(ctx.Request.Context(), userID, analysisID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, status)
}

// GetRates handles GET /analyses/:id/rates
func (ac *AnalysisController) GetRates(ctx *gin.Context) {
	userID, analysisID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	rates, svcErr := ac.analysisService.GetAnalysisRates(ctx.Request.Context(), userID, analysisID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"rates": rates})
}

// UpdateAnalysis handles PATCH /analyses/:id. The ?now=true query skips the
// save debounce and writes immediately.
func (ac *AnalysisController) UpdateAnalysis(ctx *gin.Context) {
	userID, analysisID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	var req models.UpdateAnalysisRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	saveNow := ctx.Query("now") == "true"

	if svcErr := ac.analysisService.UpdateAnalysis(ctx.Request.Context(), userID, analysisID, &req, saveNow); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	if saveNow {
		ctx.JSON(http.StatusOK, gin.H{"message": "Analysis saved"})
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"message": "Analysis save scheduled"})
}

// DeleteAnalysis handles DELETE /analyses/:id
func (ac *AnalysisController) DeleteAnalysis(ctx *gin.Context) {
	userID, analysisID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	if svcErr := ac.analysisService.DeleteAnalysis(ctx.Request.Context(), userID, analysisID); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Analysis deleted"})
}

// PreviewRates handles POST /rates/preview
func (ac *AnalysisController) PreviewRates(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.RatePreviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	rates, svcErr := ac.analysisService.PreviewRates(ctx.Request.Context(), userID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"rates": rates})
}

// requestIdentity pulls the authenticated user and the :id path param.
// On failure it writes the error response and returns ok=false.
func requestIdentity(ctx *gin.Context) (string, uuid.UUID, bool) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", uuid.Nil, false
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return "", uuid.Nil, false
	}
	return userID, id, true
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 20
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "20")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
