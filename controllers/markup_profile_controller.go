package controllers

import (
	"net/http"

	"rate-analysis-service/middleware"
	"rate-analysis-service/models"
	"rate-analysis-service/services"

	"github.com/gin-gonic/gin"
)

// MarkupProfileController handles HTTP requests for markup profiles.
type MarkupProfileController struct {
	markupService services.MarkupProfileService
}

// NewMarkupProfileController creates a new MarkupProfileController.
func NewMarkupProfileController(svc services.MarkupProfileService) *MarkupProfileController {
	return &MarkupProfileController{markupService: svc}
}

// CreateProfile handles POST /markup-profiles
func (mc *MarkupProfileController) CreateProfile(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateMarkupProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	profile, svcErr := mc.markupService.CreateProfile(ctx.Request.Context(), userID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"profile": profile})
}

// ListProfiles handles GET /markup-profiles
func (mc *MarkupProfileController) ListProfiles(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	profiles, svcErr := mc.markupService.ListProfiles(ctx.Request.Context(), userID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// GetProfile handles GET /markup-profiles/:id
func (mc *MarkupProfileController) GetProfile(ctx *gin.Context) {
	userID, profileID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	profile, svcErr := mc.markupService.GetProfile(ctx.Request.Context(), userID, profileID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateProfile handles PATCH /markup-profiles/:id
func (mc *MarkupProfileController) UpdateProfile(ctx *gin.Context) {
	userID, profileID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	var req models.UpdateMarkupProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	profile, svcErr := mc.markupService.UpdateProfile(ctx.Request.Context(), userID, profileID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"profile": profile})
}

// DeleteProfile handles DELETE /markup-profiles/:id
func (mc *MarkupProfileController) DeleteProfile(ctx *gin.Context) {
	userID, profileID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	if svcErr := mc.markupService.DeleteProfile(ctx.Request.Context(), userID, profileID); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Markup profile deleted"})
}
