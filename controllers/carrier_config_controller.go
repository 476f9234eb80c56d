package controllers

import (
	"net/http"

	"rate-analysis-service/middleware"
	"rate-analysis-service/models"
	"rate-analysis-service/services"

	"github.com/gin-gonic/gin"
)

// CarrierConfigController handles HTTP requests for carrier accounts.
type CarrierConfigController struct {
	configService services.CarrierConfigService
}

// NewCarrierConfigController creates a new CarrierConfigController.
func NewCarrierConfigController(svc services.CarrierConfigService) *CarrierConfigController {
	return &CarrierConfigController{configService: svc}
}

// CreateConfig handles POST /carrier-configs
func (cc *CarrierConfigController) CreateConfig(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateCarrierConfigRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	config, svcErr := cc.configService.CreateConfig(ctx.Request.Context(), userID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"config": config})
}

// ListConfigs handles GET /carrier-configs
func (cc *CarrierConfigController) ListConfigs(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	configs, svcErr := cc.configService.ListConfigs(ctx.Request.Context(), userID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"configs": configs})
}

// GetConfig handles GET /carrier-configs/:id
func (cc *CarrierConfigController) GetConfig(ctx *gin.Context) {
	userID, configID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	config, svcErr := cc.configService.GetConfig(ctx.Request.Context(), userID, configID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"config": config})
}

// UpdateConfig handles PATCH /carrier-configs/:id
func (cc *CarrierConfigController) UpdateConfig(ctx *gin.Context) {
	userID, configID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	var req models.UpdateCarrierConfigRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	config, svcErr := cc.configService.UpdateConfig(ctx.Request.Context(), userID, configID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"config": config})
}

// DeleteConfig handles DELETE /carrier-configs/:id
func (cc *CarrierConfigController) DeleteConfig(ctx *gin.Context) {
	userID, configID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	if svcErr := cc.configService.DeleteConfig(ctx.Request.Context(), userID, configID); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Carrier account deleted"})
}
