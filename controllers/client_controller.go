package controllers

import (
	"net/http"

	"rate-analysis-service/middleware"
	"rate-analysis-service/models"
	"rate-analysis-service/services"

	"github.com/gin-gonic/gin"
)

// ClientController handles HTTP requests for clients.
type ClientController struct {
	clientService services.ClientService
}

// NewClientController creates a new ClientController.
func NewClientController(svc services.ClientService) *ClientController {
	return &ClientController{clientService: svc}
}

// CreateClient handles POST /clients
func (cc *ClientController) CreateClient(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateClientRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	client, svcErr := cc.clientService.CreateClient(ctx.Request.Context(), userID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"client": client})
}

// ListClients handles GET /clients
func (cc *ClientController) ListClients(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	clients, svcErr := cc.clientService.ListClients(ctx.Request.Context(), userID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"clients": clients})
}

// GetClient handles GET /clients/:id
func (cc *ClientController) GetClient(ctx *gin.Context) {
	userID, clientID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	client, svcErr := cc.clientService.GetClient(ctx.Request.Context(), userID, clientID)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"client": client})
}

// UpdateClient handles PATCH /clients/:id
func (cc *ClientController) UpdateClient(ctx *gin.Context) {
	userID, clientID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	var req models.UpdateClientRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	client, svcErr := cc.clientService.UpdateClient(ctx.Request.Context(), userID, clientID, &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"client": client})
}

// DeleteClient handles DELETE /clients/:id
func (cc *ClientController) DeleteClient(ctx *gin.Context) {
	userID, clientID, ok := requestIdentity(ctx)
	if !ok {
		return
	}

	if svcErr := cc.clientService.DeleteClient(ctx.Request.Context(), userID, clientID); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Client deleted"})
}
