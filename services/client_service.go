package services

import (
	"context"
	"errors"

	"rate-analysis-service/models"
	"rate-analysis-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientService defines business logic for end clients.
type ClientService interface {
	CreateClient(ctx context.Context, userID string, req *models.CreateClientRequest) (*models.Client, *ServiceError)
	GetClient(ctx context.Context, userID string, id uuid.UUID) (*models.Client, *ServiceError)
	ListClients(ctx context.Context, userID string) ([]models.Client, *ServiceError)
	UpdateClient(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateClientRequest) (*models.Client, *ServiceError)
	DeleteClient(ctx context.Context, userID string, id uuid.UUID) *ServiceError
}

type clientServiceImpl struct {
	repo   repository.ClientRepository
	logger *zap.Logger
}

// NewClientService creates a new ClientService.
func NewClientService(repo repository.ClientRepository, logger *zap.Logger) ClientService {
	return &clientServiceImpl{repo: repo, logger: logger}
}

func (s *clientServiceImpl) CreateClient(ctx context.Context, userID string, req *models.CreateClientRequest) (*models.Client, *ServiceError) {
	client := &models.Client{
		UserID:      userID,
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Phone:       req.Phone,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		s.logger.Error("Failed to create client", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create client"}
	}
	return client, nil
}

func (s *clientServiceImpl) GetClient(ctx context.Context, userID string, id uuid.UUID) (*models.Client, *ServiceError) {
	return s.getOwned(ctx, userID, id)
}

func (s *clientServiceImpl) ListClients(ctx context.Context, userID string) ([]models.Client, *ServiceError) {
	clients, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list clients", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to list clients"}
	}
	return clients, nil
}

func (s *clientServiceImpl) UpdateClient(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateClientRequest) (*models.Client, *ServiceError) {
	client, svcErr := s.getOwned(ctx, userID, id)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.CompanyName != nil {
		client.CompanyName = *req.CompanyName
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}

	if err := s.repo.Update(ctx, client); err != nil {
		s.logger.Error("Failed to update client", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update client"}
	}
	return client, nil
}

func (s *clientServiceImpl) DeleteClient(ctx context.Context, userID string, id uuid.UUID) *ServiceError {
	if _, svcErr := s.getOwned(ctx, userID, id); svcErr != nil {
		return svcErr
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete client", zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to delete client"}
	}
	return nil
}

func (s *clientServiceImpl) getOwned(ctx context.Context, userID string, id uuid.UUID) (*models.Client, *ServiceError) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Client not found"}
		}
		s.logger.Error("Failed to load client", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load client"}
	}
	if client.UserID != userID {
		return nil, &ServiceError{StatusCode: 404, Message: "Client not found"}
	}
	return client, nil
}
