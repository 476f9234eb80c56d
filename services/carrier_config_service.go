package services

import (
	"context"
	"encoding/json"
	"errors"

	"rate-analysis-service/models"
	"rate-analysis-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CarrierConfigService defines business logic for carrier accounts.
type CarrierConfigService interface {
	CreateConfig(ctx context.Context, userID string, req *models.CreateCarrierConfigRequest) (*models.CarrierConfig, *ServiceError)
	GetConfig(ctx context.Context, userID string, id uuid.UUID) (*models.CarrierConfig, *ServiceError)
	ListConfigs(ctx context.Context, userID string) ([]models.CarrierConfig, *ServiceError)
	UpdateConfig(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateCarrierConfigRequest) (*models.CarrierConfig, *ServiceError)
	DeleteConfig(ctx context.Context, userID string, id uuid.UUID) *ServiceError
}

type carrierConfigServiceImpl struct {
	repo   repository.CarrierConfigRepository
	logger *zap.Logger
}

// NewCarrierConfigService creates a new CarrierConfigService.
func NewCarrierConfigService(repo repository.CarrierConfigRepository, logger *zap.Logger) CarrierConfigService {
	return &carrierConfigServiceImpl{repo: repo, logger: logger}
}

func (s *carrierConfigServiceImpl) CreateConfig(ctx context.Context, userID string, req *models.CreateCarrierConfigRequest) (*models.CarrierConfig, *ServiceError) {
	credentialsJSON := "{}"
	if len(req.Credentials) > 0 {
		b, err := json.Marshal(req.Credentials)
		if err != nil {
			return nil, &ServiceError{StatusCode: 422, Message: "Invalid credentials payload"}
		}
		credentialsJSON = string(b)
	}

	config := &models.CarrierConfig{
		UserID:          userID,
		CarrierType:     req.CarrierType,
		AccountName:     req.AccountName,
		AccountNumber:   req.AccountNumber,
		IsNegotiated:    req.IsNegotiated,
		Enabled:         true,
		CredentialsJSON: credentialsJSON,
	}
	if err := s.repo.Create(ctx, config); err != nil {
		s.logger.Error("Failed to create carrier config", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create carrier account"}
	}

	s.logger.Info("Carrier account created",
		zap.String("config_id", config.ID.String()),
		zap.String("carrier_type", config.CarrierType),
	)
	return config, nil
}

func (s *carrierConfigServiceImpl) GetConfig(ctx context.Context, userID string, id uuid.UUID) (*models.CarrierConfig, *ServiceError) {
	return s.getOwned(ctx, userID, id)
}

func (s *carrierConfigServiceImpl) ListConfigs(ctx context.Context, userID string) ([]models.CarrierConfig, *ServiceError) {
	configs, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list carrier configs", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to list carrier accounts"}
	}
	return configs, nil
}

func (s *carrierConfigServiceImpl) UpdateConfig(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateCarrierConfigRequest) (*models.CarrierConfig, *ServiceError) {
	config, svcErr := s.getOwned(ctx, userID, id)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.AccountName != nil {
		config.AccountName = *req.AccountName
	}
	if req.AccountNumber != nil {
		config.AccountNumber = *req.AccountNumber
	}
	if req.IsNegotiated != nil {
		config.IsNegotiated = *req.IsNegotiated
	}
	if req.Enabled != nil {
		config.Enabled = *req.Enabled
	}
	if req.Credentials != nil {
		b, err := json.Marshal(*req.Credentials)
		if err != nil {
			return nil, &ServiceError{StatusCode: 422, Message: "Invalid credentials payload"}
		}
		config.CredentialsJSON = string(b)
	}

	if err := s.repo.Update(ctx, config); err != nil {
		s.logger.Error("Failed to update carrier config", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update carrier account"}
	}
	return config, nil
}

func (s *carrierConfigServiceImpl) DeleteConfig(ctx context.Context, userID string, id uuid.UUID) *ServiceError {
	if _, svcErr := s.getOwned(ctx, userID, id); svcErr != nil {
		return svcErr
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete carrier config", zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to delete carrier account"}
	}
	return nil
}

func (s *carrierConfigServiceImpl) getOwned(ctx context.Context, userID string, id uuid.UUID) (*models.CarrierConfig, *ServiceError) {
	config, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Carrier account not found"}
		}
		s.logger.Error("Failed to load carrier config", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load carrier account"}
	}
	if config.UserID != userID {
		return nil, &ServiceError{StatusCode: 404, Message: "Carrier account not found"}
	}
	return config, nil
}
