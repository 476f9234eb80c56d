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

// MarkupProfileService defines business logic for markup profiles.
type MarkupProfileService interface {
	CreateProfile(ctx context.Context, userID string, req *models.CreateMarkupProfileRequest) (*models.MarkupProfile, *ServiceError)
	GetProfile(ctx context.Context, userID string, id uuid.UUID) (*models.MarkupProfile, *ServiceError)
	ListProfiles(ctx context.Context, userID string) ([]models.MarkupProfile, *ServiceError)
	UpdateProfile(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateMarkupProfileRequest) (*models.MarkupProfile, *ServiceError)
	DeleteProfile(ctx context.Context, userID string, id uuid.UUID) *ServiceError
}

type markupProfileServiceImpl struct {
	repo   repository.MarkupProfileRepository
	logger *zap.Logger
}

// NewMarkupProfileService creates a new MarkupProfileService.
func NewMarkupProfileService(repo repository.MarkupProfileRepository, logger *zap.Logger) MarkupProfileService {
	return &markupProfileServiceImpl{repo: repo, logger: logger}
}

func (s *markupProfileServiceImpl) CreateProfile(ctx context.Context, userID string, req *models.CreateMarkupProfileRequest) (*models.MarkupProfile, *ServiceError) {
	if svcErr := validateMarkupConfig(req.Type, req.Config); svcErr != nil {
		return nil, svcErr
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		return nil, &ServiceError{StatusCode: 422, Message: "Invalid markup configuration"}
	}

	profile := &models.MarkupProfile{
		UserID:     userID,
		Name:       req.Name,
		Type:       req.Type,
		ConfigJSON: string(configJSON),
		Active:     true,
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		s.logger.Error("Failed to create markup profile", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create markup profile"}
	}

	s.logger.Info("Markup profile created",
		zap.String("profile_id", profile.ID.String()),
		zap.String("type", string(profile.Type)),
	)
	return profile, nil
}

func (s *markupProfileServiceImpl) GetProfile(ctx context.Context, userID string, id uuid.UUID) (*models.MarkupProfile, *ServiceError) {
	return s.getOwned(ctx, userID, id)
}

func (s *markupProfileServiceImpl) ListProfiles(ctx context.Context, userID string) ([]models.MarkupProfile, *ServiceError) {
	profiles, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list markup profiles", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to list markup profiles"}
	}
	return profiles, nil
}

func (s *markupProfileServiceImpl) UpdateProfile(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateMarkupProfileRequest) (*models.MarkupProfile, *ServiceError) {
	profile, svcErr := s.getOwned(ctx, userID, id)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.Type != nil {
		profile.Type = *req.Type
	}
	if req.Active != nil {
		profile.Active = *req.Active
	}

	// Re-validate the effective type/config pair whenever either changes.
	if req.Config != nil || req.Type != nil {
		config := models.MarkupConfig{}
		if req.Config != nil {
			config = *req.Config
		} else if err := json.Unmarshal([]byte(profile.ConfigJSON), &config); err != nil {
			return nil, &ServiceError{StatusCode: 422, Message: "Stored markup configuration is invalid"}
		}
		if svcErr := validateMarkupConfig(profile.Type, config); svcErr != nil {
			return nil, svcErr
		}
		if req.Config != nil {
			configJSON, err := json.Marshal(config)
			if err != nil {
				return nil, &ServiceError{StatusCode: 422, Message: "Invalid markup configuration"}
			}
			profile.ConfigJSON = string(configJSON)
		}
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		s.logger.Error("Failed to update markup profile", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to update markup profile"}
	}
	return profile, nil
}

func (s *markupProfileServiceImpl) DeleteProfile(ctx context.Context, userID string, id uuid.UUID) *ServiceError {
	if _, svcErr := s.getOwned(ctx, userID, id); svcErr != nil {
		return svcErr
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete markup profile", zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to delete markup profile"}
	}
	return nil
}

func (s *markupProfileServiceImpl) getOwned(ctx context.Context, userID string, id uuid.UUID) (*models.MarkupProfile, *ServiceError) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Markup profile not found"}
		}
		s.logger.Error("Failed to load markup profile", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load markup profile"}
	}
	if profile.UserID != userID {
		return nil, &ServiceError{StatusCode: 404, Message: "Markup profile not found"}
	}
	return profile, nil
}

// validateMarkupConfig checks the config against the profile type before it
// is stored.
func validateMarkupConfig(t models.MarkupType, config models.MarkupConfig) *ServiceError {
	switch t {
	case models.MarkupTypeGlobal:
		if config.GlobalPercentage < -100 {
			return &ServiceError{StatusCode: 422, Message: "Global percentage cannot reduce rates below zero"}
		}

	case models.MarkupTypePerService:
		for code, pct := range config.ServiceMarkups {
			if pct < -100 {
				return &ServiceError{StatusCode: 422, Message: "Markup for service " + code + " cannot reduce rates below zero"}
			}
		}

	case models.MarkupTypeTiered:
		if len(config.Tiers) == 0 {
			return &ServiceError{StatusCode: 422, Message: "Tiered markup requires at least one tier"}
		}
		for _, tier := range config.Tiers {
			if tier.MinAmount < 0 {
				return &ServiceError{StatusCode: 422, Message: "Tier min amount cannot be negative"}
			}
			if tier.MaxAmount != -1 && tier.MaxAmount < tier.MinAmount {
				return &ServiceError{StatusCode: 422, Message: "Tier max amount must be -1 or at least the min amount"}
			}
			if tier.Percentage < -100 {
				return &ServiceError{StatusCode: 422, Message: "Tier percentage cannot reduce rates below zero"}
			}
		}

	default:
		return &ServiceError{StatusCode: 422, Message: "Unknown markup type"}
	}
	return nil
}
