package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rate-analysis-service/models"
	awspkg "rate-analysis-service/pkg/aws"
	"rate-analysis-service/repository"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// downloadURLExpiry is how long a presigned report link stays valid.
const downloadURLExpiry = int64(15 * 60)

// ReportService exports analysis results to S3 and serves download links.
type ReportService interface {
	ExportReport(ctx context.Context, userID string, analysisID uuid.UUID, req *models.ExportReportRequest) (*models.SavedReport, *ServiceError)
	GetDownloadURL(ctx context.Context, userID string, reportID uuid.UUID) (string, *ServiceError)
	ListReports(ctx context.Context, userID string) ([]models.SavedReport, *ServiceError)
}

type reportServiceImpl struct {
	analyses repository.AnalysisRepository
	rates    repository.AnalysisRateRepository
	reports  repository.SavedReportRepository
	s3Client *s3.Client
	bucket   string
	metrics  *awspkg.MetricsClient
	logger   *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	analyses repository.AnalysisRepository,
	rates repository.AnalysisRateRepository,
	reports repository.SavedReportRepository,
	s3Client *s3.Client,
	bucket string,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) ReportService {
	return &reportServiceImpl{
		analyses: analyses,
		rates:    rates,
		reports:  reports,
		s3Client: s3Client,
		bucket:   bucket,
		metrics:  metrics,
		logger:   logger,
	}
}

// ExportReport snapshots a completed analysis with its quotes into a JSON
// document on S3 and records the upload.
func (s *reportServiceImpl) ExportReport(ctx context.Context, userID string, analysisID uuid.UUID, req *models.ExportReportRequest) (*models.SavedReport, *ServiceError) {
	analysis, err := s.analyses.FindByID(ctx, analysisID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Analysis not found"}
		}
		s.logger.Error("Failed to load analysis", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load analysis"}
	}
	if analysis.UserID != userID {
		return nil, &ServiceError{StatusCode: 404, Message: "Analysis not found"}
	}
	if analysis.Status != models.AnalysisStatusCompleted {
		return nil, &ServiceError{StatusCode: 409, Message: "Analysis is not completed"}
	}
	if s.s3Client == nil || s.bucket == "" {
		return nil, &ServiceError{StatusCode: 503, Message: "Report storage is not configured"}
	}

	rateRows, err := s.rates.FindByAnalysis(ctx, analysisID)
	if err != nil {
		s.logger.Error("Failed to load analysis rates", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load analysis rates"}
	}

	body, err := json.MarshalIndent(map[string]interface{}{
		"title":        req.Title,
		"analysis":     analysis,
		"rates":        rateRows,
		"generated_at": time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		s.logger.Error("Failed to build report document", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to build report"}
	}

	reportID := uuid.New()
	key := fmt.Sprintf("reports/%s/%s/%s.json", userID, analysisID, reportID)
	if err := awspkg.UploadObject(ctx, s.s3Client, s.bucket, key, "application/json", body); err != nil {
		s.logger.Error("Failed to upload report", zap.String("key", key), zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "Failed to upload report"}
	}

	report := &models.SavedReport{
		ID:         reportID,
		AnalysisID: analysisID,
		UserID:     userID,
		Title:      req.Title,
		Format:     "json",
		S3Bucket:   s.bucket,
		S3Key:      key,
		SizeBytes:  int64(len(body)),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error("Failed to record report", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to record report"}
	}

	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricReportsExported, nil)
	}
	s.logger.Info("Report exported",
		zap.String("report_id", reportID.String()),
		zap.String("analysis_id", analysisID.String()),
		zap.Int("size_bytes", len(body)),
	)
	return report, nil
}

// GetDownloadURL returns a short-lived presigned link for a saved report.
func (s *reportServiceImpl) GetDownloadURL(ctx context.Context, userID string, reportID uuid.UUID) (string, *ServiceError) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &ServiceError{StatusCode: 404, Message: "Report not found"}
		}
		s.logger.Error("Failed to load report", zap.Error(err))
		return "", &ServiceError{StatusCode: 500, Message: "Failed to load report"}
	}
	if report.UserID != userID {
		return "", &ServiceError{StatusCode: 404, Message: "Report not found"}
	}
	if s.s3Client == nil {
		return "", &ServiceError{StatusCode: 503, Message: "Report storage is not configured"}
	}

	url, err := awspkg.GeneratePresignedGetURL(ctx, s.s3Client, report.S3Bucket, report.S3Key, downloadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to presign report URL", zap.Error(err))
		return "", &ServiceError{StatusCode: 502, Message: "Failed to generate download link"}
	}
	return url, nil
}

func (s *reportServiceImpl) ListReports(ctx context.Context, userID string) ([]models.SavedReport, *ServiceError) {
	reports, err := s.reports.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list reports", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to list reports"}
	}
	return reports, nil
}
