package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"rate-analysis-service/autosave"
	"rate-analysis-service/batcher"
	"rate-analysis-service/markup"
	"rate-analysis-service/models"
	awspkg "rate-analysis-service/pkg/aws"
	"rate-analysis-service/pipeline"
	"rate-analysis-service/providers"
	"rate-analysis-service/ratecache"
	"rate-analysis-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// mapChunkSize is how many rows go to the pipeline worker per request.
const mapChunkSize = 200

// LifecycleProducer publishes analysis lifecycle events to the event bus.
type LifecycleProducer interface {
	SendLifecycleEvent(event models.AnalysisLifecycleEvent) error
}

// AnalysisService defines the business logic interface for analyses.
type AnalysisService interface {
	CreateAnalysis(ctx context.Context, userID string, req *models.CreateAnalysisRequest) (*models.Analysis, *ServiceError)
	GetAnalysis(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, *ServiceError)
	ListAnalyses(ctx context.Context, userID string, page, limit int) ([]models.Analysis, int64, *ServiceError)
	GetAnalysisRates(ctx context.Context, userID string, id uuid.UUID) ([]models.AnalysisRate, *ServiceError)
	StartProcessing(ctx context.Context, userID string, id uuid.UUID, req *models.ProcessAnalysisRequest) *ServiceError
	GetStatus(ctx context.Context, userID string, id uuid.UUID) (*models.AnalysisStatus, *ServiceError)
	UpdateAnalysis(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateAnalysisRequest, saveNow bool) *ServiceError
	DeleteAnalysis(ctx context.Context, userID string, id uuid.UUID) *ServiceError
	PreviewRates(ctx context.Context, userID string, req *models.RatePreviewRequest) ([]models.CarrierRate, *ServiceError)
	Shutdown(ctx context.Context) error
}

type analysisServiceImpl struct {
	repo        repository.AnalysisRepository
	rates       repository.AnalysisRateRepository
	configs     repository.CarrierConfigRepository
	markups     repository.MarkupProfileRepository
	provider    providers.RateProvider
	trackers    *TrackerRegistry
	producer    LifecycleProducer
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
	metrics     *awspkg.MetricsClient
	cache       *ratecache.Cache[[]models.CarrierRate]
	dedup       *ratecache.Deduplicator[[]models.CarrierRate]
	logger      *zap.Logger

	mu        sync.Mutex
	running   map[uuid.UUID]context.CancelFunc
	autosaves map[uuid.UUID]*autosave.Controller
	closed    bool
	jobs      sync.WaitGroup
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(
	repo repository.AnalysisRepository,
	rates repository.AnalysisRateRepository,
	configs repository.CarrierConfigRepository,
	markups repository.MarkupProfileRepository,
	provider providers.RateProvider,
	trackers *TrackerRegistry,
	producer LifecycleProducer,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	metrics *awspkg.MetricsClient,
	cacheOpts ratecache.Options,
	logger *zap.Logger,
) AnalysisService {
	return &analysisServiceImpl{
		repo:        repo,
		rates:       rates,
		configs:     configs,
		markups:     markups,
		provider:    provider,
		trackers:    trackers,
		producer:    producer,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		metrics:     metrics,
		cache:       ratecache.New[[]models.CarrierRate](cacheOpts),
		dedup:       ratecache.NewDeduplicator[[]models.CarrierRate](),
		logger:      logger,
		running:     make(map[uuid.UUID]context.CancelFunc),
		autosaves:   make(map[uuid.UUID]*autosave.Controller),
	}
}

// CreateAnalysis persists an empty analysis shell in pending state.
func (s *analysisServiceImpl) CreateAnalysis(ctx context.Context, userID string, req *models.CreateAnalysisRequest) (*models.Analysis, *ServiceError) {
	analysis := &models.Analysis{
		UserID:          userID,
		ClientID:        req.ClientID,
		MarkupProfileID: req.MarkupProfileID,
		Name:            req.Name,
		Status:          models.AnalysisStatusPending,
	}

	if err := s.repo.Create(ctx, analysis); err != nil {
		s.logger.Error("Failed to create analysis", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create analysis"}
	}

	s.logger.Info("Analysis created",
		zap.String("analysis_id", analysis.ID.String()),
		zap.String("user_id", userID),
	)
	return analysis, nil
}

func (s *analysisServiceImpl) GetAnalysis(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, *ServiceError) {
	return s.getOwned(ctx, userID, id)
}

func (s *analysisServiceImpl) ListAnalyses(ctx context.Context, userID string, page, limit int) ([]models.Analysis, int64, *ServiceError) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	analyses, total, err := s.repo.FindByUser(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list analyses", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to list analyses"}
	}
	return analyses, total, nil
}

func (s *analysisServiceImpl) GetAnalysisRates(ctx context.Context, userID string, id uuid.UUID) ([]models.AnalysisRate, *ServiceError) {
	if _, svcErr := s.getOwned(ctx, userID, id); svcErr != nil {
		return nil, svcErr
	}

	rates, err := s.rates.FindByAnalysis(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load analysis rates", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load analysis rates"}
	}
	return rates, nil
}

// StartProcessing validates the request, marks the analysis in progress and
// launches the background run.
func (s *analysisServiceImpl) StartProcessing(ctx context.Context, userID string, id uuid.UUID, req *models.ProcessAnalysisRequest) *ServiceError {
	a, svcErr := s.getOwned(ctx, userID, id)
	if svcErr != nil {
		return svcErr
	}
	if len(req.Rows) == 0 {
		return &ServiceError{StatusCode: 400, Message: "No rows to process"}
	}
	if len(req.Mappings) == 0 {
		return &ServiceError{StatusCode: 400, Message: "No column mappings provided"}
	}
	if a.Status == models.AnalysisStatusInProgress {
		return &ServiceError{StatusCode: 409, Message: "Analysis is already processing"}
	}
	if a.Status == models.AnalysisStatusCompleted {
		return &ServiceError{StatusCode: 409, Message: "Analysis has already completed"}
	}

	carrierConfigs, err := s.configs.FindEnabledByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load carrier accounts", zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to load carrier accounts"}
	}
	if len(carrierConfigs) == 0 {
		return &ServiceError{StatusCode: 422, Message: "No enabled carrier accounts"}
	}

	var profile markup.Profile
	if a.MarkupProfileID != nil {
		m, err := s.markups.FindByID(ctx, *a.MarkupProfileID)
		if err != nil {
			return &ServiceError{StatusCode: 422, Message: "Markup profile not found"}
		}
		if m.Active {
			profile, err = markup.FromModel(m)
			if err != nil {
				s.logger.Error("Invalid markup profile",
					zap.String("profile_id", m.ID.String()),
					zap.Error(err),
				)
				return &ServiceError{StatusCode: 422, Message: "Invalid markup profile configuration"}
			}
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return &ServiceError{StatusCode: 503, Message: "Service is shutting down"}
	}
	if _, running := s.running[id]; running {
		s.mu.Unlock()
		cancel()
		return &ServiceError{StatusCode: 409, Message: "Analysis is already processing"}
	}
	s.running[id] = cancel
	s.mu.Unlock()

	updated, err := s.repo.UpdateStatus(ctx, id, map[string]interface{}{
		"status":              models.AnalysisStatusInProgress,
		"total_shipments":     len(req.Rows),
		"processed_shipments": 0,
		"total_savings":       0.0,
		"processing_metadata": "{}",
	})
	if err != nil {
		s.clearRunning(id)
		s.logger.Error("Failed to mark analysis in progress", zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to start processing"}
	}

	s.publishStatusEvent(ctx, updated)
	s.publishLifecycle(updated, models.EventAnalysisStarted, "")
	s.count(ctx, awspkg.MetricAnalysesStarted)
	s.trackers.Watch(id, userID)

	s.logger.Info("Analysis processing started",
		zap.String("analysis_id", id.String()),
		zap.Int("rows", len(req.Rows)),
	)

	s.jobs.Add(1)
	go s.runAnalysis(runCtx, updated, req, carrierConfigs, profile)
	return nil
}

// GetStatus serves the polling endpoint. A live tracker answers without a
// database read; otherwise the stored row is projected.
func (s *analysisServiceImpl) GetStatus(ctx context.Context, userID string, id uuid.UUID) (*models.AnalysisStatus, *ServiceError) {
	if t, ok := s.trackers.Lookup(id, userID); ok {
		if status := t.Status(); status.AnalysisID == id {
			return &status, nil
		}
	}

	a, svcErr := s.getOwned(ctx, userID, id)
	if svcErr != nil {
		return nil, svcErr
	}
	status := statusFromAnalysis(a)
	return &status, nil
}

// UpdateAnalysis schedules a debounced partial save, or writes immediately
// when saveNow is set.
func (s *analysisServiceImpl) UpdateAnalysis(ctx context.Context, userID string, id uuid.UUID, req *models.UpdateAnalysisRequest, saveNow bool) *ServiceError {
	if _, svcErr := s.getOwned(ctx, userID, id); svcErr != nil {
		return svcErr
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.TotalSavings != nil {
		fields["total_savings"] = *req.TotalSavings
	}
	if req.ProcessingMetadata != nil {
		fields["processing_metadata"] = *req.ProcessingMetadata
	}
	if len(fields) == 0 {
		return &ServiceError{StatusCode: 400, Message: "No fields to update"}
	}

	ctrl := s.autosaveFor(id)
	if saveNow {
		if err := ctrl.SaveNow(ctx, fields); err != nil {
			s.logger.Error("Immediate save failed",
				zap.String("analysis_id", id.String()),
				zap.Error(err),
			)
			return &ServiceError{StatusCode: 500, Message: "Failed to save analysis"}
		}
		return nil
	}

	ctrl.TriggerSave(fields)
	return nil
}

func (s *analysisServiceImpl) DeleteAnalysis(ctx context.Context, userID string, id uuid.UUID) *ServiceError {
	if _, svcErr := s.getOwned(ctx, userID, id); svcErr != nil {
		return svcErr
	}

	s.cancelRun(id)
	s.trackers.Remove(id)

	s.mu.Lock()
	ctrl, ok := s.autosaves[id]
	delete(s.autosaves, id)
	s.mu.Unlock()
	if ok {
		ctrl.Close()
	}

	if err := s.rates.DeleteByAnalysis(ctx, id); err != nil {
		s.logger.Error("Failed to delete analysis rates", zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to delete analysis"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete analysis", zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to delete analysis"}
	}

	s.logger.Info("Analysis deleted", zap.String("analysis_id", id.String()))
	return nil
}

// PreviewRates quotes one hypothetical shipment through the cache and
// deduplicator, with optional markup applied.
func (s *analysisServiceImpl) PreviewRates(ctx context.Context, userID string, req *models.RatePreviewRequest) ([]models.CarrierRate, *ServiceError) {
	carrierConfigs, err := s.configs.FindEnabledByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load carrier accounts", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load carrier accounts"}
	}
	if len(carrierConfigs) == 0 {
		return nil, &ServiceError{StatusCode: 422, Message: "No enabled carrier accounts"}
	}

	rateReq := models.RateRequest{
		OriginZip: req.OriginZip,
		DestZip:   req.DestZip,
		Weight:    req.Weight,
		Dimensions: models.Dimensions{
			Length: req.Length,
			Width:  req.Width,
			Height: req.Height,
		},
		ServiceTypes: req.ServiceTypes,
		AccountIDs:   configIDs(carrierConfigs),
		Residential:  req.Residential,
	}

	key := ratecache.Fingerprint(rateReq)
	rates, hit := s.cache.Get(key)
	if !hit {
		rates, _, err = s.dedup.Do(ctx, key, func(ctx context.Context) ([]models.CarrierRate, error) {
			fetched, err := s.provider.GetRates(ctx, rateReq, carrierConfigs)
			if err != nil {
				return nil, err
			}
			s.cache.Set(key, fetched, 0)
			return fetched, nil
		})
		if err != nil {
			s.logger.Error("Rate preview failed", zap.Error(err))
			s.count(ctx, awspkg.MetricRateFailures)
			return nil, &ServiceError{StatusCode: 502, Message: "Failed to retrieve rates: " + err.Error()}
		}
		s.count(ctx, awspkg.MetricRateRequests)
	}
	if len(rates) == 0 {
		return nil, &ServiceError{StatusCode: 404, Message: "No rates available for the given shipment"}
	}

	out := make([]models.CarrierRate, len(rates))
	copy(out, rates)

	if req.MarkupProfileID != nil {
		m, err := s.markups.FindByID(ctx, *req.MarkupProfileID)
		if err != nil || m.UserID != userID {
			return nil, &ServiceError{StatusCode: 404, Message: "Markup profile not found"}
		}
		profile, err := markup.FromModel(m)
		if err != nil {
			return nil, &ServiceError{StatusCode: 422, Message: "Invalid markup profile configuration"}
		}
		for i := range out {
			out[i].Amount = round2(profile.Apply(out[i].Amount, out[i].ServiceCode))
		}
	}

	return out, nil
}

// Shutdown cancels running jobs and waits for background work to drain.
func (s *analysisServiceImpl) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	cancels := make([]context.CancelFunc, 0, len(s.running))
	for _, cancel := range s.running {
		cancels = append(cancels, cancel)
	}
	saves := make([]*autosave.Controller, 0, len(s.autosaves))
	for _, ctrl := range s.autosaves {
		saves = append(saves, ctrl)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, ctrl := range saves {
		ctrl.Close()
	}
	s.trackers.Shutdown()
	return nil
}

// ---- Background run ----

func (s *analysisServiceImpl) runAnalysis(ctx context.Context, a *models.Analysis, req *models.ProcessAnalysisRequest, carrierConfigs []models.CarrierConfig, profile markup.Profile) {
	defer s.jobs.Done()
	defer s.clearRunning(a.ID)

	logger := s.logger.With(zap.String("analysis_id", a.ID.String()))

	var (
		processed    int
		invalid      int
		totalSavings float64
		rateFetches  int
		cacheHits    int
		runErr       error
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Analysis run panicked", zap.Any("panic", r))
			s.count(context.Background(), awspkg.MetricBackgroundFailure)
			s.finishRun(a, processed, totalSavings, invalid, fmt.Errorf("processing aborted"))
		}
	}()

	workerCtx, stopWorker := context.WithCancel(ctx)
	worker := pipeline.NewWorker(0, logger)
	worker.Start(workerCtx)
	defer func() {
		stopWorker()
		worker.Stop()
	}()

	batch := batcher.New(a.ID, &rateWriter{rates: s.rates}, logger, batcher.Options{
		OnFlushed: func(count int) {
			s.count(context.Background(), awspkg.MetricBatchFlushes)
			s.value(context.Background(), awspkg.MetricRecordsPersisted, float64(count))
		},
		OnError: func(count int, err error) {
			s.count(context.Background(), awspkg.MetricBackgroundFailure)
		},
	})

	saver := autosave.New(a.ID, &analysisSaver{repo: s.repo, metrics: s.metrics}, logger, autosave.Options{})

rows:
	for start := 0; start < len(req.Rows); start += mapChunkSize {
		end := start + mapChunkSize
		if end > len(req.Rows) {
			end = len(req.Rows)
		}

		mapped := worker.Do(ctx, pipeline.Request{
			Task:              pipeline.TaskMapRows,
			Rows:              req.Rows[start:end],
			Mappings:          req.Mappings,
			StartIndex:        start,
			OriginZipOverride: req.OriginZipOverride,
		})
		if mapped.Type == pipeline.ResultError {
			runErr = errors.New(mapped.Reason)
			break rows
		}

		validated := worker.Do(ctx, pipeline.Request{
			Task:       pipeline.TaskValidateRecords,
			Records:    mapped.Records,
			StartIndex: start,
		})
		if validated.Type == pipeline.ResultError {
			runErr = errors.New(validated.Reason)
			break rows
		}

		for offset, rec := range mapped.Records {
			if err := ctx.Err(); err != nil {
				runErr = err
				break rows
			}

			if result, ok := validated.Validations[start+offset]; ok && !result.IsValid {
				invalid++
				processed++
				s.triggerProgress(saver, processed, totalSavings, invalid)
				continue
			}

			completed, fromCache, err := s.rateShipment(ctx, rec, req.ServiceTypes, carrierConfigs, profile)
			if err != nil {
				if ctx.Err() != nil {
					runErr = ctx.Err()
					break rows
				}
				rateFetches++
				logger.Warn("Rate lookup failed",
					zap.Int("shipment_id", rec.ID),
					zap.Error(err),
				)
				s.count(ctx, awspkg.MetricRateFailures)
				processed++
				s.triggerProgress(saver, processed, totalSavings, invalid)
				continue
			}
			if fromCache {
				cacheHits++
			} else {
				rateFetches++
			}

			batch.Add(completed)
			processed++
			totalSavings += completed.Savings
			s.triggerProgress(saver, processed, totalSavings, invalid)
		}
	}

	finalizeCtx, cancelFinalize := context.WithTimeout(context.Background(), time.Minute)
	defer cancelFinalize()
	if err := batch.Finalize(finalizeCtx); err != nil {
		logger.Error("Rate batch drain timed out", zap.Error(err))
	}
	saver.Close()

	s.value(context.Background(), awspkg.MetricRowsMapped, float64(processed))
	s.value(context.Background(), awspkg.MetricRowsInvalid, float64(invalid))
	s.value(context.Background(), awspkg.MetricRateRequests, float64(rateFetches))
	s.value(context.Background(), awspkg.MetricCacheHits, float64(cacheHits))
	s.value(context.Background(), awspkg.MetricCacheMisses, float64(rateFetches))

	s.finishRun(a, processed, totalSavings, invalid, runErr)
}

// rateShipment resolves quotes for one record through the cache and
// deduplicator. The bool reports a cache hit.
func (s *analysisServiceImpl) rateShipment(ctx context.Context, rec models.ShipmentRecord, serviceTypes []string, carrierConfigs []models.CarrierConfig, profile markup.Profile) (models.CompletedShipment, bool, error) {
	rateReq, err := buildRateRequest(rec, serviceTypes, carrierConfigs)
	if err != nil {
		return models.CompletedShipment{}, false, err
	}

	key := ratecache.Fingerprint(rateReq)
	rates, hit := s.cache.Get(key)
	if !hit {
		rates, _, err = s.dedup.Do(ctx, key, func(ctx context.Context) ([]models.CarrierRate, error) {
			fetched, err := s.provider.GetRates(ctx, rateReq, carrierConfigs)
			if err != nil {
				return nil, err
			}
			s.cache.Set(key, fetched, 0)
			return fetched, nil
		})
		if err != nil {
			return models.CompletedShipment{}, false, err
		}
	}

	return buildCompletedShipment(rec, rates, profile), hit, nil
}

// finishRun writes the terminal status and publishes the matching events.
func (s *analysisServiceImpl) finishRun(a *models.Analysis, processed int, totalSavings float64, invalid int, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	status := models.AnalysisStatusCompleted
	eventType := models.EventAnalysisCompleted
	metric := awspkg.MetricAnalysesCompleted
	errMsg := ""
	if runErr != nil {
		status = models.AnalysisStatusFailed
		eventType = models.EventAnalysisFailed
		metric = awspkg.MetricAnalysesFailed
		errMsg = runErr.Error()
	}

	updated, err := s.repo.UpdateStatus(ctx, a.ID, map[string]interface{}{
		"status":              status,
		"processed_shipments": processed,
		"total_savings":       round2(totalSavings),
		"processing_metadata": processingMetadata(invalid, errMsg),
	})
	if err != nil {
		s.logger.Error("Failed to persist final analysis status",
			zap.String("analysis_id", a.ID.String()),
			zap.Error(err),
		)
		return
	}

	s.publishStatusEvent(ctx, updated)
	s.publishLifecycle(updated, eventType, errMsg)
	s.count(ctx, metric)

	s.logger.Info("Analysis run finished",
		zap.String("analysis_id", a.ID.String()),
		zap.String("status", status),
		zap.Int("processed", processed),
		zap.Float64("total_savings", round2(totalSavings)),
	)
}

func (s *analysisServiceImpl) triggerProgress(saver *autosave.Controller, processed int, totalSavings float64, invalid int) {
	saver.TriggerSave(map[string]interface{}{
		"processed_shipments": processed,
		"total_savings":       round2(totalSavings),
		"processing_metadata": processingMetadata(invalid, ""),
	})
}

// ---- Helpers ----

func (s *analysisServiceImpl) getOwned(ctx context.Context, userID string, id uuid.UUID) (*models.Analysis, *ServiceError) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ServiceError{StatusCode: 404, Message: "Analysis not found"}
		}
		s.logger.Error("Failed to load analysis", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to load analysis"}
	}
	if a.UserID != userID {
		return nil, &ServiceError{StatusCode: 404, Message: "Analysis not found"}
	}
	return a, nil
}

func (s *analysisServiceImpl) autosaveFor(id uuid.UUID) *autosave.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctrl, ok := s.autosaves[id]; ok {
		return ctrl
	}
	ctrl := autosave.New(id, &analysisSaver{repo: s.repo, metrics: s.metrics}, s.logger, autosave.Options{})
	s.autosaves[id] = ctrl
	return ctrl
}

func (s *analysisServiceImpl) clearRunning(id uuid.UUID) {
	s.mu.Lock()
	cancel, ok := s.running[id]
	delete(s.running, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *analysisServiceImpl) cancelRun(id uuid.UUID) {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// publishStatusEvent pushes a status change to SNS (non-fatal on error).
func (s *analysisServiceImpl) publishStatusEvent(ctx context.Context, a *models.Analysis) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}

	event := models.AnalysisStatusEvent{
		EventType:          models.EventTypeAnalysisStatus,
		AnalysisID:         a.ID,
		Status:             a.Status,
		TotalShipments:     a.TotalShipments,
		ProcessedShipments: a.ProcessedShipments,
		TotalSavings:       a.TotalSavings,
		Revision:           a.Revision,
		Timestamp:          time.Now(),
	}
	b, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal status event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, b); err != nil {
		s.logger.Error("Failed to publish status event", zap.Error(err))
	}
}

// publishLifecycle sends a start/terminal event to Kafka (non-fatal on
// error).
func (s *analysisServiceImpl) publishLifecycle(a *models.Analysis, eventType, errMsg string) {
	if s.producer == nil {
		return
	}

	event := models.AnalysisLifecycleEvent{
		EventType:      eventType,
		AnalysisID:     a.ID.String(),
		UserID:         a.UserID,
		TotalShipments: a.TotalShipments,
		TotalSavings:   a.TotalSavings,
		Error:          errMsg,
		Timestamp:      time.Now(),
	}
	if err := s.producer.SendLifecycleEvent(event); err != nil {
		s.logger.Error("Failed to publish lifecycle event", zap.Error(err))
	}
}

func (s *analysisServiceImpl) count(ctx context.Context, metric string) {
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, metric, nil)
	}
}

func (s *analysisServiceImpl) value(ctx context.Context, metric string, v float64) {
	if s.metrics != nil {
		_ = s.metrics.RecordValue(ctx, metric, v, nil)
	}
}

// buildRateRequest converts a validated record into a quote lookup. A
// per-row service column narrows the requested services to that one.
func buildRateRequest(rec models.ShipmentRecord, serviceTypes []string, carrierConfigs []models.CarrierConfig) (models.RateRequest, error) {
	weight, err := strconv.ParseFloat(strings.TrimSpace(rec.Weight), 64)
	if err != nil {
		return models.RateRequest{}, fmt.Errorf("parse weight %q: %w", rec.Weight, err)
	}

	types := serviceTypes
	if rec.Service != "" {
		types = []string{rec.Service}
	}

	return models.RateRequest{
		OriginZip: rec.OriginZip,
		DestZip:   rec.DestZip,
		Weight:    weight,
		Dimensions: models.Dimensions{
			Length: parseFloatOrZero(rec.Length),
			Width:  parseFloatOrZero(rec.Width),
			Height: parseFloatOrZero(rec.Height),
		},
		ServiceTypes: types,
		AccountIDs:   configIDs(carrierConfigs),
		Residential:  isTruthy(rec.Residential),
	}, nil
}

// buildCompletedShipment applies markup, picks the cheapest final rate and
// computes savings against the shipment's current cost.
func buildCompletedShipment(rec models.ShipmentRecord, rates []models.CarrierRate, profile markup.Profile) models.CompletedShipment {
	final := make([]models.CarrierRate, len(rates))
	copy(final, rates)

	bestIdx := -1
	for i := range final {
		final[i].Amount = round2(profile.Apply(rates[i].Amount, rates[i].ServiceCode))
		if bestIdx == -1 || final[i].Amount < final[bestIdx].Amount {
			bestIdx = i
		}
	}

	completed := models.CompletedShipment{
		Record:      rec,
		CurrentCost: parseFloatOrZero(rec.CurrentRate),
		Rates:       final,
	}
	if bestIdx >= 0 {
		best := final[bestIdx]
		completed.BestRate = &best
		if completed.CurrentCost > 0 {
			sv := profile.CalculateSavings(completed.CurrentCost, rates[bestIdx].Amount, rates[bestIdx].ServiceCode)
			completed.Savings = round2(sv.Savings)
			completed.SavingsPercent = round2(sv.SavingsPercentage)
		}
	}
	return completed
}

func processingMetadata(invalid int, errMsg string) string {
	meta := map[string]interface{}{"invalid_rows": invalid}
	if errMsg != "" {
		meta["error"] = errMsg
	}
	b, _ := json.Marshal(meta)
	return string(b)
}

func configIDs(carrierConfigs []models.CarrierConfig) []string {
	ids := make([]string, 0, len(carrierConfigs))
	for _, cfg := range carrierConfigs {
		ids = append(ids, cfg.ID.String())
	}
	return ids
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "residential":
		return true
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
