package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rate-analysis-service/models"
	"rate-analysis-service/ratecache"
	"rate-analysis-service/services"
	"rate-analysis-service/tracker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ---- mock analysis repository ----

type mockAnalysisRepo struct {
	mu       sync.Mutex
	analyses map[uuid.UUID]*models.Analysis
	saves    []map[string]interface{}
}

func newMockAnalysisRepo() *mockAnalysisRepo {
	return &mockAnalysisRepo{analyses: make(map[uuid.UUID]*models.Analysis)}
}

func (m *mockAnalysisRepo) Create(_ context.Context, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.analyses[a.ID] = &cp
	return nil
}

func (m *mockAnalysisRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAnalysisRepo) FindByUser(_ context.Context, userID string, _, _ int) ([]models.Analysis, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Analysis
	for _, a := range m.analyses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockAnalysisRepo) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "status":
			a.Status = v.(string)
		case "name":
			a.Name = v.(string)
		case "total_shipments":
			a.TotalShipments = v.(int)
		case "processed_shipments":
			a.ProcessedShipments = v.(int)
		case "total_savings":
			a.TotalSavings = v.(float64)
		case "processing_metadata":
			a.ProcessingMetadata = v.(string)
		}
	}
	a.Revision++
	a.UpdatedAt = time.Now()
	m.saves = append(m.saves, fields)
	return nil
}

func (m *mockAnalysisRepo) UpdateStatus(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Analysis, error) {
	if err := m.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return m.FindByID(ctx, id)
}

func (m *mockAnalysisRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.analyses, id)
	return nil
}

func (m *mockAnalysisRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

// ---- mock rate repository ----

type mockRateRepo struct {
	mu   sync.Mutex
	rows []models.AnalysisRate
}

func (m *mockRateRepo) InsertBatch(_ context.Context, rates []models.AnalysisRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rates...)
	return nil
}

func (m *mockRateRepo) FindByAnalysis(_ context.Context, analysisID uuid.UUID) ([]models.AnalysisRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AnalysisRate
	for _, r := range m.rows {
		if r.AnalysisID == analysisID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRateRepo) DeleteByAnalysis(_ context.Context, analysisID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.AnalysisID != analysisID {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

func (m *mockRateRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ---- mock carrier config repository ----

type mockConfigRepo struct {
	configs []models.CarrierConfig
}

func (m *mockConfigRepo) Create(_ context.Context, _ *models.CarrierConfig) error { return nil }
func (m *mockConfigRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.CarrierConfig, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockConfigRepo) FindByUser(_ context.Context, _ string) ([]models.CarrierConfig, error) {
	return m.configs, nil
}
func (m *mockConfigRepo) FindEnabledByUser(_ context.Context, _ string) ([]models.CarrierConfig, error) {
	return m.configs, nil
}
func (m *mockConfigRepo) Update(_ context.Context, _ *models.CarrierConfig) error { return nil }
func (m *mockConfigRepo) Delete(_ context.Context, _ uuid.UUID) error             { return nil }

// ---- mock markup profile repository ----

type mockMarkupRepo struct {
	profile *models.MarkupProfile
}

func (m *mockMarkupRepo) Create(_ context.Context, _ *models.MarkupProfile) error { return nil }
func (m *mockMarkupRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.MarkupProfile, error) {
	if m.profile == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.profile, nil
}
func (m *mockMarkupRepo) FindByUser(_ context.Context, _ string) ([]models.MarkupProfile, error) {
	return nil, nil
}
func (m *mockMarkupRepo) Update(_ context.Context, _ *models.MarkupProfile) error { return nil }
func (m *mockMarkupRepo) Delete(_ context.Context, _ uuid.UUID) error             { return nil }

// ---- mock rate provider ----

type mockRateProvider struct {
	calls int32
	rates []models.CarrierRate
	err   error
}

func (m *mockRateProvider) GetRates(_ context.Context, _ models.RateRequest, _ []models.CarrierConfig) ([]models.CarrierRate, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.CarrierRate, len(m.rates))
	copy(out, m.rates)
	return out, nil
}

func (m *mockRateProvider) callCount() int { return int(atomic.LoadInt32(&m.calls)) }

// ---- mock event sinks ----

type mockLifecycle struct {
	mu     sync.Mutex
	events []models.AnalysisLifecycleEvent
}

func (m *mockLifecycle) SendLifecycleEvent(event models.AnalysisLifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockLifecycle) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType
	}
	return out
}

type mockSNS struct {
	mu       sync.Mutex
	messages [][]byte
}

func (m *mockSNS) Publish(_ context.Context, _ string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockSNS) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// ---- helpers ----

type testEnv struct {
	svc      services.AnalysisService
	repo     *mockAnalysisRepo
	rates    *mockRateRepo
	configs  *mockConfigRepo
	markups  *mockMarkupRepo
	provider *mockRateProvider
	producer *mockLifecycle
	sns      *mockSNS
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	env := &testEnv{
		repo:  newMockAnalysisRepo(),
		rates: &mockRateRepo{},
		configs: &mockConfigRepo{configs: []models.CarrierConfig{
			{ID: uuid.New(), CarrierType: models.CarrierTypeUPS, AccountName: "Main UPS", Enabled: true},
		}},
		markups: &mockMarkupRepo{},
		provider: &mockRateProvider{rates: []models.CarrierRate{
			{ServiceCode: "GROUND", ServiceName: "Ground", Amount: 10, Currency: "USD", TransitDays: 5, PublishedRate: 12},
		}},
		producer: &mockLifecycle{},
		sns:      &mockSNS{},
	}

	trackers := services.NewTrackerRegistry(
		services.NewDBStatusFetcher(env.repo), logger, tracker.Options{PollInterval: time.Hour})

	env.svc = services.NewAnalysisService(
		env.repo, env.rates, env.configs, env.markups, env.provider,
		trackers, env.producer, env.sns, "arn:aws:sns:us-east-1:000000000000:analysis-status",
		nil, ratecache.Options{}, logger)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.svc.Shutdown(ctx)
	})
	return env
}

func (env *testEnv) createAnalysis(t *testing.T, userID string) *models.Analysis {
	t.Helper()
	a, svcErr := env.svc.CreateAnalysis(context.Background(), userID, &models.CreateAnalysisRequest{Name: "Freight audit"})
	assert.Nil(t, svcErr)
	return a
}

func processRequest() *models.ProcessAnalysisRequest {
	return &models.ProcessAnalysisRequest{
		Rows: []models.Row{
			{"Origin": "90210", "Dest": "10001", "Wt": "5", "Cur": "15"},
			{"Origin": "90210", "Dest": "10001", "Wt": "5", "Cur": "15"},
			{"Origin": "123", "Dest": "10001", "Wt": "5", "Cur": "15"},
		},
		Mappings: models.FieldMapping{
			"originZip":   "Origin",
			"destZip":     "Dest",
			"weight":      "Wt",
			"currentRate": "Cur",
		},
	}
}

func awaitStatus(t *testing.T, env *testEnv, id uuid.UUID, want string) *models.Analysis {
	t.Helper()
	assert.Eventually(t, func() bool {
		a, err := env.repo.FindByID(context.Background(), id)
		return err == nil && a.Status == want
	}, 3*time.Second, 20*time.Millisecond, "analysis never reached status %s", want)

	a, err := env.repo.FindByID(context.Background(), id)
	assert.NoError(t, err)
	return a
}

// ---- tests ----

func TestStartProcessing_RunsToCompletion(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")

	svcErr := env.svc.StartProcessing(context.Background(), "user-1", a.ID, processRequest())
	assert.Nil(t, svcErr)

	final := awaitStatus(t, env, a.ID, models.AnalysisStatusCompleted)
	assert.Equal(t, 3, final.TotalShipments)
	assert.Equal(t, 3, final.ProcessedShipments)
	assert.Equal(t, 10.0, final.TotalSavings, "Two valid shipments saving 5.00 each")
	assert.JSONEq(t, `{"invalid_rows":1}`, final.ProcessingMetadata)
	assert.GreaterOrEqual(t, final.Revision, int64(2))

	assert.Equal(t, 2, env.rates.count(), "One quote row per valid shipment")
	assert.Equal(t, 1, env.provider.callCount(), "Identical shipments share one rate lookup")

	assert.Eventually(t, func() bool {
		return len(env.producer.types()) == 2 && env.sns.count() == 2
	}, 3*time.Second, 20*time.Millisecond, "lifecycle and status events never published")
	assert.Equal(t, []string{models.EventAnalysisStarted, models.EventAnalysisCompleted}, env.producer.types())
}

func TestStartProcessing_RateFailuresDoNotAbort(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = assert.AnError
	a := env.createAnalysis(t, "user-1")

	svcErr := env.svc.StartProcessing(context.Background(), "user-1", a.ID, processRequest())
	assert.Nil(t, svcErr)

	final := awaitStatus(t, env, a.ID, models.AnalysisStatusCompleted)
	assert.Equal(t, 3, final.ProcessedShipments)
	assert.Equal(t, 0.0, final.TotalSavings)
	assert.Zero(t, env.rates.count(), "Failed lookups persist nothing")
}

func TestStartProcessing_EmptyRows(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")

	svcErr := env.svc.StartProcessing(context.Background(), "user-1", a.ID, &models.ProcessAnalysisRequest{
		Mappings: models.FieldMapping{"originZip": "Origin"},
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestStartProcessing_AlreadyInProgress(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")
	_, err := env.repo.UpdateStatus(context.Background(), a.ID, map[string]interface{}{
		"status": models.AnalysisStatusInProgress,
	})
	assert.NoError(t, err)

	svcErr := env.svc.StartProcessing(context.Background(), "user-1", a.ID, processRequest())
	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestStartProcessing_NoCarrierAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.configs.configs = nil
	a := env.createAnalysis(t, "user-1")

	svcErr := env.svc.StartProcessing(context.Background(), "user-1", a.ID, processRequest())
	assert.NotNil(t, svcErr)
	assert.Equal(t, 422, svcErr.StatusCode)
}

func TestStartProcessing_WrongUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")

	svcErr := env.svc.StartProcessing(context.Background(), "user-2", a.ID, processRequest())
	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestStartProcessing_AfterShutdown(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, env.svc.Shutdown(ctx))

	svcErr := env.svc.StartProcessing(context.Background(), "user-1", a.ID, processRequest())
	assert.NotNil(t, svcErr)
	assert.Equal(t, 503, svcErr.StatusCode)
}

func TestGetStatus_ProjectsStoredRow(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")
	_, err := env.repo.UpdateStatus(context.Background(), a.ID, map[string]interface{}{
		"status":              models.AnalysisStatusInProgress,
		"total_shipments":     200,
		"processed_shipments": 50,
	})
	assert.NoError(t, err)

	status, svcErr := env.svc.GetStatus(context.Background(), "user-1", a.ID)
	assert.Nil(t, svcErr)
	assert.Equal(t, models.AnalysisStatusInProgress, status.Status)
	assert.Equal(t, 25.0, status.Percent)
}

func TestUpdateAnalysis_SaveNowWritesImmediately(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")
	name := "Renamed audit"

	svcErr := env.svc.UpdateAnalysis(context.Background(), "user-1", a.ID, &models.UpdateAnalysisRequest{Name: &name}, true)
	assert.Nil(t, svcErr)

	stored, err := env.repo.FindByID(context.Background(), a.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Renamed audit", stored.Name)
}

func TestUpdateAnalysis_DebouncedWriteIsDeferred(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")
	saves := env.repo.saveCount()
	name := "Renamed audit"

	svcErr := env.svc.UpdateAnalysis(context.Background(), "user-1", a.ID, &models.UpdateAnalysisRequest{Name: &name}, false)
	assert.Nil(t, svcErr)
	assert.Equal(t, saves, env.repo.saveCount(), "Debounced update must not write synchronously")
}

func TestUpdateAnalysis_NoFields(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")

	svcErr := env.svc.UpdateAnalysis(context.Background(), "user-1", a.ID, &models.UpdateAnalysisRequest{}, false)
	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestDeleteAnalysis_RemovesRates(t *testing.T) {
	env := newTestEnv(t)
	a := env.createAnalysis(t, "user-1")

	svcErr := env.svc.StartProcessing(context.Background(), "user-1", a.ID, processRequest())
	assert.Nil(t, svcErr)
	awaitStatus(t, env, a.ID, models.AnalysisStatusCompleted)

	svcErr = env.svc.DeleteAnalysis(context.Background(), "user-1", a.ID)
	assert.Nil(t, svcErr)

	assert.Zero(t, env.rates.count())
	_, err := env.repo.FindByID(context.Background(), a.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPreviewRates_CachesLookups(t *testing.T) {
	env := newTestEnv(t)
	req := &models.RatePreviewRequest{OriginZip: "90210", DestZip: "10001", Weight: 5}

	first, svcErr := env.svc.PreviewRates(context.Background(), "user-1", req)
	assert.Nil(t, svcErr)
	second, svcErr := env.svc.PreviewRates(context.Background(), "user-1", req)
	assert.Nil(t, svcErr)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, env.provider.callCount(), "Second preview must come from cache")
}

func TestPreviewRates_AppliesMarkup(t *testing.T) {
	env := newTestEnv(t)
	profileID := uuid.New()
	env.markups.profile = &models.MarkupProfile{
		ID:         profileID,
		UserID:     "user-1",
		Type:       models.MarkupTypeGlobal,
		ConfigJSON: `{"global_percentage":10}`,
		Active:     true,
	}

	rates, svcErr := env.svc.PreviewRates(context.Background(), "user-1", &models.RatePreviewRequest{
		OriginZip:       "90210",
		DestZip:         "10001",
		Weight:          5,
		MarkupProfileID: &profileID,
	})
	assert.Nil(t, svcErr)
	assert.Len(t, rates, 1)
	assert.Equal(t, 11.0, rates[0].Amount, "10.00 base plus 10 percent markup")
	assert.Equal(t, 12.0, rates[0].PublishedRate, "Published rate stays at carrier list price")
}

func TestPreviewRates_NoAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.configs.configs = nil

	_, svcErr := env.svc.PreviewRates(context.Background(), "user-1", &models.RatePreviewRequest{
		OriginZip: "90210", DestZip: "10001", Weight: 5,
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, 422, svcErr.StatusCode)
}
