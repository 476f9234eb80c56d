package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rate-analysis-service/controllers"
	"rate-analysis-service/middleware"
	"rate-analysis-service/models"
	"rate-analysis-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// ---- concrete mock implementing services.AnalysisService ----

type mockAnalysisSvc struct {
	analysis   *models.Analysis
	createErr  *services.ServiceError
	analyses   []models.Analysis
	total      int64
	listErr    *services.ServiceError
	rates      []models.AnalysisRate
	ratesErr   *services.ServiceError
	processErr *services.ServiceError
	status     *models.AnalysisStatus
	statusErr  *services.ServiceError
	updateErr  *services.ServiceError
	deleteErr  *services.ServiceError
	preview    []models.CarrierRate
	previewErr *services.ServiceError

	lastUserID  string
	lastSaveNow bool
}

func (m *mockAnalysisSvc) CreateAnalysis(_ context.Context, userID string, _ *models.CreateAnalysisRequest) (*models.Analysis, *services.ServiceError) {
	m.lastUserID = userID
	return m.analysis, m.createErr
}
func (m *mockAnalysisSvc) GetAnalysis(_ context.Context, userID string, _ uuid.UUID) (*models.Analysis, *services.ServiceError) {
	m.lastUserID = userID
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.analysis, nil
}
func (m *mockAnalysisSvc) ListAnalyses(_ context.Context, userID string, _, _ int) ([]models.Analysis, int64, *services.ServiceError) {
	m.lastUserID = userID
	return m.analyses, m.total, m.listErr
}
func (m *mockAnalysisSvc) GetAnalysisRates(_ context.Context, _ string, _ uuid.UUID) ([]models.AnalysisRate, *services.ServiceError) {
	return m.rates, m.ratesErr
}
func (m *mockAnalysisSvc) StartProcessing(_ context.Context, userID string, _ uuid.UUID, _ *models.ProcessAnalysisRequest) *services.ServiceError {
	m.lastUserID = userID
	return m.processErr
}
func (m *mockAnalysisSvc) GetStatus(_ context.Context, _ string, _ uuid.UUID) (*models.AnalysisStatus, *services.ServiceError) {
	return m.status, m.statusErr
}
func (m *mockAnalysisSvc) UpdateAnalysis(_ context.Context, _ string, _ uuid.UUID, _ *models.UpdateAnalysisRequest, saveNow bool) *services.ServiceError {
	m.lastSaveNow = saveNow
	return m.updateErr
}
func (m *mockAnalysisSvc) DeleteAnalysis(_ context.Context, _ string, _ uuid.UUID) *services.ServiceError {
	return m.deleteErr
}
func (m *mockAnalysisSvc) PreviewRates(_ context.Context, _ string, _ *models.RatePreviewRequest) ([]models.CarrierRate, *services.ServiceError) {
	return m.preview, m.previewErr
}
func (m *mockAnalysisSvc) Shutdown(_ context.Context) error { return nil }

// ---- helpers ----

func setupRouter(svc services.AnalysisService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.AuthMiddleware(""))
	c := controllers.NewAnalysisController(svc)

	r.POST("/analyses", c.CreateAnalysis)
	r.GET("/analyses", c.ListAnalyses)
	r.GET("/analyses/:id", c.GetAnalysis)
	r.PATCH("/analyses/:id", c.UpdateAnalysis)
	r.DELETE("/analyses/:id", c.DeleteAnalysis)
	r.POST("/analyses/:id/process", c.StartProcessing)
	r.GET("/analyses/:id/status", c.GetStatus)
	r.GET("/analyses/:id/rates", c.GetRates)
	r.POST("/rates/preview", c.PreviewRates)
	return r
}

func authedRequest(method, target string, body interface{}) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	return req
}

// ---- tests ----

func TestCreateAnalysis_Created(t *testing.T) {
	svc := &mockAnalysisSvc{analysis: &models.Analysis{ID: uuid.New(), Name: "Freight audit", Status: models.AnalysisStatusPending}}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/analyses", models.CreateAnalysisRequest{Name: "Freight audit"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", svc.lastUserID)
	assert.Contains(t, w.Body.String(), "Freight audit")
}

func TestCreateAnalysis_MissingName(t *testing.T) {
	svc := &mockAnalysisSvc{}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/analyses", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAnalysis_Unauthorized(t *testing.T) {
	svc := &mockAnalysisSvc{}
	r := setupRouter(svc)

	b, _ := json.Marshal(models.CreateAnalysisRequest{Name: "Freight audit"})
	req := httptest.NewRequest(http.MethodPost, "/analyses", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAnalyses_ReturnsPageEnvelope(t *testing.T) {
	svc := &mockAnalysisSvc{
		analyses: []models.Analysis{{ID: uuid.New(), Name: "August batch"}},
		total:    41,
	}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/analyses?page=2&limit=10", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(41), resp["total"])
	assert.Equal(t, float64(2), resp["page"])
	assert.Equal(t, float64(10), resp["limit"])
}

func TestStartProcessing_Accepted(t *testing.T) {
	svc := &mockAnalysisSvc{}
	r := setupRouter(svc)

	body := models.ProcessAnalysisRequest{
		Rows:     []models.Row{{"Origin": "90210"}},
		Mappings: models.FieldMapping{"originZip": "Origin"},
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/analyses/"+uuid.NewString()+"/process", body))

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStartProcessing_Conflict(t *testing.T) {
	svc := &mockAnalysisSvc{processErr: &services.ServiceError{StatusCode: 409, Message: "Analysis is already processing"}}
	r := setupRouter(svc)

	body := models.ProcessAnalysisRequest{
		Rows:     []models.Row{{"Origin": "90210"}},
		Mappings: models.FieldMapping{"originZip": "Origin"},
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/analyses/"+uuid.NewString()+"/process", body))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already processing")
}

func TestGetStatus_ReturnsProjection(t *testing.T) {
	svc := &mockAnalysisSvc{status: &models.AnalysisStatus{
		AnalysisID:         uuid.New(),
		Status:             models.AnalysisStatusInProgress,
		TotalShipments:     200,
		ProcessedShipments: 50,
		Percent:            25,
	}}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/analyses/"+uuid.NewString()+"/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var status models.AnalysisStatus
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	assert.Equal(t, 25.0, status.Percent)
}

func TestGetAnalysis_InvalidID(t *testing.T) {
	svc := &mockAnalysisSvc{}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/analyses/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAnalysis_NowQueryForcesImmediateSave(t *testing.T) {
	svc := &mockAnalysisSvc{}
	r := setupRouter(svc)
	name := "Renamed"

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPatch, "/analyses/"+uuid.NewString()+"?now=true", models.UpdateAnalysisRequest{Name: &name}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastSaveNow)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPatch, "/analyses/"+uuid.NewString(), models.UpdateAnalysisRequest{Name: &name}))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.False(t, svc.lastSaveNow)
}

func TestDeleteAnalysis_OK(t *testing.T) {
	svc := &mockAnalysisSvc{}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodDelete, "/analyses/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPreviewRates_BadPayload(t *testing.T) {
	svc := &mockAnalysisSvc{}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/rates/preview", map[string]interface{}{"origin_zip": "90210"}))

	assert.Equal(t, http.StatusBadRequest, w.Code, "Destination and weight are required")
}

func TestPreviewRates_ReturnsRates(t *testing.T) {
	svc := &mockAnalysisSvc{preview: []models.CarrierRate{
		{ServiceCode: "GROUND", Amount: 11.0, Currency: "USD"},
	}}
	r := setupRouter(svc)

	body := models.RatePreviewRequest{OriginZip: "90210", DestZip: "10001", Weight: 5}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/rates/preview", body))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	rates, ok := resp["rates"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, rates, 1)
}
