package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rate-analysis-service/models"

	"github.com/google/uuid"
)

// GatewayProvider implements RateProvider against the carrier rating
// gateway's HTTP API.
type GatewayProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGatewayProvider creates a GatewayProvider for the given gateway URL.
func NewGatewayProvider(baseURL, apiKey string) *GatewayProvider {
	return &GatewayProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ---- Gateway API request/response structs ----

type gatewayAccount struct {
	ID            string `json:"id"`
	CarrierType   string `json:"carrier_type"`
	AccountNumber string `json:"account_number"`
	Negotiated    bool   `json:"negotiated"`
}

type gatewayQuoteRequest struct {
	OriginZip    string           `json:"origin_zip"`
	DestZip      string           `json:"dest_zip"`
	Weight       float64          `json:"weight"`
	Length       float64          `json:"length"`
	Width        float64          `json:"width"`
	Height       float64          `json:"height"`
	ServiceTypes []string         `json:"service_types,omitempty"`
	Accounts     []gatewayAccount `json:"accounts"`
	Residential  bool             `json:"residential"`
}

type gatewayRate struct {
	AccountID       string `json:"account_id"`
	AccountName     string `json:"account_name"`
	Carrier         string `json:"carrier"`
	ServiceCode     string `json:"service_code"`
	ServiceName     string `json:"service_name"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	TransitDays     int    `json:"transit_days"`
	Negotiated      bool   `json:"negotiated"`
	PublishedAmount string `json:"published_amount"`
}

type gatewayQuoteResponse struct {
	Rates []gatewayRate `json:"rates"`
}

// ---- RateProvider implementation ----

// GetRates requests quotes for every enabled carrier account and maps the
// gateway response into CarrierRate values.
func (g *GatewayProvider) GetRates(ctx context.Context, req models.RateRequest, configs []models.CarrierConfig) ([]models.CarrierRate, error) {
	accounts := make([]gatewayAccount, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		accounts = append(accounts, gatewayAccount{
			ID:            cfg.ID.String(),
			CarrierType:   cfg.CarrierType,
			AccountNumber: cfg.AccountNumber,
			Negotiated:    cfg.IsNegotiated,
		})
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	reqBody := gatewayQuoteRequest{
		OriginZip:    req.OriginZip,
		DestZip:      req.DestZip,
		Weight:       req.Weight,
		Length:       req.Dimensions.Length,
		Width:        req.Dimensions.Width,
		Height:       req.Dimensions.Height,
		ServiceTypes: req.ServiceTypes,
		Accounts:     accounts,
		Residential:  req.Residential,
	}

	var resp gatewayQuoteResponse
	if err := g.doRequest(ctx, http.MethodPost, "/v1/quotes", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("gateway GetRates: %w", err)
	}

	rates := make([]models.CarrierRate, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		var amount, published float64
		fmt.Sscanf(r.Amount, "%f", &amount)
		fmt.Sscanf(r.PublishedAmount, "%f", &published)

		rate := models.CarrierRate{
			AccountName:   r.AccountName,
			CarrierType:   r.Carrier,
			ServiceCode:   r.ServiceCode,
			ServiceName:   r.ServiceName,
			Amount:        amount,
			Currency:      r.Currency,
			TransitDays:   r.TransitDays,
			IsNegotiated:  r.Negotiated,
			PublishedRate: published,
		}
		if id, err := uuid.Parse(r.AccountID); err == nil {
			rate.CarrierConfigID = id
		}
		rates = append(rates, rate)
	}

	return rates, nil
}

// ---- HTTP helper ----

func (g *GatewayProvider) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
