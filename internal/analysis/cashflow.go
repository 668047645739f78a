package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"building-energy/internal/model"
	platformerrors "building-energy/pkg/errors"
	"building-energy/pkg/platform"
)

// CashFlowRequest is the amortization service input: summary
// financials plus fractional rates.
type CashFlowRequest struct {
	ProjectCost        float64 `json:"project_cost"`
	Incentive          float64 `json:"incentive"`
	AnnualSavings      float64 `json:"annual_savings"`
	MaintenanceSavings float64 `json:"maintenance_savings"`
	DiscountRate       float64 `json:"discount_rate"`
	FinanceRate        float64 `json:"finance_rate"`
	InflationRate      float64 `json:"inflation_rate"`
	ReinvestmentRate   float64 `json:"reinvestment_rate"`
	InvestmentPeriod   int     `json:"investment_period"`
}

// CashFlowResponse is the amortization service output.
type CashFlowResponse struct {
	SimplePayback float64               `json:"simple_payback"`
	CashFlows     []model.CashFlowEntry `json:"cash_flows"`
}

// CashFlowService is the boundary the aggregation engine consumes;
// tests substitute a stub.
type CashFlowService interface {
	Compute(ctx context.Context, req CashFlowRequest) (*CashFlowResponse, error)
}

// CashFlowClient calls the external cash-flow service over HTTP.
type CashFlowClient struct {
	http    *platform.HTTPClient
	baseURL string
	log     zerolog.Logger
}

func NewCashFlowClient(httpClient *platform.HTTPClient, baseURL string, log zerolog.Logger) *CashFlowClient {
	return &CashFlowClient{http: httpClient, baseURL: baseURL, log: log}
}

// Compute runs the amortization for one set of summary financials.
func (c *CashFlowClient) Compute(ctx context.Context, req CashFlowRequest) (*CashFlowResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cash-flow request: %w", err)
	}
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/cashflow", body)
	if err != nil {
		return nil, platformerrors.NewCashFlowError("", err)
	}
	var out CashFlowResponse
	if err := platform.DecodeJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cash-flow response: %w", err)
	}
	return &out, nil
}
