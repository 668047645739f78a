// Package analysis wraps the external prescriptive-analysis and
// simulation HTTP services, and the cash-flow amortization service.
// The services are black boxes: engineering inputs go in, energy and
// financial outcomes come out.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"building-energy/internal/model"
	"building-energy/pkg/platform"
)

// Polling defaults for the simulation completion path. Simulation runs
// are long; the ceiling bounds how long a recompute will wait.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultPollCeiling  = 20 * time.Minute
)

// FinanceInputs carries the rate context and summary financials sent
// with every analysis request. Rates are fractional here (0.025, not
// 2.5); callers convert before building the request.
type FinanceInputs struct {
	DiscountRate       float64 `json:"discount_rate"`
	FinanceRate        float64 `json:"finance_rate"`
	InflationRate      float64 `json:"inflation_rate"`
	ReinvestmentRate   float64 `json:"reinvestment_rate"`
	InvestmentPeriod   int     `json:"investment_period"`
	ProjectCost        float64 `json:"project_cost"`
	MaintenanceSavings float64 `json:"maintenance_savings"`
}

// Request is the prescriptive/simulation analysis input.
type Request struct {
	Measure   map[string]interface{} `json:"measure"`
	Incentive model.IncentiveConfig  `json:"incentive"`
	Finance   FinanceInputs          `json:"finance"`
	Utility   map[string]float64     `json:"utility"`
}

// Client calls the analysis service.
type Client struct {
	http    *platform.HTTPClient
	baseURL string
	log     zerolog.Logger

	pollInterval time.Duration
	pollCeiling  time.Duration
}

// NewClient builds an analysis client. Zero poll settings take the
// package defaults.
func NewClient(httpClient *platform.HTTPClient, baseURL string, log zerolog.Logger) *Client {
	return &Client{
		http:         httpClient,
		baseURL:      baseURL,
		log:          log,
		pollInterval: DefaultPollInterval,
		pollCeiling:  DefaultPollCeiling,
	}
}

// WithPolling overrides the simulation polling interval and ceiling.
func (c *Client) WithPolling(interval, ceiling time.Duration) *Client {
	if interval > 0 {
		c.pollInterval = interval
	}
	if ceiling > 0 {
		c.pollCeiling = ceiling
	}
	return c
}

// RunPrescriptive executes a synchronous prescriptive analysis.
func (c *Client) RunPrescriptive(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/analysis/prescriptive", body)
	if err != nil {
		return nil, fmt.Errorf("prescriptive analysis call failed: %w", err)
	}
	var wire wireResult
	if err := platform.DecodeJSON(resp, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return wire.toModel()
}

// RunSimulation submits a simulation run and long-polls for its
// completion, bounded by the configured ceiling.
func (c *Client) RunSimulation(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal simulation request: %w", err)
	}
	resp, err := c.http.PostJSON(ctx, c.baseURL+"/analysis/simulation", body)
	if err != nil {
		return nil, fmt.Errorf("simulation submit failed: %w", err)
	}
	var submitted struct {
		RunID string `json:"run_id"`
	}
	if err := platform.DecodeJSON(resp, &submitted); err != nil {
		return nil, fmt.Errorf("failed to decode simulation submit response: %w", err)
	}

	deadline := time.Now().Add(c.pollCeiling)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("simulation run %s did not complete within %s", submitted.RunID, c.pollCeiling)
		}

		var status struct {
			State  string     `json:"state"`
			Result wireResult `json:"result"`
			Error  string     `json:"error"`
		}
		url := fmt.Sprintf("%s/analysis/simulation/%s", c.baseURL, submitted.RunID)
		if err := c.http.GetJSON(ctx, url, &status); err != nil {
			c.log.Warn().Err(err).Str("run_id", submitted.RunID).Msg("simulation poll failed, will retry")
			continue
		}
		switch status.State {
		case "complete":
			return status.Result.toModel()
		case "failed":
			return nil, fmt.Errorf("simulation run %s failed: %s", submitted.RunID, status.Error)
		}
	}
}
