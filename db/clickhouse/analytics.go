// Package clickhouse provides the ClickHouse-backed analytical store.
// It holds a denormalized, flattened copy of measure metrics used by
// portfolio dashboards. The copy is derived data: it is rebuilt from
// the canonical documents by the resync job and can be dropped and
// recreated at any time.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config holds ClickHouse connection configuration
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "building_energy",
		Username: "default",
		Password: "",
		Debug:    false,
	}
}

// MeasureRow is one flattened analytical row: a measure's metric for
// one building under one valuation context. Heavy fields (engineering
// inputs, full analysis payloads) are deliberately stripped.
type MeasureRow struct {
	ID               uuid.UUID       `ch:"id"`
	MeasureID        string          `ch:"measure_id"`
	BuildingID       string          `ch:"building_id"`
	OrganizationID   string          `ch:"organization_id"`
	Name             string          `ch:"name"`
	ValuationContext string          `ch:"valuation_context"`
	ProjectCost      decimal.Decimal `ch:"project_cost"`
	Incentive        decimal.Decimal `ch:"incentive"`
	AnnualSavings    decimal.Decimal `ch:"annual_savings"`
	MaintenanceSav   decimal.Decimal `ch:"maintenance_savings"`
	ElectricSavings  float64         `ch:"electric_savings"`
	GasSavings       float64         `ch:"gas_savings"`
	WaterSavings     float64         `ch:"water_savings"`
	EnergySavings    float64         `ch:"energy_savings"`
	GHG              float64         `ch:"ghg"`
	GHGCost          float64         `ch:"ghg_cost"`
	EUL              float64         `ch:"eul"`
	ROI              *float64        `ch:"roi"`
	SimplePayback    *float64        `ch:"simple_payback"`
	NPV              *float64        `ch:"npv"`
	SIR              *float64        `ch:"sir"`
	UpdatedAt        time.Time       `ch:"updated_at"`
}

// Store implements the analytical store on ClickHouse
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore creates a new ClickHouse analytical store
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the analytics table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS measure_analytics (
			id UUID,
			measure_id String,
			building_id String,
			organization_id String,
			name String,
			valuation_context String,
			project_cost Decimal(20, 4),
			incentive Decimal(20, 4),
			annual_savings Decimal(20, 4),
			maintenance_savings Decimal(20, 4),
			electric_savings Float64,
			gas_savings Float64,
			water_savings Float64,
			energy_savings Float64,
			ghg Float64,
			ghg_cost Float64,
			eul Float64,
			roi Nullable(Float64),
			simple_payback Nullable(Float64),
			npv Nullable(Float64),
			sir Nullable(Float64),
			updated_at DateTime
		) ENGINE = MergeTree()
		ORDER BY (organization_id, measure_id, building_id, valuation_context)
	`
	return s.conn.Exec(ctx, query)
}

// DeleteMeasureRows drops every analytical row for a measure. Combined
// with BulkInsertRows this gives the resync job drop-and-recreate
// semantics, so a rerun converges to the same state.
func (s *Store) DeleteMeasureRows(ctx context.Context, measureID string) error {
	query := `DELETE FROM measure_analytics WHERE measure_id = ?`
	if err := s.conn.Exec(ctx, query, measureID); err != nil {
		return fmt.Errorf("failed to delete analytics rows for measure %s: %w", measureID, err)
	}
	return nil
}

// BulkInsertRows inserts rows efficiently using batch insert
func (s *Store) BulkInsertRows(ctx context.Context, rows []MeasureRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO measure_analytics (
			id, measure_id, building_id, organization_id, name, valuation_context,
			project_cost, incentive, annual_savings, maintenance_savings,
			electric_savings, gas_savings, water_savings, energy_savings,
			ghg, ghg_cost, eul, roi, simple_payback, npv, sir, updated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = time.Now()
		}
		if err := batch.Append(
			row.ID, row.MeasureID, row.BuildingID, row.OrganizationID, row.Name,
			row.ValuationContext, row.ProjectCost, row.Incentive, row.AnnualSavings,
			row.MaintenanceSav, row.ElectricSavings, row.GasSavings, row.WaterSavings,
			row.EnergySavings, row.GHG, row.GHGCost, row.EUL,
			row.ROI, row.SimplePayback, row.NPV, row.SIR, row.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// CountMeasureRows returns the number of analytical rows for a measure.
func (s *Store) CountMeasureRows(ctx context.Context, measureID string) (int, error) {
	query := `SELECT count() FROM measure_analytics WHERE measure_id = ?`
	row := s.conn.QueryRow(ctx, query, measureID)
	var count uint64
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return int(count), nil
}
