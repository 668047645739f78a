// Building Energy Metrics CLI
//
// Usage:
//   bem serve
//   bem recompute-ghg --building b1 --building b2
//   bem recompute-metrics --org org1
//   bem resync --measure m1 --measure m2
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"building-energy/api"
	"building-energy/db/clickhouse"
	"building-energy/internal/aggregate"
	"building-energy/internal/analysis"
	"building-energy/internal/pipeline"
	"building-energy/internal/store"
	"building-energy/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// .env is optional; env vars win either way.
	_ = godotenv.Load()
	// The platform HTTP client logs retries through the slog default.
	platform.InitLogger()

	app := &cli.App{
		Name:    "bem",
		Usage:   "Building energy metrics engine - financial and emissions rollups",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"BEM_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Value:   "postgres://localhost/building_energy?sslmode=disable",
				Usage:   "Postgres DSN for the document store",
				EnvVars: []string{"POSTGRES_DSN"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "building_energy",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "analysis-url",
				Value:   "http://localhost:9100",
				Usage:   "Base URL of the analysis service",
				EnvVars: []string{"ANALYSIS_URL"},
			},
			&cli.StringFlag{
				Name:    "cashflow-url",
				Value:   "http://localhost:9200",
				Usage:   "Base URL of the cash-flow service",
				EnvVars: []string{"CASHFLOW_URL"},
			},
		},

		Commands: []*cli.Command{
			serveCommand(),
			ghgCommand(),
			metricsCommand(),
			resyncCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP listen port",
				EnvVars: []string{"BEM_PORT"},
			},
		},
		Action: func(c *cli.Context) error {
			deps, err := buildDeps(c)
			if err != nil {
				return err
			}
			defer deps.close()

			cfg := api.DefaultConfig()
			cfg.Port = c.Int("port")
			server := api.NewServer(deps.store, deps.engine, deps.propagator, cfg, deps.log)
			return server.StartWithGracefulShutdown()
		},
	}
}

func ghgCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute-ghg",
		Usage: "Recompute avoided emissions for a building set",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "building",
				Aliases:  []string{"b"},
				Usage:    "Building ID (repeatable)",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			deps, err := buildDeps(c)
			if err != nil {
				return err
			}
			defer deps.close()
			return deps.propagator.RecomputeGHGForBuildings(context.Background(), c.StringSlice("building"))
		},
	}
}

func metricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute-metrics",
		Usage: "Run the full recompute pipeline for every measure in an organization",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "org",
				Usage:    "Organization ID",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			deps, err := buildDeps(c)
			if err != nil {
				return err
			}
			defer deps.close()
			return deps.propagator.RecomputeOrganization(context.Background(), c.String("org"))
		},
	}
}

func resyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "resync",
		Usage: "Rebuild the analytical copies for a measure id set",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "measure",
				Aliases:  []string{"m"},
				Usage:    "Measure ID (repeatable)",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			deps, err := buildDeps(c)
			if err != nil {
				return err
			}
			defer deps.close()
			return deps.propagator.ResyncMeasures(context.Background(), c.StringSlice("measure"))
		},
	}
}

// =============================================================================
// WIRING
// =============================================================================

type deps struct {
	log        zerolog.Logger
	store      *store.Postgres
	analytics  *clickhouse.Store
	engine     *aggregate.Engine
	propagator *pipeline.Propagator
}

func buildDeps(c *cli.Context) (*deps, error) {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	pg, err := store.NewPostgres(c.String("postgres-dsn"))
	if err != nil {
		return nil, err
	}
	if err := pg.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}

	analytics, err := clickhouse.NewStore(&clickhouse.Config{
		Host:     c.String("clickhouse-host"),
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
	})
	if err != nil {
		return nil, err
	}
	if err := analytics.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}

	httpClient := platform.NewHTTPClient(3, 60*time.Second)
	cashFlow := analysis.NewCashFlowClient(httpClient, c.String("cashflow-url"), log)
	analyzer := analysis.NewClient(httpClient, c.String("analysis-url"), log)
	engine := aggregate.NewEngine(cashFlow, log)
	propagator := pipeline.NewPropagator(pg, analytics, engine, log).WithAnalyzer(analyzer)

	return &deps{
		log:        log,
		store:      pg,
		analytics:  analytics,
		engine:     engine,
		propagator: propagator,
	}, nil
}

func (d *deps) close() {
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.analytics != nil {
		_ = d.analytics.Close()
	}
}
