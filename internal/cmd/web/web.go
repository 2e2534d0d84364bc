// Package web parses web command configuration and launches the service.
package web

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/louisbranch/marketplace/internal/experiment"
	"github.com/louisbranch/marketplace/internal/experiments"
	entrypoint "github.com/louisbranch/marketplace/internal/platform/cmd"
	"github.com/louisbranch/marketplace/internal/platform/config"
	"github.com/louisbranch/marketplace/internal/platform/random"
	"github.com/louisbranch/marketplace/internal/platform/telemetry/metrics"
	"github.com/louisbranch/marketplace/internal/services/web"
	"github.com/louisbranch/marketplace/internal/tracking"
	"github.com/louisbranch/marketplace/internal/tracking/storage/sqlite"
)

const minHydrationKeyBytes = 32

// Config holds the web command configuration.
type Config struct {
	HTTPAddr            string          `env:"MARKETPLACE_WEB_HTTP_ADDR" envDefault:"localhost:8086"`
	DBPath              string          `env:"MARKETPLACE_WEB_DB_PATH" envDefault:"data/web.db"`
	HydrationKey        string          `env:"MARKETPLACE_WEB_HYDRATION_KEY"`
	TrustForwardedProto bool            `env:"MARKETPLACE_WEB_TRUST_FORWARDED_PROTO"`
	Experiments         map[string]bool `env:"MARKETPLACE_EXPERIMENTS" envSeparator:"," envKeyValSeparator:"="`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Analytics event database path")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Honour X-Forwarded-Proto when deciding on Secure cookies")
	fs.Func("experiments", "Experiment flags as id=true,id=false (replaces MARKETPLACE_EXPERIMENTS)", func(raw string) error {
		flags, err := parseExperimentFlags(raw)
		if err != nil {
			return err
		}
		cfg.Experiments = flags
		return nil
	})
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values ParseConfig cannot default.
func (c Config) Validate() error {
	if len(strings.TrimSpace(c.HydrationKey)) < minHydrationKeyBytes {
		return fmt.Errorf("MARKETPLACE_WEB_HYDRATION_KEY must be at least %d bytes", minHydrationKeyBytes)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db path is required")
	}
	if err := experiments.ValidateFlags(c.Experiments); err != nil {
		return fmt.Errorf("experiment flags: %w", err)
	}
	return nil
}

// EnabledExperiments lists the enabled flag ids in sorted order.
func (c Config) EnabledExperiments() []string {
	var ids []string
	for id, enabled := range c.Experiments {
		if enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

const experimentsEnv = "MARKETPLACE_EXPERIMENTS"

// parseExperimentFlags reads the -experiments value with the same parser that
// loads MARKETPLACE_EXPERIMENTS.
func parseExperimentFlags(raw string) (map[string]bool, error) {
	var parsed struct {
		Experiments map[string]bool `env:"MARKETPLACE_EXPERIMENTS" envSeparator:"," envKeyValSeparator:"="`
	}
	if err := config.ParseEnvFrom(&parsed, map[string]string{experimentsEnv: raw}); err != nil {
		return nil, err
	}
	if parsed.Experiments == nil {
		return map[string]bool{}, nil
	}
	return parsed.Experiments, nil
}

// Run starts the web service with its event store and metrics.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, func(ctx context.Context) error {
		return serve(ctx, cfg)
	})
}

func serve(ctx context.Context, cfg Config) error {
	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()

	randomizer, err := random.NewUnitInterval()
	if err != nil {
		return fmt.Errorf("seed randomizer: %w", err)
	}
	m := metrics.New()

	server, err := web.NewServer(ctx, web.Config{
		HTTPAddr:            cfg.HTTPAddr,
		HydrationKey:        []byte(cfg.HydrationKey),
		TrustForwardedProto: cfg.TrustForwardedProto,
		Experiments:         experiments.All(),
		Flags:               experiment.MapFlags(cfg.Experiments),
		Tracker:             tracking.NewEmitter(store, tracking.WithRecorder(m)),
		Metrics:             m.Handler(),
		Randomizer:          randomizer,
	})
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}
	defer server.Close()

	log.Printf("listening on %s, enabled experiments: %v", server.Addr(), cfg.EnabledExperiments())

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve web: %w", err)
	}
	return nil
}
