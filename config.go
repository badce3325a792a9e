package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/dnldd/rebound/saver"
	"github.com/dnldd/rebound/service"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the configuration struct for the backtester.
type Config struct {
	// StrategyFilepath is the path to the strategy yaml file, empty for the defaults.
	StrategyFilepath string
	// Market is the backtested market.
	Market string
	// BarsFilepath is the path to the csv or json bar data.
	BarsFilepath string
	// TicksFilepath is the path to the csv tick data.
	TicksFilepath string
	// Mode is the run mode, one of bar, tick, compare or sweep.
	Mode string
	// OutputDir is the directory results are written to, empty to skip file output.
	OutputDir string
	// Format is the trade ledger format, one of csv, json or parquet.
	Format string
	// SweepTakeProfits are the take profit distances of a sweep.
	SweepTakeProfits []string
	// SweepWorkers bounds the parallel runs of a sweep.
	SweepWorkers int
	// Schedule is an optional cron expression to rerun the backtest on.
	Schedule string
	// DBEndpoint is the optional rqlite endpoint runs are persisted to.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// LogLevel is the minimum log level.
	LogLevel string

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.BarsFilepath == "" && cfg.TicksFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("a bars or ticks filepath is required"))
	}

	mode, err := service.ParseRunMode(cfg.Mode)
	if err != nil {
		errs = errors.Join(errs, err)
	}
	if err == nil && mode == service.SweepMode {
		if len(cfg.SweepTakeProfits) == 0 {
			errs = errors.Join(errs, fmt.Errorf("sweep take profits cannot be empty in sweep mode"))
		}
		_, err := cfg.sweepTakeProfits()
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if cfg.SweepWorkers < 0 {
		errs = errors.Join(errs, fmt.Errorf("sweep workers cannot be negative"))
	}
	if cfg.OutputDir != "" {
		_, err := saver.NewLedgerSaver(cfg.Format)
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if cfg.DBEndpoint != "" && cfg.DBUser == "" {
		errs = errors.Join(errs, fmt.Errorf("database user cannot be an empty string"))
	}
	if cfg.LogLevel != "" {
		_, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalid log level %q", cfg.LogLevel))
		}
	}

	return errs
}

// sweepTakeProfits parses the sweep take profit distances.
func (cfg *Config) sweepTakeProfits() ([]float64, error) {
	tps := make([]float64, 0, len(cfg.SweepTakeProfits))
	for _, raw := range cfg.SweepTakeProfits {
		tp, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sweep take profit %q", raw)
		}
		tps = append(tps, tp)
	}

	return tps, nil
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value any
		usage string
	}{
		{"strategy", &cfg.StrategyFilepath, "the strategy yaml filepath"},
		{"market", &cfg.Market, "the backtested market"},
		{"bars", &cfg.BarsFilepath, "the csv or json bar data filepath"},
		{"ticks", &cfg.TicksFilepath, "the csv tick data filepath"},
		{"mode", &cfg.Mode, "the run mode (bar, tick, compare or sweep)"},
		{"outdir", &cfg.OutputDir, "the results output directory"},
		{"format", &cfg.Format, "the trade ledger format (csv, json or parquet)"},
		{"sweeptps", &cfg.SweepTakeProfits, "the comma separated take profits of a sweep"},
		{"sweepworkers", &cfg.SweepWorkers, "the number of parallel sweep runs"},
		{"schedule", &cfg.Schedule, "the cron expression to rerun the backtest on"},
		{"dbendpoint", &cfg.DBEndpoint, "the rqlite endpoint to persist runs to"},
		{"dbuser", &cfg.DBUser, "the database user"},
		{"dbpass", &cfg.DBPass, "the database user pass"},
		{"loglevel", &cfg.LogLevel, "the minimum log level"},
	}
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.Mode == "" {
		cfg.Mode = service.BarMode.String()
	}
	if cfg.Format == "" {
		cfg.Format = "csv"
	}

	return cfg.Validate()
}
