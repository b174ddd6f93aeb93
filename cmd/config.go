package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/etnz/reckon"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Environment variables read by rk, and passed to extensions.
const (
	EnvRules       = "RK_RULES"
	EnvWindowDays  = "RK_WINDOW_DAYS"
	EnvTolerance   = "RK_TOLERANCE"
	EnvLogLevel    = "RK_LOG_LEVEL"
	EnvMatchConfig = "RK_MATCH_CONFIG"
	EnvCurrency    = "RK_CURRENCY"
)

// Init loads the .env file of the working directory, if any, and sets up the
// default logger. Variables already set in the environment win over the file.
func Init() {
	err := godotenv.Load()
	SetupLogger(os.Getenv(EnvLogLevel))
	switch {
	case err == nil:
		slog.Debug(".env file loaded")
	case errors.Is(err, fs.ErrNotExist):
	default:
		slog.Warn("could not load .env file", "error", err)
	}
}

// SetupLogger installs a text logger on stderr as the default logger.
// Unknown levels fall back to warn, so that rk stays quiet.
func SetupLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

// envOr returns the value of the environment variable key, or def.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// matchSettings are the reconciliation settings given on the command line.
// Unset values are negative or empty.
type matchSettings struct {
	configFile string
	window     int
	tolerance  string
	workers    int
}

// resolve builds the MatchConfig, from lowest to highest precedence:
// defaults, the YAML config file, the environment, the flags.
func (s matchSettings) resolve() (reckon.MatchConfig, error) {
	cfg := reckon.DefaultMatchConfig()
	name := s.configFile
	if name == "" {
		name = os.Getenv(EnvMatchConfig)
	}
	if name != "" {
		f, err := os.Open(name)
		if err != nil {
			return reckon.MatchConfig{}, fmt.Errorf("could not open match config: %w", err)
		}
		defer f.Close()
		if cfg, err = reckon.LoadMatchConfig(f); err != nil {
			return reckon.MatchConfig{}, fmt.Errorf("%s: %w", name, err)
		}
		slog.Debug("match config loaded", "file", name)
	}

	if v := os.Getenv(EnvWindowDays); v != "" {
		window, err := strconv.Atoi(v)
		if err != nil {
			return reckon.MatchConfig{}, fmt.Errorf("invalid %s %q: %w", EnvWindowDays, v, err)
		}
		cfg.Window = window
	}
	if v := os.Getenv(EnvTolerance); v != "" {
		tolerance, err := decimal.NewFromString(v)
		if err != nil {
			return reckon.MatchConfig{}, fmt.Errorf("invalid %s %q: %w", EnvTolerance, v, err)
		}
		cfg.AmountTolerance = tolerance
	}

	if s.window >= 0 {
		cfg.Window = s.window
	}
	if s.tolerance != "" {
		tolerance, err := decimal.NewFromString(s.tolerance)
		if err != nil {
			return reckon.MatchConfig{}, fmt.Errorf("invalid tolerance %q: %w", s.tolerance, err)
		}
		cfg.AmountTolerance = tolerance
	}
	if s.workers >= 0 {
		cfg.Workers = s.workers
	}
	return cfg, cfg.Validate()
}

// loadRules reads the rule set file, "AU" selects the built-in Australian
// rules. An empty name falls back to $RK_RULES.
func loadRules(name string) (reckon.RuleSet, error) {
	if name == "" {
		name = os.Getenv(EnvRules)
	}
	if name == "" {
		return reckon.RuleSet{}, fmt.Errorf("no rule set, use -rules or set %s", EnvRules)
	}
	if strings.EqualFold(name, "AU") {
		return reckon.AustralianRules(), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return reckon.RuleSet{}, fmt.Errorf("could not open rule set: %w", err)
	}
	defer f.Close()
	rules, err := reckon.LoadRuleSet(f)
	if err != nil {
		return reckon.RuleSet{}, fmt.Errorf("%s: %w", name, err)
	}
	slog.Debug("rule set loaded", "file", name, "name", rules.Name)
	return rules, nil
}
