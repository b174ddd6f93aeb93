package reckon

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// matchConfigFile is the YAML shape of a MatchConfig.
//
//	window: 3
//	amount_tolerance: 2.50
//	high_threshold: 0.7
//	low_threshold: 40%
//	amount_weight: 0.5
//	proximity_weight: 0.3
//	description_weight: 0.2
//	workers: 4
type matchConfigFile struct {
	Window            *int         `yaml:"window"`
	AmountTolerance   *yamlDecimal `yaml:"amount_tolerance"`
	HighThreshold     *yamlDecimal `yaml:"high_threshold"`
	LowThreshold      *yamlDecimal `yaml:"low_threshold"`
	AmountWeight      *yamlDecimal `yaml:"amount_weight"`
	ProximityWeight   *yamlDecimal `yaml:"proximity_weight"`
	DescriptionWeight *yamlDecimal `yaml:"description_weight"`
	Workers           *int         `yaml:"workers"`
}

// LoadMatchConfig decodes a MatchConfig from YAML. Absent keys keep the
// value of DefaultMatchConfig. The result is validated.
func LoadMatchConfig(r io.Reader) (MatchConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f matchConfigFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return MatchConfig{}, fmt.Errorf("could not decode match config: %w", err)
	}

	cfg := DefaultMatchConfig()
	if f.Window != nil {
		cfg.Window = *f.Window
	}
	if f.Workers != nil {
		cfg.Workers = *f.Workers
	}
	set := func(dst *decimal.Decimal, src *yamlDecimal) {
		if src != nil {
			*dst = src.Decimal
		}
	}
	set(&cfg.AmountTolerance, f.AmountTolerance)
	set(&cfg.HighThreshold, f.HighThreshold)
	set(&cfg.LowThreshold, f.LowThreshold)
	set(&cfg.AmountWeight, f.AmountWeight)
	set(&cfg.ProximityWeight, f.ProximityWeight)
	set(&cfg.DescriptionWeight, f.DescriptionWeight)
	if err := cfg.Validate(); err != nil {
		return MatchConfig{}, err
	}
	return cfg, nil
}

// LoadFormat decodes a bank statement Format from YAML, for exports that
// no preset covers. The result is validated.
func LoadFormat(r io.Reader) (Format, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Format
	if err := dec.Decode(&f); err != nil {
		return Format{}, fmt.Errorf("could not decode format: %w", err)
	}
	f.FixedCurrency = strings.ToUpper(strings.TrimSpace(f.FixedCurrency))
	if err := f.Validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}

// LoadTradeFormat decodes a trade ledger TradeFormat from YAML. The result
// is validated.
func LoadTradeFormat(r io.Reader) (TradeFormat, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f TradeFormat
	if err := dec.Decode(&f); err != nil {
		return TradeFormat{}, fmt.Errorf("could not decode trade format: %w", err)
	}
	f.FixedCurrency = strings.ToUpper(strings.TrimSpace(f.FixedCurrency))
	if err := f.Validate(); err != nil {
		return TradeFormat{}, err
	}
	return f, nil
}

// gstConfigFile is the YAML shape of a GSTConfig.
type gstConfigFile struct {
	Rate       *yamlDecimal      `yaml:"rate"`
	Categories []GSTCategory     `yaml:"categories"`
	Overrides  map[string]string `yaml:"overrides"`
}

// LoadGSTConfig decodes a GSTConfig from YAML. Absent keys keep the value of
// DefaultGSTConfig.
func LoadGSTConfig(r io.Reader) (GSTConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f gstConfigFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return GSTConfig{}, fmt.Errorf("could not decode gst config: %w", err)
	}
	cfg := DefaultGSTConfig()
	if f.Rate != nil {
		if f.Rate.IsNegative() {
			return GSTConfig{}, invalid("gst_rate", "must not be negative, got %v", f.Rate.Decimal)
		}
		cfg.Rate = f.Rate.Decimal
	}
	if f.Categories != nil {
		cfg.Categories = f.Categories
	}
	cfg.Overrides = f.Overrides
	return cfg, nil
}
