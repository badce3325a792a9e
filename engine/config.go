package engine

import (
	"errors"
	"fmt"

	"github.com/dnldd/rebound/shared"
	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator, safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// SideConfig represents the trading parameters of one side of the strategy.
type SideConfig struct {
	// Threshold is the rsi level, oversold for longs and overbought for shorts.
	Threshold float64 `mapstructure:"threshold" validate:"gte=0,lte=100"`
	// TakeProfitPoints is the take profit distance from entry.
	TakeProfitPoints float64 `mapstructure:"take_profit_points" validate:"gt=0"`
	// StopLossPoints is the initial stop distance from entry.
	StopLossPoints float64 `mapstructure:"stop_loss_points" validate:"gt=0"`
	// UseTrailingStop toggles the trailing stop.
	UseTrailingStop bool `mapstructure:"use_trailing_stop"`
	// TrailingActivationPoints is the favourable excursion that activates the trailing stop.
	TrailingActivationPoints float64 `mapstructure:"trailing_activation_points" validate:"gte=0"`
	// TrailingDistancePoints is the distance the stop trails the best price by.
	TrailingDistancePoints float64 `mapstructure:"trailing_distance_points" validate:"gte=0"`
	// ForceEODExit closes open positions on the last bar of the session.
	ForceEODExit bool `mapstructure:"force_eod_exit"`
	// MaxHoldDays closes positions held for at least this many days, zero disables it.
	MaxHoldDays int `mapstructure:"max_hold_days" validate:"gte=0"`
}

// Config represents the strategy configuration shared by the simulators.
type Config struct {
	// Market is the traded market.
	Market string `validate:"required"`
	// Mode selects the traded sides.
	Mode shared.StrategyMode
	// RSIPeriod is the rsi smoothing period.
	RSIPeriod int `validate:"gte=1"`
	// Timeframe is the bar timeframe.
	Timeframe shared.Timeframe
	// SpreadPoints is the quoted spread during core hours.
	SpreadPoints float64 `validate:"gte=0"`
	// OffHoursSpreadMultiplier widens the spread outside core hours.
	OffHoursSpreadMultiplier float64 `validate:"gte=1"`
	// OvernightFundingRate is the annual funding rate charged per night held, as a fraction.
	OvernightFundingRate float64 `validate:"gte=0,lt=1"`
	// SizePerPoint is the currency value of one point.
	SizePerPoint float64 `validate:"gt=0"`
	// StartingCapital is the account balance before any trade.
	StartingCapital float64 `validate:"gt=0"`
	// MarginRequirementPercent is the margin held per position as a percent of notional.
	MarginRequirementPercent float64 `validate:"gt=0,lte=100"`
	// Long is the long side configuration.
	Long SideConfig `validate:"-"`
	// Short is the short side configuration.
	Short SideConfig `validate:"-"`
}

// DefaultConfig returns the default strategy configuration for the provided market.
func DefaultConfig(market string) *Config {
	return &Config{
		Market:                   market,
		Mode:                     shared.LongOnly,
		RSIPeriod:                2,
		Timeframe:                shared.ThirtyMinute,
		SpreadPoints:             2,
		OffHoursSpreadMultiplier: 1,
		OvernightFundingRate:     0.035,
		SizePerPoint:             2,
		StartingCapital:          10000,
		MarginRequirementPercent: 5,
		Long: SideConfig{
			Threshold:                5,
			TakeProfitPoints:         40,
			StopLossPoints:           100,
			UseTrailingStop:          true,
			TrailingActivationPoints: 25,
			TrailingDistancePoints:   10,
			ForceEODExit:             true,
		},
		Short: SideConfig{
			Threshold:                96,
			TakeProfitPoints:         40,
			StopLossPoints:           80,
			UseTrailingStop:          true,
			TrailingActivationPoints: 25,
			TrailingDistancePoints:   10,
		},
	}
}

// Side returns the configuration of the provided side.
func (cfg *Config) Side(direction shared.Direction) *SideConfig {
	if direction == shared.Short {
		return &cfg.Short
	}

	return &cfg.Long
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	err := validate.Struct(cfg)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("%w: %v", shared.ErrConfiguration, err))
	}

	if cfg.Timeframe.Duration() == 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: unknown timeframe %d", shared.ErrConfiguration, cfg.Timeframe))
	}

	directions := cfg.Mode.Directions()
	if len(directions) == 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: invalid strategy mode %d", shared.ErrConfiguration, cfg.Mode))
	}

	for _, direction := range directions {
		side := cfg.Side(direction)
		err := validate.Struct(side)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%w: %s side: %v", shared.ErrConfiguration,
				direction.String(), err))
		}
		if side.UseTrailingStop && side.TrailingDistancePoints <= 0 {
			errs = errors.Join(errs, fmt.Errorf("%w: %s side: trailing distance must be positive "+
				"when the trailing stop is enabled", shared.ErrConfiguration, direction.String()))
		}
	}

	if cfg.Mode == shared.Both && cfg.Long.Threshold >= cfg.Short.Threshold {
		errs = errors.Join(errs, fmt.Errorf("%w: long threshold %.2f must be below short threshold %.2f",
			shared.ErrConfiguration, cfg.Long.Threshold, cfg.Short.Threshold))
	}

	return errs
}
