package margin

import (
	"errors"
	"fmt"

	"github.com/dnldd/rebound/shared"
	"github.com/rs/zerolog"
)

// Config is the configuration for the margin validator.
type Config struct {
	// StartingCapital is the account balance before any trade.
	StartingCapital float64
	// MarginRequirementPercent is the margin held per position as a percent of its notional.
	MarginRequirementPercent float64
	// SizePerPoint is the currency value of one point of price movement.
	SizePerPoint float64
	// Logger is the validator logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.StartingCapital <= 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: starting capital must be positive", shared.ErrConfiguration))
	}
	if cfg.MarginRequirementPercent <= 0 || cfg.MarginRequirementPercent > 100 {
		errs = errors.Join(errs, fmt.Errorf("%w: margin requirement percent must be in (0, 100]",
			shared.ErrConfiguration))
	}
	if cfg.SizePerPoint <= 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: size per point must be positive", shared.ErrConfiguration))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: logger cannot be nil", shared.ErrConfiguration))
	}

	return errs
}

// Status represents a snapshot of the account's margin position.
type Status struct {
	StartingCapital float64
	RealizedPNL     float64
	Balance         float64
	UsedMargin      float64
	FreeMargin      float64
	// MarginLevelPercent is the balance as a percent of used margin, zero when nothing is used.
	MarginLevelPercent float64
	OpenPositions      int
}

// Validator tracks the realized balance of the account and gates new positions on free margin.
type Validator struct {
	cfg         *Config
	fraction    float64
	realizedPNL float64
}

// NewValidator initializes a new margin validator.
func NewValidator(cfg *Config) (*Validator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating margin config: %w", err)
	}

	v := &Validator{
		cfg:      cfg,
		fraction: cfg.MarginRequirementPercent / 100,
	}

	return v, nil
}

// Balance returns the starting capital plus realized profit and loss.
func (v *Validator) Balance() float64 {
	return v.cfg.StartingCapital + v.realizedPNL
}

// RealizedPNL returns the realized profit and loss in currency.
func (v *Validator) RealizedPNL() float64 {
	return v.realizedPNL
}

// RequiredMargin returns the margin a position entered at the provided price holds.
func (v *Validator) RequiredMargin(entryPrice float64) float64 {
	return entryPrice * v.cfg.SizePerPoint * v.fraction
}

// UsedMargin returns the margin held by open positions entered at the provided prices.
func (v *Validator) UsedMargin(openEntryPrices ...float64) float64 {
	var used float64
	for _, price := range openEntryPrices {
		used += v.RequiredMargin(price)
	}

	return used
}

// CanOpen reports whether a position entered at the provided price fits in the free margin
// left by the other open positions. A reason is returned for rejections.
func (v *Validator) CanOpen(entryPrice float64, openEntryPrices ...float64) (bool, string) {
	balance := v.Balance()
	free := balance - v.UsedMargin(openEntryPrices...)
	required := v.RequiredMargin(entryPrice)
	if free >= required {
		return true, ""
	}

	reason := fmt.Sprintf("insufficient margin: required %.2f, free %.2f (balance %.2f)",
		required, free, balance)
	v.cfg.Logger.Debug().Msgf("rejecting entry at %.2f, %s", entryPrice, reason)

	return false, reason
}

// OnTradeClosed records the realized currency profit or loss of a closed trade.
func (v *Validator) OnTradeClosed(pnl float64) {
	v.realizedPNL += pnl
}

// Status returns a snapshot of the account given the open positions' entry prices.
func (v *Validator) Status(openEntryPrices ...float64) Status {
	balance := v.Balance()
	used := v.UsedMargin(openEntryPrices...)

	status := Status{
		StartingCapital: v.cfg.StartingCapital,
		RealizedPNL:     v.realizedPNL,
		Balance:         balance,
		UsedMargin:      used,
		FreeMargin:      balance - used,
		OpenPositions:   len(openEntryPrices),
	}
	if used > 0 {
		status.MarginLevelPercent = balance / used * 100
	}

	return status
}
