package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/dnldd/rebound/engine"
	"github.com/dnldd/rebound/session"
	"github.com/dnldd/rebound/shared"
	"github.com/spf13/viper"
)

const (
	// envPrefix prefixes environment overrides of strategy keys, for example
	// REBOUND_LONG_TAKE_PROFIT_POINTS.
	envPrefix = "REBOUND"
	// marketsKey is the section holding per market overrides.
	marketsKey = "markets"
)

// SessionFile represents the session section of a strategy file.
type SessionFile struct {
	Location            string `mapstructure:"location"`
	Open                string `mapstructure:"open"`
	Close               string `mapstructure:"close"`
	NoTradeFirstMinutes int    `mapstructure:"no_trade_first_minutes"`
	CoreOpen            string `mapstructure:"core_open"`
	CoreClose           string `mapstructure:"core_close"`
}

// StrategyFile represents a strategy configuration file after market overrides are merged.
type StrategyFile struct {
	Mode                     string            `mapstructure:"mode"`
	RSIPeriod                int               `mapstructure:"rsi_period"`
	Timeframe                string            `mapstructure:"timeframe"`
	SpreadPoints             float64           `mapstructure:"spread_points"`
	OffHoursSpreadMultiplier float64           `mapstructure:"off_hours_spread_multiplier"`
	OvernightFundingRate     float64           `mapstructure:"overnight_funding_rate"`
	SizePerPoint             float64           `mapstructure:"size_per_point"`
	StartingCapital          float64           `mapstructure:"starting_capital"`
	MarginRequirementPercent float64           `mapstructure:"margin_requirement_percent"`
	Session                  SessionFile       `mapstructure:"session"`
	Long                     engine.SideConfig `mapstructure:"long"`
	Short                    engine.SideConfig `mapstructure:"short"`
}

// StrategyConfig is a loaded strategy and the session it trades in.
type StrategyConfig struct {
	Strategy *engine.Config
	Session  *session.Config
}

// setDefaults registers the default strategy values so that partial files and
// environment overrides resolve.
func setDefaults(v *viper.Viper, market string) {
	def := engine.DefaultConfig(market)

	v.SetDefault("mode", def.Mode.String())
	v.SetDefault("rsi_period", def.RSIPeriod)
	v.SetDefault("timeframe", def.Timeframe.String())
	v.SetDefault("spread_points", def.SpreadPoints)
	v.SetDefault("off_hours_spread_multiplier", def.OffHoursSpreadMultiplier)
	v.SetDefault("overnight_funding_rate", def.OvernightFundingRate)
	v.SetDefault("size_per_point", def.SizePerPoint)
	v.SetDefault("starting_capital", def.StartingCapital)
	v.SetDefault("margin_requirement_percent", def.MarginRequirementPercent)

	v.SetDefault("session.location", session.DefaultLocation)
	v.SetDefault("session.open", session.DefaultOpen)
	v.SetDefault("session.close", session.DefaultClose)
	v.SetDefault("session.no_trade_first_minutes", session.DefaultNoTradeFirstMinutes)
	v.SetDefault("session.core_open", "")
	v.SetDefault("session.core_close", "")

	sides := map[string]engine.SideConfig{"long": def.Long, "short": def.Short}
	for name, side := range sides {
		v.SetDefault(name+".threshold", side.Threshold)
		v.SetDefault(name+".take_profit_points", side.TakeProfitPoints)
		v.SetDefault(name+".stop_loss_points", side.StopLossPoints)
		v.SetDefault(name+".use_trailing_stop", side.UseTrailingStop)
		v.SetDefault(name+".trailing_activation_points", side.TrailingActivationPoints)
		v.SetDefault(name+".trailing_distance_points", side.TrailingDistancePoints)
		v.SetDefault(name+".force_eod_exit", side.ForceEODExit)
		v.SetDefault(name+".max_hold_days", side.MaxHoldDays)
	}
}

// newStrategyViper creates a viper instance with defaults and environment overrides for
// the provided market.
func newStrategyViper(market string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, market)

	return v
}

// applyMarketOverrides merges the market's section of the markets key over the globals.
// Market names match case insensitively.
func applyMarketOverrides(v *viper.Viper, market string) bool {
	overrides := v.Sub(marketsKey + "." + strings.ToLower(market))
	if overrides == nil {
		return false
	}

	for _, key := range overrides.AllKeys() {
		v.Set(key, overrides.Get(key))
	}

	return true
}

// LoadStrategyConfig loads the strategy configuration of the provided market from a yaml
// file. An empty path yields the defaults with environment overrides applied.
func LoadStrategyConfig(path string, market string) (*StrategyConfig, error) {
	v := newStrategyViper(market)
	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("%w: reading strategy config %s: %v", shared.ErrConfiguration, path, err)
		}
	}

	applyMarketOverrides(v, market)

	var file StrategyFile
	err := v.Unmarshal(&file)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding strategy config: %v", shared.ErrConfiguration, err)
	}

	return file.Resolve(market)
}

// Resolve converts the strategy file to validated strategy and session configurations.
func (f *StrategyFile) Resolve(market string) (*StrategyConfig, error) {
	mode, err := shared.ParseStrategyMode(f.Mode)
	if err != nil {
		return nil, err
	}
	timeframe, err := shared.ParseTimeframe(f.Timeframe)
	if err != nil {
		return nil, err
	}

	strategy := &engine.Config{
		Market:                   market,
		Mode:                     mode,
		RSIPeriod:                f.RSIPeriod,
		Timeframe:                timeframe,
		SpreadPoints:             f.SpreadPoints,
		OffHoursSpreadMultiplier: f.OffHoursSpreadMultiplier,
		OvernightFundingRate:     f.OvernightFundingRate,
		SizePerPoint:             f.SizePerPoint,
		StartingCapital:          f.StartingCapital,
		MarginRequirementPercent: f.MarginRequirementPercent,
		Long:                     f.Long,
		Short:                    f.Short,
	}
	err = strategy.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating strategy config: %w", err)
	}

	loc, err := time.LoadLocation(f.Session.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: loading session location %q: %v", shared.ErrConfiguration,
			f.Session.Location, err)
	}

	sessionCfg := &session.Config{
		Location:            loc,
		Open:                f.Session.Open,
		Close:               f.Session.Close,
		NoTradeFirstMinutes: f.Session.NoTradeFirstMinutes,
		CoreOpen:            f.Session.CoreOpen,
		CoreClose:           f.Session.CoreClose,
	}

	return &StrategyConfig{Strategy: strategy, Session: sessionCfg}, nil
}
