package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/rebound/report"
	"github.com/dnldd/rebound/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createRunTableSQL      = "CREATE TABLE IF NOT EXISTS run (id TEXT PRIMARY KEY, market TEXT, fidelity TEXT, mode TEXT, takeprofit REAL, trades INTEGER, wins INTEGER, losses INTEGER, winrate REAL, totalpoints REAL, totalcurrency REAL, maxdrawdown REAL, finalbalance REAL, createdon INTEGER)"
	createTradeTableSQL    = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, runid TEXT, market TEXT, direction TEXT, entryprice REAL, entrytime INTEGER, exitprice REAL, exittime INTEGER, exitreason TEXT, grosspoints REAL, overnightcharges REAL, netpoints REAL, netcurrency REAL, daysheld INTEGER, barsheld INTEGER)"
	createMetadataTableSQL = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, runs INTEGER, trades INTEGER, wins INTEGER, losses INTEGER, totalpoints REAL, createdon INTEGER, updatedon INTEGER)"
	persistRunSQL          = "INSERT INTO run(id, market, fidelity, mode, takeprofit, trades, wins, losses, winrate, totalpoints, totalcurrency, maxdrawdown, finalbalance, createdon) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	persistTradeSQL        = "INSERT INTO trade(id, runid, market, direction, entryprice, entrytime, exitprice, exittime, exitreason, grosspoints, overnightcharges, netpoints, netcurrency, daysheld, barsheld) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	findMetadataSQL        = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL      = "UPDATE metadata SET runs = runs + 1, trades = trades + ?, wins = wins + ?, losses = losses + ?, totalpoints = totalpoints + ?, updatedon = ? WHERE id = ?"
	persistMetadataSQL     = "INSERT INTO metadata(id, runs, trades, wins, losses, totalpoints, createdon, updatedon) VALUES(?,?,?,?,?,?,?,?)"
)

// Run represents a completed backtest run to persist.
type Run struct {
	ID         string
	Market     string
	Fidelity   string
	Mode       string
	TakeProfit float64
	CreatedOn  time.Time
	Summary    *report.Summary
}

// RunStorer defines the requirements for storing backtest runs.
type RunStorer interface {
	// PersistRun stores the provided run and its trade ledger to the database.
	PersistRun(ctx context.Context, run *Run, trades []shared.Trade) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("%w: database endpoint cannot be an empty string", shared.ErrConfiguration))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: logger cannot be nil", shared.ErrConfiguration))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the RunStorer interface.
var _ RunStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// execute runs the provided statements in a transaction.
func (db *Database) execute(ctx context.Context, stmts rqlitehttp.SQLStatements) error {
	resp, err := db.client.Execute(ctx, stmts, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("statement %d: %s", idx, errStr)
	}

	return nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	return db.execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunTableSQL},
		{SQL: createTradeTableSQL},
		{SQL: createMetadataTableSQL},
	})
}

// generateMetadataID generates deterministic metadata ids from the market, fidelity and
// take profit of a run.
func generateMetadataID(market string, fidelity string, takeProfit float64) string {
	return fmt.Sprintf("%s-%s-TP-%g", market, fidelity, takeProfit)
}

// runStatements builds the insert statements for a run and its trades.
func runStatements(run *Run, trades []shared.Trade) rqlitehttp.SQLStatements {
	sum := run.Summary
	stmts := make(rqlitehttp.SQLStatements, 0, len(trades)+1)
	stmts = append(stmts, rqlitehttp.SQLStatements{{
		SQL: persistRunSQL,
		PositionalParams: []any{run.ID, run.Market, run.Fidelity, run.Mode, run.TakeProfit,
			sum.Trades, sum.Wins, sum.Losses, sum.WinRate, sum.TotalPoints, sum.TotalCurrency,
			sum.MaxDrawdownPoints, sum.FinalBalance, run.CreatedOn.Unix()},
	}}...)

	for idx := range trades {
		trade := &trades[idx]
		stmts = append(stmts, rqlitehttp.SQLStatements{{
			SQL: persistTradeSQL,
			PositionalParams: []any{trade.ID, run.ID, trade.Market, trade.Direction.String(),
				trade.EntryPrice, trade.EntryTime.Unix(), trade.ExitPrice, trade.ExitTime.Unix(),
				trade.ExitReason.String(), trade.GrossPoints, trade.OvernightCharges,
				trade.NetPoints, trade.NetCurrency, trade.DaysHeld, trade.BarsHeld},
		}}...)
	}

	return stmts
}

// PersistRun stores the provided run and its trade ledger to the database and folds the
// run into its market metadata.
func (db *Database) PersistRun(ctx context.Context, run *Run, trades []shared.Trade) error {
	if run.Summary == nil || run.ID == "" {
		db.cfg.Logger.Error().Msgf("unexpected run state for persistence: %s", spew.Sdump(run))
		return fmt.Errorf("run %q has no summary or id", run.ID)
	}

	err := db.execute(ctx, runStatements(run, trades))
	if err != nil {
		return fmt.Errorf("persisting run %s: %w", run.ID, err)
	}

	id := generateMetadataID(run.Market, run.Fidelity, run.TakeProfit)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	sum := run.Summary
	now := time.Now().Unix()
	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		err = db.execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{sum.Trades, sum.Wins, sum.Losses, sum.TotalPoints, now, id},
			},
		})
		if err != nil {
			return fmt.Errorf("updating metadata %s: %w", id, err)
		}
	default:
		err = db.execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, 1, sum.Trades, sum.Wins, sum.Losses, sum.TotalPoints, now, now},
			},
		})
		if err != nil {
			return fmt.Errorf("persisting metadata %s: %w", id, err)
		}
	}

	db.cfg.Logger.Info().Msgf("persisted run %s with %d trades", run.ID, len(trades))

	return nil
}
