// Command eod-fetch downloads end-of-day market data for a set of symbols
// and date range described by a YAML config file, writing the records to
// stdout or a file as CSV or JSON lines.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/markovejnovic/go-marketstack/internal/config"
	"github.com/markovejnovic/go-marketstack/pkg/client"
	"github.com/markovejnovic/go-marketstack/pkg/eod"
	"github.com/markovejnovic/go-marketstack/pkg/logging"
	"github.com/markovejnovic/go-marketstack/pkg/plan"
	"github.com/markovejnovic/go-marketstack/pkg/ratelimit"
	"github.com/markovejnovic/go-marketstack/pkg/transport"
)

func main() {
	configPath := flag.String("config", "eod-fetch.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eod-fetch: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Fetch failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tier, err := plan.ParsePlan(cfg.Provider.Plan)
	if err != nil {
		return err
	}
	query, err := buildQuery(cfg.Query)
	if err != nil {
		return err
	}

	clientCfg := client.DefaultConfig(cfg.Provider.AccessKey, tier)
	clientCfg.Timeout = cfg.Provider.Timeout
	clientCfg.MaxPagesPerQuery = cfg.Query.MaxPages
	if cfg.Provider.BaseURL != "" {
		clientCfg.BaseURL = cfg.Provider.BaseURL
	}

	if cfg.Provider.MaxRetries > 0 {
		retryCfg := transport.DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.Provider.MaxRetries
		clientCfg.HTTPClient = &http.Client{
			Timeout:   cfg.Provider.Timeout,
			Transport: transport.NewRetry(nil, retryCfg),
		}
	}

	if cfg.RateLimit.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RateLimit.RedisAddr, err)
		}
		limits := plan.LimitsFor(tier)
		clientCfg.Limiter = ratelimit.NewRedisWindow(rdb, cfg.RateLimit.RedisKey,
			limits.MaxRequestsPerWindow, limits.Window)
		logger.Info().Str("addr", cfg.RateLimit.RedisAddr).Msg("Sharing request budget through redis")
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics, logger)
	}

	out, closeOut, err := openOutput(cfg.Output.Path)
	if err != nil {
		return err
	}
	defer closeOut()

	writer, err := newRecordWriter(cfg.Output.Format, out)
	if err != nil {
		return err
	}

	logger.Info().
		Strs("symbols", query.Symbols).
		Str("from", query.From.String()).
		Str("to", query.To.String()).
		Str("plan", tier.String()).
		Msg("Fetching")

	pager, err := c.Pages(query)
	if err != nil {
		return err
	}

	start := time.Now()
	rows := 0
	for pager.Next(ctx) {
		for _, rec := range pager.Page().Records {
			if err := writer.Write(rec); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
		rows += pager.Page().Count
	}
	if err := pager.Err(); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	logger.Info().
		Int("rows", rows).
		Int("pages", pager.Cursor().Pages).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")
	return nil
}

func buildQuery(qc config.QueryConfig) (eod.Query, error) {
	from, err := eod.ParseDate(qc.DateFrom)
	if err != nil {
		return eod.Query{}, err
	}
	to, err := eod.ParseDate(qc.DateTo)
	if err != nil {
		return eod.Query{}, err
	}
	return eod.Query{
		Symbols:  qc.Symbols,
		From:     from,
		To:       to,
		Exchange: qc.Exchange,
	}, nil
}

// openOutput opens the configured destination. "-" means stdout, which is
// not ours to close.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// recordWriter serializes records one at a time so large result sets never
// sit in memory as text.
type recordWriter interface {
	Write(eod.Record) error
	Flush() error
}

func newRecordWriter(format string, out io.Writer) (recordWriter, error) {
	switch format {
	case "csv":
		return newCSVWriter(out)
	case "jsonl":
		return &jsonlWriter{enc: json.NewEncoder(out)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

var csvHeader = []string{
	"symbol", "exchange", "date",
	"open", "high", "low", "close",
	"volume", "split_factor", "dividend",
}

type csvWriter struct {
	w *csv.Writer
}

func newCSVWriter(out io.Writer) (*csvWriter, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &csvWriter{w: w}, nil
}

func (c *csvWriter) Write(rec eod.Record) error {
	return c.w.Write([]string{
		rec.Symbol,
		rec.Exchange,
		rec.Date.String(),
		formatPrice(rec.Open),
		formatPrice(rec.High),
		formatPrice(rec.Low),
		formatPrice(rec.Close),
		strconv.FormatInt(rec.Volume, 10),
		formatPrice(rec.SplitFactor),
		formatPrice(rec.Dividend),
	})
}

func (c *csvWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type jsonlWriter struct {
	enc *json.Encoder
}

func (j *jsonlWriter) Write(rec eod.Record) error {
	return j.enc.Encode(rec)
}

func (j *jsonlWriter) Flush() error {
	return nil
}

// startMetricsServer exposes Prometheus metrics and a health probe for the
// duration of the run.
func startMetricsServer(cfg config.MetricsConfig, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		logger.Info().Str("addr", addr).Str("path", cfg.Path).Msg("Serving metrics")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
