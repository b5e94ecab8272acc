// Command telemetryd runs the Solana block telemetry pipeline: a
// multi-endpoint RPC pool, the mint/token/NFT/DeFi/governance/validator
// extractors, the network status aggregator, and a thin HTTP surface
// exposing all of it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/shubhamdubey02/solana-telemetry/internal/config"
	"github.com/shubhamdubey02/solana-telemetry/internal/logging"
	"github.com/shubhamdubey02/solana-telemetry/internal/metrics"
	"github.com/shubhamdubey02/solana-telemetry/internal/netstatus"
	"github.com/shubhamdubey02/solana-telemetry/internal/pipeline"
	"github.com/shubhamdubey02/solana-telemetry/internal/solanarpc"
	"github.com/shubhamdubey02/solana-telemetry/internal/telemetryapi"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML/YAML configuration file",
	}
	endpointsFlag = &cli.StringSliceFlag{
		Name:  "endpoints",
		Usage: "Solana RPC endpoint URL (repeatable, priority order)",
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "HTTP listen address for the telemetry API",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (crit/error/warn/info/debug/trace)",
		Value: "info",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "rotating log file path (stderr if empty)",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "telemetryd"
	app.Usage = "Solana block telemetry pipeline daemon"
	app.Flags = []cli.Flag{configFlag, endpointsFlag, listenFlag, logLevelFlag, logFileFlag}
	app.Action = runServe
	app.Commands = []*cli.Command{
		{
			Name:  "status",
			Usage: "print a one-shot composite network status table and exit",
			Flags: []cli.Flag{configFlag, endpointsFlag},
			Action: runStatus,
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	fs := pflag.NewFlagSet("telemetryd", pflag.ContinueOnError)
	config.BindFlags(fs)
	if v := c.StringSlice(endpointsFlag.Name); len(v) > 0 {
		_ = fs.Set("endpoints", joinStrings(v))
	}
	if v := c.String(listenFlag.Name); v != "" {
		_ = fs.Set("listen", v)
	}
	if v := c.String(logLevelFlag.Name); v != "" {
		_ = fs.Set("log-level", v)
	}
	if v := c.String(logFileFlag.Name); v != "" {
		_ = fs.Set("log-file", v)
	}
	return config.Load(c.String(configFlag.Name), fs)
}

func joinStrings(v []string) string {
	out := ""
	for i, s := range v {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

func bootstrap(ctx context.Context, cfg config.Config) (*solanarpc.Pool, *solanarpc.Query, *metrics.Registry, error) {
	reg := metrics.NewRegistry()

	pool := solanarpc.NewPoolWithConcurrency(cfg.MinHealthy, cfg.MaxInFlight)
	pool.SetMetrics(reg)
	if err := pool.Initialize(ctx, cfg.Endpoints); err != nil {
		return nil, nil, nil, fmt.Errorf("telemetryd: pool init: %w", err)
	}

	query := solanarpc.NewQuery(pool)
	return pool, query, reg, nil
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := logging.Setup(logging.Config{Level: cfg.LogLevel, FilePath: cfg.LogFile, Color: cfg.LogFile == ""}); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, query, reg, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	orchestrator := pipeline.NewOrchestrator(query)
	orchestrator.SetMetrics(reg)
	status := netstatus.NewAggregator(query)
	server := telemetryapi.NewServer(orchestrator, status, query)

	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetryd: graceful shutdown failed", "err", err)
		}
	}()

	log.Info("telemetryd: listening", "addr", cfg.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("telemetryd: http server: %w", err)
	}
	return nil
}

func runStatus(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := logging.Setup(logging.Config{Level: "warn", Color: true}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, query, _, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	report := netstatus.NewAggregator(query).GetComprehensiveStatus(ctx, true)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"status", string(report.Status)})
	table.Append([]string{"current epoch", fmt.Sprintf("%d", report.Summary.CurrentEpoch)})
	table.Append([]string{"epoch progress", fmt.Sprintf("%.2f%%", report.Summary.EpochProgress)})
	table.Append([]string{"slot height", fmt.Sprintf("%d", report.Summary.SlotHeight)})
	table.Append([]string{"slots/sec", fmt.Sprintf("%.2f", report.Summary.SlotsPerSecond)})
	table.Append([]string{"tps", fmt.Sprintf("%.2f", report.Summary.TPS)})
	table.Append([]string{"rpc availability", fmt.Sprintf("%.1f%%", report.Summary.RPCAvailabilityPercent)})
	table.Append([]string{"active validators", fmt.Sprintf("%d", report.Summary.ActiveValidators)})
	table.Append([]string{"delinquent validators", fmt.Sprintf("%d", report.Summary.DelinquentValidators)})
	table.Append([]string{"top10 stake share", fmt.Sprintf("%.2f%%", report.Summary.Top10StakePercent)})
	table.Render()

	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
