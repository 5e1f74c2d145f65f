// Package main provides the command-line interface for addressinfo.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/AdamRewst/Get-AddressInfo/internal/addr"
	"github.com/AdamRewst/Get-AddressInfo/internal/config"
	"github.com/AdamRewst/Get-AddressInfo/internal/logging"
	"github.com/AdamRewst/Get-AddressInfo/internal/lookup"
	"github.com/AdamRewst/Get-AddressInfo/internal/pipeline"
	"github.com/AdamRewst/Get-AddressInfo/internal/probe"
	"github.com/AdamRewst/Get-AddressInfo/internal/report"
)

var Version = "dev"

// Dependencies encapsulates external dependencies for testing
type Dependencies struct {
	RunPipeline func(ctx context.Context, cfg config.Config, addresses []string, observer *report.Coordinates) ([]report.AddressReport, []*pipeline.AddressError, error)
	LookupSelf  func(ctx context.Context, cfg config.Config) (*lookup.AddressInfo, error)
	Stdin       io.Reader
	Stdout      io.Writer
}

// DefaultDependencies returns production dependencies
func DefaultDependencies() Dependencies {
	return Dependencies{
		RunPipeline: runPipeline,
		LookupSelf:  lookupSelf,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
	}
}

// buildInfoClient creates the IP-intelligence client for the given config
func buildInfoClient(cfg config.Config) *lookup.InfoClient {
	opts := []lookup.InfoOption{lookup.WithInfoVersion(Version)}
	if cfg.InfoURL != "" {
		opts = append(opts, lookup.WithInfoURL(cfg.InfoURL))
	}
	return lookup.NewInfoClient(opts...)
}

// runPipeline assembles and runs the production aggregator
func runPipeline(
	ctx context.Context,
	cfg config.Config,
	addresses []string,
	observer *report.Coordinates,
) ([]report.AddressReport, []*pipeline.AddressError, error) {
	weatherOpts := []lookup.WeatherOption{lookup.WithWeatherVersion(Version)}
	if cfg.WeatherURL != "" {
		weatherOpts = append(weatherOpts, lookup.WithWeatherURL(cfg.WeatherURL))
	}

	opts := []pipeline.Option{
		pipeline.WithEchoCount(cfg.EchoCount),
		pipeline.WithTimeout(time.Duration(cfg.TimeoutMS) * time.Millisecond),
		pipeline.WithWorkers(cfg.Workers),
	}
	if observer != nil {
		opts = append(opts, pipeline.WithObserver(*observer))
	}

	agg := pipeline.New(
		probe.NewDefaultFactory(),
		buildInfoClient(cfg),
		lookup.NewWeatherClient(weatherOpts...),
		opts...,
	)
	return agg.Run(ctx, addresses)
}

// lookupSelf resolves the operator's own location via the intelligence
// service's self-query form
func lookupSelf(ctx context.Context, cfg config.Config) (*lookup.AddressInfo, error) {
	return buildInfoClient(cfg).Lookup(ctx, "")
}

func main() {
	// Create a context that can be cancelled with SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := run(ctx, os.Args[1:], DefaultDependencies()); err != nil {
		fmt.Fprintln(os.Stderr, exitMessage(err))
		cancel()
		os.Exit(1)
	}
	cancel()
}

// exitMessage renders a run error for stderr, recognizing cancellation even
// when it arrives wrapped
func exitMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Operation cancelled"
	}
	return fmt.Sprintf("Error: %v", err)
}

func run(ctx context.Context, args []string, deps Dependencies) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	if cliCfg.showHelp {
		printUsage(deps.Stdout)
		return nil
	}
	if cliCfg.showVersion {
		_, _ = fmt.Fprintf(deps.Stdout, "addressinfo %s\n", Version)
		return nil
	}

	cfg, err := config.Load(cliCfg.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(&cfg, cliCfg)

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Setup(level, os.Stderr)

	// Output mode priority: json > array > text
	requested, err := report.ParseOutputMode(cliCfg.outputMode)
	if err != nil {
		return err
	}
	mode := report.ModeText
	switch {
	case cliCfg.jsonOutput || requested == report.ModeJSON:
		mode = report.ModeJSON
	case cliCfg.arrayOutput || requested == report.ModeArray:
		mode = report.ModeArray
	}

	addresses, err := resolveAddresses(cliCfg.addressArgs, deps.Stdin)
	if err != nil {
		return err
	}

	var observer *report.Coordinates
	if cliCfg.distance {
		// Observer resolution is best-effort: without it the reports simply
		// omit the distance field.
		if self, err := deps.LookupSelf(ctx, cfg); err != nil {
			log.Warnf("Could not resolve own location, omitting distances: %v", err)
		} else {
			observer = &report.Coordinates{Latitude: self.Lat, Longitude: self.Lon}
		}
	}

	batch, addrErrs, err := deps.RunPipeline(ctx, cfg, addresses, observer)
	if err != nil {
		return err
	}

	if err := renderBatch(deps.Stdout, mode, batch); err != nil {
		return err
	}

	if len(addrErrs) > 0 {
		return fmt.Errorf("%d of %d addresses failed", len(addrErrs), len(addresses))
	}
	return nil
}

// applyFlagOverrides layers explicit CLI flags over the file/default config
func applyFlagOverrides(cfg *config.Config, cliCfg *cliConfig) {
	if cliCfg.echoCount > 0 {
		cfg.EchoCount = cliCfg.echoCount
	}
	if cliCfg.timeoutMS > 0 {
		cfg.TimeoutMS = cliCfg.timeoutMS
	}
	if cliCfg.workers > 0 {
		cfg.Workers = cliCfg.workers
	}
	if cliCfg.logLevel != "" {
		cfg.LogLevel = cliCfg.logLevel
	}
}

// resolveAddresses expands positional arguments, reading from stdin when
// requested ("-") or when no addresses were given
func resolveAddresses(args []string, stdin io.Reader) ([]string, error) {
	useStdin := len(args) == 0
	var expanded []string
	for _, arg := range args {
		if arg == "-" {
			useStdin = true
			continue
		}
		expanded = append(expanded, arg)
	}

	if useStdin {
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			for _, field := range strings.Fields(scanner.Text()) {
				expanded = append(expanded, field)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read addresses from stdin: %w", err)
		}
	}

	return addr.ParseAddressList(expanded)
}

// renderBatch writes the finished batch in the selected output mode
func renderBatch(w io.Writer, mode report.OutputMode, batch []report.AddressReport) error {
	switch mode {
	case report.ModeJSON:
		data, err := report.RenderJSON(batch)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case report.ModeArray:
		for _, r := range report.RenderArray(batch) {
			if _, err := fmt.Fprintf(w, "%+v\n", r); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprint(w, report.RenderText(batch))
		return err
	}
}
