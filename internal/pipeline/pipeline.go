// Package pipeline drives the per-address enrichment pipeline and aggregates
// the results into an ordered batch.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/umahmood/haversine"

	"github.com/AdamRewst/Get-AddressInfo/internal/addr"
	"github.com/AdamRewst/Get-AddressInfo/internal/lookup"
	"github.com/AdamRewst/Get-AddressInfo/internal/probe"
	"github.com/AdamRewst/Get-AddressInfo/internal/report"
)

// Defaults for tunable knobs
const (
	DefaultEchoCount = probe.DefaultEchoCount
	DefaultTimeout   = 2 * time.Second
	DefaultWorkers   = 4
)

// InfoLookup is the IP-intelligence capability consumed by the pipeline
type InfoLookup interface {
	Lookup(ctx context.Context, address string) (*lookup.AddressInfo, error)
}

// WeatherLookup is the weather capability consumed by the pipeline
type WeatherLookup interface {
	Lookup(ctx context.Context, locationKey string) (string, error)
}

// Clock supplies the current UTC time; injected for testable local-time output
type Clock func() time.Time

// Aggregator runs the Validating -> Probing -> LookingUp -> Assembling ->
// Done state machine for each address of a batch.
type Aggregator struct {
	factory   probe.Factory
	info      InfoLookup
	weather   WeatherLookup
	now       Clock
	echoCount int
	timeout   time.Duration
	workers   int
	observer  *report.Coordinates
}

// Option is a function that configures an Aggregator
type Option func(*Aggregator)

// WithEchoCount sets the number of echo requests per latency measurement
func WithEchoCount(n int) Option {
	return func(a *Aggregator) {
		a.echoCount = n
	}
}

// WithTimeout sets the per-call timeout for probes and traces
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.timeout = d
	}
}

// WithWorkers bounds the number of concurrent address pipelines
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		a.workers = n
	}
}

// WithClock sets a custom UTC time source
func WithClock(c Clock) Option {
	return func(a *Aggregator) {
		a.now = c
	}
}

// WithObserver sets the operator's location; when present, each report carries
// the great-circle distance from the operator to the target location
func WithObserver(c report.Coordinates) Option {
	return func(a *Aggregator) {
		observer := c
		a.observer = &observer
	}
}

// New creates an Aggregator with the given capabilities and options
func New(factory probe.Factory, info InfoLookup, weather WeatherLookup, opts ...Option) *Aggregator {
	a := &Aggregator{
		factory:   factory,
		info:      info,
		weather:   weather,
		now:       time.Now,
		echoCount: DefaultEchoCount,
		timeout:   DefaultTimeout,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers < 1 {
		a.workers = 1
	}
	return a
}

// Run processes the batch. The returned reports hold only addresses that
// reached Done, in input order; aborted addresses appear in the error summary
// instead, also in input order. Cancellation discards in-flight addresses and
// returns the context error.
func (a *Aggregator) Run(ctx context.Context, addresses []string) ([]report.AddressReport, []*AddressError, error) {
	if len(addresses) == 0 {
		return nil, nil, fmt.Errorf("no addresses given")
	}

	workers := a.workers
	if workers > len(addresses) {
		workers = len(addresses)
	}
	log.Infof("Processing %d addresses with %d workers", len(addresses), workers)

	// One slot per input index keeps output order equal to input order no
	// matter which pipeline finishes first.
	reports := make([]*report.AddressReport, len(addresses))
	failures := make([]*AddressError, len(addresses))

	workChan := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workChan {
				reports[i], failures[i] = a.processAddress(ctx, addresses[i])
			}
		}()
	}

	for i := range addresses {
		select {
		case <-ctx.Done():
			close(workChan)
			wg.Wait()
			return nil, nil, ctx.Err()
		case workChan <- i:
		}
	}
	close(workChan)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	batch := make([]report.AddressReport, 0, len(addresses))
	var errs []*AddressError
	for i := range addresses {
		if reports[i] != nil {
			batch = append(batch, *reports[i])
		}
		if failures[i] != nil {
			log.Errorf("Address aborted: %v", failures[i])
			errs = append(errs, failures[i])
		}
	}
	log.Infof("Batch complete: %d reports, %d aborted", len(batch), len(errs))
	return batch, errs, nil
}

// processAddress runs one address through the state machine. Exactly one of
// the return values is non-nil.
func (a *Aggregator) processAddress(ctx context.Context, address string) (*report.AddressReport, *AddressError) {
	// Validating
	log.Debugf("%s: validating", address)
	if addr.IsPrivate(address) {
		return nil, &AddressError{Address: address, Stage: StageValidating, Err: ErrNotRoutable}
	}
	_, version, err := addr.Parse(address)
	if err != nil {
		return nil, &AddressError{Address: address, Stage: StageValidating, Err: err}
	}

	// Probing: latency and trace are independent local probes, run together.
	// Trace failure aborts here, before any external lookup is issued.
	log.Debugf("%s: probing", address)
	avgLatency, hopCount, addrErr := a.probeStage(ctx, address, version)
	if addrErr != nil {
		return nil, addrErr
	}
	if ctx.Err() != nil {
		return nil, &AddressError{Address: address, Stage: StageProbing, Err: ctx.Err()}
	}

	// LookingUp: both external services, concurrently
	log.Debugf("%s: looking up", address)
	info, weather, addrErr := a.lookupStage(ctx, address)
	if addrErr != nil {
		return nil, addrErr
	}
	if ctx.Err() != nil {
		return nil, &AddressError{Address: address, Stage: StageLookingUp, Err: ctx.Err()}
	}

	// Assembling
	log.Debugf("%s: assembling", address)
	rep := &report.AddressReport{
		Address:              address,
		HopCount:             hopCount,
		AverageLatencyMillis: avgLatency,
		Organization:         info.Org,
		ISP:                  info.ISP,
		ASN:                  info.AS,
		City:                 info.City,
		Region:               info.RegionName,
		Coordinates:          report.Coordinates{Latitude: info.Lat, Longitude: info.Lon},
		LocalTime:            report.LocalClock(a.now(), info.Offset),
		LocalWeather:         weather,
	}
	if a.observer != nil {
		_, km := haversine.Distance(
			haversine.Coord{Lat: a.observer.Latitude, Lon: a.observer.Longitude},
			haversine.Coord{Lat: info.Lat, Lon: info.Lon},
		)
		rep.DistanceKm = &km
	}

	log.Debugf("%s: done", address)
	return rep, nil
}

// probeStage runs the latency and hop probes concurrently and joins them.
// A nil latency is the unavailable sentinel (probe degradation is tolerated);
// a trace error is fatal to the address.
func (a *Aggregator) probeStage(
	ctx context.Context,
	address string,
	version addr.IPVersion,
) (*float64, int, *AddressError) {
	// A pinger that cannot even open its socket degrades the same way as all
	// echoes failing: the address continues without a latency figure.
	pinger, pingerErr := a.factory.CreatePinger(version)
	if pingerErr != nil {
		log.Warnf("%s: latency probe unavailable: %v", address, pingerErr)
		pinger = nil
	} else {
		defer func() { _ = pinger.Close() }()
	}

	tracer, err := a.factory.CreateTracer(version)
	if err != nil {
		return nil, 0, &AddressError{
			Address: address,
			Stage:   StageProbing,
			Err:     fmt.Errorf("%w: failed to create tracer: %v", ErrTraceFailed, err),
		}
	}
	defer func() { _ = tracer.Close() }()

	var (
		avgLatency *float64
		hopCount   int
		traceErr   error
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		hopCount, traceErr = tracer.TraceHops(ctx, address, a.timeout)
	}()
	if pinger != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if avg, ok := probe.Measure(ctx, pinger, address, a.echoCount, a.timeout); ok {
				avgLatency = &avg
			}
		}()
	}
	wg.Wait()

	if traceErr != nil {
		return nil, 0, &AddressError{
			Address: address,
			Stage:   StageProbing,
			Err:     fmt.Errorf("%w: %v", ErrTraceFailed, traceErr),
		}
	}
	if avgLatency == nil {
		log.Warnf("%s: latency probe degraded, continuing without it", address)
	}
	return avgLatency, hopCount, nil
}

// lookupStage runs the info and weather lookups concurrently and joins them.
// Either failure is fatal to the address. The weather lookup is keyed on the
// raw address, matching reference behavior.
func (a *Aggregator) lookupStage(
	ctx context.Context,
	address string,
) (*lookup.AddressInfo, string, *AddressError) {
	var (
		info       *lookup.AddressInfo
		infoErr    error
		weather    string
		weatherErr error
		wg         sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		info, infoErr = a.info.Lookup(ctx, address)
	}()
	go func() {
		defer wg.Done()
		weather, weatherErr = a.weather.Lookup(ctx, address)
	}()
	wg.Wait()

	if infoErr != nil {
		return nil, "", &AddressError{
			Address: address,
			Stage:   StageLookingUp,
			Err:     fmt.Errorf("%w: info: %v", ErrLookupFailed, infoErr),
		}
	}
	if weatherErr != nil {
		return nil, "", &AddressError{
			Address: address,
			Stage:   StageLookingUp,
			Err:     fmt.Errorf("%w: weather: %v", ErrLookupFailed, weatherErr),
		}
	}
	return info, weather, nil
}
