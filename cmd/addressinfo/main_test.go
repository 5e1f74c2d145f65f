package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/AdamRewst/Get-AddressInfo/internal/config"
	"github.com/AdamRewst/Get-AddressInfo/internal/lookup"
	"github.com/AdamRewst/Get-AddressInfo/internal/pipeline"
	"github.com/AdamRewst/Get-AddressInfo/internal/report"
)

func testDependencies(stdout *strings.Builder) Dependencies {
	latency := 12.5
	return Dependencies{
		RunPipeline: func(_ context.Context, _ config.Config, addresses []string, _ *report.Coordinates) ([]report.AddressReport, []*pipeline.AddressError, error) {
			batch := make([]report.AddressReport, 0, len(addresses))
			for _, a := range addresses {
				batch = append(batch, report.AddressReport{
					Address:              a,
					HopCount:             9,
					AverageLatencyMillis: &latency,
					ISP:                  "Google",
					LocalTime:            "07:24 AM",
					LocalWeather:         "Clear +20°C ↑5km/h",
				})
			}
			return batch, nil, nil
		},
		LookupSelf: func(_ context.Context, _ config.Config) (*lookup.AddressInfo, error) {
			return &lookup.AddressInfo{Lat: 52.5, Lon: 13.4}, nil
		},
		Stdin:  strings.NewReader(""),
		Stdout: stdout,
	}
}

func TestRun_Help(t *testing.T) {
	var stdout strings.Builder
	if err := run(context.Background(), []string{"--help"}, testDependencies(&stdout)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(stdout.String(), "USAGE:") {
		t.Error("Expected usage text")
	}
}

func TestRun_Version(t *testing.T) {
	var stdout strings.Builder
	if err := run(context.Background(), []string{"-v"}, testDependencies(&stdout)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(stdout.String(), "addressinfo") {
		t.Errorf("Expected version output, got: %q", stdout.String())
	}
}

func TestRun_TextOutput(t *testing.T) {
	var stdout strings.Builder
	if err := run(context.Background(), []string{"8.8.8.8,8.8.4.4", "1.1.1.1"}, testDependencies(&stdout)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	out := stdout.String()
	for _, a := range []string{"8.8.8.8", "8.8.4.4", "1.1.1.1"} {
		if !strings.Contains(out, a) {
			t.Errorf("Expected %s in text output", a)
		}
	}
	// Input order carries through
	if strings.Index(out, "8.8.8.8") > strings.Index(out, "1.1.1.1") {
		t.Error("Text output must preserve input order")
	}
}

func TestRun_JSONOutput(t *testing.T) {
	var stdout strings.Builder
	if err := run(context.Background(), []string{"--json", "8.8.8.8"}, testDependencies(&stdout)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout.String()), &decoded); err != nil {
		t.Fatalf("Expected valid JSON output, got: %v\n%s", err, stdout.String())
	}
	if len(decoded) != 1 || decoded[0]["address"] != "8.8.8.8" {
		t.Errorf("Unexpected JSON output: %v", decoded)
	}
}

func TestRun_OutputFlag(t *testing.T) {
	var stdout strings.Builder
	if err := run(context.Background(), []string{"-o", "json", "8.8.8.8"}, testDependencies(&stdout)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout.String()), &decoded); err != nil {
		t.Fatalf("Expected valid JSON output with -o json, got: %v\n%s", err, stdout.String())
	}
}

func TestRun_InvalidOutputMode(t *testing.T) {
	var stdout strings.Builder
	deps := testDependencies(&stdout)

	pipelineCalled := false
	deps.RunPipeline = func(_ context.Context, _ config.Config, addresses []string, _ *report.Coordinates) ([]report.AddressReport, []*pipeline.AddressError, error) {
		pipelineCalled = true
		return nil, nil, nil
	}

	err := run(context.Background(), []string{"-o", "xml", "8.8.8.8"}, deps)
	if err == nil {
		t.Fatal("Expected error for invalid output mode, got nil")
	}
	if !strings.Contains(err.Error(), "output mode") {
		t.Errorf("Unexpected error: %v", err)
	}
	if pipelineCalled {
		t.Error("An invalid output mode must be rejected before any address is processed")
	}
}

func TestRun_JSONWinsOverArray(t *testing.T) {
	var stdout strings.Builder
	if err := run(context.Background(), []string{"-a", "-j", "8.8.8.8"}, testDependencies(&stdout)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(stdout.String()), "[") {
		t.Errorf("Expected JSON output when both -j and -a are given, got: %q", stdout.String())
	}
}

func TestRun_StdinAddresses(t *testing.T) {
	var stdout strings.Builder
	deps := testDependencies(&stdout)
	deps.Stdin = strings.NewReader("8.8.8.8 8.8.4.4\n1.1.1.1\n")

	if err := run(context.Background(), []string{"-"}, deps); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for _, a := range []string{"8.8.8.8", "8.8.4.4", "1.1.1.1"} {
		if !strings.Contains(stdout.String(), a) {
			t.Errorf("Expected %s in output", a)
		}
	}
}

func TestRun_NoAddresses(t *testing.T) {
	var stdout strings.Builder
	deps := testDependencies(&stdout)
	deps.Stdin = strings.NewReader("")

	if err := run(context.Background(), nil, deps); err == nil {
		t.Error("Expected error for empty input, got nil")
	}
}

func TestRun_InvalidAddress(t *testing.T) {
	var stdout strings.Builder
	if err := run(context.Background(), []string{"not-an-ip"}, testDependencies(&stdout)); err == nil {
		t.Error("Expected error for invalid address, got nil")
	}
}

func TestRun_FailedAddressesSurfaceAnError(t *testing.T) {
	var stdout strings.Builder
	deps := testDependencies(&stdout)
	deps.RunPipeline = func(_ context.Context, _ config.Config, addresses []string, _ *report.Coordinates) ([]report.AddressReport, []*pipeline.AddressError, error) {
		return nil, []*pipeline.AddressError{
			{Address: addresses[0], Stage: pipeline.StageProbing, Err: pipeline.ErrTraceFailed},
		}, nil
	}

	err := run(context.Background(), []string{"8.8.8.8"}, deps)
	if err == nil {
		t.Fatal("Expected error when addresses failed, got nil")
	}
	if !strings.Contains(err.Error(), "1 of 1") {
		t.Errorf("Expected failure summary, got: %v", err)
	}
}

func TestRun_DistanceFlagResolvesObserver(t *testing.T) {
	var stdout strings.Builder
	deps := testDependencies(&stdout)

	var gotObserver *report.Coordinates
	deps.RunPipeline = func(_ context.Context, _ config.Config, addresses []string, observer *report.Coordinates) ([]report.AddressReport, []*pipeline.AddressError, error) {
		gotObserver = observer
		return []report.AddressReport{{Address: addresses[0]}}, nil, nil
	}

	if err := run(context.Background(), []string{"-d", "8.8.8.8"}, deps); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotObserver == nil {
		t.Fatal("Expected observer coordinates with --distance")
	}
	if gotObserver.Latitude != 52.5 || gotObserver.Longitude != 13.4 {
		t.Errorf("Unexpected observer: %+v", gotObserver)
	}
}

func TestExitMessage(t *testing.T) {
	if got := exitMessage(context.Canceled); got != "Operation cancelled" {
		t.Errorf("Unexpected message for bare cancellation: %q", got)
	}
	wrapped := fmt.Errorf("pipeline: %w", context.Canceled)
	if got := exitMessage(wrapped); got != "Operation cancelled" {
		t.Errorf("Unexpected message for wrapped cancellation: %q", got)
	}
	if got := exitMessage(errors.New("boom")); got != "Error: boom" {
		t.Errorf("Unexpected message for ordinary error: %q", got)
	}
}

func TestRun_FlagOverridesReachPipeline(t *testing.T) {
	var stdout strings.Builder
	deps := testDependencies(&stdout)

	var gotCfg config.Config
	deps.RunPipeline = func(_ context.Context, cfg config.Config, addresses []string, _ *report.Coordinates) ([]report.AddressReport, []*pipeline.AddressError, error) {
		gotCfg = cfg
		return []report.AddressReport{{Address: addresses[0]}}, nil, nil
	}

	if err := run(context.Background(), []string{"-c", "5", "-w", "2", "-t", "500", "8.8.8.8"}, deps); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotCfg.EchoCount != 5 || gotCfg.Workers != 2 || gotCfg.TimeoutMS != 500 {
		t.Errorf("Flag overrides did not reach the pipeline: %+v", gotCfg)
	}
}
