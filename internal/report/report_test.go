package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func latency(v float64) *float64 {
	return &v
}

func sampleBatch() []AddressReport {
	return []AddressReport{
		{
			Address:              "8.8.8.8",
			HopCount:             9,
			AverageLatencyMillis: latency(12.5),
			Organization:         "Google LLC",
			ISP:                  "Google",
			ASN:                  "AS15169",
			City:                 "Mountain View",
			Region:               "California",
			Coordinates:          Coordinates{Latitude: 37.4, Longitude: -122.0},
			LocalTime:            "07:24 AM",
			LocalWeather:         "Clear +20°C ↑5km/h",
		},
		{
			Address:              "1.1.1.1",
			HopCount:             7,
			AverageLatencyMillis: nil, // echo filtered by firewall
			ISP:                  "Cloudflare",
			ASN:                  "AS13335",
			LocalTime:            "10:24 PM",
			LocalWeather:         "Sunny +25°C ↑3km/h",
		},
	}
}

func TestLocalClock(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 24, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		offsetSeconds int
		want          string
	}{
		{"UTC minus five hours", -18000, "07:24 AM"},
		{"UTC", 0, "12:24 PM"},
		{"UTC plus five and a half hours", 19800, "05:54 PM"},
		{"wraps past midnight", 43200, "12:24 AM"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LocalClock(now, tc.offsetSeconds); got != tc.want {
				t.Errorf("LocalClock(offset=%d) = %q, want %q", tc.offsetSeconds, got, tc.want)
			}
		})
	}
}

func TestParseOutputMode(t *testing.T) {
	for s, want := range map[string]OutputMode{"": ModeText, "text": ModeText, "array": ModeArray, "json": ModeJSON} {
		got, err := ParseOutputMode(s)
		if err != nil {
			t.Fatalf("ParseOutputMode(%q): unexpected error %v", s, err)
		}
		if got != want {
			t.Errorf("ParseOutputMode(%q) = %s, want %s", s, got, want)
		}
	}
	if _, err := ParseOutputMode("xml"); err == nil {
		t.Error("Expected error for invalid output mode, got nil")
	}
}

func TestRenderText_LabelsAndOrder(t *testing.T) {
	text := RenderText(sampleBatch())

	for _, label := range []string{"Address:", "Hops:", "Latency (ms):", "ISP:", "ASN:", "Organization:", "Location:", "Local time:", "Weather:"} {
		if !strings.Contains(text, label) {
			t.Errorf("Expected label %q in text output", label)
		}
	}
	if !strings.Contains(text, "unavailable") {
		t.Error("Expected nil latency to render as 'unavailable'")
	}
	if strings.Index(text, "8.8.8.8") > strings.Index(text, "1.1.1.1") {
		t.Error("Text output must preserve batch order")
	}
}

func TestRenderJSON_FieldNamesAndOrder(t *testing.T) {
	data, err := RenderJSON(sampleBatch())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("RenderJSON produced invalid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 objects, got %d", len(decoded))
	}
	if decoded[0]["address"] != "8.8.8.8" || decoded[1]["address"] != "1.1.1.1" {
		t.Error("JSON output must preserve batch order")
	}

	first := decoded[0]
	for _, field := range []string{"address", "hopCount", "averageLatencyMillis", "organization", "isp", "asn", "city", "region", "coordinates", "localTime", "localWeather"} {
		if _, ok := first[field]; !ok {
			t.Errorf("Expected field %q in JSON object", field)
		}
	}
	coords, ok := first["coordinates"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected coordinates object")
	}
	if coords["latitude"] != 37.4 || coords["longitude"] != -122.0 {
		t.Errorf("Unexpected coordinates: %v", coords)
	}

	// nil latency is the explicit unavailable sentinel
	if decoded[1]["averageLatencyMillis"] != nil {
		t.Errorf("Expected null sentinel for unavailable latency, got %v", decoded[1]["averageLatencyMillis"])
	}
}

func TestRenderJSON_EmptyBatch(t *testing.T) {
	data, err := RenderJSON(nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected empty JSON array, got: %s", data)
	}
}

func TestRender_Idempotent(t *testing.T) {
	batch := sampleBatch()

	text1, text2 := RenderText(batch), RenderText(batch)
	if text1 != text2 {
		t.Error("RenderText is not idempotent")
	}

	json1, err := RenderJSON(batch)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	json2, err := RenderJSON(batch)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !bytes.Equal(json1, json2) {
		t.Error("RenderJSON is not idempotent")
	}

	arr := RenderArray(batch)
	if len(arr) != len(batch) {
		t.Fatalf("Expected %d reports, got %d", len(batch), len(arr))
	}
	for i := range arr {
		if arr[i].Address != batch[i].Address {
			t.Errorf("RenderArray changed order at %d", i)
		}
	}

	// Mutating the rendered copy must not leak into the batch
	arr[0].Address = "mutated"
	if batch[0].Address != "8.8.8.8" {
		t.Error("RenderArray must copy the batch")
	}
}
