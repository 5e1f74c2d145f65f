package report

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OutputMode selects the rendering of a finished batch.
type OutputMode int

// Output mode constants in selection priority order (JSON wins over array,
// array over text)
const (
	ModeText OutputMode = iota // Human-readable text blocks (default)
	ModeArray                  // The in-memory report sequence itself
	ModeJSON                   // JSON array of report objects
)

func (m OutputMode) String() string {
	switch m {
	case ModeJSON:
		return "json"
	case ModeArray:
		return "array"
	case ModeText:
		return "text"
	default:
		return "text"
	}
}

// ParseOutputMode parses an output mode string into its type.
func ParseOutputMode(s string) (OutputMode, error) {
	switch s {
	case "text", "":
		return ModeText, nil
	case "array":
		return ModeArray, nil
	case "json":
		return ModeJSON, nil
	default:
		return ModeText, fmt.Errorf("invalid output mode: %s (must be 'text', 'json', or 'array')", s)
	}
}

// RenderText formats the batch as one fixed-label block per report, in batch
// order. Pure: same batch, same bytes.
func RenderText(batch []AddressReport) string {
	var output strings.Builder
	for i, r := range batch {
		if i > 0 {
			output.WriteString("\n")
		}
		writeField(&output, "Address", r.Address)
		writeField(&output, "Hops", fmt.Sprintf("%d", r.HopCount))
		writeField(&output, "Latency (ms)", formatLatency(r.AverageLatencyMillis))
		writeField(&output, "ISP", r.ISP)
		writeField(&output, "ASN", r.ASN)
		writeField(&output, "Organization", r.Organization)
		writeField(&output, "Location", formatLocation(r))
		writeField(&output, "Local time", r.LocalTime)
		writeField(&output, "Weather", r.LocalWeather)
		if r.DistanceKm != nil {
			writeField(&output, "Distance (km)", fmt.Sprintf("%.2f", *r.DistanceKm))
		}
	}
	return output.String()
}

// RenderArray returns the ordered report sequence itself. The copy keeps the
// batch immutable for repeated renders.
func RenderArray(batch []AddressReport) []AddressReport {
	out := make([]AddressReport, len(batch))
	copy(out, batch)
	return out
}

// RenderJSON serializes the batch as an indented JSON array in batch order.
func RenderJSON(batch []AddressReport) ([]byte, error) {
	if batch == nil {
		batch = []AddressReport{}
	}
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize batch: %w", err)
	}
	return append(data, '\n'), nil
}

// writeField writes one "Label:  value" line with aligned values
func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-15s%s\n", label+":", value)
}

// formatLocation renders city, region and coordinates on one line
func formatLocation(r AddressReport) string {
	place := r.City
	if r.Region != "" {
		if place != "" {
			place += ", "
		}
		place += r.Region
	}
	coords := fmt.Sprintf("(%.4f, %.4f)", r.Coordinates.Latitude, r.Coordinates.Longitude)
	if place == "" {
		return coords
	}
	return place + " " + coords
}

// formatLatency formats a latency value for display
func formatLatency(latency *float64) string {
	if latency == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%.2f", *latency)
}
