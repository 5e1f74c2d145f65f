// Package report defines the per-address result record and its output
// renderings.
package report

import (
	"time"
)

// localClockLayout renders a 12-hour wall clock, e.g. "07:24 AM"
const localClockLayout = "03:04 PM"

// Coordinates is a latitude/longitude pair. (0, 0) is a legitimate position;
// a missing position never reaches a report because the info lookup fails the
// address first.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AddressReport is the consolidated result for one address. It is assembled
// once, after every sub-lookup has returned, and never mutated afterwards.
type AddressReport struct {
	Address              string      `json:"address"`
	HopCount             int         `json:"hopCount"`
	AverageLatencyMillis *float64    `json:"averageLatencyMillis"`
	Organization         string      `json:"organization"`
	ISP                  string      `json:"isp"`
	ASN                  string      `json:"asn"`
	City                 string      `json:"city"`
	Region               string      `json:"region"`
	Coordinates          Coordinates `json:"coordinates"`
	LocalTime            string      `json:"localTime"`
	LocalWeather         string      `json:"localWeather"`
	DistanceKm           *float64    `json:"distanceKm,omitempty"`
}

// LocalClock formats the wall-clock time at a location given the current UTC
// time and the location's UTC offset in seconds.
func LocalClock(nowUTC time.Time, offsetSeconds int) string {
	return nowUTC.UTC().Add(time.Duration(offsetSeconds) * time.Second).Format(localClockLayout)
}
