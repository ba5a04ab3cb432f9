// Package balloon ingests the hour-indexed balloon position feed, normalizes it
// into Observations and reduces them into statistics and enrichment samples.
package balloon

import (
	"fmt"
	"time"
)

// Observation is one normalized balloon position report. Observations are never
// mutated after normalization.
type Observation struct {
	ID         string    `json:"id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	AltitudeKm float64   `json:"altitude"`
	HoursAgo   int       `json:"hoursAgo"`
	CapturedAt time.Time `json:"timestamp"`
}

// TimeSlice is the successfully fetched batch for one hour.
type TimeSlice struct {
	Hour         string        `json:"hour"`
	HoursAgo     int           `json:"hoursAgo"`
	Observations []Observation `json:"balloons"`
	Count        int           `json:"count"`
}

// SliceError records a slice whose fetch failed. The slice itself is absent
// from the successful sequence.
type SliceError struct {
	Hour     string `json:"hour"`
	HoursAgo int    `json:"hoursAgo"`
	Message  string `json:"error"`
}

// IngestResult is the raw output of one pass over the feed.
type IngestResult struct {
	Slices       []TimeSlice
	Observations []Observation
	Errors       []SliceError
}

// Report is the ingestion payload served to clients and composed into the full result.
type Report struct {
	Success       bool           `json:"success"`
	TotalBalloons int            `json:"totalBalloons"`
	ByHour        []TimeSlice    `json:"byHour"`
	AllBalloons   []Observation  `json:"allBalloons"`
	Stats         AggregateStats `json:"stats"`
	Errors        []SliceError   `json:"errors"`
	LastUpdated   time.Time      `json:"lastUpdated"`
}

func hourLabel(hoursAgo int) string {
	return fmt.Sprintf("%02d", hoursAgo)
}

func observationID(hoursAgo, index int) string {
	return fmt.Sprintf("balloon-%s-%d", hourLabel(hoursAgo), index)
}
