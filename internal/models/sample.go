package models

import "time"

// RealtimeSample is one point on a streamed time series.
type RealtimeSample struct {
	Timestamp time.Time `json:"t"`
	Value     float64   `json:"value"`
}

// HourCount is one bucket of the hourly request histogram.
type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// AggregateSnapshot holds the point-in-time aggregates returned by the
// traffic stats poll. Each poll response replaces the previous snapshot
// wholesale; fields are never merged across responses.
type AggregateSnapshot struct {
	RPS            float64        `json:"rps"`
	ActiveUsers    int            `json:"active_users"`
	UniqueVisitors int            `json:"unique_visitors"`
	AvgResponseMS  float64        `json:"avg_response_ms"`
	TotalRequests  int64          `json:"total_requests"`
	TopEndpoints   map[string]int `json:"top_endpoints"`
	ByCountry      map[string]int `json:"by_country"`
	ByHour         []HourCount    `json:"by_hour"`
	AITraffic      int            `json:"ai_traffic"`
	FetchedAt      time.Time      `json:"fetched_at"`
}

// Presence is the operator liveness indicator maintained by its own poll.
type Presence struct {
	Online bool   `json:"online"`
	Name   string `json:"admin_name,omitempty"`
}
