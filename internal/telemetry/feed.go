package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gitpusher/pushkit/internal/models"
)

// Component identifies one producer inside the aggregator. Each visual
// metric has exactly one producer: time series come from the stream
// components, point-in-time aggregates from the poll components.
type Component string

const (
	ComponentAIStream      Component = "ai_stream"
	ComponentTrafficStream Component = "traffic_stream"
	ComponentStatsPoll     Component = "stats_poll"
	ComponentPresencePoll  Component = "presence_poll"
)

// Health is the degradation state of a component. Transport failures never
// raise; they only move the badge.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthStopped  Health = "stopped"
)

// Default buffer capacities and poll cadences, matching the dashboards they
// feed.
const (
	AIFeedCapacity      = 150
	TrafficFeedCapacity = 60

	StatsPollInterval    = 5 * time.Second
	PresencePollInterval = 3 * time.Second
)

// Stream endpoint paths.
const (
	aiStreamPath      = "/admin/ai-monitor/stream"
	trafficStreamPath = "/admin/traffic/stream"
)

// aiMessage is one AI-activity stream frame.
type aiMessage struct {
	T          int64   `json:"t"`
	Freq       float64 `json:"freq"`
	Likelihood float64 `json:"likelihood"`
}

// trafficMessage is one traffic stream frame.
type trafficMessage struct {
	T          int64   `json:"t"`
	RPS        float64 `json:"rps"`
	Users      int     `json:"users"`
	ResponseMS float64 `json:"response_ms"`
}

func parseAIMessage(data []byte) (models.RealtimeSample, float64, error) {
	var msg aiMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.RealtimeSample{}, 0, fmt.Errorf("parse ai frame: %w", err)
	}
	return models.RealtimeSample{
		Timestamp: time.UnixMilli(msg.T),
		Value:     msg.Freq,
	}, msg.Likelihood, nil
}

func parseTrafficMessage(data []byte) (models.RealtimeSample, error) {
	var msg trafficMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.RealtimeSample{}, fmt.Errorf("parse traffic frame: %w", err)
	}
	return models.RealtimeSample{
		Timestamp: time.UnixMilli(msg.T),
		Value:     msg.RPS,
	}, nil
}
