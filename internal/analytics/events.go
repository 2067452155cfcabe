// Package analytics records what users search for. Search and index events
// are published to Kafka by a Collector and folded into rolling statistics
// by an Aggregator consuming the same topic.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroScore  EventType = "zero_score"
	EventIndexBuild EventType = "index_build"
)

// SearchEvent describes one answered query. Matched counts returned results
// with a positive score; a query with Matched == 0 is a zero-score query.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Terms      []string  `json:"terms"`
	Limit      int       `json:"limit"`
	Returned   int       `json:"returned"`
	Matched    int       `json:"matched"`
	LatencyUs  int64     `json:"latency_us"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// IndexEvent describes one completed index build.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Source     string    `json:"source"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Generation uint64    `json:"generation"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// decodeEvent returns a *SearchEvent or *IndexEvent according to the type
// field of the payload.
func decodeEvent(value []byte) (any, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return nil, fmt.Errorf("decoding event type: %w", err)
	}
	switch head.Type {
	case EventSearch, EventZeroScore:
		var e SearchEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("decoding search event: %w", err)
		}
		return &e, nil
	case EventIndexBuild:
		var e IndexEvent
		if err := json.Unmarshal(value, &e); err != nil {
			return nil, fmt.Errorf("decoding index event: %w", err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}
