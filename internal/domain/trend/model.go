package trend

import (
	"fmt"
	"strings"
)

// EventKind is the type of user interaction with an item
type EventKind string

// Supported event kinds
const (
	EventView  EventKind = "view"
	EventClick EventKind = "click"
	EventShare EventKind = "share"
)

var eventWeights = map[EventKind]float64{
	EventView:  1.0,
	EventClick: 2.0,
	EventShare: 3.0,
}

// EventKinds lists the supported kinds in a stable order
func EventKinds() []EventKind {
	return []EventKind{EventView, EventClick, EventShare}
}

// ParseEventKind normalizes and validates a raw kind
func ParseEventKind(raw string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := eventWeights[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventKind, raw)
	}
	return kind, nil
}

// WeightFor returns the fixed weight of an event kind
func WeightFor(kind EventKind) (float64, error) {
	weight, ok := eventWeights[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEventKind, string(kind))
	}
	return weight, nil
}

// DecayEvent is one weighted interaction recorded against an item.
// Timestamp is milliseconds since the Unix epoch, assigned at ingestion.
type DecayEvent struct {
	Kind      EventKind `json:"kind"`
	Weight    float64   `json:"weight"`
	Timestamp int64     `json:"timestamp"`
}

// Neighbor is one row of a geo radius query
type Neighbor struct {
	ItemID     string
	DistanceKm float64
}

// Result is a ranked trending item
type Result struct {
	ItemID     string  `json:"id"`
	Score      float64 `json:"score"`
	DistanceKm float64 `json:"distanceKm"`
}

// ItemRecord is the per-item payload stored alongside a cell snapshot
type ItemRecord struct {
	Score      float64 `json:"score"`
	DistanceKm float64 `json:"distance"`
}
