// internal/server/handlers/events.go

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
)

// Ingestor accepts raw interactions
type Ingestor interface {
	Ingest(ctx context.Context, itemID string, kind trend.EventKind, location geo.Location) error
}

// EventHandler handles interaction ingestion requests
type EventHandler struct {
	ingestor Ingestor
}

// NewEventHandler creates a new event handler
func NewEventHandler(ingestor Ingestor) *EventHandler {
	return &EventHandler{
		ingestor: ingestor,
	}
}

type eventRequest struct {
	ItemID string  `json:"itemId"`
	Kind   string  `json:"kind"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// PostEvent records one interaction
func (h *EventHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ItemID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing item ID", nil)
		return
	}

	kind, err := trend.ParseEventKind(req.Kind)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid event kind", err)
		return
	}

	location := geo.Location{Latitude: req.Lat, Longitude: req.Lng}
	if !location.Valid() {
		respondWithError(w, http.StatusBadRequest, "Coordinates out of range", nil)
		return
	}

	if err := h.ingestor.Ingest(r.Context(), req.ItemID, kind, location); err != nil {
		switch {
		case errors.Is(err, trend.ErrInvalidEventKind):
			respondWithError(w, http.StatusBadRequest, "Invalid event kind", err)
		case errors.Is(err, trend.ErrStoreUnavailable):
			respondWithError(w, http.StatusServiceUnavailable, "Failed to record event", err)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to record event", err)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
