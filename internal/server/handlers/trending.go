// internal/server/handlers/trending.go

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"geotrend/internal/domain/article"
	"geotrend/internal/domain/geo"
	"geotrend/internal/domain/trend"
	"geotrend/internal/logging"
)

// TrendingService is the part of the trending engine the HTTP layer uses
type TrendingService interface {
	QueryNearby(ctx context.Context, location geo.Location, radiusKm float64, limit int) ([]trend.Result, error)
	LookupNearby(ctx context.Context, location geo.Location, limit int) ([]trend.Result, error)
}

// TrendingConfig holds request defaults and caps
type TrendingConfig struct {
	DefaultRadius float64
	MaxRadius     float64
	DefaultLimit  int
	MaxLimit      int
}

// TrendingHandler handles trending-related HTTP requests
type TrendingHandler struct {
	service  TrendingService
	articles article.Finder
	config   TrendingConfig
}

// NewTrendingHandler creates a new trending handler; articles may be nil
func NewTrendingHandler(service TrendingService, articles article.Finder, config TrendingConfig) *TrendingHandler {
	return &TrendingHandler{
		service:  service,
		articles: articles,
		config:   config,
	}
}

// GetNearby returns the live ranking around a location
func (h *TrendingHandler) GetNearby(w http.ResponseWriter, r *http.Request) {
	location, err := parseLocation(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid location", err)
		return
	}

	radius, err := parseOptionalFloat(r, "radius", h.config.DefaultRadius)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid radius", err)
		return
	}
	if radius > h.config.MaxRadius {
		radius = h.config.MaxRadius
	}

	limit, err := h.parseLimit(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	results, err := h.service.QueryNearby(r.Context(), location, radius, limit)
	if err != nil {
		respondWithStoreError(w, "Failed to get trending items", err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.enrich(r.Context(), results))
}

// GetGrid returns the precomputed ranking of the grid cell containing a location
func (h *TrendingHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	location, err := parseLocation(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid location", err)
		return
	}

	limit, err := h.parseLimit(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	results, err := h.service.LookupNearby(r.Context(), location, limit)
	if err != nil {
		respondWithStoreError(w, "Failed to get grid snapshot", err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.enrich(r.Context(), results))
}

func (h *TrendingHandler) parseLimit(r *http.Request) (int, error) {
	limit, err := parseOptionalInt(r, "limit", h.config.DefaultLimit)
	if err != nil {
		return 0, err
	}
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}
	return limit, nil
}

// enrich attaches articles to results. Items the document store does not know are
// returned without an article.
func (h *TrendingHandler) enrich(ctx context.Context, results []trend.Result) []article.Trending {
	items := make([]article.Trending, 0, len(results))
	for _, res := range results {
		item := article.Trending{
			ID:            res.ItemID,
			TrendingScore: res.Score,
			DistanceKm:    res.DistanceKm,
		}

		if h.articles != nil {
			a, err := h.articles.FindByID(ctx, res.ItemID)
			switch {
			case err == nil:
				item.Article = a
			case !errors.Is(err, article.ErrNotFound):
				logging.Warn().Err(err).Str("item", res.ItemID).Msg("Error loading article")
			}
		}

		items = append(items, item)
	}
	return items
}

func parseLocation(r *http.Request) (geo.Location, error) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		return geo.Location{}, err
	}
	lng, err := parseFloatParam(r, "lng")
	if err != nil {
		return geo.Location{}, err
	}
	location := geo.Location{Latitude: lat, Longitude: lng}
	if !location.Valid() {
		return geo.Location{}, fmt.Errorf("coordinates out of range")
	}
	return location, nil
}

func respondWithStoreError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, trend.ErrStoreUnavailable) {
		respondWithError(w, http.StatusServiceUnavailable, message, err)
		return
	}
	respondWithError(w, http.StatusInternalServerError, message, err)
}
