package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/localeventfinder/internal/application/services"
	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/pkg/geo"
)

const maxSearchBodyBytes = 1 << 20

// EventSearcher runs aggregated searches
type EventSearcher interface {
	SearchAll(ctx context.Context, query entities.SearchQuery) (*entities.SearchResult, error)
	Nearby(ctx context.Context, query entities.NearbyQuery) (*entities.SearchResult, error)
}

// EventGetter resolves a single event
type EventGetter interface {
	GetByID(ctx context.Context, sourceHint, id string) (*entities.NormalizedEvent, error)
}

// CategoryLister lists provider taxonomies
type CategoryLister interface {
	List(ctx context.Context, source string) ([]entities.Category, error)
}

// SourceStatsProvider reports registry state
type SourceStatsProvider interface {
	Stats() services.SourceStats
}

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	searcher   EventSearcher
	lookup     EventGetter
	categories CategoryLister
	sources    SourceStatsProvider
}

// NewEventHandler creates a new event handler
func NewEventHandler(searcher EventSearcher, lookup EventGetter, categories CategoryLister, sources SourceStatsProvider) *EventHandler {
	return &EventHandler{
		searcher:   searcher,
		lookup:     lookup,
		categories: categories,
		sources:    sources,
	}
}

// eventResponse is a NormalizedEvent with display-ready distance fields
type eventResponse struct {
	*entities.NormalizedEvent
	Distance      *float64 `json:"distance,omitempty"`
	DistanceLabel string   `json:"distanceLabel,omitempty"`
}

type searchResponse struct {
	Events       []eventResponse         `json:"events"`
	TotalResults int                     `json:"totalResults"`
	Sources      []entities.SourceReport `json:"sources"`
}

func toEventResponse(event *entities.NormalizedEvent) eventResponse {
	resp := eventResponse{NormalizedEvent: event}
	if event.Distance != nil {
		rounded := geo.RoundKm(*event.Distance)
		resp.Distance = &rounded
		resp.DistanceLabel = geo.FormatDistance(*event.Distance)
	}
	return resp
}

func toSearchResponse(result *entities.SearchResult) searchResponse {
	resp := searchResponse{
		Events:       make([]eventResponse, 0, len(result.Events)),
		TotalResults: result.TotalResults,
		Sources:      result.Sources,
	}
	for _, event := range result.Events {
		resp.Events = append(resp.Events, toEventResponse(event))
	}
	if resp.Sources == nil {
		resp.Sources = []entities.SourceReport{}
	}
	return resp
}

// SearchEvents handles POST /api/events/search
func (h *EventHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	var query entities.SearchQuery
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&query); err != nil {
		if errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "request body is required")
			return
		}
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := h.searcher.SearchAll(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toSearchResponse(result))
}

// NearbyEvents handles GET /api/events/nearby
func (h *EventHandler) NearbyEvents(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	lat, err := requiredFloat(params.Get("lat"), "lat")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	lng, err := requiredFloat(params.Get("lng"), "lng")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := entities.NearbyQuery{
		Latitude:  lat,
		Longitude: lng,
		Category:  strings.TrimSpace(params.Get("category")),
	}
	if raw := params.Get("radius"); strings.TrimSpace(raw) != "" {
		radius, err := positiveFloat(raw, "radius")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		query.RadiusKm = &radius
	}
	if query.Page, err = optionalInt(params.Get("page"), "page"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Limit, err = optionalInt(params.Get("limit"), "limit"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if raw := params.Get("isFree"); raw != "" {
		isFree, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "isFree must be true or false")
			return
		}
		query.IsFree = &isFree
	}
	if raw := params.Get("sources"); raw != "" {
		query.Sources = strings.Split(raw, ",")
	}

	result, err := h.searcher.Nearby(r.Context(), query)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toSearchResponse(result))
}

// GetEvent handles GET /api/events/{id} and GET /api/events/{source}/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "event ID is required")
		return
	}

	event, err := h.lookup.GetByID(r.Context(), r.PathValue("source"), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"event": toEventResponse(event),
	})
}

// ListCategories handles GET /api/events/categories
func (h *EventHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("source")))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// ListSources handles GET /api/events/sources
func (h *EventHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.sources.Stats())
}

// Health handles GET /health
func (h *EventHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.sources.Stats()
	status := "ok"
	if stats.Enabled == 0 {
		status = "degraded"
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":         status,
		"enabledSources": stats.Enabled,
	})
}

func requiredFloat(raw, name string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	return optionalFloat(raw, name)
}

func optionalFloat(raw, name string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func positiveFloat(raw, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", name)
	}
	return v, nil
}

func optionalInt(raw, name string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
