package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localeventfinder/internal/api/handlers"
	"github.com/zatekoja/localeventfinder/internal/application/services"
	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

type MockEventSearcher struct {
	mock.Mock
}

func (m *MockEventSearcher) SearchAll(ctx context.Context, query entities.SearchQuery) (*entities.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResult), args.Error(1)
}

func (m *MockEventSearcher) Nearby(ctx context.Context, query entities.NearbyQuery) (*entities.SearchResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResult), args.Error(1)
}

type MockEventGetter struct {
	mock.Mock
}

func (m *MockEventGetter) GetByID(ctx context.Context, sourceHint, id string) (*entities.NormalizedEvent, error) {
	args := m.Called(ctx, sourceHint, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.NormalizedEvent), args.Error(1)
}

type stubCategoryLister struct {
	categories []entities.Category
	err        error
	lastSource string
}

func (s *stubCategoryLister) List(ctx context.Context, source string) ([]entities.Category, error) {
	s.lastSource = source
	return s.categories, s.err
}

type stubStats struct {
	stats services.SourceStats
}

func (s stubStats) Stats() services.SourceStats {
	return s.stats
}

func newTestHandler(searcher *MockEventSearcher, getter *MockEventGetter) *handlers.EventHandler {
	return handlers.NewEventHandler(searcher, getter, &stubCategoryLister{}, stubStats{})
}

func TestEventHandler_SearchEvents_Success(t *testing.T) {
	searcher := new(MockEventSearcher)
	distance := 3.2449
	searcher.On("SearchAll", mock.Anything, mock.MatchedBy(func(q entities.SearchQuery) bool {
		return q.City == "Austin" && q.Category == "music" && len(q.Sources) == 1
	})).Return(&entities.SearchResult{
		Events: []*entities.NormalizedEvent{{
			ID:        "tm-1",
			Source:    entities.SourceTicketmaster,
			Title:     "Concert",
			StartDate: "2024-05-01T20:00:00",
			Distance:  &distance,
		}},
		TotalResults: 57,
		Sources:      []entities.SourceReport{{Source: entities.SourceTicketmaster, Status: entities.SourceStatusOK, Count: 1}},
	}, nil)

	handler := newTestHandler(searcher, new(MockEventGetter))

	body := `{"city":"Austin","category":"music","sources":["tm"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/events/search", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.SearchEvents(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Events []struct {
			ID            string  `json:"id"`
			Source        string  `json:"source"`
			Distance      float64 `json:"distance"`
			DistanceLabel string  `json:"distanceLabel"`
		} `json:"events"`
		TotalResults int `json:"totalResults"`
		Sources      []struct {
			Status string `json:"status"`
		} `json:"sources"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Events, 1)
	assert.Equal(t, "tm-1", response.Events[0].ID)
	assert.Equal(t, "ticketmaster", response.Events[0].Source)
	assert.Equal(t, 3.2, response.Events[0].Distance)
	assert.Equal(t, "3.2km away", response.Events[0].DistanceLabel)
	assert.Equal(t, 57, response.TotalResults)
	assert.Equal(t, "ok", response.Sources[0].Status)
	searcher.AssertExpectations(t)
}

func TestEventHandler_SearchEvents_BadBody(t *testing.T) {
	handler := newTestHandler(new(MockEventSearcher), new(MockEventGetter))

	for _, body := range []string{"", "{not json", `{"town":"Austin"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/events/search", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.SearchEvents(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestEventHandler_SearchEvents_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperrors.NewValidationError("either coordinates or a city is required"), http.StatusBadRequest},
		{"invalid source", apperrors.NewInvalidSourceError("meetup"), http.StatusBadRequest},
		{"configuration", apperrors.NewConfigurationError("no event source is configured for this query"), http.StatusServiceUnavailable},
		{"provider", apperrors.NewExternalError("ticketmaster request failed", errors.New("eof")), http.StatusBadGateway},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockEventSearcher)
			searcher.On("SearchAll", mock.Anything, mock.Anything).Return(nil, tt.err)
			handler := newTestHandler(searcher, new(MockEventGetter))

			req := httptest.NewRequest(http.MethodPost, "/api/events/search", strings.NewReader(`{"city":"Austin"}`))
			w := httptest.NewRecorder()
			handler.SearchEvents(w, req)

			assert.Equal(t, tt.status, w.Code)

			var response map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.NotEmpty(t, response["error"])
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", response["error"])
			}
		})
	}
}

func TestEventHandler_NearbyEvents(t *testing.T) {
	searcher := new(MockEventSearcher)
	isFree := true
	radius := 15.0
	searcher.On("Nearby", mock.Anything, entities.NearbyQuery{
		Latitude:  30.2672,
		Longitude: -97.7431,
		RadiusKm:  &radius,
		Category:  "sports",
		IsFree:    &isFree,
		Page:      1,
		Limit:     10,
		Sources:   []string{"osm", "eb"},
	}).Return(&entities.SearchResult{TotalResults: 0}, nil)

	handler := newTestHandler(searcher, new(MockEventGetter))

	req := httptest.NewRequest(http.MethodGet, "/api/events/nearby?lat=30.2672&lng=-97.7431&radius=15&category=sports&isFree=true&page=1&limit=10&sources=osm,eb", nil)
	w := httptest.NewRecorder()
	handler.NearbyEvents(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[],"totalResults":0,"sources":[]}`, w.Body.String())
	searcher.AssertExpectations(t)
}

func TestEventHandler_NearbyEvents_BadParams(t *testing.T) {
	handler := newTestHandler(new(MockEventSearcher), new(MockEventGetter))

	for _, target := range []string{
		"/api/events/nearby?lng=-97.7",
		"/api/events/nearby?lat=north&lng=-97.7",
		"/api/events/nearby?lat=30.2&lng=-97.7&radius=far",
		"/api/events/nearby?lat=30.2&lng=-97.7&radius=-5",
		"/api/events/nearby?lat=30.2&lng=-97.7&radius=0",
		"/api/events/nearby?lat=30.2&lng=-97.7&radius=NaN",
		"/api/events/nearby?lat=30.2&lng=-97.7&isFree=maybe",
		"/api/events/nearby?lat=30.2&lng=-97.7&page=two",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		handler.NearbyEvents(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestEventHandler_NearbyEvents_OmittedRadiusStaysUnset(t *testing.T) {
	searcher := new(MockEventSearcher)
	searcher.On("Nearby", mock.Anything, mock.MatchedBy(func(q entities.NearbyQuery) bool {
		return q.RadiusKm == nil
	})).Return(&entities.SearchResult{}, nil)

	handler := newTestHandler(searcher, new(MockEventGetter))

	req := httptest.NewRequest(http.MethodGet, "/api/events/nearby?lat=30.2&lng=-97.7", nil)
	w := httptest.NewRecorder()
	handler.NearbyEvents(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	searcher.AssertExpectations(t)
}

func TestEventHandler_GetEvent(t *testing.T) {
	getter := new(MockEventGetter)
	getter.On("GetByID", mock.Anything, "eventbrite", "12345").Return(&entities.NormalizedEvent{
		ID:     "eb-12345",
		Source: entities.SourceEventbrite,
		Title:  "Workshop",
	}, nil)
	getter.On("GetByID", mock.Anything, "", "tm-missing").Return(nil, apperrors.NewNotFoundError("event missing not found"))

	handler := newTestHandler(new(MockEventSearcher), getter)

	req := httptest.NewRequest(http.MethodGet, "/api/events/eventbrite/12345", nil)
	req.SetPathValue("source", "eventbrite")
	req.SetPathValue("id", "12345")
	w := httptest.NewRecorder()
	handler.GetEvent(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Event entities.NormalizedEvent `json:"event"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "eb-12345", response.Event.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/events/tm-missing", nil)
	req.SetPathValue("id", "tm-missing")
	w = httptest.NewRecorder()
	handler.GetEvent(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	getter.AssertExpectations(t)
}

func TestEventHandler_ListCategories(t *testing.T) {
	lister := &stubCategoryLister{categories: []entities.Category{
		{Source: entities.SourceTicketmaster, ID: "KZFzniwnSyZfZ7v7nJ", Name: "Music"},
	}}
	handler := handlers.NewEventHandler(new(MockEventSearcher), new(MockEventGetter), lister, stubStats{})

	req := httptest.NewRequest(http.MethodGet, "/api/events/categories?source=tm", nil)
	w := httptest.NewRecorder()
	handler.ListCategories(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tm", lister.lastSource)
	assert.Contains(t, w.Body.String(), `"count":1`)

	lister.err = apperrors.NewInvalidSourceError("bogus")
	w = httptest.NewRecorder()
	handler.ListCategories(w, httptest.NewRequest(http.MethodGet, "/api/events/categories?source=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandler_SourcesAndHealth(t *testing.T) {
	stats := services.SourceStats{
		Total:    3,
		Enabled:  2,
		Disabled: 1,
		Sources: []services.SourceInfo{
			{Name: entities.SourceTicketmaster, Enabled: true, Configured: true},
			{Name: entities.SourceEventbrite, Enabled: false, Configured: false},
			{Name: entities.SourceOpenStreetMap, Enabled: true, Configured: true},
		},
	}
	handler := handlers.NewEventHandler(new(MockEventSearcher), new(MockEventGetter), &stubCategoryLister{}, stubStats{stats: stats})

	w := httptest.NewRecorder()
	handler.ListSources(w, httptest.NewRequest(http.MethodGet, "/api/events/sources", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got services.SourceStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, stats, got)

	w = httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","enabledSources":2}`, w.Body.String())
}
