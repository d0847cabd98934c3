package eventsources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

const overpassBody = `{
  "elements": [
    {"type": "node", "id": 42, "lat": 30.27, "lon": -97.74,
     "tags": {"name": "Downtown Farmers Market", "amenity": "marketplace", "addr:housenumber": "422", "addr:street": "Guadalupe St", "addr:city": "Austin", "opening_hours": "Sa 09:00-13:00"}},
    {"type": "way", "id": 7, "center": {"lat": 30.25, "lon": -97.75},
     "tags": {"name": "Zilker Park", "leisure": "park", "website": "https://zilker.example"}},
    {"type": "node", "id": 8, "lat": 30.1, "lon": -97.1, "tags": {"amenity": "marketplace"}}
  ]
}`

var osmTestNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newOSMTestSource(t *testing.T, handler func(t *testing.T, data string, w http.ResponseWriter)) *OpenStreetMapSource {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		handler(t, r.PostForm.Get("data"), w)
	}))
	t.Cleanup(server.Close)

	source := NewOpenStreetMapSource(Options{BaseURL: server.URL, HTTPClient: server.Client()})
	source.now = func() time.Time { return osmTestNow }
	return source
}

func TestOpenStreetMapSearch_CoordinateQuery(t *testing.T) {
	source := newOSMTestSource(t, func(t *testing.T, data string, w http.ResponseWriter) {
		assert.Contains(t, data, "[out:json][timeout:25];")
		assert.Contains(t, data, `node["amenity"="marketplace"](around:5000,30.2672,-97.7431);`)
		assert.Contains(t, data, `way["tourism"="attraction"](around:5000,30.2672,-97.7431);`)
		assert.Contains(t, data, "out center 20;")
		_, _ = w.Write([]byte(overpassBody))
	})

	lat, lon, radius := 30.2672, -97.7431, 5.0
	page, err := source.Search(context.Background(), entities.SearchQuery{Latitude: &lat, Longitude: &lon, RadiusKm: &radius})
	require.NoError(t, err)
	require.Len(t, page.Events, 2, "unnamed elements are dropped")
	assert.Equal(t, 2, page.TotalResults)

	market := page.Events[0]
	assert.Equal(t, "osm-node-42", market.ID)
	assert.Equal(t, "Farmers Market", market.Category)
	assert.Equal(t, "422 Guadalupe St", market.Venue.Address)
	assert.Equal(t, "Austin", market.Venue.City)
	assert.Equal(t, "Sa 09:00-13:00", market.Description)
	assert.Equal(t, "https://www.openstreetmap.org/node/42", market.URL)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", market.StartDate)
	assert.Equal(t, "2034-05-01T12:00:00.000Z", market.EndDate)
	assert.True(t, market.IsFree)

	park := page.Events[1]
	assert.Equal(t, "osm-way-7", park.ID)
	assert.Equal(t, "Recreation", park.Category)
	assert.Equal(t, "https://zilker.example", park.URL)
	assert.Equal(t, "Community venue or facility", park.Description)
	require.NotNil(t, park.Venue.Location)
	assert.Equal(t, entities.GeoPoint{Lat: 30.25, Lng: -97.75}, *park.Venue.Location)
}

func TestOpenStreetMapSearch_CityOnlyUsesArea(t *testing.T) {
	source := newOSMTestSource(t, func(t *testing.T, data string, w http.ResponseWriter) {
		assert.Contains(t, data, `area["name"="Austin"]->.searchArea;`)
		assert.Contains(t, data, `node["leisure"="stadium"](area.searchArea);`)
		assert.NotContains(t, data, "around:")
		assert.NotContains(t, data, "marketplace")
		_, _ = w.Write([]byte(`{"elements":[]}`))
	})

	page, err := source.Search(context.Background(), entities.SearchQuery{City: "Austin", Category: "Sports"})
	require.NoError(t, err)
	assert.Empty(t, page.Events)
}

func TestOpenStreetMapSearch_SkipsWithoutRequest(t *testing.T) {
	source := newOSMTestSource(t, func(t *testing.T, data string, w http.ResponseWriter) {
		t.Error("no request expected")
	})
	paid := false

	page, err := source.Search(context.Background(), entities.SearchQuery{City: "Austin", IsFree: &paid})
	require.NoError(t, err)
	assert.Empty(t, page.Events)

	page, err = source.Search(context.Background(), entities.SearchQuery{City: "Austin", Page: 1})
	require.NoError(t, err)
	assert.Empty(t, page.Events)

	_, err = source.Search(context.Background(), entities.SearchQuery{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestOpenStreetMapGetByID(t *testing.T) {
	source := newOSMTestSource(t, func(t *testing.T, data string, w http.ResponseWriter) {
		assert.Contains(t, data, "node(42);")
		assert.Contains(t, data, "out center;")
		_, _ = w.Write([]byte(`{"elements":[{"type":"node","id":42,"lat":1,"lon":2,"tags":{"name":"Market","amenity":"marketplace"}}]}`))
	})

	event, err := source.GetByID(context.Background(), "node-42")
	require.NoError(t, err)
	assert.Equal(t, "osm-node-42", event.ID)
	assert.Equal(t, "Market", event.Title)
}

func TestOpenStreetMapGetByID_Missing(t *testing.T) {
	source := newOSMTestSource(t, func(t *testing.T, data string, w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"elements":[]}`))
	})

	_, err := source.GetByID(context.Background(), "way-9")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	// ids arrive without the source prefix
	_, err = source.GetByID(context.Background(), "osm-way-9")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = source.GetByID(context.Background(), "banana-9")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestOSMCategory(t *testing.T) {
	assert.Equal(t, "Sports - tennis", osmCategory(map[string]string{"sport": "tennis"}))
	assert.Equal(t, "Athletics", osmCategory(map[string]string{"leisure": "track"}))
	assert.Equal(t, "Local Venue", osmCategory(map[string]string{}))
}

func TestEscapeOverpassString(t *testing.T) {
	assert.Equal(t, `Say \"hi\"`, escapeOverpassString(`Say "hi"`))
}

func TestOpenStreetMapSearch_StringEncodedNumbers(t *testing.T) {
	source := newOSMTestSource(t, func(t *testing.T, data string, w http.ResponseWriter) {
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":"42","lat":"30.1","lon":"-97.1","tags":{"name":"Market","amenity":"marketplace"}},
			{"type":"way","id":7,"center":{"lat":"30.25","lon":"-97.75"},"tags":{"name":"Park","leisure":"park"}},
			{"type":"node","id":"n/a","lat":1,"lon":2,"tags":{"name":"No Id"}},
			{"type":"node","id":9,"lat":"north","lon":2,"tags":{"name":"Bad Lat"}}
		]}`))
	})

	page, err := source.Search(context.Background(), entities.SearchQuery{City: "Austin"})
	require.NoError(t, err)
	require.Len(t, page.Events, 3, "elements without a usable id are dropped")

	assert.Equal(t, "osm-node-42", page.Events[0].ID)
	require.NotNil(t, page.Events[0].Venue.Location)
	assert.Equal(t, entities.GeoPoint{Lat: 30.1, Lng: -97.1}, *page.Events[0].Venue.Location)

	assert.Equal(t, "osm-way-7", page.Events[1].ID)
	require.NotNil(t, page.Events[1].Venue.Location)
	assert.Equal(t, entities.GeoPoint{Lat: 30.25, Lng: -97.75}, *page.Events[1].Venue.Location)

	assert.Equal(t, "osm-node-9", page.Events[2].ID)
	assert.Nil(t, page.Events[2].Venue.Location, "unparsable coordinates leave the location unset")
}
