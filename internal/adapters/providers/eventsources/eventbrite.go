package eventsources

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

const (
	eventbriteBaseURL = "https://www.eventbriteapi.com/v3"
	eventbriteTimeout = 10 * time.Second
	eventbriteExpand  = "venue,category,subcategory,ticket_classes"
)

// eventbriteCategoryIDs maps generic categories to Eventbrite category ids
var eventbriteCategoryIDs = map[string]string{
	"business":       "101",
	"technology":     "102",
	"science":        "102",
	"music":          "103",
	"concerts":       "103",
	"film":           "104",
	"arts":           "105",
	"arts & theatre": "105",
	"theatre":        "105",
	"theater":        "105",
	"fashion":        "106",
	"health":         "107",
	"sports":         "108",
	"outdoors":       "109",
	"food":           "110",
	"food & drink":   "110",
	"charity":        "111",
	"community":      "113",
	"family":         "115",
	"holiday":        "116",
	"hobbies":        "119",
}

// EventbriteSource adapts the Eventbrite v3 API
type EventbriteSource struct {
	token      string
	client     *sourceClient
	categories map[string]string
}

// NewEventbriteSource creates the Eventbrite adapter
func NewEventbriteSource(opts Options) *EventbriteSource {
	return &EventbriteSource{
		token:      strings.TrimSpace(opts.APIKey),
		client:     newSourceClient(entities.SourceEventbrite, opts, eventbriteBaseURL, eventbriteTimeout),
		categories: mergeCategoryTable(eventbriteCategoryIDs, opts.Categories),
	}
}

var (
	_ providers.EventSource    = (*EventbriteSource)(nil)
	_ providers.CategoryLister = (*EventbriteSource)(nil)
)

// Source identifies the adapter
func (e *EventbriteSource) Source() entities.Source {
	return entities.SourceEventbrite
}

// Configured reports whether a private token is present
func (e *EventbriteSource) Configured() bool {
	return e.token != ""
}

// Search queries /events/search/
func (e *EventbriteSource) Search(ctx context.Context, q entities.SearchQuery) (*entities.SourcePage, error) {
	if !e.Configured() {
		return nil, apperrors.NewConfigurationError("eventbrite token is not configured")
	}

	req, err := e.authorizedRequest(ctx, "/events/search/?"+e.searchParams(q).Encode())
	if err != nil {
		return nil, err
	}

	var resp eventbriteSearchResponse
	if err := e.client.do(ctx, "search", req, &resp); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return &entities.SourcePage{Events: []*entities.NormalizedEvent{}}, nil
		}
		return nil, err
	}

	events := make([]*entities.NormalizedEvent, 0, len(resp.Events))
	for i := range resp.Events {
		if event := normalizeEventbriteEvent(&resp.Events[i]); event != nil {
			events = append(events, event)
		}
	}

	return &entities.SourcePage{
		Events:       events,
		TotalResults: resp.Pagination.ObjectCount.Int(),
	}, nil
}

func (e *EventbriteSource) searchParams(q entities.SearchQuery) url.Values {
	params := url.Values{}
	params.Set("expand", eventbriteExpand)
	params.Set("page", strconv.Itoa(max(q.Page, 0)+1))
	params.Set("page_size", strconv.Itoa(q.PageSize()))

	if q.HasCoordinates() {
		params.Set("location.latitude", formatCoordinate(*q.Latitude))
		params.Set("location.longitude", formatCoordinate(*q.Longitude))
		params.Set("location.within", strconv.Itoa(max(1, int(math.Round(q.Radius()))))+"km")
	} else if city := q.TrimmedCity(); city != "" {
		params.Set("location.address", city)
	}

	if start, ok := providerDateTime(q.StartDate, false); ok {
		params.Set("start_date.range_start", start)
	}
	if end, ok := providerDateTime(q.EndDate, true); ok {
		params.Set("start_date.range_end", end)
	}
	if id, ok := lookupCategory(e.categories, q.Category); ok {
		params.Set("categories", id)
	}
	if q.IsFree != nil {
		if *q.IsFree {
			params.Set("price", "free")
		} else {
			params.Set("price", "paid")
		}
	}
	return params
}

// GetByID fetches /events/{id}/
func (e *EventbriteSource) GetByID(ctx context.Context, id string) (*entities.NormalizedEvent, error) {
	if !e.Configured() {
		return nil, apperrors.NewConfigurationError("eventbrite token is not configured")
	}
	localID := strings.TrimSpace(id)
	if localID == "" {
		return nil, apperrors.NewValidationError("event id is required")
	}

	params := url.Values{"expand": []string{eventbriteExpand}}
	req, err := e.authorizedRequest(ctx, "/events/"+url.PathEscape(localID)+"/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var raw eventbriteEvent
	if err := e.client.do(ctx, "get", req, &raw); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("eventbrite event %s not found", localID))
		}
		return nil, err
	}

	event := normalizeEventbriteEvent(&raw)
	if event == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("eventbrite event %s not found", localID))
	}
	return event, nil
}

// Categories lists Eventbrite categories from /categories/
func (e *EventbriteSource) Categories(ctx context.Context) ([]entities.Category, error) {
	if !e.Configured() {
		return nil, apperrors.NewConfigurationError("eventbrite token is not configured")
	}

	req, err := e.authorizedRequest(ctx, "/categories/")
	if err != nil {
		return nil, err
	}

	var resp eventbriteCategoryResponse
	if err := e.client.do(ctx, "categories", req, &resp); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return []entities.Category{}, nil
		}
		return nil, err
	}

	categories := make([]entities.Category, 0, len(resp.Categories))
	for _, c := range resp.Categories {
		if c.Name == "" {
			continue
		}
		categories = append(categories, entities.Category{
			Source: entities.SourceEventbrite,
			ID:     c.ID,
			Name:   c.Name,
		})
	}
	return categories, nil
}

func (e *EventbriteSource) authorizedRequest(ctx context.Context, path string) (*http.Request, error) {
	req, err := e.client.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	return req, nil
}

func normalizeEventbriteEvent(raw *eventbriteEvent) *entities.NormalizedEvent {
	if raw == nil || raw.ID == "" {
		return nil
	}

	event := &entities.NormalizedEvent{
		ID:        entities.SourceEventbrite.IDPrefix() + raw.ID,
		Source:    entities.SourceEventbrite,
		Title:     raw.Name.Text,
		URL:       raw.URL,
		StartDate: raw.Start.Local,
		EndDate:   raw.End.Local,
		IsFree:    raw.IsFree,
	}
	if raw.Description != nil {
		event.Description = raw.Description.Text
	}
	if raw.Logo != nil {
		event.ImageURL = raw.Logo.URL
	}

	if raw.Venue != nil {
		addr := raw.Venue.Address
		event.Venue = entities.NewVenue(raw.Venue.Name, addr.Address1, addr.City, addr.Region, addr.Latitude.ptr(), addr.Longitude.ptr())
	} else {
		event.Venue = entities.NewVenue("", "", "", "", nil, nil)
	}

	switch {
	case raw.Category != nil && raw.Category.Name != "":
		event.Category = raw.Category.Name
	case raw.Subcategory != nil && raw.Subcategory.Name != "":
		event.Category = raw.Subcategory.Name
	}

	if !raw.IsFree {
		event.PriceRange = eventbritePriceRange(raw)
	}
	return event
}

// eventbritePriceRange spans the positive ticket class prices.
func eventbritePriceRange(raw *eventbriteEvent) *entities.PriceRange {
	var (
		found            bool
		minPrice, maxPrice float64
		currency         string
	)
	for _, tc := range raw.TicketClasses {
		if tc.Cost == nil || !tc.Cost.MajorValue.valid || tc.Cost.MajorValue.value <= 0 {
			continue
		}
		price := tc.Cost.MajorValue.value
		if !found {
			minPrice, maxPrice, found = price, price, true
		} else {
			minPrice = math.Min(minPrice, price)
			maxPrice = math.Max(maxPrice, price)
		}
		if currency == "" {
			currency = tc.Cost.Currency
		}
	}
	if !found {
		return nil
	}
	return &entities.PriceRange{
		Min:      minPrice,
		Max:      maxPrice,
		Currency: firstNonEmpty(currency, raw.Currency, defaultCurrency),
	}
}

type eventbriteSearchResponse struct {
	Events     []eventbriteEvent `json:"events"`
	Pagination struct {
		ObjectCount  flexInt `json:"object_count"`
		HasMoreItems bool    `json:"has_more_items"`
	} `json:"pagination"`
}

type eventbriteText struct {
	Text string `json:"text"`
}

type eventbriteTime struct {
	Timezone string `json:"timezone"`
	Local    string `json:"local"`
	UTC      string `json:"utc"`
}

type eventbriteNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type eventbriteEvent struct {
	ID          string          `json:"id"`
	Name        eventbriteText  `json:"name"`
	Description *eventbriteText `json:"description"`
	URL         string          `json:"url"`
	Start       eventbriteTime  `json:"start"`
	End         eventbriteTime  `json:"end"`
	IsFree      bool            `json:"is_free"`
	Currency    string          `json:"currency"`
	Logo        *struct {
		URL string `json:"url"`
	} `json:"logo"`
	Venue *struct {
		Name    string `json:"name"`
		Address struct {
			Address1  string    `json:"address_1"`
			City      string    `json:"city"`
			Region    string    `json:"region"`
			Latitude  flexFloat `json:"latitude"`
			Longitude flexFloat `json:"longitude"`
		} `json:"address"`
	} `json:"venue"`
	Category      *eventbriteNamed `json:"category"`
	Subcategory   *eventbriteNamed `json:"subcategory"`
	TicketClasses []struct {
		Free bool `json:"free"`
		Cost *struct {
			MajorValue flexFloat `json:"major_value"`
			Currency   string    `json:"currency"`
		} `json:"cost"`
	} `json:"ticket_classes"`
}

type eventbriteCategoryResponse struct {
	Categories []eventbriteNamed `json:"categories"`
}
