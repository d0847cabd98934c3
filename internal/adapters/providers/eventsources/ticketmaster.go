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
	ticketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2"
	ticketmasterTimeout = 10 * time.Second
	defaultCurrency     = "USD"
)

// ticketmasterClassifications maps generic categories to classificationName values
var ticketmasterClassifications = map[string]string{
	"music":          "Music",
	"concerts":       "Music",
	"sports":         "Sports",
	"arts":           "Arts & Theatre",
	"arts & theatre": "Arts & Theatre",
	"theatre":        "Arts & Theatre",
	"theater":        "Arts & Theatre",
	"comedy":         "Comedy",
	"family":         "Family",
	"film":           "Film",
	"miscellaneous":  "Miscellaneous",
}

// TicketmasterSource adapts the Ticketmaster Discovery API
type TicketmasterSource struct {
	apiKey     string
	client     *sourceClient
	categories map[string]string
}

// NewTicketmasterSource creates the Ticketmaster adapter
func NewTicketmasterSource(opts Options) *TicketmasterSource {
	return &TicketmasterSource{
		apiKey:     strings.TrimSpace(opts.APIKey),
		client:     newSourceClient(entities.SourceTicketmaster, opts, ticketmasterBaseURL, ticketmasterTimeout),
		categories: mergeCategoryTable(ticketmasterClassifications, opts.Categories),
	}
}

var (
	_ providers.EventSource    = (*TicketmasterSource)(nil)
	_ providers.CategoryLister = (*TicketmasterSource)(nil)
)

// Source identifies the adapter
func (t *TicketmasterSource) Source() entities.Source {
	return entities.SourceTicketmaster
}

// Configured reports whether an API key is present
func (t *TicketmasterSource) Configured() bool {
	return t.apiKey != ""
}

// Search queries /events.json
func (t *TicketmasterSource) Search(ctx context.Context, q entities.SearchQuery) (*entities.SourcePage, error) {
	if !t.Configured() {
		return nil, apperrors.NewConfigurationError("ticketmaster API key is not configured")
	}

	params := t.searchParams(q)
	req, err := t.client.newRequest(ctx, http.MethodGet, "/events.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp ticketmasterSearchResponse
	if err := t.client.do(ctx, "search", req, &resp); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return &entities.SourcePage{Events: []*entities.NormalizedEvent{}}, nil
		}
		return nil, err
	}

	events := make([]*entities.NormalizedEvent, 0, len(resp.Embedded.Events))
	for i := range resp.Embedded.Events {
		if event := normalizeTicketmasterEvent(&resp.Embedded.Events[i]); event != nil {
			events = append(events, event)
		}
	}

	return &entities.SourcePage{
		Events:       events,
		TotalResults: resp.Page.TotalElements.Int(),
	}, nil
}

func (t *TicketmasterSource) searchParams(q entities.SearchQuery) url.Values {
	params := url.Values{}
	params.Set("apikey", t.apiKey)
	params.Set("size", strconv.Itoa(q.PageSize()))
	params.Set("page", strconv.Itoa(max(q.Page, 0)))

	if q.HasCoordinates() {
		params.Set("latlong", formatCoordinate(*q.Latitude)+","+formatCoordinate(*q.Longitude))
		params.Set("radius", strconv.Itoa(max(1, int(math.Round(q.Radius())))))
		params.Set("unit", "km")
	} else if city := q.TrimmedCity(); city != "" {
		params.Set("city", city)
		if state := strings.TrimSpace(q.StateCode); state != "" {
			params.Set("stateCode", state)
		}
	}

	if start, ok := providerDateTime(q.StartDate, false); ok {
		params.Set("startDateTime", start+"Z")
	}
	if end, ok := providerDateTime(q.EndDate, true); ok {
		params.Set("endDateTime", end+"Z")
	}
	if classification, ok := lookupCategory(t.categories, q.Category); ok {
		params.Set("classificationName", classification)
	}
	return params
}

// GetByID fetches /events/{id}.json
func (t *TicketmasterSource) GetByID(ctx context.Context, id string) (*entities.NormalizedEvent, error) {
	if !t.Configured() {
		return nil, apperrors.NewConfigurationError("ticketmaster API key is not configured")
	}
	localID := strings.TrimSpace(id)
	if localID == "" {
		return nil, apperrors.NewValidationError("event id is required")
	}

	params := url.Values{"apikey": []string{t.apiKey}}
	req, err := t.client.newRequest(ctx, http.MethodGet, "/events/"+url.PathEscape(localID)+".json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var raw ticketmasterEvent
	if err := t.client.do(ctx, "get", req, &raw); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("ticketmaster event %s not found", localID))
		}
		return nil, err
	}

	event := normalizeTicketmasterEvent(&raw)
	if event == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ticketmaster event %s not found", localID))
	}
	return event, nil
}

// Categories lists Ticketmaster segments from /classifications.json
func (t *TicketmasterSource) Categories(ctx context.Context) ([]entities.Category, error) {
	if !t.Configured() {
		return nil, apperrors.NewConfigurationError("ticketmaster API key is not configured")
	}

	params := url.Values{"apikey": []string{t.apiKey}}
	req, err := t.client.newRequest(ctx, http.MethodGet, "/classifications.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp ticketmasterClassificationResponse
	if err := t.client.do(ctx, "categories", req, &resp); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return []entities.Category{}, nil
		}
		return nil, err
	}

	categories := make([]entities.Category, 0, len(resp.Embedded.Classifications))
	seen := make(map[string]bool)
	for _, c := range resp.Embedded.Classifications {
		if c.Segment == nil || c.Segment.Name == "" || seen[c.Segment.ID] {
			continue
		}
		seen[c.Segment.ID] = true
		categories = append(categories, entities.Category{
			Source: entities.SourceTicketmaster,
			ID:     c.Segment.ID,
			Name:   c.Segment.Name,
		})
	}
	return categories, nil
}

func normalizeTicketmasterEvent(raw *ticketmasterEvent) *entities.NormalizedEvent {
	if raw == nil || raw.ID == "" {
		return nil
	}

	event := &entities.NormalizedEvent{
		ID:          entities.SourceTicketmaster.IDPrefix() + raw.ID,
		Source:      entities.SourceTicketmaster,
		Title:       raw.Name,
		Description: firstNonEmpty(raw.Description, raw.Info),
		URL:         raw.URL,
		StartDate:   joinLocalDateTime(raw.Dates.Start.LocalDate, raw.Dates.Start.LocalTime),
		EndDate:     joinLocalDateTime(raw.Dates.End.LocalDate, raw.Dates.End.LocalTime),
	}
	if len(raw.Images) > 0 {
		event.ImageURL = raw.Images[0].URL
	}

	var venue ticketmasterVenue
	if len(raw.Embedded.Venues) > 0 {
		venue = raw.Embedded.Venues[0]
	}
	var lat, lon *float64
	if venue.Location != nil {
		lat, lon = venue.Location.Latitude.ptr(), venue.Location.Longitude.ptr()
	}
	event.Venue = entities.NewVenue(venue.Name, venue.Address.Line1, venue.City.Name, venue.State.Name, lat, lon)

	if len(raw.Classifications) > 0 {
		c := raw.Classifications[0]
		switch {
		case c.Segment != nil && c.Segment.Name != "":
			event.Category = c.Segment.Name
		case c.Genre != nil && c.Genre.Name != "":
			event.Category = c.Genre.Name
		}
	}

	if len(raw.PriceRanges) > 0 {
		pr := raw.PriceRanges[0]
		if pr.Min.valid || pr.Max.valid {
			minPrice, maxPrice := pr.Min.value, pr.Max.value
			if !pr.Min.valid {
				minPrice = maxPrice
			}
			if !pr.Max.valid {
				maxPrice = minPrice
			}
			event.PriceRange = &entities.PriceRange{
				Min:      minPrice,
				Max:      maxPrice,
				Currency: firstNonEmpty(pr.Currency, defaultCurrency),
			}
			event.IsFree = pr.Min.valid && pr.Min.value == 0
		}
	}

	return event
}

func joinLocalDateTime(date, clock string) string {
	if date == "" {
		return ""
	}
	if clock == "" {
		return date
	}
	return date + "T" + clock
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type ticketmasterSearchResponse struct {
	Embedded struct {
		Events []ticketmasterEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		TotalElements flexInt `json:"totalElements"`
	} `json:"page"`
}

type ticketmasterEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Info        string `json:"info"`
	Images      []struct {
		URL string `json:"url"`
	} `json:"images"`
	Dates struct {
		Start ticketmasterDate `json:"start"`
		End   ticketmasterDate `json:"end"`
	} `json:"dates"`
	Classifications []struct {
		Segment *ticketmasterNamed `json:"segment"`
		Genre   *ticketmasterNamed `json:"genre"`
	} `json:"classifications"`
	PriceRanges []struct {
		Min      flexFloat `json:"min"`
		Max      flexFloat `json:"max"`
		Currency string    `json:"currency"`
	} `json:"priceRanges"`
	Embedded struct {
		Venues []ticketmasterVenue `json:"venues"`
	} `json:"_embedded"`
}

type ticketmasterDate struct {
	LocalDate string `json:"localDate"`
	LocalTime string `json:"localTime"`
}

type ticketmasterNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ticketmasterVenue struct {
	Name    string `json:"name"`
	Address struct {
		Line1 string `json:"line1"`
	} `json:"address"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	State struct {
		Name      string `json:"name"`
		StateCode string `json:"stateCode"`
	} `json:"state"`
	Location *struct {
		Latitude  flexFloat `json:"latitude"`
		Longitude flexFloat `json:"longitude"`
	} `json:"location"`
}

type ticketmasterClassificationResponse struct {
	Embedded struct {
		Classifications []struct {
			Segment *ticketmasterNamed `json:"segment"`
		} `json:"classifications"`
	} `json:"_embedded"`
}
