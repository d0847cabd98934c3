package eventsources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
	"github.com/zatekoja/localeventfinder/pkg/geo"
)

const (
	overpassBaseURL    = "https://overpass-api.de/api/interpreter"
	overpassTimeout    = 30 * time.Second
	overpassHeader     = "[out:json][timeout:25];"
	osmOngoingYears    = 10
	osmDefaultTitle    = "Local Venue"
	osmDefaultDesc     = "Community venue or facility"
	osmElementURLFmt   = "https://www.openstreetmap.org/%s/%d"
	osmSearchAreaAlias = "searchArea"
)

// osmFilter is a single Overpass tag selector, key=value
type osmFilter struct {
	Key   string
	Value string
}

var osmAllFilters = []osmFilter{
	{"amenity", "marketplace"},
	{"amenity", "community_centre"},
	{"leisure", "sports_centre"},
	{"leisure", "stadium"},
	{"leisure", "track"},
	{"leisure", "park"},
	{"tourism", "attraction"},
}

// osmCategoryFilters narrows the tag selectors for a generic category
var osmCategoryFilters = map[string][]osmFilter{
	"markets":         {{"amenity", "marketplace"}},
	"farmers market":  {{"amenity", "marketplace"}},
	"food":            {{"amenity", "marketplace"}},
	"community":       {{"amenity", "community_centre"}},
	"sports":          {{"leisure", "sports_centre"}, {"leisure", "stadium"}, {"leisure", "track"}},
	"athletics":       {{"leisure", "track"}},
	"recreation":      {{"leisure", "park"}},
	"parks":           {{"leisure", "park"}},
	"outdoors":        {{"leisure", "park"}},
	"attractions":     {{"tourism", "attraction"}},
	"arts & theatre":  {{"tourism", "attraction"}},
	"family":          {{"leisure", "park"}, {"tourism", "attraction"}},
	"community venue": {{"amenity", "community_centre"}},
}

// osmCategoryNames is the fixed taxonomy produced by osmCategory
var osmCategoryNames = []string{
	"Farmers Market", "Community", "Sports", "Athletics", "Recreation", "Attractions", "Local Venue",
}

var osmElementTypes = map[string]bool{"node": true, "way": true, "relation": true}

// OpenStreetMapSource adapts the Overpass API. Results are venues presented
// as ongoing events.
type OpenStreetMapSource struct {
	client  *sourceClient
	filters map[string][]osmFilter
	now     func() time.Time
}

// NewOpenStreetMapSource creates the Overpass adapter. Options.Categories
// values are comma-separated key=value selectors.
func NewOpenStreetMapSource(opts Options) *OpenStreetMapSource {
	filters := make(map[string][]osmFilter, len(osmCategoryFilters)+len(opts.Categories))
	for k, v := range osmCategoryFilters {
		filters[k] = v
	}
	for k, v := range opts.Categories {
		if parsed := parseOSMFilters(v); len(parsed) > 0 {
			filters[normalizeCategoryKey(k)] = parsed
		}
	}
	return &OpenStreetMapSource{
		client:  newSourceClient(entities.SourceOpenStreetMap, opts, overpassBaseURL, overpassTimeout),
		filters: filters,
		now:     time.Now,
	}
}

var (
	_ providers.EventSource    = (*OpenStreetMapSource)(nil)
	_ providers.CategoryLister = (*OpenStreetMapSource)(nil)
)

// Source identifies the adapter
func (o *OpenStreetMapSource) Source() entities.Source {
	return entities.SourceOpenStreetMap
}

// Configured reports whether an Overpass endpoint is set; no credentials are needed
func (o *OpenStreetMapSource) Configured() bool {
	return o.client.baseURL != ""
}

// Search posts an Overpass QL query. Overpass has no paging, so only the
// first page returns results.
func (o *OpenStreetMapSource) Search(ctx context.Context, q entities.SearchQuery) (*entities.SourcePage, error) {
	empty := &entities.SourcePage{Events: []*entities.NormalizedEvent{}}
	if q.Page > 0 || (q.IsFree != nil && !*q.IsFree) {
		return empty, nil
	}

	query, err := o.buildSearchQuery(q)
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := o.post(ctx, "search", query, &resp); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return empty, nil
		}
		return nil, err
	}

	now := o.now()
	events := make([]*entities.NormalizedEvent, 0, len(resp.Elements))
	for i := range resp.Elements {
		el := &resp.Elements[i]
		if strings.TrimSpace(el.Tags["name"]) == "" || !el.resolvable() {
			continue
		}
		events = append(events, normalizeOSMElement(el, now))
	}

	return &entities.SourcePage{
		Events:       events,
		TotalResults: len(events),
	}, nil
}

func (o *OpenStreetMapSource) buildSearchQuery(q entities.SearchQuery) (string, error) {
	filters := osmAllFilters
	if key := normalizeCategoryKey(q.Category); key != "" {
		if mapped, ok := o.filters[key]; ok && len(mapped) > 0 {
			filters = mapped
		}
	}

	var scope string
	var b strings.Builder
	b.WriteString(overpassHeader)
	b.WriteString("\n")

	switch {
	case q.HasCoordinates():
		meters := geo.KmToMeters(q.Radius())
		scope = fmt.Sprintf("(around:%s,%s,%s)",
			strconv.FormatFloat(meters, 'f', 0, 64),
			formatCoordinate(*q.Latitude),
			formatCoordinate(*q.Longitude))
	case q.TrimmedCity() != "":
		fmt.Fprintf(&b, "area[\"name\"=\"%s\"]->.%s;\n", escapeOverpassString(q.TrimmedCity()), osmSearchAreaAlias)
		scope = "(area." + osmSearchAreaAlias + ")"
	default:
		return "", apperrors.NewValidationError("openstreetmap search requires coordinates or a city")
	}

	b.WriteString("(\n")
	for _, f := range filters {
		for _, elementType := range []string{"node", "way"} {
			fmt.Fprintf(&b, "  %s[\"%s\"=\"%s\"]%s;\n", elementType, f.Key, f.Value, scope)
		}
	}
	b.WriteString(");\n")
	fmt.Fprintf(&b, "out center %d;", q.PageSize())
	return b.String(), nil
}

// GetByID resolves "<type>-<id>" (for example node-42) to one element
func (o *OpenStreetMapSource) GetByID(ctx context.Context, id string) (*entities.NormalizedEvent, error) {
	localID := strings.TrimSpace(id)
	elementType, rawID, ok := strings.Cut(localID, "-")
	numericID, err := strconv.ParseInt(rawID, 10, 64)
	if !ok || !osmElementTypes[elementType] || err != nil || numericID <= 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid openstreetmap id %q", localID))
	}

	query := fmt.Sprintf("%s\n%s(%d);\nout center;", overpassHeader, elementType, numericID)

	var resp overpassResponse
	if err := o.post(ctx, "get", query, &resp); err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("openstreetmap element %s not found", localID))
		}
		return nil, err
	}
	if len(resp.Elements) == 0 || !resp.Elements[0].resolvable() {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("openstreetmap element %s not found", localID))
	}
	return normalizeOSMElement(&resp.Elements[0], o.now()), nil
}

// Categories returns the fixed venue taxonomy
func (o *OpenStreetMapSource) Categories(context.Context) ([]entities.Category, error) {
	categories := make([]entities.Category, 0, len(osmCategoryNames))
	for _, name := range osmCategoryNames {
		categories = append(categories, entities.Category{
			Source: entities.SourceOpenStreetMap,
			ID:     normalizeCategoryKey(name),
			Name:   name,
		})
	}
	return categories, nil
}

func (o *OpenStreetMapSource) post(ctx context.Context, operation, query string, out any) error {
	form := url.Values{"data": []string{query}}
	req, err := o.client.newRequest(ctx, http.MethodPost, "", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return o.client.do(ctx, operation, req, out)
}

func normalizeOSMElement(el *overpassElement, now time.Time) *entities.NormalizedEvent {
	tags := el.Tags
	lat, lon := el.Lat.ptr(), el.Lon.ptr()
	if (lat == nil || lon == nil) && el.Center != nil {
		lat, lon = el.Center.Lat.ptr(), el.Center.Lon.ptr()
	}

	title := firstNonEmpty(tags["name"], osmDefaultTitle)
	return &entities.NormalizedEvent{
		ID:          fmt.Sprintf("%s%s-%d", entities.SourceOpenStreetMap.IDPrefix(), el.Type, el.ID.value),
		Source:      entities.SourceOpenStreetMap,
		Title:       title,
		Description: firstNonEmpty(tags["description"], tags["opening_hours"], osmDefaultDesc),
		URL:         firstNonEmpty(tags["website"], tags["contact:website"], fmt.Sprintf(osmElementURLFmt, el.Type, el.ID.value)),
		StartDate:   isoTimestamp(now),
		EndDate:     isoTimestamp(now.AddDate(osmOngoingYears, 0, 0)),
		Venue:       entities.NewVenue(title, osmAddress(tags), tags["addr:city"], tags["addr:state"], lat, lon),
		Category:    osmCategory(tags),
		IsFree:      true,
	}
}

func osmCategory(tags map[string]string) string {
	switch {
	case tags["amenity"] == "marketplace":
		return "Farmers Market"
	case tags["amenity"] == "community_centre":
		return "Community"
	case tags["leisure"] == "sports_centre", tags["leisure"] == "stadium":
		return "Sports"
	case tags["leisure"] == "track":
		return "Athletics"
	case tags["leisure"] == "park":
		return "Recreation"
	case tags["tourism"] == "attraction":
		return "Attractions"
	case tags["sport"] != "":
		return "Sports - " + tags["sport"]
	default:
		return osmDefaultTitle
	}
}

func osmAddress(tags map[string]string) string {
	street, number := tags["addr:street"], tags["addr:housenumber"]
	switch {
	case street != "" && number != "":
		return number + " " + street
	default:
		return street
	}
}

func escapeOverpassString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func parseOSMFilters(raw string) []osmFilter {
	var filters []osmFilter
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" || value == "" {
			continue
		}
		filters = append(filters, osmFilter{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return filters
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string    `json:"type"`
	ID     flexInt   `json:"id"`
	Lat    flexFloat `json:"lat"`
	Lon    flexFloat `json:"lon"`
	Center *struct {
		Lat flexFloat `json:"lat"`
		Lon flexFloat `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// resolvable reports whether the element can be addressed by GetByID
func (el *overpassElement) resolvable() bool {
	return osmElementTypes[el.Type] && el.ID.valid && el.ID.value > 0
}
