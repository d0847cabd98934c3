package entities

import (
	"strings"
	"time"
)

const (
	// DefaultRadiusKm applies when a query has coordinates but no radius
	DefaultRadiusKm = 25.0
	// DefaultLimit is the per-source page size
	DefaultLimit = 20
	// MaxLimit is the largest page size any provider accepts
	MaxLimit = 200
)

// SearchQuery is the provider-independent search input. Radius is always in kilometers.
type SearchQuery struct {
	Latitude       *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm       *float64 `json:"radius,omitempty" validate:"omitempty,gt=0,lte=500"`
	City           string   `json:"city,omitempty" validate:"omitempty,max=120"`
	StateCode      string   `json:"stateCode,omitempty" validate:"omitempty,max=8"`
	StartDate      string   `json:"startDate,omitempty"`
	EndDate        string   `json:"endDate,omitempty"`
	Category       string   `json:"category,omitempty" validate:"omitempty,max=80"`
	IsFree         *bool    `json:"isFree,omitempty"`
	Page           int      `json:"page,omitempty" validate:"gte=0,lte=1000"`
	Limit          int      `json:"limit,omitempty" validate:"gte=0,lte=200"`
	Sources        []string `json:"sources,omitempty"`
	ExcludeSources []string `json:"excludeSources,omitempty"`
}

// NearbyQuery is the coordinate-only search used by the nearby endpoint
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  *float64
	Category  string
	IsFree    *bool
	Page      int
	Limit     int
	Sources   []string
}

// HasCoordinates reports whether both latitude and longitude are set.
func (q SearchQuery) HasCoordinates() bool {
	return q.Latitude != nil && q.Longitude != nil
}

// Radius returns the radius in kilometers, falling back to the default.
func (q SearchQuery) Radius() float64 {
	if q.RadiusKm == nil || *q.RadiusKm <= 0 {
		return DefaultRadiusKm
	}
	return *q.RadiusKm
}

// PageSize returns the limit clamped to provider bounds.
func (q SearchQuery) PageSize() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	default:
		return q.Limit
	}
}

// TrimmedCity returns the city with surrounding whitespace removed.
func (q SearchQuery) TrimmedCity() string {
	return strings.TrimSpace(q.City)
}

// ToSearchQuery converts a nearby request into a coordinate search.
func (n NearbyQuery) ToSearchQuery() SearchQuery {
	lat, lon := n.Latitude, n.Longitude
	q := SearchQuery{
		Latitude:  &lat,
		Longitude: &lon,
		Category:  n.Category,
		IsFree:    n.IsFree,
		Page:      n.Page,
		Limit:     n.Limit,
		Sources:   n.Sources,
	}
	if n.RadiusKm != nil {
		radius := *n.RadiusKm
		q.RadiusKm = &radius
	}
	return q
}

var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseEventTime parses the date strings providers emit. Values without a zone
// are read as UTC.
func ParseEventTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsDateOnly reports whether value is a bare YYYY-MM-DD date.
func IsDateOnly(value string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	return err == nil
}
