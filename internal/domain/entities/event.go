package entities

import (
	"strings"
)

// Source identifies the event-listing provider an event came from
type Source string

const (
	SourceTicketmaster  Source = "ticketmaster"
	SourceEventbrite    Source = "eventbrite"
	SourceOpenStreetMap Source = "openstreetmap"
)

// AllSources lists the known sources in merge order.
var AllSources = []Source{SourceTicketmaster, SourceEventbrite, SourceOpenStreetMap}

// DefaultVenueName is used when a provider omits the venue name.
const DefaultVenueName = "Venue TBA"

// IDPrefix returns the prefix every event id from this source carries.
func (s Source) IDPrefix() string {
	switch s {
	case SourceTicketmaster:
		return "tm-"
	case SourceEventbrite:
		return "eb-"
	case SourceOpenStreetMap:
		return "osm-"
	default:
		return ""
	}
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	return s.IDPrefix() != ""
}

// ParseSource maps a source token (full name or short prefix, any case) to a Source.
func ParseSource(token string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "ticketmaster", "tm":
		return SourceTicketmaster, true
	case "eventbrite", "eb":
		return SourceEventbrite, true
	case "openstreetmap", "osm":
		return SourceOpenStreetMap, true
	default:
		return "", false
	}
}

// SourceFromID matches id against the known prefixes and returns the source
// with the prefix stripped.
func SourceFromID(id string) (Source, string, bool) {
	for _, s := range AllSources {
		if prefix := s.IDPrefix(); strings.HasPrefix(id, prefix) {
			return s, strings.TrimPrefix(id, prefix), true
		}
	}
	return "", id, false
}

// NormalizedEvent is the provider-independent event record returned to callers
type NormalizedEvent struct {
	ID          string      `json:"id"`
	Source      Source      `json:"source"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	URL         string      `json:"url"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate,omitempty"`
	Venue       Venue       `json:"venue"`
	Category    string      `json:"category,omitempty"`
	IsFree      bool        `json:"isFree"`
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
	Distance    *float64    `json:"distance,omitempty"`
}

// Venue represents where an event takes place
type Venue struct {
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Location  *GeoPoint `json:"location,omitempty"`
}

// GeoPoint represents resolved venue coordinates
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PriceRange represents numeric ticket pricing
type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// NewVenue builds a venue, applying the default name and setting Location only
// when both coordinates are present.
func NewVenue(name, address, city, state string, lat, lon *float64) Venue {
	if strings.TrimSpace(name) == "" {
		name = DefaultVenueName
	}
	venue := Venue{
		Name:      name,
		Address:   address,
		City:      city,
		State:     state,
		Latitude:  lat,
		Longitude: lon,
	}
	if lat != nil && lon != nil {
		venue.Location = &GeoPoint{Lat: *lat, Lng: *lon}
	}
	return venue
}

// InformationScore counts populated optional fields; used to pick the richer duplicate.
func (e *NormalizedEvent) InformationScore() int {
	score := 0
	if e.Description != "" {
		score += 2
	}
	if e.ImageURL != "" {
		score += 2
	}
	if e.PriceRange != nil {
		score++
	}
	if e.URL != "" {
		score++
	}
	if e.Category != "" {
		score++
	}
	return score
}

// SourcePage is one provider's normalized response to a search
type SourcePage struct {
	Events       []*NormalizedEvent
	TotalResults int
}

// SourceStatus describes how a source took part in an aggregate search
type SourceStatus string

const (
	SourceStatusOK       SourceStatus = "ok"
	SourceStatusFailed   SourceStatus = "failed"
	SourceStatusDisabled SourceStatus = "disabled"
	SourceStatusExcluded SourceStatus = "excluded"
)

// SourceReport is the per-source diagnostic attached to a search result
type SourceReport struct {
	Source Source       `json:"source"`
	Status SourceStatus `json:"status"`
	Count  int          `json:"count"`
	Error  string       `json:"error,omitempty"`
}

// SearchResult is the aggregated response of a multi-source search
type SearchResult struct {
	Events       []*NormalizedEvent `json:"events"`
	TotalResults int                `json:"totalResults"`
	Sources      []SourceReport     `json:"sources"`
}

// Category is one entry of a provider taxonomy
type Category struct {
	Source Source `json:"source"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}
