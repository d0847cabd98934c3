package eventsources

import (
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
	"github.com/zatekoja/localeventfinder/pkg/config"
)

// SourceSetting pairs an adapter with its configured enablement
type SourceSetting struct {
	Source  providers.EventSource
	Enabled bool
}

// NewSources builds every adapter from configuration in merge order:
// Ticketmaster, Eventbrite, OpenStreetMap.
func NewSources(cfg config.SourcesConfig, metrics *observability.SourceMetrics) []SourceSetting {
	return []SourceSetting{
		{
			Source:  NewTicketmasterSource(optionsFromConfig(cfg.Ticketmaster, metrics)),
			Enabled: cfg.Ticketmaster.Enabled,
		},
		{
			Source:  NewEventbriteSource(optionsFromConfig(cfg.Eventbrite, metrics)),
			Enabled: cfg.Eventbrite.Enabled,
		},
		{
			Source:  NewOpenStreetMapSource(optionsFromConfig(cfg.OpenStreetMap, metrics)),
			Enabled: cfg.OpenStreetMap.Enabled,
		},
	}
}

func optionsFromConfig(src config.SourceConfig, metrics *observability.SourceMetrics) Options {
	return Options{
		APIKey:        src.APIKey,
		BaseURL:       src.BaseURL,
		Timeout:       src.Timeout,
		RatePerSecond: src.RatePerSecond,
		Burst:         src.Burst,
		Categories:    src.Categories,
		Metrics:       metrics,
	}
}
