package services

import (
	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
)

// SourceRegistry is the explicit, ordered list of event sources with their
// enablement state. Registration order is the merge order of search results.
type SourceRegistry struct {
	entries []registryEntry
}

type registryEntry struct {
	source  providers.EventSource
	enabled bool
}

// SourceInfo describes one registered source
type SourceInfo struct {
	Name       entities.Source `json:"name"`
	Enabled    bool            `json:"enabled"`
	Configured bool            `json:"configured"`
}

// SourceStats summarizes the registry
type SourceStats struct {
	Total    int          `json:"total"`
	Enabled  int          `json:"enabled"`
	Disabled int          `json:"disabled"`
	Sources  []SourceInfo `json:"sources"`
}

// NewSourceRegistry creates an empty registry
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{}
}

// Register adds a source. Registering the same source twice replaces the
// earlier entry in place.
func (r *SourceRegistry) Register(source providers.EventSource, enabled bool) {
	for i, entry := range r.entries {
		if entry.source.Source() == source.Source() {
			r.entries[i] = registryEntry{source: source, enabled: enabled}
			return
		}
	}
	r.entries = append(r.entries, registryEntry{source: source, enabled: enabled})
}

// Lookup returns a source that is registered, enabled and configured
func (r *SourceRegistry) Lookup(source entities.Source) (providers.EventSource, bool) {
	for _, entry := range r.entries {
		if entry.source.Source() == source {
			return entry.source, entry.usable()
		}
	}
	return nil, false
}

// Usable returns every enabled and configured source in registry order
func (r *SourceRegistry) Usable() []providers.EventSource {
	usable := make([]providers.EventSource, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.usable() {
			usable = append(usable, entry.source)
		}
	}
	return usable
}

// Stats reports how many sources can serve requests
func (r *SourceRegistry) Stats() SourceStats {
	stats := SourceStats{
		Total:   len(r.entries),
		Sources: make([]SourceInfo, 0, len(r.entries)),
	}
	for _, entry := range r.entries {
		info := SourceInfo{
			Name:       entry.source.Source(),
			Enabled:    entry.usable(),
			Configured: entry.source.Configured(),
		}
		if info.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		stats.Sources = append(stats.Sources, info)
	}
	return stats
}

func (e registryEntry) usable() bool {
	return e.enabled && e.source.Configured()
}
