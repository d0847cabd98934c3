package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localeventfinder/internal/application/services"
	"github.com/zatekoja/localeventfinder/internal/domain/entities"
)

func TestSourceRegistry_Stats(t *testing.T) {
	tm := newMockSource(entities.SourceTicketmaster)
	eb := newMockSource(entities.SourceEventbrite)
	eb.configured = false
	osm := newMockSource(entities.SourceOpenStreetMap)

	registry := services.NewSourceRegistry()
	registry.Register(tm, true)
	registry.Register(eb, true)
	registry.Register(osm, false)

	stats := registry.Stats()

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Enabled)
	assert.Equal(t, 2, stats.Disabled)
	require.Len(t, stats.Sources, 3)
	assert.Equal(t, services.SourceInfo{Name: entities.SourceTicketmaster, Enabled: true, Configured: true}, stats.Sources[0])
	assert.Equal(t, services.SourceInfo{Name: entities.SourceEventbrite, Enabled: false, Configured: false}, stats.Sources[1])
	assert.Equal(t, services.SourceInfo{Name: entities.SourceOpenStreetMap, Enabled: false, Configured: true}, stats.Sources[2])
}

func TestSourceRegistry_RegisterReplaces(t *testing.T) {
	registry := services.NewSourceRegistry()
	registry.Register(newMockSource(entities.SourceTicketmaster), false)
	registry.Register(newMockSource(entities.SourceEventbrite), true)
	registry.Register(newMockSource(entities.SourceTicketmaster), true)

	usable := registry.Usable()
	require.Len(t, usable, 2)
	assert.Equal(t, entities.SourceTicketmaster, usable[0].Source(), "replacement keeps the original position")

	_, ok := registry.Lookup(entities.SourceOpenStreetMap)
	assert.False(t, ok)
}
