package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localeventfinder/internal/application/services"
	"github.com/zatekoja/localeventfinder/internal/domain/entities"
)

func eventIDs(events []*entities.NormalizedEvent) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestDeduplicateEvents_RicherDuplicateWins(t *testing.T) {
	sparse := testEvent("tm-1", "Jazz Night ", "2024-06-01T20:00:00", "Austin", "Blue Bar")
	other := testEvent("tm-2", "Poetry Slam", "2024-06-01T19:00:00", "Austin", "Library")
	rich := testEvent("eb-1", "jazz night", "2024-06-01T21:30:00", "AUSTIN", "blue bar")
	rich.Description = "Live trio"
	rich.ImageURL = "https://img.example.com/jazz.png"

	unique := services.DeduplicateEvents([]*entities.NormalizedEvent{sparse, other, rich})

	require.Len(t, unique, 2)
	assert.Equal(t, []string{"eb-1", "tm-2"}, eventIDs(unique), "survivor keeps the first occurrence position")
}

func TestDeduplicateEvents_TieKeepsFirst(t *testing.T) {
	first := testEvent("tm-1", "Farmers Market", "2024-06-01", "Austin", "Plaza")
	second := testEvent("eb-1", "farmers market", "2024-06-01T08:00:00", "austin", "plaza")

	unique := services.DeduplicateEvents([]*entities.NormalizedEvent{first, second})

	require.Len(t, unique, 1)
	assert.Equal(t, "tm-1", unique[0].ID)
}

func TestDeduplicateEvents_DifferentDayIsDistinct(t *testing.T) {
	a := testEvent("tm-1", "Jazz Night", "2024-06-01T20:00:00", "Austin", "Blue Bar")
	b := testEvent("tm-2", "Jazz Night", "2024-06-02T20:00:00", "Austin", "Blue Bar")

	assert.Len(t, services.DeduplicateEvents([]*entities.NormalizedEvent{a, b}), 2)
}

func TestDeduplicateEvents_Idempotent(t *testing.T) {
	events := []*entities.NormalizedEvent{
		testEvent("tm-1", "Jazz Night ", "2024-06-01T20:00:00", "Austin", "Blue Bar"),
		testEvent("eb-1", "jazz night", "2024-06-01T20:00:00", "Austin", "Blue Bar"),
		testEvent("osm-node-1", "Zilker Park", "2024-06-01T00:00:00", "Austin", "Zilker Park"),
	}

	once := services.DeduplicateEvents(events)
	twice := services.DeduplicateEvents(once)

	assert.Equal(t, eventIDs(once), eventIDs(twice))
}

func TestDeduplicateEvents_Empty(t *testing.T) {
	assert.Empty(t, services.DeduplicateEvents(nil))
}

func TestSortEvents_NearDistancesTieOnDate(t *testing.T) {
	a := testEvent("a", "A", "2024-06-01T10:00:00", "Austin", "A")
	a.Distance = floatPtr(5.05)
	b := testEvent("b", "B", "2024-06-02T10:00:00", "Austin", "B")
	b.Distance = floatPtr(5.1)
	c := testEvent("c", "C", "2024-06-03T10:00:00", "Austin", "C")
	c.Distance = floatPtr(2.0)

	events := []*entities.NormalizedEvent{a, b, c}
	services.SortEvents(events)

	assert.Equal(t, []string{"c", "a", "b"}, eventIDs(events))
}

func TestSortEvents_DateOrderWithoutDistance(t *testing.T) {
	late := testEvent("late", "Late", "2024-06-03", "Austin", "X")
	broken := testEvent("broken", "Broken", "next tuesday", "Austin", "X")
	early := testEvent("early", "Early", "2024-06-01T09:00:00Z", "Austin", "X")
	mid := testEvent("mid", "Mid", "2024-06-02T09:00:00", "Austin", "X")

	events := []*entities.NormalizedEvent{late, broken, early, mid}
	services.SortEvents(events)

	assert.Equal(t, []string{"early", "mid", "late", "broken"}, eventIDs(events))
}

func TestSortEvents_MixedDistanceFallsBackToDate(t *testing.T) {
	located := testEvent("located", "Located", "2024-06-02T10:00:00", "Austin", "X")
	located.Distance = floatPtr(1.0)
	unlocated := testEvent("unlocated", "Unlocated", "2024-06-01T10:00:00", "Austin", "Y")

	events := []*entities.NormalizedEvent{located, unlocated}
	services.SortEvents(events)

	assert.Equal(t, []string{"unlocated", "located"}, eventIDs(events))
}
