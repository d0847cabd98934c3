package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
)

// Mocks

type MockEventSource struct {
	mock.Mock
	name       entities.Source
	configured bool
}

func newMockSource(name entities.Source) *MockEventSource {
	return &MockEventSource{name: name, configured: true}
}

func (m *MockEventSource) Source() entities.Source {
	return m.name
}

func (m *MockEventSource) Configured() bool {
	return m.configured
}

func (m *MockEventSource) Search(ctx context.Context, query entities.SearchQuery) (*entities.SourcePage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SourcePage), args.Error(1)
}

func (m *MockEventSource) GetByID(ctx context.Context, id string) (*entities.NormalizedEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.NormalizedEvent), args.Error(1)
}

type MockCategorySource struct {
	MockEventSource
}

func newMockCategorySource(name entities.Source) *MockCategorySource {
	return &MockCategorySource{MockEventSource: MockEventSource{name: name, configured: true}}
}

func (m *MockCategorySource) Categories(ctx context.Context) ([]entities.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Category), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Fixtures

func floatPtr(v float64) *float64 {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func testEvent(id, title, startDate, city, venue string) *entities.NormalizedEvent {
	return &entities.NormalizedEvent{
		ID:        id,
		Title:     title,
		StartDate: startDate,
		URL:       "https://example.com/" + id,
		Venue:     entities.Venue{Name: venue, City: city},
	}
}

func locatedEvent(id, startDate string, lat, lon float64) *entities.NormalizedEvent {
	event := testEvent(id, id, startDate, "Austin", id+" hall")
	event.Venue = entities.NewVenue(id+" hall", "", "Austin", "TX", floatPtr(lat), floatPtr(lon))
	return event
}
