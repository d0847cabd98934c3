package providers

import (
	"context"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
)

// EventSource defines the interface for an external event-listing provider
type EventSource interface {
	// Source returns the provider this adapter talks to
	Source() entities.Source

	// Configured reports whether the credentials the provider needs are present
	Configured() bool

	// Search runs one provider search and returns normalized events
	Search(ctx context.Context, query entities.SearchQuery) (*entities.SourcePage, error)

	// GetByID fetches a single event; id is the provider id without the source prefix
	GetByID(ctx context.Context, id string) (*entities.NormalizedEvent, error)
}

// CategoryLister is implemented by sources that can list their event taxonomy
type CategoryLister interface {
	Categories(ctx context.Context) ([]entities.Category, error)
}
