package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

// defaultLookupSource serves bare ids that carry no known prefix
const defaultLookupSource = entities.SourceTicketmaster

// EventLookup resolves a single event by id against the right source
type EventLookup struct {
	registry *SourceRegistry
}

// NewEventLookup creates a new lookup resolver
func NewEventLookup(registry *SourceRegistry) *EventLookup {
	return &EventLookup{registry: registry}
}

// ResolveSource decides which source owns id and returns the provider-local id.
//
// A non-empty hint must name a known source; its prefix is stripped from id
// when present. Without a hint the id prefix decides, and ids with no known
// prefix go to Ticketmaster unchanged.
func ResolveSource(hint, id string) (entities.Source, string, error) {
	if strings.TrimSpace(hint) != "" {
		source, ok := entities.ParseSource(hint)
		if !ok {
			return "", "", apperrors.NewInvalidSourceError(hint)
		}
		return source, strings.TrimPrefix(id, source.IDPrefix()), nil
	}

	if source, localID, ok := entities.SourceFromID(id); ok {
		return source, localID, nil
	}
	return defaultLookupSource, id, nil
}

// GetByID fetches one event from the source that owns it
func (l *EventLookup) GetByID(ctx context.Context, hint, id string) (*entities.NormalizedEvent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewValidationError("event id is required")
	}

	source, localID, err := ResolveSource(hint, id)
	if err != nil {
		return nil, err
	}
	if localID == "" {
		return nil, apperrors.NewValidationError(fmt.Sprintf("event id %q has no provider id", id))
	}

	ctx, span := observability.StartSpan(ctx, "EventLookup.GetByID",
		attribute.String("event.source", string(source)),
		attribute.String("event.id", localID),
	)
	defer span.End()

	adapter, usable := l.registry.Lookup(source)
	if adapter == nil || !usable {
		err := apperrors.NewConfigurationError(fmt.Sprintf("event source %s is not configured", source))
		observability.RecordError(span, err)
		return nil, err
	}

	event, err := adapter.GetByID(ctx, localID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if event == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("event %s not found", id))
	}
	event.Source = source
	return event, nil
}
