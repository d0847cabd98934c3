package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/internal/domain/providers"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
	"github.com/zatekoja/localeventfinder/pkg/geo"
)

// primarySource reports the total used for totalResults when it succeeds
const primarySource = entities.SourceTicketmaster

// EventAggregator fans a search out to every active source and merges the results
type EventAggregator struct {
	registry *SourceRegistry
	metrics  *observability.SourceMetrics
}

// NewEventAggregator creates a new aggregator over the given registry
func NewEventAggregator(registry *SourceRegistry, metrics *observability.SourceMetrics) *EventAggregator {
	return &EventAggregator{
		registry: registry,
		metrics:  metrics,
	}
}

type sourceOutcome struct {
	page *entities.SourcePage
	err  error
}

// SearchAll queries every active source concurrently. A failing source
// contributes no events and a failed report; it never fails the request.
func (a *EventAggregator) SearchAll(ctx context.Context, query entities.SearchQuery) (*entities.SearchResult, error) {
	if err := ValidateSearchQuery(query); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "EventAggregator.SearchAll",
		attribute.Bool("query.has_coordinates", query.HasCoordinates()),
		attribute.String("query.city", query.TrimmedCity()),
		attribute.String("query.category", query.Category),
	)
	defer span.End()

	active, reports := a.selectSources(query)
	if len(active) == 0 {
		err := apperrors.NewConfigurationError("no event source is configured for this query")
		observability.RecordError(span, err)
		return nil, err
	}

	outcomes := a.fanOut(ctx, active, query)
	logger := observability.LoggerFromContext(ctx)

	var (
		merged       []*entities.NormalizedEvent
		primaryTotal = -1
	)
	for i, source := range active {
		name := source.Source()
		report := entities.SourceReport{Source: name, Status: entities.SourceStatusOK}
		outcome := outcomes[i]

		if outcome.err != nil {
			logger.Warn().Err(outcome.err).Str("source", string(name)).Msg("event source search failed")
			report.Status = entities.SourceStatusFailed
			report.Error = reportMessage(outcome.err)
			reports = append(reports, report)
			continue
		}

		for _, event := range outcome.page.Events {
			if event == nil {
				continue
			}
			event.Source = name
			merged = append(merged, event)
			report.Count++
		}
		if name == primarySource {
			primaryTotal = outcome.page.TotalResults
		}
		a.metrics.AddEvents(string(name), report.Count)
		reports = append(reports, report)
	}

	if query.HasCoordinates() {
		applyDistances(merged, geo.Point{Latitude: *query.Latitude, Longitude: *query.Longitude})
	}
	if query.IsFree != nil {
		merged = slices.DeleteFunc(merged, func(e *entities.NormalizedEvent) bool {
			return e.IsFree != *query.IsFree
		})
	}

	events := DeduplicateEvents(merged)
	a.metrics.AddDuplicates(len(merged) - len(events))
	SortEvents(events)

	total := len(events)
	if primaryTotal >= 0 {
		total = primaryTotal
	}

	span.SetAttributes(
		attribute.Int("result.events", len(events)),
		attribute.Int("result.total", total),
	)

	return &entities.SearchResult{
		Events:       events,
		TotalResults: total,
		Sources:      a.orderReports(reports),
	}, nil
}

// Nearby runs a coordinate search around a point
func (a *EventAggregator) Nearby(ctx context.Context, query entities.NearbyQuery) (*entities.SearchResult, error) {
	return a.SearchAll(ctx, query.ToSearchQuery())
}

// selectSources returns the sources this query should reach plus reports for
// the registered sources that were skipped.
func (a *EventAggregator) selectSources(query entities.SearchQuery) ([]providers.EventSource, []entities.SourceReport) {
	include := parseSourceSet(query.Sources)
	exclude := parseSourceSet(query.ExcludeSources)

	var (
		active  []providers.EventSource
		reports []entities.SourceReport
	)
	for _, entry := range a.registry.entries {
		name := entry.source.Source()
		switch {
		case len(include) > 0 && !include[name], exclude[name]:
			reports = append(reports, entities.SourceReport{Source: name, Status: entities.SourceStatusExcluded})
		case !entry.usable():
			reports = append(reports, entities.SourceReport{Source: name, Status: entities.SourceStatusDisabled})
		default:
			active = append(active, entry.source)
		}
	}
	return active, reports
}

func (a *EventAggregator) fanOut(ctx context.Context, active []providers.EventSource, query entities.SearchQuery) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(active))

	// Workers never return an error so one failure cannot cancel its siblings.
	var g errgroup.Group
	for i, source := range active {
		g.Go(func() error {
			outcomes[i] = searchSource(ctx, source, query)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func searchSource(ctx context.Context, source providers.EventSource, query entities.SearchQuery) (outcome sourceOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = sourceOutcome{err: apperrors.NewInternalError(fmt.Sprintf("%s search panicked: %v", source.Source(), r), nil)}
		}
	}()

	page, err := source.Search(ctx, query)
	if err != nil {
		return sourceOutcome{err: err}
	}
	if page == nil {
		page = &entities.SourcePage{}
	}
	return sourceOutcome{page: page}
}

// reportMessage is the client-facing text for a failed source. Only the
// AppError message is exposed; wrapped causes stay in the logs.
func reportMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "event source search failed"
}

func applyDistances(events []*entities.NormalizedEvent, origin geo.Point) {
	for _, event := range events {
		loc := event.Venue.Location
		if loc == nil {
			continue
		}
		d := geo.Haversine(origin, geo.Point{Latitude: loc.Lat, Longitude: loc.Lng})
		event.Distance = &d
	}
}

func parseSourceSet(tokens []string) map[entities.Source]bool {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[entities.Source]bool, len(tokens))
	for _, token := range tokens {
		if source, ok := entities.ParseSource(token); ok {
			set[source] = true
		}
	}
	return set
}

// orderReports sorts reports into registry order
func (a *EventAggregator) orderReports(reports []entities.SourceReport) []entities.SourceReport {
	position := make(map[entities.Source]int, len(a.registry.entries))
	for i, entry := range a.registry.entries {
		position[entry.source.Source()] = i
	}
	slices.SortStableFunc(reports, func(x, y entities.SourceReport) int {
		return cmp.Compare(position[x.Source], position[y.Source])
	})
	return reports
}
