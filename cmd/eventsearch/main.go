package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zatekoja/localeventfinder/internal/adapters/providers/eventsources"
	"github.com/zatekoja/localeventfinder/internal/application/services"
	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/pkg/config"
)

func main() {
	var (
		city     string
		lat, lng float64
		radius   float64
		category string
		sources  string
		freeOnly bool
		eventID  string
		timeout  time.Duration
	)

	flag.StringVar(&city, "city", "", "City to search in")
	flag.Float64Var(&lat, "lat", 0, "Latitude (requires -lng)")
	flag.Float64Var(&lng, "lng", 0, "Longitude (requires -lat)")
	flag.Float64Var(&radius, "radius", 0, "Search radius in km")
	flag.StringVar(&category, "category", "", "Category filter")
	flag.StringVar(&sources, "sources", "", "Comma-separated sources to query")
	flag.BoolVar(&freeOnly, "free", false, "Only return free events")
	flag.StringVar(&eventID, "id", "", "Fetch a single event by prefixed id instead of searching")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall request timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	registry := services.NewSourceRegistry()
	for _, setting := range eventsources.NewSources(cfg.Sources, nil) {
		registry.Register(setting.Source, setting.Enabled)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	var out any
	if eventID != "" {
		event, err := services.NewEventLookup(registry).GetByID(ctx, "", eventID)
		if err != nil {
			log.Fatalf("Failed to fetch event %s: %v", eventID, err)
		}
		out = event
	} else {
		query := buildQuery(city, lat, lng, radius, category, sources, freeOnly, flagSet("lat"), flagSet("lng"))
		result, err := services.NewEventAggregator(registry, nil).SearchAll(ctx, query)
		if err != nil {
			log.Fatalf("Search failed: %v", err)
		}
		for _, report := range result.Sources {
			if report.Status == entities.SourceStatusFailed {
				log.Printf("Source %s failed: %s", report.Source, report.Error)
			}
		}
		out = result
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

func buildQuery(city string, lat, lng, radius float64, category, sources string, freeOnly, hasLat, hasLng bool) entities.SearchQuery {
	query := entities.SearchQuery{
		City:     city,
		Category: category,
	}
	if hasLat {
		query.Latitude = &lat
	}
	if hasLng {
		query.Longitude = &lng
	}
	if radius > 0 {
		query.RadiusKm = &radius
	}
	if freeOnly {
		query.IsFree = &freeOnly
	}
	for _, token := range strings.Split(sources, ",") {
		if token = strings.TrimSpace(token); token != "" {
			query.Sources = append(query.Sources, token)
		}
	}
	return query
}

func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
