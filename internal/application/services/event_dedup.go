package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
)

// DeduplicateEvents collapses events that share a dedup key. Within a group
// the event with the highest information score is kept; ties keep the first
// one seen. The survivor takes the position of the group's first occurrence.
func DeduplicateEvents(events []*entities.NormalizedEvent) []*entities.NormalizedEvent {
	folder := cases.Lower(language.Und)
	positions := make(map[string]int, len(events))
	unique := make([]*entities.NormalizedEvent, 0, len(events))

	for _, event := range events {
		if event == nil {
			continue
		}
		key := dedupKey(folder, event)
		if idx, seen := positions[key]; seen {
			if event.InformationScore() > unique[idx].InformationScore() {
				unique[idx] = event
			}
			continue
		}
		positions[key] = len(unique)
		unique = append(unique, event)
	}
	return unique
}

// dedupKey is lower(trim(title)) + "-" + first10(startDate) + "-" + lower(city + "-" + venue).
func dedupKey(folder cases.Caser, event *entities.NormalizedEvent) string {
	fold := func(s string) string {
		return folder.String(norm.NFC.String(s))
	}

	var b strings.Builder
	b.WriteString(fold(strings.TrimSpace(event.Title)))
	b.WriteByte('-')
	b.WriteString(datePrefix(event.StartDate))
	b.WriteByte('-')
	b.WriteString(fold(event.Venue.City + "-" + event.Venue.Name))
	return b.String()
}

func datePrefix(startDate string) string {
	if len(startDate) <= 10 {
		return startDate
	}
	return startDate[:10]
}
