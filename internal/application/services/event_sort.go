package services

import (
	"cmp"
	"math"
	"slices"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
)

// distanceTieKm is the gap below which two distances count as equal
const distanceTieKm = 0.1

// SortEvents orders events in place: nearer first when both distances are
// known and differ by more than distanceTieKm, otherwise earlier start first.
// Unparsable start dates go last. The sort is stable.
func SortEvents(events []*entities.NormalizedEvent) {
	slices.SortStableFunc(events, compareEvents)
}

func compareEvents(a, b *entities.NormalizedEvent) int {
	if a.Distance != nil && b.Distance != nil && math.Abs(*a.Distance-*b.Distance) > distanceTieKm {
		return cmp.Compare(*a.Distance, *b.Distance)
	}

	ta, okA := entities.ParseEventTime(a.StartDate)
	tb, okB := entities.ParseEventTime(b.StartDate)
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}
