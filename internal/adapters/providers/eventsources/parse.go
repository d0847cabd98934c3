package eventsources

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
)

// flexFloat decodes numbers that providers send either as JSON numbers or as
// strings. Anything unparsable leaves the value unset.
type flexFloat struct {
	value float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value = v
	f.valid = true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

// flexInt is the integer counterpart of flexFloat. Integral floats such as
// "57.0" are accepted; anything else leaves the value unset.
type flexInt struct {
	value int64
	valid bool
}

func (n *flexInt) UnmarshalJSON(data []byte) error {
	*n = flexInt{}
	var f flexFloat
	if err := f.UnmarshalJSON(data); err != nil || !f.valid {
		return nil
	}

	raw := strings.Trim(string(bytes.TrimSpace(data)), `" `)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		n.value, n.valid = v, true
		return nil
	}
	if f.value == math.Trunc(f.value) && math.Abs(f.value) < 1<<53 {
		n.value, n.valid = int64(f.value), true
	}
	return nil
}

// Int returns the value, or 0 when unset
func (n flexInt) Int() int {
	if !n.valid {
		return 0
	}
	return int(n.value)
}

const (
	startOfDay = "T00:00:00"
	endOfDay   = "T23:59:59"
)

// providerDateTime renders a query date as YYYY-MM-DDThh:mm:ss. A bare date is
// expanded to the start or end of that day. ok is false when value cannot be
// parsed.
func providerDateTime(value string, isEnd bool) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if entities.IsDateOnly(value) {
		if isEnd {
			return value + endOfDay, true
		}
		return value + startOfDay, true
	}
	t, ok := entities.ParseEventTime(value)
	if !ok {
		return "", false
	}
	return t.UTC().Format("2006-01-02T15:04:05"), true
}

// isoTimestamp formats t the way JavaScript's toISOString does.
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// lookupCategory resolves a generic category through a provider table.
// Matching ignores case and surrounding whitespace.
func lookupCategory(table map[string]string, category string) (string, bool) {
	key := normalizeCategoryKey(category)
	if key == "" {
		return "", false
	}
	v, ok := table[key]
	return v, ok
}

func normalizeCategoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

func mergeCategoryTable(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[normalizeCategoryKey(k)] = v
	}
	return merged
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
