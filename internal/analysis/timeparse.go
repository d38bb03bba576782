package analysis

import (
	"math"
	"strconv"
	"strings"
)

// ParseTime converts a lap or sector time into seconds. It accepts plain
// seconds ("55.123"), minutes ("1:25.342") and hours ("1:02:08.5"), with
// the hour and minute parts read as integers and the final part as a float.
//
// Timing exports are user supplied and frequently messy, so this never
// returns an error: anything it cannot make sense of comes back as not-ok
// and the caller excludes the value from its aggregates.
func ParseTime(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return 0, false
	}

	parts := strings.Split(raw, ":")

	switch len(parts) {
	case 1:
		return parseSecondsPart(parts[0])
	case 2:
		m, err := strconv.Atoi(strings.TrimSpace(parts[0]))

		if err != nil {
			return 0, false
		}

		s, ok := parseSecondsPart(parts[1])

		if !ok {
			return 0, false
		}

		return float64(m)*60 + s, true
	case 3:
		h, err := strconv.Atoi(strings.TrimSpace(parts[0]))

		if err != nil {
			return 0, false
		}

		m, err := strconv.Atoi(strings.TrimSpace(parts[1]))

		if err != nil {
			return 0, false
		}

		s, ok := parseSecondsPart(parts[2])

		if !ok {
			return 0, false
		}

		return float64(h)*3600 + float64(m)*60 + s, true
	default:
		return 0, false
	}
}

// ParseMinSec converts the "M:SS.mmm" form used by best-lap slot columns.
// Unlike ParseTime it only accepts the two-part shape, with plain numeric
// values passed through unchanged.
func ParseMinSec(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return 0, false
	}

	if !strings.Contains(raw, ":") {
		return parseSecondsPart(raw)
	}

	parts := strings.SplitN(raw, ":", 2)

	m, err := strconv.Atoi(strings.TrimSpace(parts[0]))

	if err != nil {
		return 0, false
	}

	s, ok := parseSecondsPart(parts[1])

	if !ok {
		return 0, false
	}

	return float64(m)*60 + s, true
}

func parseSecondsPart(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)

	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}
