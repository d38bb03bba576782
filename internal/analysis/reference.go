package analysis

import (
	"sort"
	"strings"
)

const (
	bestLapPrefix       = "BESTLAP_"
	bestLapNumberSuffix = "_LAPNUM"
)

// RankedLap is one best-lap slot with its parsed time.
type RankedLap struct {
	Label   string  `json:"label"`
	Seconds float64 `json:"seconds"`
}

// RankedLaps is a driver's best-lap slots sorted fastest first.
type RankedLaps struct {
	VehicleNumber  int         `json:"vehicle_number"`
	FastestLabel   string      `json:"fastest_lap_label"`
	FastestSeconds float64     `json:"fastest_lap_seconds"`
	Ranked         []RankedLap `json:"ranked"`
}

// bestLapColumns enumerates the BESTLAP_<k> slot columns, skipping the
// companion _LAPNUM columns which hold lap numbers rather than times.
func bestLapColumns(t *Table) []int {
	var cols []int

	for i, name := range t.Columns {
		name = strings.TrimSpace(name)

		if strings.HasPrefix(name, bestLapPrefix) && !strings.HasSuffix(name, bestLapNumberSuffix) {
			cols = append(cols, i)
		}
	}

	return cols
}

// ResolveReferenceLaps extracts a driver's best-lap slots from the wide
// "top N laps" table, parses them and ranks them ascending. Slots with
// missing or unparseable values are dropped rather than defaulted; the
// sort is stable so tied times keep their original slot order. The table
// is never assumed to be pre-sorted.
func ResolveReferenceLaps(ref *Table, vehicle int) (*RankedLaps, error) {
	numberCol, err := ResolveColumn(ref, ExactColumn(colNumber))

	if err != nil {
		return nil, err
	}

	rows := vehicleRows(ref, numberCol, vehicle)

	if len(rows) == 0 {
		return nil, &NotFoundError{VehicleNumber: vehicle}
	}

	// The reference table is one row per vehicle; if a malformed export
	// repeats a car the first row wins.
	row := rows[0]

	var ranked []RankedLap

	for _, col := range bestLapColumns(ref) {
		seconds, ok := ParseMinSec(ref.Cell(row, col))

		if !ok {
			continue
		}

		ranked = append(ranked, RankedLap{
			Label:   strings.TrimSpace(ref.Columns[col]),
			Seconds: seconds,
		})
	}

	if len(ranked) == 0 {
		return nil, &NoValidDataError{VehicleNumber: vehicle, What: "best lap times"}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Seconds < ranked[j].Seconds
	})

	return &RankedLaps{
		VehicleNumber:  vehicle,
		FastestLabel:   ranked[0].Label,
		FastestSeconds: ranked[0].Seconds,
		Ranked:         ranked,
	}, nil
}
