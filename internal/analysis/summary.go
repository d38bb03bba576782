package analysis

import "sort"

// PositionSummary ranks a driver's personal best within the session.
type PositionSummary struct {
	VehicleNumber int `json:"vehicle_number"`

	PersonalBest   float64 `json:"personal_best"`
	SessionFastest float64 `json:"session_fastest"`

	// DriverPosition is the 1-based index of the driver's personal best in
	// the ascending list of every vehicle's personal best. Tied times are
	// not collapsed into a shared rank; the first occurrence of the
	// driver's time decides the position.
	DriverPosition int `json:"driver_position"`

	// GapToFastest is personal best minus session fastest: zero when the
	// driver holds the fastest lap, positive otherwise.
	GapToFastest float64 `json:"gap_to_fastest"`

	NumDrivers int `json:"num_drivers"`
}

// AggregatePosition computes the driver's session position and gap to the
// fastest lap from the wide best-lap table. A vehicle's personal best is
// the minimum across all of its best-lap slots, not just the first one, so
// drivers whose quickest time landed in a later slot are ranked correctly.
func AggregatePosition(ref *Table, vehicle int) (*PositionSummary, error) {
	numberCol, err := ResolveColumn(ref, ExactColumn(colNumber))

	if err != nil {
		return nil, err
	}

	slotCols := bestLapColumns(ref)

	driverRowSet := make(map[int]bool)

	for _, row := range vehicleRows(ref, numberCol, vehicle) {
		driverRowSet[row] = true
	}

	if len(driverRowSet) == 0 {
		return nil, &NotFoundError{VehicleNumber: vehicle}
	}

	numDrivers := countDistinct(ref, numberCol)

	personalBest := nan()

	var vehicleBests []float64

	for row := range ref.Rows {
		var rowTimes []float64

		for _, col := range slotCols {
			if seconds, ok := ParseMinSec(ref.Cell(row, col)); ok {
				rowTimes = append(rowTimes, seconds)
			}
		}

		best := nanMin(rowTimes)

		if !valid(best) {
			continue
		}

		vehicleBests = append(vehicleBests, best)

		if driverRowSet[row] && (!valid(personalBest) || best < personalBest) {
			personalBest = best
		}
	}

	if !valid(personalBest) {
		return nil, &NoValidDataError{VehicleNumber: vehicle, What: "lap times"}
	}

	sessionFastest := nanMin(vehicleBests)

	sort.Float64s(vehicleBests)

	position := len(vehicleBests)

	for i, t := range vehicleBests {
		if t == personalBest {
			position = i + 1
			break
		}
	}

	return &PositionSummary{
		VehicleNumber:  vehicle,
		PersonalBest:   personalBest,
		SessionFastest: sessionFastest,
		DriverPosition: position,
		GapToFastest:   personalBest - sessionFastest,
		NumDrivers:     numDrivers,
	}, nil
}

func countDistinct(t *Table, col int) int {
	seen := make(map[string]bool)

	for row := range t.Rows {
		if cell := t.Cell(row, col); cell != "" {
			seen[cell] = true
		}
	}

	return len(seen)
}
