package analysis

import (
	"sort"
	"strconv"
)

// Column names used by timing system sector exports.
const (
	colNumber    = "NUMBER"
	colLapNumber = "LAP_NUMBER"
	colLapTime   = "LAP_TIME"
	colSector1   = "S1_SECONDS"
	colSector2   = "S2_SECONDS"
	colSector3   = "S3_SECONDS"
)

// SectorBests holds a best time per sector plus the best full lap, in
// seconds. Fields are nil when no valid value exists for that measure.
type SectorBests struct {
	S1  *float64 `json:"s1"`
	S2  *float64 `json:"s2"`
	S3  *float64 `json:"s3"`
	Lap *float64 `json:"lap"`
}

// DeltaRecord is one of the driver's laps with its gap to their personal
// bests and to the session bests, computed independently per measure so a
// missing sector only blanks its own deltas.
type DeltaRecord struct {
	Lap int `json:"lap"`

	S1      *float64 `json:"s1"`
	S2      *float64 `json:"s2"`
	S3      *float64 `json:"s3"`
	LapTime *float64 `json:"lap_time"`

	DeltaS1Personal  *float64 `json:"delta_s1_personal"`
	DeltaS2Personal  *float64 `json:"delta_s2_personal"`
	DeltaS3Personal  *float64 `json:"delta_s3_personal"`
	DeltaLapPersonal *float64 `json:"delta_lap_personal"`

	DeltaS1Session  *float64 `json:"delta_s1_session"`
	DeltaS2Session  *float64 `json:"delta_s2_session"`
	DeltaS3Session  *float64 `json:"delta_s3_session"`
	DeltaLapSession *float64 `json:"delta_lap_session"`
}

// GapToLeader is the driver's personal bests measured against the session
// bests, including the theoretical optimal lap.
type GapToLeader struct {
	S1         *float64 `json:"s1"`
	S2         *float64 `json:"s2"`
	S3         *float64 `json:"s3"`
	Lap        *float64 `json:"lap"`
	OptimalLap *float64 `json:"optimal_lap"`
}

type DeltaResult struct {
	VehicleNumber int `json:"vehicle_number"`

	PersonalBests SectorBests `json:"personal_bests"`
	SessionBests  SectorBests `json:"session_bests"`

	// OptimalLap is the sum of the driver's own three best sector times, a
	// theoretical lap never necessarily driven in one pass.
	OptimalLap *float64 `json:"optimal_lap"`

	// ConsistencyScore is 100 minus the lap time coefficient of variation
	// as a percentage, clamped to [0, 100]. Nil with fewer than two valid
	// laps.
	ConsistencyScore *float64 `json:"consistency_score"`

	GapToLeader GapToLeader `json:"gap_to_leader"`

	Deltas []DeltaRecord `json:"deltas"`
}

type sectorColumns struct {
	number, lapNumber, lapTime, s1, s2, s3 int
}

func resolveSectorColumns(t *Table) (sectorColumns, error) {
	var cols sectorColumns
	var err error

	if cols.number, err = ResolveColumn(t, ExactColumn(colNumber)); err != nil {
		return cols, err
	}

	if cols.lapNumber, err = ResolveColumn(t, ExactColumn(colLapNumber)); err != nil {
		return cols, err
	}

	if cols.lapTime, err = ResolveColumn(t, ExactColumn(colLapTime)); err != nil {
		return cols, err
	}

	if cols.s1, err = ResolveColumn(t, ExactColumn(colSector1)); err != nil {
		return cols, err
	}

	if cols.s2, err = ResolveColumn(t, ExactColumn(colSector2)); err != nil {
		return cols, err
	}

	if cols.s3, err = ResolveColumn(t, ExactColumn(colSector3)); err != nil {
		return cols, err
	}

	return cols, nil
}

// vehicleRows returns the indices of rows belonging to the given vehicle.
// The comparison is numeric first; if that matches nothing the cells are
// compared as strings, since some exports store car numbers as text.
func vehicleRows(t *Table, numberCol, vehicle int) []int {
	var rows []int

	target := float64(vehicle)

	for i := range t.Rows {
		if v, ok := t.Float(i, numberCol); ok && v == target {
			rows = append(rows, i)
		}
	}

	if len(rows) > 0 {
		return rows
	}

	text := strconv.Itoa(vehicle)

	for i := range t.Rows {
		if t.Cell(i, numberCol) == text {
			rows = append(rows, i)
		}
	}

	return rows
}

// ComputeDeltas derives lap and sector performance for one vehicle: its
// personal bests, the session bests across every vehicle in the table, the
// optimal lap, per-lap deltas against both references and a consistency
// score.
func ComputeDeltas(session *Table, vehicle int) (*DeltaResult, error) {
	cols, err := resolveSectorColumns(session)

	if err != nil {
		return nil, err
	}

	driverRows := vehicleRows(session, cols.number, vehicle)

	if len(driverRows) == 0 {
		return nil, &NotFoundError{VehicleNumber: vehicle}
	}

	allRows := make([]int, len(session.Rows))

	for i := range session.Rows {
		allRows[i] = i
	}

	personal := bestTimes(session, cols, driverRows)
	sessionBest := bestTimes(session, cols, allRows)

	optimal := personal.s1 + personal.s2 + personal.s3

	result := &DeltaResult{
		VehicleNumber: vehicle,
		PersonalBests: personal.rounded(),
		SessionBests:  sessionBest.rounded(),
		OptimalLap:    Round3(optimal),
		GapToLeader: GapToLeader{
			S1:         Round3(personal.s1 - sessionBest.s1),
			S2:         Round3(personal.s2 - sessionBest.s2),
			S3:         Round3(personal.s3 - sessionBest.s3),
			Lap:        Round3(personal.lap - sessionBest.lap),
			OptimalLap: Round3(optimal - sessionBest.lap),
		},
	}

	var lapTimes []float64

	for _, row := range driverRows {
		lap := 0

		if v, err := strconv.Atoi(session.Cell(row, cols.lapNumber)); err == nil {
			lap = v
		}

		s1 := floatOrNaN(session, row, cols.s1)
		s2 := floatOrNaN(session, row, cols.s2)
		s3 := floatOrNaN(session, row, cols.s3)
		lapTime := timeOrNaN(session, row, cols.lapTime)

		lapTimes = append(lapTimes, lapTime)

		result.Deltas = append(result.Deltas, DeltaRecord{
			Lap:     lap,
			S1:      Round3(s1),
			S2:      Round3(s2),
			S3:      Round3(s3),
			LapTime: Round3(lapTime),

			DeltaS1Personal:  Round3(s1 - personal.s1),
			DeltaS2Personal:  Round3(s2 - personal.s2),
			DeltaS3Personal:  Round3(s3 - personal.s3),
			DeltaLapPersonal: Round3(lapTime - personal.lap),

			DeltaS1Session:  Round3(s1 - sessionBest.s1),
			DeltaS2Session:  Round3(s2 - sessionBest.s2),
			DeltaS3Session:  Round3(s3 - sessionBest.s3),
			DeltaLapSession: Round3(lapTime - sessionBest.lap),
		})
	}

	sort.SliceStable(result.Deltas, func(i, j int) bool {
		return result.Deltas[i].Lap < result.Deltas[j].Lap
	})

	result.ConsistencyScore = consistencyScore(lapTimes)

	return result, nil
}

type rawBests struct {
	s1, s2, s3, lap float64
}

func (b rawBests) rounded() SectorBests {
	return SectorBests{
		S1:  Round3(b.s1),
		S2:  Round3(b.s2),
		S3:  Round3(b.s3),
		Lap: Round3(b.lap),
	}
}

func bestTimes(t *Table, cols sectorColumns, rows []int) rawBests {
	s1 := make([]float64, 0, len(rows))
	s2 := make([]float64, 0, len(rows))
	s3 := make([]float64, 0, len(rows))
	laps := make([]float64, 0, len(rows))

	for _, row := range rows {
		s1 = append(s1, floatOrNaN(t, row, cols.s1))
		s2 = append(s2, floatOrNaN(t, row, cols.s2))
		s3 = append(s3, floatOrNaN(t, row, cols.s3))
		laps = append(laps, timeOrNaN(t, row, cols.lapTime))
	}

	return rawBests{
		s1:  nanMin(s1),
		s2:  nanMin(s2),
		s3:  nanMin(s3),
		lap: nanMin(laps),
	}
}

func floatOrNaN(t *Table, row, col int) float64 {
	if v, ok := t.Float(row, col); ok {
		return v
	}

	return nan()
}

func timeOrNaN(t *Table, row, col int) float64 {
	if v, ok := ParseTime(t.Cell(row, col)); ok {
		return v
	}

	return nan()
}

// consistencyScore maps the coefficient of variation of the driver's lap
// times onto [0, 100]. Identical laps score 100; variation above 100% of
// the mean clamps to 0. Needs at least two valid laps, otherwise nil.
func consistencyScore(lapTimes []float64) *float64 {
	mean, stddev, n := meanStdDev(lapTimes)

	if n < 2 || !valid(mean) || mean == 0 {
		return nil
	}

	cv := stddev / mean

	return Round2(clamp(100-cv*100, 0, 100))
}
