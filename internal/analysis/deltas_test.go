package analysis

import (
	"errors"
	"math"
	"testing"
)

func sectorTable(rows [][]string) *Table {
	return &Table{
		Columns: []string{"NUMBER", "LAP_NUMBER", "LAP_TIME", "S1_SECONDS", "S2_SECONDS", "S3_SECONDS"},
		Rows:    rows,
	}
}

func approxEqual(a *float64, b float64) bool {
	return a != nil && math.Abs(*a-b) < 1e-6
}

func TestComputeDeltas(t *testing.T) {
	table := sectorTable([][]string{
		{"2", "1", "1:45.800", "30.1", "40.2", "35.5"},
		{"2", "2", "1:44.800", "29.8", "40.0", "35.0"},
		{"5", "1", "1:43.800", "29.5", "39.5", "34.8"},
	})

	result, err := ComputeDeltas(table, 2)

	if err != nil {
		t.Fatal(err)
	}

	if !approxEqual(result.PersonalBests.S1, 29.8) || !approxEqual(result.PersonalBests.S2, 40.0) || !approxEqual(result.PersonalBests.S3, 35.0) {
		t.Errorf("unexpected personal bests: %+v", result.PersonalBests)
	}

	if !approxEqual(result.OptimalLap, 104.8) {
		t.Errorf("optimal lap = %v, expected 104.8", result.OptimalLap)
	}

	if !approxEqual(result.SessionBests.S1, 29.5) || !approxEqual(result.SessionBests.S2, 39.5) || !approxEqual(result.SessionBests.S3, 34.8) {
		t.Errorf("unexpected session bests: %+v", result.SessionBests)
	}

	if len(result.Deltas) != 2 {
		t.Fatalf("expected 2 delta records, got %d", len(result.Deltas))
	}

	lap2 := result.Deltas[1]

	if lap2.Lap != 2 {
		t.Errorf("deltas not ordered by lap number: %+v", result.Deltas)
	}

	if !approxEqual(lap2.DeltaS1Session, 0.3) {
		t.Errorf("lap 2 S1 session delta = %v, expected 0.3", lap2.DeltaS1Session)
	}

	if !approxEqual(lap2.DeltaS1Personal, 0) {
		t.Errorf("lap 2 S1 personal delta = %v, expected 0", lap2.DeltaS1Personal)
	}
}

func TestComputeDeltasPersonalBestNotAboveAnyLap(t *testing.T) {
	table := sectorTable([][]string{
		{"7", "1", "1:41.2", "31.5", "36.2", "33.6"},
		{"7", "2", "1:40.1", "31.1", "35.9", "33.2"},
		{"7", "3", "1:42.9", "32.0", "36.8", "34.0"},
	})

	result, err := ComputeDeltas(table, 7)

	if err != nil {
		t.Fatal(err)
	}

	for _, record := range result.Deltas {
		for _, delta := range []*float64{record.DeltaS1Personal, record.DeltaS2Personal, record.DeltaS3Personal, record.DeltaLapPersonal} {
			if delta != nil && *delta < 0 {
				t.Errorf("personal delta below zero: %v (lap %d)", *delta, record.Lap)
			}
		}
	}

	// The optimal lap is assembled from the driver's best sectors, so no
	// real lap can beat it.
	for _, record := range result.Deltas {
		if record.LapTime != nil && result.OptimalLap != nil && *record.LapTime < *result.OptimalLap {
			t.Errorf("optimal lap %v slower than real lap %v", *result.OptimalLap, *record.LapTime)
		}
	}
}

func TestComputeDeltasNotFound(t *testing.T) {
	table := sectorTable([][]string{
		{"2", "1", "1:45.800", "30.1", "40.2", "35.5"},
	})

	_, err := ComputeDeltas(table, 99)

	var notFound *NotFoundError

	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	if notFound.VehicleNumber != 99 {
		t.Errorf("error names vehicle %d, expected 99", notFound.VehicleNumber)
	}
}

func TestComputeDeltasStringVehicleNumbers(t *testing.T) {
	// Some exports store the car number as text; the filter falls back to
	// string comparison before declaring not-found.
	table := sectorTable([][]string{
		{"#4", "1", "1:45.800", "30.1", "40.2", "35.5"},
		{"4", "1", "1:44.100", "29.9", "39.8", "34.9"},
	})

	result, err := ComputeDeltas(table, 4)

	if err != nil {
		t.Fatal(err)
	}

	if len(result.Deltas) != 1 {
		t.Fatalf("expected 1 delta record, got %d", len(result.Deltas))
	}
}

func TestComputeDeltasMissingSectorPropagatesNil(t *testing.T) {
	table := sectorTable([][]string{
		{"3", "1", "1:45.0", "30.0", "", "35.0"},
		{"3", "2", "1:44.0", "29.5", "", "34.5"},
	})

	result, err := ComputeDeltas(table, 3)

	if err != nil {
		t.Fatal(err)
	}

	if result.PersonalBests.S2 != nil {
		t.Errorf("S2 best should be nil with no valid values, got %v", *result.PersonalBests.S2)
	}

	if result.OptimalLap != nil {
		t.Errorf("optimal lap should be nil when a sector best is missing, got %v", *result.OptimalLap)
	}

	for _, record := range result.Deltas {
		if record.DeltaS2Personal != nil || record.DeltaS2Session != nil {
			t.Errorf("S2 deltas should be nil, got %+v", record)
		}

		if record.DeltaS1Personal == nil || record.DeltaS3Personal == nil {
			t.Errorf("other sectors should still be computed: %+v", record)
		}
	}
}

func TestConsistencyScore(t *testing.T) {
	consistencyTests := []struct {
		name     string
		rows     [][]string
		expected *float64
		exact    float64
	}{
		{
			name: "identical laps score 100",
			rows: [][]string{
				{"9", "1", "100.0", "30", "35", "35"},
				{"9", "2", "100.0", "30", "35", "35"},
				{"9", "3", "100.0", "30", "35", "35"},
			},
			exact: 100,
		},
		{
			name: "single lap has no score",
			rows: [][]string{
				{"9", "1", "100.0", "30", "35", "35"},
			},
		},
		{
			name: "unparseable lap times have no score",
			rows: [][]string{
				{"9", "1", "garbage", "30", "35", "35"},
				{"9", "2", "nonsense", "30", "35", "35"},
			},
		},
	}

	for _, test := range consistencyTests {
		t.Run(test.name, func(t *testing.T) {
			result, err := ComputeDeltas(sectorTable(test.rows), 9)

			if err != nil {
				t.Fatal(err)
			}

			if test.exact != 0 {
				if !approxEqual(result.ConsistencyScore, test.exact) {
					t.Errorf("consistency score = %v, expected %v", result.ConsistencyScore, test.exact)
				}
			} else if result.ConsistencyScore != nil {
				t.Errorf("consistency score should be nil, got %v", *result.ConsistencyScore)
			}
		})
	}
}

func TestConsistencyScoreBounds(t *testing.T) {
	table := sectorTable([][]string{
		{"9", "1", "10.0", "3", "3", "4"},
		{"9", "2", "200.0", "60", "70", "70"},
		{"9", "3", "10.0", "3", "3", "4"},
		{"9", "4", "350.0", "110", "120", "120"},
	})

	result, err := ComputeDeltas(table, 9)

	if err != nil {
		t.Fatal(err)
	}

	if result.ConsistencyScore == nil {
		t.Fatal("expected a consistency score")
	}

	if *result.ConsistencyScore < 0 || *result.ConsistencyScore > 100 {
		t.Errorf("consistency score out of bounds: %v", *result.ConsistencyScore)
	}
}

func TestComputeDeltasMissingColumn(t *testing.T) {
	table := &Table{
		Columns: []string{"NUMBER", "LAP_NUMBER", "LAP_TIME"},
		Rows:    [][]string{{"2", "1", "1:45.800"}},
	}

	_, err := ComputeDeltas(table, 2)

	var malformed *MalformedInputError

	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
}
