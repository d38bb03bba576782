package analysis

import (
	"errors"
	"testing"
)

func weatherTable(rows [][]string) *Table {
	return &Table{
		Columns: []string{"TIME_UTC_STR", "AIR_TEMP", "TRACK_TEMP", "HUMIDITY", "WIND_SPEED", "RAIN"},
		Rows:    rows,
	}
}

func TestSummarizeWeather(t *testing.T) {
	weatherTests := []struct {
		name     string
		rows     [][]string
		status   WeatherStatus
		rain     bool
		avgTrack float64
	}{
		{
			name: "clear and dry",
			rows: [][]string{
				{"2024-05-04 14:00:00", "21.0", "30.0", "40", "2.0", "0"},
				{"2024-05-04 14:01:00", "23.0", "34.0", "42", "3.0", "0"},
			},
			status:   WeatherClear,
			avgTrack: 32.0,
		},
		{
			name: "rain wins over wind",
			rows: [][]string{
				{"2024-05-04 14:00:00", "18.0", "20.0", "90", "12.0", "1"},
			},
			status:   WeatherRainy,
			rain:     true,
			avgTrack: 20.0,
		},
		{
			name: "windy",
			rows: [][]string{
				{"2024-05-04 14:00:00", "20.0", "28.0", "50", "9.5", "0"},
			},
			status:   WeatherWindy,
			avgTrack: 28.0,
		},
		{
			name: "humid",
			rows: [][]string{
				{"2024-05-04 14:00:00", "20.0", "28.0", "85", "2.0", "0"},
			},
			status:   WeatherHumid,
			avgTrack: 28.0,
		},
	}

	for _, test := range weatherTests {
		t.Run(test.name, func(t *testing.T) {
			summary, err := SummarizeWeather(weatherTable(test.rows))

			if err != nil {
				t.Fatal(err)
			}

			if summary.Status != test.status {
				t.Errorf("status = %s, expected %s", summary.Status, test.status)
			}

			if summary.RainDetected != test.rain {
				t.Errorf("rain detected = %v, expected %v", summary.RainDetected, test.rain)
			}

			if summary.AvgTrackTemp == nil || *summary.AvgTrackTemp != test.avgTrack {
				t.Errorf("avg track temp = %v, expected %v", summary.AvgTrackTemp, test.avgTrack)
			}
		})
	}
}

func TestSummarizeWeatherMissingColumn(t *testing.T) {
	table := &Table{
		Columns: []string{"TIME_UTC_STR", "AIR_TEMP"},
		Rows:    [][]string{{"2024-05-04 14:00:00", "21.0"}},
	}

	_, err := SummarizeWeather(table)

	var malformed *MalformedInputError

	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
}
