package analysis

// Weather export column names.
const (
	colAirTemp   = "AIR_TEMP"
	colTrackTemp = "TRACK_TEMP"
	colHumidity  = "HUMIDITY"
	colWindSpeed = "WIND_SPEED"
	colRain      = "RAIN"
)

// WeatherStatus is a coarse classification of session conditions.
type WeatherStatus string

const (
	WeatherRainy WeatherStatus = "Rainy Conditions"
	WeatherWindy WeatherStatus = "Windy"
	WeatherHumid WeatherStatus = "Humid / Cloudy"
	WeatherClear WeatherStatus = "Clear & Dry"
)

type WeatherSummary struct {
	AvgAirTemp   *float64 `json:"avg_air_temp"`
	AvgTrackTemp *float64 `json:"avg_track_temp"`
	AvgHumidity  *float64 `json:"avg_humidity"`
	AvgWindSpeed *float64 `json:"avg_wind_speed"`

	RainDetected bool          `json:"rain_detected"`
	Status       WeatherStatus `json:"status"`
}

// SummarizeWeather averages the weather log's conditions over the session
// and classifies them. Rain takes priority over wind and humidity.
func SummarizeWeather(w *Table) (*WeatherSummary, error) {
	airCol, err := ResolveColumn(w, ExactColumn(colAirTemp))

	if err != nil {
		return nil, err
	}

	trackCol, err := ResolveColumn(w, ExactColumn(colTrackTemp))

	if err != nil {
		return nil, err
	}

	humidityCol, err := ResolveColumn(w, ExactColumn(colHumidity))

	if err != nil {
		return nil, err
	}

	windCol, err := ResolveColumn(w, ExactColumn(colWindSpeed))

	if err != nil {
		return nil, err
	}

	rainCol, err := ResolveColumn(w, ExactColumn(colRain))

	if err != nil {
		return nil, err
	}

	rain := false

	var air, track, humidity, wind []float64

	for row := range w.Rows {
		air = append(air, floatOrNaN(w, row, airCol))
		track = append(track, floatOrNaN(w, row, trackCol))
		humidity = append(humidity, floatOrNaN(w, row, humidityCol))
		wind = append(wind, floatOrNaN(w, row, windCol))

		if v, ok := w.Float(row, rainCol); ok && v > 0 {
			rain = true
		}
	}

	avgAir, _, _ := meanStdDev(air)
	avgTrack, _, _ := meanStdDev(track)
	avgHumidity, _, _ := meanStdDev(humidity)
	avgWind, _, _ := meanStdDev(wind)

	status := WeatherClear

	switch {
	case rain:
		status = WeatherRainy
	case valid(avgWind) && avgWind > 8:
		status = WeatherWindy
	case valid(avgHumidity) && avgHumidity > 70:
		status = WeatherHumid
	}

	return &WeatherSummary{
		AvgAirTemp:   Round2(avgAir),
		AvgTrackTemp: Round2(avgTrack),
		AvgHumidity:  Round2(avgHumidity),
		AvgWindSpeed: Round2(avgWind),
		RainDetected: rain,
		Status:       status,
	}, nil
}
