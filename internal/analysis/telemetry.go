package analysis

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	colTimestamp      = "timestamp"
	colVehicleNumber  = "vehicle_number"
	colTelemetryName  = "telemetry_name"
	colTelemetryValue = "telemetry_value"

	// DefaultSteeringChannel is the logger channel holding the steering
	// wheel angle in degrees.
	DefaultSteeringChannel = "steering_angle"

	// maxSampleGap is the largest gap between consecutive samples that
	// still counts as continuous data. Larger gaps mark session breaks
	// and produce no rate, protecting against spurious huge derivatives.
	maxSampleGap = 500 * time.Millisecond

	// smoothnessSensitivity controls how quickly rate variability decays
	// the smoothness score.
	smoothnessSensitivity = 20.0

	// microCorrectionThreshold is the rate magnitude (deg/s) below which a
	// steering direction reversal counts as a correction rather than a
	// deliberate input.
	microCorrectionThreshold = 5.0
)

// timestampLayouts are tried in order when parsing telemetry timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"15:04:05.999999999",
}

// TelemetrySample is one cleaned signal sample for the requested vehicle.
// Value is NaN when the cell could not be parsed.
type TelemetrySample struct {
	Timestamp time.Time
	Channel   string
	Value     float64
}

type SteeringUsage struct {
	MaxAbsAngle     *float64 `json:"max_abs_angle"`
	AvgAbsAngle     *float64 `json:"avg_abs_angle"`
	StdSteeringRate *float64 `json:"std_steering_rate"`
}

type TelemetryFeatures struct {
	VehicleNumber int `json:"vehicle_number"`

	// SteeringSmoothnessScore decays exponentially with the variability
	// of the steering rate: 100 at zero variability, approaching 0 as it
	// grows. Nil when too few valid rate samples exist.
	SteeringSmoothnessScore *float64 `json:"steering_smoothness_score"`

	MicroCorrectionsPerMinute float64 `json:"micro_corrections_per_minute"`

	SteeringUsage SteeringUsage `json:"steering_usage"`
}

// ChannelSummary describes one telemetry channel's value distribution.
type ChannelSummary struct {
	Channel string   `json:"channel"`
	Samples int      `json:"samples"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Mean    *float64 `json:"mean"`
}

// DefaultSummaryChannels are the logger channels summarised for the
// dashboard: speed, engine RPM, throttle position and brake pressures.
var DefaultSummaryChannels = []string{"Speed", "nmot", "aps", "pbrake_f", "pbrake_r"}

// TelemetryExtractor computes steering features from a long-format
// telemetry log. The zero value is not usable; construct one with
// NewTelemetryExtractor and override channel names as needed.
type TelemetryExtractor struct {
	SteeringChannel string
}

func NewTelemetryExtractor() *TelemetryExtractor {
	return &TelemetryExtractor{
		SteeringChannel: DefaultSteeringChannel,
	}
}

// ExtractTelemetryFeatures runs a default-configured extractor.
func ExtractTelemetryFeatures(tel *Table, vehicle int) (*TelemetryFeatures, error) {
	return NewTelemetryExtractor().Extract(tel, vehicle)
}

// loadVehicleSamples cleans the telemetry table down to the requested
// vehicle: timestamps are parsed with bad rows dropped, vehicle numbers
// are coerced with non-numeric cells becoming a -1 sentinel so the filter
// never trips on dirty data, and values are parsed to floats (NaN when
// unparseable, keeping the sample for gap accounting).
func loadVehicleSamples(tel *Table, vehicle int) ([]TelemetrySample, error) {
	tsCol, err := ResolveColumn(tel, ExactColumn(colTimestamp))

	if err != nil {
		return nil, err
	}

	vehicleCol, err := ResolveColumn(tel, ExactColumn(colVehicleNumber), ContainsColumn("vehicle"))

	if err != nil {
		return nil, err
	}

	nameCol, err := ResolveColumn(tel, ExactColumn(colTelemetryName))

	if err != nil {
		return nil, err
	}

	valueCol, err := ResolveColumn(tel, ExactColumn(colTelemetryValue))

	if err != nil {
		return nil, err
	}

	var samples []TelemetrySample

	for i := range tel.Rows {
		ts, ok := parseTimestamp(tel.Cell(i, tsCol))

		if !ok {
			continue
		}

		rowVehicle := -1

		if v, ok := tel.Float(i, vehicleCol); ok {
			rowVehicle = int(v)
		}

		if rowVehicle != vehicle {
			continue
		}

		value := nan()

		if v, ok := tel.Float(i, valueCol); ok {
			value = v
		}

		samples = append(samples, TelemetrySample{
			Timestamp: ts,
			Channel:   normaliseChannel(tel.Cell(i, nameCol)),
			Value:     value,
		})
	}

	if len(samples) == 0 {
		return nil, &NotFoundError{VehicleNumber: vehicle}
	}

	return samples, nil
}

func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}

// Channel name lookups tolerate case and stray whitespace.
func normaliseChannel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// channelSeries returns the samples for one channel, sorted by time.
func channelSeries(samples []TelemetrySample, channel string) []TelemetrySample {
	want := normaliseChannel(channel)

	var series []TelemetrySample

	for _, s := range samples {
		if s.Channel == want {
			series = append(series, s)
		}
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	return series
}

// Extract computes the steering smoothness score, micro-correction rate
// and steering usage statistics for one vehicle.
func (e *TelemetryExtractor) Extract(tel *Table, vehicle int) (*TelemetryFeatures, error) {
	samples, err := loadVehicleSamples(tel, vehicle)

	if err != nil {
		return nil, err
	}

	angles := channelSeries(samples, e.SteeringChannel)

	rates, dts := steeringRates(angles)

	var validRates, validDTs []float64

	for i, r := range rates {
		if valid(r) {
			validRates = append(validRates, r)
			validDTs = append(validDTs, dts[i])
		}
	}

	absRates := make([]float64, len(validRates))

	for i, r := range validRates {
		absRates[i] = math.Abs(r)
	}

	_, stdAbsRate, _ := meanStdDev(absRates)

	var smoothness *float64

	if valid(stdAbsRate) {
		score := math.Min(100, 100*math.Exp(-stdAbsRate/smoothnessSensitivity))
		smoothness = Round2(score)
	}

	absAngles := make([]float64, 0, len(angles))

	for _, s := range angles {
		if valid(s.Value) {
			absAngles = append(absAngles, math.Abs(s.Value))
		}
	}

	meanAbsAngle, _, _ := meanStdDev(absAngles)

	return &TelemetryFeatures{
		VehicleNumber:             vehicle,
		SteeringSmoothnessScore:   smoothness,
		MicroCorrectionsPerMinute: microCorrectionsPerMinute(validRates, validDTs),
		SteeringUsage: SteeringUsage{
			MaxAbsAngle:     Round2(nanMax(absAngles)),
			AvgAbsAngle:     Round2(meanAbsAngle),
			StdSteeringRate: Round2(stdAbsRate),
		},
	}, nil
}

// steeringRates computes the per-sample steering rate in degrees per
// second. The first sample has no predecessor so its dt is zero; samples
// whose gap is non-positive or exceeds maxSampleGap get a NaN rate rather
// than an interpolated one.
func steeringRates(angles []TelemetrySample) (rates, dts []float64) {
	rates = make([]float64, len(angles))
	dts = make([]float64, len(angles))

	for i := range angles {
		if i == 0 {
			rates[i] = nan()
			continue
		}

		dt := angles[i].Timestamp.Sub(angles[i-1].Timestamp).Seconds()
		dts[i] = dt

		if dt <= 0 || dt > maxSampleGap.Seconds() || !valid(angles[i].Value) || !valid(angles[i-1].Value) {
			rates[i] = nan()
			continue
		}

		rates[i] = (angles[i].Value - angles[i-1].Value) / dt
	}

	return rates, dts
}

// microCorrectionsPerMinute counts steering direction reversals whose rate
// magnitude stays below the micro-correction threshold, then normalises to
// a per-minute figure. The rate's sign is taken after rounding to one
// decimal place so near-zero noise does not register as a reversal, and
// short samples (under a minute of data) report 0 to avoid inflated rates.
func microCorrectionsPerMinute(rates, dts []float64) float64 {
	count := 0
	prevSign := 0.0
	totalSeconds := 0.0

	for i, rate := range rates {
		totalSeconds += dts[i]

		sign := signum(math.Round(rate*10) / 10)

		if i > 0 && sign != prevSign && math.Abs(rate) < microCorrectionThreshold {
			count++
		}

		prevSign = sign
	}

	if totalSeconds <= 60 {
		return 0
	}

	perMinute := float64(count) / (totalSeconds / 60)

	return math.Round(perMinute*100) / 100
}

func signum(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// SummarizeChannels reports value distributions for the named channels,
// using the same cleaning pipeline as Extract. Channels with no samples
// are reported with a zero count rather than omitted.
func (e *TelemetryExtractor) SummarizeChannels(tel *Table, vehicle int, channels []string) ([]ChannelSummary, error) {
	samples, err := loadVehicleSamples(tel, vehicle)

	if err != nil {
		return nil, err
	}

	if len(channels) == 0 {
		channels = DefaultSummaryChannels
	}

	summaries := make([]ChannelSummary, 0, len(channels))

	for _, channel := range channels {
		series := channelSeries(samples, channel)

		values := make([]float64, 0, len(series))

		for _, s := range series {
			if valid(s.Value) {
				values = append(values, s.Value)
			}
		}

		mean, _, n := meanStdDev(values)

		summaries = append(summaries, ChannelSummary{
			Channel: channel,
			Samples: n,
			Min:     Round2(nanMin(values)),
			Max:     Round2(nanMax(values)),
			Mean:    Round2(mean),
		})
	}

	return summaries, nil
}
