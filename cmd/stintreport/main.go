// stintreport loads a session's export files from disk and prints a
// driver performance report for one car.
//
// Usage:
//
//	stintreport -car 2 sectors.csv "23_Time Cards.csv" telemetry.csv weather.csv
//
// Files are matched to their roles by filename, the same way the server
// treats uploads.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/apexsignal/pitwall/internal/analysis"
	"github.com/apexsignal/pitwall/internal/ingest"
)

var (
	carNumber       int
	steeringChannel string
)

func init() {
	flag.IntVar(&carNumber, "car", 0, "car number to analyse")
	flag.StringVar(&steeringChannel, "steering-channel", analysis.DefaultSteeringChannel, "telemetry channel holding the steering angle")
	flag.Parse()
}

var (
	heading  = color.New(color.FgCyan, color.Bold)
	label    = color.New(color.FgWhite)
	good     = color.New(color.FgGreen)
	bad      = color.New(color.FgRed)
	emphasis = color.New(color.Bold)
)

func main() {
	if carNumber <= 0 || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: stintreport -car <number> <export files...>")
		os.Exit(2)
	}

	tables := loadTables(flag.Args())

	if len(tables) == 0 {
		logrus.Fatal("none of the given files were recognised as session exports")
	}

	heading.Printf("Session report for car #%d\n", carNumber)

	if table, ok := tables[ingest.RoleWeather]; ok {
		printWeather(table)
	}

	if table, ok := tables[ingest.RoleSectors]; ok {
		printDeltas(table)
	}

	if table, ok := tables[ingest.RoleLaps]; ok {
		printReference(table)
		printPosition(table)
	}

	if table, ok := tables[ingest.RoleTelemetry]; ok {
		printTelemetry(table)
	}
}

func loadTables(paths []string) map[ingest.Role]*analysis.Table {
	names := make([]string, len(paths))

	for i, path := range paths {
		names[i] = filepath.Base(path)
	}

	tables := make(map[ingest.Role]*analysis.Table)

	for role, index := range ingest.AssignRoles(names) {
		f, err := os.Open(paths[index])

		if err != nil {
			logrus.WithError(err).Fatalf("couldn't open %s", paths[index])
		}

		table, err := ingest.ReadTable(f)
		f.Close()

		if err != nil {
			logrus.WithError(err).Fatalf("couldn't parse %s", paths[index])
		}

		tables[role] = table
	}

	return tables
}

func printWeather(table *analysis.Table) {
	summary, err := analysis.SummarizeWeather(table)

	if err != nil {
		logrus.WithError(err).Error("couldn't summarise weather")
		return
	}

	heading.Println("\nConditions")
	label.Printf("  %s: air %s°C, track %s°C, humidity %s%%, wind %s m/s\n",
		summary.Status, num(summary.AvgAirTemp), num(summary.AvgTrackTemp),
		num(summary.AvgHumidity), num(summary.AvgWindSpeed))
}

func printDeltas(table *analysis.Table) {
	result, err := analysis.ComputeDeltas(table, carNumber)

	if err != nil {
		logrus.WithError(err).Error("couldn't compute deltas")
		return
	}

	heading.Println("\nSectors")
	label.Printf("  Personal best   S1 %s  S2 %s  S3 %s  lap %s\n",
		num(result.PersonalBests.S1), num(result.PersonalBests.S2),
		num(result.PersonalBests.S3), num(result.PersonalBests.Lap))
	label.Printf("  Session best    S1 %s  S2 %s  S3 %s  lap %s\n",
		num(result.SessionBests.S1), num(result.SessionBests.S2),
		num(result.SessionBests.S3), num(result.SessionBests.Lap))
	label.Printf("  Optimal lap     %s (%s vs leader)\n",
		num(result.OptimalLap), num(result.GapToLeader.OptimalLap))

	if result.ConsistencyScore != nil {
		score := *result.ConsistencyScore

		out := good

		if score < 90 {
			out = bad
		}

		label.Print("  Consistency     ")
		out.Printf("%.2f / 100\n", score)
	}

	label.Printf("  Laps analysed   %d\n", len(result.Deltas))
}

func printReference(table *analysis.Table) {
	result, err := analysis.ResolveReferenceLaps(table, carNumber)

	if err != nil {
		logrus.WithError(err).Error("couldn't resolve reference laps")
		return
	}

	heading.Println("\nBest laps")

	for i, lap := range result.Ranked {
		line := label

		if i == 0 {
			line = emphasis
		}

		line.Printf("  %2d. %-12s %8.3fs\n", i+1, lap.Label, lap.Seconds)
	}
}

func printPosition(table *analysis.Table) {
	summary, err := analysis.AggregatePosition(table, carNumber)

	if err != nil {
		logrus.WithError(err).Error("couldn't aggregate session position")
		return
	}

	heading.Println("\nSession position")
	label.Printf("  P%d of %d: best %.3fs, fastest %.3fs, gap ",
		summary.DriverPosition, summary.NumDrivers, summary.PersonalBest, summary.SessionFastest)

	if summary.GapToFastest == 0 {
		good.Println("fastest overall")
	} else {
		bad.Printf("+%.3fs\n", summary.GapToFastest)
	}
}

func printTelemetry(table *analysis.Table) {
	extractor := analysis.NewTelemetryExtractor()
	extractor.SteeringChannel = steeringChannel

	features, err := extractor.Extract(table, carNumber)

	if err != nil {
		logrus.WithError(err).Error("couldn't extract telemetry features")
		return
	}

	heading.Println("\nSteering")
	label.Printf("  Smoothness      %s / 100\n", num(features.SteeringSmoothnessScore))
	label.Printf("  Corrections     %.2f per minute\n", features.MicroCorrectionsPerMinute)
	label.Printf("  Usage           max %s°, avg %s°, rate σ %s°/s\n",
		num(features.SteeringUsage.MaxAbsAngle), num(features.SteeringUsage.AvgAbsAngle),
		num(features.SteeringUsage.StdSteeringRate))
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}

	return fmt.Sprintf("%.3f", *v)
}
