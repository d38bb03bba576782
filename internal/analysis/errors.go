package analysis

import "fmt"

// NotFoundError indicates that the requested vehicle number does not appear
// in the input table under either numeric or string comparison.
type NotFoundError struct {
	VehicleNumber int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("vehicle %d not found in table", e.VehicleNumber)
}

// NoValidDataError indicates that the vehicle exists but none of its values
// for a required measure could be parsed. Distinct from NotFoundError so
// callers can tell "wrong car number" apart from "broken export".
type NoValidDataError struct {
	VehicleNumber int
	What          string
}

func (e *NoValidDataError) Error() string {
	return fmt.Sprintf("vehicle %d has no valid %s", e.VehicleNumber, e.What)
}

// MalformedInputError indicates a table is missing a required column
// entirely. This is a contract violation by the ingestion layer and fails
// fast instead of degrading.
type MalformedInputError struct {
	Column string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("table has no column matching: %s", e.Column)
}
