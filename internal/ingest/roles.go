package ingest

import "strings"

// Role identifies what a session export file contains.
type Role string

const (
	RoleTelemetry Role = "telemetry"
	RoleLaps      Role = "laps"
	RoleWeather   Role = "weather"
	RoleResults   Role = "results"
	RoleSectors   Role = "sectors"
)

// roleKeywords maps each role to the filename fragments that identify it.
// Order within a slice matters: the most specific fragments come first so
// "AnalysisEnduranceWithSections" wins over a bare "sector".
var roleKeywords = []struct {
	role     Role
	keywords []string
}{
	{RoleTelemetry, []string{"telemetry", "telemetry_data", "logger", "can"}},
	{RoleLaps, []string{"lap_time", "lap time", "lap", "lapresults"}},
	{RoleWeather, []string{"weather", "ambient"}},
	{RoleResults, []string{"results", "classification", "standings"}},
	{RoleSectors, []string{"analysisendurancewithsections", "analysisendurance", "sectors", "sector", "splits"}},
}

// AssignRoles matches uploaded filenames to session roles. The first file
// whose name contains a role's keyword takes that role, and a file serves
// at most one role.
func AssignRoles(filenames []string) map[Role]int {
	picks := make(map[Role]int)
	taken := make(map[int]bool)

	lowered := make([]string, len(filenames))

	for i, name := range filenames {
		lowered[i] = strings.ToLower(name)
	}

	for _, entry := range roleKeywords {
		for i, low := range lowered {
			if taken[i] {
				continue
			}

			if containsAny(low, entry.keywords) {
				picks[entry.role] = i
				taken[i] = true
				break
			}
		}
	}

	return picks
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}

	return false
}
