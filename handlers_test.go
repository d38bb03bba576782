package pitwall

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sectorsCSV = "NUMBER;LAP_NUMBER;LAP_TIME;S1_SECONDS;S2_SECONDS;S3_SECONDS\n" +
	"2;1;1:45.800;30.1;40.2;35.5\n" +
	"2;2;1:44.800;29.8;40.0;35.0\n" +
	"5;1;1:43.800;29.5;39.5;34.8\n"

const lapsCSV = "NUMBER;BESTLAP_1;BESTLAP_2;BESTLAP_3\n" +
	"2;2:08.511;2:07.998;\n" +
	"5;2:06.500;2:07.100;2:06.900\n"

const weatherCSV = "TIME_UTC_STR;AIR_TEMP;TRACK_TEMP;HUMIDITY;WIND_SPEED;RAIN\n" +
	"2024-05-04 14:00:00;21.0;30.0;40;2.0;0\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	handler := NewAnalysisHandler(NewSessionStore(), DefaultConfig())
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return server
}

func uploadTestSession(t *testing.T, server *httptest.Server, files map[string]string) uploadResponse {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	for name, contents := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)

		_, err = part.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	resp, err := http.Post(server.URL+"/api/sessions", writer.FormDataContentType(), body)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var uploaded uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))

	return uploaded
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestUploadAndAnalyse(t *testing.T) {
	server := newTestServer(t)

	uploaded := uploadTestSession(t, server, map[string]string{
		"23_sectors.csv":   sectorsCSV,
		"R1 Lap Times.csv": lapsCSV,
		"weather.csv":      weatherCSV,
	})

	assert.Len(t, uploaded.Files, 3)

	base := server.URL + "/api/sessions/" + uploaded.ID.String()

	var deltas struct {
		OptimalLap       *float64 `json:"optimal_lap"`
		ConsistencyScore *float64 `json:"consistency_score"`
		Deltas           []struct {
			Lap int `json:"lap"`
		} `json:"deltas"`
	}

	status := getJSON(t, base+"/vehicles/2/deltas", &deltas)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, deltas.OptimalLap)
	assert.InDelta(t, 104.8, *deltas.OptimalLap, 1e-6)
	assert.Len(t, deltas.Deltas, 2)

	var position struct {
		DriverPosition int     `json:"driver_position"`
		GapToFastest   float64 `json:"gap_to_fastest"`
	}

	status = getJSON(t, base+"/vehicles/2/position", &position)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, position.DriverPosition)
	assert.InDelta(t, 1.498, position.GapToFastest, 1e-6)

	var weather struct {
		Status string `json:"status"`
	}

	status = getJSON(t, base+"/weather", &weather)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Clear & Dry", weather.Status)
}

func TestReportFansOutAvailableAnalyses(t *testing.T) {
	server := newTestServer(t)

	uploaded := uploadTestSession(t, server, map[string]string{
		"23_sectors.csv":   sectorsCSV,
		"R1 Lap Times.csv": lapsCSV,
	})

	var report VehicleReport

	status := getJSON(t, server.URL+"/api/sessions/"+uploaded.ID.String()+"/vehicles/2/report", &report)
	require.Equal(t, http.StatusOK, status)

	assert.NotNil(t, report.Deltas)
	assert.NotNil(t, report.Reference)
	assert.NotNil(t, report.Position)
	// No telemetry or weather files were uploaded.
	assert.Nil(t, report.Telemetry)
	assert.Nil(t, report.Weather)
}

func TestErrorMapping(t *testing.T) {
	server := newTestServer(t)

	uploaded := uploadTestSession(t, server, map[string]string{
		"23_sectors.csv": sectorsCSV,
	})

	base := server.URL + "/api/sessions/" + uploaded.ID.String()

	// Unknown vehicle in a present table: typed not-found from the engine.
	assert.Equal(t, http.StatusNotFound, getJSON(t, base+"/vehicles/99/deltas", nil))

	// Role that was never uploaded.
	assert.Equal(t, http.StatusNotFound, getJSON(t, base+"/vehicles/2/telemetry", nil))

	// Unknown session.
	assert.Equal(t, http.StatusNotFound, getJSON(t, server.URL+"/api/sessions/00000000-0000-0000-0000-000000000000/vehicles/2/deltas", nil))

	// Unparseable identifiers.
	assert.Equal(t, http.StatusBadRequest, getJSON(t, server.URL+"/api/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, base+"/vehicles/abc/deltas", nil))
}

func TestUploadRejectsUnrecognisedFiles(t *testing.T) {
	server := newTestServer(t)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", "setup_notes.txt")
	require.NoError(t, err)

	_, err = part.Write([]byte("soft front springs"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(server.URL+"/api/sessions", writer.FormDataContentType(), body)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
