package pitwall

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/apexsignal/pitwall/internal/analysis"
	"github.com/apexsignal/pitwall/internal/ingest"
)

// AnalysisHandler serves session uploads and per-vehicle analyses over
// JSON. It is the HTTP stand-in for whatever dashboard or agent ends up
// consuming the engine.
type AnalysisHandler struct {
	store     *SessionStore
	extractor *analysis.TelemetryExtractor
	config    *Config
}

func NewAnalysisHandler(store *SessionStore, config *Config) *AnalysisHandler {
	extractor := analysis.NewTelemetryExtractor()

	if config.SteeringChannel != "" {
		extractor.SteeringChannel = config.SteeringChannel
	}

	return &AnalysisHandler{
		store:     store,
		extractor: extractor,
		config:    config,
	}
}

func (ah *AnalysisHandler) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(requestMetrics)

	router.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", ah.uploadSession)
		r.Get("/", ah.listSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", ah.showSession)
			r.Delete("/", ah.deleteSession)
			r.Get("/weather", ah.weather)

			r.Route("/vehicles/{vehicle}", func(r chi.Router) {
				r.Get("/deltas", ah.deltas)
				r.Get("/reference-laps", ah.referenceLaps)
				r.Get("/telemetry", ah.telemetryFeatures)
				r.Get("/channels", ah.channelSummaries)
				r.Get("/position", ah.position)
				r.Get("/report", ah.report)
			})
		})
	})

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/debug/sessions", ah.debugSessions)

	return router
}

type uploadResponse struct {
	ID    uuid.UUID              `json:"id"`
	Name  string                 `json:"name"`
	Files map[ingest.Role]string `json:"files"`
}

// uploadSession accepts a multipart upload of session export files,
// assigns each file a role from its name and parses the recognised ones.
func (ah *AnalysisHandler) uploadSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ah.config.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		logrus.WithError(err).Error("couldn't parse session upload")
		writeJSONError(w, http.StatusBadRequest, "could not parse multipart upload")
		return
	}

	files := r.MultipartForm.File["files"]

	if len(files) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	filenames := make([]string, len(files))

	for i, header := range files {
		filenames[i] = header.Filename
	}

	roles := ingest.AssignRoles(filenames)

	if len(roles) == 0 {
		writeJSONError(w, http.StatusBadRequest, "could not recognise any uploaded file as a session export")
		return
	}

	session := NewSession(r.FormValue("name"))

	for role, index := range roles {
		header := files[index]

		f, err := header.Open()

		if err != nil {
			logrus.WithError(err).Errorf("couldn't open uploaded file: %s", header.Filename)
			writeJSONError(w, http.StatusBadRequest, "could not open uploaded file: "+header.Filename)
			return
		}

		table, err := ingest.ReadTable(f)
		f.Close()

		if err != nil {
			logrus.WithError(err).Errorf("couldn't parse uploaded file: %s", header.Filename)
			writeJSONError(w, http.StatusBadRequest, "could not parse uploaded file: "+header.Filename)
			return
		}

		session.AddTable(role, header.Filename, table)

		logrus.Infof("parsed %s (%s) as %s: %d rows", header.Filename, humanize.Bytes(uint64(header.Size)), role, len(table.Rows))
	}

	ah.store.Add(session)

	writeJSON(w, http.StatusCreated, uploadResponse{
		ID:    session.ID,
		Name:  session.Name,
		Files: session.Files,
	})
}

func (ah *AnalysisHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ah.store.List())
}

func (ah *AnalysisHandler) showSession(w http.ResponseWriter, r *http.Request) {
	session, ok := ah.session(w, r)

	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (ah *AnalysisHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := ah.session(w, r)

	if !ok {
		return
	}

	ah.store.Delete(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (ah *AnalysisHandler) deltas(w http.ResponseWriter, r *http.Request) {
	table, vehicle, ok := ah.vehicleRequest(w, r, ingest.RoleSectors)

	if !ok {
		return
	}

	result, err := analysis.ComputeDeltas(table, vehicle)

	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (ah *AnalysisHandler) referenceLaps(w http.ResponseWriter, r *http.Request) {
	table, vehicle, ok := ah.vehicleRequest(w, r, ingest.RoleLaps)

	if !ok {
		return
	}

	result, err := analysis.ResolveReferenceLaps(table, vehicle)

	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (ah *AnalysisHandler) telemetryFeatures(w http.ResponseWriter, r *http.Request) {
	table, vehicle, ok := ah.vehicleRequest(w, r, ingest.RoleTelemetry)

	if !ok {
		return
	}

	result, err := ah.extractor.Extract(table, vehicle)

	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (ah *AnalysisHandler) channelSummaries(w http.ResponseWriter, r *http.Request) {
	table, vehicle, ok := ah.vehicleRequest(w, r, ingest.RoleTelemetry)

	if !ok {
		return
	}

	result, err := ah.extractor.SummarizeChannels(table, vehicle, ah.config.SummaryChannels)

	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (ah *AnalysisHandler) position(w http.ResponseWriter, r *http.Request) {
	table, vehicle, ok := ah.vehicleRequest(w, r, ingest.RoleLaps)

	if !ok {
		return
	}

	result, err := analysis.AggregatePosition(table, vehicle)

	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (ah *AnalysisHandler) weather(w http.ResponseWriter, r *http.Request) {
	session, ok := ah.session(w, r)

	if !ok {
		return
	}

	table, ok := session.Table(ingest.RoleWeather)

	if !ok {
		writeJSONError(w, http.StatusNotFound, "session has no weather data")
		return
	}

	result, err := analysis.SummarizeWeather(table)

	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// VehicleReport bundles every analysis available for a vehicle in one
// response. Sections for which the session has no file are nil.
type VehicleReport struct {
	VehicleNumber int `json:"vehicle_number"`

	Deltas    *analysis.DeltaResult       `json:"deltas,omitempty"`
	Reference *analysis.RankedLaps        `json:"reference_laps,omitempty"`
	Telemetry *analysis.TelemetryFeatures `json:"telemetry,omitempty"`
	Position  *analysis.PositionSummary   `json:"position,omitempty"`
	Weather   *analysis.WeatherSummary    `json:"weather,omitempty"`
}

// report fans the individual analyses out concurrently. The engine never
// mutates its input tables, so sharing them between goroutines is safe.
func (ah *AnalysisHandler) report(w http.ResponseWriter, r *http.Request) {
	session, ok := ah.session(w, r)

	if !ok {
		return
	}

	vehicle, ok := vehicleParam(w, r)

	if !ok {
		return
	}

	report := &VehicleReport{VehicleNumber: vehicle}

	g, _ := errgroup.WithContext(r.Context())

	if table, ok := session.Table(ingest.RoleSectors); ok {
		g.Go(func() error {
			var err error
			report.Deltas, err = analysis.ComputeDeltas(table, vehicle)

			return err
		})
	}

	if table, ok := session.Table(ingest.RoleLaps); ok {
		g.Go(func() error {
			var err error
			report.Reference, err = analysis.ResolveReferenceLaps(table, vehicle)

			if err != nil {
				return err
			}

			report.Position, err = analysis.AggregatePosition(table, vehicle)

			return err
		})
	}

	if table, ok := session.Table(ingest.RoleTelemetry); ok {
		g.Go(func() error {
			var err error
			report.Telemetry, err = ah.extractor.Extract(table, vehicle)

			return err
		})
	}

	if table, ok := session.Table(ingest.RoleWeather); ok {
		g.Go(func() error {
			var err error
			report.Weather, err = analysis.SummarizeWeather(table)

			return err
		})
	}

	if err := g.Wait(); err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// debugSessions dumps the session store for support bundles. Not pretty,
// but it shows exactly what the parser made of an upload.
func (ah *AnalysisHandler) debugSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	spew.Fdump(w, ah.store.List())
}

func (ah *AnalysisHandler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))

	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}

	session, ok := ah.store.Get(id)

	if !ok {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return nil, false
	}

	return session, true
}

func vehicleParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	vehicle, err := strconv.Atoi(chi.URLParam(r, "vehicle"))

	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid vehicle number")
		return 0, false
	}

	return vehicle, true
}

func (ah *AnalysisHandler) vehicleRequest(w http.ResponseWriter, r *http.Request, role ingest.Role) (*analysis.Table, int, bool) {
	session, ok := ah.session(w, r)

	if !ok {
		return nil, 0, false
	}

	vehicle, ok := vehicleParam(w, r)

	if !ok {
		return nil, 0, false
	}

	table, ok := session.Table(role)

	if !ok {
		writeJSONError(w, http.StatusNotFound, "session has no "+string(role)+" data")
		return nil, 0, false
	}

	return table, vehicle, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("couldn't encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAnalysisError maps the engine's typed failures onto HTTP statuses.
// The response carries the short human-readable message only, never a
// stack trace.
func writeAnalysisError(w http.ResponseWriter, err error) {
	var notFound *analysis.NotFoundError
	var noData *analysis.NoValidDataError
	var malformed *analysis.MalformedInputError

	switch {
	case errors.As(err, &notFound):
		writeJSONError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &noData):
		writeJSONError(w, http.StatusUnprocessableEntity, noData.Error())
	case errors.As(err, &malformed):
		writeJSONError(w, http.StatusBadRequest, malformed.Error())
	default:
		logrus.WithError(err).Error("analysis failed")
		writeJSONError(w, http.StatusInternalServerError, "analysis failed")
	}
}
