package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/access"
	"github.com/ruslano69/firvault/pkg/cases"
	"github.com/ruslano69/firvault/pkg/faults"
	"github.com/ruslano69/firvault/pkg/reports"
)

// Заголовки вызывающего; сессии и аутентификация вне этого сервиса
const (
	headerRole = "X-Role"
	headerUser = "X-User"
)

// handler serves /api/cases, /api/stations and /api/reports.
type handler struct {
	cases   *cases.Service
	reports *reports.Runner
	log     zerolog.Logger
}

// authorize проверяет право роли из X-Role до любого обращения к хранилищу
func (h *handler) authorize(w http.ResponseWriter, r *http.Request, action access.Action) bool {
	noteAction(r, action.String())

	role, err := access.ParseRole(r.Header.Get(headerRole))
	if err != nil {
		err = faults.New(faults.KindForbidden, action.String(), err)
	} else {
		err = access.Check(role, action)
	}
	if err != nil {
		h.log.Warn().
			Str("role", r.Header.Get(headerRole)).
			Str("action", action.String()).
			Str("path", r.URL.Path).
			Msg("request forbidden")
		writeFault(w, r, h.log, err)
		return false
	}
	return true
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return faults.Newf(faults.KindInvalidInput, "decode", "invalid json: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	noteResource(r, "case:"+chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, faults.Newf(faults.KindInvalidInput, "parse id", "invalid case id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// POST /api/cases
func (h *handler) createCase(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.CasesCreate) {
		return
	}

	var in cases.NewCase
	if err := decode(r, &in); err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	if user := r.Header.Get(headerUser); user != "" {
		in.CreatedBy = user
	}

	c, err := h.cases.Create(r.Context(), in)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	noteResource(r, c.FIRNumber)
	writeJSON(w, http.StatusCreated, c)
}

// GET /api/cases?fir=KTM/2026/0001 или ?station_id=1&limit=50
func (h *handler) findCases(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.CasesRead) {
		return
	}

	q := r.URL.Query()
	if number := q.Get("fir"); number != "" {
		noteResource(r, number)
		c, err := h.cases.GetByFIR(r.Context(), number)
		if err != nil {
			writeFault(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
		return
	}

	stationID, err := strconv.ParseInt(q.Get("station_id"), 10, 64)
	if err != nil {
		writeFault(w, r, h.log, faults.Newf(faults.KindInvalidInput, "list cases", "fir or station_id query parameter is required"))
		return
	}
	noteResource(r, "station:"+strconv.FormatInt(stationID, 10))
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := h.cases.List(r.Context(), stationID, limit)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/cases/{id}
func (h *handler) getCase(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.CasesRead) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}

	c, err := h.cases.Get(r.Context(), id)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// POST /api/cases/{id}/persons
func (h *handler) addPerson(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.PersonsCreate) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}

	var in cases.NewPerson
	if err := decode(r, &in); err != nil {
		writeFault(w, r, h.log, err)
		return
	}

	p, err := h.cases.AddPerson(r.Context(), id, in)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GET /api/cases/{id}/persons
func (h *handler) listPersons(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.PersonsRead) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}

	persons, err := h.cases.Persons(r.Context(), id)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, persons)
}

type stationRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// POST /api/stations
func (h *handler) createStation(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.StationsManage) {
		return
	}

	var in stationRequest
	if err := decode(r, &in); err != nil {
		writeFault(w, r, h.log, err)
		return
	}

	noteResource(r, "station:"+in.Code)
	st, err := h.cases.CreateStation(r.Context(), in.Code, in.Name)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// GET /api/stations
func (h *handler) listStations(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.StationsRead) {
		return
	}

	stations, err := h.cases.Stations(r.Context())
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

type reportRequest struct {
	Query  string `json:"query"`
	Params []any  `json:"params"`
}

// POST /api/reports/query
// Только SELECT/WITH; запрос проходит тот же фасад, что и остальные операции
func (h *handler) runReport(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, access.ReportsRead) {
		return
	}

	var in reportRequest
	if err := decode(r, &in); err != nil {
		writeFault(w, r, h.log, err)
		return
	}

	res, err := h.reports.Run(r.Context(), in.Query, in.Params)
	if err != nil {
		writeFault(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
