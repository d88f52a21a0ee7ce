package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"placementcell/internal/app"
	"placementcell/internal/http/response"
)

// ReportHandler serves analytics, search and CSV exports.
type ReportHandler struct {
	analytics *app.AnalyticsService
	search    *app.SearchService
	export    *app.ExportService
	now       func() time.Time
}

func NewReportHandler(analytics *app.AnalyticsService, search *app.SearchService, export *app.ExportService) *ReportHandler {
	return &ReportHandler{analytics: analytics, search: search, export: export, now: time.Now}
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	dashboard, err := h.analytics.Dashboard(r.Context(), actor, queryBool(r, "refresh"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, dashboard)
}

func (h *ReportHandler) Departments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	batchYear, err := queryInt(r, "batch_year")
	if err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.analytics.Departments(r.Context(), actor, batchYear)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ReportHandler) Companies(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	items, err := h.analytics.Companies(r.Context(), actor)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ReportHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		response.Error(w, err)
		return
	}
	var types []string
	if raw := strings.TrimSpace(r.URL.Query().Get("types")); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				types = append(types, t)
			}
		}
	}
	results, err := h.search.Search(r.Context(), actor, r.URL.Query().Get("q"), types, limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, results)
}

func (h *ReportHandler) ExportStudents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	filter, err := studentFilter(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.writeCSV(w, "students", func(buf *bytes.Buffer) error {
		return h.export.Students(r.Context(), actor, filter, buf)
	})
}

func (h *ReportHandler) ExportApplications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	jobID, err := queryUUID(r, "job_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	h.writeCSV(w, "applications", func(buf *bytes.Buffer) error {
		return h.export.Applications(r.Context(), actor, jobID, buf)
	})
}

func (h *ReportHandler) ExportPlacements(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	batchYear, err := queryInt(r, "batch_year")
	if err != nil {
		response.Error(w, err)
		return
	}
	h.writeCSV(w, "placements", func(buf *bytes.Buffer) error {
		return h.export.Placements(r.Context(), actor, batchYear, buf)
	})
}

// writeCSV renders into memory first so a failed export still gets the JSON error envelope.
func (h *ReportHandler) writeCSV(w http.ResponseWriter, name string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		response.Error(w, err)
		return
	}
	csvHeaders(w, fmt.Sprintf("%s-%s.csv", name, h.now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
