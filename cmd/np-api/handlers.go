package main

import (
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/engine/manager"
	"NetProfiler/internal/factory"
	"NetProfiler/internal/model"
	"NetProfiler/internal/query"
	"NetProfiler/internal/validation"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultUploadName = "upload"

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	manager   *manager.Manager
	querier   query.Querier // nil without a ClickHouse writer
	maxUpload int64
}

func newRouter(h *APIHandler) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/validate", h.validateHandler).Methods("POST")
	api.HandleFunc("/analyze", h.analyzeHandler).Methods("POST")
	api.HandleFunc("/flows", h.flowsHandler).Methods("GET")
	api.HandleFunc("/captures", h.capturesHandler).Methods("GET")
	return r
}

// uploadName returns the ?name= parameter, which names the output files.
func uploadName(r *http.Request) (string, error) {
	name := r.URL.Query().Get("name")
	if name == "" {
		return defaultUploadName, nil
	}
	if err := factory.CheckName(name); err != nil {
		return "", err
	}
	return name, nil
}

func (h *APIHandler) body(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
}

// validateHandler validates a flow CSV sent as the request body.
func (h *APIHandler) validateHandler(w http.ResponseWriter, r *http.Request) {
	name, err := uploadName(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.body(w, r)
	tbl, err := dataset.ReadCSV(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read CSV body: %v", err), http.StatusBadRequest)
		return
	}
	report, err := h.manager.ValidateTable(r.Context(), name, tbl)
	h.writeReport(w, report, err)
}

// analyzeHandler runs the full pipeline on a capture sent as the request body.
func (h *APIHandler) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	name, err := uploadName(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.body(w, r)
	report, err := h.manager.AnalyzeStream(r.Context(), name, r.Body)
	h.writeReport(w, report, err)
}

func (h *APIHandler) writeReport(w http.ResponseWriter, report *manager.Report, err error) {
	if report == nil {
		status := http.StatusBadRequest
		if errors.Is(err, validation.ErrMissingColumn) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	resp := map[string]any{
		"summary": summaryValue(report.Summary),
		"rows":    rowsValue(report.Validated),
	}
	if err != nil {
		// Validation completed; a writer or the notifier failed.
		log.Warnf("Request completed with errors: %v", err)
		resp["errors"] = err.Error()
	}
	writeStruct(w, resp)
}

// flowsHandler returns stored flows, filtered by ?capture=, ?invalid=true and ?limit=.
func (h *APIHandler) flowsHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "no ClickHouse writer is configured", http.StatusServiceUnavailable)
		return
	}
	q := query.FlowQuery{Capture: r.URL.Query().Get("capture")}
	if v := r.URL.Query().Get("invalid"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid 'invalid' parameter: %v", err), http.StatusBadRequest)
			return
		}
		q.OnlyInvalid = b
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid 'limit' parameter: %q", v), http.StatusBadRequest)
			return
		}
		q.Limit = n
	}

	flows, err := h.querier.QueryFlows(r.Context(), q)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query flows: %v", err), http.StatusInternalServerError)
		return
	}
	rows := make([]any, 0, len(flows))
	for _, f := range flows {
		row := rowValue(f.Row, dataset.ValidatedColumns)
		row["capture"] = f.Capture
		row["analyzed_at"] = f.AnalyzedAt.UTC().Format(time.RFC3339Nano)
		rows = append(rows, row)
	}
	writeStruct(w, map[string]any{"flows": rows})
}

// capturesHandler lists the analysis runs in the store.
func (h *APIHandler) capturesHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "no ClickHouse writer is configured", http.StatusServiceUnavailable)
		return
	}
	summaries, err := h.querier.CaptureSummaries(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query captures: %v", err), http.StatusInternalServerError)
		return
	}
	captures := make([]any, 0, len(summaries))
	for _, s := range summaries {
		captures = append(captures, map[string]any{
			"capture":       s.Capture,
			"analyzed_at":   s.AnalyzedAt.UTC().Format(time.RFC3339Nano),
			"total_flows":   s.TotalFlows,
			"invalid_flows": s.InvalidFlows,
		})
	}
	writeStruct(w, map[string]any{"captures": captures})
}

func summaryValue(s model.Summary) map[string]any {
	counts := make(map[string]any, len(s.ErrorCounts))
	for msg, n := range s.ErrorCounts {
		counts[msg] = n
	}
	return map[string]any{
		"capture":         s.Capture,
		"total_packets":   s.TotalPackets,
		"ip_packets":      s.IPPackets,
		"total_flows":     s.TotalFlows,
		"valid_flows":     s.ValidFlows,
		"invalid_flows":   s.InvalidFlows,
		"duplicate_flows": s.DuplicateFlows,
		"invalid_ratio":   s.InvalidRatio(),
		"error_counts":    counts,
	}
}

func rowsValue(t *dataset.Table) []any {
	rows := make([]any, 0, t.Len())
	for _, r := range t.Rows {
		rows = append(rows, rowValue(r, t.Columns))
	}
	return rows
}

// rowValue converts a row into values structpb accepts. Cells of other
// types are rendered as text.
func rowValue(r dataset.Row, columns []string) map[string]any {
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		switch v := r[col].(type) {
		case nil, string, bool, int64, float64:
			if dataset.IsAbsent(v) {
				out[col] = nil
			} else {
				out[col] = v
			}
		default:
			out[col] = dataset.FormatValue(v)
		}
	}
	return out
}

func writeStruct(w http.ResponseWriter, v map[string]any) {
	s, err := structpb.NewStruct(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to build response: %v", err), http.StatusInternalServerError)
		return
	}
	jsonBytes, err := protojson.Marshal(s)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}
