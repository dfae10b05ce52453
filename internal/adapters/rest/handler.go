// Package rest exposes the case board over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"caseboard/internal/core"
	"caseboard/internal/ingest"
	"caseboard/internal/snapshot"
	"caseboard/pkg/domain"
)

// Board is the slice of the service surface the HTTP layer needs.
type Board interface {
	RequestValidation(ctx context.Context, in core.RequestValidationInput) (core.Outcome, domain.Result, error)
	ApproveMilestone(ctx context.Context, in core.ApproveMilestoneInput) (core.Outcome, domain.Result, error)
	FlagRisk(ctx context.Context, in core.FlagRiskInput) (core.Outcome, domain.Result, error)
	UploadEvidence(ctx context.Context, in core.UploadEvidenceInput) (core.Outcome, domain.Result, error)
	CloseCase(ctx context.Context, in core.CloseCaseInput) (core.Outcome, domain.Result, error)

	KPIPortfolio(ctx context.Context) (core.PortfolioKPIs, error)
	KPIValidation(ctx context.Context) (core.ValidationKPIs, error)
	KPIRisk(ctx context.Context) (core.RiskKPIs, error)
	KPIOwnerLoad(ctx context.Context) ([]core.OwnerLoadEntry, error)

	MergeTables(ctx context.Context, tables domain.TableSet) (domain.Result, error)
	ExportTables(ctx context.Context) (domain.TableSet, domain.Filters, error)
	ReplaceTables(ctx context.Context, tables domain.TableSet, filters *domain.Filters) (domain.Result, error)
	SetFilters(ctx context.Context, filters domain.Filters) (domain.Result, error)
	Filters() domain.Filters
}

// Handler provides HTTP access to ingestion, actions, KPIs, filters and
// snapshots under /api/v1.
type Handler struct {
	Board Board
	// Now overrides the clock used to stamp exported snapshots, for tests.
	Now func() time.Time
}

// NewHandler constructs a board HTTP handler.
func NewHandler(b Board) *Handler {
	return &Handler{Board: b}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Board == nil {
		writeError(w, http.StatusInternalServerError, "board not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasPrefix(path, "/api/v1/actions/"):
		h.handleAction(w, r, strings.TrimPrefix(path, "/api/v1/actions/"))
	case strings.HasPrefix(path, "/api/v1/kpis/"):
		h.handleKPI(w, r, strings.TrimPrefix(path, "/api/v1/kpis/"))
	case path == "/api/v1/filters":
		h.handleFilters(w, r)
	case path == "/api/v1/ingest/rows":
		h.handleIngestRows(w, r)
	case strings.HasPrefix(path, "/api/v1/ingest/csv/"):
		h.handleIngestCSV(w, r, strings.TrimPrefix(path, "/api/v1/ingest/csv/"))
	case path == "/api/v1/snapshot":
		h.handleSnapshot(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var (
		outcome core.Outcome
		res     domain.Result
		err     error
	)
	switch name {
	case "request-validation":
		var in core.RequestValidationInput
		if !decodeBody(w, r, &in) {
			return
		}
		outcome, res, err = h.Board.RequestValidation(r.Context(), in)
	case "approve-milestone":
		var in core.ApproveMilestoneInput
		if !decodeBody(w, r, &in) {
			return
		}
		outcome, res, err = h.Board.ApproveMilestone(r.Context(), in)
	case "flag-risk":
		var in core.FlagRiskInput
		if !decodeBody(w, r, &in) {
			return
		}
		outcome, res, err = h.Board.FlagRisk(r.Context(), in)
	case "upload-evidence":
		var in core.UploadEvidenceInput
		if !decodeBody(w, r, &in) {
			return
		}
		outcome, res, err = h.Board.UploadEvidence(r.Context(), in)
	case "close-case":
		var in core.CloseCaseInput
		if !decodeBody(w, r, &in) {
			return
		}
		outcome, res, err = h.Board.CloseCase(r.Context(), in)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		var violation domain.RuleViolationError
		if errors.As(err, &violation) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "violations": violation.Result.Violations})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcome": outcome, "warnings": res.Violations})
}

func (h *Handler) handleKPI(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var (
		payload any
		err     error
	)
	switch name {
	case "portfolio":
		payload, err = h.Board.KPIPortfolio(r.Context())
	case "validation":
		payload, err = h.Board.KPIValidation(r.Context())
	case "risk":
		payload, err = h.Board.KPIRisk(r.Context())
	case "owner-load":
		payload, err = h.Board.KPIOwnerLoad(r.Context())
	default:
		writeError(w, http.StatusNotFound, "unknown kpi")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Board.Filters())
	case http.MethodPut, http.MethodPost:
		var filters domain.Filters
		if !decodeBody(w, r, &filters) {
			return
		}
		if _, err := h.Board.SetFilters(r.Context(), filters); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, h.Board.Filters())
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type ingestRowsRequest map[string][]ingest.Row

type ingestResponse struct {
	Merged   int                `json:"merged"`
	Errors   []ingest.RowError  `json:"errors,omitempty"`
	Warnings []domain.Violation `json:"warnings,omitempty"`
}

func (h *Handler) handleIngestRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ingestRowsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	batch := ingest.DecodeTables(req)
	h.mergeBatch(w, r, batch)
}

func (h *Handler) handleIngestCSV(w http.ResponseWriter, r *http.Request, table string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rows, err := ingest.ReadCSV(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid csv payload: "+err.Error())
		return
	}
	batch := ingest.DecodeTables(map[string][]ingest.Row{table: rows})
	h.mergeBatch(w, r, batch)
}

func (h *Handler) mergeBatch(w http.ResponseWriter, r *http.Request, batch ingest.Batch) {
	tables := batch.TableSet()
	merged := len(batch.Actors) + len(batch.Models) + len(batch.Actions) +
		len(batch.Latest) + len(batch.Links) + len(batch.Events)
	res, err := h.Board.MergeTables(r.Context(), tables)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Merged: merged, Errors: batch.Errors, Warnings: res.Violations})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tables, filters, err := h.Board.ExportTables(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		at := h.now()
		doc := snapshot.New(ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(), at, tables, filters)
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut, http.MethodPost:
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid snapshot payload")
			return
		}
		doc, err := snapshot.Decode(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := h.Board.ReplaceTables(r.Context(), doc.Tables(), doc.Filters); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"restored": doc.Meta.ID})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
