package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"caseboard/internal/core"
	"caseboard/internal/snapshot"
	"caseboard/pkg/domain"
)

var handlerNow = time.Date(2025, 5, 17, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *core.Service) {
	t.Helper()
	svc := core.NewInMemoryService(core.DefaultRulesEngine(), core.WithClock(func() time.Time { return handlerNow }))
	h := NewHandler(svc)
	h.Now = func() time.Time { return handlerNow }
	return h, svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRequestValidation(t *testing.T) {
	h, svc := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/actions/request-validation", map[string]any{"modelId": "M1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Outcome core.Outcome `json:"outcome"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Outcome.Applied || resp.Outcome.EventID == "" {
		t.Fatalf("unexpected outcome %+v", resp.Outcome)
	}
	latest := svc.Latest()
	if len(latest) != 1 || latest[0].Status != "Scheduled" {
		t.Fatalf("projection not written: %+v", latest)
	}
}

func TestHandlerActionErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	if rec := doJSON(t, h, http.MethodPost, "/api/v1/actions/request-validation", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing model id: status %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/v1/actions/unknown", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action: status %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/actions/close-case", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: status %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/flag-risk", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
}

func TestHandlerIngestRows(t *testing.T) {
	h, svc := newTestHandler(t)
	payload := map[string]any{
		"actions": []map[string]any{
			{"id": 1, "text": "Check margins", "Owner": "GE - D. Fernandez", "Status": "in progress", "ata": "32"},
			{"text": "no id"},
		},
		"links": []map[string]any{{"id_action": "1", "id_model": "M1"}},
	}
	rec := doJSON(t, h, http.MethodPost, "/api/v1/ingest/rows", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Merged int `json:"merged"`
		Errors []struct {
			Table string `json:"Table"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Merged != 2 || len(resp.Errors) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	actions := svc.Actions()
	if len(actions) != 1 {
		t.Fatalf("actions: %+v", actions)
	}
	if actions[0].Status != "In Progress" || actions[0].ATAChapter != "ATA32" {
		t.Fatalf("normalization missing: %+v", actions[0])
	}
}

func TestHandlerIngestCSV(t *testing.T) {
	h, svc := newTestHandler(t)
	csvBody := "actionId,text,Status\nA-9,Review loads,wip\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/csv/actions", strings.NewReader(csvBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
	actions := svc.Actions()
	if len(actions) != 1 || actions[0].ActionID != "A-9" || actions[0].Status != "In Progress" {
		t.Fatalf("unexpected actions %+v", actions)
	}
}

func TestHandlerKPIs(t *testing.T) {
	h, svc := newTestHandler(t)
	if _, err := svc.MergeTables(context.Background(), domain.TableSet{
		Actions: []domain.Action{{ActionID: "A-1", Text: "t", Status: "Open", Owner: "GE - D. Fernandez"}},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec := doJSON(t, h, http.MethodGet, "/api/v1/kpis/portfolio", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var kpis core.PortfolioKPIs
	if err := json.Unmarshal(rec.Body.Bytes(), &kpis); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if kpis.OpenActions != 1 {
		t.Fatalf("unexpected kpis %+v", kpis)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/kpis/unknown", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown kpi: status %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/v1/kpis/risk", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: status %d", rec.Code)
	}
}

func TestHandlerFilters(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/filters", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var filters domain.Filters
	if err := json.Unmarshal(rec.Body.Bytes(), &filters); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if filters.DateFrom != "2025-05-01" {
		t.Fatalf("expected default month window, got %+v", filters)
	}
	rec = doJSON(t, h, http.MethodPut, "/api/v1/filters", domain.Filters{Program: []string{"A320", "A350"}, DateFrom: "2025-01-01"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set filters: status %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/v1/filters", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &filters)
	if len(filters.Program) != 2 || filters.Program[0] != "A320" || filters.DateFrom != "2025-01-01" {
		t.Fatalf("filters not replaced: %+v", filters)
	}
}

func TestHandlerSnapshotImportWithoutFiltersKeepsActive(t *testing.T) {
	h, svc := newTestHandler(t)
	if _, err := svc.SetFilters(context.Background(), domain.Filters{Program: []string{"A320"}}); err != nil {
		t.Fatalf("set filters: %v", err)
	}
	payload := `{"meta":{"id":"x","at":"2025-05-17T12:00:00Z","v":1},"models":[{"modelId":"M1","program":"A320","ata":"ATA32"}]}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/snapshot", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status %d body %s", rec.Code, rec.Body)
	}
	if f := svc.Filters(); len(f.Program) != 1 || f.Program[0] != "A320" {
		t.Fatalf("filters lost on table-only import: %+v", f)
	}
	if models := svc.Models(); len(models) != 1 {
		t.Fatalf("models not imported: %+v", models)
	}
}

func TestHandlerSnapshotRoundTrip(t *testing.T) {
	h, svc := newTestHandler(t)
	if _, err := svc.MergeTables(context.Background(), domain.TableSet{
		Models: []domain.Model{{ModelID: "M1", Program: "A320", ATA: "ATA32"}},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec := doJSON(t, h, http.MethodGet, "/api/v1/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status %d", rec.Code)
	}
	var doc snapshot.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc.Meta.V != snapshot.Version || doc.Meta.ID == "" || len(doc.Models) != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}

	other, fresh := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/snapshot", bytes.NewReader(rec.Body.Bytes()))
	rec2 := httptest.NewRecorder()
	other.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("import status %d body %s", rec2.Code, rec2.Body)
	}
	models := fresh.Models()
	if len(models) != 1 || models[0].ModelID != "M1" {
		t.Fatalf("unexpected restored models %+v", models)
	}
}

func TestHandlerSnapshotRejectsBadPayload(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/snapshot", strings.NewReader(`{"meta":{"v":7}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
}

func TestHandlerUnknownPath(t *testing.T) {
	h, _ := newTestHandler(t)
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}
