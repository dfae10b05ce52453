// Package copilot exposes the case board as MCP tools for chat assistants.
package copilot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"

	"caseboard/internal/core"
	"caseboard/internal/snapshot"
	"caseboard/pkg/domain"
)

// Board is the slice of the service surface the tool server needs.
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

	ExportTables(ctx context.Context) (domain.TableSet, domain.Filters, error)
	SetFilters(ctx context.Context, filters domain.Filters) (domain.Result, error)
	Filters() domain.Filters
}

// Server wraps the MCP SDK server around a board.
type Server struct {
	MCPServer *sdkmcp.Server

	board Board
	nowFn func() time.Time
	log   *slog.Logger
}

// NewServer creates a board MCP server with all tools registered. Run it with
// s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{}).
func NewServer(board Board, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "caseboard", Version: version},
			nil,
		),
		board: board,
		nowFn: func() time.Time { return time.Now().UTC() },
		log:   slog.Default().With("component", "copilot"),
	}
	s.registerTools()
	return s
}

// SetNowFunc overrides the clock used to stamp exported snapshots, for tests.
func (s *Server) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "request_validation",
		Description: "Request validation for a model: ensures its status row exists, marks it Scheduled for QG1 and records an audit event.",
	}, s.handleRequestValidation)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "approve_milestone",
		Description: "Record a gate decision (Passed or KO) for a model at QG0, QG1 or QG2.",
	}, s.handleApproveMilestone)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "flag_risk",
		Description: "Flag a risk on a tracked action: raises its priority, prepends the risk to its answers and marks the first linked model as Issue.",
	}, s.handleFlagRisk)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "upload_evidence",
		Description: "Attach an evidence URI to an action or model and record an audit event.",
	}, s.handleUploadEvidence)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "close_case",
		Description: "Close a model's case: completes open linked actions, pushes MPVAL rows and records a Case Closed event.",
	}, s.handleCloseCase)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "kpi_summary",
		Description: "Return portfolio, validation, risk and owner-load KPIs for the whole board.",
	}, s.handleKPISummary)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "export_snapshot",
		Description: "Export the full board state as a versioned snapshot document.",
	}, s.handleExportSnapshot)
}

// --- Tool input/output types ---

type requestValidationInput struct {
	ModelID        string `json:"model_id" jsonschema:"model identifier to validate"`
	ModelVersionID string `json:"model_version_id,omitempty" jsonschema:"optional model version tag"`
	Scheduled      string `json:"scheduled,omitempty" jsonschema:"optional ISO date (YYYY-MM-DD) the validation is scheduled for"`
	Note           string `json:"note,omitempty" jsonschema:"optional free-text note"`
}

type approveMilestoneInput struct {
	ModelID  string `json:"model_id" jsonschema:"model identifier"`
	Gate     string `json:"gate" jsonschema:"milestone gate (QG0, QG1 or QG2)"`
	Decision string `json:"decision" jsonschema:"gate decision (Passed or KO)"`
	Note     string `json:"note,omitempty" jsonschema:"optional free-text note"`
}

type flagRiskInput struct {
	ActionID    string `json:"action_id" jsonschema:"action identifier carrying the risk"`
	Severity    string `json:"severity" jsonschema:"risk severity (HIGH, MEDIUM or LOW)"`
	Description string `json:"description" jsonschema:"what the risk is"`
}

type uploadEvidenceInput struct {
	ActionID string `json:"action_id,omitempty" jsonschema:"action the evidence belongs to"`
	ModelID  string `json:"model_id,omitempty" jsonschema:"model the evidence belongs to (resolved from the action when omitted)"`
	URI      string `json:"uri" jsonschema:"evidence location (URL or object key)"`
	Type     string `json:"type,omitempty" jsonschema:"evidence kind, e.g. report"`
	Note     string `json:"note,omitempty" jsonschema:"optional free-text note"`
}

type closeCaseInput struct {
	ModelID string `json:"model_id" jsonschema:"model whose case to close"`
	Note    string `json:"note,omitempty" jsonschema:"optional free-text note"`
}

type actionOutput struct {
	Applied  bool               `json:"applied"`
	Skipped  string             `json:"skipped,omitempty"`
	EventID  string             `json:"event_id,omitempty"`
	Warnings []domain.Violation `json:"warnings,omitempty"`
}

type kpiSummaryInput struct{}

type kpiSummaryOutput struct {
	Portfolio  core.PortfolioKPIs    `json:"portfolio"`
	Validation core.ValidationKPIs   `json:"validation"`
	Risk       core.RiskKPIs         `json:"risk"`
	OwnerLoad  []core.OwnerLoadEntry `json:"owner_load"`
	Filters    domain.Filters        `json:"filters"`
}

type exportSnapshotInput struct{}

type exportSnapshotOutput struct {
	Snapshot snapshot.Document `json:"snapshot"`
}

// --- Tool handlers ---

func toActionOutput(outcome core.Outcome, res domain.Result) actionOutput {
	return actionOutput{
		Applied:  outcome.Applied,
		Skipped:  outcome.Skipped,
		EventID:  outcome.EventID,
		Warnings: res.Violations,
	}
}

func (s *Server) handleRequestValidation(ctx context.Context, _ *sdkmcp.CallToolRequest, input requestValidationInput) (*sdkmcp.CallToolResult, actionOutput, error) {
	outcome, res, err := s.board.RequestValidation(ctx, core.RequestValidationInput{
		ModelID:        input.ModelID,
		ModelVersionID: input.ModelVersionID,
		Scheduled:      input.Scheduled,
		Note:           input.Note,
	})
	if err != nil {
		return nil, actionOutput{}, fmt.Errorf("request_validation: %w", err)
	}
	s.log.Info("validation requested", "model", input.ModelID, "event", outcome.EventID)
	return nil, toActionOutput(outcome, res), nil
}

func (s *Server) handleApproveMilestone(ctx context.Context, _ *sdkmcp.CallToolRequest, input approveMilestoneInput) (*sdkmcp.CallToolResult, actionOutput, error) {
	outcome, res, err := s.board.ApproveMilestone(ctx, core.ApproveMilestoneInput{
		ModelID:  input.ModelID,
		Gate:     domain.Gate(input.Gate),
		Decision: domain.Decision(input.Decision),
		Note:     input.Note,
	})
	if err != nil {
		return nil, actionOutput{}, fmt.Errorf("approve_milestone: %w", err)
	}
	s.log.Info("milestone decided", "model", input.ModelID, "gate", input.Gate, "decision", input.Decision)
	return nil, toActionOutput(outcome, res), nil
}

func (s *Server) handleFlagRisk(ctx context.Context, _ *sdkmcp.CallToolRequest, input flagRiskInput) (*sdkmcp.CallToolResult, actionOutput, error) {
	outcome, res, err := s.board.FlagRisk(ctx, core.FlagRiskInput{
		ActionID:    input.ActionID,
		Severity:    domain.Priority(input.Severity),
		Description: input.Description,
	})
	if err != nil {
		return nil, actionOutput{}, fmt.Errorf("flag_risk: %w", err)
	}
	return nil, toActionOutput(outcome, res), nil
}

func (s *Server) handleUploadEvidence(ctx context.Context, _ *sdkmcp.CallToolRequest, input uploadEvidenceInput) (*sdkmcp.CallToolResult, actionOutput, error) {
	outcome, res, err := s.board.UploadEvidence(ctx, core.UploadEvidenceInput{
		ActionID: input.ActionID,
		ModelID:  input.ModelID,
		URI:      input.URI,
		Type:     input.Type,
		Note:     input.Note,
	})
	if err != nil {
		return nil, actionOutput{}, fmt.Errorf("upload_evidence: %w", err)
	}
	return nil, toActionOutput(outcome, res), nil
}

func (s *Server) handleCloseCase(ctx context.Context, _ *sdkmcp.CallToolRequest, input closeCaseInput) (*sdkmcp.CallToolResult, actionOutput, error) {
	outcome, res, err := s.board.CloseCase(ctx, core.CloseCaseInput{
		ModelID: input.ModelID,
		Note:    input.Note,
	})
	if err != nil {
		return nil, actionOutput{}, fmt.Errorf("close_case: %w", err)
	}
	s.log.Info("case closed", "model", input.ModelID, "event", outcome.EventID)
	return nil, toActionOutput(outcome, res), nil
}

func (s *Server) handleKPISummary(ctx context.Context, _ *sdkmcp.CallToolRequest, _ kpiSummaryInput) (*sdkmcp.CallToolResult, kpiSummaryOutput, error) {
	portfolio, err := s.board.KPIPortfolio(ctx)
	if err != nil {
		return nil, kpiSummaryOutput{}, fmt.Errorf("kpi_summary: %w", err)
	}
	validation, err := s.board.KPIValidation(ctx)
	if err != nil {
		return nil, kpiSummaryOutput{}, fmt.Errorf("kpi_summary: %w", err)
	}
	risk, err := s.board.KPIRisk(ctx)
	if err != nil {
		return nil, kpiSummaryOutput{}, fmt.Errorf("kpi_summary: %w", err)
	}
	ownerLoad, err := s.board.KPIOwnerLoad(ctx)
	if err != nil {
		return nil, kpiSummaryOutput{}, fmt.Errorf("kpi_summary: %w", err)
	}
	return nil, kpiSummaryOutput{
		Portfolio:  portfolio,
		Validation: validation,
		Risk:       risk,
		OwnerLoad:  ownerLoad,
		Filters:    s.board.Filters(),
	}, nil
}

func (s *Server) handleExportSnapshot(ctx context.Context, _ *sdkmcp.CallToolRequest, _ exportSnapshotInput) (*sdkmcp.CallToolResult, exportSnapshotOutput, error) {
	tables, filters, err := s.board.ExportTables(ctx)
	if err != nil {
		return nil, exportSnapshotOutput{}, fmt.Errorf("export_snapshot: %w", err)
	}
	at := s.nowFn()
	doc := snapshot.New(newSnapshotID(at), at, tables, filters)
	return nil, exportSnapshotOutput{Snapshot: doc}, nil
}

func newSnapshotID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}
