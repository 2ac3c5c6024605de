package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/oilshock/brentcp/core"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// reportConfig applies the shared report arguments to a copy of the base config.
func (h *toolHandler) reportConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	if m := request.GetString("model", ""); m != "" {
		kind := schema.ModelKind(m)
		if kind != schema.BasicKind && kind != schema.EventKind {
			return nil, fmt.Errorf("invalid model '%s'. must be basic, event", m)
		}
		cfg.Kind = kind
	}
	if id := request.GetInt("run_id", 0); id > 0 {
		cfg.RunID = int64(id)
	}
	if p := request.GetFloat("hdi_prob", 0); p != 0 {
		if p <= 0 || p >= 1 {
			return nil, fmt.Errorf("hdi_prob must be between 0 and 1, got %g", p)
		}
		cfg.Model.HDIProb = p
	}
	return cfg, nil
}

// jsonResult renders v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleRunModels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.DataPath = request.GetString("data_path", "")
	cfg.Model.NChangepoints = request.GetInt("n_changepoints", cfg.Model.NChangepoints)
	cfg.Sample.Draws = request.GetInt("samples", cfg.Sample.Draws)
	cfg.Sample.Tune = request.GetInt("tune", cfg.Sample.Tune)
	cfg.Sample.Chains = request.GetInt("chains", cfg.Sample.Chains)
	if seed := request.GetInt("seed", -1); seed >= 0 {
		cfg.Sample.Seed = uint64(seed)
	}

	switch {
	case cfg.DataPath == "":
		return mcp.NewToolResultError("invalid run parameters: data_path is required"), nil
	case cfg.Model.NChangepoints < 0 || cfg.Model.NChangepoints > contract.MaxChangepoints:
		return mcp.NewToolResultError(fmt.Sprintf("invalid run parameters: n_changepoints must be between 0 and %d", contract.MaxChangepoints)), nil
	case cfg.Sample.Draws < 1:
		return mcp.NewToolResultError("invalid run parameters: samples must be at least 1"), nil
	case cfg.Sample.Tune < 0:
		return mcp.NewToolResultError("invalid run parameters: tune must be non-negative"), nil
	case cfg.Sample.Chains < 1:
		return mcp.NewToolResultError("invalid run parameters: chains must be at least 1"), nil
	}

	results, err := core.RunModels(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	return jsonResult(core.Status(results, cfg.Model))
}

func (h *toolHandler) handleGetChangePoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cps, err := core.GetChangePointsResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("change points failed: %v", err)), nil
	}
	return jsonResult(cps)
}

func (h *toolHandler) handleGetEventCoefficients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	coefs, err := core.GetEventCoefficientsResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("event coefficients failed: %v", err)), nil
	}
	return jsonResult(coefs)
}

func (h *toolHandler) handleGetSegments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	segs, err := core.GetSegmentsResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("segments failed: %v", err)), nil
	}
	return jsonResult(segs)
}

func (h *toolHandler) handleGetComparison(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cmp, err := core.GetComparisonResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}
	return jsonResult(cmp)
}

func (h *toolHandler) handleGetDiagnostics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	report, err := core.GetDiagnosticsResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagnostics failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	status, err := core.GetStatusResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	return jsonResult(status)
}
