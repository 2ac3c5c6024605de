// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oilshock/brentcp/internal/contract"
)

// NewMCPServer initializes and configures the brentcp MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Brent Change-Point Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	modelArg := mcp.WithString("model", mcp.Description("Which fit to read (basic or event). Defaults to 'event'."), mcp.Enum("basic", "event"))
	runArg := mcp.WithNumber("run_id", mcp.Description("Stored run to read. Defaults to the latest run."))
	hdiArg := mcp.WithNumber("hdi_prob", mcp.Description("Credible mass of the reported intervals, in (0, 1)."))

	// --- 1. Tool: run_models ---
	s.AddTool(mcp.NewTool("run_models",
		mcp.WithDescription("Fit the basic and event change-point models to a CSV of returns and store the run."),
		mcp.WithString("data_path", mcp.Description("Path to the CSV with Date, target and event columns."), mcp.Required()),
		mcp.WithNumber("n_changepoints", mcp.Description("Number of change points to fit.")),
		mcp.WithNumber("samples", mcp.Description("Posterior draws per chain.")),
		mcp.WithNumber("tune", mcp.Description("Tuning iterations per chain.")),
		mcp.WithNumber("chains", mcp.Description("Number of independent chains.")),
		mcp.WithNumber("seed", mcp.Description("Random seed.")),
	), h.handleRunModels)

	// --- 2. Tool: get_changepoints ---
	s.AddTool(mcp.NewTool("get_changepoints",
		mcp.WithDescription("List the detected change points with their dates and HDI bounds."),
		modelArg, runArg, hdiArg,
	), h.handleGetChangePoints)

	// --- 3. Tool: get_event_coefficients ---
	s.AddTool(mcp.NewTool("get_event_coefficients",
		mcp.WithDescription("List the event covariate effects of the event model and whether their HDI excludes zero."),
		runArg, hdiArg,
	), h.handleGetEventCoefficients)

	// --- 4. Tool: get_segments ---
	s.AddTool(mcp.NewTool("get_segments",
		mcp.WithDescription("List the regimes between change points with model and raw return statistics."),
		modelArg, runArg,
	), h.handleGetSegments)

	// --- 5. Tool: get_model_comparison ---
	s.AddTool(mcp.NewTool("get_model_comparison",
		mcp.WithDescription("Compare the basic and event models by WAIC (lower is better)."),
		runArg,
	), h.handleGetComparison)

	// --- 6. Tool: get_diagnostics ---
	s.AddTool(mcp.NewTool("get_diagnostics",
		mcp.WithDescription("Report convergence, posterior predictive checks and a parameter summary for one fit."),
		modelArg, runArg, hdiArg,
	), h.handleGetDiagnostics)

	// --- 7. Tool: get_model_status ---
	s.AddTool(mcp.NewTool("get_model_status",
		mcp.WithDescription("Report which models are fitted, their comparison and event model convergence."),
		runArg,
	), h.handleGetStatus)

	return s
}

// StartMCPServer starts the brentcp MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
