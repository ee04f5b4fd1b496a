// Package mcpadapter exposes parts-list parsing, queue status and catalog lookup as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/dakshin/partsquote/internal/core/domain"
	"github.com/dakshin/partsquote/internal/core/ports"
)

const (
	serverName    = "partsquote"
	serverVersion = "1.0.0"
)

type Dependencies struct {
	Importer ports.PartsListImporter
	Queue    ports.QueueService
	Catalog  ports.CatalogReader
	Quotes   ports.QuoteBuilder
}

type Server struct {
	deps Dependencies
	mcp  *server.MCPServer
}

func NewServer(deps Dependencies) *Server {
	s := &Server{
		deps: deps,
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// Handler serves the tools over streamable HTTP without session state.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

func (s *Server) registerTools() {
	if s.deps.Importer != nil {
		s.mcp.AddTool(mcp.NewTool("parse_parts_list",
			mcp.WithDescription("Parse a pasted supplier parts list into line items with brand and category."),
			mcp.WithString("text", mcp.Required(), mcp.Description("Parts list, one row per line: seq, part number, description, qty, unit price[, total].")),
		), s.parsePartsList)
	}
	if s.deps.Queue != nil {
		s.mcp.AddTool(mcp.NewTool("queue_status",
			mcp.WithDescription("Report enrichment queue counts and the most recent entries."),
			mcp.WithString("status", mcp.Description("Only entries in this status."), mcp.Enum("pending", "processing", "completed", "failed", "incomplete")),
			mcp.WithNumber("limit", mcp.Description("Maximum entries to return.")),
		), s.queueStatus)
	}
	if s.deps.Catalog != nil {
		s.mcp.AddTool(mcp.NewTool("lookup_parts",
			mcp.WithDescription("Search enriched catalog parts by part number or description."),
			mcp.WithString("search", mcp.Description("Case-insensitive match on part number or description.")),
			mcp.WithString("brand", mcp.Description("Exact brand.")),
			mcp.WithString("category", mcp.Description("Exact category.")),
			mcp.WithNumber("limit", mcp.Description("Maximum parts to return.")),
		), s.lookupParts)
	}
	if s.deps.Quotes != nil {
		s.mcp.AddTool(mcp.NewTool("build_quote",
			mcp.WithDescription("Total a parts list into a quote with tax and a category summary."),
			mcp.WithString("text", mcp.Required(), mcp.Description("Parts list text.")),
			mcp.WithString("customer_code", mcp.Description("Customer code used in the reference number.")),
			mcp.WithString("tax_region", mcp.Description("UAE, KSA, UK, INDIA or AFRICA.")),
			mcp.WithString("tax_rate", mcp.Description("Explicit tax rate such as 0.05; overrides tax_region.")),
		), s.buildQuote)
	}
}

func (s *Server) parsePartsList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.deps.Importer.Parse(ctx, text)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(report)
}

func (s *Server) queueStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := domain.QueueFilter{Limit: req.GetInt("limit", 20)}
	if raw := req.GetString("status", ""); raw != "" {
		status, err := domain.ParseQueueStatus(raw)
		if err != nil {
			return toolError(err), nil
		}
		filter.Statuses = []domain.QueueStatus{status}
	}
	snapshot, err := s.deps.Queue.Snapshot(ctx, filter)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(snapshot)
}

func (s *Server) lookupParts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parts, err := s.deps.Catalog.ListParts(ctx, domain.PartFilter{
		Search:   req.GetString("search", ""),
		Brand:    req.GetString("brand", ""),
		Category: req.GetString("category", ""),
		Limit:    req.GetInt("limit", 20),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"parts": parts, "count": len(parts)})
}

func (s *Server) buildQuote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := domain.QuoteOptions{
		CustomerCode: req.GetString("customer_code", ""),
		TaxRegion:    req.GetString("tax_region", ""),
	}
	if raw := req.GetString("tax_rate", ""); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid tax_rate %q", raw)), nil
		}
		opts.TaxRate = &rate
	}
	quote, err := s.deps.Quotes.BuildQuote(ctx, text, opts)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(quote)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
