package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-pdf-merger/internal/config"
	"github.com/a3tai/mcp-pdf-merger/internal/descriptions"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	pdfMergeTool := mcp.NewTool(
		"pdf_merge",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_merge")),
		mcp.WithArray("inputs",
			mcp.Required(),
			mcp.Description("Input files in output order. Each item is a path or an object with path and pages (e.g. \"1-3,5\")"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":  map[string]any{"type": "string"},
					"pages": map[string]any{"type": "string"},
				},
				"required": []string{"path"},
			}),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Output file name, relative to the output directory"),
		),
		mcp.WithBoolean("tagged",
			mcp.Description("Keep the logical structure of tagged inputs (server default if omitted)"),
		),
		mcp.WithBoolean("merge_fields",
			mcp.Description("Join same-named form fields into one form (server default if omitted)"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace an existing output file"),
		),
		mcp.WithBoolean("verify",
			mcp.Description("Validate and read back the output after writing"),
		),
	)
	s.mcpServer.AddTool(pdfMergeTool, s.handlePDFMerge)

	pdfInspectFieldsTool := mcp.NewTool(
		"pdf_inspect_fields",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_inspect_fields")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("pages",
			mcp.Description("Only list fields with widgets on these pages, e.g. \"1-3,5\""),
		),
	)
	s.mcpServer.AddTool(pdfInspectFieldsTool, s.handlePDFInspectFields)

	pdfValidateFileTool := mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(pdfValidateFileTool, s.handlePDFValidateFile)

	pdfStatsFileTool := mcp.NewTool(
		"pdf_stats_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_stats_file")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(pdfStatsFileTool, s.handlePDFStatsFile)

	pdfServerInfoTool := mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	)
	s.mcpServer.AddTool(pdfServerInfoTool, s.handlePDFServerInfo)
}

// Handler functions
func (s *Server) handlePDFMerge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	inputs, err := parseInputs(args["inputs"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFMergeRequest{
		Inputs:      inputs,
		Output:      output,
		Tagged:      optionalBool(args, "tagged"),
		MergeFields: optionalBool(args, "merge_fields"),
		Overwrite:   flag(args, "overwrite"),
		Verify:      flag(args, "verify"),
	}
	result, err := s.pdfService.PDFMerge(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFMergeResult(result)), nil
}

// parseInputs accepts a list of paths or of {path, pages} objects
func parseInputs(raw any) ([]pdf.PDFMergeInput, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("inputs must be a non-empty array")
	}

	inputs := make([]pdf.PDFMergeInput, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			inputs = append(inputs, pdf.PDFMergeInput{Path: v})
		case map[string]any:
			path, _ := v["path"].(string)
			if path == "" {
				return nil, fmt.Errorf("inputs[%d]: path is required", i)
			}
			pages, _ := v["pages"].(string)
			inputs = append(inputs, pdf.PDFMergeInput{Path: path, Pages: pages})
		default:
			return nil, fmt.Errorf("inputs[%d]: expected a path or an object, got %T", i, item)
		}
	}
	return inputs, nil
}

func optionalBool(args map[string]any, key string) *bool {
	if b, ok := args[key].(bool); ok {
		return &b
	}
	return nil
}

func flag(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func (s *Server) handlePDFInspectFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages, _ := request.GetArguments()["pages"].(string)

	result, err := s.pdfService.PDFInspectFields(pdf.PDFInspectFieldsRequest{Path: path, Pages: pages})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFInspectFieldsResult(result)), nil
}

func (s *Server) handlePDFValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFValidateFileRequest{Path: path}
	result, err := s.pdfService.PDFValidateFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable", result.Path)
		if r := result.Report; r != nil {
			responseText += fmt.Sprintf("\nPages: %d\nWidgets: %d\nForm fields: %d\nTagged: %t",
				r.Pages, r.Widgets, r.Fields, r.Tagged)
		}
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFStatsFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFStatsFileRequest{Path: path}
	result, err := s.pdfService.PDFStatsFile(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFStatsFileResult(result)), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.PDFServerInfoRequest{}
	result, err := s.pdfService.PDFServerInfo(ctx, req, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatPDFMergeResult(result *pdf.PDFMergeResult) string {
	text := fmt.Sprintf("Merged %d input(s) into %s\n", len(result.Sources), result.Output)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Objects: %d\n", result.Objects)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Tagged: %t, Merge fields: %t\n", result.Tagged, result.MergeFields)

	text += "\nSources:\n"
	for i, src := range result.Sources {
		text += fmt.Sprintf("%d. %s: %d page(s)", i+1, src.Path, len(src.Pages))
		if src.Fields > 0 {
			text += fmt.Sprintf(", %d field(s)", src.Fields)
		}
		if src.Tagged {
			text += ", tagged"
		}
		text += "\n"
	}

	if len(result.Warnings) > 0 {
		text += fmt.Sprintf("\nWarnings (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			text += fmt.Sprintf("- %s\n", w)
		}
	}

	text += fmt.Sprintf("\nEvents: %s", result.Events)
	if result.Refused > 0 {
		text += fmt.Sprintf(", %d object(s) intentionally not copied", result.Refused)
	}
	text += "\n"

	if r := result.Verification; r != nil {
		text += fmt.Sprintf("\nVerified: %d pages, %d widgets, %d form fields\n", r.Pages, r.Widgets, r.Fields)
		if r.XRef != nil {
			text += fmt.Sprintf("Cross-reference: %d objects in use, %d free\n", r.XRef.InUse, r.XRef.Free)
		}
	}

	return text
}

func (s *Server) formatPDFInspectFieldsResult(result *pdf.PDFInspectFieldsResult) string {
	text := fmt.Sprintf("Form fields of %s: %d\n", result.Path, len(result.Fields))
	if result.Tagged {
		text += "Document is tagged\n"
	}
	if result.NeedAppearances {
		text += "Viewer regenerates appearances (NeedAppearances)\n"
	}

	for i, field := range result.Fields {
		text += fmt.Sprintf("\n%d. %s (%s)", i+1, field.Name, field.Type)
		if field.Value != "" {
			text += fmt.Sprintf(" = %q", field.Value)
		}
		text += "\n"
		pages := make([]string, 0, len(field.Widgets))
		for _, w := range field.Widgets {
			pages = append(pages, fmt.Sprintf("%d", w.Page))
		}
		text += fmt.Sprintf("   Widgets on pages: %s\n", strings.Join(pages, ", "))
	}

	if len(result.CalculationOrder) > 0 {
		text += fmt.Sprintf("\nCalculation order: %s\n", strings.Join(result.CalculationOrder, ", "))
	}

	return text
}

func (s *Server) formatPDFStatsFileResult(result *pdf.PDFStatsFileResult) string {
	text := "PDF File Statistics\n"
	text += fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Modified: %s\n", result.ModifiedDate)
	text += fmt.Sprintf("Tagged: %t\n", result.Tagged)
	text += fmt.Sprintf("Form fields: %d\n", result.Fields)

	if result.Encrypted {
		text += fmt.Sprintf("Encrypted: %s\n", result.Permissions)
	}
	if result.Title != "" {
		text += fmt.Sprintf("Title: %s\n", result.Title)
	}
	if result.Author != "" {
		text += fmt.Sprintf("Author: %s\n", result.Author)
	}
	if result.Producer != "" {
		text += fmt.Sprintf("Producer: %s\n", result.Producer)
	}
	if result.CreatedDate != "" {
		text += fmt.Sprintf("Created: %s\n", result.CreatedDate)
	}

	return text
}

func (s *Server) formatPDFServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Input Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📤 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("⚙️  Defaults: tagged=%t, merge_fields=%t\n\n", result.Tagged, result.MergeFields)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 { // Limit to first 10 files for readability
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		if result.Truncated {
			text += "   (listing truncated)\n"
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in input directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx is done
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer)
	log.Printf("Starting PDF MCP server on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
		return ctx.Err()
	}
}
