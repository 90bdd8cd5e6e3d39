package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-merger/internal/config"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/merge"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/source"
)

// writePDF writes a document of pages empty pages to dir/name
func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	doc := source.NewMemory(name)
	for i := 0; i < pages; i++ {
		page := object.NewDictionary()
		page.Set("Resources", object.NewDictionary())
		doc.AddPage(page)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	m := merge.New(f, merge.Options{})
	if err := m.MergeDocument(doc, nil); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if _, err := m.Finalize(); err != nil {
		t.Fatalf("failed to finalize %s: %v", path, err)
	}
	return path
}

func newTestServer(t *testing.T, mode string) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Mode:         mode,
		Host:         "127.0.0.1",
		Port:         0,
		PDFDirectory: dir,
		Version:      "1.0.0",
		ServerName:   "test-server",
		LogLevel:     "info",
		MaxFileSize:  1024 * 1024,
	}
	pdfService, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory, cfg.OutputDir(), pdf.MergeDefaults{
		Tagged:      cfg.Tagged,
		MergeFields: cfg.MergeFields,
	})
	if err != nil {
		t.Fatalf("Failed to create PDF service: %v", err)
	}
	server, err := NewServer(cfg, pdfService)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server, dir
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	pdfService, err := pdf.NewService(1024, t.TempDir(), "", pdf.MergeDefaults{})
	if err != nil {
		t.Fatalf("Failed to create PDF service: %v", err)
	}

	if _, err := NewServer(nil, pdfService); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("expected error for nil service")
	}

	cfg := &config.Config{Mode: "stdio", ServerName: "test-server", Version: "1.0.0"}
	server, err := NewServer(cfg, pdfService)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.config != cfg || server.pdfService != pdfService || server.mcpServer == nil {
		t.Error("server not initialized correctly")
	}
}

func TestServer_HandlePDFMerge(t *testing.T) {
	server, dir := newTestServer(t, "stdio")
	writePDF(t, dir, "a.pdf", 2)
	writePDF(t, dir, "b.pdf", 3)

	result, err := server.handlePDFMerge(context.Background(), call(map[string]interface{}{
		"inputs": []interface{}{
			"a.pdf",
			map[string]interface{}{"path": "b.pdf", "pages": "2-"},
		},
		"output": "out.pdf",
		"verify": true,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	text := extractTextFromResult(result)
	for _, want := range []string{"Merged 2 input(s)", "Pages: 4", "Verified: 4 pages"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in result, got: %s", want, text)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "out.pdf")); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	server, _ := newTestServer(t, "stdio")

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
	}{
		{name: "merge without output", handler: server.handlePDFMerge, args: map[string]interface{}{"inputs": []interface{}{"a.pdf"}}},
		{name: "merge without inputs", handler: server.handlePDFMerge, args: map[string]interface{}{"output": "o.pdf"}},
		{name: "merge with empty inputs", handler: server.handlePDFMerge, args: map[string]interface{}{"inputs": []interface{}{}, "output": "o.pdf"}},
		{name: "merge with bad input", handler: server.handlePDFMerge, args: map[string]interface{}{"inputs": []interface{}{42}, "output": "o.pdf"}},
		{name: "inspect without path", handler: server.handlePDFInspectFields, args: map[string]interface{}{}},
		{name: "validate without path", handler: server.handlePDFValidateFile, args: map[string]interface{}{}},
		{name: "stats without path", handler: server.handlePDFStatsFile, args: map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), call(tt.args))
			if err != nil {
				t.Fatalf("handler should report errors in the result, got: %v", err)
			}
			if !result.IsError {
				t.Errorf("expected an error result, got: %s", extractTextFromResult(result))
			}
		})
	}
}

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs([]interface{}{
		"a.pdf",
		map[string]interface{}{"path": "b.pdf", "pages": "1,3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []pdf.PDFMergeInput{{Path: "a.pdf"}, {Path: "b.pdf", Pages: "1,3"}}
	if len(inputs) != len(want) || inputs[0] != want[0] || inputs[1] != want[1] {
		t.Errorf("parseInputs() = %+v, want %+v", inputs, want)
	}

	if _, err := parseInputs([]interface{}{map[string]interface{}{"pages": "1"}}); err == nil {
		t.Error("expected error for input without path")
	}
	if _, err := parseInputs("a.pdf"); err == nil {
		t.Error("expected error for a non-array")
	}
}

func TestServer_HandlePDFValidateFile(t *testing.T) {
	server, dir := newTestServer(t, "stdio")
	valid := writePDF(t, dir, "valid.pdf", 1)
	invalid := filepath.Join(dir, "invalid.pdf")
	if err := os.WriteFile(invalid, make([]byte, 1024), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result, err := server.handlePDFValidateFile(context.Background(), call(map[string]interface{}{"path": valid}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "is valid") || !strings.Contains(text, "Pages: 1") {
		t.Errorf("expected valid result, got: %s", text)
	}

	result, err = server.handlePDFValidateFile(context.Background(), call(map[string]interface{}{"path": invalid}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "PDF validation failed") {
		t.Errorf("expected validation to fail, got: %s", text)
	}
}

func TestServer_HandlePDFStatsAndFields(t *testing.T) {
	server, dir := newTestServer(t, "stdio")
	path := writePDF(t, dir, "doc.pdf", 2)

	result, err := server.handlePDFStatsFile(context.Background(), call(map[string]interface{}{"path": path}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "Pages: 2") {
		t.Errorf("expected page count, got: %s", text)
	}

	result, err = server.handlePDFInspectFields(context.Background(), call(map[string]interface{}{"path": path}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, ": 0") {
		t.Errorf("expected no fields, got: %s", text)
	}
}

func TestServer_HandlePDFServerInfo(t *testing.T) {
	server, dir := newTestServer(t, "stdio")
	writePDF(t, dir, "listed.pdf", 1)

	result, err := server.handlePDFServerInfo(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	for _, want := range []string{"test-server v1.0.0", "listed.pdf", "pdf_merge", "pdf_inspect_fields"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in server info, got: %s", want, text)
		}
	}
}

func TestServer_Run(t *testing.T) {
	server, _ := newTestServer(t, "server")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := server.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	server.config.Mode = "invalid"
	if err := server.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "unsupported mode") {
		t.Errorf("Run() error = %v, want unsupported mode", err)
	}
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
