package pdf

import "github.com/a3tai/mcp-pdf-merger/internal/pdf/verify"

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// PDFMergeInput names one source file and the pages to take from it
type PDFMergeInput struct {
	Path  string `json:"path"`
	Pages string `json:"pages,omitempty"` // e.g. "1-3,5"; empty means all pages
}

// PDFMergeRequest represents a request to merge PDF files into one output
type PDFMergeRequest struct {
	Inputs      []PDFMergeInput `json:"inputs"`
	Output      string          `json:"output"`
	Tagged      *bool           `json:"tagged,omitempty"`       // nil uses the configured default
	MergeFields *bool           `json:"merge_fields,omitempty"` // nil uses the configured default
	Overwrite   bool            `json:"overwrite,omitempty"`
	Verify      bool            `json:"verify,omitempty"`
}

// PDFInspectFieldsRequest represents a request to list the form fields of a PDF file
type PDFInspectFieldsRequest struct {
	Path  string `json:"path"`
	Pages string `json:"pages,omitempty"`
}

// PDFValidateFileRequest represents a request to validate a PDF file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// PDFStatsFileRequest represents a request to get stats about a PDF file
type PDFStatsFileRequest struct {
	Path string `json:"path"`
}

// PDFServerInfoRequest represents a request to get server information and capabilities
type PDFServerInfoRequest struct {
	// No parameters needed for server info
}

// Response Types

// MergeSourceInfo reports what was taken from one input
type MergeSourceInfo struct {
	Path   string `json:"path"`
	Pages  []int  `json:"pages"`
	Fields int    `json:"fields"`
	Tagged bool   `json:"tagged"`
}

// PDFMergeResult represents the result of a merge operation
type PDFMergeResult struct {
	Output       string            `json:"output"`
	Pages        int               `json:"pages"`
	Objects      int               `json:"objects"`
	Size         int64             `json:"size"`
	Tagged       bool              `json:"tagged"`
	MergeFields  bool              `json:"merge_fields"`
	Sources      []MergeSourceInfo `json:"sources"`
	Warnings     []string          `json:"warnings,omitempty"`
	Refused      int               `json:"refused_copies"`
	Events       string            `json:"events"`
	Verification *verify.Report    `json:"verification,omitempty"`
}

// WidgetInfo locates one widget annotation of a field
type WidgetInfo struct {
	Page int `json:"page"`
	Tab  int `json:"tab"`
}

// FieldInfo describes one terminal form field
type FieldInfo struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Value   string       `json:"value,omitempty"`
	Widgets []WidgetInfo `json:"widgets"`
}

// PDFInspectFieldsResult represents the form fields found in a PDF file
type PDFInspectFieldsResult struct {
	Path             string      `json:"path"`
	Fields           []FieldInfo `json:"fields"`
	CalculationOrder []string    `json:"calculation_order,omitempty"`
	NeedAppearances  bool        `json:"need_appearances"`
	Tagged           bool        `json:"tagged"`
}

// PDFValidateFileResult represents the result of a PDF validation operation
type PDFValidateFileResult struct {
	Valid   bool           `json:"valid"`
	Path    string         `json:"path"`
	Message string         `json:"message,omitempty"`
	Report  *verify.Report `json:"report,omitempty"`
}

// PDFStatsFileResult represents the result of a PDF file stats operation
type PDFStatsFileResult struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Pages        int    `json:"pages"`
	CreatedDate  string `json:"created_date,omitempty"`
	ModifiedDate string `json:"modified_date"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Producer     string `json:"producer,omitempty"`
	Encrypted    bool   `json:"encrypted"`
	Permissions  string `json:"permissions,omitempty"`
	Tagged       bool   `json:"tagged"`
	Fields       int    `json:"fields"`
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	OutputDirectory   string     `json:"output_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	Tagged            bool       `json:"tagged"`
	MergeFields       bool       `json:"merge_fields"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	Truncated         bool       `json:"truncated"`
	UsageGuidance     string     `json:"usage_guidance"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}
