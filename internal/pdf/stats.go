package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/source"
)

// Stats handles PDF statistics operations
type Stats struct {
	maxFileSize int64
	validator   *Validator
}

// NewStats creates a new PDF stats analyzer with the specified constraints
func NewStats(maxFileSize int64) *Stats {
	return &Stats{
		maxFileSize: maxFileSize,
		validator:   NewValidator(maxFileSize),
	}
}

// GetFileStats returns document properties and the merge related facts of
// a single PDF file: encryption, permissions, tagging and form fields
func (s *Stats) GetFileStats(req PDFStatsFileRequest) (*PDFStatsFileResult, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(req.Path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", req.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := s.validator.ValidateFileInfo(req.Path, fileInfo); err != nil {
		return nil, err
	}

	doc, err := source.Open(req.Path)
	if err != nil {
		return nil, err
	}
	pages, err := doc.PageCount()
	if err != nil {
		return nil, err
	}

	result := &PDFStatsFileResult{
		Path:         req.Path,
		Size:         fileInfo.Size(),
		Pages:        pages,
		ModifiedDate: fileInfo.ModTime().Format("2006-01-02 15:04:05"),
		Tagged:       source.Tagged(doc),
	}
	if p, ok := doc.Permissions(); ok {
		result.Encrypted = true
		result.Permissions = security.NewPermissions(p).String()
	}
	if fields, err := source.ReadFields(doc, nil); err == nil {
		result.Fields = len(fields)
	}

	s.extractMetadata(req.Path, result)
	return result, nil
}

// extractMetadata reads the document information dictionary with
// ledongthuc/pdf. Failures leave the metadata empty.
func (s *Stats) extractMetadata(path string, result *PDFStatsFileResult) {
	defer func() {
		// the reader panics on some malformed values
		_ = recover()
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return
	}

	text := func(key string) string {
		if v := info.Key(key); !v.IsNull() {
			return strings.TrimSpace(v.Text())
		}
		return ""
	}
	result.Title = text("Title")
	result.Author = text("Author")
	result.Producer = text("Producer")
	result.CreatedDate = text("CreationDate")
}
