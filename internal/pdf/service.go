package pdf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/merge"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/pagerange"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/source"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/verify"
)

// MergeDefaults apply to merge requests that leave an option unset
type MergeDefaults struct {
	Tagged      bool
	MergeFields bool
	Producer    string
}

// Service handles PDF file operations by orchestrating the PDF components
type Service struct {
	maxFileSize     int64
	validator       *Validator
	stats           *Stats
	info            *PDFServerInfo
	pathValidator   *security.PathValidator
	outputValidator *security.PathValidator
	defaults        MergeDefaults
	logger          *log.Logger
}

// NewService creates a new PDF service reading inputs below inputDirectory
// and writing outputs below outputDirectory. An empty outputDirectory
// writes next to the inputs.
func NewService(maxFileSize int64, inputDirectory, outputDirectory string, defaults MergeDefaults) (*Service, error) {
	pathValidator, err := security.NewPathValidator(inputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}
	if outputDirectory == "" {
		outputDirectory = inputDirectory
	}
	outputValidator, err := security.NewPathValidator(outputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create output path validator: %w", err)
	}

	s := &Service{
		maxFileSize:     maxFileSize,
		validator:       NewValidator(maxFileSize),
		stats:           NewStats(maxFileSize),
		pathValidator:   pathValidator,
		outputValidator: outputValidator,
		defaults:        defaults,
		logger:          log.New(io.Discard, "", 0),
	}
	s.info = NewPDFServerInfo(s)
	return s, nil
}

// SetLogger routes engine diagnostics to logger
func (s *Service) SetLogger(logger *log.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

type mergeInput struct {
	path  string
	doc   *source.Document
	pages []int
}

// PDFMerge merges the requested pages of every input into a new file
func (s *Service) PDFMerge(req PDFMergeRequest) (*PDFMergeResult, error) {
	if len(req.Inputs) == 0 {
		return nil, fmt.Errorf("at least one input is required")
	}
	tagged, mergeFields := s.defaults.Tagged, s.defaults.MergeFields
	if req.Tagged != nil {
		tagged = *req.Tagged
	}
	if req.MergeFields != nil {
		mergeFields = *req.MergeFields
	}

	output, err := s.outputValidator.ValidateOutputFile(req.Output)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if _, err := os.Stat(output); err == nil && !req.Overwrite {
		return nil, fmt.Errorf("output file already exists: %s", output)
	}

	// every entry gets its own document, so one file may be listed twice
	inputs := make([]mergeInput, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		input, err := s.openInput(in.Path, in.Pages, mergeFields)
		if err != nil {
			return nil, err
		}
		if input.path == output {
			return nil, fmt.Errorf("output file cannot also be an input: %s", output)
		}
		inputs = append(inputs, input)
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), ".merge-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	m := merge.New(w, merge.Options{
		Tagged:      tagged,
		MergeFields: mergeFields,
		Producer:    s.defaults.Producer,
		Logger:      s.logger,
	})

	result := &PDFMergeResult{
		Output:      output,
		Tagged:      tagged,
		MergeFields: mergeFields,
		Sources:     make([]MergeSourceInfo, 0, len(inputs)),
	}
	for _, in := range inputs {
		if err := m.MergeDocument(in.doc, in.pages); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("merging %s: %w", in.path, err)
		}
		info := MergeSourceInfo{Path: in.path, Pages: in.pages, Tagged: source.Tagged(in.doc)}
		if mergeFields {
			if fields, err := source.ReadFields(in.doc, in.pages); err == nil {
				info.Fields = len(fields)
			}
		}
		result.Sources = append(result.Sources, info)
	}

	xref, err := m.Finalize()
	if err == nil {
		err = w.Flush()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", output, err)
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}

	result.Pages = m.PageCount()
	result.Objects = len(xref.InUse())
	events := m.Events()
	for _, list := range [][]string{messages(events.Errors), messages(events.Warnings)} {
		result.Warnings = append(result.Warnings, list...)
	}
	result.Refused = events.CountType(pdferrors.ErrorTypeRefusedCopy)
	result.Events = events.Summary()
	if info, err := os.Stat(output); err == nil {
		result.Size = info.Size()
	}
	s.logger.Printf("merged %d input(s) into %s: %d pages, %d objects", len(inputs), output, result.Pages, result.Objects)

	if req.Verify {
		report, err := verify.Check(output, result.Pages)
		if err != nil {
			return nil, fmt.Errorf("verification of %s failed: %w", output, err)
		}
		result.Verification = report
	}
	return result, nil
}

func messages(errs []*pdferrors.PDFError) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		if err.Type == pdferrors.ErrorTypeRefusedCopy {
			continue
		}
		out = append(out, err.Error())
	}
	return out
}

func (s *Service) openInput(path, pages string, mergeFields bool) (mergeInput, error) {
	normalized, err := s.pathValidator.ValidateInputFile(path)
	if err != nil {
		return mergeInput{}, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.validatePDFFile(normalized); err != nil {
		return mergeInput{}, err
	}

	doc, err := source.Open(normalized)
	if err != nil {
		return mergeInput{}, err
	}
	if p, ok := doc.Permissions(); ok {
		if err := security.NewPermissions(p).CheckMerge(mergeFields); err != nil {
			return mergeInput{}, fmt.Errorf("%s: %w", normalized, err)
		}
	}

	total, err := doc.PageCount()
	if err != nil {
		return mergeInput{}, err
	}
	list, err := pagerange.ParsePages(pages, total)
	if err != nil {
		return mergeInput{}, fmt.Errorf("%s: %w", normalized, err)
	}
	return mergeInput{path: normalized, doc: doc, pages: list}, nil
}

// PDFInspectFields lists the form fields of a PDF file
func (s *Service) PDFInspectFields(req PDFInspectFieldsRequest) (*PDFInspectFieldsResult, error) {
	path, err := s.pathValidator.ValidateInputFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.validatePDFFile(path); err != nil {
		return nil, err
	}
	doc, err := source.Open(path)
	if err != nil {
		return nil, err
	}

	var pages []int
	if req.Pages != "" {
		total, err := doc.PageCount()
		if err != nil {
			return nil, err
		}
		if pages, err = pagerange.ParsePages(req.Pages, total); err != nil {
			return nil, err
		}
	}

	snapshot, err := source.ReadFields(doc, pages)
	if err != nil {
		return nil, err
	}
	order, err := source.CalculationOrder(doc)
	if err != nil {
		return nil, err
	}

	result := &PDFInspectFieldsResult{
		Path:             path,
		Fields:           make([]FieldInfo, 0, len(snapshot)),
		CalculationOrder: order,
		NeedAppearances:  source.NeedAppearances(doc),
		Tagged:           source.Tagged(doc),
	}
	for _, f := range snapshot {
		info := FieldInfo{Name: f.Name, Type: f.FieldType()}
		for _, w := range f.Widgets {
			if info.Value == "" {
				info.Value = valueText(w.Value)
			}
			info.Widgets = append(info.Widgets, WidgetInfo{Page: w.Page, Tab: w.Tab})
		}
		result.Fields = append(result.Fields, info)
	}
	return result, nil
}

// valueText renders a field value for display
func valueText(v object.Object) string {
	switch v := v.(type) {
	case nil, *object.Null:
		return ""
	case *object.String:
		return object.TextOf(v)
	case *object.Name:
		return v.Value
	case *object.Array:
		parts := make([]string, 0, v.Len())
		for _, elem := range v.Elements {
			parts = append(parts, valueText(elem))
		}
		return strings.Join(parts, ", ")
	default:
		return v.String()
	}
}

// PDFValidateFile performs validation on a PDF file
func (s *Service) PDFValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	if err := s.checkReadable(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ValidateFile(req)
}

// PDFStatsFile returns detailed statistics about a single PDF file
func (s *Service) PDFStatsFile(req PDFStatsFileRequest) (*PDFStatsFileResult, error) {
	if err := s.checkReadable(req.Path); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.stats.GetFileStats(req)
}

// checkReadable accepts paths below the input or the output directory, so
// that merge results can be inspected too
func (s *Service) checkReadable(path string) error {
	err := s.pathValidator.ValidatePath(path)
	if err == nil {
		return nil
	}
	if s.outputValidator.ValidatePath(path) == nil {
		return nil
	}
	return err
}

// PDFServerInfo returns server information and usage guidance
func (s *Service) PDFServerInfo(ctx context.Context, _ PDFServerInfoRequest, serverName, version string,
) (*PDFServerInfoResult, error) {
	return s.info.GetServerInfo(ctx, serverName, version)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// IsValidPDF performs a quick validation check on a file
func (s *Service) IsValidPDF(filePath string) bool {
	return s.validator.IsValidPDF(filePath)
}

// ValidateConfiguration validates the service configuration
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 { // 1GB limit
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}

	return nil
}
