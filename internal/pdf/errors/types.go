package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// PDFError describes a failure or a locally recovered event while building a merged document
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	ObjectNum   int       `json:"object_num,omitempty"`
	GenNum      int       `json:"generation_num,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	FilePath    string    `json:"file_path,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"`
	Cause       error     `json:"-"`
}

// ErrorType represents the categories of copy and merge failures
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRefusedCopy marks a subtree that was intentionally not copied
	ErrorTypeRefusedCopy
	// ErrorTypeStructuralMismatch marks a same-named field that could not be merged
	ErrorTypeStructuralMismatch
	// ErrorTypePrerequisiteViolation marks a call made in the wrong document state
	ErrorTypePrerequisiteViolation
	// ErrorTypeSourceIntegrity marks a source graph that cannot be traversed
	ErrorTypeSourceIntegrity
	ErrorTypeInvalidInput
	ErrorTypeIO
	ErrorTypeInternal
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRefusedCopy:
		return "REFUSED_COPY"
	case ErrorTypeStructuralMismatch:
		return "STRUCTURAL_MISMATCH"
	case ErrorTypePrerequisiteViolation:
		return "PREREQUISITE_VIOLATION"
	case ErrorTypeSourceIntegrity:
		return "SOURCE_INTEGRITY"
	case ErrorTypeInvalidInput:
		return "INVALID_INPUT"
	case ErrorTypeIO:
		return "IO"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeRefusedCopy:
		return SeverityInfo
	case ErrorTypeStructuralMismatch:
		return SeverityWarning
	case ErrorTypePrerequisiteViolation, ErrorTypeInvalidInput:
		return SeverityError
	case ErrorTypeSourceIntegrity, ErrorTypeIO, ErrorTypeInternal:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether the engine handles the error locally
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeRefusedCopy, ErrorTypeStructuralMismatch:
		return true
	default:
		return false
	}
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// NewPDFErrorf creates a new PDFError with a formatted message
func NewPDFErrorf(errorType ErrorType, format string, args ...interface{}) *PDFError {
	return NewPDFError(errorType, fmt.Sprintf(format, args...))
}

// NewPDFErrorWithContext creates a new PDFError with additional context
func NewPDFErrorWithContext(errorType ErrorType, message, context string) *PDFError {
	e := NewPDFError(errorType, message)
	e.Context = context
	return e
}

// WrapError wraps a standard error as a PDFError
func WrapError(errorType ErrorType, message string, err error) *PDFError {
	e := NewPDFError(errorType, message)
	e.Cause = err
	return e
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithObject records the indirect object the error refers to
func (e *PDFError) WithObject(objNum, genNum int) *PDFError {
	e.ObjectNum = objNum
	e.GenNum = genNum
	return e
}

// WithFile adds file path information to an existing PDFError
func (e *PDFError) WithFile(filePath string) *PDFError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information to an existing PDFError
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// GetSeverity returns the severity of this specific error
func (e *PDFError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsCritical returns true if this error is critical
func (e *PDFError) IsCritical() bool {
	return e.GetSeverity() == SeverityCritical
}

// IsType reports whether err wraps a PDFError of the given type
func IsType(err error, errorType ErrorType) bool {
	var pdfErr *PDFError
	if stderrors.As(err, &pdfErr) {
		return pdfErr.Type == errorType
	}
	return false
}

// ErrorCollection gathers the events of one merge run
type ErrorCollection struct {
	Errors   []*PDFError `json:"errors"`
	Warnings []*PDFError `json:"warnings"`
	FilePath string      `json:"file_path,omitempty"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection(filePath string) *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*PDFError, 0),
		Warnings: make([]*PDFError, 0),
		FilePath: filePath,
	}
}

// Add adds an error to the appropriate collection based on severity
func (ec *ErrorCollection) Add(err *PDFError) {
	if err.FilePath == "" && ec.FilePath != "" {
		err.FilePath = ec.FilePath
	}

	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// HasCriticalErrors returns true if any critical errors exist
func (ec *ErrorCollection) HasCriticalErrors() bool {
	for _, err := range ec.Errors {
		if err.IsCritical() {
			return true
		}
	}
	return false
}

// CountType returns how many collected entries have the given type
func (ec *ErrorCollection) CountType(errorType ErrorType) int {
	n := 0
	for _, list := range [][]*PDFError{ec.Errors, ec.Warnings} {
		for _, err := range list {
			if err.Type == errorType {
				n++
			}
		}
	}
	return n
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}

	summary := fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)

	if ec.HasCriticalErrors() {
		summary += " (including critical errors)"
	}

	return summary
}
