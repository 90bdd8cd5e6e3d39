// Package verify re-opens a produced PDF with readers independent of the
// writer and reports what they see.
package verify

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
)

// Report describes a file as read back from disk
type Report struct {
	Path    string `json:"path"`
	Pages   int    `json:"pages"`
	Widgets int    `json:"widgets"`
	Fields  int    `json:"fields"`
	Tagged  bool   `json:"tagged"`

	XRef *XRefSummary `json:"xref,omitempty"`
}

// ReadBack opens path with ledongthuc/pdf and counts pages, widget
// annotations and top-level form fields
func ReadBack(path string) (report *Report, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "failed to open PDF", err).WithFile(path)
	}
	defer f.Close()

	// the reader panics on some malformed objects
	defer func() {
		if rec := recover(); rec != nil {
			report = nil
			err = pdferrors.NewPDFErrorf(pdferrors.ErrorTypeSourceIntegrity, "malformed PDF: %v", rec).WithFile(path)
		}
	}()

	report = &Report{Path: path, Pages: r.NumPage()}
	for i := 1; i <= report.Pages; i++ {
		annots := r.Page(i).V.Key("Annots")
		for j := 0; j < annots.Len(); j++ {
			if annots.Index(j).Key("Subtype").Name() == "Widget" {
				report.Widgets++
			}
		}
	}

	root := r.Trailer().Key("Root")
	report.Fields = root.Key("AcroForm").Key("Fields").Len()
	report.Tagged = root.Key("MarkInfo").Key("Marked").Bool() && !root.Key("StructTreeRoot").IsNull()
	return report, nil
}

// Validate runs pdfcpu's relaxed validation over path
func Validate(path string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "validation failed", err).WithFile(path)
	}
	return nil
}

// Check validates path, confirms its xref offsets and reads it back,
// failing when the page count differs from pages
func Check(path string, pages int) (*Report, error) {
	if err := Validate(path); err != nil {
		return nil, err
	}
	xref, err := CheckXRef(path)
	if err != nil {
		return nil, err
	}
	report, err := ReadBack(path)
	if err != nil {
		return nil, err
	}
	report.XRef = xref
	if report.Pages != pages {
		return report, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeInternal,
			"page count mismatch", fmt.Sprintf("wrote %d, read %d", pages, report.Pages)).WithFile(path)
	}
	return report, nil
}
