// Package merge assembles one output document from pages and form fields of
// several source documents.
package merge

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/copier"
	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/source"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/structure"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/writer"
)

// DefaultProducer is written into the document information dictionary
const DefaultProducer = "mcp-pdf-merger"

// Options controls what is carried into the destination document
type Options struct {
	// Tagged keeps the logical structure of tagged sources
	Tagged bool
	// MergeFields combines same-named form fields into one AcroForm
	MergeFields bool
	Producer    string
	Logger      *log.Logger
}

type sourceState struct {
	doc          *source.Document
	engine       *copier.Engine
	structure    *source.Structure
	pagesCopied  int
	fieldsMerged bool
	consumed     bool
	claimed      map[object.ObjectID]bool
}

func (s *sourceState) skipAnnot(ref *object.IndirectRef) bool {
	return s.claimed[ref.ID]
}

// Merger builds one destination document
type Merger struct {
	opts      Options
	body      *writer.Body
	pagesRoot *object.IndirectRef
	pages     []*object.IndirectRef
	sources   map[*source.Document]*sourceState
	order     []*sourceState
	tree      *structure.Tree
	fields    *fields.Merger
	events    *pdferrors.ErrorCollection
	closed    bool
	logger    *log.Logger
}

// New creates a merger writing the destination document to w. Objects are
// buffered until Finalize when structure or fields have to be reconciled.
func New(w io.Writer, opts Options) *Merger {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Producer == "" {
		opts.Producer = DefaultProducer
	}
	body := writer.NewBody(w, opts.Tagged || opts.MergeFields)
	return &Merger{
		opts:      opts,
		body:      body,
		pagesRoot: body.Reserve(),
		sources:   make(map[*source.Document]*sourceState),
		fields:    fields.NewMerger(body, logger),
		events:    pdferrors.NewErrorCollection(""),
		logger:    logger,
	}
}

// Events returns the recovered problems of this merge
func (m *Merger) Events() *pdferrors.ErrorCollection {
	return m.events
}

// PageCount returns the number of pages emitted so far
func (m *Merger) PageCount() int {
	return len(m.pages)
}

// Closed reports whether Finalize was called
func (m *Merger) Closed() bool {
	return m.closed
}

func (m *Merger) state(doc *source.Document) (*sourceState, error) {
	if s, ok := m.sources[doc]; ok {
		return s, nil
	}
	s := &sourceState{
		doc:     doc,
		engine:  copier.NewEngine(doc, m.body, m.logger),
		claimed: make(map[object.ObjectID]bool),
	}
	s.engine.OnRefused(func(e *pdferrors.PDFError) {
		m.events.Add(e.WithFile(doc.Name()))
	})
	if m.opts.Tagged {
		st, err := source.ReadStructure(doc)
		if err != nil {
			return nil, fmt.Errorf("reading structure of %s: %w", doc.Name(), err)
		}
		if st != nil {
			if m.tree == nil {
				m.tree = structure.NewTree(m.body.Reserve())
			}
			s.structure = st
			s.engine.SetTagging(&copier.Tagging{
				Tree:       m.tree,
				ParentTree: st.ParentTree,
				RoleMap:    st.RoleMap,
				ClassMap:   st.ClassMap,
			}, st.Root)
		}
	}
	m.sources[doc] = s
	m.order = append(m.order, s)
	return s, nil
}

func (m *Merger) checkOpen() error {
	if m.closed {
		return pdferrors.NewPDFError(pdferrors.ErrorTypePrerequisiteViolation, "document is already finalized")
	}
	return nil
}

// CopyPage appends page n of doc to the destination and returns its
// destination reference
func (m *Merger) CopyPage(doc *source.Document, n int) (*object.IndirectRef, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	s, err := m.state(doc)
	if err != nil {
		return nil, err
	}
	if s.consumed {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypePrerequisiteViolation,
			"source was already merged as a whole").WithFile(doc.Name())
	}

	ref, page, err := doc.Page(n)
	if err != nil {
		return nil, pageError(err, n, doc.Name())
	}
	dest, err := s.engine.CopyPage(ref, page, m.pagesRoot, s.skipAnnot)
	if err != nil {
		return nil, pageError(err, n, doc.Name())
	}
	m.pages = append(m.pages, dest)
	s.pagesCopied++

	if s.structure != nil {
		if err := m.attachRootKids(s); err != nil {
			return nil, err
		}
	}
	m.logger.Printf("copied page %d of %s as %s", n, doc.Name(), dest.ID)
	return dest, nil
}

// pageError tags a failure while copying page n with its page number
func pageError(err error, n int, name string) error {
	var pdfErr *pdferrors.PDFError
	if errors.As(err, &pdfErr) {
		pdfErr.WithPage(n)
		if pdfErr.FilePath == "" {
			pdfErr.WithFile(name)
		}
	}
	return fmt.Errorf("copying page %d of %s: %w", n, name, err)
}

// attachRootKids copies the direct kids of the source structure root without
// descending into page content and adds them to the destination root
func (m *Merger) attachRootKids(s *sourceState) error {
	mode := copier.Mode{PreserveStructureRoles: true, DirectRootKidsOnly: true}
	for _, kid := range s.structure.Kids {
		r, err := s.engine.Copy(kid, mode)
		if err != nil {
			return fmt.Errorf("copying structure of %s: %w", s.doc.Name(), err)
		}
		if ref, ok := r.Value.(*object.IndirectRef); ok {
			m.tree.AddKid(ref)
		}
	}
	return nil
}

// MergeDocument copies pagesToKeep of doc (every page when nil) in the given
// order. With field merging enabled the fields on those pages are merged
// first. The source cannot be used again afterwards.
func (m *Merger) MergeDocument(doc *source.Document, pagesToKeep []int) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	s, err := m.state(doc)
	if err != nil {
		return err
	}
	if s.consumed {
		return pdferrors.NewPDFError(pdferrors.ErrorTypePrerequisiteViolation,
			"source was already merged as a whole").WithFile(doc.Name())
	}

	count, err := doc.PageCount()
	if err != nil {
		return err
	}
	pages := pagesToKeep
	if pages == nil {
		pages = make([]int, count)
		for i := range pages {
			pages[i] = i + 1
		}
	}
	for _, n := range pages {
		if n < 1 || n > count {
			return pdferrors.NewPDFErrorf(pdferrors.ErrorTypeInvalidInput,
				"page %d out of range (document has %d pages)", n, count).WithFile(doc.Name())
		}
	}

	if m.opts.MergeFields && !s.fieldsMerged {
		if err := m.mergeFields(s, pages); err != nil {
			return err
		}
	}
	for _, n := range pages {
		if _, err := m.CopyPage(doc, n); err != nil {
			return err
		}
	}
	s.consumed = true
	return nil
}

// MergeFields merges every field of doc into the destination form. It must
// be called before any page of doc is copied.
func (m *Merger) MergeFields(doc *source.Document) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	s, err := m.state(doc)
	if err != nil {
		return err
	}
	return m.mergeFields(s, nil)
}

func (m *Merger) mergeFields(s *sourceState, pages []int) error {
	name := s.doc.Name()
	if !m.opts.MergeFields {
		return pdferrors.NewPDFError(pdferrors.ErrorTypePrerequisiteViolation, "field merging is not enabled").WithFile(name)
	}
	if s.pagesCopied > 0 {
		return pdferrors.NewPDFError(pdferrors.ErrorTypePrerequisiteViolation,
			"fields must be merged before any page of the source is copied").WithFile(name)
	}
	if s.fieldsMerged {
		return pdferrors.NewPDFError(pdferrors.ErrorTypePrerequisiteViolation, "fields of the source were already merged").WithFile(name)
	}
	s.fieldsMerged = true

	snapshot, err := source.ReadFields(s.doc, pages)
	if err != nil {
		return fmt.Errorf("reading fields of %s: %w", name, err)
	}
	translate := func(obj object.Object) (object.Object, error) {
		r, err := s.engine.Copy(obj, copier.Mode{PreserveStructureRoles: s.engine.Tagged()})
		return r.Value, err
	}

	for _, f := range snapshot {
		item := fields.Item{Name: f.Name, Translate: translate}
		for _, w := range f.Widgets {
			merged := w.Merged
			if s.engine.Tagged() {
				// Parent tree keys are renumbered per page; a claimed
				// widget keeps no stale key.
				merged = merged.Clone()
				merged.Remove("StructParent")
			}
			item.Instances = append(item.Instances, fields.Instance{
				Merged: merged,
				Value:  w.Value,
				Ref:    s.engine.Claim(w.Ref),
				Page:   s.engine.PageRef(w.PageRef),
				Tab:    w.Tab,
			})
			s.claimed[w.Ref.ID] = true
		}

		if err := m.fields.MergeField(item); err != nil {
			var pdfErr *pdferrors.PDFError
			if errors.As(err, &pdfErr) && pdfErr.Type == pdferrors.ErrorTypeStructuralMismatch {
				m.events.Add(pdfErr.WithFile(name))
				continue
			}
			return err
		}
	}

	if source.NeedAppearances(s.doc) {
		m.fields.SetNeedAppearances()
	}
	names, err := source.CalculationOrder(s.doc)
	if err != nil {
		return err
	}
	m.fields.AddCalculationOrder(names...)
	m.logger.Printf("merged %d fields of %s", len(snapshot), name)
	return nil
}

// Finalize reconciles fields and structure, writes the page tree, catalog
// and information dictionary, and finishes the output. It returns the
// cross-reference table of the written document.
func (m *Merger) Finalize() (*writer.XRefTable, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	m.closed = true

	var acroForm *object.IndirectRef
	if m.opts.MergeFields && !m.fields.Empty() {
		numbers := make(map[object.ObjectID]int, len(m.pages))
		for i, p := range m.pages {
			numbers[p.ID] = i + 1
		}
		if dropped := m.fields.ResolvePages(func(p *object.IndirectRef) int { return numbers[p.ID] }); dropped > 0 {
			m.logger.Printf("dropped %d widgets on pages that were not copied", dropped)
		}
		if !m.fields.Empty() {
			form, err := m.fields.BranchForm(m.pageAnnots)
			if err != nil {
				return nil, fmt.Errorf("writing form fields: %w", err)
			}
			if acroForm, err = m.body.Add(form); err != nil {
				return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "adding AcroForm", err)
			}
		}
	}

	if m.tree != nil {
		for _, s := range m.order {
			m.attachCopiedKids(s)
		}
		result := m.tree.Sweep(m.body, m.pages, acroForm)
		m.logger.Printf("structure sweep kept %d objects, excluded %d", result.Active, len(result.Excluded))
		if err := m.tree.Build(m.body); err != nil {
			return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "writing structure tree", err)
		}
	}

	kids := object.NewArray()
	for _, p := range m.pages {
		kids.Add(p)
	}
	pages := object.NewDictionary()
	pages.Set("Type", object.NewName("Pages"))
	pages.Set("Kids", kids)
	pages.Set("Count", object.Int(int64(len(m.pages))))
	if err := m.body.AddToBody(m.pagesRoot, pages); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "adding page tree", err)
	}

	catalog := object.NewDictionary()
	catalog.Set("Type", object.NewName("Catalog"))
	catalog.Set("Pages", m.pagesRoot)
	if acroForm != nil {
		catalog.Set("AcroForm", acroForm)
	}
	if m.tree != nil {
		catalog.Set("StructTreeRoot", m.tree.Root)
		markInfo := object.NewDictionary()
		markInfo.Set("Marked", &object.Bool{Value: true})
		catalog.Set("MarkInfo", markInfo)
	}
	root, err := m.body.Add(catalog)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "adding catalog", err)
	}

	info := object.NewDictionary()
	info.Set("Producer", object.Text(object.EncodeText(m.opts.Producer)))
	infoRef, err := m.body.Add(info)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "adding info", err)
	}

	xref, err := m.body.Finish(root, infoRef)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "writing output", err)
	}
	return xref, nil
}

// attachCopiedKids adds every root kid of the source that reached the body
// through another path
func (m *Merger) attachCopiedKids(s *sourceState) {
	if s.structure == nil {
		return
	}
	for _, kid := range s.structure.Kids {
		ref, ok := kid.(*object.IndirectRef)
		if !ok {
			continue
		}
		if rec, found := s.engine.IdentityMap().Lookup(ref.ID); found && m.body.Has(rec.Dest) {
			m.tree.AddKid(rec.Dest)
		}
	}
}

// pageAnnots returns the annotation array of a buffered destination page,
// creating it when missing
func (m *Merger) pageAnnots(page *object.IndirectRef) *object.Array {
	dict, ok := m.body.Get(page).(*object.Dictionary)
	if !ok {
		return nil
	}
	if annots := dict.GetArray("Annots"); annots != nil {
		return annots
	}
	annots := object.NewArray()
	dict.Set("Annots", annots)
	return annots
}
