// Package copier translates object graphs from a source document into the
// destination document's number space.
package copier

import (
	"fmt"
	"io"
	"log"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/structure"
)

// Source resolves indirect references of the document being copied
type Source interface {
	Resolve(obj object.Object) (object.Object, error)
}

// Body is the destination output cache
type Body interface {
	Reserve() *object.IndirectRef
	AddToBody(ref *object.IndirectRef, obj object.Object) error
	Has(ref *object.IndirectRef) bool
	Exclude(ref *object.IndirectRef)
}

// Mode controls how structure information is treated during one copy
type Mode struct {
	// PreserveStructureRoles carries tagged structure into the destination
	PreserveStructureRoles bool
	// DirectRootKidsOnly refuses every element anchored to a page
	DirectRootKidsOnly bool
}

// Result is the outcome of copying one value. A nil Value means the value
// was refused. Cascade is set when something below was refused in a way
// that makes every enclosing indirect object incomplete.
type Result struct {
	Value   object.Object
	Cascade bool
}

// Refused reports whether nothing was produced
func (r Result) Refused() bool {
	return r.Value == nil
}

// Tagging holds the structure information of a tagged source
type Tagging struct {
	Tree       *structure.Tree
	ParentTree map[int64]object.Object
	RoleMap    *object.Dictionary
	ClassMap   *object.Dictionary
}

// Engine copies objects out of one source document
type Engine struct {
	src     Source
	body    Body
	ids     *IdentityMap
	tagging *Tagging
	page    *object.IndirectRef
	logger  *log.Logger

	onRefused func(*pdferrors.PDFError)
	refused   map[object.ObjectID]bool
}

// NewEngine creates a copy engine for src writing into body
func NewEngine(src Source, body Body, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		src:     src,
		body:    body,
		ids:     NewIdentityMap(body.Reserve),
		logger:  logger,
		refused: make(map[object.ObjectID]bool),
	}
}

// OnRefused registers fn to receive one ErrorTypeRefusedCopy event per
// source object that was left out on purpose
func (e *Engine) OnRefused(fn func(*pdferrors.PDFError)) {
	e.onRefused = fn
}

func (e *Engine) refuse(id object.ObjectID, message string) {
	e.logger.Printf("%s: %s", message, id)
	if e.onRefused == nil || e.refused[id] {
		return
	}
	e.refused[id] = true
	e.onRefused(pdferrors.NewPDFError(pdferrors.ErrorTypeRefusedCopy, message).WithObject(id.Number, id.Generation))
}

// IdentityMap exposes the records of this source
func (e *Engine) IdentityMap() *IdentityMap {
	return e.ids
}

// SetTagging enables structure copying. The source structure tree root is
// aliased to the destination root so references to it are never copied.
func (e *Engine) SetTagging(t *Tagging, sourceRoot *object.IndirectRef) {
	e.tagging = t
	if t != nil && sourceRoot != nil {
		e.ids.Alias(sourceRoot.ID, t.Tree.Root)
	}
}

// Tagged reports whether structure copying is enabled
func (e *Engine) Tagged() bool {
	return e.tagging != nil
}

// Copy translates value into the destination document
func (e *Engine) Copy(value object.Object, mode Mode) (Result, error) {
	switch v := value.(type) {
	case nil:
		return Result{}, nil
	case *object.Null, *object.Bool, *object.Number, *object.Name, *object.String, *object.Literal:
		return Result{Value: v}, nil
	case *object.Array:
		return e.copyArray(v, mode)
	case *object.Dictionary:
		return e.copyDictionary(v, mode)
	case *object.Stream:
		r, err := e.copyDictionary(v.Dict, mode)
		if err != nil || r.Refused() {
			return r, err
		}
		return Result{Value: &object.Stream{Dict: r.Value.(*object.Dictionary), Data: v.Data}, Cascade: r.Cascade}, nil
	case *object.IndirectRef:
		return e.copyIndirect(v, mode)
	default:
		return Result{}, pdferrors.NewPDFErrorf(pdferrors.ErrorTypeSourceIntegrity, "unsupported object %T", value)
	}
}

func (e *Engine) copyArray(in *object.Array, mode Mode) (Result, error) {
	out := &object.Array{Elements: make([]object.Object, 0, in.Len())}
	cascade := false
	for _, elem := range in.Elements {
		r, err := e.Copy(elem, mode)
		if err != nil {
			return Result{}, err
		}
		cascade = cascade || r.Cascade
		if !r.Refused() {
			out.Add(r.Value)
		}
	}
	return Result{Value: out, Cascade: cascade}, nil
}

func (e *Engine) copyDictionary(in *object.Dictionary, mode Mode) (Result, error) {
	if mode.PreserveStructureRoles && e.tagging != nil {
		if mode.DirectRootKidsOnly && in.Has("Pg") {
			e.logger.Printf("refusing structure element anchored to page %v", in.Get("Pg"))
			return Result{Cascade: true}, nil
		}
		if err := e.registerRoleAndClass(in); err != nil {
			return Result{}, err
		}
	}

	out := object.NewDictionary()
	cascade, err := e.copyEntries(in, out, mode, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: out, Cascade: cascade}, nil
}

// copyEntries copies every entry of in into out, skipping keys for which
// skip returns true
func (e *Engine) copyEntries(in, out *object.Dictionary, mode Mode, skip func(string) bool) (bool, error) {
	cascade := false
	for _, key := range in.Keys() {
		if skip != nil && skip(key) {
			continue
		}
		value := in.Get(key)
		if mode.PreserveStructureRoles && e.tagging != nil && (key == "StructParents" || key == "StructParent") {
			if err := e.copyStructParent(key, value, out); err != nil {
				return false, err
			}
			continue
		}
		r, err := e.Copy(value, mode)
		if err != nil {
			return false, err
		}
		cascade = cascade || r.Cascade
		if !r.Refused() {
			out.Set(key, r.Value)
		}
	}
	return cascade, nil
}

func (e *Engine) copyIndirect(ref *object.IndirectRef, mode Mode) (Result, error) {
	id := ref.ID
	rec, found := e.ids.Lookup(id)
	if found && (rec.State == StateCopied || rec.State == StatePending) {
		return Result{Value: rec.Dest}, nil
	}

	resolved, err := e.src.Resolve(ref)
	if err != nil {
		return Result{}, err
	}
	if _, loops := resolved.(*object.IndirectRef); loops {
		return Result{}, pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity,
			"indirect reference does not resolve to an object").WithObject(id.Number, id.Generation)
	}

	if dict := object.DictOf(resolved); dict != nil {
		switch dict.GetName("Type") {
		case "Page":
			// Pages are only ever copied by CopyPage; referrers share its slot.
			if !found {
				e.ids.Reserve(id)
				e.ids.Disable(id)
				rec, _ = e.ids.Lookup(id)
			}
			return Result{Value: rec.Dest}, nil
		case "Catalog":
			e.refuse(id, "catalog object is never copied")
			return Result{}, nil
		}
	}

	var dest *object.IndirectRef
	if found {
		dest = rec.Dest
		e.ids.Begin(id)
	} else {
		dest = e.ids.Reserve(id)
	}

	r, err := e.Copy(resolved, mode)
	if err != nil {
		e.ids.Rollback(id)
		return Result{}, err
	}
	if r.Refused() {
		e.refuse(id, "object refused and rolled back")
		e.ids.Rollback(id)
		if e.body.Has(dest) {
			e.body.Exclude(dest)
		}
		return Result{Cascade: r.Cascade}, nil
	}

	if err := e.body.AddToBody(dest, r.Value); err != nil {
		return Result{}, pdferrors.WrapError(pdferrors.ErrorTypeIO, fmt.Sprintf("adding object %s", dest.ID), err)
	}
	if r.Cascade {
		e.ids.Disable(id)
	} else {
		e.ids.Commit(id)
	}
	return Result{Value: dest, Cascade: r.Cascade}, nil
}

// PageRef returns the destination slot of a source page, reserving it if needed
func (e *Engine) PageRef(src *object.IndirectRef) *object.IndirectRef {
	if rec, ok := e.ids.Lookup(src.ID); ok {
		return rec.Dest
	}
	dest := e.ids.Reserve(src.ID)
	e.ids.Disable(src.ID)
	return dest
}

// Claim reserves a destination slot for src that will be filled by someone
// else. References to src resolve to the slot without copying.
func (e *Engine) Claim(src *object.IndirectRef) *object.IndirectRef {
	dest := e.ids.Reserve(src.ID)
	e.ids.Commit(src.ID)
	return dest
}

// CopyPage copies a page dictionary into the slot of its source reference.
// The page tree link and article beads are dropped; parent becomes the new
// /Parent. Annotations for which skipAnnot returns true are left out.
func (e *Engine) CopyPage(src *object.IndirectRef, page *object.Dictionary, parent *object.IndirectRef, skipAnnot func(*object.IndirectRef) bool) (*object.IndirectRef, error) {
	if rec, ok := e.ids.Lookup(src.ID); ok && rec.State == StateCopied {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "page already copied").WithObject(src.ID.Number, src.ID.Generation)
	}
	dest := e.PageRef(src)
	e.ids.Begin(src.ID)
	e.page = dest
	defer func() { e.page = nil }()

	mode := Mode{PreserveStructureRoles: e.tagging != nil}
	out := object.NewDictionary()
	_, err := e.copyEntries(page, out, mode, func(key string) bool {
		return key == "Parent" || key == "B" || key == "Annots"
	})
	if err != nil {
		e.ids.Disable(src.ID)
		return nil, err
	}

	if annots, err := e.copyAnnots(page.Get("Annots"), mode, skipAnnot); err != nil {
		e.ids.Disable(src.ID)
		return nil, err
	} else if annots != nil {
		out.Set("Annots", annots)
	}
	out.Set("Parent", parent)

	if err := e.body.AddToBody(dest, out); err != nil {
		e.ids.Disable(src.ID)
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "adding page", err)
	}
	e.ids.Commit(src.ID)
	return dest, nil
}

func (e *Engine) copyAnnots(value object.Object, mode Mode, skip func(*object.IndirectRef) bool) (*object.Array, error) {
	if value == nil {
		return nil, nil
	}
	resolved, err := e.src.Resolve(value)
	if err != nil {
		return nil, err
	}
	arr, ok := resolved.(*object.Array)
	if !ok {
		return nil, nil
	}
	out := object.NewArray()
	for _, elem := range arr.Elements {
		if ref, isRef := elem.(*object.IndirectRef); isRef && skip != nil && skip(ref) {
			continue
		}
		r, err := e.Copy(elem, mode)
		if err != nil {
			return nil, err
		}
		if !r.Refused() {
			out.Add(r.Value)
		}
	}
	return out, nil
}
