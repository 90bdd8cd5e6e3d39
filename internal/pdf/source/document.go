// Package source exposes parsed input documents to the copy engine: object
// resolution, page enumeration, the form fields snapshot and the structure
// tree of a tagged document.
package source

import (
	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// inheritable page attributes, in the order they are materialized
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// Document is one source PDF. Objects are loaded on first use and cached, so
// every resolution of the same reference yields the same value.
type Document struct {
	name  string
	root  *object.IndirectRef
	load  func(id object.ObjectID) (object.Object, error)
	cache map[object.ObjectID]object.Object
	next  int
	perms *int32

	pages  []*object.IndirectRef
	walked bool
}

func newDocument(name string, load func(object.ObjectID) (object.Object, error)) *Document {
	return &Document{
		name:  name,
		load:  load,
		cache: make(map[object.ObjectID]object.Object),
		next:  1,
	}
}

// Name returns the file name or label of the document
func (d *Document) Name() string {
	return d.name
}

// Root returns the reference of the document catalog
func (d *Document) Root() *object.IndirectRef {
	return d.root
}

// Permissions returns the P entry of the encryption dictionary. ok is false
// for an unencrypted document.
func (d *Document) Permissions() (perms int32, ok bool) {
	if d.perms == nil {
		return 0, false
	}
	return *d.perms, true
}

// Resolve follows indirect references until a direct object is reached. A
// reference to a missing object resolves to null.
func (d *Document) Resolve(obj object.Object) (object.Object, error) {
	var seen map[object.ObjectID]bool
	for {
		ref, ok := obj.(*object.IndirectRef)
		if !ok {
			return obj, nil
		}
		if seen == nil {
			seen = make(map[object.ObjectID]bool)
		}
		if seen[ref.ID] {
			return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity,
				"indirect reference resolves to itself").
				WithObject(ref.ID.Number, ref.ID.Generation).WithFile(d.name)
		}
		seen[ref.ID] = true

		next, err := d.object(ref.ID)
		if err != nil {
			return nil, err
		}
		obj = next
	}
}

func (d *Document) object(id object.ObjectID) (object.Object, error) {
	if obj, ok := d.cache[id]; ok {
		return obj, nil
	}
	obj, err := d.load(id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		obj = &object.Null{}
	}
	d.cache[id] = obj
	return obj, nil
}

// ResolveDict resolves obj and returns it as a dictionary, or nil
func (d *Document) ResolveDict(obj object.Object) (*object.Dictionary, error) {
	resolved, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	dict, _ := resolved.(*object.Dictionary)
	return dict, nil
}

// ResolveArray resolves obj and returns it as an array, or nil
func (d *Document) ResolveArray(obj object.Object) (*object.Array, error) {
	resolved, err := d.Resolve(obj)
	if err != nil {
		return nil, err
	}
	arr, _ := resolved.(*object.Array)
	return arr, nil
}

// Catalog returns the document catalog
func (d *Document) Catalog() (*object.Dictionary, error) {
	if d.root == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "document has no catalog").WithFile(d.name)
	}
	catalog, err := d.ResolveDict(d.root)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "catalog is not a dictionary").
			WithObject(d.root.ID.Number, d.root.ID.Generation).WithFile(d.name)
	}
	return catalog, nil
}

// PageCount returns the number of leaves of the page tree
func (d *Document) PageCount() (int, error) {
	if err := d.walkPages(); err != nil {
		return 0, err
	}
	return len(d.pages), nil
}

// Page returns the reference and dictionary of page n, counting from 1.
// Inherited attributes are already present in the returned dictionary.
func (d *Document) Page(n int) (*object.IndirectRef, *object.Dictionary, error) {
	if err := d.walkPages(); err != nil {
		return nil, nil, err
	}
	if n < 1 || n > len(d.pages) {
		return nil, nil, pdferrors.NewPDFErrorf(pdferrors.ErrorTypeInvalidInput,
			"page %d out of range (document has %d pages)", n, len(d.pages)).WithFile(d.name)
	}
	ref := d.pages[n-1]
	page, err := d.ResolveDict(ref)
	if err != nil {
		return nil, nil, err
	}
	return ref, page, nil
}

// PageNumber returns the 1-based number of the page stored under ref, or 0
func (d *Document) PageNumber(ref *object.IndirectRef) int {
	if err := d.walkPages(); err != nil {
		return 0
	}
	for i, p := range d.pages {
		if p.ID == ref.ID {
			return i + 1
		}
	}
	return 0
}

func (d *Document) walkPages() error {
	if d.walked {
		return nil
	}
	catalog, err := d.Catalog()
	if err != nil {
		return err
	}
	d.pages = nil
	visited := make(map[object.ObjectID]bool)
	if err := d.walk(catalog.Get("Pages"), nil, visited); err != nil {
		return err
	}
	d.walked = true
	return nil
}

func (d *Document) walk(node object.Object, inherited *object.Dictionary, visited map[object.ObjectID]bool) error {
	ref, ok := node.(*object.IndirectRef)
	if !ok {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "page tree node is not an indirect object").WithFile(d.name)
	}
	if visited[ref.ID] {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "page tree contains a cycle").
			WithObject(ref.ID.Number, ref.ID.Generation).WithFile(d.name)
	}
	visited[ref.ID] = true

	dict, err := d.ResolveDict(ref)
	if err != nil {
		return err
	}
	if dict == nil {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "page tree node is not a dictionary").
			WithObject(ref.ID.Number, ref.ID.Generation).WithFile(d.name)
	}

	kids, err := d.ResolveArray(dict.Get("Kids"))
	if err != nil {
		return err
	}
	if dict.GetName("Type") == "Pages" || (dict.GetName("Type") != "Page" && kids != nil) {
		next := object.NewDictionary()
		if inherited != nil {
			next.Merge(inherited)
		}
		for _, key := range inheritable {
			if v := dict.Get(key); v != nil {
				next.Set(key, v)
			}
		}
		if kids == nil {
			return nil
		}
		for _, kid := range kids.Elements {
			if err := d.walk(kid, next, visited); err != nil {
				return err
			}
		}
		return nil
	}

	if inherited != nil {
		for _, key := range inheritable {
			if !dict.Has(key) && inherited.Has(key) {
				dict.Set(key, inherited.Get(key))
			}
		}
	}
	d.pages = append(d.pages, ref)
	return nil
}

// Add stores obj under the next free object number
func (d *Document) Add(obj object.Object) *object.IndirectRef {
	ref := object.Ref(d.next, 0)
	d.next++
	d.cache[ref.ID] = obj
	return ref
}
