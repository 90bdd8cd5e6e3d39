package source

import (
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// NewMemory creates a document held entirely in memory, with a catalog at
// object 1 and an empty page tree at object 2
func NewMemory(name string) *Document {
	d := newDocument(name, func(object.ObjectID) (object.Object, error) { return nil, nil })

	catalog := object.NewDictionary()
	catalog.Set("Type", object.NewName("Catalog"))
	d.root = d.Add(catalog)

	pages := object.NewDictionary()
	pages.Set("Type", object.NewName("Pages"))
	pages.Set("Kids", object.NewArray())
	pages.Set("Count", object.Int(0))
	catalog.Set("Pages", d.Add(pages))
	return d
}

// Set replaces the object stored under ref
func (d *Document) Set(ref *object.IndirectRef, obj object.Object) {
	d.cache[ref.ID] = obj
	d.walked = false
}

// SetPermissions marks the document as encrypted with the given P entry
func (d *Document) SetPermissions(perms int32) {
	d.perms = &perms
}

// AddPage appends page to the root of the page tree
func (d *Document) AddPage(page *object.Dictionary) *object.IndirectRef {
	catalog, _ := d.Catalog()
	pagesRef := catalog.GetRef("Pages")
	pages, _ := d.ResolveDict(pagesRef)

	page.Set("Type", object.NewName("Page"))
	page.Set("Parent", pagesRef)
	if !page.Has("MediaBox") && !pages.Has("MediaBox") {
		page.Set("MediaBox", object.NewArray(object.Int(0), object.Int(0), object.Int(612), object.Int(792)))
	}
	ref := d.Add(page)

	kids := pages.GetArray("Kids")
	kids.Add(ref)
	pages.Set("Count", object.Int(int64(kids.Len())))
	d.walked = false
	return ref
}
