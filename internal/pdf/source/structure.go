package source

import (
	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// Structure is the logical structure of a tagged document
type Structure struct {
	Root *object.IndirectRef
	// ParentTree maps structure parent keys to their unresolved entries
	ParentTree map[int64]object.Object
	RoleMap    *object.Dictionary
	ClassMap   *object.Dictionary
	// Kids are the unresolved children of the structure tree root
	Kids []object.Object
}

// Tagged reports whether the document is marked as tagged and has a
// structure tree
func Tagged(doc *Document) bool {
	catalog, err := doc.Catalog()
	if err != nil {
		return false
	}
	markInfo, err := doc.ResolveDict(catalog.Get("MarkInfo"))
	if err != nil || markInfo == nil {
		return false
	}
	marked, err := doc.Resolve(markInfo.Get("Marked"))
	if err != nil {
		return false
	}
	if b, ok := marked.(*object.Bool); !ok || !b.Value {
		return false
	}
	root, err := doc.ResolveDict(catalog.Get("StructTreeRoot"))
	return err == nil && root != nil
}

// ReadStructure returns the structure tree of doc, or nil when the document
// is not tagged
func ReadStructure(doc *Document) (*Structure, error) {
	if !Tagged(doc) {
		return nil, nil
	}
	catalog, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	rootRef, _ := catalog.Get("StructTreeRoot").(*object.IndirectRef)
	root, err := doc.ResolveDict(catalog.Get("StructTreeRoot"))
	if err != nil {
		return nil, err
	}

	s := &Structure{Root: rootRef, ParentTree: make(map[int64]object.Object)}
	if s.RoleMap, err = doc.ResolveDict(root.Get("RoleMap")); err != nil {
		return nil, err
	}
	if s.ClassMap, err = doc.ResolveDict(root.Get("ClassMap")); err != nil {
		return nil, err
	}

	k, err := doc.Resolve(root.Get("K"))
	if err != nil {
		return nil, err
	}
	switch v := k.(type) {
	case *object.Array:
		s.Kids = append(s.Kids, v.Elements...)
	case *object.Dictionary:
		s.Kids = append(s.Kids, root.Get("K"))
	}

	visited := make(map[*object.Dictionary]bool)
	if err := doc.flattenNumberTree(root.Get("ParentTree"), s.ParentTree, visited); err != nil {
		return nil, err
	}
	return s, nil
}

// flattenNumberTree collects the leaves of a number tree into out
func (d *Document) flattenNumberTree(node object.Object, out map[int64]object.Object, visited map[*object.Dictionary]bool) error {
	dict, err := d.ResolveDict(node)
	if err != nil || dict == nil {
		return err
	}
	if visited[dict] {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "number tree contains a cycle").WithFile(d.name)
	}
	visited[dict] = true

	nums, err := d.ResolveArray(dict.Get("Nums"))
	if err != nil {
		return err
	}
	if nums != nil {
		for i := 0; i+1 < nums.Len(); i += 2 {
			key, err := d.Resolve(nums.Get(i))
			if err != nil {
				return err
			}
			if n, ok := key.(*object.Number); ok {
				out[n.Int64()] = nums.Get(i + 1)
			}
		}
	}

	kids, err := d.ResolveArray(dict.Get("Kids"))
	if err != nil || kids == nil {
		return err
	}
	for _, kid := range kids.Elements {
		if err := d.flattenNumberTree(kid, out, visited); err != nil {
			return err
		}
	}
	return nil
}
