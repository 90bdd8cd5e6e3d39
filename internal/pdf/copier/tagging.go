package copier

import (
	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// copyStructParent renumbers a /StructParents or /StructParent entry and
// carries the matching source parent tree slot over to the destination
func (e *Engine) copyStructParent(key string, value object.Object, out *object.Dictionary) error {
	resolved, err := e.src.Resolve(value)
	if err != nil {
		return err
	}
	num, ok := resolved.(*object.Number)
	if !ok {
		return nil
	}

	tree := e.tagging.Tree
	n := tree.NextStructParent()
	out.Set(key, object.Int(n))

	entry, ok := e.tagging.ParentTree[num.Int64()]
	if !ok {
		e.logger.Printf("no parent tree entry %d for %s", num.Int64(), key)
		return nil
	}

	mode := Mode{PreserveStructureRoles: true}
	raw, err := e.src.Resolve(entry)
	if err != nil {
		return err
	}

	switch raw.(type) {
	case *object.Array:
		r, err := e.Copy(raw, mode)
		if err != nil || r.Refused() {
			return err
		}
		ref := e.body.Reserve()
		if err := e.body.AddToBody(ref, r.Value); err != nil {
			return pdferrors.WrapError(pdferrors.ErrorTypeIO, "adding parent tree entry", err)
		}
		tree.SetPageMark(n, ref, e.page)
	case *object.Dictionary:
		elem, isRef := entry.(*object.IndirectRef)
		if !isRef {
			return nil
		}
		r, err := e.Copy(elem, mode)
		if err != nil || r.Refused() {
			return err
		}
		if ref, ok := r.Value.(*object.IndirectRef); ok {
			tree.SetAnnotationMark(n, ref)
		}
	}
	return nil
}

// registerRoleAndClass records the role map and class map entries used by a
// structure element
func (e *Engine) registerRoleAndClass(in *object.Dictionary) error {
	tree := e.tagging.Tree
	mode := Mode{PreserveStructureRoles: true}

	if s, ok := in.Get("S").(*object.Name); ok && e.tagging.RoleMap != nil && !tree.HasRole(s.Value) {
		if mapped := e.tagging.RoleMap.Get(s.Value); mapped != nil {
			r, err := e.Copy(mapped, mode)
			if err != nil {
				return err
			}
			tree.AddRole(s.Value, r.Value)
		}
	}

	if e.tagging.ClassMap == nil {
		return nil
	}
	var names []string
	switch c := in.Get("C").(type) {
	case *object.Name:
		names = append(names, c.Value)
	case *object.Array:
		for _, elem := range c.Elements {
			if name, ok := elem.(*object.Name); ok {
				names = append(names, name.Value)
			}
		}
	}
	for _, name := range names {
		if tree.HasClass(name) {
			continue
		}
		if def := e.tagging.ClassMap.Get(name); def != nil {
			r, err := e.Copy(def, mode)
			if err != nil {
				return err
			}
			tree.AddClass(name, r.Value)
		}
	}
	return nil
}
