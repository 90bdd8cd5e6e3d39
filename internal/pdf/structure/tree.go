// Package structure accumulates the tagged structure of the destination
// document and prunes it once all pages are in place.
package structure

import (
	"sort"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// Body is the part of the output cache the reconciler reads and prunes
type Body interface {
	Get(ref *object.IndirectRef) object.Object
	AddToBody(ref *object.IndirectRef, obj object.Object) error
	Reserve() *object.IndirectRef
	Exclude(ref *object.IndirectRef)
	Cached() []*object.IndirectRef
}

// Mark is one slot of the destination parent tree. Page is set for the
// marked-content array of a page and nil for an annotation's element.
type Mark struct {
	Ref  *object.IndirectRef
	Page *object.IndirectRef
}

// Tree is the destination structure tree under construction
type Tree struct {
	Root     *object.IndirectRef
	next     int64
	marks    map[int64]*Mark
	roleMap  *object.Dictionary
	classMap *object.Dictionary
	kids     []*object.IndirectRef
}

// NewTree creates an empty tree whose root lives at root
func NewTree(root *object.IndirectRef) *Tree {
	return &Tree{
		Root:     root,
		marks:    make(map[int64]*Mark),
		roleMap:  object.NewDictionary(),
		classMap: object.NewDictionary(),
	}
}

// NextStructParent allocates the next parent tree key
func (t *Tree) NextStructParent() int64 {
	n := t.next
	t.next++
	return n
}

// SetPageMark stores the marked-content array of page under key n
func (t *Tree) SetPageMark(n int64, array *object.IndirectRef, page *object.IndirectRef) {
	t.marks[n] = &Mark{Ref: array, Page: page}
}

// SetAnnotationMark stores the structure element of an annotation under key n
func (t *Tree) SetAnnotationMark(n int64, elem *object.IndirectRef) {
	t.marks[n] = &Mark{Ref: elem}
}

// Mark returns the parent tree slot n
func (t *Tree) Mark(n int64) (*Mark, bool) {
	m, ok := t.marks[n]
	return m, ok
}

// Keys returns the parent tree keys in ascending order
func (t *Tree) Keys() []int64 {
	keys := make([]int64, 0, len(t.marks))
	for k := range t.marks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// HasRole reports whether the role map already maps name
func (t *Tree) HasRole(name string) bool {
	return t.roleMap.Has(name)
}

// AddRole maps a custom structure type to a standard one; the first mapping wins
func (t *Tree) AddRole(name string, mapped object.Object) {
	if mapped != nil && !t.roleMap.Has(name) {
		t.roleMap.Set(name, mapped)
	}
}

// HasClass reports whether the class map already holds name
func (t *Tree) HasClass(name string) bool {
	return t.classMap.Has(name)
}

// AddClass records the attribute class name; the first definition wins
func (t *Tree) AddClass(name string, value object.Object) {
	if value != nil && !t.classMap.Has(name) {
		t.classMap.Set(name, value)
	}
}

// AddKid appends elem to the root's kids unless it is already there
func (t *Tree) AddKid(elem *object.IndirectRef) {
	for _, k := range t.kids {
		if k.ID == elem.ID {
			return
		}
	}
	t.kids = append(t.kids, elem)
}

// Kids returns the current root kids
func (t *Tree) Kids() []*object.IndirectRef {
	return append([]*object.IndirectRef(nil), t.kids...)
}

// Build writes the parent tree and the structure tree root into body
func (t *Tree) Build(body Body) error {
	nums := object.NewArray()
	for _, k := range t.Keys() {
		nums.Add(object.Int(k))
		nums.Add(t.marks[k].Ref)
	}
	parentTree := object.NewDictionary()
	parentTree.Set("Nums", nums)
	parentTreeRef := body.Reserve()
	if err := body.AddToBody(parentTreeRef, parentTree); err != nil {
		return err
	}

	root := object.NewDictionary()
	root.Set("Type", object.NewName("StructTreeRoot"))
	kids := object.NewArray()
	for _, k := range t.kids {
		kids.Add(k)
	}
	root.Set("K", kids)
	root.Set("ParentTree", parentTreeRef)
	root.Set("ParentTreeNextKey", object.Int(t.next))
	if t.roleMap.Len() > 0 {
		root.Set("RoleMap", t.roleMap)
	}
	if t.classMap.Len() > 0 {
		root.Set("ClassMap", t.classMap)
	}
	return body.AddToBody(t.Root, root)
}
