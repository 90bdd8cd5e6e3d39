package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

func taggedDocument(t *testing.T) (*Document, *object.IndirectRef) {
	t.Helper()
	doc := NewMemory("tagged")
	doc.AddPage(object.NewDictionary())

	elem := object.NewDictionary()
	elem.Set("Type", object.NewName("StructElem"))
	elem.Set("S", object.NewName("P"))
	elemRef := doc.Add(elem)

	marks := doc.Add(object.NewArray(elemRef))

	leafA := object.NewDictionary()
	leafA.Set("Nums", object.NewArray(object.Int(0), marks))
	leafB := object.NewDictionary()
	leafB.Set("Nums", object.NewArray(object.Int(3), elemRef))
	parentTree := object.NewDictionary()
	parentTree.Set("Kids", object.NewArray(doc.Add(leafA), doc.Add(leafB)))

	roleMap := object.NewDictionary()
	roleMap.Set("Para", object.NewName("P"))

	root := object.NewDictionary()
	root.Set("Type", object.NewName("StructTreeRoot"))
	root.Set("K", elemRef)
	root.Set("ParentTree", doc.Add(parentTree))
	root.Set("RoleMap", roleMap)
	rootRef := doc.Add(root)

	markInfo := object.NewDictionary()
	markInfo.Set("Marked", &object.Bool{Value: true})
	catalog, err := doc.Catalog()
	require.NoError(t, err)
	catalog.Set("MarkInfo", markInfo)
	catalog.Set("StructTreeRoot", rootRef)
	return doc, rootRef
}

func TestReadStructure(t *testing.T) {
	doc, rootRef := taggedDocument(t)
	require.True(t, Tagged(doc))

	s, err := ReadStructure(doc)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, rootRef.ID, s.Root.ID)
	require.Len(t, s.Kids, 1)
	assert.IsType(t, &object.IndirectRef{}, s.Kids[0])
	assert.Len(t, s.ParentTree, 2)
	assert.IsType(t, &object.IndirectRef{}, s.ParentTree[0])
	assert.IsType(t, &object.IndirectRef{}, s.ParentTree[3])
	assert.Equal(t, "P", s.RoleMap.GetName("Para"))
	assert.Nil(t, s.ClassMap)
}

func TestReadStructureUntagged(t *testing.T) {
	doc, _ := taggedDocument(t)
	catalog, err := doc.Catalog()
	require.NoError(t, err)
	catalog.Remove("MarkInfo")

	assert.False(t, Tagged(doc))
	s, err := ReadStructure(doc)
	require.NoError(t, err)
	assert.Nil(t, s)
}
