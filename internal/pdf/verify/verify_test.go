package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/merge"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/source"
)

// writeMerged merges a two page document with one text field and a one page
// plain document into a temporary file
func writeMerged(t *testing.T) string {
	t.Helper()
	form := source.NewMemory("form.pdf")
	var pages []*object.Dictionary
	for i := 0; i < 2; i++ {
		page := object.NewDictionary()
		page.Set("Resources", object.NewDictionary())
		page.Set("Contents", form.Add(object.NewStream([]byte("0 0 m 10 10 l S"))))
		form.AddPage(page)
		pages = append(pages, page)
	}
	widget := object.NewDictionary()
	widget.Set("Type", object.NewName("Annot"))
	widget.Set("Subtype", object.NewName("Widget"))
	widget.Set("FT", object.NewName("Tx"))
	widget.Set("T", object.Text("name"))
	widget.Set("V", object.Text("x"))
	widget.Set("Rect", object.NewArray(object.Int(0), object.Int(0), object.Int(50), object.Int(20)))
	widgetRef := form.Add(widget)
	pages[1].Set("Annots", object.NewArray(widgetRef))
	acro := object.NewDictionary()
	acro.Set("Fields", object.NewArray(widgetRef))
	catalog, err := form.Catalog()
	require.NoError(t, err)
	catalog.Set("AcroForm", acro)

	plain := source.NewMemory("plain.pdf")
	page := object.NewDictionary()
	page.Set("Resources", object.NewDictionary())
	plain.AddPage(page)

	path := filepath.Join(t.TempDir(), "merged.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	m := merge.New(f, merge.Options{MergeFields: true})
	require.NoError(t, m.MergeDocument(form, nil))
	require.NoError(t, m.MergeDocument(plain, nil))
	_, err = m.Finalize()
	require.NoError(t, err)
	return path
}

func TestReadBack(t *testing.T) {
	path := writeMerged(t)

	report, err := ReadBack(path)
	require.NoError(t, err)
	assert.Equal(t, path, report.Path)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 1, report.Widgets)
	assert.Equal(t, 1, report.Fields)
	assert.False(t, report.Tagged)
}

func TestCheck(t *testing.T) {
	path := writeMerged(t)

	report, err := Check(path, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pages)
	require.NotNil(t, report.XRef)
	assert.Positive(t, report.XRef.InUse)

	_, err = Check(path, 4)
	require.Error(t, err)
	assert.True(t, pdferrors.IsType(err, pdferrors.ErrorTypeInternal))
}

func TestRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	_, err := ReadBack(path)
	assert.Error(t, err)
	assert.Error(t, Validate(path))

	_, err = ReadBack(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
