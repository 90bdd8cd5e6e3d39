package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/merge"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/source"
)

// writeFixture writes a PDF with pages pages to dir/name. A non-empty field
// adds a text field of that name with value "value" on the first page.
func writeFixture(t *testing.T, dir, name string, pages int, field string) string {
	t.Helper()

	doc := source.NewMemory(name)
	var first *object.Dictionary
	for i := 0; i < pages; i++ {
		page := object.NewDictionary()
		page.Set("Resources", object.NewDictionary())
		page.Set("Contents", doc.Add(object.NewStream([]byte("0 0 m 100 100 l S"))))
		doc.AddPage(page)
		if first == nil {
			first = page
		}
	}

	if field != "" {
		widget := object.NewDictionary()
		widget.Set("Type", object.NewName("Annot"))
		widget.Set("Subtype", object.NewName("Widget"))
		widget.Set("FT", object.NewName("Tx"))
		widget.Set("T", object.Text(field))
		widget.Set("V", object.Text("value"))
		widget.Set("Rect", object.NewArray(object.Int(10), object.Int(10), object.Int(110), object.Int(30)))
		ref := doc.Add(widget)
		first.Set("Annots", object.NewArray(ref))

		form := object.NewDictionary()
		form.Set("Fields", object.NewArray(ref))
		catalog, err := doc.Catalog()
		if err != nil {
			t.Fatalf("catalog: %v", err)
		}
		catalog.Set("AcroForm", form)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()

	m := merge.New(f, merge.Options{MergeFields: true})
	if err := m.MergeDocument(doc, nil); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if _, err := m.Finalize(); err != nil {
		t.Fatalf("Failed to finalize fixture: %v", err)
	}
	return path
}

func newTestService(t *testing.T, input, output string) *Service {
	t.Helper()
	s, err := NewService(10*1024*1024, input, output, MergeDefaults{MergeFields: true})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return s
}

func boolPtr(b bool) *bool {
	return &b
}
