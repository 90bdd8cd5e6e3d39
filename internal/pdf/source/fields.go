package source

import (
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// FieldWidget is one widget annotation of a named field
type FieldWidget struct {
	// Ref is the widget annotation in the source document
	Ref *object.IndirectRef
	// Merged holds the widget entries plus every entry inherited from its
	// ancestors and the form defaults /DA and /DR
	Merged *object.Dictionary
	// Value is the resolved value in effect for this widget
	Value   object.Object
	Page    int
	PageRef *object.IndirectRef
	// Tab is the index of the widget in its page's /Annots
	Tab int
}

// Field is every widget of one fully qualified field name
type Field struct {
	Name    string
	Widgets []FieldWidget
}

// FieldType returns the inherited /FT of the first widget
func (f *Field) FieldType() string {
	if len(f.Widgets) == 0 {
		return ""
	}
	return f.Widgets[0].Merged.GetName("FT")
}

// AcroForm returns the interactive form dictionary, or nil
func (d *Document) AcroForm() (*object.Dictionary, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	return d.ResolveDict(catalog.Get("AcroForm"))
}

// ReadFields walks the annotations of pages (every page when pages is empty)
// and groups widgets by fully qualified field name, in first-seen order.
// Widgets without a name anywhere in their ancestry are skipped.
func ReadFields(doc *Document, pages []int) ([]*Field, error) {
	form, err := doc.AcroForm()
	if err != nil || form == nil {
		return nil, err
	}
	count, err := doc.PageCount()
	if err != nil {
		return nil, err
	}

	keep := make(map[int]bool, len(pages))
	for _, p := range pages {
		keep[p] = true
	}

	var order []*Field
	byName := make(map[string]*Field)
	for p := 1; p <= count; p++ {
		if len(keep) > 0 && !keep[p] {
			continue
		}
		pageRef, page, err := doc.Page(p)
		if err != nil {
			return nil, err
		}
		annots, err := doc.ResolveArray(page.Get("Annots"))
		if err != nil {
			return nil, err
		}
		if annots == nil {
			continue
		}

		for j, elem := range annots.Elements {
			ref, ok := elem.(*object.IndirectRef)
			if !ok {
				continue
			}
			widget, err := doc.ResolveDict(ref)
			if err != nil {
				return nil, err
			}
			if widget == nil || widget.GetName("Subtype") != "Widget" {
				continue
			}

			name, merged, err := doc.inherit(widget)
			if err != nil {
				return nil, err
			}
			if name == "" {
				continue
			}
			if !merged.Has("DA") && form.Has("DA") {
				merged.Set("DA", form.Get("DA"))
			}
			if !merged.Has("DR") && form.Has("DR") {
				merged.Set("DR", form.Get("DR"))
			}
			value, err := doc.Resolve(merged.Get("V"))
			if err != nil {
				return nil, err
			}

			field, ok := byName[name]
			if !ok {
				field = &Field{Name: name}
				byName[name] = field
				order = append(order, field)
			}
			field.Widgets = append(field.Widgets, FieldWidget{
				Ref:     ref,
				Merged:  merged,
				Value:   value,
				Page:    p,
				PageRef: pageRef,
				Tab:     j,
			})
		}
	}
	return order, nil
}

// inherit walks from widget toward the root of the field tree, building the
// fully qualified name and a dictionary where the nearest definition of every
// key wins
func (d *Document) inherit(widget *object.Dictionary) (string, *object.Dictionary, error) {
	merged := widget.Clone()
	var names []string
	visited := make(map[*object.Dictionary]bool)

	for cur := widget; cur != nil; {
		if visited[cur] {
			return "", nil, pdferrors.NewPDFError(pdferrors.ErrorTypeSourceIntegrity, "field hierarchy contains a cycle").WithFile(d.name)
		}
		visited[cur] = true

		t, err := d.Resolve(cur.Get("T"))
		if err != nil {
			return "", nil, err
		}
		if s, ok := t.(*object.String); ok {
			names = append([]string{object.DecodeText(s.Value)}, names...)
		}

		parent, err := d.ResolveDict(cur.Get("Parent"))
		if err != nil {
			return "", nil, err
		}
		if parent != nil {
			merged.MergeDifferent(parent)
		}
		cur = parent
	}
	return strings.Join(names, "."), merged, nil
}

// FieldName returns the fully qualified name of the field stored under ref
func (d *Document) FieldName(ref *object.IndirectRef) (string, error) {
	field, err := d.ResolveDict(ref)
	if err != nil || field == nil {
		return "", err
	}
	name, _, err := d.inherit(field)
	return name, err
}

// CalculationOrder returns the fully qualified names listed in the form's /CO
func CalculationOrder(doc *Document) ([]string, error) {
	form, err := doc.AcroForm()
	if err != nil || form == nil {
		return nil, err
	}
	co, err := doc.ResolveArray(form.Get("CO"))
	if err != nil || co == nil {
		return nil, err
	}
	var names []string
	for _, elem := range co.Elements {
		ref, ok := elem.(*object.IndirectRef)
		if !ok {
			continue
		}
		name, err := doc.FieldName(ref)
		if err != nil {
			return nil, err
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// NeedAppearances reports whether the form asks viewers to rebuild appearances
func NeedAppearances(doc *Document) bool {
	form, err := doc.AcroForm()
	if err != nil || form == nil {
		return false
	}
	v, err := doc.Resolve(form.Get("NeedAppearances"))
	if err != nil {
		return false
	}
	b, ok := v.(*object.Bool)
	return ok && b.Value
}
