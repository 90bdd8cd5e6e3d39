package fields

import (
	"fmt"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// BranchForm writes the field tree into the body, splices every widget into
// the annotation array returned by annots for its page, and returns the
// AcroForm dictionary.
func (m *Merger) BranchForm(annots func(page *object.IndirectRef) *object.Array) (*object.Dictionary, error) {
	if _, ok := m.resources.Get("Font").(*object.Dictionary); !ok {
		m.resources.Set("Font", object.NewDictionary())
	}
	fonts := m.resources.Get("Font").(*object.Dictionary)
	if !fonts.Has("Helv") {
		helv := object.NewDictionary()
		helv.Set("Type", object.NewName("Font"))
		helv.Set("Subtype", object.NewName("Type1"))
		helv.Set("BaseFont", object.NewName("Helvetica"))
		helv.Set("Encoding", object.NewName("WinAnsiEncoding"))
		fonts.Set("Helv", helv)
	}

	b := &brancher{
		merger:  m,
		annots:  annots,
		tabs:    NewTabOrder(),
		calcRef: make(map[string]*object.IndirectRef),
	}
	fieldsArr, err := b.branch(m.root, nil, "")
	if err != nil {
		return nil, err
	}

	form := object.NewDictionary()
	form.Set("Fields", fieldsArr)
	form.Set("DR", m.resources)
	form.Set("DA", object.Text(DefaultAppearance))
	if m.needAppearances {
		form.Set("NeedAppearances", &object.Bool{Value: true})
	}
	if m.hasSignature {
		form.Set("SigFlags", object.Int(3))
	}
	co := object.NewArray()
	for _, name := range m.calcOrder {
		if ref, ok := b.calcRef[name]; ok {
			co.Add(ref)
		}
	}
	if co.Len() > 0 {
		form.Set("CO", co)
	}
	return form, nil
}

type brancher struct {
	merger  *Merger
	annots  func(page *object.IndirectRef) *object.Array
	tabs    *TabOrder
	calcRef map[string]*object.IndirectRef
}

func (b *brancher) branch(level *Node, parent *object.IndirectRef, prefix string) (*object.Array, error) {
	out := object.NewArray()
	for _, node := range level.kids {
		name := node.Name
		if prefix != "" {
			name = prefix + "." + node.Name
		}

		dict := object.NewDictionary()
		if parent != nil {
			dict.Set("Parent", parent)
		}
		dict.Set("T", object.Text(object.EncodeText(node.Name)))

		var ref *object.IndirectRef
		switch {
		case node.Leaf == nil:
			ref = b.merger.body.Reserve()
			kids, err := b.branch(node, ref, name)
			if err != nil {
				return nil, err
			}
			dict.Set("Kids", kids)
		case len(node.Leaf.Widgets) == 1:
			w := node.Leaf.Widgets[0]
			ref = w.Ref
			dict.MergeDifferent(node.Leaf.Field)
			dict.MergeDifferent(w.Dict)
			dict.Set("Type", object.NewName("Annot"))
			b.fixState(node.Leaf, dict, w)
			b.place(w, ref)
		default:
			ref = b.merger.body.Reserve()
			dict.MergeDifferent(node.Leaf.Field)
			kids, err := b.widgets(node.Leaf, ref)
			if err != nil {
				return nil, err
			}
			dict.Set("Kids", kids)
		}

		if err := b.merger.body.AddToBody(ref, dict); err != nil {
			return nil, fmt.Errorf("adding field %s: %w", name, err)
		}
		b.calcRef[name] = ref
		out.Add(ref)
	}
	return out, nil
}

// widgets writes the kid widgets of a leaf with several instances
func (b *brancher) widgets(leaf *Leaf, parent *object.IndirectRef) (*object.Array, error) {
	kids := object.NewArray()
	first := leaf.Widgets[0].Value
	for i, w := range leaf.Widgets {
		widget := w.Dict.Clone()
		widget.Set("Parent", parent)
		b.fixState(leaf, widget, w)
		if i > 0 && isTextField(leaf.Field) && differs(first, w.Value) {
			if err := b.regenerate(widget, object.TextOf(w.Value)); err != nil {
				return nil, err
			}
		}
		if err := b.merger.body.AddToBody(w.Ref, widget); err != nil {
			return nil, fmt.Errorf("adding widget %s: %w", w.Ref.ID, err)
		}
		b.place(w, w.Ref)
		kids.Add(w.Ref)
	}
	return kids, nil
}

func (b *brancher) place(w *Widget, ref *object.IndirectRef) {
	if annots := b.annots(w.Page); annots != nil {
		b.tabs.Adjust(annots, ref, w.Tab)
	}
}

// fixState sets the appearance state of button widgets from the field value
func (b *brancher) fixState(leaf *Leaf, widget *object.Dictionary, w *Widget) {
	switch {
	case isCheckButton(leaf.Field):
		v := leaf.Field.GetName("V")
		if v == "" || !widget.Has("AS") {
			return
		}
		if b.hasNormalState(widget, v) {
			widget.Set("AS", object.NewName(v))
		} else {
			widget.Set("AS", object.NewName("Off"))
		}
	case isRadioButton(leaf.Field):
		as := widget.GetName("AS")
		if as == "" || as == "Off" {
			return
		}
		if !leaf.radioSelected && as == leaf.Field.GetName("V") {
			leaf.radioSelected = true
			return
		}
		widget.Set("AS", object.NewName("Off"))
	}
}

func (b *brancher) hasNormalState(widget *object.Dictionary, state string) bool {
	ap, ok := b.merger.resolve(widget.Get("AP")).(*object.Dictionary)
	if !ok {
		return false
	}
	n, ok := b.merger.resolve(ap.Get("N")).(*object.Dictionary)
	if !ok {
		return false
	}
	return n.Has(state)
}

// regenerate replaces the normal appearance of a text widget with one
// showing value
func (b *brancher) regenerate(widget *object.Dictionary, value string) error {
	da := widget.GetString("DA")
	if da == "" {
		da = DefaultAppearance
	}
	q := widget.GetInt("Q")

	stream := textAppearance(widget, da, q, value, b.merger.resources)
	ref := b.merger.body.Reserve()
	if err := b.merger.body.AddToBody(ref, stream); err != nil {
		return err
	}
	ap := object.NewDictionary()
	if current, ok := b.merger.resolve(widget.Get("AP")).(*object.Dictionary); ok {
		ap = current.Clone()
	}
	ap.Set("N", ref)
	widget.Set("AP", ap)
	return nil
}

func differs(first, own object.Object) bool {
	if own == nil {
		return false
	}
	return object.TextOf(first) != object.TextOf(own)
}

func isTextField(field *object.Dictionary) bool {
	return field.GetName("FT") == "Tx"
}

func isCheckButton(field *object.Dictionary) bool {
	ff := field.GetInt("Ff")
	return field.GetName("FT") == "Btn" && ff&(FlagPushButton|FlagRadio) == 0
}

func isRadioButton(field *object.Dictionary) bool {
	ff := field.GetInt("Ff")
	return field.GetName("FT") == "Btn" && ff&FlagPushButton == 0 && ff&FlagRadio != 0
}
