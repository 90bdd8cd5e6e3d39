// Package fields merges same-named form fields of several documents into
// one AcroForm field hierarchy.
package fields

import (
	"io"
	"log"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// Field flags that decide whether two instances can share a leaf
const (
	FlagRadio      = 1 << 15
	FlagPushButton = 1 << 16
	FlagCombo      = 1 << 17
)

// fieldKeys are carried into the field dictionary of a leaf
var fieldKeys = map[string]bool{
	"AA": true, "FT": true, "TU": true, "TM": true, "Ff": true, "V": true, "DV": true,
	"DS": true, "RV": true, "Opt": true, "MaxLen": true, "TI": true, "I": true,
	"Lock": true, "SV": true,
}

// widgetKeys are carried into each widget annotation
var widgetKeys = map[string]bool{
	"Subtype": true, "Contents": true, "Rect": true, "NM": true, "M": true, "F": true,
	"BS": true, "Border": true, "AP": true, "AS": true, "C": true, "A": true,
	"StructParent": true, "OC": true, "H": true, "MK": true, "DA": true, "Q": true,
	"P": true, "Type": true,
}

// resourceKinds are the resource categories merged into the shared /DR
var resourceKinds = []string{"Font", "XObject", "ColorSpace", "Pattern"}

// Body is the destination output cache used while merging
type Body interface {
	Reserve() *object.IndirectRef
	AddToBody(ref *object.IndirectRef, obj object.Object) error
	Get(ref *object.IndirectRef) object.Object
}

// Instance is one on-page occurrence of a field in a source document
type Instance struct {
	// Merged is the widget dictionary merged with its ancestors and the form defaults
	Merged *object.Dictionary
	// Value is the current value of this instance, resolved in the source
	Value object.Object
	// Ref is the destination slot claimed for the widget annotation
	Ref *object.IndirectRef
	// Page is the destination page the widget sits on
	Page *object.IndirectRef
	// Tab is the position of the widget in its page's /Annots
	Tab int
}

// Item is every instance of one fully qualified field name in one source
type Item struct {
	Name      string
	Instances []Instance
	// Translate copies a source value into the destination document
	Translate func(object.Object) (object.Object, error)
}

// Widget is one widget annotation of a leaf
type Widget struct {
	Ref        *object.IndirectRef
	Page       *object.IndirectRef
	PageNumber int
	Dict       *object.Dictionary
	Tab        int
	Value      object.Object
}

// Leaf is a terminal field and its widgets
type Leaf struct {
	Field         *object.Dictionary
	Widgets       []*Widget
	Signature     bool
	radioSelected bool
}

// Node is a branch of the field tree when Leaf is nil
type Node struct {
	Name  string
	Leaf  *Leaf
	kids  []*Node
	index map[string]*Node
}

func newBranch(name string) *Node {
	return &Node{Name: name, index: make(map[string]*Node)}
}

// Kids returns the children of a branch in insertion order
func (n *Node) Kids() []*Node {
	return n.kids
}

// Child returns the named child
func (n *Node) Child(name string) *Node {
	return n.index[name]
}

func (n *Node) add(child *Node) {
	n.kids = append(n.kids, child)
	n.index[child.Name] = child
}

// Merger accumulates the field tree of all merged sources
type Merger struct {
	body            Body
	root            *Node
	resources       *object.Dictionary
	hasSignature    bool
	needAppearances bool
	calcOrder       []string
	logger          *log.Logger
}

// NewMerger creates an empty field merger
func NewMerger(body Body, logger *log.Logger) *Merger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Merger{
		body:      body,
		root:      newBranch(""),
		resources: object.NewDictionary(),
		logger:    logger,
	}
}

// Root returns the top of the field tree
func (m *Merger) Root() *Node {
	return m.root
}

// Empty reports whether no field has been merged
func (m *Merger) Empty() bool {
	return len(m.root.kids) == 0
}

// HasSignature reports whether a signature field was merged
func (m *Merger) HasSignature() bool {
	return m.hasSignature
}

// SetNeedAppearances asks viewers to regenerate appearances
func (m *Merger) SetNeedAppearances() {
	m.needAppearances = true
}

// AddCalculationOrder appends fully qualified names to the calculation order
func (m *Merger) AddCalculationOrder(names ...string) {
	for _, name := range names {
		dup := false
		for _, existing := range m.calcOrder {
			if existing == name {
				dup = true
				break
			}
		}
		if !dup {
			m.calcOrder = append(m.calcOrder, name)
		}
	}
}

// Resources returns the shared resource dictionary
func (m *Merger) Resources() *object.Dictionary {
	return m.resources
}

// MergeField adds item to the tree under its dotted name. A name that
// collides with an incompatible field or with a branch is skipped and
// reported as a structural mismatch.
func (m *Merger) MergeField(item Item) error {
	if len(item.Instances) == 0 {
		return nil
	}
	segments := strings.FieldsFunc(item.Name, func(r rune) bool { return r == '.' })
	if len(segments) == 0 {
		return nil
	}
	node := m.root
	for _, seg := range segments[:len(segments)-1] {
		next := node.Child(seg)
		if next == nil {
			next = newBranch(seg)
			node.add(next)
		} else if next.Leaf != nil {
			return mismatch(item.Name, "name prefix is a terminal field")
		}
		node = next
	}

	last := segments[len(segments)-1]
	existing := node.Child(last)
	if existing != nil && existing.Leaf == nil {
		return mismatch(item.Name, "name is already a field branch")
	}

	merged := item.Instances[0].Merged
	if existing == nil {
		field := object.NewDictionary()
		for _, key := range merged.Keys() {
			if !fieldKeys[key] {
				continue
			}
			v, err := translate(item, merged.Get(key))
			if err != nil {
				return err
			}
			field.Set(key, v)
		}
		leaf := &Leaf{Field: field, Signature: merged.GetName("FT") == "Sig"}
		if leaf.Signature {
			m.hasSignature = true
		}
		if err := m.createWidgets(leaf, item); err != nil {
			return err
		}
		child := &Node{Name: last, Leaf: leaf}
		node.add(child)
		return nil
	}

	leaf := existing.Leaf
	if reason := compatible(leaf.Field, merged); reason != "" {
		m.logger.Printf("not merging field %q: %s", item.Name, reason)
		return mismatch(item.Name, reason)
	}
	return m.createWidgets(leaf, item)
}

// compatible returns why merged cannot join a leaf holding field, or ""
func compatible(field, merged *object.Dictionary) string {
	ft1 := field.GetName("FT")
	ft2 := merged.GetName("FT")
	if ft1 == "" || ft1 != ft2 {
		return "field types differ"
	}
	f1 := field.GetInt("Ff")
	f2 := merged.GetInt("Ff")
	switch ft1 {
	case "Btn":
		if (f1^f2)&FlagPushButton != 0 {
			return "push button flag differs"
		}
		if f1&FlagPushButton == 0 && (f1^f2)&FlagRadio != 0 {
			return "radio flag differs"
		}
	case "Ch":
		if (f1^f2)&FlagCombo != 0 {
			return "combo flag differs"
		}
	}
	return ""
}

// createWidgets appends a widget for every instance of item to leaf
func (m *Merger) createWidgets(leaf *Leaf, item Item) error {
	for _, inst := range item.Instances {
		if dr := inst.Merged.Get("DR"); dr != nil {
			v, err := translate(item, dr)
			if err != nil {
				return err
			}
			m.mergeResources(v)
		}

		widget := object.NewDictionary()
		for _, key := range inst.Merged.Keys() {
			if !widgetKeys[key] {
				continue
			}
			v, err := translate(item, inst.Merged.Get(key))
			if err != nil {
				return err
			}
			widget.Set(key, v)
		}
		leaf.Widgets = append(leaf.Widgets, &Widget{
			Ref:   inst.Ref,
			Page:  inst.Page,
			Dict:  widget,
			Tab:   inst.Tab + 1,
			Value: inst.Value,
		})
	}
	return nil
}

// mergeResources adds the entries of dr that the shared resources lack
func (m *Merger) mergeResources(dr object.Object) {
	source, ok := m.resolve(dr).(*object.Dictionary)
	if !ok {
		return
	}
	for _, kind := range resourceKinds {
		src, ok := m.resolve(source.Get(kind)).(*object.Dictionary)
		if !ok {
			continue
		}
		target, ok := m.resources.Get(kind).(*object.Dictionary)
		if !ok {
			target = object.NewDictionary()
			m.resources.Set(kind, target)
		}
		target.MergeDifferent(src)
	}
}

func (m *Merger) resolve(obj object.Object) object.Object {
	if ref, ok := obj.(*object.IndirectRef); ok {
		return m.body.Get(ref)
	}
	return obj
}

// ResolvePages assigns destination page numbers to widgets. number returns 0
// for pages that were never emitted; their widgets are dropped together with
// any field left without widgets.
func (m *Merger) ResolvePages(number func(page *object.IndirectRef) int) int {
	return prune(m.root, number)
}

func prune(n *Node, number func(*object.IndirectRef) int) int {
	dropped := 0
	kids := n.kids[:0]
	for _, kid := range n.kids {
		if kid.Leaf != nil {
			widgets := kid.Leaf.Widgets[:0]
			for _, w := range kid.Leaf.Widgets {
				if w.PageNumber = number(w.Page); w.PageNumber > 0 {
					widgets = append(widgets, w)
				} else {
					dropped++
				}
			}
			kid.Leaf.Widgets = widgets
			if len(widgets) == 0 {
				delete(n.index, kid.Name)
				continue
			}
		} else {
			dropped += prune(kid, number)
			if len(kid.kids) == 0 {
				delete(n.index, kid.Name)
				continue
			}
		}
		kids = append(kids, kid)
	}
	n.kids = kids
	return dropped
}

func translate(item Item, v object.Object) (object.Object, error) {
	if item.Translate == nil || v == nil {
		return v, nil
	}
	return item.Translate(v)
}

func mismatch(name, reason string) error {
	return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeStructuralMismatch,
		"field "+name+" not merged", reason)
}
