package structure

import (
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// SweepResult summarizes one reconciliation pass
type SweepResult struct {
	Active      int
	Excluded    []*object.IndirectRef
	DroppedKeys []int64
	Classes     []string
}

type activeSet struct {
	keys    map[object.ObjectID]bool
	order   []*object.IndirectRef
	classes map[string]bool
}

func newActiveSet() *activeSet {
	return &activeSet{
		keys:    make(map[object.ObjectID]bool),
		classes: make(map[string]bool),
	}
}

func (a *activeSet) has(ref *object.IndirectRef) bool {
	return ref != nil && a.keys[ref.ID]
}

func (a *activeSet) add(ref *object.IndirectRef) bool {
	if ref == nil || a.keys[ref.ID] {
		return false
	}
	a.keys[ref.ID] = true
	a.order = append(a.order, ref)
	return true
}

// Sweep computes the objects reachable from the emitted pages and the
// AcroForm, repairs page back-references of structure elements, and excludes
// every other buffered object from body. It must run before Build.
func (t *Tree) Sweep(body Body, pages []*object.IndirectRef, acroForm *object.IndirectRef) *SweepResult {
	active := newActiveSet()
	isPage := make(map[object.ObjectID]bool, len(pages))
	for _, p := range pages {
		isPage[p.ID] = true
	}

	result := &SweepResult{}
	if acroForm != nil {
		active.add(acroForm)
	}
	for _, p := range pages {
		active.add(p)
	}

	// Later slots can reuse marked content of earlier pages, so walk from the end.
	keys := t.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		n := keys[i]
		mark := t.marks[n]
		switch v := body.Get(mark.Ref).(type) {
		case *object.Dictionary:
			if isPage[pgOf(v)] {
				active.add(mark.Ref)
			} else if kid := kDict(body, v); isPage[pgOf(kid)] {
				if v.Has("Pg") {
					v.Set("Pg", kid.GetRef("Pg"))
				}
				active.add(mark.Ref)
			} else {
				delete(t.marks, n)
				result.DroppedKeys = append(result.DroppedKeys, n)
			}
		case *object.Array:
			active.add(mark.Ref)
			if mark.Page != nil {
				active.add(mark.Page)
			}
			t.repointKids(body, v, mark.Page, isPage, active)
		default:
			delete(t.marks, n)
			result.DroppedKeys = append(result.DroppedKeys, n)
		}
	}

	findActives(body, active, 0)
	parents := findActiveParents(body, active)
	fixPgKey(body, parents, active)

	// parents reached only through /P keep their attributes but not their kids
	start := len(active.order)
	for _, ref := range parents {
		if dict, ok := body.Get(ref).(*object.Dictionary); ok {
			activeFromAttributes(body, dict, active)
		}
	}
	findActives(body, active, start)
	t.fixRoot(active)

	excluded := make(map[object.ObjectID]bool)
	var kept []*object.IndirectRef
	for _, ref := range body.Cached() {
		if ref.ID != t.Root.ID && !active.has(ref) {
			body.Exclude(ref)
			excluded[ref.ID] = true
			result.Excluded = append(result.Excluded, ref)
			continue
		}
		kept = append(kept, ref)
	}
	for _, ref := range kept {
		obj := body.Get(ref)
		switch v := obj.(type) {
		case *object.Array:
			removeInactiveReferences(body, v, active)
		case *object.Dictionary:
			if kids := v.GetArray("K"); kids != nil {
				removeInactiveReferences(body, kids, active)
			}
		}
		dropExcluded(obj, excluded)
	}

	result.Active = len(active.order)
	for name := range active.classes {
		result.Classes = append(result.Classes, name)
	}
	return result
}

// repointKids moves the elements of a page's marked-content array onto page
// when their own page is not emitted, dropping the stale leading MCID.
func (t *Tree) repointKids(body Body, marks *object.Array, page *object.IndirectRef, isPage map[object.ObjectID]bool, active *activeSet) {
	var prev *object.IndirectRef
	for _, elem := range marks.Elements {
		kid, ok := elem.(*object.IndirectRef)
		if !ok {
			continue
		}
		if prev != nil && prev.ID == kid.ID {
			continue
		}
		prev = kid
		active.add(kid)

		dict, ok := body.Get(kid).(*object.Dictionary)
		if !ok || page == nil {
			continue
		}
		pg := dict.GetRef("Pg")
		if pg == nil || isPage[pg.ID] || pg.ID == page.ID {
			continue
		}
		dict.Set("Pg", page)
		if k := dict.GetArray("K"); k != nil && k.Len() > 0 {
			if _, isMCID := k.Get(0).(*object.Number); isMCID {
				k.Remove(0)
			}
		}
	}
}

func findActives(body Body, active *activeSet, start int) {
	for i := start; i < len(active.order); i++ {
		switch v := body.Get(active.order[i]).(type) {
		case *object.IndirectRef:
			activeFromRef(body, v, active)
		case *object.Array:
			activeFromArray(body, v, active)
		case *object.Dictionary:
			activeFromDict(body, v, active)
		case *object.Stream:
			activeFromDict(body, v.Dict, active)
		}
	}
}

func activeFromRef(body Body, ref *object.IndirectRef, active *activeSet) {
	if dict, ok := body.Get(ref).(*object.Dictionary); ok && inactivePg(dict, active) {
		return
	}
	active.add(ref)
}

func activeFromArray(body Body, arr *object.Array, active *activeSet) {
	for _, elem := range arr.Elements {
		activeFromValue(body, elem, active)
	}
}

func activeFromValue(body Body, value object.Object, active *activeSet) {
	switch v := value.(type) {
	case *object.IndirectRef:
		activeFromRef(body, v, active)
	case *object.Array:
		activeFromArray(body, v, active)
	case *object.Dictionary:
		activeFromDict(body, v, active)
	case *object.Stream:
		activeFromDict(body, v.Dict, active)
	}
}

func activeFromDict(body Body, dict *object.Dictionary, active *activeSet) {
	if inactivePg(dict, active) {
		return
	}
	for _, key := range dict.Keys() {
		value := dict.Get(key)
		switch key {
		case "P":
			continue
		case "C":
			addClasses(value, active)
			continue
		}
		activeFromValue(body, value, active)
	}
}

// activeFromAttributes activates what a parent element refers to apart from
// its kids, its own parent and its page
func activeFromAttributes(body Body, dict *object.Dictionary, active *activeSet) {
	for _, key := range dict.Keys() {
		switch key {
		case "P", "K", "Pg":
			continue
		case "C":
			addClasses(dict.Get(key), active)
			continue
		}
		activeFromValue(body, dict.Get(key), active)
	}
}

func addClasses(value object.Object, active *activeSet) {
	switch c := value.(type) {
	case *object.Name:
		active.classes[c.Value] = true
	case *object.Array:
		for _, elem := range c.Elements {
			if name, ok := elem.(*object.Name); ok {
				active.classes[name.Value] = true
			}
		}
	}
}

// findActiveParents activates the /P chain of every active dictionary and
// returns the references it added
func findActiveParents(body Body, active *activeSet) []*object.IndirectRef {
	var added []*object.IndirectRef
	queue := append([]*object.IndirectRef(nil), active.order...)
	for i := 0; i < len(queue); i++ {
		dict, ok := body.Get(queue[i]).(*object.Dictionary)
		if !ok {
			continue
		}
		parent := dict.GetRef("P")
		if parent == nil || !active.add(parent) {
			continue
		}
		queue = append(queue, parent)
		added = append(added, parent)
	}
	return added
}

// fixPgKey gives each newly activated parent with an inactive /Pg the page
// of its first kid that sits on an active page
func fixPgKey(body Body, refs []*object.IndirectRef, active *activeSet) {
	for _, ref := range refs {
		dict, ok := body.Get(ref).(*object.Dictionary)
		if !ok {
			continue
		}
		pg := dict.GetRef("Pg")
		if pg == nil || active.has(pg) {
			continue
		}
		kids := dict.GetArray("K")
		if kids == nil {
			continue
		}
		for i := 0; i < kids.Len(); i++ {
			kidRef, isRef := kids.Get(i).(*object.IndirectRef)
			if !isRef {
				kids.Remove(i)
				i--
				continue
			}
			kid, ok := body.Get(kidRef).(*object.Dictionary)
			if !ok {
				continue
			}
			if kidPg := kid.GetRef("Pg"); kidPg != nil && active.has(kidPg) {
				dict.Set("Pg", kidPg)
				break
			}
		}
	}
}

// fixRoot keeps only the active root kids and the classes still in use
func (t *Tree) fixRoot(active *activeSet) {
	classMap := object.NewDictionary()
	for _, name := range t.classMap.Keys() {
		if active.classes[name] {
			classMap.Set(name, t.classMap.Get(name))
		}
	}
	t.classMap = classMap

	kids := t.kids[:0]
	for _, k := range t.kids {
		if active.has(k) {
			kids = append(kids, k)
		}
	}
	t.kids = kids
}

func removeInactiveReferences(body Body, arr *object.Array, active *activeSet) {
	for i := 0; i < arr.Len(); i++ {
		switch v := arr.Get(i).(type) {
		case *object.IndirectRef:
			if !active.has(v) {
				arr.Remove(i)
				i--
			}
		case *object.Dictionary:
			if inactivePg(v, active) {
				arr.Remove(i)
				i--
			}
		}
	}
}

// dropExcluded removes dictionary entries that refer to excluded objects and
// nulls such references inside arrays, descending into direct values
func dropExcluded(value object.Object, excluded map[object.ObjectID]bool) {
	switch v := value.(type) {
	case *object.Dictionary:
		for _, key := range v.Keys() {
			if ref, ok := v.Get(key).(*object.IndirectRef); ok && excluded[ref.ID] {
				v.Remove(key)
				continue
			}
			dropExcluded(v.Get(key), excluded)
		}
	case *object.Stream:
		dropExcluded(v.Dict, excluded)
	case *object.Array:
		for i, elem := range v.Elements {
			if ref, ok := elem.(*object.IndirectRef); ok && excluded[ref.ID] {
				v.Elements[i] = &object.Null{}
				continue
			}
			dropExcluded(elem, excluded)
		}
	}
}

func inactivePg(dict *object.Dictionary, active *activeSet) bool {
	pg := dict.GetRef("Pg")
	return pg != nil && !active.has(pg)
}

func pgOf(dict *object.Dictionary) object.ObjectID {
	if dict == nil {
		return object.ObjectID{}
	}
	if pg := dict.GetRef("Pg"); pg != nil {
		return pg.ID
	}
	return object.ObjectID{}
}

// kDict returns the first dictionary kid of a structure element
func kDict(body Body, elem *object.Dictionary) *object.Dictionary {
	var k object.Object = elem.Get("K")
	if arr, ok := k.(*object.Array); ok {
		if arr.Len() == 0 {
			return nil
		}
		k = arr.Get(0)
	}
	if ref, ok := k.(*object.IndirectRef); ok {
		k = body.Get(ref)
	}
	d, _ := k.(*object.Dictionary)
	return d
}
