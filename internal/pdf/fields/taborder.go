package fields

import (
	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// TabOrder keeps, per page annotation array, the tab index of every entry
type TabOrder struct {
	tabs map[*object.Array][]int
}

func NewTabOrder() *TabOrder {
	return &TabOrder{tabs: make(map[*object.Array][]int)}
}

// Adjust inserts ref into annots after the last entry whose tab index is not
// greater than tab. Entries present before the first insertion count as tab 0.
func (t *TabOrder) Adjust(annots *object.Array, ref *object.IndirectRef, tab int) {
	order, ok := t.tabs[annots]
	if !ok {
		order = make([]int, annots.Len())
		order = append(order, tab)
		annots.Add(ref)
		t.tabs[annots] = order
		return
	}

	for k := len(order) - 1; k >= 0; k-- {
		if order[k] <= tab {
			order = append(order, 0)
			copy(order[k+2:], order[k+1:])
			order[k+1] = tab
			annots.Insert(k+1, ref)
			t.tabs[annots] = order
			return
		}
	}

	order = append([]int{tab}, order...)
	annots.Insert(0, ref)
	t.tabs[annots] = order
}

// Tabs returns the tab indices recorded for annots
func (t *TabOrder) Tabs(annots *object.Array) []int {
	return append([]int(nil), t.tabs[annots]...)
}
