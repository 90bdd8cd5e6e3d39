package writer

import (
	"fmt"
	"io"
	"sort"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

// XRefEntry is one row of the cross-reference table
type XRefEntry struct {
	ObjectID object.ObjectID
	Offset   int64
	InUse    bool
}

// XRefTable lists every object number of the output and where it was written
type XRefTable struct {
	Entries map[int]*XRefEntry
	MaxObj  int
}

func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
	}
}

func (x *XRefTable) AddEntry(entry *XRefEntry) {
	x.Entries[entry.ObjectID.Number] = entry
	if entry.ObjectID.Number > x.MaxObj {
		x.MaxObj = entry.ObjectID.Number
	}
}

func (x *XRefTable) GetEntry(number int) *XRefEntry {
	return x.Entries[number]
}

// InUse returns the in-use object identities in ascending order
func (x *XRefTable) InUse() []object.ObjectID {
	ids := make([]object.ObjectID, 0, len(x.Entries))
	for _, e := range x.Entries {
		if e.InUse {
			ids = append(ids, e.ObjectID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Number < ids[j].Number })
	return ids
}

// Count returns the number of in-use entries
func (x *XRefTable) Count() int {
	n := 0
	for _, e := range x.Entries {
		if e.InUse {
			n++
		}
	}
	return n
}

// writeTo emits a classic xref section covering objects 0..MaxObj.
// Free entries are chained in ascending order back to object 0.
func (x *XRefTable) writeTo(w io.Writer) error {
	size := x.MaxObj + 1
	if _, err := fmt.Fprintf(w, "xref\n0 %d\n", size); err != nil {
		return err
	}

	next := make([]int, size)
	last := 0
	for n := size - 1; n > 0; n-- {
		if e := x.Entries[n]; e == nil || !e.InUse {
			next[n] = last
			last = n
		}
	}
	if _, err := fmt.Fprintf(w, "%010d 65535 f \n", last); err != nil {
		return err
	}

	for n := 1; n < size; n++ {
		e := x.Entries[n]
		var err error
		if e != nil && e.InUse {
			_, err = fmt.Fprintf(w, "%010d %05d n \n", e.Offset, e.ObjectID.Generation)
		} else {
			_, err = fmt.Fprintf(w, "%010d 00001 f \n", next[n])
		}
		if err != nil {
			return err
		}
	}
	return nil
}
