// Package writer buffers indirect objects of the document being built and
// serializes the surviving ones with their cross-reference table.
package writer

import (
	"fmt"
	"io"
	"sort"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

const pdfHeader = "%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"

// countingWriter tracks the byte offset of everything written to the sink
type countingWriter struct {
	w      io.Writer
	offset int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.offset += int64(n)
	return n, err
}

// Body is the output cache of one destination document.
//
// In buffered mode AddToBody only caches objects so later passes can still
// mutate or exclude them; FlushIndirectObjects writes what survived. In
// direct mode AddToBody writes immediately.
type Body struct {
	out      *countingWriter
	buffered bool
	started  bool
	closed   bool
	next     int
	cache    map[int]object.Object
	excluded map[int]bool
	xref     *XRefTable
}

// NewBody creates an output cache writing to w
func NewBody(w io.Writer, buffered bool) *Body {
	return &Body{
		out:      &countingWriter{w: w},
		buffered: buffered,
		next:     1,
		cache:    make(map[int]object.Object),
		excluded: make(map[int]bool),
		xref:     NewXRefTable(),
	}
}

// Buffered reports whether objects are cached until FlushIndirectObjects
func (b *Body) Buffered() bool {
	return b.buffered
}

// Reserve allocates a fresh destination object number
func (b *Body) Reserve() *object.IndirectRef {
	ref := object.Ref(b.next, 0)
	b.next++
	return ref
}

// Add reserves a number for obj and adds it to the body
func (b *Body) Add(obj object.Object) (*object.IndirectRef, error) {
	ref := b.Reserve()
	return ref, b.AddToBody(ref, obj)
}

// AddToBody stores obj under a previously reserved ref
func (b *Body) AddToBody(ref *object.IndirectRef, obj object.Object) error {
	if b.closed {
		return fmt.Errorf("output already finished, cannot add object %s", ref.ID)
	}
	if ref.ID.Number <= 0 || ref.ID.Number >= b.next {
		return fmt.Errorf("object %s was not reserved", ref.ID)
	}
	if b.buffered {
		b.CacheObject(ref, obj)
		return nil
	}
	return b.write(ref.ID, obj)
}

// CacheObject buffers obj under ref, replacing any earlier content
func (b *Body) CacheObject(ref *object.IndirectRef, obj object.Object) {
	b.cache[ref.ID.Number] = obj
	delete(b.excluded, ref.ID.Number)
}

// Get returns the buffered object stored under ref, or nil
func (b *Body) Get(ref *object.IndirectRef) object.Object {
	if ref == nil {
		return nil
	}
	return b.cache[ref.ID.Number]
}

// Has reports whether content is buffered under ref
func (b *Body) Has(ref *object.IndirectRef) bool {
	_, ok := b.cache[ref.ID.Number]
	return ok
}

// Exclude drops the buffered object under ref from the output
func (b *Body) Exclude(ref *object.IndirectRef) {
	delete(b.cache, ref.ID.Number)
	b.excluded[ref.ID.Number] = true
}

// Cached returns the references of all buffered objects in ascending order
func (b *Body) Cached() []*object.IndirectRef {
	numbers := make([]int, 0, len(b.cache))
	for n := range b.cache {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	refs := make([]*object.IndirectRef, len(numbers))
	for i, n := range numbers {
		refs[i] = object.Ref(n, 0)
	}
	return refs
}

func (b *Body) ensureHeader() error {
	if b.started {
		return nil
	}
	b.started = true
	_, err := io.WriteString(b.out, pdfHeader)
	return err
}

func (b *Body) write(id object.ObjectID, obj object.Object) error {
	if err := b.ensureHeader(); err != nil {
		return err
	}
	if e := b.xref.GetEntry(id.Number); e != nil && e.InUse {
		return fmt.Errorf("object %s already written", id)
	}
	b.xref.AddEntry(&XRefEntry{ObjectID: id, Offset: b.out.offset, InUse: true})
	if _, err := fmt.Fprintf(b.out, "%d %d obj\n", id.Number, id.Generation); err != nil {
		return err
	}
	if _, err := b.out.Write(object.Serialize(obj)); err != nil {
		return err
	}
	_, err := io.WriteString(b.out, "\nendobj\n")
	return err
}

// FlushIndirectObjects writes every buffered object that was not excluded,
// in ascending object number, and empties the cache
func (b *Body) FlushIndirectObjects() error {
	for _, ref := range b.Cached() {
		if err := b.write(ref.ID, b.cache[ref.ID.Number]); err != nil {
			return err
		}
		delete(b.cache, ref.ID.Number)
	}
	return nil
}

// Finish flushes the cache and writes the cross-reference table and trailer.
// Reserved numbers that never received content are listed as free.
func (b *Body) Finish(root, info *object.IndirectRef) (*XRefTable, error) {
	if b.closed {
		return nil, fmt.Errorf("output already finished")
	}
	if err := b.FlushIndirectObjects(); err != nil {
		return nil, err
	}
	if err := b.ensureHeader(); err != nil {
		return nil, err
	}
	b.closed = true

	for n := 1; n < b.next; n++ {
		if b.xref.GetEntry(n) == nil {
			b.xref.AddEntry(&XRefEntry{ObjectID: object.ObjectID{Number: n}})
		}
	}

	start := b.out.offset
	if err := b.xref.writeTo(b.out); err != nil {
		return nil, err
	}

	trailer := object.NewDictionary()
	trailer.Set("Size", object.Int(int64(b.xref.MaxObj+1)))
	if root != nil {
		trailer.Set("Root", root)
	}
	if info != nil {
		trailer.Set("Info", info)
	}
	if _, err := fmt.Fprintf(b.out, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", object.Serialize(trailer), start); err != nil {
		return nil, err
	}
	return b.xref, nil
}
