package writer

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-merger/internal/pdf/object"
)

func TestBodyBufferedFlushSkipsExcluded(t *testing.T) {
	var buf bytes.Buffer
	body := NewBody(&buf, true)

	kept := body.Reserve()
	dropped := body.Reserve()
	catalog := body.Reserve()

	require.NoError(t, body.AddToBody(kept, object.Text("kept")))
	require.NoError(t, body.AddToBody(dropped, object.Text("dropped")))
	cat := object.NewDictionary()
	cat.Set("Type", object.NewName("Catalog"))
	require.NoError(t, body.AddToBody(catalog, cat))
	assert.Zero(t, buf.Len(), "buffered body must not write before flush")

	body.Exclude(dropped)
	assert.Nil(t, body.Get(dropped))

	xref, err := body.Finish(catalog, nil)
	require.NoError(t, err)

	assert.Equal(t, []object.ObjectID{kept.ID, catalog.ID}, xref.InUse())
	assert.False(t, xref.GetEntry(dropped.ID.Number).InUse)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-1.7"))
	assert.NotContains(t, out, "(dropped)")
	assert.Contains(t, out, "/Root 3 0 R")

	for _, id := range xref.InUse() {
		offset := xref.GetEntry(id.Number).Offset
		assert.True(t, strings.HasPrefix(out[offset:], fmt.Sprintf("%d 0 obj", id.Number)),
			"offset of object %d must point at its header", id.Number)
	}
}

func TestBodyXRefSection(t *testing.T) {
	var buf bytes.Buffer
	body := NewBody(&buf, true)
	a := body.Reserve()
	b := body.Reserve()
	require.NoError(t, body.AddToBody(b, object.Int(7)))
	_ = a

	_, err := body.Finish(b, nil)
	require.NoError(t, err)

	out := buf.String()
	xrefAt := strings.Index(out, "xref\n")
	require.Positive(t, xrefAt)
	lines := strings.Split(out[xrefAt:], "\n")
	assert.Equal(t, "0 3", lines[1])
	assert.Equal(t, "0000000001 65535 f ", lines[2])
	assert.Equal(t, "0000000000 00001 f ", lines[3])
	assert.True(t, strings.HasSuffix(lines[4], " 00000 n "))
	assert.Contains(t, out, fmt.Sprintf("startxref\n%d\n%%%%EOF", xrefAt))
}

func TestBodyDirectModeWritesImmediately(t *testing.T) {
	var buf bytes.Buffer
	body := NewBody(&buf, false)

	ref, err := body.Add(object.NewName("X"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 0 obj\n/X\nendobj")
	assert.Nil(t, body.Get(ref))

	require.Error(t, body.AddToBody(ref, object.Int(1)), "rewriting a written object")
}

func TestBodyRejectsUnreservedAndFinished(t *testing.T) {
	var buf bytes.Buffer
	body := NewBody(&buf, true)

	assert.Error(t, body.AddToBody(object.Ref(5, 0), object.Int(1)))

	ref := body.Reserve()
	_, err := body.Finish(nil, nil)
	require.NoError(t, err)
	assert.Error(t, body.AddToBody(ref, object.Int(1)))
	_, err = body.Finish(nil, nil)
	assert.Error(t, err)
}

func TestBodyCacheReplaceAndCached(t *testing.T) {
	body := NewBody(&bytes.Buffer{}, true)
	r1 := body.Reserve()
	r2 := body.Reserve()
	body.CacheObject(r2, object.Int(2))
	body.CacheObject(r1, object.Int(1))
	body.CacheObject(r1, object.Int(10))

	refs := body.Cached()
	require.Len(t, refs, 2)
	assert.Equal(t, 1, refs[0].ID.Number)
	assert.Equal(t, int64(10), body.Get(r1).(*object.Number).Int64())
	assert.True(t, body.Has(r2))
}
