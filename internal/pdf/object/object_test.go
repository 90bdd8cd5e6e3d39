package object

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryKeepsInsertionOrder(t *testing.T) {
	d := NewDictionary()
	d.Set("Type", NewName("Annot"))
	d.Set("Rect", NewArray(Int(0), Int(0), Int(10), Int(10)))
	d.Set("T", Text("a"))
	d.Set("Type", NewName("Widget"))

	assert.Equal(t, []string{"Type", "Rect", "T"}, d.Keys())
	assert.Equal(t, "Widget", d.GetName("Type"))

	d.Remove("Rect")
	assert.Equal(t, []string{"Type", "T"}, d.Keys())
	assert.Nil(t, d.Get("Rect"))

	d.Set("T", nil)
	assert.False(t, d.Has("T"))
	assert.Equal(t, 1, d.Len())
}

func TestDictionaryMerge(t *testing.T) {
	base := NewDictionary()
	base.Set("FT", NewName("Tx"))
	base.Set("V", Text("one"))

	other := NewDictionary()
	other.Set("V", Text("two"))
	other.Set("Ff", Int(4096))

	different := base.Clone()
	different.MergeDifferent(other)
	assert.Equal(t, "one", different.GetString("V"))
	assert.Equal(t, int64(4096), different.GetInt("Ff"))

	base.Merge(other)
	assert.Equal(t, "two", base.GetString("V"))
}

func TestArrayInsertAndRemove(t *testing.T) {
	a := NewArray(Int(1), Int(3))
	a.Insert(1, Int(2))
	a.Insert(10, Int(4))
	a.Insert(-1, Int(0))
	assert.Equal(t, "[0 1 2 3 4]", a.String())

	a.Remove(0)
	a.Remove(99)
	assert.Equal(t, "[1 2 3 4]", a.String())
	assert.Nil(t, a.Get(4))
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		name     string
		obj      Object
		expected string
	}{
		{"null", &Null{}, "null"},
		{"nil", nil, "null"},
		{"bool", &Bool{Value: true}, "true"},
		{"integer", Int(-12), "-12"},
		{"real", Real(1.5), "1.5"},
		{"real trims", Real(2.0), "2"},
		{"real keeps small values", Real(0.000001), "0.000001"},
		{"real keeps precision", Real(-12.3456789), "-12.3456789"},
		{"negative zero", Real(math.Copysign(0, -1)), "0"},
		{"name", NewName("Helv"), "/Helv"},
		{"name escaped", NewName("A B"), "/A#20B"},
		{"literal string", Text("a(b)\\"), `(a\(b\)\\)`},
		{"hex string", &String{Value: "\xfe\xff", IsHex: true}, "<FEFF>"},
		{"reference", Ref(12, 0), "12 0 R"},
		{"literal", &Literal{Value: "0 0 612 792"}, "0 0 612 792"},
		{"array", NewArray(Int(1), NewName("X")), "[1 /X]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(Serialize(tt.obj)))
		})
	}
}

func TestSerializeStreamRewritesLength(t *testing.T) {
	s := NewStream([]byte("BT ET"))
	s.Dict.Set("Length", Ref(9, 0))
	s.Dict.Set("Filter", NewName("FlateDecode"))

	out := string(Serialize(s))
	require.Contains(t, out, "/Length 5")
	assert.NotContains(t, out, "9 0 R")
	assert.Contains(t, out, "stream\nBT ET\nendstream")
}

func TestObjectIDValidity(t *testing.T) {
	assert.True(t, ObjectID{Number: 1}.IsValid())
	assert.False(t, ObjectID{}.IsValid())
	assert.False(t, ObjectID{Number: 3, Generation: -1}.IsValid())
	assert.Equal(t, "3 0", ObjectID{Number: 3}.String())
}

func TestDictOf(t *testing.T) {
	d := NewDictionary()
	s := &Stream{Dict: d}
	assert.Same(t, d, DictOf(d))
	assert.Same(t, d, DictOf(s))
	assert.Nil(t, DictOf(Int(1)))
}

func TestTextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"ascii", "hello"},
		{"latin", "café"},
		{"cjk", "表單"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.in, DecodeText(EncodeText(tt.in)))
		})
	}

	assert.Equal(t, "hello", EncodeText("hello"))
	assert.True(t, strings.HasPrefix(EncodeText("表"), "\xfe\xff"))
	assert.Equal(t, "café", DecodeText("caf\xe9"))
	assert.Equal(t, "bye", TextOf(Text("bye")))
	assert.Equal(t, "", TextOf(NewName("bye")))
}

func TestWinAnsi(t *testing.T) {
	assert.Equal(t, "caf\xe9", WinAnsi("café"))
	assert.Equal(t, "abc", WinAnsi("abc"))
}
