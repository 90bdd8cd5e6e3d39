// Package object is the in-memory PDF object model shared by the source
// readers, the copy engine and the output writer.
package object

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the concrete type of a PDF object
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindName
	KindArray
	KindDictionary
	KindStream
	KindReference
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindName:
		return "name"
	case KindArray:
		return "array"
	case KindDictionary:
		return "dictionary"
	case KindStream:
		return "stream"
	case KindReference:
		return "reference"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Object is implemented by every PDF value
type Object interface {
	Kind() Kind
	String() string
}

// ObjectID identifies an indirect object inside one document
type ObjectID struct {
	Number     int
	Generation int
}

func (id ObjectID) String() string {
	return fmt.Sprintf("%d %d", id.Number, id.Generation)
}

// IsValid reports whether id can name an indirect object
func (id ObjectID) IsValid() bool {
	return id.Number > 0 && id.Generation >= 0
}

// Null represents the PDF null object
type Null struct{}

func (n *Null) Kind() Kind     { return KindNull }
func (n *Null) String() string { return "null" }

// Bool represents a PDF boolean
type Bool struct {
	Value bool
}

func (b *Bool) Kind() Kind { return KindBoolean }
func (b *Bool) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Number holds an integer or a real value
type Number struct {
	IntValue  int64
	RealValue float64
	IsReal    bool
}

// Int creates an integer number
func Int(v int64) *Number { return &Number{IntValue: v} }

// Real creates a real number
func Real(v float64) *Number { return &Number{RealValue: v, IsReal: true} }

func (n *Number) Kind() Kind { return KindNumber }
func (n *Number) String() string {
	if n.IsReal {
		return strconv.FormatFloat(n.RealValue, 'f', -1, 64)
	}
	return strconv.FormatInt(n.IntValue, 10)
}

// Int64 returns the value truncated to an integer
func (n *Number) Int64() int64 {
	if n.IsReal {
		return int64(n.RealValue)
	}
	return n.IntValue
}

// Float returns the value as a float
func (n *Number) Float() float64 {
	if n.IsReal {
		return n.RealValue
	}
	return float64(n.IntValue)
}

// String is a PDF string. Value holds the decoded bytes.
type String struct {
	Value string
	IsHex bool
}

// Text creates a literal string
func Text(s string) *String { return &String{Value: s} }

func (s *String) Kind() Kind     { return KindString }
func (s *String) String() string { return string(encodeString(s)) }

// Name is a PDF name without its leading slash
type Name struct {
	Value string
}

// NewName creates a name object
func NewName(v string) *Name { return &Name{Value: v} }

func (n *Name) Kind() Kind     { return KindName }
func (n *Name) String() string { return "/" + escapeName(n.Value) }

// Array is an ordered list of objects
type Array struct {
	Elements []Object
}

// NewArray creates an array holding elems
func NewArray(elems ...Object) *Array {
	return &Array{Elements: append([]Object(nil), elems...)}
}

func (a *Array) Kind() Kind { return KindArray }
func (a *Array) String() string {
	parts := make([]string, 0, len(a.Elements))
	for _, elem := range a.Elements {
		parts = append(parts, elem.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (a *Array) Len() int {
	return len(a.Elements)
}

// Get returns the element at index or nil when out of range
func (a *Array) Get(index int) Object {
	if index >= 0 && index < len(a.Elements) {
		return a.Elements[index]
	}
	return nil
}

func (a *Array) Add(obj Object) {
	a.Elements = append(a.Elements, obj)
}

// Insert places obj at index, shifting later elements right
func (a *Array) Insert(index int, obj Object) {
	if index >= len(a.Elements) {
		a.Elements = append(a.Elements, obj)
		return
	}
	if index < 0 {
		index = 0
	}
	a.Elements = append(a.Elements, nil)
	copy(a.Elements[index+1:], a.Elements[index:])
	a.Elements[index] = obj
}

// Remove deletes the element at index
func (a *Array) Remove(index int) {
	if index < 0 || index >= len(a.Elements) {
		return
	}
	a.Elements = append(a.Elements[:index], a.Elements[index+1:]...)
}

// Dictionary maps names to objects and remembers insertion order
type Dictionary struct {
	keys   []string
	values map[string]Object
}

func NewDictionary() *Dictionary {
	return &Dictionary{
		keys:   make([]string, 0),
		values: make(map[string]Object),
	}
}

func (d *Dictionary) Kind() Kind { return KindDictionary }
func (d *Dictionary) String() string {
	parts := make([]string, 0, len(d.keys))
	for _, key := range d.keys {
		parts = append(parts, "/"+escapeName(key)+" "+d.values[key].String())
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Keys returns the keys in insertion order
func (d *Dictionary) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Get returns the value for key or nil when absent
func (d *Dictionary) Get(key string) Object {
	return d.values[key]
}

// Set stores value under key. A nil value removes the key.
func (d *Dictionary) Set(key string, value Object) {
	if value == nil {
		d.Remove(key)
		return
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

func (d *Dictionary) Has(key string) bool {
	_, exists := d.values[key]
	return exists
}

func (d *Dictionary) Remove(key string) {
	if _, exists := d.values[key]; !exists {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *Dictionary) Len() int {
	return len(d.keys)
}

// GetName returns the name stored under key, or "" when it is not a direct name
func (d *Dictionary) GetName(key string) string {
	if n, ok := d.values[key].(*Name); ok {
		return n.Value
	}
	return ""
}

// GetInt returns the integer stored under key, or 0
func (d *Dictionary) GetInt(key string) int64 {
	if n, ok := d.values[key].(*Number); ok {
		return n.Int64()
	}
	return 0
}

func (d *Dictionary) GetString(key string) string {
	if s, ok := d.values[key].(*String); ok {
		return s.Value
	}
	return ""
}

func (d *Dictionary) GetBool(key string) bool {
	if b, ok := d.values[key].(*Bool); ok {
		return b.Value
	}
	return false
}

// GetArray returns the direct array under key or nil
func (d *Dictionary) GetArray(key string) *Array {
	a, _ := d.values[key].(*Array)
	return a
}

// GetDictionary returns the direct dictionary under key or nil
func (d *Dictionary) GetDictionary(key string) *Dictionary {
	sub, _ := d.values[key].(*Dictionary)
	return sub
}

// GetRef returns the reference stored under key or nil
func (d *Dictionary) GetRef(key string) *IndirectRef {
	r, _ := d.values[key].(*IndirectRef)
	return r
}

// Merge copies every entry of other into d, overwriting existing keys
func (d *Dictionary) Merge(other *Dictionary) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		d.Set(key, other.values[key])
	}
}

// MergeDifferent copies the entries of other whose keys d does not have
func (d *Dictionary) MergeDifferent(other *Dictionary) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		if !d.Has(key) {
			d.Set(key, other.values[key])
		}
	}
}

// Clone returns a shallow copy of d
func (d *Dictionary) Clone() *Dictionary {
	c := NewDictionary()
	c.Merge(d)
	return c
}

// Stream pairs a dictionary with an opaque byte payload
type Stream struct {
	Dict *Dictionary
	Data []byte
}

// NewStream creates a stream with a fresh dictionary
func NewStream(data []byte) *Stream {
	return &Stream{Dict: NewDictionary(), Data: data}
}

func (s *Stream) Kind() Kind { return KindStream }
func (s *Stream) String() string {
	return fmt.Sprintf("%s stream[%d bytes]", s.Dict.String(), len(s.Data))
}

// IndirectRef points at an indirect object
type IndirectRef struct {
	ID ObjectID
}

// Ref creates a reference to object number/generation
func Ref(number, generation int) *IndirectRef {
	return &IndirectRef{ID: ObjectID{Number: number, Generation: generation}}
}

func (r *IndirectRef) Kind() Kind     { return KindReference }
func (r *IndirectRef) String() string { return r.ID.String() + " R" }

// Literal is raw PDF syntax emitted verbatim
type Literal struct {
	Value string
}

func (l *Literal) Kind() Kind     { return KindLiteral }
func (l *Literal) String() string { return l.Value }

// DictOf returns the dictionary of a dictionary or stream object
func DictOf(obj Object) *Dictionary {
	switch v := obj.(type) {
	case *Dictionary:
		return v
	case *Stream:
		return v.Dict
	default:
		return nil
	}
}

// IndirectObject is an object stored under its own number
type IndirectObject struct {
	ID     ObjectID
	Object Object
}

func (io *IndirectObject) String() string {
	return fmt.Sprintf("%s obj\n%s\nendobj", io.ID.String(), io.Object.String())
}
