package memento

import (
	"fmt"
	"io"
	"strings"

	"github.com/conduit-lang/facetmodel/internal/metamodel/oid"
	"github.com/conduit-lang/facetmodel/internal/metamodel/resolvestate"
	"github.com/conduit-lang/facetmodel/internal/runtime/encoding"
)

// Encoding tags of the snapshot nodes.
const (
	TagData       = "facetmodel.memento.Data"
	TagObject     = "facetmodel.memento.ObjectData"
	TagCollection = "facetmodel.memento.CollectionData"
	TagStandalone = "facetmodel.memento.StandaloneData"
)

func init() {
	encoding.Register(TagData, func(in *encoding.DataInputStream) (encoding.Encodable, error) {
		d, err := readData(in)
		if err != nil {
			return nil, err
		}
		return &d, nil
	})
	encoding.Register(TagObject, decodeObjectData)
	encoding.Register(TagCollection, decodeCollectionData)
	encoding.Register(TagStandalone, decodeStandaloneData)
}

// Node is one entry of a snapshot tree.
type Node interface {
	encoding.Encodable
	Base() *Data
	debug(w *debugWriter)
}

// Data is the identity stub of an object: oid, type name and resolve state.
type Data struct {
	Oid          oid.Oid
	ClassName    string
	ResolveState resolvestate.State
}

func (d *Data) Base() *Data {
	return d
}

func (d *Data) EncodingTag() string {
	return TagData
}

func (d *Data) EncodeTo(out *encoding.DataOutputStream) error {
	id := ""
	if d.Oid != nil {
		id = d.Oid.String()
	}
	if err := out.WriteString(id); err != nil {
		return err
	}
	if err := out.WriteString(d.ClassName); err != nil {
		return err
	}
	return out.WriteString(d.ResolveState.String())
}

func readData(in *encoding.DataInputStream) (Data, error) {
	var d Data
	id, err := in.ReadString()
	if err != nil {
		return d, err
	}
	if id != "" {
		if d.Oid, err = oid.Parse(id); err != nil {
			return d, err
		}
	}
	if d.ClassName, err = in.ReadString(); err != nil {
		return d, err
	}
	state, err := in.ReadString()
	if err != nil {
		return d, err
	}
	d.ResolveState, err = resolvestate.Parse(state)
	return d, err
}

func (d *Data) String() string {
	return fmt.Sprintf("%s/%v %s", d.ClassName, d.Oid, d.ResolveState)
}

func (d *Data) debug(w *debugWriter) {
	w.line("reference %s", d)
}

// Field value kinds on the wire.
const (
	fieldNil byte = iota
	fieldString
	fieldNode
)

// Field is one named entry of an ObjectData. Value is nil, an encoded string, or a Node.
type Field struct {
	Name  string
	Value any
}

// ObjectData is the full state of one object, field by field in association order.
type ObjectData struct {
	Data
	fields []Field
}

func (d *ObjectData) EncodingTag() string {
	return TagObject
}

// AddField appends or replaces the entry for name.
func (d *ObjectData) AddField(name string, value any) {
	for i := range d.fields {
		if d.fields[i].Name == name {
			d.fields[i].Value = value
			return
		}
	}
	d.fields = append(d.fields, Field{Name: name, Value: value})
}

// Entry returns the value recorded for name.
func (d *ObjectData) Entry(name string) (any, bool) {
	for _, f := range d.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (d *ObjectData) Fields() []Field {
	result := make([]Field, len(d.fields))
	copy(result, d.fields)
	return result
}

// ContainsField reports whether any field was captured.
func (d *ObjectData) ContainsField() bool {
	return len(d.fields) > 0
}

func (d *ObjectData) EncodeTo(out *encoding.DataOutputStream) error {
	if err := d.Data.EncodeTo(out); err != nil {
		return err
	}
	if err := out.WriteInt32(int32(len(d.fields))); err != nil {
		return err
	}
	for _, f := range d.fields {
		if err := out.WriteString(f.Name); err != nil {
			return err
		}
		if err := writeFieldValue(out, f); err != nil {
			return err
		}
	}
	return nil
}

func writeFieldValue(out *encoding.DataOutputStream, f Field) error {
	switch v := f.Value.(type) {
	case nil:
		return out.WriteByte(fieldNil)
	case string:
		if err := out.WriteByte(fieldString); err != nil {
			return err
		}
		return out.WriteString(v)
	case Node:
		if err := out.WriteByte(fieldNode); err != nil {
			return err
		}
		return out.WriteEncodable(v)
	}
	return fmt.Errorf("field %s holds unsupported %T", f.Name, f.Value)
}

func decodeObjectData(in *encoding.DataInputStream) (encoding.Encodable, error) {
	base, err := readData(in)
	if err != nil {
		return nil, err
	}
	d := &ObjectData{Data: base}
	n, err := in.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 || n > encoding.MaxLength {
		return nil, fmt.Errorf("%w: %d fields", encoding.ErrTooLong, n)
	}
	for i := int32(0); i < n; i++ {
		name, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		value, err := readFieldValue(in)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		d.AddField(name, value)
	}
	return d, nil
}

func readFieldValue(in *encoding.DataInputStream) (any, error) {
	kind, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	switch kind {
	case fieldNil:
		return nil, nil
	case fieldString:
		return in.ReadString()
	case fieldNode:
		e, err := in.ReadEncodable()
		if err != nil || e == nil {
			return nil, err
		}
		node, ok := e.(Node)
		if !ok {
			return nil, fmt.Errorf("unexpected %T in object data", e)
		}
		return node, nil
	}
	return nil, fmt.Errorf("unknown field kind %d", kind)
}

func (d *ObjectData) debug(w *debugWriter) {
	w.line("object %s", &d.Data)
	w.indent()
	defer w.outdent()
	for _, f := range d.fields {
		switch v := f.Value.(type) {
		case nil:
			w.line("%s: <nil>", f.Name)
		case string:
			w.line("%s: %q", f.Name, v)
		case Node:
			w.line("%s:", f.Name)
			w.indent()
			v.debug(w)
			w.outdent()
		}
	}
}

// CollectionData lists the elements of a collection.
type CollectionData struct {
	Data
	Elements []Node
}

func (d *CollectionData) EncodingTag() string {
	return TagCollection
}

func (d *CollectionData) EncodeTo(out *encoding.DataOutputStream) error {
	if err := d.Data.EncodeTo(out); err != nil {
		return err
	}
	elements := make([]encoding.Encodable, len(d.Elements))
	for i, e := range d.Elements {
		elements[i] = e
	}
	return out.WriteEncodables(elements)
}

func decodeCollectionData(in *encoding.DataInputStream) (encoding.Encodable, error) {
	base, err := readData(in)
	if err != nil {
		return nil, err
	}
	elements, err := in.ReadEncodables()
	if err != nil {
		return nil, err
	}
	d := &CollectionData{Data: base, Elements: make([]Node, 0, len(elements))}
	for _, e := range elements {
		node, ok := e.(Node)
		if !ok {
			return nil, fmt.Errorf("unexpected %T in collection data", e)
		}
		d.Elements = append(d.Elements, node)
	}
	return d, nil
}

func (d *CollectionData) debug(w *debugWriter) {
	w.line("collection %s (%d elements)", &d.Data, len(d.Elements))
	w.indent()
	defer w.outdent()
	for _, e := range d.Elements {
		e.debug(w)
	}
}

// StandaloneData carries an object without an oid as its type name and encoded form.
type StandaloneData struct {
	Data
	Value string
}

func (d *StandaloneData) EncodingTag() string {
	return TagStandalone
}

func (d *StandaloneData) EncodeTo(out *encoding.DataOutputStream) error {
	if err := out.WriteString(d.ClassName); err != nil {
		return err
	}
	return out.WriteString(d.Value)
}

func decodeStandaloneData(in *encoding.DataInputStream) (encoding.Encodable, error) {
	d := &StandaloneData{Data: Data{ResolveState: resolvestate.Value}}
	var err error
	if d.ClassName, err = in.ReadString(); err != nil {
		return nil, err
	}
	if d.Value, err = in.ReadString(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *StandaloneData) debug(w *debugWriter) {
	w.line("standalone %s %q", d.ClassName, d.Value)
}

type debugWriter struct {
	w     io.Writer
	depth int
	err   error
}

func (w *debugWriter) indent()  { w.depth++ }
func (w *debugWriter) outdent() { w.depth-- }

func (w *debugWriter) line(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, "%s%s\n", strings.Repeat("  ", w.depth), fmt.Sprintf(format, args...))
}
