package object

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/support"
)

// TitleFacetViaMethod renders a title by calling the object's Title method. A panicking or failing
// method yields an empty title.
type TitleFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *TitleFacetViaMethod) Title(target spec.ObjectAdapter) string {
	return support.CallForString(f.method, target)
}

// IconFacetViaMethod names the icon by calling IconName.
type IconFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *IconFacetViaMethod) IconName(target spec.ObjectAdapter) string {
	return support.CallForString(f.method, target)
}

// StringFacet carries one string: a plural, a name or a description.
type StringFacet struct {
	facet.Abstract
	value string
}

// NewStringFacet creates a string-valued facet of type t.
func NewStringFacet(t facet.Type, value string, holder facet.Holder) *StringFacet {
	return &StringFacet{Abstract: facet.NewAbstract(t, holder), value: value}
}

func (f *StringFacet) Value() string {
	return f.value
}

// ImmutableFacet disables every member of an object, always or depending on persistence.
type ImmutableFacet struct {
	facet.Abstract
	when spec.When
}

func (f *ImmutableFacet) When() spec.When {
	return f.when
}

func (f *ImmutableFacet) DisabledReason(target spec.ObjectAdapter) string {
	switch f.when {
	case spec.WhenAlways:
		return "Immutable"
	case spec.WhenOncePersisted:
		if target != nil && target.Oid() != nil && !target.Oid().IsTransient() {
			return "Immutable once persisted"
		}
	case spec.WhenUntilPersisted:
		if target == nil || target.Oid() == nil || target.Oid().IsTransient() {
			return "Immutable until persisted"
		}
	}
	return ""
}

type PersistabilityFacet struct {
	facet.Abstract
	value spec.Persistability
}

func (f *PersistabilityFacet) Value() spec.Persistability {
	return f.value
}

// EncodableFacet converts builtin scalars and text-marshalable types to strings and back.
type EncodableFacet struct {
	facet.Abstract
	support.Adapters
	typ reflect.Type
}

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// IsEncodableType reports whether values of t can be encoded to a string.
func IsEncodableType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if isTextType(t) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isTextType(t reflect.Type) bool {
	if !t.Implements(textMarshalerType) {
		return false
	}
	if t.Kind() == reflect.Pointer {
		return t.Implements(textUnmarshalerType)
	}
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// ValueType returns the Go type this facet encodes.
func (f *EncodableFacet) ValueType() reflect.Type {
	return f.typ
}

func (f *EncodableFacet) ToEncodedString(value spec.ObjectAdapter) (string, error) {
	if value == nil || value.Object() == nil {
		return "", fmt.Errorf("cannot encode an empty %s", f.typ)
	}
	return Encode(value.Object())
}

func (f *EncodableFacet) FromEncodedString(encoded string) (spec.ObjectAdapter, error) {
	v, err := Decode(f.typ, encoded)
	if err != nil {
		return nil, err
	}
	return f.Adapt(v)
}

// Encode renders v in its encoded string form.
func Encode(v any) (string, error) {
	if m, ok := v.(encoding.TextMarshaler); ok {
		text, err := m.MarshalText()
		if err != nil {
			return "", fmt.Errorf("failed to encode %T: %w", v, err)
		}
		return string(text), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	}
	return "", &spec.UnknownTypeError{Type: rv.Type().String(), Context: "not encodable"}
}

// Decode parses encoded into a value of type t.
func Decode(t reflect.Type, encoded string) (any, error) {
	if isTextType(t) {
		if t.Kind() == reflect.Pointer {
			ptr := reflect.New(t.Elem())
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(encoded)); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", t, err)
			}
			return ptr.Interface(), nil
		}
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(encoded)); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		return ptr.Elem().Interface(), nil
	}

	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(encoded)
	case reflect.Bool:
		b, err := strconv.ParseBool(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(encoded, 10, t.Bits())
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(encoded, 10, t.Bits())
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(encoded, t.Bits())
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t, err)
		}
		v.SetFloat(n)
	default:
		return nil, &spec.UnknownTypeError{Type: t.String(), Context: "not decodable"}
	}
	return v.Interface(), nil
}

// SliceCollectionFacet walks and rebuilds Go slices and arrays.
type SliceCollectionFacet struct {
	facet.Abstract
	support.Adapters
	typ reflect.Type
}

func (f *SliceCollectionFacet) ElementType() reflect.Type {
	return f.typ.Elem()
}

func (f *SliceCollectionFacet) value(collection spec.ObjectAdapter) reflect.Value {
	if collection == nil || collection.Object() == nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(collection.Object())
}

func (f *SliceCollectionFacet) Elements(collection spec.ObjectAdapter) ([]spec.ObjectAdapter, error) {
	return f.AdaptAll(f.value(collection))
}

func (f *SliceCollectionFacet) Size(collection spec.ObjectAdapter) int {
	v := f.value(collection)
	if !v.IsValid() {
		return 0
	}
	return v.Len()
}

func (f *SliceCollectionFacet) Contains(collection, element spec.ObjectAdapter) bool {
	v := f.value(collection)
	if !v.IsValid() {
		return false
	}
	target := spec.ObjectOf(element)
	for i := 0; i < v.Len(); i++ {
		if spec.SameValue(v.Index(i).Interface(), target) {
			return true
		}
	}
	return false
}

// Init builds a new slice holding elements and swaps it into collection.
func (f *SliceCollectionFacet) Init(collection spec.ObjectAdapter, elements []spec.ObjectAdapter) error {
	if collection == nil {
		return fmt.Errorf("cannot initialize a nil collection")
	}
	built, err := BuildSlice(f.typ, elements)
	if err != nil {
		return err
	}
	collection.ReplaceObject(built.Interface())
	return nil
}

// BuildSlice creates a value of slice or array type t from the objects wrapped by elements.
func BuildSlice(t reflect.Type, elements []spec.ObjectAdapter) (reflect.Value, error) {
	elemType := t.Elem()
	var v reflect.Value
	if t.Kind() == reflect.Array {
		if len(elements) > t.Len() {
			return reflect.Value{}, fmt.Errorf("%d elements do not fit %s", len(elements), t)
		}
		v = reflect.New(t).Elem()
	} else {
		v = reflect.MakeSlice(t, len(elements), len(elements))
	}
	for i, e := range elements {
		ev, err := convert(spec.ObjectOf(e), elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		v.Index(i).Set(ev)
	}
	return v, nil
}

func convert(obj any, t reflect.Type) (reflect.Value, error) {
	if obj == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(obj)
	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case v.Type().ConvertibleTo(t):
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), t)
}

// EnumChoicesFacet lists the values of an enumerated type.
type EnumChoicesFacet struct {
	facet.Abstract
	support.Adapters
	typ reflect.Type
}

func (f *EnumChoicesFacet) Choices() ([]spec.ObjectAdapter, error) {
	values := EnumValues(f.typ)
	result := make([]spec.ObjectAdapter, 0, len(values))
	for _, v := range values {
		adapter, err := f.Adapt(v)
		if err != nil {
			return nil, err
		}
		result = append(result, adapter)
	}
	return result, nil
}

// ValidateFacetViaMethod calls the object's Validate method.
type ValidateFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *ValidateFacetViaMethod) InvalidReason(target spec.ObjectAdapter) string {
	return support.CallForString(f.method, target)
}

// ValidPropertiesFacet rejects objects whose mandatory properties are empty.
type ValidPropertiesFacet struct {
	facet.Abstract
}

func (f *ValidPropertiesFacet) InvalidReason(target spec.ObjectAdapter) string {
	if target == nil || target.Specification() == nil {
		return ""
	}
	for _, p := range target.Specification().Properties() {
		if !p.IsMandatory() {
			continue
		}
		empty, err := p.IsEmpty(target)
		if err != nil {
			return err.Error()
		}
		if empty {
			return fmt.Sprintf("'%s' is mandatory", p.Name())
		}
	}
	return ""
}
