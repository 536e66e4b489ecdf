// Package support holds the plumbing shared by the concrete facet factories: adapter wrapping and
// helper-method invocation.
package support

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
)

var (
	StringType = reflect.TypeOf("")
	BoolType   = reflect.TypeOf(false)
	AnySlices  = reflect.TypeOf([][]any(nil))
)

// Adapters is embedded by factories and facets that wrap Go values into adapters.
type Adapters struct {
	adapters spec.AdapterMap
}

func (a *Adapters) SetAdapterMap(adapters spec.AdapterMap) {
	a.adapters = adapters
}

func (a *Adapters) AdapterMap() spec.AdapterMap {
	return a.adapters
}

// Adapt wraps v, returning nil for nil values.
func (a *Adapters) Adapt(v any) (spec.ObjectAdapter, error) {
	if IsNil(v) {
		return nil, nil
	}
	if a.adapters == nil {
		return nil, fmt.Errorf("no adapter map to wrap %T", v)
	}
	return a.adapters.AdapterFor(v)
}

// AdaptAll wraps every element of the slice or array v.
func (a *Adapters) AdaptAll(v reflect.Value) ([]spec.ObjectAdapter, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, &spec.UnknownTypeError{Type: v.Type().String(), Context: "expected a slice"}
	}
	result := make([]spec.ObjectAdapter, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		adapter, err := a.Adapt(v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		result = append(result, adapter)
	}
	return result, nil
}

// IsNil reports whether v is nil or a typed nil of a nillable kind.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Call invokes m on the object wrapped by target with the objects wrapped by args.
func Call(m reflect.Method, target spec.ObjectAdapter, args ...spec.ObjectAdapter) ([]reflect.Value, error) {
	if target == nil {
		return nil, fmt.Errorf("cannot invoke %s without a target", m.Name)
	}
	values := make([]any, len(args))
	for i, arg := range args {
		values[i] = spec.ObjectOf(arg)
	}
	return facetfactory.Invoke(m, target.Object(), values...)
}

// CallForValue invokes m and returns its first result, if any.
func CallForValue(m reflect.Method, target spec.ObjectAdapter, args ...spec.ObjectAdapter) (reflect.Value, error) {
	out, err := Call(m, target, args...)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(out) == 0 {
		return reflect.Value{}, nil
	}
	return out[0], nil
}

// CallForString invokes m and returns its string result, or "" when it panics or fails.
func CallForString(m reflect.Method, target spec.ObjectAdapter) string {
	if target == nil {
		return ""
	}
	out, err := facetfactory.InvokeSafely(m, target.Object())
	if err != nil || len(out) == 0 || out[0].Kind() != reflect.String {
		return ""
	}
	return out[0].String()
}

// FindHelper looks up a helper method named prefix+member on cls with the given parameters. A
// nil returnType accepts any single result; a void helper passes voidOK.
func FindHelper(cls reflect.Type, prefix, member string, returnType reflect.Type, voidOK bool, params ...reflect.Type) (reflect.Method, bool) {
	m, ok := cls.MethodByName(prefix + member)
	if !ok {
		return reflect.Method{}, false
	}
	if !facetfactory.ReturnMatches(m, returnType, voidOK) {
		return reflect.Method{}, false
	}
	actual := facetfactory.ParamTypes(m)
	if len(actual) != len(params) {
		return reflect.Method{}, false
	}
	for i, p := range params {
		if p != nil && !p.AssignableTo(actual[i]) {
			return reflect.Method{}, false
		}
	}
	return m, true
}

// ReceiverType returns the receiver type of a method obtained from a type's method set.
func ReceiverType(m reflect.Method) reflect.Type {
	if m.Type == nil || m.Type.NumIn() == 0 || !m.Func.IsValid() {
		return nil
	}
	return m.Type.In(0)
}

// Zero returns a fresh instance of cls to call type-level helpers on.
func Zero(cls reflect.Type) any {
	if cls.Kind() == reflect.Pointer {
		return reflect.New(cls.Elem()).Interface()
	}
	return reflect.New(cls).Elem().Interface()
}
