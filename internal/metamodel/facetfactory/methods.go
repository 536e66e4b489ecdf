package facetfactory

import (
	"encoding"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// MatchesPrefix reports whether name starts with prefix at a word boundary: the name equals the
// prefix, or the rune after it is upper case or a digit. SetName matches Set, Settings does not.
func MatchesPrefix(name, prefix string) bool {
	if prefix == "" || len(name) < len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	if len(name) == len(prefix) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// MemberName strips prefix from a method name: ValidateName -> Name.
func MemberName(prefix, methodName string) string {
	if !MatchesPrefix(methodName, prefix) {
		return methodName
	}
	return methodName[len(prefix):]
}

// ParamCount returns the number of parameters of m, receiver excluded.
func ParamCount(m reflect.Method) int {
	if m.Type == nil {
		return 0
	}
	n := m.Type.NumIn()
	if m.Func.IsValid() {
		n--
	}
	return n
}

// ParamTypes returns the parameter types of m, receiver excluded.
func ParamTypes(m reflect.Method) []reflect.Type {
	if m.Type == nil {
		return nil
	}
	offset := 0
	if m.Func.IsValid() {
		offset = 1
	}
	types := make([]reflect.Type, 0, m.Type.NumIn()-offset)
	for i := offset; i < m.Type.NumIn(); i++ {
		types = append(types, m.Type.In(i))
	}
	return types
}

// ParamType returns the type of parameter i (receiver excluded) or nil.
func ParamType(m reflect.Method, i int) reflect.Type {
	types := ParamTypes(m)
	if i < 0 || i >= len(types) {
		return nil
	}
	return types[i]
}

// ReturnType returns the first result type of m, or nil for a method without results.
func ReturnType(m reflect.Method) reflect.Type {
	if m.Type == nil || m.Type.NumOut() == 0 {
		return nil
	}
	return m.Type.Out(0)
}

// IsNiladic reports whether m takes no parameters besides its receiver.
func IsNiladic(m reflect.Method) bool {
	return ParamCount(m) == 0
}

// ReturnMatches checks m's results against an expected type. A nil returnType accepts any single
// result. A void method matches only when canBeVoid is set.
func ReturnMatches(m reflect.Method, returnType reflect.Type, canBeVoid bool) bool {
	switch m.Type.NumOut() {
	case 0:
		return canBeVoid
	case 1:
		if returnType == nil {
			return true
		}
		out := m.Type.Out(0)
		return out == returnType || (returnType.Kind() == reflect.Interface && out.Implements(returnType))
	default:
		return false
	}
}

// FindMethod looks up an exported method on cls by name. A nil returnType accepts any result
// shape; a nil paramTypes accepts any parameter list.
func FindMethod(cls reflect.Type, name string, returnType reflect.Type, paramTypes []reflect.Type) (reflect.Method, bool) {
	m, ok := cls.MethodByName(name)
	if !ok {
		return reflect.Method{}, false
	}
	if returnType != nil && !ReturnMatches(m, returnType, false) {
		return reflect.Method{}, false
	}
	if paramTypes != nil {
		actual := ParamTypes(m)
		if len(actual) != len(paramTypes) {
			return reflect.Method{}, false
		}
		for i, pt := range paramTypes {
			if actual[i] != pt {
				return reflect.Method{}, false
			}
		}
	}
	return m, true
}

// Invoke calls m on receiver with args. Nil args become zero values of the parameter type.
// A trailing error result is returned as the error.
func Invoke(m reflect.Method, receiver any, args ...any) ([]reflect.Value, error) {
	if receiver == nil {
		return nil, fmt.Errorf("cannot invoke %s on nil receiver", m.Name)
	}
	params := ParamTypes(m)
	if len(args) != len(params) {
		return nil, fmt.Errorf("method %s expects %d arguments, got %d", m.Name, len(params), len(args))
	}

	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(receiver))
	for i, arg := range args {
		if arg == nil {
			in = append(in, reflect.Zero(params[i]))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(params[i]) {
			if !v.Type().ConvertibleTo(params[i]) {
				return nil, fmt.Errorf("method %s argument %d: %s is not assignable to %s", m.Name, i, v.Type(), params[i])
			}
			v = v.Convert(params[i])
		}
		in = append(in, v)
	}

	out := m.Func.Call(in)
	if n := len(out); n > 0 && m.Type.Out(n-1) == errorType {
		if errVal := out[n-1]; !errVal.IsNil() {
			return out[:n-1], errVal.Interface().(error)
		}
		return out[:n-1], nil
	}
	return out, nil
}

// InvokeSafely is Invoke with panics from domain code converted into an error.
func InvokeSafely(m reflect.Method, receiver any, args ...any) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method %s panicked: %v", m.Name, r)
		}
	}()
	return Invoke(m, receiver, args...)
}

// CollectionTypeRegistry decides which Go types the framework treats as collections.
type CollectionTypeRegistry interface {
	IsCollectionType(t reflect.Type) bool
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// DefaultCollectionTypeRegistry treats slices and arrays as collections, except byte sequences
// and types that marshal themselves to text, such as uuid.UUID.
type DefaultCollectionTypeRegistry struct{}

func (DefaultCollectionTypeRegistry) IsCollectionType(t reflect.Type) bool {
	if t == nil || (t.Kind() != reflect.Slice && t.Kind() != reflect.Array) {
		return false
	}
	if t.Elem().Kind() == reflect.Uint8 || t.Implements(textMarshalerType) {
		return false
	}
	return true
}
