package facetfactory

import (
	"reflect"
	"sync"
)

// MethodRemover records methods a factory has consumed so later introspection steps do not
// classify them again.
type MethodRemover interface {
	RemoveMethod(method reflect.Method)
	RemoveMethods(methods []reflect.Method)
	RemoveMethodByName(name string)

	// RemoveMethodsWithPrefix removes methods whose name matches prefix, with paramCount
	// parameters (receiver excluded) and the given return type. A nil returnType matches any
	// single return; canBeVoid also accepts methods with no return.
	RemoveMethodsWithPrefix(prefix string, returnType reflect.Type, canBeVoid bool, paramCount int) []reflect.Method

	// RemoveMethodsMatching removes and returns every remaining method accepted by match.
	RemoveMethodsMatching(match func(reflect.Method) bool) []reflect.Method
}

type nullRemover struct{}

func (nullRemover) RemoveMethod(reflect.Method)    {}
func (nullRemover) RemoveMethods([]reflect.Method) {}
func (nullRemover) RemoveMethodByName(string)      {}

func (nullRemover) RemoveMethodsWithPrefix(string, reflect.Type, bool, int) []reflect.Method {
	return nil
}

func (nullRemover) RemoveMethodsMatching(func(reflect.Method) bool) []reflect.Method {
	return nil
}

// NullRemover discards every removal.
var NullRemover MethodRemover = nullRemover{}

// MethodList is a MethodRemover over the method set of a class. It keeps the methods not yet
// consumed and records every removal in order.
type MethodList struct {
	mu        sync.Mutex
	remaining []reflect.Method
	removed   []reflect.Method
}

// NewMethodList creates a list holding every exported method of cls.
func NewMethodList(cls reflect.Type) *MethodList {
	methods := make([]reflect.Method, 0, cls.NumMethod())
	for i := 0; i < cls.NumMethod(); i++ {
		methods = append(methods, cls.Method(i))
	}
	return &MethodList{remaining: methods}
}

// NewMethodListOf creates a list from explicit methods.
func NewMethodListOf(methods ...reflect.Method) *MethodList {
	remaining := make([]reflect.Method, len(methods))
	copy(remaining, methods)
	return &MethodList{remaining: remaining}
}

// Remaining returns the methods not yet removed.
func (l *MethodList) Remaining() []reflect.Method {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]reflect.Method, len(l.remaining))
	copy(result, l.remaining)
	return result
}

// Removed returns the removed methods in removal order.
func (l *MethodList) Removed() []reflect.Method {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]reflect.Method, len(l.removed))
	copy(result, l.removed)
	return result
}

// WasRemoved reports whether a method of the given name was removed.
func (l *MethodList) WasRemoved(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range l.removed {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (l *MethodList) RemoveMethod(method reflect.Method) {
	l.RemoveMethodByName(method.Name)
}

func (l *MethodList) RemoveMethods(methods []reflect.Method) {
	for _, m := range methods {
		l.RemoveMethodByName(m.Name)
	}
}

func (l *MethodList) RemoveMethodByName(name string) {
	l.removeWhere(func(m reflect.Method) bool { return m.Name == name })
}

func (l *MethodList) RemoveMethodsWithPrefix(prefix string, returnType reflect.Type, canBeVoid bool, paramCount int) []reflect.Method {
	return l.removeWhere(func(m reflect.Method) bool {
		if !MatchesPrefix(m.Name, prefix) || ParamCount(m) != paramCount {
			return false
		}
		return ReturnMatches(m, returnType, canBeVoid)
	})
}

func (l *MethodList) RemoveMethodsMatching(match func(reflect.Method) bool) []reflect.Method {
	return l.removeWhere(match)
}

func (l *MethodList) removeWhere(match func(reflect.Method) bool) []reflect.Method {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []reflect.Method
	kept := l.remaining[:0]
	for _, m := range l.remaining {
		if match(m) {
			matched = append(matched, m)
			continue
		}
		kept = append(kept, m)
	}
	l.remaining = kept
	l.removed = append(l.removed, matched...)
	return matched
}
