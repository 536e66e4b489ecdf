package actions

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/support"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ResultType is the first non-error result type of m, or nil.
func ResultType(m reflect.Method) reflect.Type {
	if m.Type == nil || m.Type.NumOut() == 0 || m.Type.Out(0) == errorType {
		return nil
	}
	return m.Type.Out(0)
}

// InvocationFacet invokes the action method and wraps its result.
type InvocationFacet struct {
	facet.Abstract
	support.Adapters
	method reflect.Method
}

func (f *InvocationFacet) ReturnType() reflect.Type {
	return ResultType(f.method)
}

func (f *InvocationFacet) Invoke(target spec.ObjectAdapter, args []spec.ObjectAdapter) (spec.ObjectAdapter, error) {
	out, err := support.Call(f.method, target, args...)
	if err != nil {
		return nil, fmt.Errorf("action %s failed: %w", f.method.Name, err)
	}
	if len(out) == 0 || !out[0].IsValid() {
		return nil, nil
	}
	return f.Adapt(out[0].Interface())
}

// ChoicesFacetViaMethod calls `ChoicesX() [][]any`, one slice per parameter.
type ChoicesFacetViaMethod struct {
	facet.Abstract
	support.Adapters
	method reflect.Method
}

func (f *ChoicesFacetViaMethod) Choices(target spec.ObjectAdapter) ([][]spec.ObjectAdapter, error) {
	v, err := support.CallForValue(f.method, target)
	if err != nil {
		return nil, err
	}
	if !v.IsValid() {
		return nil, nil
	}
	result := make([][]spec.ObjectAdapter, v.Len())
	for i := 0; i < v.Len(); i++ {
		if result[i], err = f.AdaptAll(v.Index(i)); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ParameterChoicesFacetViaMethod calls `ChoicesNX() []T`.
type ParameterChoicesFacetViaMethod struct {
	facet.Abstract
	support.Adapters
	method reflect.Method
}

func (f *ParameterChoicesFacetViaMethod) Choices(target spec.ObjectAdapter) ([]spec.ObjectAdapter, error) {
	v, err := support.CallForValue(f.method, target)
	if err != nil {
		return nil, err
	}
	return f.AdaptAll(v)
}

// ParameterDefaultFacetViaMethod calls `DefaultNX() T`.
type ParameterDefaultFacetViaMethod struct {
	facet.Abstract
	support.Adapters
	method reflect.Method
}

func (f *ParameterDefaultFacetViaMethod) Default(target spec.ObjectAdapter) (spec.ObjectAdapter, error) {
	v, err := support.CallForValue(f.method, target)
	if err != nil || !v.IsValid() {
		return nil, err
	}
	return f.Adapt(v.Interface())
}

// ValidateFacetViaMethod calls `ValidateX(args...) string`.
type ValidateFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *ValidateFacetViaMethod) InvalidReason(target spec.ObjectAdapter, args []spec.ObjectAdapter) string {
	v, err := support.CallForValue(f.method, target, args...)
	if err != nil {
		return err.Error()
	}
	if !v.IsValid() || v.Kind() != reflect.String {
		return ""
	}
	return v.String()
}
