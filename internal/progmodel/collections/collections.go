// Package collections holds the facet factories for one-to-many associations. A collection is a
// slice-typed accessor; modification goes through `AddToX`, `RemoveFromX` and `ClearX`, or through
// `SetX` when those helpers are absent.
package collections

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/progmodel"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/properties"
	"github.com/conduit-lang/facetmodel/internal/progmodel/support"
	"github.com/conduit-lang/facetmodel/internal/progmodel/tags"
)

// AccessorFacet returns the collection wrapped by an adapter aggregated into its owner.
type AccessorFacet struct {
	facet.Abstract
	support.Adapters
	method reflect.Method
	field  string
}

func (f *AccessorFacet) Collection(owner spec.ObjectAdapter) (spec.ObjectAdapter, error) {
	v, err := support.CallForValue(f.method, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.method.Name, err)
	}
	if !v.IsValid() {
		return nil, nil
	}
	if f.AdapterMap() == nil {
		return nil, fmt.Errorf("no adapter map to wrap collection %s", f.field)
	}
	return f.AdapterMap().AdapterForCollection(owner, f.field, v.Interface())
}

// methodFacet calls a single-argument or niladic helper.
type methodFacet struct {
	facet.Abstract
	method reflect.Method
}

func (f *methodFacet) call(owner spec.ObjectAdapter, args ...spec.ObjectAdapter) error {
	if _, err := support.Call(f.method, owner, args...); err != nil {
		return fmt.Errorf("%s failed: %w", f.method.Name, err)
	}
	return nil
}

type AddToFacetViaMethod struct{ methodFacet }

func (f *AddToFacetViaMethod) Add(owner, element spec.ObjectAdapter) error {
	return f.call(owner, element)
}

type RemoveFromFacetViaMethod struct{ methodFacet }

func (f *RemoveFromFacetViaMethod) Remove(owner, element spec.ObjectAdapter) error {
	return f.call(owner, element)
}

type ClearFacetViaMethod struct{ methodFacet }

func (f *ClearFacetViaMethod) Clear(owner spec.ObjectAdapter) error {
	return f.call(owner)
}

// viaSetter rewrites the whole slice through `SetX([]T)`.
type viaSetter struct {
	facet.Abstract
	accessor reflect.Method
	setter   reflect.Method
}

func (f *viaSetter) update(owner spec.ObjectAdapter, change func(current reflect.Value) (reflect.Value, error)) error {
	current, err := support.CallForValue(f.accessor, owner)
	if err != nil {
		return err
	}
	next, err := change(current)
	if err != nil {
		return err
	}
	if _, err := facetfactory.Invoke(f.setter, owner.Object(), next.Interface()); err != nil {
		return fmt.Errorf("%s failed: %w", f.setter.Name, err)
	}
	return nil
}

type AddToFacetViaSetter struct{ viaSetter }

func (f *AddToFacetViaSetter) Add(owner, element spec.ObjectAdapter) error {
	return f.update(owner, func(current reflect.Value) (reflect.Value, error) {
		ev, err := elementValue(current.Type().Elem(), element)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.Append(current, ev), nil
	})
}

type RemoveFromFacetViaSetter struct{ viaSetter }

func (f *RemoveFromFacetViaSetter) Remove(owner, element spec.ObjectAdapter) error {
	target := spec.ObjectOf(element)
	return f.update(owner, func(current reflect.Value) (reflect.Value, error) {
		next := reflect.MakeSlice(current.Type(), 0, current.Len())
		for i := 0; i < current.Len(); i++ {
			if !spec.SameValue(current.Index(i).Interface(), target) {
				next = reflect.Append(next, current.Index(i))
			}
		}
		return next, nil
	})
}

type ClearFacetViaSetter struct{ viaSetter }

func (f *ClearFacetViaSetter) Clear(owner spec.ObjectAdapter) error {
	return f.update(owner, func(current reflect.Value) (reflect.Value, error) {
		return reflect.MakeSlice(current.Type(), 0, 0), nil
	})
}

func elementValue(t reflect.Type, element spec.ObjectAdapter) (reflect.Value, error) {
	obj := spec.ObjectOf(element)
	if obj == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(obj)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, &spec.UnknownTypeError{Type: v.Type().String(), Context: "not an element of " + t.String()}
	}
	return v, nil
}

// CollectionAccessorFacetFactory identifies accessor-shaped methods returning a collection type.
type CollectionAccessorFacetFactory struct {
	facetfactory.Abstract
	support.Adapters
	collections facetfactory.CollectionTypeRegistry
	recognizer  facetfactory.MethodRecognizer
}

func NewCollectionAccessorFacetFactory() facetfactory.FacetFactory {
	return &CollectionAccessorFacetFactory{
		Abstract:    facetfactory.NewAbstract(facet.CollectionsOnly),
		collections: facetfactory.DefaultCollectionTypeRegistry{},
	}
}

func (f *CollectionAccessorFacetFactory) SetCollectionTypeRegistry(registry facetfactory.CollectionTypeRegistry) {
	f.collections = registry
}

func (f *CollectionAccessorFacetFactory) SetMethodRecognizer(recognizer facetfactory.MethodRecognizer) {
	f.recognizer = recognizer
}

func (f *CollectionAccessorFacetFactory) IsPropertyOrCollectionAccessorCandidate(m reflect.Method) bool {
	if !properties.IsAccessorShaped(m) || !f.collections.IsCollectionType(m.Type.Out(0)) {
		return false
	}
	return f.recognizer == nil || !f.recognizer.Recognizes(m)
}

func (f *CollectionAccessorFacetFactory) FindAndRemovePropertyAccessors(facetfactory.MethodRemover) []reflect.Method {
	return nil
}

func (f *CollectionAccessorFacetFactory) FindAndRemoveCollectionAccessors(remover facetfactory.MethodRemover) []reflect.Method {
	return remover.RemoveMethodsMatching(f.IsPropertyOrCollectionAccessorCandidate)
}

func (f *CollectionAccessorFacetFactory) ProcessMethod(_ reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	if !properties.IsAccessorShaped(method) {
		return false
	}
	remover.RemoveMethod(method)
	af := &AccessorFacet{Abstract: facet.NewAbstract(spec.TypeCollectionAccessor, holder), method: method, field: spec.MemberID(method.Name)}
	af.SetAdapterMap(f.AdapterMap())
	return facet.Add(af)
}

// CollectionModifyFacetFactory claims `AddToX(T)`, `RemoveFromX(T)` and `ClearX()`. Any of the
// three that is missing is derived from `SetX([]T)` when the class has one.
type CollectionModifyFacetFactory struct {
	facetfactory.PrefixBased
}

func NewCollectionModifyFacetFactory() facetfactory.FacetFactory {
	return &CollectionModifyFacetFactory{
		PrefixBased: facetfactory.NewPrefixBased(facet.CollectionsOnly, "AddTo", "RemoveFrom", "Clear", "Set"),
	}
}

func (f *CollectionModifyFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	sliceType := facetfactory.ReturnType(method)
	if sliceType == nil || sliceType.Kind() != reflect.Slice {
		return false
	}
	elemType := sliceType.Elem()
	setter, hasSetter := support.FindHelper(cls, "Set", method.Name, nil, true, sliceType)
	if hasSetter {
		remover.RemoveMethod(setter)
	}
	fallback := viaSetter{accessor: method, setter: setter}

	added := false
	if m, ok := support.FindHelper(cls, "AddTo", method.Name, nil, true, elemType); ok {
		remover.RemoveMethod(m)
		added = facet.Add(&AddToFacetViaMethod{methodFacet{Abstract: facet.NewAbstract(spec.TypeCollectionAddTo, holder), method: m}}) || added
	} else if hasSetter {
		fallback.Abstract = facet.NewAbstract(spec.TypeCollectionAddTo, holder)
		added = facet.Add(&AddToFacetViaSetter{fallback}) || added
	}
	if m, ok := support.FindHelper(cls, "RemoveFrom", method.Name, nil, true, elemType); ok {
		remover.RemoveMethod(m)
		added = facet.Add(&RemoveFromFacetViaMethod{methodFacet{Abstract: facet.NewAbstract(spec.TypeCollectionRemoveFrom, holder), method: m}}) || added
	} else if hasSetter {
		fallback.Abstract = facet.NewAbstract(spec.TypeCollectionRemoveFrom, holder)
		added = facet.Add(&RemoveFromFacetViaSetter{fallback}) || added
	}
	if m, ok := support.FindHelper(cls, "Clear", method.Name, nil, true); ok {
		remover.RemoveMethod(m)
		added = facet.Add(&ClearFacetViaMethod{methodFacet{Abstract: facet.NewAbstract(spec.TypeCollectionClear, holder), method: m}}) || added
	} else if hasSetter {
		fallback.Abstract = facet.NewAbstract(spec.TypeCollectionClear, holder)
		added = facet.Add(&ClearFacetViaSetter{fallback}) || added
	}
	return added
}

// CollectionAnnotationFacetFactory reads `notPersisted` from the field backing a collection.
type CollectionAnnotationFacetFactory struct {
	facetfactory.Abstract
}

func NewCollectionAnnotationFacetFactory() facetfactory.FacetFactory {
	return &CollectionAnnotationFacetFactory{Abstract: facetfactory.NewAbstract(facet.CollectionsOnly)}
}

func (f *CollectionAnnotationFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	if !tags.ForMember(cls, method.Name).Has("notPersisted") {
		return false
	}
	return facet.Add(spec.NewMarker(spec.TypeNotPersisted, holder))
}

// Constructors lists the factories of this package by name.
func Constructors() progmodel.Catalog {
	return progmodel.Catalog{
		"CollectionAccessorFacetFactory":   NewCollectionAccessorFacetFactory,
		"CollectionModifyFacetFactory":     NewCollectionModifyFacetFactory,
		"CollectionAnnotationFacetFactory": NewCollectionAnnotationFacetFactory,
	}
}
