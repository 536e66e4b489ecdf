// Package properties holds the facet factories that identify property accessors and attach the
// facets of one-to-one associations.
package properties

import (
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/progmodel"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/support"
	"github.com/conduit-lang/facetmodel/internal/progmodel/tags"
	"go.uber.org/zap"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// IsAccessorShaped reports whether m takes no parameters and returns exactly one non-error value.
func IsAccessorShaped(m reflect.Method) bool {
	if !facetfactory.IsNiladic(m) || m.Type.NumOut() != 1 {
		return false
	}
	return m.Type.Out(0) != errorType
}

// PropertyAccessorFacetFactory treats every accessor-shaped method that no other factory claims,
// and whose result is not a collection, as a property.
type PropertyAccessorFacetFactory struct {
	facetfactory.Abstract
	support.Adapters
	collections facetfactory.CollectionTypeRegistry
	recognizer  facetfactory.MethodRecognizer
}

func NewPropertyAccessorFacetFactory() facetfactory.FacetFactory {
	return &PropertyAccessorFacetFactory{
		Abstract:    facetfactory.NewAbstract(facet.PropertiesOnly),
		collections: facetfactory.DefaultCollectionTypeRegistry{},
	}
}

func (f *PropertyAccessorFacetFactory) SetCollectionTypeRegistry(registry facetfactory.CollectionTypeRegistry) {
	f.collections = registry
}

func (f *PropertyAccessorFacetFactory) SetMethodRecognizer(recognizer facetfactory.MethodRecognizer) {
	f.recognizer = recognizer
}

func (f *PropertyAccessorFacetFactory) IsPropertyOrCollectionAccessorCandidate(m reflect.Method) bool {
	if !IsAccessorShaped(m) || f.collections.IsCollectionType(m.Type.Out(0)) {
		return false
	}
	return f.recognizer == nil || !f.recognizer.Recognizes(m)
}

func (f *PropertyAccessorFacetFactory) FindAndRemovePropertyAccessors(remover facetfactory.MethodRemover) []reflect.Method {
	return remover.RemoveMethodsMatching(f.IsPropertyOrCollectionAccessorCandidate)
}

func (f *PropertyAccessorFacetFactory) FindAndRemoveCollectionAccessors(facetfactory.MethodRemover) []reflect.Method {
	return nil
}

func (f *PropertyAccessorFacetFactory) ProcessMethod(_ reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	if !IsAccessorShaped(method) {
		return false
	}
	remover.RemoveMethod(method)
	af := &AccessorFacet{Abstract: facet.NewAbstract(spec.TypePropertyAccessor, holder), method: method}
	af.SetAdapterMap(f.AdapterMap())
	return facet.Add(af)
}

// PropertySetterFacetFactory claims `SetX(v)` and installs it as both setter and initializer.
type PropertySetterFacetFactory struct {
	facetfactory.PrefixBased
}

func NewPropertySetterFacetFactory() facetfactory.FacetFactory {
	return &PropertySetterFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Set")}
}

func (f *PropertySetterFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := findSetter(cls, method)
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	setter := facet.Add(&SetterFacet{Abstract: facet.NewAbstract(spec.TypePropertySetter, holder), method: m})
	initializer := facet.Add(&SetterFacet{Abstract: facet.NewAbstract(spec.TypePropertyInitialization, holder), method: m})
	return setter || initializer
}

func findSetter(cls reflect.Type, accessor reflect.Method) (reflect.Method, bool) {
	return support.FindHelper(cls, "Set", accessor.Name, nil, true, facetfactory.ReturnType(accessor))
}

// PropertyClearFacetFactory claims `ClearX()`, falling back to the setter with a zero value.
type PropertyClearFacetFactory struct {
	facetfactory.PrefixBased
}

func NewPropertyClearFacetFactory() facetfactory.FacetFactory {
	return &PropertyClearFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Clear")}
}

func (f *PropertyClearFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	if m, ok := support.FindHelper(cls, "Clear", method.Name, nil, true); ok {
		remover.RemoveMethod(m)
		return facet.Add(&ClearFacetViaMethod{Abstract: facet.NewAbstract(spec.TypePropertyClear, holder), method: m})
	}
	if setter, ok := findSetter(cls, method); ok {
		return facet.Add(&ClearFacetViaSetter{Abstract: facet.NewAbstract(spec.TypePropertyClear, holder), setter: setter})
	}
	return false
}

// PropertyDefaultFacetFactory claims `DefaultX() T`.
type PropertyDefaultFacetFactory struct {
	facetfactory.PrefixBased
	support.Adapters
	collections facetfactory.CollectionTypeRegistry
}

func NewPropertyDefaultFacetFactory() facetfactory.FacetFactory {
	return &PropertyDefaultFacetFactory{
		PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Default"),
		collections: facetfactory.DefaultCollectionTypeRegistry{},
	}
}

func (f *PropertyDefaultFacetFactory) SetCollectionTypeRegistry(registry facetfactory.CollectionTypeRegistry) {
	f.collections = registry
}

func (f *PropertyDefaultFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := support.FindHelper(cls, "Default", method.Name, facetfactory.ReturnType(method), false)
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	df := &DefaultFacetViaMethod{Abstract: facet.NewAbstract(spec.TypePropertyDefault, holder), method: m, collections: f.collections}
	df.SetAdapterMap(f.AdapterMap())
	return facet.Add(df)
}

// PropertyChoicesFacetFactory claims `ChoicesX() []T`.
type PropertyChoicesFacetFactory struct {
	facetfactory.PrefixBased
	support.Adapters
}

func NewPropertyChoicesFacetFactory() facetfactory.FacetFactory {
	return &PropertyChoicesFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Choices")}
}

func (f *PropertyChoicesFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	returnType := facetfactory.ReturnType(method)
	if returnType == nil {
		return false
	}
	m, ok := support.FindHelper(cls, "Choices", method.Name, reflect.SliceOf(returnType), false)
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	cf := &ChoicesFacetViaMethod{Abstract: facet.NewAbstract(spec.TypePropertyChoices, holder), method: m}
	cf.SetAdapterMap(f.AdapterMap())
	return facet.Add(cf)
}

// PropertyValidateFacetFactory claims `ValidateX(v T) string`.
type PropertyValidateFacetFactory struct {
	facetfactory.PrefixBased
}

func NewPropertyValidateFacetFactory() facetfactory.FacetFactory {
	return &PropertyValidateFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.PropertiesOnly, "Validate")}
}

func (f *PropertyValidateFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := support.FindHelper(cls, "Validate", method.Name, support.StringType, false, facetfactory.ReturnType(method))
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	return facet.Add(&ValidateFacetViaMethod{Abstract: facet.NewAbstract(spec.TypePropertyValidate, holder), method: m})
}

// PropertyAnnotationFacetFactory reads `maxLength`, `typicalLength`, `mandatory`, `optional` and
// `notPersisted` from the field backing a property.
type PropertyAnnotationFacetFactory struct {
	facetfactory.Abstract
	logger *zap.Logger
}

func NewPropertyAnnotationFacetFactory() facetfactory.FacetFactory {
	return &PropertyAnnotationFacetFactory{Abstract: facetfactory.NewAbstract(facet.PropertiesOnly), logger: zap.NewNop()}
}

func (f *PropertyAnnotationFacetFactory) SetLogger(logger *zap.Logger) {
	f.logger = logger
}

func (f *PropertyAnnotationFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	t := tags.ForMember(cls, method.Name)
	if len(t) == 0 {
		return false
	}
	added := ApplyValueTags(t, holder, f.logger.With(zap.String("type", cls.String()), zap.String("member", method.Name)))
	if t.Has("notPersisted") {
		added = facet.Add(spec.NewMarker(spec.TypeNotPersisted, holder)) || added
	}
	return added
}

// ApplyValueTags attaches the length and mandatory facets described by t to holder.
func ApplyValueTags(t tags.Tags, holder facet.Holder, logger *zap.Logger) bool {
	added := false
	for key, build := range map[string]func(int) facet.Facet{
		"maxLength":     func(n int) facet.Facet { return NewMaxLengthFacet(n, holder) },
		"typicalLength": func(n int) facet.Facet { return NewTypicalLengthFacet(n, holder) },
	} {
		n, present, err := t.Int(key)
		if err != nil {
			logger.Warn("ignoring malformed length tag", zap.String("tag", key), zap.Error(err))
			continue
		}
		if present {
			added = facet.Add(build(n)) || added
		}
	}
	switch {
	case t.Has("mandatory"):
		added = facet.Add(NewMandatoryFacet(true, holder)) || added
	case t.Has("optional"):
		added = facet.Add(NewMandatoryFacet(false, holder)) || added
	}
	return added
}

// Constructors lists the factories of this package by name.
func Constructors() progmodel.Catalog {
	return progmodel.Catalog{
		"PropertyAccessorFacetFactory":   NewPropertyAccessorFacetFactory,
		"PropertySetterFacetFactory":     NewPropertySetterFacetFactory,
		"PropertyClearFacetFactory":      NewPropertyClearFacetFactory,
		"PropertyDefaultFacetFactory":    NewPropertyDefaultFacetFactory,
		"PropertyChoicesFacetFactory":    NewPropertyChoicesFacetFactory,
		"PropertyValidateFacetFactory":   NewPropertyValidateFacetFactory,
		"PropertyAnnotationFacetFactory": NewPropertyAnnotationFacetFactory,
	}
}
