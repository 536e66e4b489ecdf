// Package object holds the facet factories that introspect a class as a whole.
package object

import (
	"reflect"
	"strings"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/progmodel"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/support"
	"github.com/conduit-lang/facetmodel/internal/progmodel/tags"
	"github.com/conduit-lang/facetmodel/pkg/applib"
	"go.uber.org/zap"
)

// TitleMethodFacetFactory claims `Title() string`.
type TitleMethodFacetFactory struct {
	facetfactory.PrefixBased
}

func NewTitleMethodFacetFactory() facetfactory.FacetFactory {
	return &TitleMethodFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ObjectsOnly, "Title")}
}

func (f *TitleMethodFacetFactory) Process(cls reflect.Type, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := facetfactory.FindMethod(cls, "Title", support.StringType, []reflect.Type{})
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	return facet.Add(&TitleFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeTitle, holder), method: m})
}

// IconMethodFacetFactory claims `IconName() string`.
type IconMethodFacetFactory struct {
	facetfactory.PrefixBased
}

func NewIconMethodFacetFactory() facetfactory.FacetFactory {
	return &IconMethodFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ObjectsOnly, "IconName")}
}

func (f *IconMethodFacetFactory) Process(cls reflect.Type, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := facetfactory.FindMethod(cls, "IconName", support.StringType, []reflect.Type{})
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	return facet.Add(&IconFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeIcon, holder), method: m})
}

// PluralMethodFacetFactory claims `PluralName() string`, evaluated once on a zero instance.
type PluralMethodFacetFactory struct {
	facetfactory.PrefixBased
}

func NewPluralMethodFacetFactory() facetfactory.FacetFactory {
	return &PluralMethodFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ObjectsOnly, "PluralName")}
}

func (f *PluralMethodFacetFactory) Process(cls reflect.Type, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := facetfactory.FindMethod(cls, "PluralName", support.StringType, []reflect.Type{})
	if !ok {
		return false
	}
	remover.RemoveMethod(m)

	out, err := facetfactory.InvokeSafely(m, support.Zero(cls))
	if err != nil || len(out) == 0 || out[0].String() == "" {
		return false
	}
	return facet.Add(NewStringFacet(spec.TypePlural, out[0].String(), holder))
}

// ImmutableAnnotationFacetFactory reads `immutable`, `immutable=oncePersisted` and
// `immutable=untilPersisted` from the type tags.
type ImmutableAnnotationFacetFactory struct {
	facetfactory.Abstract
}

func NewImmutableAnnotationFacetFactory() facetfactory.FacetFactory {
	return &ImmutableAnnotationFacetFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly)}
}

func (f *ImmutableAnnotationFacetFactory) Process(cls reflect.Type, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	value, ok := tags.ForType(cls).Get("immutable")
	if !ok {
		return false
	}
	when := spec.WhenAlways
	switch value {
	case "oncePersisted", "onlyIfPersisted":
		when = spec.WhenOncePersisted
	case "untilPersisted":
		when = spec.WhenUntilPersisted
	case "never":
		when = spec.WhenNever
	}
	return facet.Add(&ImmutableFacet{Abstract: facet.NewAbstract(spec.TypeImmutable, holder), when: when})
}

// ObjectTagFacetFactory reads `named`, `plural`, `describedAs` and `persistable` from the type tags.
type ObjectTagFacetFactory struct {
	facetfactory.Abstract
	logger *zap.Logger
}

func NewObjectTagFacetFactory() facetfactory.FacetFactory {
	return &ObjectTagFacetFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly), logger: zap.NewNop()}
}

func (f *ObjectTagFacetFactory) SetLogger(logger *zap.Logger) {
	f.logger = logger
}

func (f *ObjectTagFacetFactory) Process(cls reflect.Type, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	t := tags.ForType(cls)
	added := false
	for key, ft := range map[string]facet.Type{"named": spec.TypeNamed, "plural": spec.TypePlural, "describedAs": spec.TypeDescribedAs} {
		if v, ok := t.Get(key); ok && v != "" {
			added = facet.Add(NewStringFacet(ft, v, holder)) || added
		}
	}
	if v, ok := t.Get("persistable"); ok {
		p, known := map[string]spec.Persistability{
			"user":      spec.UserPersistable,
			"program":   spec.ProgramPersistable,
			"transient": spec.TransientOnly,
		}[strings.ToLower(v)]
		if !known {
			f.logger.Debug("ignoring unknown persistable tag", zap.String("type", cls.String()), zap.String("value", v))
		} else {
			added = facet.Add(&PersistabilityFacet{Abstract: facet.NewAbstract(spec.TypePersistability, holder), value: p}) || added
		}
	}
	return added
}

// EncodableFacetFactory marks builtin scalars and text-marshalable types as values.
type EncodableFacetFactory struct {
	facetfactory.Abstract
	support.Adapters
}

func NewEncodableFacetFactory() facetfactory.FacetFactory {
	return &EncodableFacetFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly)}
}

func (f *EncodableFacetFactory) Process(cls reflect.Type, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	if !IsEncodableType(cls) {
		return false
	}
	ef := &EncodableFacet{Abstract: facet.NewAbstract(spec.TypeEncodable, holder), typ: cls}
	ef.SetAdapterMap(f.AdapterMap())
	return facet.Add(ef)
}

// CollectionTypeFacetFactory attaches a CollectionFacet to collection types.
type CollectionTypeFacetFactory struct {
	facetfactory.Abstract
	support.Adapters
	registry facetfactory.CollectionTypeRegistry
}

func NewCollectionTypeFacetFactory() facetfactory.FacetFactory {
	return &CollectionTypeFacetFactory{
		Abstract: facetfactory.NewAbstract(facet.ObjectsOnly),
		registry: facetfactory.DefaultCollectionTypeRegistry{},
	}
}

func (f *CollectionTypeFacetFactory) SetCollectionTypeRegistry(registry facetfactory.CollectionTypeRegistry) {
	f.registry = registry
}

func (f *CollectionTypeFacetFactory) Process(cls reflect.Type, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	if !f.registry.IsCollectionType(cls) {
		return false
	}
	cf := &SliceCollectionFacet{Abstract: facet.NewAbstract(spec.TypeCollection, holder), typ: cls}
	cf.SetAdapterMap(f.AdapterMap())
	return facet.Add(cf)
}

// EnumFacetFactory attaches a ChoicesFacet to types implementing applib.Enumerated.
type EnumFacetFactory struct {
	facetfactory.Abstract
	support.Adapters
}

func NewEnumFacetFactory() facetfactory.FacetFactory {
	return &EnumFacetFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly)}
}

var enumeratedType = reflect.TypeOf((*applib.Enumerated)(nil)).Elem()

// IsEnumType reports whether t or its pointer implements applib.Enumerated.
func IsEnumType(t reflect.Type) bool {
	return t != nil && (t.Implements(enumeratedType) || (t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(enumeratedType)))
}

// EnumValues returns the declared values of an enumerated type.
func EnumValues(t reflect.Type) []any {
	if !IsEnumType(t) {
		return nil
	}
	zero := support.Zero(t)
	if e, ok := zero.(applib.Enumerated); ok {
		return e.EnumValues()
	}
	if e, ok := reflect.New(t).Interface().(applib.Enumerated); ok {
		return e.EnumValues()
	}
	return nil
}

func (f *EnumFacetFactory) Process(cls reflect.Type, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	if !IsEnumType(cls) {
		return false
	}
	remover.RemoveMethodByName("EnumValues")
	cf := &EnumChoicesFacet{Abstract: facet.NewAbstract(spec.TypeChoices, holder), typ: cls}
	cf.SetAdapterMap(f.AdapterMap())
	return facet.Add(cf)
}

// ValidateObjectFacetFactory claims `Validate() string`.
type ValidateObjectFacetFactory struct {
	facetfactory.PrefixBased
}

func NewValidateObjectFacetFactory() facetfactory.FacetFactory {
	return &ValidateObjectFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ObjectsOnly, "Validate")}
}

func (f *ValidateObjectFacetFactory) Process(cls reflect.Type, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := facetfactory.FindMethod(cls, "Validate", support.StringType, []reflect.Type{})
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	return facet.Add(&ValidateFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeValidateObject, holder), method: m})
}

// ObjectValidPropertiesFacetFactory adds mandatory-property validation to every domain class.
type ObjectValidPropertiesFacetFactory struct {
	facetfactory.Abstract
}

func NewObjectValidPropertiesFacetFactory() facetfactory.FacetFactory {
	return &ObjectValidPropertiesFacetFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly)}
}

func (f *ObjectValidPropertiesFacetFactory) Process(cls reflect.Type, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	if cls.Kind() != reflect.Pointer || cls.Elem().Kind() != reflect.Struct {
		return false
	}
	return facet.Add(&ValidPropertiesFacet{Abstract: facet.NewAbstract(spec.TypeObjectValidProperties, holder)})
}

// Constructors lists the factories of this package by name.
func Constructors() progmodel.Catalog {
	return progmodel.Catalog{
		"TitleMethodFacetFactory":           NewTitleMethodFacetFactory,
		"IconMethodFacetFactory":            NewIconMethodFacetFactory,
		"PluralMethodFacetFactory":          NewPluralMethodFacetFactory,
		"ImmutableAnnotationFacetFactory":   NewImmutableAnnotationFacetFactory,
		"ObjectTagFacetFactory":             NewObjectTagFacetFactory,
		"EncodableFacetFactory":             NewEncodableFacetFactory,
		"CollectionTypeFacetFactory":        NewCollectionTypeFacetFactory,
		"EnumFacetFactory":                  NewEnumFacetFactory,
		"ValidateObjectFacetFactory":        NewValidateObjectFacetFactory,
		"ObjectValidPropertiesFacetFactory": NewObjectValidPropertiesFacetFactory,
	}
}
