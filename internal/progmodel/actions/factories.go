// Package actions holds the facet factories for actions and their parameters. Every method left
// over after properties, collections and helpers have been claimed becomes an action.
package actions

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/progmodel"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/object"
	"github.com/conduit-lang/facetmodel/internal/progmodel/properties"
	"github.com/conduit-lang/facetmodel/internal/progmodel/support"
	"github.com/conduit-lang/facetmodel/internal/progmodel/tags"
	"go.uber.org/zap"
)

// ActionInvocationFacetFactory installs the invocation facet of every action.
type ActionInvocationFacetFactory struct {
	facetfactory.Abstract
	support.Adapters
}

func NewActionInvocationFacetFactory() facetfactory.FacetFactory {
	return &ActionInvocationFacetFactory{Abstract: facetfactory.NewAbstract(facet.ActionsOnly)}
}

func (f *ActionInvocationFacetFactory) ProcessMethod(_ reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	if method.Type.NumOut() > 2 || (method.Type.NumOut() == 2 && method.Type.Out(1) != errorType) {
		return false
	}
	remover.RemoveMethod(method)
	inv := &InvocationFacet{Abstract: facet.NewAbstract(spec.TypeActionInvocation, holder), method: method}
	inv.SetAdapterMap(f.AdapterMap())
	return facet.Add(inv)
}

// ActionChoicesFacetFactory claims `ChoicesX() [][]any`. A `ChoicesX` helper with any other shape
// is reported and left alone.
type ActionChoicesFacetFactory struct {
	facetfactory.PrefixBased
	support.Adapters
	logger *zap.Logger
}

func NewActionChoicesFacetFactory() facetfactory.FacetFactory {
	return &ActionChoicesFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ActionsOnly, "Choices"), logger: zap.NewNop()}
}

func (f *ActionChoicesFacetFactory) SetLogger(logger *zap.Logger) {
	f.logger = logger
}

func (f *ActionChoicesFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := support.FindHelper(cls, "Choices", method.Name, support.AnySlices, false)
	if !ok {
		if _, exists := cls.MethodByName("Choices" + method.Name); exists {
			f.logger.Warn("choices helper must return [][]any",
				zap.String("type", cls.String()), zap.String("action", method.Name))
		}
		return false
	}
	remover.RemoveMethod(m)
	cf := &ChoicesFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeActionChoices, holder), method: m}
	cf.SetAdapterMap(f.AdapterMap())
	return facet.Add(cf)
}

// ActionParameterChoicesFacetFactory claims `ChoicesNX() []T` for parameter N of action X.
type ActionParameterChoicesFacetFactory struct {
	facetfactory.PrefixBased
	support.Adapters
}

func NewActionParameterChoicesFacetFactory() facetfactory.FacetFactory {
	return &ActionParameterChoicesFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ParametersOnly, "Choices")}
}

func (f *ActionParameterChoicesFacetFactory) ProcessParams(method reflect.Method, paramNum int, holder facet.Holder) bool {
	cls, paramType := support.ReceiverType(method), facetfactory.ParamType(method, paramNum)
	if cls == nil || paramType == nil {
		return false
	}
	m, ok := support.FindHelper(cls, "Choices"+strconv.Itoa(paramNum), method.Name, reflect.SliceOf(paramType), false)
	if !ok {
		return false
	}
	cf := &ParameterChoicesFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeActionParameterChoices, holder), method: m}
	cf.SetAdapterMap(f.AdapterMap())
	return facet.Add(cf)
}

// ActionParameterDefaultsFacetFactory claims `DefaultNX() T` for parameter N of action X.
type ActionParameterDefaultsFacetFactory struct {
	facetfactory.PrefixBased
	support.Adapters
}

func NewActionParameterDefaultsFacetFactory() facetfactory.FacetFactory {
	return &ActionParameterDefaultsFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ParametersOnly, "Default")}
}

func (f *ActionParameterDefaultsFacetFactory) ProcessParams(method reflect.Method, paramNum int, holder facet.Holder) bool {
	cls, paramType := support.ReceiverType(method), facetfactory.ParamType(method, paramNum)
	if cls == nil || paramType == nil {
		return false
	}
	m, ok := support.FindHelper(cls, "Default"+strconv.Itoa(paramNum), method.Name, paramType, false)
	if !ok {
		return false
	}
	df := &ParameterDefaultFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeActionParameterDefault, holder), method: m}
	df.SetAdapterMap(f.AdapterMap())
	return facet.Add(df)
}

// ActionValidateFacetFactory claims `ValidateX(args...) string` with the parameters of action X.
type ActionValidateFacetFactory struct {
	facetfactory.PrefixBased
}

func NewActionValidateFacetFactory() facetfactory.FacetFactory {
	return &ActionValidateFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.ActionsOnly, "Validate")}
}

func (f *ActionValidateFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := support.FindHelper(cls, "Validate", method.Name, support.StringType, false, facetfactory.ParamTypes(method)...)
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	return facet.Add(&ValidateFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeActionValidate, holder), method: m})
}

// ParameterTagFacetFactory reads the `pN.` tags of an action's field: named, describedAs,
// maxLength, typicalLength, mandatory and optional.
type ParameterTagFacetFactory struct {
	facetfactory.Abstract
	logger *zap.Logger
}

func NewParameterTagFacetFactory() facetfactory.FacetFactory {
	return &ParameterTagFacetFactory{Abstract: facetfactory.NewAbstract(facet.ParametersOnly), logger: zap.NewNop()}
}

func (f *ParameterTagFacetFactory) SetLogger(logger *zap.Logger) {
	f.logger = logger
}

func (f *ParameterTagFacetFactory) ProcessParams(method reflect.Method, paramNum int, holder facet.Holder) bool {
	t := tags.ForParameter(support.ReceiverType(method), method.Name, paramNum)
	if len(t) == 0 {
		return false
	}
	added := false
	if v, ok := t.Get("named"); ok && v != "" {
		added = facet.Add(object.NewStringFacet(spec.TypeNamed, v, holder)) || added
	}
	if v, ok := t.Get("describedAs"); ok && v != "" {
		added = facet.Add(object.NewStringFacet(spec.TypeDescribedAs, v, holder)) || added
	}
	logger := f.logger.With(zap.String("action", method.Name), zap.String("parameter", fmt.Sprintf("p%d", paramNum)))
	return properties.ApplyValueTags(t, holder, logger) || added
}

// Constructors lists the factories of this package by name.
func Constructors() progmodel.Catalog {
	return progmodel.Catalog{
		"ActionInvocationFacetFactory":        NewActionInvocationFacetFactory,
		"ActionChoicesFacetFactory":           NewActionChoicesFacetFactory,
		"ActionParameterChoicesFacetFactory":  NewActionParameterChoicesFacetFactory,
		"ActionParameterDefaultsFacetFactory": NewActionParameterDefaultsFacetFactory,
		"ActionValidateFacetFactory":          NewActionValidateFacetFactory,
		"ParameterTagFacetFactory":            NewParameterTagFacetFactory,
	}
}
