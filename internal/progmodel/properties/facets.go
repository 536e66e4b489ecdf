package properties

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
	"github.com/conduit-lang/facetmodel/internal/metamodel/facetfactory"
	"github.com/conduit-lang/facetmodel/internal/metamodel/spec"
	"github.com/conduit-lang/facetmodel/internal/progmodel/support"
)

// AccessorFacet reads a property by calling its accessor.
type AccessorFacet struct {
	facet.Abstract
	support.Adapters
	method reflect.Method
}

func (f *AccessorFacet) Property(owner spec.ObjectAdapter) (spec.ObjectAdapter, error) {
	v, err := support.CallForValue(f.method, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.method.Name, err)
	}
	if !v.IsValid() {
		return nil, nil
	}
	return f.Adapt(v.Interface())
}

// SetterFacet writes a property through `SetX(v)`. It serves as both the setter and the
// initialization facet.
type SetterFacet struct {
	facet.Abstract
	method reflect.Method
}

func (f *SetterFacet) SetProperty(owner, value spec.ObjectAdapter) error {
	if _, err := support.Call(f.method, owner, value); err != nil {
		return fmt.Errorf("failed to set via %s: %w", f.method.Name, err)
	}
	return nil
}

func (f *SetterFacet) InitProperty(owner, value spec.ObjectAdapter) error {
	return f.SetProperty(owner, value)
}

// ClearFacetViaMethod clears a property through `ClearX()`.
type ClearFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *ClearFacetViaMethod) ClearProperty(owner spec.ObjectAdapter) error {
	_, err := support.Call(f.method, owner)
	return err
}

// ClearFacetViaSetter clears a property by setting its zero value.
type ClearFacetViaSetter struct {
	facet.Abstract
	setter reflect.Method
}

func (f *ClearFacetViaSetter) ClearProperty(owner spec.ObjectAdapter) error {
	_, err := support.Call(f.setter, owner, nil)
	return err
}

// DefaultFacetViaMethod calls `DefaultX() T`.
type DefaultFacetViaMethod struct {
	facet.Abstract
	support.Adapters
	method      reflect.Method
	collections facetfactory.CollectionTypeRegistry
}

func (f *DefaultFacetViaMethod) Default(owner spec.ObjectAdapter) (spec.ObjectAdapter, error) {
	v, err := support.CallForValue(f.method, owner)
	if err != nil {
		return nil, err
	}
	if !v.IsValid() {
		return nil, nil
	}
	if f.collections != nil && f.collections.IsCollectionType(v.Type()) {
		return nil, &spec.UnknownTypeError{Type: v.Type().String(), Context: "a property default cannot be a collection"}
	}
	return f.Adapt(v.Interface())
}

// ChoicesFacetViaMethod calls `ChoicesX() []T`.
type ChoicesFacetViaMethod struct {
	facet.Abstract
	support.Adapters
	method reflect.Method
}

func (f *ChoicesFacetViaMethod) Choices(owner spec.ObjectAdapter) ([]spec.ObjectAdapter, error) {
	v, err := support.CallForValue(f.method, owner)
	if err != nil {
		return nil, err
	}
	return f.AdaptAll(v)
}

// ValidateFacetViaMethod calls `ValidateX(v) string`.
type ValidateFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *ValidateFacetViaMethod) InvalidReason(owner, proposed spec.ObjectAdapter) string {
	v, err := support.CallForValue(f.method, owner, proposed)
	if err != nil {
		return err.Error()
	}
	if !v.IsValid() || v.Kind() != reflect.String {
		return ""
	}
	return v.String()
}

// MaxLengthFacet limits string properties and parameters.
type MaxLengthFacet struct {
	facet.Abstract
	max int
}

// NewMaxLengthFacet creates a max length facet.
func NewMaxLengthFacet(max int, holder facet.Holder) *MaxLengthFacet {
	return &MaxLengthFacet{Abstract: facet.NewAbstract(spec.TypeMaxLength, holder), max: max}
}

func (f *MaxLengthFacet) Value() int {
	return f.max
}

// Exceeds reports whether s is longer than the limit; a limit of zero or less means unlimited.
func (f *MaxLengthFacet) Exceeds(s string) bool {
	return f.max > 0 && len([]rune(s)) > f.max
}

// TypicalLengthFacet is a rendering hint.
type TypicalLengthFacet struct {
	facet.Abstract
	length int
}

// NewTypicalLengthFacet creates a typical length facet.
func NewTypicalLengthFacet(length int, holder facet.Holder) *TypicalLengthFacet {
	return &TypicalLengthFacet{Abstract: facet.NewAbstract(spec.TypeTypicalLength, holder), length: length}
}

func (f *TypicalLengthFacet) Value() int {
	return f.length
}

// MandatoryFacet records whether a value is required. `optional` yields a facet that is not
// required, overriding any default.
type MandatoryFacet struct {
	facet.Abstract
	required bool
}

// NewMandatoryFacet creates a mandatory or optional facet.
func NewMandatoryFacet(required bool, holder facet.Holder) *MandatoryFacet {
	return &MandatoryFacet{Abstract: facet.NewAbstract(spec.TypeMandatory, holder), required: required}
}

func (f *MandatoryFacet) IsRequired() bool {
	return f.required
}

func (f *MandatoryFacet) IsRequiredButNull(value spec.ObjectAdapter) bool {
	if !f.required {
		return false
	}
	if value == nil || support.IsNil(value.Object()) {
		return true
	}
	s, ok := value.Object().(string)
	return ok && s == ""
}
