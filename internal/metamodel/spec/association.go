package spec

import (
	"fmt"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
)

// ObjectAssociation is a property or collection of a specification.
type ObjectAssociation interface {
	ObjectFeature

	// Get returns the adapter for the current value: the property value or the collection.
	Get(owner ObjectAdapter) (ObjectAdapter, error)
	IsEmpty(owner ObjectAdapter) (bool, error)
	IsOneToOne() bool
	IsOneToMany() bool
	IsNotPersisted() bool
	IsMandatory() bool
	HasChoices() bool
	IsVisible(owner ObjectAdapter) bool

	// DisabledReason returns why the association may not be changed, or "".
	DisabledReason(owner ObjectAdapter) string
}

type association struct {
	feature
}

func (a *association) IsNotPersisted() bool {
	return a.ContainsFacet(TypeNotPersisted)
}

func (a *association) IsMandatory() bool {
	if m, ok := facet.Lookup[MandatoryFacet](a, TypeMandatory); ok {
		return m.IsRequired()
	}
	return false
}

func (a *association) IsVisible(owner ObjectAdapter) bool {
	return isVisible(a, owner)
}

func (a *association) DisabledReason(owner ObjectAdapter) string {
	return disabledReason(a, owner)
}

// OneToOneAssociation is a property.
type OneToOneAssociation struct {
	association
}

// NewOneToOneAssociation creates a property of type typeSpec.
func NewOneToOneAssociation(id string, typeSpec *ObjectSpecification) *OneToOneAssociation {
	a := &OneToOneAssociation{association{feature: newFeature(id, facet.Property, typeSpec)}}
	a.self = a
	return a
}

func (a *OneToOneAssociation) IsOneToOne() bool  { return true }
func (a *OneToOneAssociation) IsOneToMany() bool { return false }

func (a *OneToOneAssociation) HasChoices() bool {
	return a.ContainsFacet(TypePropertyChoices)
}

func (a *OneToOneAssociation) Get(owner ObjectAdapter) (ObjectAdapter, error) {
	accessor, ok := facet.Lookup[PropertyAccessorFacet](a, TypePropertyAccessor)
	if !ok {
		return nil, fmt.Errorf("property %s has no accessor", a.id)
	}
	return accessor.Property(owner)
}

func (a *OneToOneAssociation) IsEmpty(owner ObjectAdapter) (bool, error) {
	value, err := a.Get(owner)
	if err != nil {
		return false, err
	}
	return isEmptyValue(value), nil
}

// HasSetter reports whether the property can be written through a setter.
func (a *OneToOneAssociation) HasSetter() bool {
	return a.ContainsFacet(TypePropertySetter)
}

// InitAssociation writes value without domain side effects, falling back to the setter.
func (a *OneToOneAssociation) InitAssociation(owner, value ObjectAdapter) error {
	if init, ok := facet.Lookup[PropertyInitializationFacet](a, TypePropertyInitialization); ok {
		return init.InitProperty(owner, value)
	}
	return a.SetAssociation(owner, value)
}

// SetAssociation writes value through the setter, or clears the property when value is nil and a
// clear facet exists.
func (a *OneToOneAssociation) SetAssociation(owner, value ObjectAdapter) error {
	if value == nil {
		if clear, ok := facet.Lookup[PropertyClearFacet](a, TypePropertyClear); ok {
			return clear.ClearProperty(owner)
		}
	}
	setter, ok := facet.Lookup[PropertySetterFacet](a, TypePropertySetter)
	if !ok {
		return fmt.Errorf("property %s is not settable", a.id)
	}
	return setter.SetProperty(owner, value)
}

func (a *OneToOneAssociation) ClearAssociation(owner ObjectAdapter) error {
	return a.SetAssociation(owner, nil)
}

// Choices lists the acceptable values, or nil when the property has no choices.
func (a *OneToOneAssociation) Choices(owner ObjectAdapter) ([]ObjectAdapter, error) {
	choices, ok := facet.Lookup[PropertyChoicesFacet](a, TypePropertyChoices)
	if !ok {
		return nil, nil
	}
	return choices.Choices(owner)
}

// Default returns the default value, or nil.
func (a *OneToOneAssociation) Default(owner ObjectAdapter) (ObjectAdapter, error) {
	def, ok := facet.Lookup[PropertyDefaultFacet](a, TypePropertyDefault)
	if !ok {
		return nil, nil
	}
	return def.Default(owner)
}

// IsValid returns why proposed is not acceptable for this property, or "".
func (a *OneToOneAssociation) IsValid(owner, proposed ObjectAdapter) string {
	if m, ok := facet.Lookup[MandatoryFacet](a, TypeMandatory); ok && m.IsRequiredButNull(proposed) {
		return fmt.Sprintf("'%s' is mandatory", a.Name())
	}
	if max, ok := facet.Lookup[MaxLengthFacet](a, TypeMaxLength); ok && proposed != nil {
		if s, isString := proposed.Object().(string); isString && max.Exceeds(s) {
			return fmt.Sprintf("'%s' may not be longer than %d characters", a.Name(), max.Value())
		}
	}
	if v, ok := facet.Lookup[PropertyValidateFacet](a, TypePropertyValidate); ok {
		return v.InvalidReason(owner, proposed)
	}
	return ""
}

func (a *OneToOneAssociation) String() string {
	return fmt.Sprintf("OneToOneAssociation[%s]", a.id)
}

// OneToManyAssociation is a collection.
type OneToManyAssociation struct {
	association
}

// NewOneToManyAssociation creates a collection; typeSpec is the specification of the slice type.
func NewOneToManyAssociation(id string, typeSpec *ObjectSpecification) *OneToManyAssociation {
	a := &OneToManyAssociation{association{feature: newFeature(id, facet.Collection, typeSpec)}}
	a.self = a
	return a
}

func (a *OneToManyAssociation) IsOneToOne() bool  { return false }
func (a *OneToManyAssociation) IsOneToMany() bool { return true }
func (a *OneToManyAssociation) HasChoices() bool  { return false }

func (a *OneToManyAssociation) Get(owner ObjectAdapter) (ObjectAdapter, error) {
	accessor, ok := facet.Lookup[CollectionAccessorFacet](a, TypeCollectionAccessor)
	if !ok {
		return nil, fmt.Errorf("collection %s has no accessor", a.id)
	}
	return accessor.Collection(owner)
}

func (a *OneToManyAssociation) collectionFacet() (CollectionFacet, error) {
	if a.typeSpec != nil {
		if cf, ok := facet.Lookup[CollectionFacet](a.typeSpec, TypeCollection); ok {
			return cf, nil
		}
	}
	return nil, &UnknownTypeError{Type: a.typeName(), Context: "collection " + a.id + " has no collection facet"}
}

func (a *OneToManyAssociation) typeName() string {
	if a.typeSpec == nil {
		return "<nil>"
	}
	return a.typeSpec.FullName()
}

// Elements returns the adapters of the current elements.
func (a *OneToManyAssociation) Elements(owner ObjectAdapter) ([]ObjectAdapter, error) {
	cf, err := a.collectionFacet()
	if err != nil {
		return nil, err
	}
	coll, err := a.Get(owner)
	if err != nil || coll == nil {
		return nil, err
	}
	return cf.Elements(coll)
}

// Contains reports whether element is currently in the collection.
func (a *OneToManyAssociation) Contains(owner, element ObjectAdapter) (bool, error) {
	cf, err := a.collectionFacet()
	if err != nil {
		return false, err
	}
	coll, err := a.Get(owner)
	if err != nil || coll == nil {
		return false, err
	}
	return cf.Contains(coll, element), nil
}

func (a *OneToManyAssociation) IsEmpty(owner ObjectAdapter) (bool, error) {
	cf, err := a.collectionFacet()
	if err != nil {
		return false, err
	}
	coll, err := a.Get(owner)
	if err != nil {
		return false, err
	}
	return coll == nil || cf.Size(coll) == 0, nil
}

func (a *OneToManyAssociation) AddElement(owner, element ObjectAdapter) error {
	add, ok := facet.Lookup[CollectionAddToFacet](a, TypeCollectionAddTo)
	if !ok {
		return fmt.Errorf("collection %s does not support adding", a.id)
	}
	return add.Add(owner, element)
}

func (a *OneToManyAssociation) RemoveElement(owner, element ObjectAdapter) error {
	remove, ok := facet.Lookup[CollectionRemoveFromFacet](a, TypeCollectionRemoveFrom)
	if !ok {
		return fmt.Errorf("collection %s does not support removing", a.id)
	}
	return remove.Remove(owner, element)
}

func (a *OneToManyAssociation) ClearCollection(owner ObjectAdapter) error {
	clear, ok := facet.Lookup[CollectionClearFacet](a, TypeCollectionClear)
	if !ok {
		return fmt.Errorf("collection %s does not support clearing", a.id)
	}
	return clear.Clear(owner)
}

// IsValidToAdd returns why element may not be added, or "".
func (a *OneToManyAssociation) IsValidToAdd(owner, element ObjectAdapter) string {
	if element == nil {
		return "cannot add an empty element to " + a.Name()
	}
	contains, err := a.Contains(owner, element)
	if err != nil {
		return err.Error()
	}
	if contains {
		return "already in " + a.Name()
	}
	return ""
}

func (a *OneToManyAssociation) String() string {
	return fmt.Sprintf("OneToManyAssociation[%s]", a.id)
}

func isEmptyValue(value ObjectAdapter) bool {
	if value == nil || value.Object() == nil {
		return true
	}
	if s, ok := value.Object().(string); ok {
		return s == ""
	}
	return false
}
