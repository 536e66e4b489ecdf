// Package facet defines the unit of the metamodel: a Facet is one semantic capability (a max length,
// an encoder, a title method) attached to a Holder, the introspected class, property, collection,
// action or parameter.
package facet

import "fmt"

// Type identifies a capability kind. A Holder keeps at most one Facet per Type.
type Type string

func (t Type) String() string {
	return string(t)
}

// Facet is a single capability attached to a Holder.
type Facet interface {
	// Type returns the capability kind this facet occupies on its holder.
	Type() Type

	// Holder returns the holder this facet is attached to.
	Holder() Holder

	// SetHolder re-parents the facet. Only called by Holder implementations.
	SetHolder(h Holder)

	// IsNoop reports whether this facet is a placeholder that any other facet of the
	// same type may replace.
	IsNoop() bool

	// AlwaysReplace reports whether this facet replaces an existing non-noop facet of the
	// same type.
	AlwaysReplace() bool

	String() string
}

// Abstract is the embeddable base for facet implementations.
type Abstract struct {
	facetType Type
	holder    Holder
	derived   bool
	noop      bool
}

// NewAbstract creates the base for an explicit facet. Explicit facets always replace.
func NewAbstract(t Type, holder Holder) Abstract {
	return Abstract{facetType: t, holder: holder}
}

// NewDerived creates the base for a facet synthesized from another facet. A derived facet never
// overwrites an explicit facet of the same type.
func NewDerived(t Type, holder Holder) Abstract {
	return Abstract{facetType: t, holder: holder, derived: true}
}

// NewNoop creates the base for a placeholder facet.
func NewNoop(t Type, holder Holder) Abstract {
	return Abstract{facetType: t, holder: holder, noop: true}
}

func (a *Abstract) Type() Type {
	return a.facetType
}

func (a *Abstract) Holder() Holder {
	return a.holder
}

func (a *Abstract) SetHolder(h Holder) {
	a.holder = h
}

func (a *Abstract) IsNoop() bool {
	return a.noop
}

func (a *Abstract) AlwaysReplace() bool {
	return !a.derived && !a.noop
}

// IsDerived reports whether the facet was synthesized rather than declared.
func (a *Abstract) IsDerived() bool {
	return a.derived
}

func (a *Abstract) String() string {
	return fmt.Sprintf("%s[derived=%t,noop=%t]", a.facetType, a.derived, a.noop)
}

// Replaces reports whether candidate should take the slot currently held by existing.
func Replaces(candidate, existing Facet) bool {
	if existing == nil || existing.IsNoop() {
		return true
	}
	return candidate.AlwaysReplace()
}
