package facet

import (
	"sort"
	"sync"
)

// Holder is any introspected element that owns facets.
type Holder interface {
	// AddFacet attaches f using insert-or-replace semantics and reports whether it took the slot.
	AddFacet(f Facet) bool
	RemoveFacet(t Type)
	Facet(t Type) Facet
	ContainsFacet(t Type) bool
	Types() []Type
	Facets() []Facet
}

// IdentifiedHolder is a Holder that knows which feature it describes.
type IdentifiedHolder interface {
	Holder
	Identifier() string
}

// HolderImpl is the standard Holder: a map keyed by capability kind.
type HolderImpl struct {
	mu     sync.RWMutex
	facets map[Type]Facet
}

// NewHolder creates an empty holder.
func NewHolder() *HolderImpl {
	return &HolderImpl{facets: make(map[Type]Facet)}
}

// AddFacet stores f in the slot for its type when facet.Replaces allows it. The facet is
// re-parented to this holder.
func (h *HolderImpl) AddFacet(f Facet) bool {
	if f == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.facets == nil {
		h.facets = make(map[Type]Facet)
	}

	existing := h.facets[f.Type()]
	if !Replaces(f, existing) {
		return false
	}
	f.SetHolder(h)
	h.facets[f.Type()] = f
	return true
}

// RemoveFacet drops the facet of the given type, if any.
func (h *HolderImpl) RemoveFacet(t Type) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.facets, t)
}

// Facet returns the facet of the given type or nil.
func (h *HolderImpl) Facet(t Type) Facet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.facets[t]
}

// ContainsFacet reports whether a facet of the given type is attached.
func (h *HolderImpl) ContainsFacet(t Type) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.facets[t]
	return ok
}

// Types returns the attached facet types, sorted.
func (h *HolderImpl) Types() []Type {
	h.mu.RLock()
	defer h.mu.RUnlock()

	types := make([]Type, 0, len(h.facets))
	for t := range h.facets {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Facets returns the attached facets ordered by type.
func (h *HolderImpl) Facets() []Facet {
	types := h.Types()

	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Facet, 0, len(types))
	for _, t := range types {
		if f, ok := h.facets[t]; ok {
			result = append(result, f)
		}
	}
	return result
}

// IdentifiedHolderImpl adds an identifier to HolderImpl.
type IdentifiedHolderImpl struct {
	*HolderImpl
	identifier string
}

// NewIdentifiedHolder creates an empty holder for the named feature.
func NewIdentifiedHolder(identifier string) *IdentifiedHolderImpl {
	return &IdentifiedHolderImpl{HolderImpl: NewHolder(), identifier: identifier}
}

func (h *IdentifiedHolderImpl) Identifier() string {
	return h.identifier
}

// AddFacet re-parents to the identified holder rather than the embedded map.
func (h *IdentifiedHolderImpl) AddFacet(f Facet) bool {
	if f == nil {
		return false
	}
	if !h.HolderImpl.AddFacet(f) {
		return false
	}
	f.SetHolder(h)
	return true
}

// Lookup returns the facet of type t on h as a T.
func Lookup[T any](h Holder, t Type) (T, bool) {
	var zero T
	if h == nil {
		return zero, false
	}
	f := h.Facet(t)
	if f == nil {
		return zero, false
	}
	typed, ok := f.(T)
	return typed, ok
}

// Add attaches f to its own holder and reports whether it was stored. A nil facet is ignored,
// matching factories that build facets conditionally.
func Add(f Facet) bool {
	if f == nil || f.Holder() == nil {
		return false
	}
	return f.Holder().AddFacet(f)
}
