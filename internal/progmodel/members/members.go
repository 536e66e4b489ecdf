// Package members holds the facet factories shared by properties, collections and actions.
package members

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

// IgnoredMethods are the methods the framework never treats as members.
var IgnoredMethods = []string{
	"String", "GoString", "Error",
	"MarshalText", "UnmarshalText", "MarshalJSON", "UnmarshalJSON",
	"MarshalBinary", "UnmarshalBinary", "EnumValues",
}

// IgnoredMethodsFacetFactory removes standard-library interface methods before members are
// identified.
type IgnoredMethodsFacetFactory struct {
	facetfactory.Abstract
	ignored map[string]bool
}

func NewIgnoredMethodsFacetFactory() facetfactory.FacetFactory {
	ignored := make(map[string]bool, len(IgnoredMethods))
	for _, name := range IgnoredMethods {
		ignored[name] = true
	}
	return &IgnoredMethodsFacetFactory{Abstract: facetfactory.NewAbstract(facet.ObjectsOnly), ignored: ignored}
}

func (f *IgnoredMethodsFacetFactory) Recognizes(method reflect.Method) bool {
	return f.ignored[method.Name]
}

func (f *IgnoredMethodsFacetFactory) Process(_ reflect.Type, remover facetfactory.MethodRemover, _ facet.Holder) bool {
	remover.RemoveMethodsMatching(f.Recognizes)
	return false
}

// HideFacetViaMethod calls `HideX() bool`.
type HideFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *HideFacetViaMethod) Hidden(target spec.ObjectAdapter) bool {
	if target == nil {
		return false
	}
	out, err := facetfactory.InvokeSafely(f.method, target.Object())
	return err == nil && len(out) == 1 && out[0].Bool()
}

// HideFacetAlways hides a member unconditionally.
type HideFacetAlways struct {
	facet.Abstract
}

func (f *HideFacetAlways) Hidden(spec.ObjectAdapter) bool {
	return true
}

// HideMethodFacetFactory claims `HideX() bool` for member X.
type HideMethodFacetFactory struct {
	facetfactory.PrefixBased
}

func NewHideMethodFacetFactory() facetfactory.FacetFactory {
	return &HideMethodFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.Members, "Hide")}
}

func (f *HideMethodFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := support.FindHelper(cls, "Hide", method.Name, support.BoolType, false)
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	return facet.Add(&HideFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeHide, holder), method: m})
}

// DisableFacetViaMethod calls `DisableX() string`; a non-empty result is the reason.
type DisableFacetViaMethod struct {
	facet.Abstract
	method reflect.Method
}

func (f *DisableFacetViaMethod) DisabledReason(target spec.ObjectAdapter) string {
	return support.CallForString(f.method, target)
}

// DisableFacetAlways disables a member unconditionally.
type DisableFacetAlways struct {
	facet.Abstract
}

func (f *DisableFacetAlways) DisabledReason(spec.ObjectAdapter) string {
	return "Always disabled"
}

// DisableMethodFacetFactory claims `DisableX() string` for member X.
type DisableMethodFacetFactory struct {
	facetfactory.PrefixBased
}

func NewDisableMethodFacetFactory() facetfactory.FacetFactory {
	return &DisableMethodFacetFactory{PrefixBased: facetfactory.NewPrefixBased(facet.Members, "Disable")}
}

func (f *DisableMethodFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, remover facetfactory.MethodRemover, holder facet.Holder) bool {
	m, ok := support.FindHelper(cls, "Disable", method.Name, support.StringType, false)
	if !ok {
		return false
	}
	remover.RemoveMethod(m)
	return facet.Add(&DisableFacetViaMethod{Abstract: facet.NewAbstract(spec.TypeDisable, holder), method: m})
}

type stringFacet struct {
	facet.Abstract
	value string
}

func (f *stringFacet) Value() string {
	return f.value
}

// MemberOrderFacet carries the `order` tag.
type MemberOrderFacet struct {
	facet.Abstract
	sequence int
}

func (f *MemberOrderFacet) Sequence() int {
	return f.sequence
}

// MemberTagFacetFactory reads `named`, `describedAs`, `order`, `hidden` and `disabled` from the
// field backing a member.
type MemberTagFacetFactory struct {
	facetfactory.Abstract
	logger *zap.Logger
}

func NewMemberTagFacetFactory() facetfactory.FacetFactory {
	return &MemberTagFacetFactory{Abstract: facetfactory.NewAbstract(facet.Members), logger: zap.NewNop()}
}

func (f *MemberTagFacetFactory) SetLogger(logger *zap.Logger) {
	f.logger = logger
}

func (f *MemberTagFacetFactory) ProcessMethod(cls reflect.Type, method reflect.Method, _ facetfactory.MethodRemover, holder facet.Holder) bool {
	t := tags.ForMember(cls, method.Name)
	if len(t) == 0 {
		return false
	}

	added := false
	if v, ok := t.Get("named"); ok && v != "" {
		added = facet.Add(&stringFacet{Abstract: facet.NewAbstract(spec.TypeNamed, holder), value: v}) || added
	}
	if v, ok := t.Get("describedAs"); ok && v != "" {
		added = facet.Add(&stringFacet{Abstract: facet.NewAbstract(spec.TypeDescribedAs, holder), value: v}) || added
	}
	order, present, err := t.Int("order")
	if err != nil {
		f.logger.Warn("ignoring malformed order tag", zap.String("type", cls.String()), zap.String("member", method.Name), zap.Error(err))
	} else if present {
		added = facet.Add(&MemberOrderFacet{Abstract: facet.NewAbstract(spec.TypeMemberOrder, holder), sequence: order}) || added
	}
	if t.Has("hidden") {
		added = facet.Add(&HideFacetAlways{Abstract: facet.NewAbstract(spec.TypeHide, holder)}) || added
	}
	if t.Has("disabled") {
		added = facet.Add(&DisableFacetAlways{Abstract: facet.NewAbstract(spec.TypeDisable, holder)}) || added
	}
	return added
}

// Constructors lists the factories of this package by name.
func Constructors() progmodel.Catalog {
	return progmodel.Catalog{
		"IgnoredMethodsFacetFactory": NewIgnoredMethodsFacetFactory,
		"HideMethodFacetFactory":     NewHideMethodFacetFactory,
		"DisableMethodFacetFactory":  NewDisableMethodFacetFactory,
		"MemberTagFacetFactory":      NewMemberTagFacetFactory,
	}
}
