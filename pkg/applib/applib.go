// Package applib is the surface domain code imports to take part in the facetmodel programming
// model.
//
// Most of the programming model is convention: exported methods on a pointer-to-struct become
// properties, collections and actions, and struct tags under the "facet" key play the role of
// annotations:
//
//	type Customer struct {
//		_    struct{} `facet:"plural=Clients"`
//		name string   `facet:"maxLength=30,mandatory"`
//	}
//
//	func (c *Customer) Name() string        { return c.name }
//	func (c *Customer) SetName(name string) { c.name = name }
package applib

// TagKey is the struct tag key read by the programming model.
const TagKey = "facet"

// Enumerated is implemented by types with a fixed set of instances. The framework derives choices
// for every property and parameter of such a type.
type Enumerated interface {
	EnumValues() []any
}

// Titled is implemented by objects that render their own title.
type Titled interface {
	Title() string
}
