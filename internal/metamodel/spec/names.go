package spec

import (
	"reflect"
	"strings"
	"unicode"
)

// TypeName returns the name a specification is registered under: the package path qualified type
// name, with pointer and slice markers kept.
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	switch t.Kind() {
	case reflect.Pointer:
		if t.Name() == "" {
			return "*" + TypeName(t.Elem())
		}
	case reflect.Slice:
		if t.Name() == "" {
			return "[]" + TypeName(t.Elem())
		}
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// ShortTypeName strips package paths: *orders.Customer -> Customer, []*orders.Order -> []Order.
func ShortTypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	switch t.Kind() {
	case reflect.Pointer:
		if t.Name() == "" {
			return ShortTypeName(t.Elem())
		}
	case reflect.Slice:
		if t.Name() == "" {
			return "[]" + ShortTypeName(t.Elem())
		}
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// NaturalName splits a camel case identifier into words: OrderLine -> Order Line.
func NaturalName(name string) string {
	name = strings.TrimPrefix(name, "[]")
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				b.WriteRune(' ')
			}
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Pluralize applies the English suffix rules used for default plural names.
func Pluralize(name string) string {
	lower := strings.ToLower(name)
	switch {
	case name == "":
		return ""
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return name + "es"
	default:
		return name + "s"
	}
}

// MemberID derives a member identifier from a method-derived name: OrderLines -> orderLines.
func MemberID(name string) string {
	if name == "" {
		return ""
	}
	runes := []rune(name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
