// Package tags reads `facet:"..."` struct tags, the annotations of the programming model.
package tags

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/conduit-lang/facetmodel/pkg/applib"
)

// Tags is a parsed tag: flags map to "", key=value pairs to their value.
type Tags map[string]string

// Parse splits a tag value on commas.
func Parse(tag string) Tags {
	result := make(Tags)
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		result[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return result
}

func (t Tags) Has(key string) bool {
	_, ok := t[key]
	return ok
}

func (t Tags) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// Int returns the integer value of key. A present key with a non-integer value is an error.
func (t Tags) Int(key string) (int, bool, error) {
	v, ok := t[key]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("tag %s: %q is not an integer", key, v)
	}
	return n, true, nil
}

func structType(cls reflect.Type) (reflect.Type, bool) {
	if cls == nil {
		return nil, false
	}
	for cls.Kind() == reflect.Pointer {
		cls = cls.Elem()
	}
	return cls, cls.Kind() == reflect.Struct
}

// ForType returns the tags on the blank `_` fields of cls.
func ForType(cls reflect.Type) Tags {
	result := make(Tags)
	st, ok := structType(cls)
	if !ok {
		return result
	}
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if field.Name != "_" {
			continue
		}
		for k, v := range Parse(field.Tag.Get(applib.TagKey)) {
			result[k] = v
		}
	}
	return result
}

// ForMember returns the tags of the field backing member, matched case-insensitively.
func ForMember(cls reflect.Type, member string) Tags {
	st, ok := structType(cls)
	if !ok || member == "" {
		return make(Tags)
	}
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if field.Name != "_" && strings.EqualFold(field.Name, member) {
			return Parse(field.Tag.Get(applib.TagKey))
		}
	}
	return make(Tags)
}

// ForParameter returns the tags of parameter n (0-based) of an action, written on the action's
// field with a `pN.` prefix: `facet:"p0.named=Quantity,p0.maxLength=4"`.
func ForParameter(cls reflect.Type, action string, n int) Tags {
	prefix := "p" + strconv.Itoa(n) + "."
	result := make(Tags)
	for k, v := range ForMember(cls, action) {
		if key, ok := strings.CutPrefix(k, prefix); ok && key != "" {
			result[key] = v
		}
	}
	return result
}
