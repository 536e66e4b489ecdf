// Package oid defines object identity tokens. A transient oid names an object for the lifetime of
// one session; a persistent oid names stored state.
package oid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Oid identifies an adapted object.
type Oid interface {
	IsTransient() bool
	String() string
}

// SerialOid is a comparable identity token made of a kind marker and a serial value.
type SerialOid struct {
	Transient bool
	Serial    string
}

// NewTransient creates a transient oid with the given serial.
func NewTransient(serial string) SerialOid {
	return SerialOid{Transient: true, Serial: serial}
}

// NewPersistent creates a persistent oid with the given serial.
func NewPersistent(serial string) SerialOid {
	return SerialOid{Serial: serial}
}

func (o SerialOid) IsTransient() bool {
	return o.Transient
}

func (o SerialOid) String() string {
	if o.Transient {
		return "T:" + o.Serial
	}
	return "P:" + o.Serial
}

// AggregatedOid identifies an object owned by a field of its parent.
type AggregatedOid struct {
	Parent Oid
	Field  string
}

func (o AggregatedOid) IsTransient() bool {
	return o.Parent != nil && o.Parent.IsTransient()
}

func (o AggregatedOid) String() string {
	if o.Parent == nil {
		return "A:?~" + o.Field
	}
	return "A:" + o.Parent.String() + "~" + o.Field
}

// Parse reverses String for serial and aggregated oids.
func Parse(s string) (Oid, error) {
	switch {
	case strings.HasPrefix(s, "T:"):
		return NewTransient(s[2:]), nil
	case strings.HasPrefix(s, "P:"):
		return NewPersistent(s[2:]), nil
	case strings.HasPrefix(s, "A:"):
		body := s[2:]
		idx := strings.LastIndex(body, "~")
		if idx < 0 {
			return nil, fmt.Errorf("invalid aggregated oid: %s", s)
		}
		parent, err := Parse(body[:idx])
		if err != nil {
			return nil, fmt.Errorf("invalid aggregated oid parent: %w", err)
		}
		return AggregatedOid{Parent: parent, Field: body[idx+1:]}, nil
	default:
		return nil, fmt.Errorf("invalid oid: %q", s)
	}
}

// Equal compares two oids by their string form, which is unique per kind.
func Equal(a, b Oid) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// Generator hands out oids.
type Generator interface {
	NextTransient() Oid
	NextPersistent() Oid
}

// UUIDGenerator generates random oids backed by uuid v4 values.
type UUIDGenerator struct{}

func (UUIDGenerator) NextTransient() Oid {
	return NewTransient(uuid.NewString())
}

func (UUIDGenerator) NextPersistent() Oid {
	return NewPersistent(uuid.NewString())
}
