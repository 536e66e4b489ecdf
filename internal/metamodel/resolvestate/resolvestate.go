// Package resolvestate models an adapted object's position in the load and persist lifecycle.
package resolvestate

import (
	"errors"
	"fmt"
)

// State is a resolve state.
type State int

const (
	New State = iota
	Transient
	Ghost
	PartResolved
	ResolvingPart
	Resolving
	Resolved
	Updating
	SerializingTransient
	SerializingPartResolved
	SerializingResolved
	Value
	Destroyed
)

var names = map[State]string{
	New:                     "NEW",
	Transient:               "TRANSIENT",
	Ghost:                   "GHOST",
	PartResolved:            "PART_RESOLVED",
	ResolvingPart:           "RESOLVING_PART",
	Resolving:               "RESOLVING",
	Resolved:                "RESOLVED",
	Updating:                "UPDATING",
	SerializingTransient:    "SERIALIZING_TRANSIENT",
	SerializingPartResolved: "SERIALIZING_PART_RESOLVED",
	SerializingResolved:     "SERIALIZING_RESOLVED",
	Value:                   "VALUE",
	Destroyed:               "DESTROYED",
}

var transitions = map[State][]State{
	Ghost:                   {Destroyed, ResolvingPart, Resolving, Updating},
	New:                     {Transient, Ghost, Value},
	PartResolved:            {ResolvingPart, Resolving, Updating, Destroyed, SerializingPartResolved},
	Resolved:                {Ghost, Updating, Destroyed, SerializingResolved},
	Resolving:               {Resolved},
	ResolvingPart:           {PartResolved, Resolved},
	Transient:               {Resolved, SerializingTransient},
	Updating:                {Resolved},
	SerializingTransient:    {Transient},
	SerializingPartResolved: {PartResolved},
	SerializingResolved:     {Resolved},
}

var endStates = map[State]State{
	Resolving:               Resolved,
	ResolvingPart:           PartResolved,
	Updating:                Resolved,
	SerializingTransient:    Transient,
	SerializingPartResolved: PartResolved,
	SerializingResolved:     Resolved,
}

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("invalid resolve state transition")

func (s State) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Parse returns the state with the given name.
func Parse(name string) (State, error) {
	for s, n := range names {
		if n == name {
			return s, nil
		}
	}
	return New, fmt.Errorf("unknown resolve state: %q", name)
}

// IsValidToChangeTo reports whether s may move to next.
func (s State) IsValidToChangeTo(next State) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// EndState returns the state a transitional state settles into, and false for stable states.
func (s State) EndState() (State, bool) {
	end, ok := endStates[s]
	return end, ok
}

// IsTransitional reports whether s is a resolving, updating or serializing state.
func (s State) IsTransitional() bool {
	_, ok := endStates[s]
	return ok
}

func (s State) IsTransient() bool {
	return s == Transient || s == SerializingTransient
}

func (s State) IsResolved() bool {
	return s == Resolved
}

func (s State) IsGhost() bool {
	return s == Ghost
}

func (s State) IsDestroyed() bool {
	return s == Destroyed
}

// Check returns ErrInvalidTransition wrapped with both states when s cannot move to next.
func (s State) Check(next State) error {
	if !s.IsValidToChangeTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

// Stateful is anything carrying a resolve state, typically an object adapter.
type Stateful interface {
	ResolveState() State
	ChangeState(next State) error
}

// Start moves target into a transitional state.
func Start(target Stateful, next State) error {
	if !next.IsTransitional() {
		return fmt.Errorf("%w: %s is not a transitional state", ErrInvalidTransition, next)
	}
	return target.ChangeState(next)
}

// End moves target out of its transitional state into the matching end state.
func End(target Stateful) error {
	current := target.ResolveState()
	end, ok := current.EndState()
	if !ok {
		return fmt.Errorf("%w: %s has no end state", ErrInvalidTransition, current)
	}
	return target.ChangeState(end)
}
