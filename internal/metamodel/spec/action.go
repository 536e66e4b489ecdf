package spec

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/facetmodel/internal/metamodel/facet"
)

// ObjectAction is an invokable member.
type ObjectAction struct {
	feature
	parameters []*ActionParameter
}

// NewObjectAction creates an action; returnSpec is nil for actions without a result.
func NewObjectAction(id string, returnSpec *ObjectSpecification) *ObjectAction {
	a := &ObjectAction{feature: newFeature(id, facet.Action, returnSpec)}
	a.self = a
	return a
}

// SetParameters attaches the parameter holders in declaration order.
func (a *ObjectAction) SetParameters(params []*ActionParameter) {
	a.parameters = make([]*ActionParameter, len(params))
	copy(a.parameters, params)
}

func (a *ObjectAction) Parameters() []*ActionParameter {
	result := make([]*ActionParameter, len(a.parameters))
	copy(result, a.parameters)
	return result
}

func (a *ObjectAction) ParameterCount() int {
	return len(a.parameters)
}

// ReturnType is the Go result type of the action, or nil.
func (a *ObjectAction) ReturnType() reflect.Type {
	if inv, ok := facet.Lookup[ActionInvocationFacet](a, TypeActionInvocation); ok {
		return inv.ReturnType()
	}
	return nil
}

func (a *ObjectAction) IsVisible(target ObjectAdapter) bool {
	return isVisible(a, target)
}

func (a *ObjectAction) DisabledReason(target ObjectAdapter) string {
	return disabledReason(a, target)
}

// Execute invokes the action after validating args.
func (a *ObjectAction) Execute(target ObjectAdapter, args []ObjectAdapter) (ObjectAdapter, error) {
	if reason := a.IsValid(target, args); reason != "" {
		return nil, fmt.Errorf("action %s: %s", a.id, reason)
	}
	inv, ok := facet.Lookup[ActionInvocationFacet](a, TypeActionInvocation)
	if !ok {
		return nil, fmt.Errorf("action %s has no invocation facet", a.id)
	}
	return inv.Invoke(target, args)
}

// IsValid returns why args are not acceptable, or "".
func (a *ObjectAction) IsValid(target ObjectAdapter, args []ObjectAdapter) string {
	if len(args) != len(a.parameters) {
		return fmt.Sprintf("expected %d arguments, got %d", len(a.parameters), len(args))
	}
	for i, p := range a.parameters {
		if reason := p.IsValid(target, args[i]); reason != "" {
			return reason
		}
	}
	if v, ok := facet.Lookup[ActionValidateFacet](a, TypeActionValidate); ok {
		return v.InvalidReason(target, args)
	}
	return ""
}

// Choices returns per-parameter choices. An action-wide choices facet wins over per-parameter
// facets.
func (a *ObjectAction) Choices(target ObjectAdapter) ([][]ObjectAdapter, error) {
	if all, ok := facet.Lookup[ActionChoicesFacet](a, TypeActionChoices); ok {
		choices, err := all.Choices(target)
		if err != nil {
			return nil, err
		}
		if len(choices) != len(a.parameters) {
			return nil, fmt.Errorf("action %s: choices for %d parameters, action has %d",
				a.id, len(choices), len(a.parameters))
		}
		return choices, nil
	}

	result := make([][]ObjectAdapter, len(a.parameters))
	for i, p := range a.parameters {
		choices, err := p.Choices(target)
		if err != nil {
			return nil, err
		}
		result[i] = choices
	}
	return result, nil
}

// Defaults returns the per-parameter default values; nil entries have no default.
func (a *ObjectAction) Defaults(target ObjectAdapter) ([]ObjectAdapter, error) {
	result := make([]ObjectAdapter, len(a.parameters))
	for i, p := range a.parameters {
		def, err := p.Default(target)
		if err != nil {
			return nil, err
		}
		result[i] = def
	}
	return result, nil
}

func (a *ObjectAction) String() string {
	return fmt.Sprintf("ObjectAction[%s/%d]", a.id, len(a.parameters))
}

// ActionParameter is the holder for one parameter of an action.
type ActionParameter struct {
	feature
	number int
	action *ObjectAction
}

// NewActionParameter creates parameter number (0-based) of action.
func NewActionParameter(action *ObjectAction, number int, typeSpec *ObjectSpecification) *ActionParameter {
	id := fmt.Sprintf("%s#%d", action.ID(), number)
	p := &ActionParameter{feature: newFeature(id, facet.ActionParameter, typeSpec), number: number, action: action}
	p.self = p
	return p
}

func (p *ActionParameter) Number() int {
	return p.number
}

func (p *ActionParameter) Action() *ObjectAction {
	return p.action
}

// Name is the Named facet value, or the natural name of the parameter type.
func (p *ActionParameter) Name() string {
	if named, ok := facet.Lookup[StringValueFacet](p, TypeNamed); ok && named.Value() != "" {
		return named.Value()
	}
	if p.typeSpec != nil {
		return p.typeSpec.SingularName()
	}
	return fmt.Sprintf("Parameter %d", p.number+1)
}

// IsMandatory defaults to true for parameters.
func (p *ActionParameter) IsMandatory() bool {
	if m, ok := facet.Lookup[MandatoryFacet](p, TypeMandatory); ok {
		return m.IsRequired()
	}
	return true
}

func (p *ActionParameter) IsValid(target, proposed ObjectAdapter) string {
	if p.IsMandatory() && isEmptyValue(proposed) {
		return fmt.Sprintf("'%s' is mandatory", p.Name())
	}
	if max, ok := facet.Lookup[MaxLengthFacet](p, TypeMaxLength); ok && proposed != nil {
		if s, isString := proposed.Object().(string); isString && max.Exceeds(s) {
			return fmt.Sprintf("'%s' may not be longer than %d characters", p.Name(), max.Value())
		}
	}
	return ""
}

func (p *ActionParameter) Choices(target ObjectAdapter) ([]ObjectAdapter, error) {
	if c, ok := facet.Lookup[ActionParameterChoicesFacet](p, TypeActionParameterChoices); ok {
		return c.Choices(target)
	}
	return nil, nil
}

func (p *ActionParameter) Default(target ObjectAdapter) (ObjectAdapter, error) {
	if d, ok := facet.Lookup[ActionParameterDefaultFacet](p, TypeActionParameterDefault); ok {
		return d.Default(target)
	}
	return nil, nil
}
