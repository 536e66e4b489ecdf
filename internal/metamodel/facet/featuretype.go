package facet

// FeatureType classifies the reflective element a factory can process.
type FeatureType int

const (
	Object FeatureType = iota
	Property
	Collection
	Action
	ActionParameter
)

// String returns the string representation of the feature type
func (f FeatureType) String() string {
	switch f {
	case Object:
		return "object"
	case Property:
		return "property"
	case Collection:
		return "collection"
	case Action:
		return "action"
	case ActionParameter:
		return "action_parameter"
	default:
		return "unknown"
	}
}

// IsMember reports whether the feature type is a property, collection or action.
func (f FeatureType) IsMember() bool {
	return f == Property || f == Collection || f == Action
}

// Predefined feature type sets that factories declare.
var (
	ObjectsOnly                     = []FeatureType{Object}
	PropertiesOnly                  = []FeatureType{Property}
	CollectionsOnly                 = []FeatureType{Collection}
	ActionsOnly                     = []FeatureType{Action}
	ParametersOnly                  = []FeatureType{ActionParameter}
	PropertiesAndParameters         = []FeatureType{Property, ActionParameter}
	ActionsAndParameters            = []FeatureType{Action, ActionParameter}
	Members                         = []FeatureType{Property, Collection, Action}
	PropertiesAndCollections        = []FeatureType{Property, Collection}
	ObjectsPropertiesAndCollections = []FeatureType{Object, Property, Collection}
	Everything                      = []FeatureType{Object, Property, Collection, Action, ActionParameter}
)

// Contains reports whether ft is in the set.
func Contains(set []FeatureType, ft FeatureType) bool {
	for _, f := range set {
		if f == ft {
			return true
		}
	}
	return false
}
