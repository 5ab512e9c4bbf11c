package typep

// Access is how generated or reflective code reaches a field's value.
type Access uint8

const (
	// Direct reads and writes the struct field.
	Direct Access = iota
	// Accessor goes through getter and setter methods.
	Accessor
	// Constructor is supplied as a constructor argument, so it's never written after creation.
	Constructor
)

func (a Access) String() string {
	switch a {
	case Accessor:
		return "accessor"
	case Constructor:
		return "constructor"
	}
	return "direct"
}

// Field is the declaration of one column of an entity.
type Field struct {
	// Name is the host name of the field, Column the name of the column it maps to.
	Name   string
	Column string
	Type   ValueType
	// Hint is the declared column type, Undefined when the type should be inferred.
	Hint       SQLType
	Nullable   bool
	HasDefault bool
	Key        bool
	Access     Access
	// Index is the reflect field path, for fields reflected off Go structs.
	Index []int
}
