package injection

// Signal is a handle to one signal of the simulated design. Handles are owned by
// the simulation backend; the injection engine only references them.
type Signal interface {
	// Path returns the fully qualified hierarchical path of the signal.
	Path() string
	// Name returns the local (unqualified) name of the signal.
	Name() string
	// Width returns the number of bits in the signal.
	Width() int

	// Read returns the current value. It returns ErrUndefinedValue when any bit
	// of the signal is in an undefined (X/Z) state.
	Read() (Value, error)
	// Write deposits a value. The design's own drivers may overwrite it later.
	Write(v Value) error
	// Force overrides the signal's drivers with v until Release is called.
	Force(v Value) error
	// Release drops an override installed by Force and lets native drivers resume.
	Release() error

	// Bit returns a single-bit handle for bit i of a vector signal.
	Bit(i int) (Signal, error)
}

// NodeKind tags the variant of a hierarchy node.
type NodeKind uint8

const (
	// NodeKindSignal is a leaf signal that can be injected.
	NodeKindSignal NodeKind = iota + 1
	// NodeKindScope is a sub-hierarchy such as a module instance.
	NodeKindScope
	// NodeKindArray is an indexed collection of sub-elements, e.g. a generate
	// array of instances.
	NodeKindArray
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case NodeKindSignal:
		return "signal"
	case NodeKindScope:
		return "scope"
	case NodeKindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Node is one entry of the design hierarchy. Traversal dispatches on Kind:
// Signal is only meaningful for NodeKindSignal, Children only for scopes and
// arrays, and DefinitionName only for scopes (the module type).
type Node interface {
	Kind() NodeKind
	Path() string
	Name() string
	DefinitionName() string
	Signal() Signal
	Children() ([]Node, error)
}
