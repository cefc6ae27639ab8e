package injection

import "fmt"

// SignalClass distinguishes how a persistent flip is applied to a descriptor.
type SignalClass string

const (
	// SignalClassRegister is register-backed storage flipped by read-modify-write.
	SignalClassRegister SignalClass = "register"
	// SignalClassPrimitive is a single-bit storage primitive flipped by driving
	// its cell handle to logic-1.
	SignalClassPrimitive SignalClass = "primitive"
)

// String returns the string representation of the SignalClass.
func (c SignalClass) String() string { return string(c) }

// SignalDescriptor identifies one SEU-injectable location. It is built once by
// the catalog and shared read-only by every event that targets it.
type SignalDescriptor struct {
	// Signal is the storage handle; its width drives the width guard.
	Signal Signal
	// Class selects the persistent flip protocol.
	Class SignalClass
	// BitIndex is the bit within Signal, 0 for scalars.
	BitIndex int
	// PrimitiveCell is the cell handle driven to logic-1 for primitive descriptors.
	PrimitiveCell Signal
	// ControlSignals are associated control handles. Reserved; no algorithm reads them.
	ControlSignals []Signal
}

// NewRegisterDescriptor returns a register-classified descriptor for sig.
func NewRegisterDescriptor(sig Signal) *SignalDescriptor {
	return &SignalDescriptor{Signal: sig, Class: SignalClassRegister, ControlSignals: []Signal{}}
}

// NewPrimitiveDescriptor returns a primitive-classified descriptor whose flip
// drives cell to logic-1. sig is the observable storage output.
func NewPrimitiveDescriptor(sig, cell Signal, bitIndex int) *SignalDescriptor {
	return &SignalDescriptor{
		Signal:         sig,
		Class:          SignalClassPrimitive,
		BitIndex:       bitIndex,
		PrimitiveCell:  cell,
		ControlSignals: []Signal{},
	}
}

// FaultKind tags the variant of a FaultEvent.
type FaultKind uint8

const (
	// FaultKindSEU is a persistent single-bit flip.
	FaultKindSEU FaultKind = iota + 1
	// FaultKindSET is a transient single-bit pulse.
	FaultKindSET
)

// String returns the string representation of the FaultKind.
func (k FaultKind) String() string {
	switch k {
	case FaultKindSEU:
		return "SEU"
	case FaultKindSET:
		return "SET"
	default:
		return "UNKNOWN"
	}
}

// FaultEvent is one perturbation request produced by a Strategy. It is either
// an *SEU or a *SET.
type FaultEvent interface {
	Kind() FaultKind
	// Target is the signal whose width is checked against the width guard.
	Target() Signal
	Bit() int
	// Label is the fragment this event contributes to a round's composite label.
	Label() string
}

// SEU requests a persistent flip of one bit of a descriptor.
type SEU struct {
	Descriptor *SignalDescriptor
	BitIndex   int
}

// NewSEU creates an SEU event.
func NewSEU(d *SignalDescriptor, bit int) *SEU { return &SEU{Descriptor: d, BitIndex: bit} }

func (e *SEU) Kind() FaultKind { return FaultKindSEU }
func (e *SEU) Target() Signal  { return e.Descriptor.Signal }
func (e *SEU) Bit() int        { return e.BitIndex }
func (e *SEU) Label() string {
	return fmt.Sprintf("SEU_%s[%d]", e.Descriptor.Signal.Path(), e.BitIndex)
}

// SET requests a transient pulse on one bit of a signal. Previous is scratch
// state owned by the read-modify-write pulse protocol: the single-bit mask of
// the affected bit before the pulse was applied.
type SET struct {
	Signal   Signal
	BitIndex int
	Previous Value
}

// NewSET creates a SET event.
func NewSET(sig Signal, bit int) *SET { return &SET{Signal: sig, BitIndex: bit} }

func (e *SET) Kind() FaultKind { return FaultKindSET }
func (e *SET) Target() Signal  { return e.Signal }
func (e *SET) Bit() int        { return e.BitIndex }
func (e *SET) Label() string   { return fmt.Sprintf("SET_%s[%d]", e.Signal.Path(), e.BitIndex) }
