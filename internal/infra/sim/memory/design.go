package memory

import (
	"fmt"
	"sync"

	"github.com/ahrav/see-armada/internal/domain/injection"
)

var (
	_ injection.Node = (*Scope)(nil)
	_ injection.Node = (*Array)(nil)
	_ injection.Node = signalNode{}
)

// Scope is a module instance in the design hierarchy.
type Scope struct {
	name       string
	path       string
	definition string

	mu       sync.RWMutex
	children []injection.Node
	signals  map[string]*Signal
}

// NewDesign returns the root scope of a new design. name is the instance name
// of the top level, definition its module type.
func NewDesign(name, definition string) *Scope {
	return newScope(name, name, definition)
}

func newScope(name, path, definition string) *Scope {
	return &Scope{name: name, path: path, definition: definition, signals: make(map[string]*Signal)}
}

func (s *Scope) Kind() injection.NodeKind { return injection.NodeKindScope }
func (s *Scope) Path() string             { return s.path }
func (s *Scope) Name() string             { return s.name }
func (s *Scope) DefinitionName() string   { return s.definition }
func (s *Scope) Signal() injection.Signal { return nil }

// Children returns the scope's children in declaration order.
func (s *Scope) Children() ([]injection.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]injection.Node, len(s.children))
	copy(out, s.children)
	return out, nil
}

// AddSignal declares a signal of the given width in the scope.
func (s *Scope) AddSignal(name string, width int) *Signal {
	sig := newSignal(name, s.path+"."+name, width)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, signalNode{sig: sig})
	s.signals[name] = sig
	return sig
}

// AddScope declares a sub-module instance.
func (s *Scope) AddScope(name, definition string) *Scope {
	child := newScope(name, s.path+"."+name, definition)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, child)
	return child
}

// AddArray declares an indexed collection, e.g. a generate loop of instances.
func (s *Scope) AddArray(name string) *Array {
	arr := &Array{name: name, path: s.path + "." + name}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, arr)
	return arr
}

// SignalByName returns a signal declared directly in this scope.
func (s *Scope) SignalByName(name string) (*Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[name]
	return sig, ok
}

// Array is an indexed collection of scopes or signals.
type Array struct {
	name string
	path string

	mu       sync.RWMutex
	elements []injection.Node
}

func (a *Array) Kind() injection.NodeKind { return injection.NodeKindArray }
func (a *Array) Path() string             { return a.path }
func (a *Array) Name() string             { return a.name }
func (a *Array) DefinitionName() string   { return "" }
func (a *Array) Signal() injection.Signal { return nil }

// Children returns the array elements in index order.
func (a *Array) Children() ([]injection.Node, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]injection.Node, len(a.elements))
	copy(out, a.elements)
	return out, nil
}

// AddScope appends a scope element. An empty definition leaves the element's
// module type to be inherited from the array's parent during traversal.
func (a *Array) AddScope(definition string) *Scope {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := len(a.elements)
	el := newScope(fmt.Sprintf("%s[%d]", a.name, idx), fmt.Sprintf("%s[%d]", a.path, idx), definition)
	a.elements = append(a.elements, el)
	return el
}

// AddSignal appends a signal element of the given width.
func (a *Array) AddSignal(width int) *Signal {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := len(a.elements)
	sig := newSignal(fmt.Sprintf("%s[%d]", a.name, idx), fmt.Sprintf("%s[%d]", a.path, idx), width)
	a.elements = append(a.elements, signalNode{sig: sig})
	return sig
}

// signalNode adapts a Signal into a leaf hierarchy node.
type signalNode struct{ sig *Signal }

func (n signalNode) Kind() injection.NodeKind            { return injection.NodeKindSignal }
func (n signalNode) Path() string                        { return n.sig.Path() }
func (n signalNode) Name() string                        { return n.sig.Name() }
func (n signalNode) DefinitionName() string              { return "" }
func (n signalNode) Signal() injection.Signal            { return n.sig }
func (n signalNode) Children() ([]injection.Node, error) { return nil, nil }
