package testcase

import (
	"context"

	"gensuite/internal/instrumentation"
)

type CallableKind int

const (
	KindConstructor CallableKind = iota
	KindMethod
	KindFunction
)

func (k CallableKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindMethod:
		return "method"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// InvokeFunc runs one call against the subject. A returned error is the
// exception the call raised.
type InvokeFunc func(ctx context.Context, tracer *instrumentation.Tracer, receiver any, args []any) (any, error)

type Callable struct {
	Name    string
	Kind    CallableKind
	Owner   Type
	Params  []Type
	Returns Type
	Invoke  InvokeFunc

	underTest bool
}

func (c *Callable) UnderTest() bool { return c.underTest }

// Cluster is the set of callables a test factory may use.
type Cluster struct {
	accessible []*Callable
	generators map[Type][]*Callable
	modifiers  map[Type][]*Callable
}

func NewCluster() *Cluster {
	return &Cluster{
		generators: make(map[Type][]*Callable),
		modifiers:  make(map[Type][]*Callable),
	}
}

// AddUnderTest registers a callable the search should exercise.
func (c *Cluster) AddUnderTest(callable *Callable) {
	callable.underTest = true
	c.accessible = append(c.accessible, callable)
	c.index(callable)
}

// AddDependency registers a callable that may only be used to build arguments.
func (c *Cluster) AddDependency(callable *Callable) {
	c.index(callable)
}

func (c *Cluster) index(callable *Callable) {
	if callable.Kind == KindMethod {
		c.modifiers[callable.Owner] = append(c.modifiers[callable.Owner], callable)
	}
	if callable.Returns != TypeNone && callable.Returns != "" {
		c.generators[callable.Returns] = append(c.generators[callable.Returns], callable)
	}
}

func (c *Cluster) AccessibleObjects() []*Callable {
	return append([]*Callable(nil), c.accessible...)
}

func (c *Cluster) NumAccessibleObjects() int { return len(c.accessible) }

func (c *Cluster) Generators(t Type) []*Callable {
	return append([]*Callable(nil), c.generators[t]...)
}

func (c *Cluster) Modifiers(t Type) []*Callable {
	return append([]*Callable(nil), c.modifiers[t]...)
}
