package testcase

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"gensuite/internal/instrumentation"
)

type Type string

const (
	TypeNone   Type = "none"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
	TypeString Type = "str"
)

func (t Type) IsPrimitive() bool {
	switch t {
	case TypeInt, TypeFloat, TypeBool, TypeString:
		return true
	default:
		return false
	}
}

// Variable is the value handle a statement returns. Identity is the pointer;
// its position is the index of the statement that returns it.
type Variable struct {
	Type Type
}

// Remap is the old-to-new variable table threaded through every clone.
type Remap map[*Variable]*Variable

func (m Remap) lookup(v *Variable) *Variable {
	if v == nil {
		return nil
	}
	if mapped, ok := m[v]; ok {
		return mapped
	}
	return v
}

type Statement interface {
	ReturnValue() *Variable
	// Clone copies the statement, registers its new return value in remap
	// and rebinds references through it.
	Clone(remap Remap) Statement
	// Equal compares structurally; remap maps this test case's variables to
	// other's and is extended on success.
	Equal(other Statement, remap Remap) bool
	References(v *Variable) bool
	Replace(old, replacement *Variable)
	Execute(ctx context.Context, tracer *instrumentation.Tracer, values map[*Variable]any) (any, error)
	String(names func(*Variable) string) string
	hash(d *xxhash.Digest, positions map[*Variable]int)
}

type PrimitiveStatement struct {
	ret   *Variable
	Value any
}

func NewPrimitiveStatement(t Type, value any) *PrimitiveStatement {
	return &PrimitiveStatement{ret: &Variable{Type: t}, Value: value}
}

func (s *PrimitiveStatement) ReturnValue() *Variable { return s.ret }

func (s *PrimitiveStatement) Clone(remap Remap) Statement {
	out := NewPrimitiveStatement(s.ret.Type, s.Value)
	remap[s.ret] = out.ret
	return out
}

func (s *PrimitiveStatement) Equal(other Statement, remap Remap) bool {
	o, ok := other.(*PrimitiveStatement)
	if !ok || o.ret.Type != s.ret.Type || o.Value != s.Value {
		return false
	}
	remap[s.ret] = o.ret
	return true
}

func (s *PrimitiveStatement) References(*Variable) bool { return false }

func (s *PrimitiveStatement) Replace(*Variable, *Variable) {}

func (s *PrimitiveStatement) Execute(context.Context, *instrumentation.Tracer, map[*Variable]any) (any, error) {
	return s.Value, nil
}

func (s *PrimitiveStatement) String(names func(*Variable) string) string {
	return fmt.Sprintf("%s = %s", names(s.ret), formatValue(s.Value))
}

func (s *PrimitiveStatement) hash(d *xxhash.Digest, _ map[*Variable]int) {
	_, _ = d.WriteString("p:")
	_, _ = d.WriteString(string(s.ret.Type))
	_, _ = d.WriteString(formatValue(s.Value))
}

type CallStatement struct {
	ret      *Variable
	Callable *Callable
	Receiver *Variable
	Args     []*Variable
}

func NewCallStatement(callable *Callable, receiver *Variable, args []*Variable) *CallStatement {
	return &CallStatement{
		ret:      &Variable{Type: callable.Returns},
		Callable: callable,
		Receiver: receiver,
		Args:     append([]*Variable(nil), args...),
	}
}

func (s *CallStatement) ReturnValue() *Variable { return s.ret }

func (s *CallStatement) Clone(remap Remap) Statement {
	args := make([]*Variable, len(s.Args))
	for i, arg := range s.Args {
		args[i] = remap.lookup(arg)
	}
	out := &CallStatement{
		ret:      &Variable{Type: s.ret.Type},
		Callable: s.Callable,
		Receiver: remap.lookup(s.Receiver),
		Args:     args,
	}
	remap[s.ret] = out.ret
	return out
}

func (s *CallStatement) Equal(other Statement, remap Remap) bool {
	o, ok := other.(*CallStatement)
	if !ok || o.Callable != s.Callable || len(o.Args) != len(s.Args) {
		return false
	}
	if remap.lookup(s.Receiver) != o.Receiver {
		return false
	}
	for i, arg := range s.Args {
		if remap.lookup(arg) != o.Args[i] {
			return false
		}
	}
	remap[s.ret] = o.ret
	return true
}

func (s *CallStatement) References(v *Variable) bool {
	if s.Receiver == v {
		return true
	}
	for _, arg := range s.Args {
		if arg == v {
			return true
		}
	}
	return false
}

func (s *CallStatement) Replace(old, replacement *Variable) {
	if s.Receiver == old {
		s.Receiver = replacement
	}
	for i, arg := range s.Args {
		if arg == old {
			s.Args[i] = replacement
		}
	}
}

func (s *CallStatement) Execute(ctx context.Context, tracer *instrumentation.Tracer, values map[*Variable]any) (any, error) {
	var receiver any
	if s.Receiver != nil {
		receiver = values[s.Receiver]
	}
	args := make([]any, len(s.Args))
	for i, arg := range s.Args {
		args[i] = values[arg]
	}
	return s.Callable.Invoke(ctx, tracer, receiver, args)
}

func (s *CallStatement) String(names func(*Variable) string) string {
	args := make([]string, len(s.Args))
	for i, arg := range s.Args {
		args[i] = names(arg)
	}
	call := fmt.Sprintf("%s(%s)", s.Callable.Name, strings.Join(args, ", "))
	if s.Receiver != nil {
		call = names(s.Receiver) + "." + call
	}
	if s.ret.Type == TypeNone {
		return call
	}
	return names(s.ret) + " = " + call
}

func (s *CallStatement) hash(d *xxhash.Digest, positions map[*Variable]int) {
	_, _ = d.WriteString("c:")
	_, _ = d.WriteString(s.Callable.Name)
	var buf [8]byte
	writeRef := func(v *Variable) {
		pos, ok := positions[v]
		if !ok {
			pos = -1
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(pos)))
		_, _ = d.Write(buf[:])
	}
	if s.Receiver != nil {
		writeRef(s.Receiver)
	}
	for _, arg := range s.Args {
		writeRef(arg)
	}
}

func formatValue(v any) string {
	switch value := v.(type) {
	case string:
		return strconv.Quote(value)
	case float64:
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return fmt.Sprintf("float(%q)", strconv.FormatFloat(value, 'g', -1, 64))
		}
		return strconv.FormatFloat(value, 'g', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
