package testcase

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// TestCase is an ordered sequence of statements.
type TestCase struct {
	statements []Statement
}

func New() *TestCase {
	return &TestCase{}
}

func (tc *TestCase) Size() int { return len(tc.statements) }

func (tc *TestCase) Statement(position int) Statement { return tc.statements[position] }

func (tc *TestCase) Statements() []Statement {
	return append([]Statement(nil), tc.statements...)
}

// AddStatement inserts at position, or appends when position is negative or
// past the end, and returns the statement's return value.
func (tc *TestCase) AddStatement(stmt Statement, position int) *Variable {
	if position < 0 || position >= len(tc.statements) {
		tc.statements = append(tc.statements, stmt)
		return stmt.ReturnValue()
	}
	tc.statements = append(tc.statements, nil)
	copy(tc.statements[position+1:], tc.statements[position:])
	tc.statements[position] = stmt
	return stmt.ReturnValue()
}

func (tc *TestCase) Append(stmt Statement) *Variable {
	return tc.AddStatement(stmt, -1)
}

// SetStatement replaces the statement at position.
func (tc *TestCase) SetStatement(stmt Statement, position int) {
	tc.statements[position] = stmt
}

func (tc *TestCase) Remove(position int) {
	if position < 0 || position >= len(tc.statements) {
		return
	}
	tc.statements = append(tc.statements[:position], tc.statements[position+1:]...)
}

// Chop keeps statements 0..position inclusive.
func (tc *TestCase) Chop(position int) {
	if position+1 < len(tc.statements) {
		tc.statements = tc.statements[:max(position+1, 0)]
	}
}

func (tc *TestCase) Clone() *TestCase {
	out := &TestCase{statements: make([]Statement, 0, len(tc.statements))}
	remap := make(Remap, len(tc.statements))
	for _, stmt := range tc.statements {
		out.statements = append(out.statements, stmt.Clone(remap))
	}
	return out
}

func (tc *TestCase) Equal(other *TestCase) bool {
	if tc == other {
		return true
	}
	if other == nil || len(tc.statements) != len(other.statements) {
		return false
	}
	remap := make(Remap, len(tc.statements))
	for i, stmt := range tc.statements {
		if !stmt.Equal(other.statements[i], remap) {
			return false
		}
	}
	return true
}

func (tc *TestCase) Hash() uint64 {
	d := xxhash.New()
	positions := make(map[*Variable]int, len(tc.statements))
	for i, stmt := range tc.statements {
		stmt.hash(d, positions)
		positions[stmt.ReturnValue()] = i
		_, _ = d.WriteString(";")
	}
	return d.Sum64()
}

// ObjectsOfType returns the values of type t defined before position.
func (tc *TestCase) ObjectsOfType(t Type, position int) []*Variable {
	limit := min(position, len(tc.statements))
	var out []*Variable
	for i := 0; i < limit; i++ {
		ret := tc.statements[i].ReturnValue()
		if ret.Type == t && t != TypeNone {
			out = append(out, ret)
		}
	}
	return out
}

// PositionOf returns the index of the statement returning v, or -1.
func (tc *TestCase) PositionOf(v *Variable) int {
	for i, stmt := range tc.statements {
		if stmt.ReturnValue() == v {
			return i
		}
	}
	return -1
}

// Lines renders each statement on its own line with positional variable names.
func (tc *TestCase) Lines() []string {
	names := make(map[*Variable]string, len(tc.statements))
	for i, stmt := range tc.statements {
		names[stmt.ReturnValue()] = fmt.Sprintf("v%d", i)
	}
	lookup := func(v *Variable) string {
		if name, ok := names[v]; ok {
			return name
		}
		return "<unbound>"
	}
	out := make([]string, len(tc.statements))
	for i, stmt := range tc.statements {
		out[i] = stmt.String(lookup)
	}
	return out
}

func (tc *TestCase) String() string {
	return strings.Join(tc.Lines(), "\n")
}
