package testcase

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
)

// ErrConstructionFailed signals that a statement or one of its arguments
// could not be built. Callers abort the current operation and carry on.
var ErrConstructionFailed = errors.New("construction failed")

type FactoryConfig struct {
	InsertionUUT              float64
	MaxRecursion              int
	PrimitiveReuseProbability float64
	ObjectReuseProbability    float64
	StringLength              int
	MaxInt                    int
	MaxDelta                  int
	MaxFloatDelta             float64
	RandomPerturbation        float64
}

func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		InsertionUUT:              0.5,
		MaxRecursion:              10,
		PrimitiveReuseProbability: 0.5,
		ObjectReuseProbability:    0.9,
		StringLength:              20,
		MaxInt:                    256,
		MaxDelta:                  20,
		MaxFloatDelta:             20,
		RandomPerturbation:        0.2,
	}
}

// Factory synthesizes and alters statements of test cases from a cluster.
type Factory struct {
	cluster *Cluster
	cfg     FactoryConfig
}

func NewFactory(cluster *Cluster, cfg FactoryConfig) (*Factory, error) {
	if cluster == nil {
		return nil, errors.New("test cluster is required")
	}
	if cfg.MaxRecursion <= 0 {
		return nil, fmt.Errorf("max recursion must be > 0, got %d", cfg.MaxRecursion)
	}
	if cfg.StringLength < 0 || cfg.MaxInt <= 0 || cfg.MaxDelta <= 0 {
		return nil, errors.New("primitive value bounds must be positive")
	}
	return &Factory{cluster: cluster, cfg: cfg}, nil
}

func (f *Factory) Cluster() *Cluster { return f.cluster }

// InsertRandomStatement inserts a call somewhere in [0, lastPosition+1] and
// returns the position of the inserted call, or -1 when nothing was inserted.
func (f *Factory) InsertRandomStatement(rng *rand.Rand, tc *TestCase, lastPosition int) int {
	oldSize := tc.Size()
	saved := tc.Statements()
	position := rng.Intn(max(lastPosition, -1) + 2)
	var err error
	if rng.Float64() <= f.cfg.InsertionUUT {
		err = f.insertRandomCall(rng, tc, position)
	} else {
		err = f.insertRandomCallOnObject(rng, tc, position)
	}
	if err != nil {
		tc.statements = saved
		return -1
	}
	return position + tc.Size() - oldSize - 1
}

func (f *Factory) insertRandomCall(rng *rand.Rand, tc *TestCase, position int) error {
	accessible := f.cluster.AccessibleObjects()
	if len(accessible) == 0 {
		return ErrConstructionFailed
	}
	_, err := f.addCall(rng, tc, accessible[rng.Intn(len(accessible))], position, 0, true)
	return err
}

func (f *Factory) insertRandomCallOnObject(rng *rand.Rand, tc *TestCase, position int) error {
	type candidate struct {
		receiver  *Variable
		modifiers []*Callable
	}
	var candidates []candidate
	for i := 0; i < min(position, tc.Size()); i++ {
		ret := tc.Statement(i).ReturnValue()
		if ret.Type.IsPrimitive() {
			continue
		}
		if mods := f.cluster.Modifiers(ret.Type); len(mods) > 0 {
			candidates = append(candidates, candidate{receiver: ret, modifiers: mods})
		}
	}
	if len(candidates) == 0 {
		return f.insertRandomCall(rng, tc, position)
	}
	picked := candidates[rng.Intn(len(candidates))]
	method := picked.modifiers[rng.Intn(len(picked.modifiers))]
	_, err := f.addMethod(rng, tc, method, picked.receiver, position, 0, true)
	return err
}

// AppendStatement appends a statement equivalent to stmt, which may belong to
// another test case. Arguments are rebound to values of tc, created as needed.
func (f *Factory) AppendStatement(rng *rand.Rand, tc *TestCase, stmt Statement) error {
	switch s := stmt.(type) {
	case *PrimitiveStatement:
		tc.Append(NewPrimitiveStatement(s.ret.Type, s.Value))
		return nil
	case *CallStatement:
		saved := tc.Statements()
		if _, err := f.addCall(rng, tc, s.Callable, tc.Size(), 0, true); err != nil {
			tc.statements = saved
			return err
		}
		return nil
	default:
		return fmt.Errorf("append %T: %w", stmt, ErrConstructionFailed)
	}
}

// DeleteStatementGracefully removes the statement at position. Later uses of
// its value are rewired to another value of the same type when one exists;
// the statements that still depend on it are removed as well.
func (f *Factory) DeleteStatementGracefully(rng *rand.Rand, tc *TestCase, position int) bool {
	if position < 0 || position >= tc.Size() {
		return false
	}
	variable := tc.Statement(position).ReturnValue()
	for i := position + 1; i < tc.Size(); i++ {
		stmt := tc.Statement(i)
		if !stmt.References(variable) {
			continue
		}
		alternatives := slices.DeleteFunc(tc.ObjectsOfType(variable.Type, i), func(v *Variable) bool {
			return v == variable
		})
		if len(alternatives) > 0 {
			stmt.Replace(variable, alternatives[rng.Intn(len(alternatives))])
		}
	}
	deleteStatement(tc, position)
	return true
}

// deleteStatement removes position and every later statement that
// transitively references a removed value.
func deleteStatement(tc *TestCase, position int) {
	removed := map[*Variable]struct{}{tc.Statement(position).ReturnValue(): {}}
	toDelete := []int{position}
	for i := position + 1; i < tc.Size(); i++ {
		stmt := tc.Statement(i)
		for v := range removed {
			if stmt.References(v) {
				removed[stmt.ReturnValue()] = struct{}{}
				toDelete = append(toDelete, i)
				break
			}
		}
	}
	for i := len(toDelete) - 1; i >= 0; i-- {
		tc.Remove(toDelete[i])
	}
}

// ChangeRandomCall replaces the call that produces stmt's value with another
// generator of the same type. Arguments are only taken from existing values
// and the return value keeps its identity.
func (f *Factory) ChangeRandomCall(rng *rand.Rand, tc *TestCase, stmt Statement) bool {
	current, ok := stmt.(*CallStatement)
	if !ok || current.ret.Type == TypeNone {
		return false
	}
	position := tc.PositionOf(current.ret)
	if position < 0 {
		return false
	}
	calls := slices.DeleteFunc(f.cluster.Generators(current.ret.Type), func(c *Callable) bool {
		return c == current.Callable
	})
	if len(calls) == 0 {
		return false
	}
	call := calls[rng.Intn(len(calls))]
	replacement, err := f.reuseCall(rng, tc, call, position)
	if err != nil {
		return false
	}
	replacement.ret = current.ret
	tc.SetStatement(replacement, position)
	return true
}

func (f *Factory) reuseCall(rng *rand.Rand, tc *TestCase, call *Callable, position int) (*CallStatement, error) {
	pick := func(t Type) (*Variable, error) {
		objects := tc.ObjectsOfType(t, position)
		if len(objects) == 0 {
			return nil, ErrConstructionFailed
		}
		return objects[rng.Intn(len(objects))], nil
	}
	var receiver *Variable
	if call.Kind == KindMethod {
		r, err := pick(call.Owner)
		if err != nil {
			return nil, err
		}
		receiver = r
	}
	args := make([]*Variable, len(call.Params))
	for i, param := range call.Params {
		v, err := pick(param)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return NewCallStatement(call, receiver, args), nil
}

// MutateStatement changes the statement at position in place: primitive
// values are perturbed and call arguments are rebound.
func (f *Factory) MutateStatement(rng *rand.Rand, tc *TestCase, position int) bool {
	switch s := tc.Statement(position).(type) {
	case *PrimitiveStatement:
		return f.mutatePrimitive(rng, s)
	case *CallStatement:
		return f.mutateArguments(rng, tc, s, position)
	default:
		return false
	}
}

func (f *Factory) mutateArguments(rng *rand.Rand, tc *TestCase, s *CallStatement, position int) bool {
	if len(s.Args) == 0 {
		return false
	}
	p := 1.0 / float64(len(s.Args))
	changed := false
	for i, arg := range s.Args {
		if rng.Float64() >= p {
			continue
		}
		alternatives := slices.DeleteFunc(tc.ObjectsOfType(arg.Type, position), func(v *Variable) bool {
			return v == arg
		})
		if len(alternatives) == 0 {
			continue
		}
		s.Args[i] = alternatives[rng.Intn(len(alternatives))]
		changed = true
	}
	return changed
}

// HasCallOnSUT reports whether tc calls into the subject under test.
func (f *Factory) HasCallOnSUT(tc *TestCase) bool {
	for _, stmt := range tc.statements {
		if call, ok := stmt.(*CallStatement); ok && call.Callable.UnderTest() {
			return true
		}
	}
	return false
}

func (f *Factory) addCall(rng *rand.Rand, tc *TestCase, call *Callable, position, recursion int, allowReuse bool) (*Variable, error) {
	if call.Kind != KindMethod {
		args, next, err := f.satisfyParameters(rng, tc, call.Params, position, recursion, allowReuse)
		if err != nil {
			return nil, err
		}
		return tc.AddStatement(NewCallStatement(call, nil, args), next), nil
	}
	receiver, next, err := f.createOrReuseVariable(rng, tc, call.Owner, position, recursion, true)
	if err != nil {
		return nil, err
	}
	return f.addMethod(rng, tc, call, receiver, next, recursion, allowReuse)
}

func (f *Factory) addMethod(rng *rand.Rand, tc *TestCase, call *Callable, receiver *Variable, position, recursion int, allowReuse bool) (*Variable, error) {
	args, next, err := f.satisfyParameters(rng, tc, call.Params, position, recursion, allowReuse)
	if err != nil {
		return nil, err
	}
	return tc.AddStatement(NewCallStatement(call, receiver, args), next), nil
}

// satisfyParameters returns one value per parameter and the position right
// after any statements inserted to build them.
func (f *Factory) satisfyParameters(rng *rand.Rand, tc *TestCase, params []Type, position, recursion int, allowReuse bool) ([]*Variable, int, error) {
	args := make([]*Variable, 0, len(params))
	for _, param := range params {
		v, next, err := f.createOrReuseVariable(rng, tc, param, position, recursion, allowReuse)
		if err != nil {
			return nil, position, err
		}
		args = append(args, v)
		position = next
	}
	return args, position, nil
}

func (f *Factory) createOrReuseVariable(rng *rand.Rand, tc *TestCase, t Type, position, recursion int, allowReuse bool) (*Variable, int, error) {
	reuse := f.cfg.ObjectReuseProbability
	if t.IsPrimitive() {
		reuse = f.cfg.PrimitiveReuseProbability
	}
	objects := tc.ObjectsOfType(t, position)
	if allowReuse && len(objects) > 0 && rng.Float64() <= reuse {
		return objects[rng.Intn(len(objects))], position, nil
	}
	if recursion > f.cfg.MaxRecursion {
		return nil, position, fmt.Errorf("max recursion reached building %s: %w", t, ErrConstructionFailed)
	}
	if t.IsPrimitive() {
		v := tc.AddStatement(NewPrimitiveStatement(t, f.randomPrimitive(rng, t)), position)
		return v, position + 1, nil
	}
	generators := f.cluster.Generators(t)
	if len(generators) == 0 {
		if len(objects) > 0 {
			return objects[rng.Intn(len(objects))], position, nil
		}
		return nil, position, fmt.Errorf("no generator for %s: %w", t, ErrConstructionFailed)
	}
	oldSize := tc.Size()
	v, err := f.addCall(rng, tc, generators[rng.Intn(len(generators))], position, recursion+1, allowReuse)
	if err != nil {
		return nil, position, err
	}
	return v, position + tc.Size() - oldSize, nil
}
