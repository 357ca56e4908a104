package goal

import (
	"fmt"

	"gensuite/internal/instrumentation"
)

type Kind int

const (
	KindBranchlessCodeObject Kind = iota
	KindBranch
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindBranchlessCodeObject:
		return "branchless_code_object"
	case KindBranch:
		return "branch"
	case KindLine:
		return "line"
	default:
		return "unknown"
	}
}

// Goal is one coverage objective. Which fields are meaningful depends on Kind.
type Goal struct {
	Kind       Kind
	CodeObject int
	Predicate  int
	Value      bool
	Line       int
}

func BranchlessCodeObject(codeObject int) Goal {
	return Goal{Kind: KindBranchlessCodeObject, CodeObject: codeObject}
}

func Branch(codeObject, predicate int, value bool) Goal {
	return Goal{Kind: KindBranch, CodeObject: codeObject, Predicate: predicate, Value: value}
}

func LineGoal(codeObject, line int) Goal {
	return Goal{Kind: KindLine, CodeObject: codeObject, Line: line}
}

func (g Goal) String() string {
	switch g.Kind {
	case KindBranchlessCodeObject:
		return fmt.Sprintf("code_object:%d", g.CodeObject)
	case KindBranch:
		return fmt.Sprintf("branch:%d:%t", g.Predicate, g.Value)
	case KindLine:
		return fmt.Sprintf("line:%d", g.Line)
	default:
		return "unknown"
	}
}

// Distance is 0 when trace covers g. Branch distances combine the approach
// level with the normalised distance at the closest executed ancestor.
func (g Goal) Distance(props *instrumentation.SubjectProperties, trace *instrumentation.ExecutionTrace) float64 {
	switch g.Kind {
	case KindBranchlessCodeObject:
		if trace.CodeObjectExecuted(g.CodeObject) {
			return 0
		}
		return 1
	case KindLine:
		if trace.LineCovered(g.Line) {
			return 0
		}
		return 1
	case KindBranch:
		return branchDistance(props, trace, g.Predicate, g.Value)
	default:
		panic(fmt.Sprintf("unhandled goal kind %d", g.Kind))
	}
}

func (g Goal) IsCovered(props *instrumentation.SubjectProperties, trace *instrumentation.ExecutionTrace) bool {
	return g.Distance(props, trace) == 0
}

func branchDistance(props *instrumentation.SubjectProperties, trace *instrumentation.ExecutionTrace, predicate int, value bool) float64 {
	if trace.PredicateExecuted(predicate) {
		return instrumentation.Normalise(trace.Distance(predicate, value))
	}
	pred, ok := props.Predicate(predicate)
	if !ok {
		return 1
	}
	level := 1.0
	for dep := pred.Dependency; dep != nil; level++ {
		if trace.PredicateExecuted(dep.Predicate) {
			return level + instrumentation.Normalise(trace.Distance(dep.Predicate, dep.Value))
		}
		parent, ok := props.Predicate(dep.Predicate)
		if !ok {
			break
		}
		dep = parent.Dependency
	}
	if trace.CodeObjectExecuted(pred.CodeObject) {
		return level
	}
	return level + 1
}

// BranchGoals lists branchless code objects first, then both outcomes of
// every predicate, in id order.
func BranchGoals(props *instrumentation.SubjectProperties) []Goal {
	var out []Goal
	for _, id := range props.BranchlessCodeObjects() {
		out = append(out, BranchlessCodeObject(id))
	}
	for _, pred := range props.Predicates() {
		out = append(out, Branch(pred.CodeObject, pred.ID, true), Branch(pred.CodeObject, pred.ID, false))
	}
	return out
}

func LineGoals(props *instrumentation.SubjectProperties) []Goal {
	lines := props.Lines()
	out := make([]Goal, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineGoal(line.CodeObject, line.ID))
	}
	return out
}
