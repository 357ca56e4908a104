package goal

import "fmt"

// Exclusions holds goals that suite fitness functions no longer score.
// It is shared by reference between the search and its fitness functions.
type Exclusions struct {
	codeObjects     map[int]struct{}
	truePredicates  map[int]struct{}
	falsePredicates map[int]struct{}
	lines           map[int]struct{}
}

func NewExclusions() *Exclusions {
	e := &Exclusions{}
	e.Clear()
	return e
}

func (e *Exclusions) Clear() {
	e.codeObjects = make(map[int]struct{})
	e.truePredicates = make(map[int]struct{})
	e.falsePredicates = make(map[int]struct{})
	e.lines = make(map[int]struct{})
}

// Reset replaces the exclusions with exactly the given goals.
func (e *Exclusions) Reset(goals []Goal) {
	e.Clear()
	for _, g := range goals {
		e.Add(g)
	}
}

func (e *Exclusions) Add(g Goal) {
	switch g.Kind {
	case KindBranchlessCodeObject:
		e.codeObjects[g.CodeObject] = struct{}{}
	case KindBranch:
		if g.Value {
			e.truePredicates[g.Predicate] = struct{}{}
		} else {
			e.falsePredicates[g.Predicate] = struct{}{}
		}
	case KindLine:
		e.lines[g.Line] = struct{}{}
	default:
		panic(fmt.Sprintf("unhandled goal kind %d", g.Kind))
	}
}

func (e *Exclusions) Contains(g Goal) bool {
	if e == nil {
		return false
	}
	var ok bool
	switch g.Kind {
	case KindBranchlessCodeObject:
		_, ok = e.codeObjects[g.CodeObject]
	case KindBranch:
		if g.Value {
			_, ok = e.truePredicates[g.Predicate]
		} else {
			_, ok = e.falsePredicates[g.Predicate]
		}
	case KindLine:
		_, ok = e.lines[g.Line]
	default:
		panic(fmt.Sprintf("unhandled goal kind %d", g.Kind))
	}
	return ok
}

func (e *Exclusions) CodeObjectExcluded(id int) bool {
	if e == nil {
		return false
	}
	_, ok := e.codeObjects[id]
	return ok
}

func (e *Exclusions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.codeObjects) + len(e.truePredicates) + len(e.falsePredicates) + len(e.lines)
}
