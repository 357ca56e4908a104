package instrumentation

// ControlDependency says a predicate is only reached when Predicate evaluated to Value.
type ControlDependency struct {
	Predicate int
	Value     bool
}

type CodeObject struct {
	ID     int
	Name   string
	Parent int
}

type Predicate struct {
	ID         int
	CodeObject int
	Line       int
	Dependency *ControlDependency
}

type Line struct {
	ID         int
	CodeObject int
	Number     int
}

// SubjectProperties is the static description of an instrumented subject.
// Identifiers are dense and assigned in registration order. It is populated
// once before any search starts and is read-only afterwards.
type SubjectProperties struct {
	codeObjects []CodeObject
	predicates  []Predicate
	lines       []Line
}

func NewSubjectProperties() *SubjectProperties {
	return &SubjectProperties{}
}

// RegisterCodeObject returns the new code object id. A negative parent marks a
// top-level code object.
func (p *SubjectProperties) RegisterCodeObject(name string, parent int) int {
	id := len(p.codeObjects)
	p.codeObjects = append(p.codeObjects, CodeObject{ID: id, Name: name, Parent: parent})
	return id
}

func (p *SubjectProperties) RegisterPredicate(codeObject, line int, dependency *ControlDependency) int {
	id := len(p.predicates)
	var dep *ControlDependency
	if dependency != nil {
		copied := *dependency
		dep = &copied
	}
	p.predicates = append(p.predicates, Predicate{ID: id, CodeObject: codeObject, Line: line, Dependency: dep})
	return id
}

func (p *SubjectProperties) RegisterLine(codeObject, number int) int {
	id := len(p.lines)
	p.lines = append(p.lines, Line{ID: id, CodeObject: codeObject, Number: number})
	return id
}

func (p *SubjectProperties) CodeObjects() []CodeObject {
	return append([]CodeObject(nil), p.codeObjects...)
}

func (p *SubjectProperties) Predicates() []Predicate {
	return append([]Predicate(nil), p.predicates...)
}

func (p *SubjectProperties) Lines() []Line {
	return append([]Line(nil), p.lines...)
}

func (p *SubjectProperties) CodeObject(id int) (CodeObject, bool) {
	if id < 0 || id >= len(p.codeObjects) {
		return CodeObject{}, false
	}
	return p.codeObjects[id], true
}

func (p *SubjectProperties) Predicate(id int) (Predicate, bool) {
	if id < 0 || id >= len(p.predicates) {
		return Predicate{}, false
	}
	return p.predicates[id], true
}

func (p *SubjectProperties) Line(id int) (Line, bool) {
	if id < 0 || id >= len(p.lines) {
		return Line{}, false
	}
	return p.lines[id], true
}

// BranchlessCodeObjects lists, in id order, the code objects that own no predicate.
func (p *SubjectProperties) BranchlessCodeObjects() []int {
	hasPredicate := make([]bool, len(p.codeObjects))
	for _, pred := range p.predicates {
		if pred.CodeObject >= 0 && pred.CodeObject < len(hasPredicate) {
			hasPredicate[pred.CodeObject] = true
		}
	}
	out := make([]int, 0, len(p.codeObjects))
	for id, has := range hasPredicate {
		if !has {
			out = append(out, id)
		}
	}
	return out
}

func (p *SubjectProperties) NumCodeObjects() int { return len(p.codeObjects) }
func (p *SubjectProperties) NumPredicates() int  { return len(p.predicates) }
func (p *SubjectProperties) NumLines() int       { return len(p.lines) }
