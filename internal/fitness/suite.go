package fitness

import (
	"gensuite/internal/chromosome"
	"gensuite/internal/goal"
	"gensuite/internal/instrumentation"
)

// BranchDistanceSuite sums, over the merged trace, one point per code object
// never entered plus the normalised distance of each predicate outcome.
// Goals in the exclusion set are skipped.
type BranchDistanceSuite struct {
	props      *instrumentation.SubjectProperties
	runner     *Runner
	exclusions *goal.Exclusions
	predicates map[int][]int
}

func NewBranchDistanceSuite(props *instrumentation.SubjectProperties, runner *Runner, exclusions *goal.Exclusions) *BranchDistanceSuite {
	predicates := make(map[int][]int)
	for _, pred := range props.Predicates() {
		predicates[pred.CodeObject] = append(predicates[pred.CodeObject], pred.ID)
	}
	return &BranchDistanceSuite{props: props, runner: runner, exclusions: exclusions, predicates: predicates}
}

func (f *BranchDistanceSuite) ComputeFitness(c chromosome.Chromosome) float64 {
	trace := f.runner.Trace(c)
	total := 0.0
	for _, co := range f.props.CodeObjects() {
		if trace.CodeObjectExecuted(co.ID) || f.codeObjectSolved(co.ID) {
			continue
		}
		total++
	}
	for _, pred := range f.props.Predicates() {
		for _, value := range []bool{true, false} {
			if f.exclusions.Contains(goal.Branch(pred.CodeObject, pred.ID, value)) {
				continue
			}
			total += predicateFitness(trace, pred.ID, value)
		}
	}
	return total
}

// codeObjectSolved is true once every goal owned by the code object is excluded.
func (f *BranchDistanceSuite) codeObjectSolved(codeObject int) bool {
	preds := f.predicates[codeObject]
	if len(preds) == 0 {
		return f.exclusions.CodeObjectExcluded(codeObject)
	}
	for _, id := range preds {
		if !f.exclusions.Contains(goal.Branch(codeObject, id, true)) || !f.exclusions.Contains(goal.Branch(codeObject, id, false)) {
			return false
		}
	}
	return true
}

func (f *BranchDistanceSuite) IsCovered(c chromosome.Chromosome) bool {
	return f.ComputeFitness(c) == 0
}

func predicateFitness(trace *instrumentation.ExecutionTrace, predicate int, value bool) float64 {
	if !trace.PredicateExecuted(predicate) {
		return 1
	}
	return instrumentation.Normalise(trace.Distance(predicate, value))
}

// LineSuite counts the lines not covered by the merged trace.
type LineSuite struct {
	props      *instrumentation.SubjectProperties
	runner     *Runner
	exclusions *goal.Exclusions
}

func NewLineSuite(props *instrumentation.SubjectProperties, runner *Runner, exclusions *goal.Exclusions) *LineSuite {
	return &LineSuite{props: props, runner: runner, exclusions: exclusions}
}

func (f *LineSuite) ComputeFitness(c chromosome.Chromosome) float64 {
	trace := f.runner.Trace(c)
	total := 0.0
	for _, line := range f.props.Lines() {
		if f.exclusions.Contains(goal.LineGoal(line.CodeObject, line.ID)) || trace.LineCovered(line.ID) {
			continue
		}
		total++
	}
	return total
}

func (f *LineSuite) IsCovered(c chromosome.Chromosome) bool {
	return f.ComputeFitness(c) == 0
}

// GoalCoverage is the share of goals covered by the merged trace.
type GoalCoverage struct {
	goals  []goal.Goal
	props  *instrumentation.SubjectProperties
	runner *Runner
}

func NewBranchCoverage(props *instrumentation.SubjectProperties, runner *Runner) *GoalCoverage {
	return &GoalCoverage{goals: goal.BranchGoals(props), props: props, runner: runner}
}

func NewLineCoverage(props *instrumentation.SubjectProperties, runner *Runner) *GoalCoverage {
	return &GoalCoverage{goals: goal.LineGoals(props), props: props, runner: runner}
}

func (f *GoalCoverage) ComputeCoverage(c chromosome.Chromosome) float64 {
	if len(f.goals) == 0 {
		return 1
	}
	trace := f.runner.Trace(c)
	covered := 0
	for _, g := range f.goals {
		if g.IsCovered(f.props, trace) {
			covered++
		}
	}
	return float64(covered) / float64(len(f.goals))
}
