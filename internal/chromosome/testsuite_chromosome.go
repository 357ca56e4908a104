package chromosome

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// TestSuiteChromosome is an ordered collection of test case chromosomes.
type TestSuiteChromosome struct {
	base
	tests   []*TestCaseChromosome
	factory Factory[*TestCaseChromosome]
	opts    *Options
	// members is the member state the cache was computed against.
	members []memberStamp
}

type memberStamp struct {
	test    *TestCaseChromosome
	version uint64
}

// NewTestSuiteChromosome creates an empty suite. The factory supplies new
// test cases during mutation; a nil factory disables insertion.
func NewTestSuiteChromosome(factory Factory[*TestCaseChromosome], opts *Options) *TestSuiteChromosome {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	return &TestSuiteChromosome{base: newBase(), factory: factory, opts: opts}
}

func (s *TestSuiteChromosome) AddTest(test *TestCaseChromosome) {
	s.tests = append(s.tests, test)
	s.SetChanged(true)
}

func (s *TestSuiteChromosome) AddTests(tests ...*TestCaseChromosome) {
	for _, t := range tests {
		s.AddTest(t)
	}
}

func (s *TestSuiteChromosome) DeleteTest(test *TestCaseChromosome) {
	idx := slices.Index(s.tests, test)
	if idx < 0 {
		return
	}
	s.tests = slices.Delete(s.tests, idx, idx+1)
	s.SetChanged(true)
}

func (s *TestSuiteChromosome) Clear() {
	s.tests = nil
	s.SetChanged(true)
}

func (s *TestSuiteChromosome) Test(i int) *TestCaseChromosome { return s.tests[i] }

func (s *TestSuiteChromosome) Tests() []*TestCaseChromosome {
	return append([]*TestCaseChromosome(nil), s.tests...)
}

func (s *TestSuiteChromosome) Size() int { return len(s.tests) }

func (s *TestSuiteChromosome) Length() int {
	total := 0
	for _, t := range s.tests {
		total += t.Length()
	}
	return total
}

// syncMembers marks the suite changed when a member was modified through
// its own API since the last read.
func (s *TestSuiteChromosome) syncMembers() {
	if len(s.members) == len(s.tests) {
		same := true
		for i, t := range s.tests {
			if s.members[i] != (memberStamp{test: t, version: t.version}) {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	s.members = stampsOf(s.tests)
	s.SetChanged(true)
}

func stampsOf(tests []*TestCaseChromosome) []memberStamp {
	out := make([]memberStamp, len(tests))
	for i, t := range tests {
		out[i] = memberStamp{test: t, version: t.version}
	}
	return out
}

func (s *TestSuiteChromosome) Changed() bool {
	s.syncMembers()
	return s.changed
}

func (s *TestSuiteChromosome) Fitness() float64 {
	s.syncMembers()
	return s.fitness(s)
}

func (s *TestSuiteChromosome) FitnessFor(ff FitnessFunction) float64 {
	s.syncMembers()
	return s.fitnessFor(s, ff)
}

func (s *TestSuiteChromosome) IsCovered(ff FitnessFunction) bool {
	s.syncMembers()
	return s.isCovered(s, ff)
}

func (s *TestSuiteChromosome) Coverage() float64 {
	s.syncMembers()
	return s.coverage(s)
}

func (s *TestSuiteChromosome) CoverageFor(cf CoverageFunction) float64 {
	s.syncMembers()
	return s.coverageFor(s, cf)
}

// Clone deep-clones every member.
func (s *TestSuiteChromosome) Clone() *TestSuiteChromosome {
	s.syncMembers()
	out := &TestSuiteChromosome{
		base:    base{id: newID()},
		tests:   make([]*TestCaseChromosome, len(s.tests)),
		factory: s.factory,
		opts:    s.opts,
	}
	for i, t := range s.tests {
		out.tests[i] = t.Clone()
	}
	out.cloneFrom(&s.base)
	out.members = stampsOf(out.tests)
	return out
}

func (s *TestSuiteChromosome) Equal(other *TestSuiteChromosome) bool {
	if s == other {
		return true
	}
	if other == nil || len(s.tests) != len(other.tests) {
		return false
	}
	for i, t := range s.tests {
		if !t.Equal(other.tests[i]) {
			return false
		}
	}
	return true
}

func (s *TestSuiteChromosome) Hash() uint64 {
	h := uint64(31)
	for _, t := range s.tests {
		h += t.Hash()
	}
	return h
}

// CrossOver keeps this suite's members before position1 and appends clones
// of other's members from position2 on.
func (s *TestSuiteChromosome) CrossOver(_ *rand.Rand, other *TestSuiteChromosome, position1, position2 int) error {
	if position1 < 0 || position1 > s.Size() || position2 < 0 || position2 > other.Size() {
		return fmt.Errorf("crossover positions %d/%d out of range for sizes %d/%d", position1, position2, s.Size(), other.Size())
	}
	kept := s.tests[:position1:position1]
	for _, t := range other.tests[position2:] {
		kept = append(kept, t.Clone())
	}
	s.tests = kept
	s.SetChanged(true)
	return nil
}

// Mutate mutates each member with probability 1/size, appends new test
// cases with a decaying probability and drops members left empty.
func (s *TestSuiteChromosome) Mutate(rng *rand.Rand) bool {
	changed := false
	if n := s.Size(); n > 0 {
		p := 1.0 / float64(n)
		for _, t := range s.tests {
			if rng.Float64() < p && t.Mutate(rng) {
				changed = true
			}
		}
	}
	if s.factory != nil {
		alpha := s.opts.TestInsertionProbability
		exponent := 1.0
		for rng.Float64() <= math.Pow(alpha, exponent) && s.Size() < s.opts.MaxSize {
			s.tests = append(s.tests, s.factory.Chromosome(rng))
			exponent++
			changed = true
		}
	}
	before := len(s.tests)
	s.tests = slices.DeleteFunc(s.tests, func(t *TestCaseChromosome) bool { return t.Size() == 0 })
	if len(s.tests) != before {
		changed = true
	}
	if changed {
		s.SetChanged(true)
	}
	return changed
}
