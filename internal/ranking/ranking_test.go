package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gensuite/internal/chromosome"
	"gensuite/internal/testcase"
)

// tableFitness reads a fixed score per chromosome id.
type tableFitness struct{ scores map[uint64]float64 }

func (f *tableFitness) ComputeFitness(c chromosome.Chromosome) float64 { return f.scores[c.ID()] }
func (f *tableFitness) IsCovered(c chromosome.Chromosome) bool         { return f.scores[c.ID()] == 0 }

type fixture struct {
	goals []*tableFitness
}

func newFixture(n int) *fixture {
	f := &fixture{goals: make([]*tableFitness, n)}
	for i := range f.goals {
		f.goals[i] = &tableFitness{scores: map[uint64]float64{}}
	}
	return f
}

func (f *fixture) functions() []chromosome.FitnessFunction {
	out := make([]chromosome.FitnessFunction, len(f.goals))
	for i, g := range f.goals {
		out[i] = g
	}
	return out
}

// add creates a chromosome of the given length scored by values, one per goal.
func (f *fixture) add(length int, values ...float64) *chromosome.TestCaseChromosome {
	tc := testcase.New()
	for i := 0; i < length; i++ {
		tc.Append(testcase.NewPrimitiveStatement(testcase.TypeInt, i))
	}
	c := chromosome.NewTestCaseChromosome(tc, nil, nil)
	for i, v := range values {
		f.goals[i].scores[c.ID()] = v
		c.AddFitnessFunction(f.goals[i])
	}
	return c
}

func TestDominanceComparator(t *testing.T) {
	f := newFixture(2)
	a := f.add(1, 0, 1)
	b := f.add(1, 0, 0)
	c := f.add(1, 1, 0)
	cmp := NewDominanceComparator(f.functions())

	assert.Equal(t, 1, cmp.Compare(a, b))
	assert.Equal(t, -1, cmp.Compare(b, a))
	assert.Equal(t, 0, cmp.Compare(a, c))
	assert.Equal(t, 0, cmp.Compare(a, a))
}

func TestNonDominated(t *testing.T) {
	f := newFixture(2)
	a := f.add(1, 0, 1)
	b := f.add(1, 0, 0)
	c := f.add(1, 1, 0)
	d := f.add(1, 0.5, 0.5)

	front := NonDominated([]*chromosome.TestCaseChromosome{a, c, d, b}, NewDominanceComparator(f.functions()))
	require.Len(t, front, 1)
	assert.Same(t, b, front[0])

	front = NonDominated([]*chromosome.TestCaseChromosome{a, c, d}, NewDominanceComparator(f.functions()))
	assert.Len(t, front, 3)
}

func TestPreferenceSortingZeroFrontPrefersShorter(t *testing.T) {
	f := newFixture(2)
	long := f.add(5, 0, 3)
	short := f.add(2, 0, 4)
	other := f.add(3, 2, 1)
	worst := f.add(3, 5, 5)

	ranking := PreferenceSorting([]*chromosome.TestCaseChromosome{long, short, other, worst}, f.functions(), 4)
	require.GreaterOrEqual(t, ranking.NumFronts(), 2)
	assert.ElementsMatch(t, []*chromosome.TestCaseChromosome{short, other}, ranking.Front(0))
	assert.Equal(t, 0, ranking.Rank(short))
	assert.Equal(t, 1, ranking.Rank(long))
	assert.Equal(t, 2, ranking.Rank(worst))
	assert.Nil(t, ranking.Front(ranking.NumFronts()))
}

func TestPreferenceSortingRanksEverySolutionOnce(t *testing.T) {
	f := newFixture(3)
	var pop []*chromosome.TestCaseChromosome
	for i := 0; i < 12; i++ {
		pop = append(pop, f.add(1+i%3, float64(i%4), float64((i*7)%5), float64(11-i)))
	}
	ranking := PreferenceSorting(pop, f.functions(), 4)

	seen := map[uint64]int{}
	total := 0
	for i := 0; i < ranking.NumFronts(); i++ {
		for _, c := range ranking.Front(i) {
			seen[c.ID()]++
			total++
			assert.Equal(t, i, ranking.Rank(c))
		}
	}
	assert.Equal(t, len(pop), total)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
	stranger := f.add(1, 0, 0, 0)
	assert.Equal(t, -1, ranking.Rank(stranger))
}

func TestPreferenceSortingWithoutUncoveredGoals(t *testing.T) {
	f := newFixture(1)
	a := f.add(1, 0)
	b := f.add(2, 0)
	ranking := PreferenceSorting([]*chromosome.TestCaseChromosome{a, b}, nil, 2)
	require.Equal(t, 1, ranking.NumFronts())
	assert.Len(t, ranking.Front(0), 2)
}

func TestCrowdingDistance(t *testing.T) {
	f := newFixture(2)
	a := f.add(1, 0, 4)
	b := f.add(1, 1, 3)
	c := f.add(1, 3, 1)
	d := f.add(1, 4, 0)
	front := []*chromosome.TestCaseChromosome{c, a, d, b}

	dist := CrowdingDistance(front, f.functions())
	assert.True(t, math.IsInf(dist.Of(a), 1))
	assert.True(t, math.IsInf(dist.Of(d), 1))
	assert.InDelta(t, 1.5, dist.Of(b), 1e-9)
	assert.InDelta(t, 1.5, dist.Of(c), 1e-9)

	SortByDistance(front, dist)
	assert.Same(t, a, front[0])
	assert.Same(t, d, front[1])
}

func TestCrowdingDistanceSmallFrontsAreBoundaries(t *testing.T) {
	f := newFixture(1)
	a := f.add(1, 0)
	b := f.add(1, 1)
	dist := CrowdingDistance([]*chromosome.TestCaseChromosome{a, b}, f.functions())
	assert.True(t, math.IsInf(dist.Of(a), 1))
	assert.True(t, math.IsInf(dist.Of(b), 1))
}

func TestEpsilonDominance(t *testing.T) {
	f := newFixture(2)
	a := f.add(1, 0, 2)
	b := f.add(1, 1, 2)
	c := f.add(1, 1, 2)

	dist := EpsilonDominance([]*chromosome.TestCaseChromosome{a, b, c}, f.functions())
	assert.InDelta(t, 2.0/3.0, dist.Of(a), 1e-9)
	assert.Equal(t, 0.0, dist.Of(b))
	assert.Equal(t, 0.0, dist.Of(c))
}
