package chromosome

import (
	"math/rand"
	"sync/atomic"
)

// FitnessFunction scores one objective of a chromosome. Lower is better and
// zero means the objective is covered.
type FitnessFunction interface {
	ComputeFitness(c Chromosome) float64
	IsCovered(c Chromosome) bool
}

// CoverageFunction computes a coverage ratio in [0, 1].
type CoverageFunction interface {
	ComputeCoverage(c Chromosome) float64
}

// Chromosome is the contract search algorithms and shared operators rely on.
type Chromosome interface {
	ID() uint64
	Size() int
	Length() int
	Changed() bool
	SetChanged(changed bool)
	Mutate(rng *rand.Rand) bool

	Fitness() float64
	FitnessFor(ff FitnessFunction) float64
	IsCovered(ff FitnessFunction) bool
	Coverage() float64
	CoverageFor(cf CoverageFunction) float64
	AddFitnessFunction(ff FitnessFunction)
	AddCoverageFunction(cf CoverageFunction)
	FitnessFunctions() []FitnessFunction
	CoverageFunctions() []CoverageFunction
	InvalidateCache()
}

// Individual is a chromosome that knows its own concrete type, which the
// generic operators need for cloning and recombination.
type Individual[T any] interface {
	Chromosome
	Clone() T
	CrossOver(rng *rand.Rand, other T, position1, position2 int) error
	Equal(other T) bool
	Hash() uint64
}

var nextID atomic.Uint64

func newID() uint64 { return nextID.Add(1) }

// base carries identity, the changed flag and the computation cache shared by
// both chromosome shapes. Every change bumps version, so a cached value
// computed against an older version is never returned.
type base struct {
	id      uint64
	changed bool
	version uint64
	cache   cache
}

type cache struct {
	fitnessFunctions  []FitnessFunction
	coverageFunctions []CoverageFunction
	fitness           map[FitnessFunction]float64
	covered           map[FitnessFunction]bool
	coverage          map[CoverageFunction]float64
	valid             bool
	version           uint64
}

func newBase() base {
	return base{id: newID(), changed: true}
}

func (b *base) ID() uint64 { return b.id }

func (b *base) Changed() bool { return b.changed }

func (b *base) SetChanged(changed bool) {
	b.changed = changed
	if changed {
		b.version++
	}
}

func (b *base) AddFitnessFunction(ff FitnessFunction) {
	b.cache.fitnessFunctions = append(b.cache.fitnessFunctions, ff)
	b.cache.valid = false
}

func (b *base) AddCoverageFunction(cf CoverageFunction) {
	b.cache.coverageFunctions = append(b.cache.coverageFunctions, cf)
	b.cache.valid = false
}

func (b *base) FitnessFunctions() []FitnessFunction {
	return append([]FitnessFunction(nil), b.cache.fitnessFunctions...)
}

func (b *base) CoverageFunctions() []CoverageFunction {
	return append([]CoverageFunction(nil), b.cache.coverageFunctions...)
}

func (b *base) InvalidateCache() {
	b.cache.valid = false
}

// refresh recomputes every registered function when the cache is stale.
func (b *base) refresh(owner Chromosome) {
	if b.cache.valid && b.cache.version == b.version {
		return
	}
	b.cache.fitness = make(map[FitnessFunction]float64, len(b.cache.fitnessFunctions))
	b.cache.covered = make(map[FitnessFunction]bool, len(b.cache.fitnessFunctions))
	b.cache.coverage = make(map[CoverageFunction]float64, len(b.cache.coverageFunctions))
	b.cache.valid = true
	b.cache.version = b.version
	for _, ff := range b.cache.fitnessFunctions {
		b.cache.fitness[ff] = ff.ComputeFitness(owner)
		b.cache.covered[ff] = ff.IsCovered(owner)
	}
	for _, cf := range b.cache.coverageFunctions {
		b.cache.coverage[cf] = cf.ComputeCoverage(owner)
	}
	b.changed = false
}

func (b *base) fitness(owner Chromosome) float64 {
	b.refresh(owner)
	total := 0.0
	for _, ff := range b.cache.fitnessFunctions {
		total += b.cache.fitness[ff]
	}
	return total
}

func (b *base) fitnessFor(owner Chromosome, ff FitnessFunction) float64 {
	b.refresh(owner)
	if v, ok := b.cache.fitness[ff]; ok {
		return v
	}
	v := ff.ComputeFitness(owner)
	b.cache.fitness[ff] = v
	return v
}

func (b *base) isCovered(owner Chromosome, ff FitnessFunction) bool {
	b.refresh(owner)
	if v, ok := b.cache.covered[ff]; ok {
		return v
	}
	v := ff.IsCovered(owner)
	b.cache.covered[ff] = v
	return v
}

// coverage is the mean over registered coverage functions.
func (b *base) coverage(owner Chromosome) float64 {
	b.refresh(owner)
	if len(b.cache.coverageFunctions) == 0 {
		return 0
	}
	total := 0.0
	for _, cf := range b.cache.coverageFunctions {
		total += b.cache.coverage[cf]
	}
	return total / float64(len(b.cache.coverageFunctions))
}

func (b *base) coverageFor(owner Chromosome, cf CoverageFunction) float64 {
	b.refresh(owner)
	if v, ok := b.cache.coverage[cf]; ok {
		return v
	}
	v := cf.ComputeCoverage(owner)
	b.cache.coverage[cf] = v
	return v
}

// cloneFrom copies cached state into a fresh identity.
func (b *base) cloneFrom(src *base) {
	b.changed = src.changed
	b.version = src.version
	b.cache = cache{
		fitnessFunctions:  append([]FitnessFunction(nil), src.cache.fitnessFunctions...),
		coverageFunctions: append([]CoverageFunction(nil), src.cache.coverageFunctions...),
		valid:             src.cache.valid,
		version:           src.cache.version,
	}
	if src.cache.valid {
		b.cache.fitness = copyMap(src.cache.fitness)
		b.cache.covered = copyMap(src.cache.covered)
		b.cache.coverage = copyMap(src.cache.coverage)
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
