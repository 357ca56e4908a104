package selection

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gensuite/internal/chromosome"
)

var ErrEmptyPopulation = errors.New("population is empty")

// Function chooses one member of a population by index.
type Function[T chromosome.Chromosome] interface {
	Name() string
	Index(rng *rand.Rand, population []T) (int, error)
}

// Select draws k members, with replacement.
func Select[T chromosome.Chromosome](rng *rand.Rand, fn Function[T], population []T, k int) ([]T, error) {
	out := make([]T, 0, k)
	for i := 0; i < k; i++ {
		idx, err := fn.Index(rng, population)
		if err != nil {
			return nil, err
		}
		out = append(out, population[idx])
	}
	return out, nil
}

func check(rng *rand.Rand, size int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if size == 0 {
		return ErrEmptyPopulation
	}
	return nil
}

// Tournament samples Size members and keeps the one with the best fitness.
type Tournament[T chromosome.Chromosome] struct {
	Size     int
	Maximize bool
}

func (Tournament[T]) Name() string {
	return "tournament"
}

func (s Tournament[T]) Index(rng *rand.Rand, population []T) (int, error) {
	if err := check(rng, len(population)); err != nil {
		return 0, err
	}
	size := s.Size
	if size <= 0 {
		size = 5
	}
	winner := rng.Intn(len(population))
	best := population[winner].Fitness()
	for i := 1; i < size; i++ {
		candidate := rng.Intn(len(population))
		f := population[candidate].Fitness()
		if (s.Maximize && f > best) || (!s.Maximize && f < best) {
			winner, best = candidate, f
		}
	}
	return winner, nil
}

// RankTournament samples Size members and keeps the one Better prefers. It
// serves searches whose members are ordered by rank rather than by a single
// fitness value.
type RankTournament[T chromosome.Chromosome] struct {
	Size   int
	Better func(a, b T) bool
}

func (RankTournament[T]) Name() string {
	return "tournament"
}

func (s RankTournament[T]) Index(rng *rand.Rand, population []T) (int, error) {
	if err := check(rng, len(population)); err != nil {
		return 0, err
	}
	if s.Better == nil {
		return 0, fmt.Errorf("rank tournament needs a preference")
	}
	size := s.Size
	if size <= 0 {
		size = 5
	}
	winner := rng.Intn(len(population))
	for i := 1; i < size; i++ {
		candidate := rng.Intn(len(population))
		if s.Better(population[candidate], population[winner]) {
			winner = candidate
		}
	}
	return winner, nil
}

// Rank favours the head of a population sorted best first. Bias lies in
// (1, 2]; larger values select the head more often.
type Rank[T chromosome.Chromosome] struct {
	Bias float64
}

func (Rank[T]) Name() string {
	return "rank"
}

func (s Rank[T]) Index(rng *rand.Rand, population []T) (int, error) {
	if err := check(rng, len(population)); err != nil {
		return 0, err
	}
	bias := s.Bias
	if bias <= 1 {
		bias = 1.68
	}
	r := rng.Float64()
	idx := int(float64(len(population)) * (bias - math.Sqrt(bias*bias-4*(bias-1)*r)) / 2 / (bias - 1))
	if idx >= len(population) {
		idx = len(population) - 1
	}
	return idx, nil
}

// Random picks uniformly.
type Random[T chromosome.Chromosome] struct{}

func (Random[T]) Name() string {
	return "random"
}

func (Random[T]) Index(rng *rand.Rand, population []T) (int, error) {
	if err := check(rng, len(population)); err != nil {
		return 0, err
	}
	return rng.Intn(len(population)), nil
}

// ByName builds a selection function from its configured name.
func ByName[T chromosome.Chromosome](name string, tournamentSize int, rankBias float64) (Function[T], error) {
	switch name {
	case "tournament", "":
		return Tournament[T]{Size: tournamentSize}, nil
	case "rank":
		return Rank[T]{Bias: rankBias}, nil
	case "random":
		return Random[T]{}, nil
	default:
		return nil, fmt.Errorf("unknown selection function %q", name)
	}
}
