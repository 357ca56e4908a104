package selection

import (
	"errors"
	"math/rand"
	"testing"

	"gensuite/internal/chromosome"
	"gensuite/internal/testcase"
)

type lengthFitness struct{}

func (lengthFitness) ComputeFitness(c chromosome.Chromosome) float64 { return float64(c.Length()) }
func (lengthFitness) IsCovered(c chromosome.Chromosome) bool         { return c.Length() == 0 }

// population returns chromosomes of length 1..n, so index i has fitness i+1.
func population(n int) []*chromosome.TestCaseChromosome {
	out := make([]*chromosome.TestCaseChromosome, n)
	for i := range out {
		tc := testcase.New()
		for j := 0; j <= i; j++ {
			tc.Append(testcase.NewPrimitiveStatement(testcase.TypeInt, j))
		}
		out[i] = chromosome.NewTestCaseChromosome(tc, nil, nil)
		out[i].AddFitnessFunction(lengthFitness{})
	}
	return out
}

func TestTournamentPrefersLowFitness(t *testing.T) {
	pop := population(10)
	rng := rand.New(rand.NewSource(42))
	fn := Tournament[*chromosome.TestCaseChromosome]{Size: 4}

	low, high := 0, 0
	for i := 0; i < 500; i++ {
		idx, err := fn.Index(rng, pop)
		if err != nil {
			t.Fatalf("index: %v", err)
		}
		if idx < 5 {
			low++
		} else {
			high++
		}
	}
	if low <= high*2 {
		t.Fatalf("expected strong bias to the head, got low=%d high=%d", low, high)
	}

	maxFn := Tournament[*chromosome.TestCaseChromosome]{Size: len(pop) * 10, Maximize: true}
	idx, err := maxFn.Index(rng, pop)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if idx != len(pop)-1 {
		t.Fatalf("expected the longest member with a huge tournament, got %d", idx)
	}
}

func TestRankPrefersHead(t *testing.T) {
	pop := population(20)
	rng := rand.New(rand.NewSource(7))
	fn := Rank[*chromosome.TestCaseChromosome]{Bias: 1.7}
	counts := make([]int, len(pop))
	for i := 0; i < 2000; i++ {
		idx, err := fn.Index(rng, pop)
		if err != nil {
			t.Fatalf("index: %v", err)
		}
		counts[idx]++
	}
	if counts[0] <= counts[len(pop)-1] {
		t.Fatalf("expected head to be selected more often: %v", counts)
	}
}

func TestSelectDrawsK(t *testing.T) {
	pop := population(3)
	rng := rand.New(rand.NewSource(1))
	picked, err := Select[*chromosome.TestCaseChromosome](rng, Random[*chromosome.TestCaseChromosome]{}, pop, 7)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(picked) != 7 {
		t.Fatalf("expected 7 picks, got %d", len(picked))
	}
}

func TestSelectionErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := (Random[*chromosome.TestCaseChromosome]{}).Index(rng, nil); !errors.Is(err, ErrEmptyPopulation) {
		t.Fatalf("expected ErrEmptyPopulation, got %v", err)
	}
	if _, err := (Tournament[*chromosome.TestCaseChromosome]{}).Index(nil, population(2)); err == nil {
		t.Fatal("expected error for nil random source")
	}
	if _, err := ByName[*chromosome.TestCaseChromosome]("roulette", 0, 0); err == nil {
		t.Fatal("expected error for unknown selection function")
	}
	fn, err := ByName[*chromosome.TestCaseChromosome]("rank", 0, 0)
	if err != nil || fn.Name() != "rank" {
		t.Fatalf("unexpected rank selection: %v %v", fn, err)
	}
}

func TestRankTournamentUsesPreference(t *testing.T) {
	pop := population(6)
	rng := rand.New(rand.NewSource(9))
	// Prefer longer members, against their fitness.
	fn := RankTournament[*chromosome.TestCaseChromosome]{
		Size:   120,
		Better: func(a, b *chromosome.TestCaseChromosome) bool { return a.Length() > b.Length() },
	}
	for i := 0; i < 50; i++ {
		idx, err := fn.Index(rng, pop)
		if err != nil {
			t.Fatalf("index: %v", err)
		}
		if idx != len(pop)-1 {
			t.Fatalf("expected the longest member, got index %d", idx)
		}
	}
	if _, err := (RankTournament[*chromosome.TestCaseChromosome]{}).Index(rng, pop); err == nil {
		t.Fatal("expected error without a preference")
	}
}
