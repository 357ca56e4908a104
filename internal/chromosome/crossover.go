package chromosome

import "math/rand"

type CrossOverFunction[T Individual[T]] interface {
	CrossOver(rng *rand.Rand, parent1, parent2 T) error
}

// SinglePointRelativeCrossOver cuts both parents at the same relative split
// point. Each parent is recombined with a clone of the other so the two
// offspring do not interfere.
type SinglePointRelativeCrossOver[T Individual[T]] struct{}

func (SinglePointRelativeCrossOver[T]) CrossOver(rng *rand.Rand, parent1, parent2 T) error {
	if parent1.Size() < 2 || parent2.Size() < 2 {
		return nil
	}
	split := rng.Float64()
	position1 := int(float64(parent1.Size()-1)*split) + 1
	position2 := int(float64(parent2.Size()-1)*split) + 1
	clone1 := parent1.Clone()
	clone2 := parent2.Clone()
	if err := parent1.CrossOver(rng, clone2, position1, position2); err != nil {
		return err
	}
	return parent2.CrossOver(rng, clone1, position2, position1)
}
