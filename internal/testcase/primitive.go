package testcase

import (
	"math"
	"math/rand"
	"strings"
)

const printable = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 !#$%&()*+,-./:;<=>?@[]^_{|}~"

func (f *Factory) randomPrimitive(rng *rand.Rand, t Type) any {
	switch t {
	case TypeInt:
		return rng.Intn(2*f.cfg.MaxInt+1) - f.cfg.MaxInt
	case TypeFloat:
		return roundTo(rng.Float64()*float64(2*f.cfg.MaxInt)-float64(f.cfg.MaxInt), 2)
	case TypeBool:
		return rng.Intn(2) == 1
	case TypeString:
		return randomString(rng, rng.Intn(f.cfg.StringLength+1))
	default:
		return nil
	}
}

// mutatePrimitive either draws a fresh value or perturbs the current one and
// reports whether the value changed.
func (f *Factory) mutatePrimitive(rng *rand.Rand, s *PrimitiveStatement) bool {
	old := s.Value
	if rng.Float64() < f.cfg.RandomPerturbation {
		s.Value = f.randomPrimitive(rng, s.ret.Type)
		return s.Value != old
	}
	switch value := s.Value.(type) {
	case int:
		s.Value = value + int(rng.NormFloat64()*float64(f.cfg.MaxDelta))
	case float64:
		switch rng.Intn(3) {
		case 0:
			s.Value = value + rng.NormFloat64()*f.cfg.MaxFloatDelta
		case 1:
			s.Value = value + rng.NormFloat64()
		default:
			s.Value = roundTo(value, rng.Intn(7))
		}
	case bool:
		s.Value = !value
	case string:
		s.Value = mutateString(rng, value)
	}
	return s.Value != old
}

// mutateString deletes, replaces and inserts characters, each operation
// gated by its own coin flip.
func mutateString(rng *rand.Rand, value string) string {
	chars := []rune(value)
	if rng.Float64() < 1.0/3 && len(chars) > 0 {
		p := 1.0 / float64(len(chars))
		kept := chars[:0:0]
		for _, c := range chars {
			if rng.Float64() >= p {
				kept = append(kept, c)
			}
		}
		chars = kept
	}
	if rng.Float64() < 1.0/3 && len(chars) > 0 {
		p := 1.0 / float64(len(chars))
		for i := range chars {
			if rng.Float64() < p {
				chars[i] = rune(printable[rng.Intn(len(printable))])
			}
		}
	}
	if rng.Float64() < 1.0/3 {
		alpha, exponent := 0.5, 1.0
		for rng.Float64() <= math.Pow(alpha, exponent) {
			pos := rng.Intn(len(chars) + 1)
			c := rune(printable[rng.Intn(len(printable))])
			chars = append(chars[:pos], append([]rune{c}, chars[pos:]...)...)
			exponent++
		}
	}
	return string(chars)
}

func randomString(rng *rand.Rand, length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(printable[rng.Intn(len(printable))])
	}
	return b.String()
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
