package testcase

import (
	"errors"
	"math/rand"
)

// CaseFactory produces fresh test cases.
type CaseFactory interface {
	TestCase(rng *rand.Rand) *TestCase
}

// RandomLengthFactory builds test cases of a random length in [1, maxLength]
// by repeated random insertion.
type RandomLengthFactory struct {
	factory     *Factory
	maxLength   int
	maxAttempts int
}

func NewRandomLengthFactory(factory *Factory, maxLength, maxAttempts int) (*RandomLengthFactory, error) {
	if factory == nil {
		return nil, errors.New("test factory is required")
	}
	if maxLength <= 0 {
		return nil, errors.New("max length must be > 0")
	}
	if maxAttempts <= 0 {
		maxAttempts = 1000
	}
	return &RandomLengthFactory{factory: factory, maxLength: maxLength, maxAttempts: maxAttempts}, nil
}

func (f *RandomLengthFactory) TestCase(rng *rand.Rand) *TestCase {
	tc := New()
	length := 1 + rng.Intn(f.maxLength)
	for attempts := 0; tc.Size() < length && attempts < f.maxAttempts; attempts++ {
		saved := tc.Statements()
		f.factory.InsertRandomStatement(rng, tc, tc.Size()-1)
		if tc.Size() > f.maxLength {
			tc.statements = saved
		}
	}
	return tc
}
