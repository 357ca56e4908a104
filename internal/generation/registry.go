package generation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gensuite/internal/search"
)

var (
	ErrAlgorithmExists  = errors.New("algorithm already registered")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// Builder constructs an algorithm from a fully wired search configuration.
type Builder func(cfg search.Config) (search.Algorithm, error)

var algorithmRegistry = struct {
	mu sync.RWMutex
	m  map[string]Builder
}{
	m: builtinAlgorithms(),
}

func builtinAlgorithms() map[string]Builder {
	return map[string]Builder{
		"random":           func(cfg search.Config) (search.Algorithm, error) { return search.NewRandomSearch(cfg) },
		"random_test_case": func(cfg search.Config) (search.Algorithm, error) { return search.NewRandomTestCaseSearch(cfg) },
		"whole_suite":      func(cfg search.Config) (search.Algorithm, error) { return search.NewWholeSuite(cfg) },
		"mosa":             func(cfg search.Config) (search.Algorithm, error) { return search.NewMOSA(cfg) },
		"mio":              func(cfg search.Config) (search.Algorithm, error) { return search.NewMIO(cfg) },
	}
}

// RegisterAlgorithm adds a builder under name.
func RegisterAlgorithm(name string, build Builder) error {
	if name == "" {
		return errors.New("algorithm name is required")
	}
	if build == nil {
		return errors.New("algorithm builder is required")
	}

	algorithmRegistry.mu.Lock()
	defer algorithmRegistry.mu.Unlock()

	if _, exists := algorithmRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlgorithmExists, name)
	}
	algorithmRegistry.m[name] = build
	return nil
}

func ResolveAlgorithm(name string) (Builder, error) {
	algorithmRegistry.mu.RLock()
	build, ok := algorithmRegistry.m[name]
	algorithmRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
	}
	return build, nil
}

func ListAlgorithms() []string {
	algorithmRegistry.mu.RLock()
	defer algorithmRegistry.mu.RUnlock()

	names := make([]string, 0, len(algorithmRegistry.m))
	for name := range algorithmRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetAlgorithmRegistryForTests() {
	algorithmRegistry.mu.Lock()
	defer algorithmRegistry.mu.Unlock()
	algorithmRegistry.m = builtinAlgorithms()
}
