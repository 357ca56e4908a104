// Package subjects provides small instrumented programs to generate tests
// for. Every constructor builds fresh properties and a fresh cluster.
package subjects

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gensuite/internal/instrumentation"
	"gensuite/internal/testcase"
)

var ErrUnknownSubject = errors.New("unknown subject")

// Subject is a program under test: what can be called and how it is
// instrumented.
type Subject struct {
	Name        string
	Description string
	Properties  *instrumentation.SubjectProperties
	Cluster     *testcase.Cluster
}

var builders = map[string]func() *Subject{
	"triangle": Triangle,
	"stack":    Stack,
	"matcher":  Matcher,
}

// Lookup builds the named subject.
func Lookup(name string) (*Subject, error) {
	build, ok := builders[strings.TrimSpace(strings.ToLower(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, name)
	}
	return build(), nil
}

func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
