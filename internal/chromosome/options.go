package chromosome

// Options are the operator parameters shared by every chromosome of a run.
type Options struct {
	TestDeleteProbability float64
	TestChangeProbability float64
	TestInsertProbability float64
	// StatementInsertionProbability is the decay base for repeated statement
	// insertion into a test case.
	StatementInsertionProbability float64
	ChromosomeLength              int
	// TestInsertionProbability is the decay base for repeated test case
	// insertion into a suite.
	TestInsertionProbability float64
	MaxSize                  int
}

func DefaultOptions() Options {
	return Options{
		TestDeleteProbability:         1.0 / 3.0,
		TestChangeProbability:         1.0 / 3.0,
		TestInsertProbability:         1.0 / 3.0,
		StatementInsertionProbability: 0.5,
		ChromosomeLength:              40,
		TestInsertionProbability:      0.1,
		MaxSize:                       100,
	}
}
