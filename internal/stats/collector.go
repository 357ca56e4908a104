// Package stats observes searches: a timeline collector, an execution
// counter, Prometheus metrics and on-disk run artifacts.
package stats

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gensuite/internal/chromosome"
	"gensuite/internal/model"
)

// Collector records the best individual after every iteration.
type Collector struct {
	mu       sync.Mutex
	now      func() time.Time
	start    time.Time
	initial  model.TimelinePoint
	timeline []model.TimelinePoint
	duration time.Duration
}

func NewCollector() *Collector {
	return &Collector{now: time.Now}
}

// WithClock replaces the clock used for elapsed times.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

func (c *Collector) BeforeSearchStart(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = start
	c.timeline = nil
	c.duration = 0
}

func (c *Collector) BeforeFirstSearchIteration(initial *chromosome.TestSuiteChromosome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initial = c.point(0, initial)
}

func (c *Collector) AfterSearchIteration(best *chromosome.TestSuiteChromosome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeline = append(c.timeline, c.point(len(c.timeline)+1, best))
}

func (c *Collector) AfterSearchFinish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = c.now().Sub(c.start)
}

func (c *Collector) point(iteration int, suite *chromosome.TestSuiteChromosome) model.TimelinePoint {
	return model.TimelinePoint{
		Iteration:     iteration,
		ElapsedMillis: c.now().Sub(c.start).Milliseconds(),
		Coverage:      suite.Coverage(),
		Fitness:       suite.Fitness(),
		Size:          suite.Size(),
		Length:        suite.Length(),
	}
}

func (c *Collector) Timeline() []model.TimelinePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.TimelinePoint(nil), c.timeline...)
}

func (c *Collector) Iterations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timeline)
}

// Duration is the wall time between search start and finish.
func (c *Collector) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

type Summary struct {
	Iterations      int     `json:"iterations"`
	InitialCoverage float64 `json:"initial_coverage"`
	FinalCoverage   float64 `json:"final_coverage"`
	CoverageMean    float64 `json:"coverage_mean"`
	CoverageStd     float64 `json:"coverage_std"`
	FitnessMin      float64 `json:"fitness_min"`
	FitnessMax      float64 `json:"fitness_max"`
	LengthMean      float64 `json:"length_mean"`
}

// Summary aggregates the timeline. Without iterations only the initial
// coverage is reported.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{
		Iterations:      len(c.timeline),
		InitialCoverage: c.initial.Coverage,
		FinalCoverage:   c.initial.Coverage,
	}
	if len(c.timeline) == 0 {
		return s
	}
	coverage := make([]float64, len(c.timeline))
	fitness := make([]float64, len(c.timeline))
	length := make([]float64, len(c.timeline))
	for i, p := range c.timeline {
		coverage[i], fitness[i], length[i] = p.Coverage, p.Fitness, float64(p.Length)
	}
	s.FinalCoverage = coverage[len(coverage)-1]
	s.CoverageMean, s.CoverageStd = stat.MeanStdDev(coverage, nil)
	if len(coverage) == 1 {
		s.CoverageStd = 0
	}
	s.FitnessMin, s.FitnessMax = floats.Min(fitness), floats.Max(fitness)
	s.LengthMean = stat.Mean(length, nil)
	return s
}
