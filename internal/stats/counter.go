package stats

import (
	"sync/atomic"

	"gensuite/internal/execution"
	"gensuite/internal/testcase"
)

// ExecutionCounter tallies what the executor did.
type ExecutionCounter struct {
	tests      atomic.Int64
	statements atomic.Int64
	exceptions atomic.Int64
	timeouts   atomic.Int64
}

func (c *ExecutionCounter) BeforeTestCaseExecution(*testcase.TestCase) { c.tests.Add(1) }

func (c *ExecutionCounter) AfterTestCaseExecution(_ *testcase.TestCase, result *execution.Result) {
	c.statements.Add(int64(result.ExecutedStatements))
	if result.Timeout {
		c.timeouts.Add(1)
	}
	if result.HasTestExceptions() {
		c.exceptions.Add(1)
	}
}

func (c *ExecutionCounter) Tests() int      { return int(c.tests.Load()) }
func (c *ExecutionCounter) Statements() int { return int(c.statements.Load()) }
func (c *ExecutionCounter) Exceptions() int { return int(c.exceptions.Load()) }
func (c *ExecutionCounter) Timeouts() int   { return int(c.timeouts.Load()) }
