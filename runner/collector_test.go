package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

func entry(c types.Capability, pass bool, sessionID string) *types.ResultEntry {
	e := types.NewResultEntry(c)
	if pass {
		e.Pass()
	} else {
		e.Fail(types.FailureAssertion, "boom")
	}
	e.SessionID = sessionID
	return e
}

func TestAggregator(t *testing.T) {
	start := time.Now().Add(-2 * time.Second)
	agg := NewAggregator("run-1", start, 2)

	agg.Add("login", "loginTest", entry(chrome, true, "s1"))
	agg.Add("login", "loginTest", entry(firefox, false, "s2"))
	agg.Add("checkout", "payTest", entry(chrome, true, ""))
	assert.Equal(t, 3, agg.Completed())

	result := agg.Finalize(3)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 3, result.TotalTests)
	assert.Equal(t, 2, result.TotalBrowsers)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, types.TestStatusFail, result.Status)
	assert.GreaterOrEqual(t, result.ElapsedTime, 2*time.Second)
	assert.Len(t, result.Entries("login", "loginTest"), 2)
	assert.Equal(t, 3, result.EntryCount())

	t.Run("finalize runs once", func(t *testing.T) {
		elapsed := result.ElapsedTime
		again := agg.Finalize(99)
		assert.Same(t, result, again)
		assert.Equal(t, 3, again.TotalTests)
		assert.Equal(t, elapsed, again.ElapsedTime)
	})

	t.Run("entries with sessions", func(t *testing.T) {
		entries := agg.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "login", entries[0].Suite)
		assert.Equal(t, "loginTest", entries[0].TestID)
		assert.Equal(t, "s1", entries[0].Entry.SessionID)
		assert.Equal(t, "s2", entries[1].Entry.SessionID)
	})
}

func TestAggregatorEmptyRunPasses(t *testing.T) {
	result := NewAggregator("run-2", time.Now(), 1).Finalize(0)
	assert.Equal(t, types.TestStatusPass, result.Status)
	assert.Zero(t, result.TotalTests)
	assert.Zero(t, result.EntryCount())
}

func TestExpandTasksOrder(t *testing.T) {
	plan := Plan{
		Environment: testEnv(chrome, firefox),
		Suites: []discovery.Suite{
			newSuite("a", newTest("one", passProc()), newTest("two", passProc())),
			newSuite("b", newTest("three", passProc())),
		},
	}
	tasks := expandTasks(plan)
	require.Len(t, tasks, 6)

	var got []string
	for i, task := range tasks {
		assert.Equal(t, i, task.Index)
		got = append(got, task.Capability.BrowserName+":"+task.Suite+"/"+task.Test.ID)
	}
	assert.Equal(t, []string{
		"chrome:a/one", "chrome:a/two", "chrome:b/three",
		"firefox:a/one", "firefox:a/two", "firefox:b/three",
	}, got)
	assert.Equal(t, "a/one [chrome 120 on Windows 10]", tasks[0].Name())
}
