package browsertest

import (
	"context"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/runner"
	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// MockExecutorRunner is a mock implementation of the Runner interface for testing the executor
type MockExecutorRunner struct {
	mock.Mock
}

func (m *MockExecutorRunner) Run(ctx context.Context, plan runner.Plan) (*types.AggregateResult, error) {
	args := m.Called(ctx, plan)
	result := args.Get(0)
	err := args.Error(1)
	if result == nil {
		return nil, err
	}
	return result.(*types.AggregateResult), err
}

func TestDefaultTestExecutor_RunTests_Success(t *testing.T) {
	dir := writeTestTree(t, "login/LoginTest", "login/LogoutTest", "checkout/PayTest")
	env := testEnvironment()
	expected := &types.AggregateResult{RunID: "run-1", Status: types.TestStatusPass}

	mockRunner := new(MockExecutorRunner)
	mockRunner.On("Run", mock.Anything, mock.MatchedBy(func(plan runner.Plan) bool {
		if plan.Environment != env || plan.Filter != "LoginTest" || len(plan.Suites) != 2 {
			return false
		}
		return plan.Suites[0].Name == "checkout" && plan.Suites[1].Name == "login" && len(plan.Suites[1].Tests) == 2
	})).Return(expected, nil)

	executor := NewDefaultTestExecutor(mockRunner, env, discovery.Config{
		Root:     dir,
		Resolver: catalog(map[string]session.Procedure{"LoginTest": pass, "LogoutTest": pass, "PayTest": pass}),
	}, "LoginTest", testlog.Logger(t, log.LevelInfo))

	result, err := executor.RunTests(context.Background())
	require.NoError(t, err)
	assert.Same(t, expected, result)
	mockRunner.AssertExpectations(t)
}

func TestDefaultTestExecutor_RunTests_RunnerError(t *testing.T) {
	dir := writeTestTree(t, "login/LoginTest")
	expectedErr := types.ConfigurationErrorf("duplicate suite")

	mockRunner := new(MockExecutorRunner)
	mockRunner.On("Run", mock.Anything, mock.Anything).Return(nil, expectedErr)

	executor := NewDefaultTestExecutor(mockRunner, testEnvironment(), discovery.Config{
		Root:     dir,
		Resolver: catalog(map[string]session.Procedure{"LoginTest": pass}),
	}, "", testlog.Logger(t, log.LevelInfo))

	result, err := executor.RunTests(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, expectedErr)
	mockRunner.AssertExpectations(t)
}

func TestDefaultTestExecutor_RunTests_DiscoveryError(t *testing.T) {
	mockRunner := new(MockExecutorRunner)

	executor := NewDefaultTestExecutor(mockRunner, testEnvironment(), discovery.Config{
		Root: "/does/not/exist",
	}, "", testlog.Logger(t, log.LevelInfo))

	result, err := executor.RunTests(context.Background())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, types.IsConfigurationError(err))
	mockRunner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestDefaultTestExecutor_RediscoversEachRun(t *testing.T) {
	dir := writeTestTree(t, "login/LoginTest")
	procs := catalog(map[string]session.Procedure{"LoginTest": pass, "PayTest": pass})

	var suiteCounts []int
	mockRunner := new(MockExecutorRunner)
	mockRunner.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		suiteCounts = append(suiteCounts, len(args.Get(1).(runner.Plan).Suites))
	}).Return(&types.AggregateResult{}, nil)

	executor := NewDefaultTestExecutor(mockRunner, testEnvironment(), discovery.Config{Root: dir, Resolver: procs}, "", testlog.Logger(t, log.LevelInfo))

	_, err := executor.RunTests(context.Background())
	require.NoError(t, err)

	writeInto(t, dir, "checkout/PayTest")
	_, err = executor.RunTests(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, suiteCounts)
}

func TestDefaultTestExecutor_CancelledContextStillReturnsResult(t *testing.T) {
	dir := writeTestTree(t, "login/LoginTest")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockRunner := new(MockExecutorRunner)
	mockRunner.On("Run", ctx, mock.Anything).Return(&types.AggregateResult{Status: types.TestStatusFail}, nil)

	executor := NewDefaultTestExecutor(mockRunner, testEnvironment(), discovery.Config{
		Root:     dir,
		Resolver: catalog(map[string]session.Procedure{"LoginTest": pass}),
	}, "", testlog.Logger(t, log.LevelInfo))

	result, err := executor.RunTests(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TestStatusFail, result.Status)
}
