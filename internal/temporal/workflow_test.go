package temporal

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/raynmakers/autopiloot/internal/orchestrator"
)

func TestDailyRunWorkflowHappyPath(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	env.OnActivity(a.PlanDailyRunActivity, mock.Anything).Return(3, nil)
	env.OnActivity(a.ListReadyVideosActivity, mock.Anything, ListReadyVideosRequest{Status: "discovered", Limit: 50}).
		Return([]string{"vid1", "vid2"}, nil)
	env.OnActivity(a.ListReadyVideosActivity, mock.Anything, ListReadyVideosRequest{Status: "transcribed", Limit: 50}).
		Return([]string{"vid1"}, nil)
	env.OnActivity(a.DispatchTranscriberActivity, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.DispatchSummarizerActivity, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(a.EmitRunEventsActivity, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(orchestrator.RunSummary{HealthScore: 95, StatusIcon: "🟢", Discovered: 3, Completed: 1}, nil)

	env.ExecuteWorkflow(DailyRunWorkflow, DailyRunRequest{})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var summary orchestrator.RunSummary
	require.NoError(t, env.GetWorkflowResult(&summary))
	require.Equal(t, 95.0, summary.HealthScore)
}

func TestDailyRunWorkflowContinuesAfterPerVideoFailure(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	env.OnActivity(a.PlanDailyRunActivity, mock.Anything).Return(1, nil)
	env.OnActivity(a.ListReadyVideosActivity, mock.Anything, ListReadyVideosRequest{Status: "discovered", Limit: 50}).
		Return([]string{"vid1"}, nil)
	env.OnActivity(a.ListReadyVideosActivity, mock.Anything, ListReadyVideosRequest{Status: "transcribed", Limit: 50}).
		Return([]string{}, nil)
	env.OnActivity(a.DispatchTranscriberActivity, mock.Anything, "vid1").Return(assertableError("transient failure"))
	env.OnActivity(a.EmitRunEventsActivity, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(orchestrator.RunSummary{HealthScore: 70, StatusIcon: "🟠"}, nil)

	env.ExecuteWorkflow(DailyRunWorkflow, DailyRunRequest{})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
