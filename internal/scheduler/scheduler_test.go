package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStart_WithoutReportFunctionIsNoop(t *testing.T) {
	s := New("0 21 * * *")
	require.NoError(t, s.Start())
	require.False(t, s.IsRunning())
	s.Stop()
}

func TestStart_RegistersJob(t *testing.T) {
	s := New("0 21 * * *")
	s.SetReportFunction(func(ctx context.Context) error { return nil })
	require.NoError(t, s.Start())
	require.True(t, s.IsRunning())
	s.Stop()
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New("every now and then")
	s.SetReportFunction(func(ctx context.Context) error { return nil })
	require.Error(t, s.Start())

	s = New("")
	s.SetReportFunction(func(ctx context.Context) error { return nil })
	require.Error(t, s.Start())
}

func TestRunReport_PassesSchedulerContext(t *testing.T) {
	s := New("@daily")
	called := false
	s.SetReportFunction(func(ctx context.Context) error {
		called = true
		require.NoError(t, ctx.Err())
		return nil
	})
	s.runReport()
	require.True(t, called)
	s.Stop()
}
