package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufal6785/agentbox/internal/executor"
	"github.com/sufal6785/agentbox/internal/language"
	"github.com/sufal6785/agentbox/internal/model"
	"github.com/sufal6785/agentbox/internal/service"
	"github.com/sufal6785/agentbox/internal/workspace"
)

// fakeInvoker implements executor.Invoker without Docker. It records the
// workspace path it saw so tests can assert the directory is gone after
// Execute returns.
type fakeInvoker struct {
	mu       sync.Mutex
	calls    int
	lastRoot string
	lastCmd  []string
	outcome  executor.Outcome
	block    chan struct{} // when set, Run waits until closed
}

func (f *fakeInvoker) Run(ctx context.Context, ws *workspace.Workspace, profile language.Profile, timeout time.Duration) executor.Outcome {
	f.mu.Lock()
	f.calls++
	f.lastRoot = ws.Root()
	f.lastCmd = profile.Command
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.outcome
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memLogs is an in-memory ExecutionLogRepository.
type memLogs struct {
	mu      sync.Mutex
	records []model.ExecutionRecord
	fail    bool
}

func (m *memLogs) Insert(ctx context.Context, rec *model.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db unavailable")
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memLogs) Stats(ctx context.Context) (*model.ExecutionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &model.ExecutionStats{LanguageUsage: map[string]int{}}
	for _, r := range m.records {
		stats.TotalExecutions++
		if r.Success {
			stats.SuccessfulExecutions++
		}
		stats.LanguageUsage[r.Language]++
	}
	return stats, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, inv *fakeInvoker, logs *memLogs, cfg service.ExecutionConfig) *service.ExecutionService {
	t.Helper()
	cfg.WorkspaceRoot = t.TempDir()
	return service.NewExecutionService(language.NewRegistry(), inv, logs, cfg, quietLogger())
}

func TestExecute_Success(t *testing.T) {
	inv := &fakeInvoker{outcome: executor.Outcome{
		ExitCode: 0, Stdout: "hi\n", Elapsed: 120 * time.Millisecond,
	}}
	logs := &memLogs{}
	svc := newService(t, inv, logs, service.DefaultExecutionConfig())

	res, err := svc.Execute(context.Background(), "u1", "print('hi')", "python", 15)
	require.NoError(t, err)

	assert.True(t, res.Success())
	assert.Equal(t, "hi", res.Output)
	assert.Len(t, res.Fingerprint, 8)
	assert.Equal(t, 0.12, res.Seconds())

	// The audit record mirrors the result.
	require.Len(t, logs.records, 1)
	rec := logs.records[0]
	assert.Equal(t, "u1", rec.ActorID)
	assert.Equal(t, "python", rec.Language)
	assert.Equal(t, res.Fingerprint, rec.Fingerprint)
	assert.True(t, rec.Success)
}

func TestExecute_WorkspaceRemovedAfterCall(t *testing.T) {
	cases := []struct {
		name    string
		outcome executor.Outcome
	}{
		{"success", executor.Outcome{ExitCode: 0, Stdout: "ok"}},
		{"runtime failure", executor.Outcome{ExitCode: 1, Stderr: "boom"}},
		{"timeout", executor.Outcome{TimedOut: true}},
		{"spawn error", executor.Outcome{SpawnErr: errors.New("daemon down")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := &fakeInvoker{outcome: tc.outcome}
			svc := newService(t, inv, &memLogs{}, service.DefaultExecutionConfig())

			_, err := svc.Execute(context.Background(), "u1", "print(1)", "python", 2)
			require.NoError(t, err)
			require.NotEmpty(t, inv.lastRoot)
			assert.NoDirExists(t, inv.lastRoot,
				"workspace must be destroyed on every exit path")
		})
	}
}

func TestExecute_RejectsBeforeAnyWork(t *testing.T) {
	inv := &fakeInvoker{}
	svc := newService(t, inv, &memLogs{}, service.DefaultExecutionConfig())
	ctx := context.Background()

	t.Run("empty code", func(t *testing.T) {
		_, err := svc.Execute(ctx, "u1", "   \n", "python", 15)
		assert.Error(t, err)
	})

	t.Run("oversized code", func(t *testing.T) {
		_, err := svc.Execute(ctx, "u1", strings.Repeat("a", 10_001), "python", 15)
		assert.Error(t, err)
	})

	t.Run("unsupported language", func(t *testing.T) {
		_, err := svc.Execute(ctx, "u1", "print(1)", "cobol", 15)
		assert.Error(t, err)
	})

	// None of the rejected requests may have reached the sandbox.
	assert.Equal(t, 0, inv.callCount())
}

func TestExecute_ClassifiesOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("runtime failure carries stderr", func(t *testing.T) {
		inv := &fakeInvoker{outcome: executor.Outcome{ExitCode: 1, Stderr: "NameError: x\n"}}
		logs := &memLogs{}
		svc := newService(t, inv, logs, service.DefaultExecutionConfig())

		res, err := svc.Execute(ctx, "u1", "x", "python", 15)
		require.NoError(t, err)
		assert.Equal(t, executor.KindRuntimeFailure, res.Kind)
		assert.Equal(t, "Error (Code 1):\nNameError: x", res.Output)
		require.Len(t, logs.records, 1)
		assert.False(t, logs.records[0].Success)
	})

	t.Run("timeout message uses the requested budget", func(t *testing.T) {
		inv := &fakeInvoker{outcome: executor.Outcome{TimedOut: true, Elapsed: 2 * time.Second}}
		svc := newService(t, inv, &memLogs{}, service.DefaultExecutionConfig())

		res, err := svc.Execute(ctx, "u1", "while True: pass", "python", 2)
		require.NoError(t, err)
		assert.Equal(t, executor.KindTimeout, res.Kind)
		assert.Equal(t, "Execution timed out after 2 seconds", res.Output)
	})

	t.Run("spawn error becomes tooling unavailable", func(t *testing.T) {
		inv := &fakeInvoker{outcome: executor.Outcome{SpawnErr: errors.New("no docker")}}
		svc := newService(t, inv, &memLogs{}, service.DefaultExecutionConfig())

		res, err := svc.Execute(ctx, "u1", "print(1)", "python", 15)
		require.NoError(t, err)
		assert.Equal(t, executor.KindToolingUnavailable, res.Kind)
	})
}

func TestExecute_TimeoutClamping(t *testing.T) {
	inv := &fakeInvoker{outcome: executor.Outcome{TimedOut: true}}
	cfg := service.DefaultExecutionConfig()
	cfg.DefaultTimeout = 15 * time.Second
	cfg.MaxTimeout = 30 * time.Second
	svc := newService(t, inv, &memLogs{}, cfg)
	ctx := context.Background()

	t.Run("zero uses the default", func(t *testing.T) {
		res, err := svc.Execute(ctx, "u1", "x=1", "python", 0)
		require.NoError(t, err)
		assert.Contains(t, res.Output, "after 15 seconds")
	})

	t.Run("excessive budget is clamped", func(t *testing.T) {
		res, err := svc.Execute(ctx, "u1", "x=1", "python", 600)
		require.NoError(t, err)
		assert.Contains(t, res.Output, "after 30 seconds")
	})
}

func TestExecute_AuditFailureDoesNotFailRequest(t *testing.T) {
	inv := &fakeInvoker{outcome: executor.Outcome{ExitCode: 0, Stdout: "ok"}}
	svc := newService(t, inv, &memLogs{fail: true}, service.DefaultExecutionConfig())

	res, err := svc.Execute(context.Background(), "u1", "print(1)", "python", 15)
	require.NoError(t, err)
	assert.True(t, res.Success())
}

func TestExecute_GateBoundsConcurrency(t *testing.T) {
	block := make(chan struct{})
	inv := &fakeInvoker{outcome: executor.Outcome{ExitCode: 0, Stdout: "ok"}, block: block}

	cfg := service.DefaultExecutionConfig()
	cfg.MaxConcurrent = 1
	svc := newService(t, inv, &memLogs{}, cfg)

	// First execution occupies the only slot.
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = svc.Execute(context.Background(), "u1", "print(1)", "python", 15)
	}()

	// Give the first call time to take the slot.
	assert.Eventually(t, func() bool { return inv.callCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// Second execution must wait; with a cancelled context it gives up
	// without ever reaching the sandbox.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := svc.Execute(ctx, "u2", "print(2)", "python", 15)
	assert.Error(t, err)
	assert.Equal(t, 1, inv.callCount())

	close(block)
	<-firstDone
}

func TestStats_PassThrough(t *testing.T) {
	logs := &memLogs{records: []model.ExecutionRecord{
		{Language: "python", Success: true},
		{Language: "go", Success: false},
	}}
	svc := newService(t, &fakeInvoker{}, logs, service.DefaultExecutionConfig())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalExecutions)
	assert.Equal(t, 1, stats.SuccessfulExecutions)
}
