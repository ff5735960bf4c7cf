package executor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sufal6785/agentbox/internal/executor"
)

func req(code string, timeout time.Duration) executor.Request {
	return executor.Request{Code: []byte(code), Language: "python", Timeout: timeout}
}

func TestClassify(t *testing.T) {
	t.Run("exit zero with output", func(t *testing.T) {
		res := executor.Classify(executor.Outcome{
			ExitCode: 0,
			Stdout:   "hi\n",
			Elapsed:  123 * time.Millisecond,
		}, req("print('hi')", 15*time.Second))

		assert.Equal(t, executor.KindSuccess, res.Kind)
		assert.True(t, res.Success())
		assert.Equal(t, "hi", res.Output)
		assert.Equal(t, 0.123, res.Seconds())
	})

	t.Run("exit zero without output", func(t *testing.T) {
		res := executor.Classify(executor.Outcome{ExitCode: 0, Stdout: "  \n"},
			req("pass", 15*time.Second))

		assert.Equal(t, executor.KindSuccess, res.Kind)
		assert.Equal(t, "Execution completed (no output)", res.Output)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		res := executor.Classify(executor.Outcome{
			ExitCode: 1,
			Stderr:   "error: expected ';'\n",
		}, req("int main(){return 1;}", 15*time.Second))

		assert.Equal(t, executor.KindRuntimeFailure, res.Kind)
		assert.False(t, res.Success())
		assert.Equal(t, "Error (Code 1):\nerror: expected ';'", res.Output)
	})

	t.Run("timeout", func(t *testing.T) {
		res := executor.Classify(executor.Outcome{
			TimedOut: true,
			ExitCode: 137, // exit code from the kill must not matter
			Elapsed:  2 * time.Second,
		}, req("while True: pass", 2*time.Second))

		assert.Equal(t, executor.KindTimeout, res.Kind)
		assert.Equal(t, "Execution timed out after 2 seconds", res.Output)
	})

	t.Run("spawn error wins over everything", func(t *testing.T) {
		res := executor.Classify(executor.Outcome{
			SpawnErr: errors.New("cannot connect to the docker daemon"),
			TimedOut: true,
		}, req("print(1)", 15*time.Second))

		assert.Equal(t, executor.KindToolingUnavailable, res.Kind)
		assert.Contains(t, res.Output, "Docker is not available")
	})
}

func TestFingerprint(t *testing.T) {
	a := executor.Fingerprint([]byte("print('hi')"))
	b := executor.Fingerprint([]byte("print('hi')"))
	c := executor.Fingerprint([]byte("print('hi!')"))

	assert.Len(t, a, 8)
	assert.Equal(t, a, b, "identical code must yield identical fingerprints")
	assert.NotEqual(t, a, c, "different code should yield a different fingerprint")
	assert.Regexp(t, "^[0-9a-f]{8}$", a)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", executor.KindSuccess.String())
	assert.Equal(t, "runtime_failure", executor.KindRuntimeFailure.String())
	assert.Equal(t, "timeout", executor.KindTimeout.String())
	assert.Equal(t, "tooling_unavailable", executor.KindToolingUnavailable.String())
	assert.Equal(t, "internal_error", executor.KindInternalError.String())
}
