// Package executor defines the code execution contract: the request and
// result types shared by the sandbox implementation and its callers, plus
// the pure classification of raw process outcomes into typed results.
package executor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/sufal6785/agentbox/internal/language"
	"github.com/sufal6785/agentbox/internal/workspace"
)

// Request is a single code execution request. All fields are required;
// validation (size limit, language support) happens before a Request is
// handed to an Invoker.
type Request struct {
	Code     []byte
	Language string
	Timeout  time.Duration
}

// Outcome is the raw result of one container invocation, before
// classification. Exactly one of three shapes applies: SpawnErr is set (the
// container never ran), TimedOut is true (the deadline expired and the
// container was killed), or the process exited normally and ExitCode is
// meaningful.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	TimedOut bool
	SpawnErr error
}

// Invoker runs a prepared workspace inside the sandbox and reports the raw
// outcome. The caller resolves the language profile and creates the
// workspace first, so an invalid request never reaches an Invoker.
//
// Implementations must be safe for concurrent use, spawn at most one
// container per call, and guarantee the container does not survive the call
// on any path — on timeout it must be actively killed before Run returns.
type Invoker interface {
	Run(ctx context.Context, ws *workspace.Workspace, profile language.Profile, timeout time.Duration) Outcome
}

// Kind discriminates the closed set of execution results.
type Kind int

const (
	// KindSuccess: the program exited 0.
	KindSuccess Kind = iota
	// KindRuntimeFailure: the program exited non-zero. Compile errors for
	// compiled languages land here too — compile and run share one container
	// lifecycle, so a failed compile is just a non-zero exit.
	KindRuntimeFailure
	// KindTimeout: the wall-clock budget expired and the container was killed.
	KindTimeout
	// KindToolingUnavailable: the container runtime is unreachable or
	// misconfigured. An operator problem, not a user-code problem.
	KindToolingUnavailable
	// KindInternalError: a host-side fault, e.g. the workspace could not be
	// written.
	KindInternalError
)

// String returns the kind's name, used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRuntimeFailure:
		return "runtime_failure"
	case KindTimeout:
		return "timeout"
	case KindToolingUnavailable:
		return "tooling_unavailable"
	default:
		return "internal_error"
	}
}

// Result is a classified execution result.
type Result struct {
	Kind        Kind
	Output      string
	Elapsed     time.Duration
	Fingerprint string
}

// Success reports whether the execution completed with exit code 0.
func (r Result) Success() bool { return r.Kind == KindSuccess }

// Seconds returns the elapsed time in seconds at millisecond precision,
// which is what the API exposes (three decimals).
func (r Result) Seconds() float64 {
	return float64(r.Elapsed.Round(time.Millisecond)) / float64(time.Second)
}

// Fingerprint returns an 8-hex-character digest of the submitted source.
// It is a pure function of the code, used only to correlate log and stats
// entries — never as a security or uniqueness guarantee.
func Fingerprint(code []byte) string {
	sum := md5.Sum(code)
	return hex.EncodeToString(sum[:])[:8]
}
