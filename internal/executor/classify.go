package executor

import (
	"fmt"
	"strings"
	"time"
)

// Classify maps a raw container outcome to a typed result. It is total over
// every outcome shape and pure — no I/O, no side effects.
//
// Precedence: a spawn error means nothing ran, so it wins over everything;
// a timeout wins over whatever exit code the kill produced; only then is the
// exit code consulted.
func Classify(out Outcome, req Request) Result {
	res := Result{
		Elapsed:     out.Elapsed.Round(time.Millisecond),
		Fingerprint: Fingerprint(req.Code),
	}

	switch {
	case out.SpawnErr != nil:
		res.Kind = KindToolingUnavailable
		res.Output = "Docker is not available. Code execution is temporarily disabled."

	case out.TimedOut:
		res.Kind = KindTimeout
		res.Output = fmt.Sprintf("Execution timed out after %d seconds",
			int(req.Timeout.Seconds()))

	case out.ExitCode == 0:
		res.Kind = KindSuccess
		res.Output = strings.TrimSpace(out.Stdout)
		if res.Output == "" {
			res.Output = "Execution completed (no output)"
		}

	default:
		res.Kind = KindRuntimeFailure
		res.Output = strings.TrimSpace(
			fmt.Sprintf("Error (Code %d):\n%s", out.ExitCode, out.Stderr))
	}

	return res
}
