package docker

// Config holds the resource ceilings applied to every sandbox container.
//
// The security posture itself (no network, all capabilities dropped,
// no-new-privileges, read-only workspace mount) is fixed in code and is not
// configurable — a request must never be able to relax it. Only the numeric
// ceilings live here so operators can tune them per deployment.
type Config struct {
	// MemoryLimit is the container memory ceiling in bytes. Swap is pinned
	// to the same value, which disables it.
	MemoryLimit int64
	// CPULimit is the fraction of a CPU the container may use.
	CPULimit float64
	// PidsLimit caps the number of processes, stopping fork bombs.
	PidsLimit int64
	// PullOnStart pulls every registry image when the invoker is created,
	// so the first request per language doesn't pay the pull latency.
	PullOnStart bool
}

// DefaultConfig returns the reference sandbox limits.
func DefaultConfig() Config {
	return Config{
		MemoryLimit: 128 * 1024 * 1024, // 128 MiB
		CPULimit:    0.5,
		PidsLimit:   64,
		PullOnStart: true,
	}
}
