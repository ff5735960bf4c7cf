// Package docker implements the sandbox invoker on top of the Docker
// daemon, via the official SDK.
//
// Every call runs exactly one ephemeral container: create, start, stream
// logs, wait, force-remove. Isolation is delegated to Docker's namespace
// and cgroup primitives — the invoker's job is to build a hardened
// invocation, hold the wall-clock deadline, and make sure nothing (process
// or container) survives the call.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sufal6785/agentbox/internal/executor"
	"github.com/sufal6785/agentbox/internal/language"
	"github.com/sufal6785/agentbox/internal/workspace"
)

// tmpfsSpec is the writable scratch space inside the container. The
// workspace mount is read-only, so compile artifacts and caches land here.
const tmpfsSpec = "rw,exec,nosuid,size=64m"

// Invoker runs code in one-shot sandboxed Docker containers.
type Invoker struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
}

var _ executor.Invoker = (*Invoker)(nil)

// New creates an Invoker connected to the local Docker daemon. When
// cfg.PullOnStart is set it also pulls the image of every profile in the
// registry; a failed pull is logged and tolerated — the affected language
// will surface a spawn error at execution time instead.
func New(cfg Config, registry *language.Registry, logger *slog.Logger) (*Invoker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	inv := &Invoker{cli: cli, config: cfg, logger: logger}

	if cfg.PullOnStart {
		for _, p := range registry.List() {
			if err := inv.pullImage(p.Image); err != nil {
				logger.Warn("failed to pull sandbox image",
					slog.String("image", p.Image),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return inv, nil
}

// Close releases the Docker client.
func (inv *Invoker) Close() error {
	return inv.cli.Close()
}

// Ping reports whether the Docker daemon is reachable. Used by the health
// endpoint to tell infrastructure problems apart from user-code failures.
func (inv *Invoker) Ping(ctx context.Context) error {
	_, err := inv.cli.Ping(ctx)
	return err
}

func (inv *Invoker) pullImage(ref string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	inv.logger.Info("ensuring sandbox image is available", slog.String("image", ref))
	reader, err := inv.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	// Drain to block until the pull completes.
	_, err = io.Copy(io.Discard, reader)
	return err
}

// Run executes the profile's command in a fresh container with the
// workspace mounted read-only, enforcing the wall-clock timeout.
//
// The returned outcome has exactly one of three shapes: SpawnErr set (the
// container never ran), TimedOut (deadline expired, container killed), or a
// normal exit with ExitCode filled in. Run never returns while the
// container is still alive: the deferred force-remove kills whatever the
// timeout path didn't.
func (inv *Invoker) Run(ctx context.Context, ws *workspace.Workspace, profile language.Profile, timeout time.Duration) executor.Outcome {
	start := time.Now()
	var out executor.Outcome

	id, err := inv.createContainer(ctx, ws, profile)
	if err != nil {
		out.SpawnErr = fmt.Errorf("creating container: %w", err)
		out.Elapsed = time.Since(start)
		return out
	}

	// Remove the container no matter how this call ends. Force also kills a
	// still-running process, so even a failed kill below cannot leak one.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := inv.cli.ContainerRemove(cleanupCtx, id, container.RemoveOptions{Force: true}); err != nil {
			inv.logger.Error("failed to remove container",
				slog.String("id", id), slog.String("error", err.Error()))
		}
	}()

	if err := inv.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		out.SpawnErr = fmt.Errorf("starting container: %w", err)
		out.Elapsed = time.Since(start)
		return out
	}

	// Stream logs while the container runs so partial output survives a
	// timeout kill. stdcopy demultiplexes the combined stream back into
	// stdout and stderr.
	var stdout, stderr bytes.Buffer
	logsDone := make(chan struct{})
	go func() {
		defer close(logsDone)
		rc, err := inv.cli.ContainerLogs(ctx, id, container.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Follow:     true,
		})
		if err != nil {
			return
		}
		defer rc.Close()
		_, _ = stdcopy.StdCopy(&stdout, &stderr, rc)
	}()

	waitCh, waitErrCh := inv.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case body := <-waitCh:
		out.ExitCode = int(body.StatusCode)

	case err := <-waitErrCh:
		// Lost the daemon mid-wait. The deferred remove still runs.
		out.SpawnErr = fmt.Errorf("waiting for container: %w", err)

	case <-timer.C:
		out.TimedOut = true
		inv.kill(id)

	case <-ctx.Done():
		// Caller gave up; same guarantee as a deadline expiry.
		out.TimedOut = true
		inv.kill(id)
	}

	// Only read the buffers once the streaming goroutine has finished.
	select {
	case <-logsDone:
		out.Stdout = stdout.String()
		out.Stderr = stderr.String()
	case <-time.After(2 * time.Second):
		inv.logger.Warn("log stream did not drain, dropping output", slog.String("id", id))
	}

	out.Elapsed = time.Since(start)
	return out
}

// createContainer builds the hardened container invocation. None of the
// security settings are derived from the request — a caller cannot relax
// them.
func (inv *Invoker) createContainer(ctx context.Context, ws *workspace.Workspace, profile language.Profile) (string, error) {
	pids := inv.config.PidsLimit

	hostConfig := &container.HostConfig{
		Binds:       []string{ws.Root() + ":" + language.MountPath + ":ro"},
		NetworkMode: "none",
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
		Tmpfs:       map[string]string{"/tmp": tmpfsSpec},
		Resources: container.Resources{
			Memory:     inv.config.MemoryLimit,
			MemorySwap: inv.config.MemoryLimit, // swap disabled
			NanoCPUs:   int64(inv.config.CPULimit * 1e9),
			PidsLimit:  &pids,
		},
	}

	resp, err := inv.cli.ContainerCreate(ctx, &container.Config{
		Image:           profile.Image,
		Cmd:             profile.Command,
		WorkingDir:      language.MountPath,
		NetworkDisabled: true,
		Tty:             false,
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", err
	}

	return resp.ID, nil
}

// kill terminates a running container immediately. Auto-removal alone does
// not stop a still-running process, so the timeout path sends SIGKILL
// explicitly before Run returns.
func (inv *Invoker) kill(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := inv.cli.ContainerKill(ctx, id, "KILL"); err != nil {
		inv.logger.Error("failed to kill timed-out container",
			slog.String("id", id), slog.String("error", err.Error()))
	}
}
