// Package language holds the static catalog of supported languages.
//
// Each supported language is described by a Profile: which Docker image to
// run, what the source file is called, and the command that builds and runs
// it. The catalog is assembled once at startup and never mutated afterwards,
// so it is safe to share across concurrent executions without locking.
//
// Adding a language means adding one Profile to defaultProfiles — nothing
// else in the codebase needs to change.
package language

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedLanguage is returned by Resolve for unknown language IDs.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// MountPath is where the workspace directory is bind-mounted inside the
// container. The mount is read-only; compiled languages write their
// artifacts to /tmp, which is a writable tmpfs.
const MountPath = "/workspace"

// Profile describes how to build and run code for one language.
//
// Interpreted languages invoke the interpreter directly on the mounted
// source file. Compiled languages use a single compound shell command that
// compiles and then runs inside one container lifecycle — a compile error
// surfaces as a non-zero exit of the same container rather than a separate
// failure mode, and we pay container startup latency only once.
type Profile struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"` // canonical source filename inside the workspace
	Image    string   `json:"image"`    // Docker image reference
	Command  []string `json:"-"`        // full container command (build + run)
}

// Registry maps language IDs to their profiles.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds a registry with the default language catalog.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range defaultProfiles() {
		r.profiles[p.ID] = p
	}
	return r
}

// Resolve returns the profile for the given language ID.
func (r *Registry) Resolve(id string) (Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, id)
	}
	return p, nil
}

// List returns all profiles sorted by ID, for the /api/languages endpoint.
func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func defaultProfiles() []Profile {
	return []Profile{
		{
			ID:       "python",
			Filename: "code.py",
			Image:    "python:3.12-slim",
			Command:  []string{"python", MountPath + "/code.py"},
		},
		{
			ID:       "javascript",
			Filename: "code.js",
			Image:    "node:20-slim",
			Command:  []string{"node", MountPath + "/code.js"},
		},
		{
			ID:       "cpp",
			Filename: "code.cpp",
			Image:    "gcc:13",
			// The workspace is read-only, so the binary goes to /tmp.
			Command: []string{"bash", "-c",
				"g++ -O2 -o /tmp/code.out " + MountPath + "/code.cpp && /tmp/code.out"},
		},
		{
			ID:       "java",
			Filename: "Main.java",
			Image:    "openjdk:17-slim",
			Command: []string{"bash", "-c",
				"javac -d /tmp " + MountPath + "/Main.java && java -cp /tmp Main"},
		},
		{
			ID:       "go",
			Filename: "main.go",
			Image:    "golang:1.22-alpine",
			// go run needs a writable build cache.
			Command: []string{"sh", "-c",
				"GOCACHE=/tmp/gocache GOPATH=/tmp/gopath go run " + MountPath + "/main.go"},
		},
	}
}
