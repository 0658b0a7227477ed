package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/lucasnoah/changegate/internal/config"
)

// managedLabel marks containers owned by this tool so cleanup never touches
// anything else.
const managedLabel = "changegate.managed=true"

// DockerRunner provides docker commands. Interface for testing.
type DockerRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecDocker implements DockerRunner using the docker CLI.
type ExecDocker struct{}

func (d *ExecDocker) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("docker %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Manager drives isolated container environments for patch application and
// check execution.
type Manager struct {
	docker DockerRunner
	cfg    config.Sandbox
}

// NewManager creates a sandbox manager.
func NewManager(docker DockerRunner, cfg config.Sandbox) *Manager {
	return &Manager{docker: docker, cfg: cfg}
}

// Info describes one managed container.
type Info struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Create starts a fresh sandbox and copies the repository into it. The
// container idles until Exec is called and has no network.
func (m *Manager) Create(ctx context.Context, runID, repoPath string) (string, error) {
	args := []string{
		"run", "-d",
		"--label", managedLabel,
		"--name", "changegate-" + strings.ToLower(runID),
		"--workdir", m.cfg.Workdir,
	}
	if m.cfg.MemoryLimit != "" {
		args = append(args, "--memory", m.cfg.MemoryLimit)
	}
	if m.cfg.CPULimit != "" {
		args = append(args, "--cpus", m.cfg.CPULimit)
	}
	if m.cfg.NetworkDisabled {
		args = append(args, "--network", "none")
	}
	args = append(args, m.cfg.Image, "sleep", "infinity")

	id, err := m.docker.Run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}

	if repoPath != "" {
		src := strings.TrimSuffix(repoPath, "/") + "/."
		if _, err := m.docker.Run(ctx, "cp", src, id+":"+m.cfg.Workdir); err != nil {
			m.Remove(ctx, id)
			return "", fmt.Errorf("copy repo into sandbox: %w", err)
		}
	}

	return id, nil
}

// Exec runs a command inside the sandbox and returns combined output.
func (m *Manager) Exec(ctx context.Context, id string, cmd ...string) (string, error) {
	args := append([]string{"exec", id}, cmd...)
	return m.docker.Run(ctx, args...)
}

// CopyTo copies a local file into the sandbox.
func (m *Manager) CopyTo(ctx context.Context, id, localPath, containerPath string) error {
	if _, err := m.docker.Run(ctx, "cp", localPath, id+":"+containerPath); err != nil {
		return fmt.Errorf("copy into sandbox: %w", err)
	}
	return nil
}

// CopyFrom copies a file out of the sandbox.
func (m *Manager) CopyFrom(ctx context.Context, id, containerPath, localPath string) error {
	if _, err := m.docker.Run(ctx, "cp", id+":"+containerPath, localPath); err != nil {
		return fmt.Errorf("copy from sandbox: %w", err)
	}
	return nil
}

// Stop stops a running sandbox.
func (m *Manager) Stop(ctx context.Context, id string) error {
	if _, err := m.docker.Run(ctx, "stop", id); err != nil {
		return fmt.Errorf("stop sandbox: %w", err)
	}
	return nil
}

// Remove force-removes a sandbox.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if _, err := m.docker.Run(ctx, "rm", "-f", id); err != nil {
		return fmt.Errorf("remove sandbox: %w", err)
	}
	return nil
}

// List returns all managed containers, running or not.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	out, err := m.docker.Run(ctx, "ps", "-a",
		"--filter", "label="+managedLabel,
		"--format", "{{.ID}}\t{{.Names}}\t{{.Status}}")
	if err != nil {
		return nil, fmt.Errorf("list sandboxes: %w", err)
	}

	var infos []Info
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		info := Info{ID: parts[0]}
		if len(parts) > 1 {
			info.Name = parts[1]
		}
		if len(parts) > 2 {
			info.Status = parts[2]
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Cleanup removes every managed container and reports how many were
// removed. A failure on one container does not stop the others.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	infos, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	var firstErr error
	for _, info := range infos {
		if err := m.Remove(ctx, info.ID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
