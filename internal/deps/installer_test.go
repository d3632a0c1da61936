package deps

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

// fakeExecer simulates the backend container: `which` answers from the
// installed set, the install script installs everything.
type fakeExecer struct {
	mu        sync.Mutex
	installed map[string]bool
	execErr   error
	linkErr   bool
	commands  [][]string
}

func (f *fakeExecer) Exec(ctx context.Context, container string, command []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)

	if f.execErr != nil {
		return "", f.execErr
	}
	if f.linkErr && len(command) > 0 && command[0] == "sh" {
		return "", domain.E(domain.TransientInfraError, "ln: permission denied")
	}
	if len(command) == 2 && command[0] == "which" {
		if f.installed[command[1]] {
			return "/usr/local/bin/" + command[1], nil
		}
		return "", domain.E(domain.TransientInfraError, "which: no %s", command[1])
	}
	return "", nil
}

func (f *fakeExecer) ExecStream(ctx context.Context, container string, command []string, timeout time.Duration, onLine func(string)) error {
	onLine("==> Installing aws")
	onLine("Reading package lists...") // filtered out
	onLine("==> Installing terraform")
	f.mu.Lock()
	for _, tool := range RequiredTools {
		f.installed[tool] = true
	}
	f.mu.Unlock()
	return nil
}

func TestCheck_ReportsEachToolIndependently(t *testing.T) {
	exec := &fakeExecer{installed: map[string]bool{"aws": true, "kubectl": true}}
	installer := NewInstaller(exec, "trh-backend")

	set := installer.Check(context.Background())
	require.Len(t, set, len(RequiredTools))
	assert.True(t, set["aws"])
	assert.True(t, set["kubectl"])
	assert.False(t, set["terraform"])
	assert.False(t, set["helm"])
	assert.False(t, set.AllInstalled())
}

// A failing probe marks the tool missing instead of failing the check.
func TestCheck_ProbeFailureIsNotFatal(t *testing.T) {
	exec := &fakeExecer{installed: map[string]bool{}, execErr: domain.E(domain.TransientInfraError, "exec broken")}
	installer := NewInstaller(exec, "trh-backend")

	set := installer.Check(context.Background())
	require.Len(t, set, len(RequiredTools))
	assert.False(t, set.AllInstalled())
}

func TestInstall_StreamsStepMarkersOnly(t *testing.T) {
	exec := &fakeExecer{installed: map[string]bool{}}
	installer := NewInstaller(exec, "trh-backend")

	var progress []string
	err := installer.Install(context.Background(), func(line string) {
		progress = append(progress, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"==> Installing aws", "==> Installing terraform"}, progress)

	set := installer.Check(context.Background())
	assert.True(t, set.AllInstalled())
}

// Symlink creation is best-effort; a failing ln must not fail the install.
func TestInstall_SymlinkFailuresSwallowed(t *testing.T) {
	exec := &fakeExecer{installed: map[string]bool{}, linkErr: true}
	installer := NewInstaller(exec, "trh-backend")

	require.NoError(t, installer.Install(context.Background(), nil))

	linkAttempts := 0
	exec.mu.Lock()
	for _, cmd := range exec.commands {
		if len(cmd) > 0 && cmd[0] == "sh" && strings.Contains(strings.Join(cmd, " "), "ln -sf") {
			linkAttempts++
		}
	}
	exec.mu.Unlock()
	assert.Equal(t, len(RequiredTools), linkAttempts)
}
