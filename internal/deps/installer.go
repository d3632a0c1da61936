// Package deps verifies and installs the provisioning tools the backend
// container needs at runtime.
package deps

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

// RequiredTools is the fixed set the backend container must have before it
// can provision rollups.
var RequiredTools = []string{"aws", "terraform", "kubectl", "helm"}

// installScriptURL is fetched at install time and treated as an opaque
// executable.
const installScriptURL = "https://raw.githubusercontent.com/tokamak-network/trh-platform/main/scripts/install-dependencies.sh"

// installDir is where the install script drops tool binaries; each one gets
// a symlink into /usr/local/bin afterwards.
const installDir = "/opt/trh/bin"

const installTimeout = 15 * time.Minute

// Execer runs commands inside the backend container.
type Execer interface {
	Exec(ctx context.Context, container string, command []string) (string, error)
	ExecStream(ctx context.Context, container string, command []string, timeout time.Duration, onLine func(string)) error
}

type Installer struct {
	exec      Execer
	container string
}

func NewInstaller(exec Execer, container string) *Installer {
	return &Installer{exec: exec, container: container}
}

// Check probes all required tools concurrently and joins the results. A
// failed probe marks that tool as missing; it never fails the whole check.
func (i *Installer) Check(ctx context.Context) domain.DependencySet {
	set := make(domain.DependencySet, len(RequiredTools))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, tool := range RequiredTools {
		tool := tool
		g.Go(func() error {
			_, err := i.exec.Exec(ctx, i.container, []string{"which", tool})
			mu.Lock()
			set[tool] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Debug("Dependency check complete", "missing", set.Missing())
	return set
}

// Install downloads and runs the remote install script inside the backend
// container, streaming step-marker lines to onProgress, then best-effort
// symlinks each tool onto the container's search path. The subsequent
// re-check is the real verification; symlink failures are ignored.
func (i *Installer) Install(ctx context.Context, onProgress func(line string)) error {
	// Non-interactive frontend and a fixed timezone keep the script's apt
	// prompts from hanging the subprocess.
	script := "export DEBIAN_FRONTEND=noninteractive TZ=UTC && " +
		"curl -fsSL " + installScriptURL + " | bash"

	err := i.exec.ExecStream(ctx, i.container, []string{"bash", "-lc", script}, installTimeout, func(line string) {
		if onProgress == nil {
			return
		}
		if isStepMarker(line) {
			onProgress(strings.TrimSpace(line))
		}
	})
	if err != nil {
		return domain.WrapErr(domain.TransientInfraError, err, "dependency install script failed")
	}

	for _, tool := range RequiredTools {
		link := "ln -sf " + installDir + "/" + tool + " /usr/local/bin/" + tool
		if _, err := i.exec.Exec(ctx, i.container, []string{"sh", "-c", link}); err != nil {
			log.Debug("Symlink skipped", "tool", tool, "error", err)
		}
	}
	return nil
}

// isStepMarker keeps progress output down to the script's own step
// announcements instead of the full apt/curl firehose.
func isStepMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "==>") ||
		strings.HasPrefix(trimmed, "[install]") ||
		strings.HasPrefix(trimmed, "Installing")
}
