package docker

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
)

const (
	checkTimeout = 30 * time.Second

	// Compose v2 ships as a plugin from this client version onward; older
	// installs would fail every compose invocation with a confusing error.
	minDockerVersion = "20.10.13"
)

// VersionCheck reports whether a usable docker binary is installed. Missing
// binary, non-zero exit, a timeout, or a client older than the supported
// minimum all report false; this never returns an error to the caller.
func (g *Gateway) VersionCheck(ctx context.Context) bool {
	res, err := g.run(ctx, checkTimeout, "docker version", "version", "--format", "{{.Client.Version}}")
	if err != nil {
		log.Debug("Docker version check failed", "error", err, "stderr", strings.TrimSpace(res.stderr))
		return false
	}

	raw := strings.TrimSpace(res.stdout)
	installed, err := semver.NewVersion(raw)
	if err != nil {
		// Unparseable version string; the binary answered, assume usable.
		log.Warn("Could not parse docker client version", "version", raw)
		return true
	}
	minimum := semver.MustParse(g.minVersion)
	if installed.LessThan(minimum) {
		log.Error("Docker client too old", "installed", raw, "minimum", g.minVersion)
		return false
	}
	return true
}

// DaemonCheck reports whether the background daemon is reachable. Uses the
// info query, which only succeeds against a running daemon.
func (g *Gateway) DaemonCheck(ctx context.Context) bool {
	res, err := g.run(ctx, checkTimeout, "docker info", "info", "--format", "{{.ServerVersion}}")
	if err != nil {
		log.Debug("Docker daemon check failed", "error", err, "stderr", strings.TrimSpace(res.stderr))
		return false
	}
	return strings.TrimSpace(res.stdout) != ""
}
