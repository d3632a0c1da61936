package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

const (
	pullTimeout   = 10 * time.Minute
	upDownTimeout = 120 * time.Second
	statusTimeout = 30 * time.Second

	// runningThreshold is how many containers must report "running" before
	// the stack counts as up.
	runningThreshold = 3
)

// containerRecord is one JSON record from `docker compose ps --format json`.
type containerRecord struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
}

func (g *Gateway) composeArgs(rest ...string) []string {
	args := []string{"compose", "-f", g.composeFile, "-p", g.project}
	return append(args, rest...)
}

// Status derives the current StackStatus. It is recomputed on every call
// and never cached; parse failures on individual records are skipped, while
// a total parse failure yields ContainersUp=false with the error attached.
func (g *Gateway) Status(ctx context.Context) domain.StackStatus {
	var status domain.StackStatus

	if !g.VersionCheck(ctx) {
		status.LastError = "docker is not installed or too old"
		return status
	}
	status.DaemonInstalled = true

	if !g.DaemonCheck(ctx) {
		status.LastError = "docker daemon is not running"
		return status
	}
	status.DaemonRunning = true

	res, err := g.run(ctx, statusTimeout, "compose ps", g.composeArgs("ps", "--format", "json")...)
	if err != nil {
		status.LastError = fmt.Sprintf("status query failed: %s", explain(err, res))
		return status
	}

	records, parseErr := parseStatusRecords(res.stdout)
	if parseErr != nil {
		status.LastError = fmt.Sprintf("could not parse container status: %v", parseErr)
		return status
	}

	running := 0
	healthy := true
	for _, rec := range records {
		if strings.EqualFold(rec.State, "running") {
			running++
		}
		// A container with no health probe configured counts as healthy.
		if rec.Health != "" && !strings.EqualFold(rec.Health, "healthy") {
			healthy = false
		}
	}

	status.ContainersUp = running >= runningThreshold
	status.AllHealthy = status.ContainersUp && healthy
	return status
}

// parseStatusRecords accepts both encodings compose has shipped: one JSON
// object per line, and a single JSON array. Individual bad lines are
// skipped; an error is returned only when nothing could be parsed from
// non-empty output.
func parseStatusRecords(out string) ([]containerRecord, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []containerRecord
		if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var records []containerRecord
	var lastErr error
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec containerRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			lastErr = err
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return records, nil
}

// Pull fetches the stack's images, streaming each output line to
// onProgress. Lines shaped like "<service> <status text>" are split into
// source and status; everything else is forwarded with an empty service.
func (g *Gateway) Pull(ctx context.Context, onProgress func(service, statusText string)) error {
	res, err := g.stream(ctx, pullTimeout, "compose pull", func(line string) {
		if onProgress == nil {
			return
		}
		service, text := splitPullLine(line, g.services)
		onProgress(service, text)
	}, g.composeArgs("pull")...)

	if err != nil {
		if domain.KindOf(err) == domain.TransientInfraError {
			return domain.WrapErr(domain.TransientInfraError, err,
				"image pull did not finish within %s; check your network connection", pullTimeout)
		}
		return domain.WrapErr(domain.TransientInfraError, err,
			"image pull failed: %s", tail(res.stderr))
	}
	return nil
}

// splitPullLine extracts "<service> <status>" when the first token is a
// known service name.
func splitPullLine(line string, services map[string]bool) (string, string) {
	fields := strings.Fields(line)
	if len(fields) >= 2 && services[fields[0]] {
		return fields[0], strings.Join(fields[1:], " ")
	}
	return "", strings.TrimSpace(line)
}

// Up starts the stack detached. Failures are classified by stderr content
// so the orchestrator can decide between port remediation, user-facing
// environment errors, and plain failure.
func (g *Gateway) Up(ctx context.Context, env map[string]string) error {
	args := g.composeArgs("up", "-d", "--no-recreate")

	res, err := g.runWithEnv(ctx, upDownTimeout, "compose up", env, args...)
	if err == nil {
		return nil
	}
	if domain.KindOf(err) == domain.TransientInfraError {
		return err
	}
	return classifyUpError(res.stderr, res.exitCode)
}

// classifyUpError maps known stderr substrings onto the error taxonomy.
func classifyUpError(stderr string, exitCode int) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "port is already allocated"),
		strings.Contains(lower, "address already in use"),
		strings.Contains(lower, "bind for"):
		return domain.E(domain.ConflictError,
			"a required port is already in use by another process")
	case strings.Contains(lower, "no such image"),
		strings.Contains(lower, "manifest unknown"),
		strings.Contains(lower, "pull access denied"),
		strings.Contains(lower, "not found: manifest"):
		return domain.E(domain.EnvironmentError,
			"a stack image is missing locally and could not be pulled")
	case strings.Contains(lower, "cannot connect to the docker daemon"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "is the docker daemon running"):
		return domain.E(domain.EnvironmentError,
			"the docker daemon became unreachable")
	default:
		return domain.E(domain.TransientInfraError,
			"container start failed (exit code %d): %s", exitCode, tail(stderr))
	}
}

// Down stops the stack. A clean exit and a terminated-by-signal exit both
// count as success so a best-effort teardown can never fail the shutdown
// sequence.
func (g *Gateway) Down(ctx context.Context) error {
	res, err := g.run(ctx, upDownTimeout, "compose down", g.composeArgs("down")...)
	if err == nil {
		return nil
	}
	if downExitOK(res.exitCode) {
		log.Debug("compose down exited abnormally, treating as stopped", "exit_code", res.exitCode)
		return nil
	}
	return domain.WrapErr(domain.TransientInfraError, err, "failed to stop the stack: %s", tail(res.stderr))
}

// downExitOK accepts exit 0 and the -1 Go reports for a process ended by a
// signal rather than an exit call.
func downExitOK(exitCode int) bool {
	return exitCode == 0 || exitCode == -1
}

// runWithEnv is run with extra environment variables appended for the child
// process only.
func (g *Gateway) runWithEnv(ctx context.Context, timeout time.Duration, source string, env map[string]string, args ...string) (result, error) {
	if len(env) == 0 {
		return g.run(ctx, timeout, source, args...)
	}
	extra := os.Environ()
	for k, v := range env {
		extra = append(extra, k+"="+v)
	}
	return g.runEnv(ctx, timeout, source, extra, args...)
}

// explain renders a short human explanation from an error plus captured
// output for status details.
func explain(err error, res result) string {
	if s := tail(res.stderr); s != "" {
		return s
	}
	return err.Error()
}

// tail returns the last non-empty line of captured stderr, which is almost
// always the actual complaint.
func tail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
