// Package docker drives the Docker CLI and its compose plugin as an opaque
// command-line tool. It is the single point of truth for locating the
// binary, spawning subprocesses, and translating their failures into typed
// errors; nothing above this package sees raw exit codes or signals.
package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

// LogSink receives every raw output line the gateway's subprocesses
// produce. Process-wide; at most one sink is registered at a time.
type LogSink func(source, line string)

var (
	sinkMu  sync.RWMutex
	logSink LogSink
)

// SetLogSink registers the process-wide sink. Passing nil unregisters it.
func SetLogSink(sink LogSink) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	logSink = sink
}

func emitLine(source, line string) {
	sinkMu.RLock()
	sink := logSink
	sinkMu.RUnlock()
	if sink != nil {
		sink(source, line)
	}
}

// wellKnownPaths are checked in order before falling back to the invoking
// shell's search path. Desktop installs frequently leave PATH untouched, so
// relying on PATH alone fails on freshly set up machines.
var wellKnownPaths = []string{
	"/usr/local/bin/docker",
	"/usr/bin/docker",
	"/opt/homebrew/bin/docker",
	"/Applications/Docker.app/Contents/Resources/bin/docker",
}

func locateBinary() string {
	for _, path := range wellKnownPaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return "docker"
}

// Gateway is the sole interface to the container runtime. Besides the
// in-flight subprocess registry it holds no mutable state.
type Gateway struct {
	bin         string
	composeFile string
	project     string
	minVersion  string
	services    map[string]bool

	mu    sync.Mutex
	procs map[int]*exec.Cmd
}

// New builds a gateway bound to one compose definition. services is the
// fixed list of service names the definition declares; it is only used to
// attribute pull progress lines to their source.
func New(composeFile, project string, services []string) *Gateway {
	bin := locateBinary()
	log.Debug("Docker binary resolved", "path", bin)
	known := make(map[string]bool, len(services))
	for _, s := range services {
		known[s] = true
	}
	return &Gateway{
		bin:         bin,
		composeFile: composeFile,
		project:     project,
		minVersion:  minDockerVersion,
		services:    known,
		procs:       make(map[int]*exec.Cmd),
	}
}

func (g *Gateway) track(cmd *exec.Cmd) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.procs[cmd.Process.Pid] = cmd
}

func (g *Gateway) untrack(cmd *exec.Cmd) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.procs, cmd.Process.Pid)
}

// Shutdown terminates every in-flight subprocess: graceful signal first,
// forceful kill after a grace period. Called once on app exit.
func (g *Gateway) Shutdown(grace time.Duration) {
	g.mu.Lock()
	procs := make([]*exec.Cmd, 0, len(g.procs))
	for _, cmd := range g.procs {
		procs = append(procs, cmd)
	}
	g.mu.Unlock()

	if len(procs) == 0 {
		return
	}
	log.Warn("Terminating in-flight docker subprocesses", "count", len(procs))
	for _, cmd := range procs {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}
	time.Sleep(grace)

	// Anything still tracked did not exit on SIGTERM.
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, cmd := range g.procs {
		_ = cmd.Process.Kill()
	}
}

// result carries everything run captures from one subprocess.
type result struct {
	stdout   string
	stderr   string
	exitCode int
}

// run executes the docker binary with a bounded timeout and captures
// stdout/stderr separately. Every line of both streams is forwarded to the
// registered log sink. A non-zero exit is returned as an error alongside
// the captured output so callers can classify it.
func (g *Gateway) run(ctx context.Context, timeout time.Duration, source string, args ...string) (result, error) {
	return g.runEnv(ctx, timeout, source, nil, args...)
}

// runEnv is run with an explicit child environment (nil inherits ours).
func (g *Gateway) runEnv(ctx context.Context, timeout time.Duration, source string, env []string, args ...string) (result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.bin, args...)
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdout, lineWriter(source))
	cmd.Stderr = io.MultiWriter(&stderr, lineWriter(source))

	if err := cmd.Start(); err != nil {
		return result{exitCode: -1}, fmt.Errorf("start %s: %w", source, err)
	}
	g.track(cmd)
	err := cmd.Wait()
	g.untrack(cmd)

	res := result{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: cmd.ProcessState.ExitCode(),
	}
	if ctx.Err() == context.DeadlineExceeded {
		return res, domain.E(domain.TransientInfraError, "%s timed out after %s", source, timeout)
	}
	return res, err
}

// stream executes the docker binary forwarding combined output line by line
// to onLine (and the log sink) as it is produced, instead of buffering it.
func (g *Gateway) stream(ctx context.Context, timeout time.Duration, source string, onLine func(string), args ...string) (result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.bin, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	var stderrTail bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			stderrTail.WriteString(line + "\n")
			if stderrTail.Len() > 16*1024 {
				stderrTail.Next(stderrTail.Len() - 16*1024)
			}
			emitLine(source, line)
			if onLine != nil {
				onLine(line)
			}
		}
	}()

	if err := cmd.Start(); err != nil {
		pw.Close()
		return result{exitCode: -1}, fmt.Errorf("start %s: %w", source, err)
	}
	g.track(cmd)
	err := cmd.Wait()
	g.untrack(cmd)
	pw.Close()
	wg.Wait()

	res := result{
		stderr:   stderrTail.String(),
		exitCode: cmd.ProcessState.ExitCode(),
	}
	if ctx.Err() == context.DeadlineExceeded {
		return res, domain.E(domain.TransientInfraError, "%s timed out after %s", source, timeout)
	}
	return res, err
}

// lineWriter splits a subprocess stream into lines for the log sink.
func lineWriter(source string) io.Writer {
	return &sinkWriter{source: source}
}

type sinkWriter struct {
	source string
	buf    bytes.Buffer
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line; put it back and wait for more.
			w.buf.WriteString(line)
			break
		}
		emitLine(w.source, trimNewline(line))
	}
	return len(p), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
