// Package setup sequences the guarded steps that take a machine from
// nothing running to a fully healthy stack: docker check, image pull, port
// resolution, container start, dependency install, health check.
package setup

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
	"github.com/tokamak-network/trh-platform-desktop/internal/events"
)

// Publisher pushes transient progress events onto the app's event bus.
type Publisher interface {
	Publish(event events.Event) error
}

// ErrRunActive is returned when a start or retry command arrives while a
// run is in flight. Requests are rejected, never queued.
var ErrRunActive = errors.New("a setup operation is already in progress")

const (
	// startAttempts bounds the port-resolution/start loop.
	startAttempts = 3
	// healthTimeout is how long the final health check may take.
	healthTimeout = 180 * time.Second
	// dependencySettle is the pause between running the install script and
	// the single re-check.
	dependencySettle = 3 * time.Second
	// pullCap is where artificial pull progress parks until the subprocess
	// exits cleanly. Pull output is unstructured per-layer text, so the
	// percentage is a heuristic, not a transfer count.
	pullCap = 95.0
)

// Options tune the orchestrator; zero values take the defaults above.
type Options struct {
	HealthTimeout    time.Duration
	DependencySettle time.Duration
}

// Orchestrator owns the setup pipeline. At most one run is active at a
// time; the busy flag is acquired first and released on every exit path.
type Orchestrator struct {
	gw        RuntimeGateway
	ports     PortProber
	health    HealthWaiter
	deps      DependencyManager
	presenter Presenter

	requirements []domain.PortRequirement
	env          map[string]string
	opts         Options

	busy atomic.Bool
	pub  Publisher

	mu    sync.Mutex
	runID string
	steps map[domain.StepID]*domain.Step
}

func New(gw RuntimeGateway, ports PortProber, health HealthWaiter, deps DependencyManager, presenter Presenter, requirements []domain.PortRequirement, env map[string]string, opts Options) *Orchestrator {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = healthTimeout
	}
	if opts.DependencySettle <= 0 {
		opts.DependencySettle = dependencySettle
	}
	o := &Orchestrator{
		gw:           gw,
		ports:        ports,
		health:       health,
		deps:         deps,
		presenter:    presenter,
		requirements: requirements,
		env:          env,
		opts:         opts,
		steps:        make(map[domain.StepID]*domain.Step, len(domain.StepOrder)),
	}
	for _, id := range domain.StepOrder {
		o.steps[id] = &domain.Step{ID: id}
	}
	return o
}

// SetPublisher attaches the event bus. Optional; without it progress events
// are delivered through the Presenter only.
func (o *Orchestrator) SetPublisher(pub Publisher) {
	o.pub = pub
}

func (o *Orchestrator) publish(event events.Event) {
	if o.pub != nil {
		_ = o.pub.Publish(event)
	}
}

// Steps returns a snapshot of every step in pipeline order.
func (o *Orchestrator) Steps() []domain.Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.Step, 0, len(domain.StepOrder))
	for _, id := range domain.StepOrder {
		out = append(out, *o.steps[id])
	}
	return out
}

// Run executes one full setup pass. A retry command calls Run again: every
// step resets to Pending and the pipeline restarts from the docker check,
// since daemon and container state may have changed in between. Returns
// ErrRunActive without touching the active run if one is in flight.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrRunActive
	}
	defer o.busy.Store(false)

	o.mu.Lock()
	o.runID = uuid.New().String()
	runID := o.runID
	o.mu.Unlock()
	log.Info("Setup run starting", "run_id", runID)

	// Fast-path: when the stack was left running from a previous session a
	// single status check short-circuits the whole pipeline.
	if status := o.gw.Status(ctx); status.AllHealthy {
		log.Info("Stack already healthy, skipping setup pipeline", "run_id", runID)
		o.resetSteps()
		for _, id := range domain.StepOrder {
			o.setStep(id, domain.StepSucceeded, "stack already running")
		}
		o.presenter.SetupDone()
		return nil
	}

	o.resetSteps()

	err := o.runPipeline(ctx)
	if err != nil {
		log.Error("Setup run failed", "run_id", runID, "kind", domain.KindOf(err).String(), "error", err)
		o.presenter.SetupFailed(err)
		return err
	}

	log.Info("Setup run complete", "run_id", runID)
	o.presenter.SetupDone()
	return nil
}

func (o *Orchestrator) runPipeline(ctx context.Context) error {
	if err := o.runDockerCheck(ctx); err != nil {
		return err
	}
	if err := o.runImagePull(ctx); err != nil {
		return err
	}
	if err := o.runContainerStart(ctx); err != nil {
		return err
	}
	if err := o.runDependencyInstall(ctx); err != nil {
		return err
	}
	return o.runHealthCheck(ctx)
}

func (o *Orchestrator) runDockerCheck(ctx context.Context) error {
	o.setStep(domain.StepDockerCheck, domain.StepRunning, "checking docker installation")

	if !o.gw.VersionCheck(ctx) {
		err := domain.E(domain.EnvironmentError,
			"Docker is not installed; install Docker Desktop from https://docs.docker.com/get-docker/ and retry")
		o.failStep(domain.StepDockerCheck, err)
		return err
	}
	if !o.gw.DaemonCheck(ctx) {
		err := domain.E(domain.EnvironmentError,
			"the Docker daemon is not running; start Docker and retry")
		o.failStep(domain.StepDockerCheck, err)
		return err
	}

	o.setStep(domain.StepDockerCheck, domain.StepSucceeded, "docker is installed and running")
	return nil
}

func (o *Orchestrator) runImagePull(ctx context.Context) error {
	o.setStep(domain.StepImagePull, domain.StepRunning, "pulling stack images")

	// Monotone percentage, asymptotic to the cap; forced to 100 only when
	// the subprocess exits cleanly.
	percent := 0.0
	err := o.gw.Pull(ctx, func(service, statusText string) {
		percent += (pullCap - percent) * 0.02
		detail := statusText
		if service != "" {
			detail = service + ": " + statusText
		}
		o.presenter.PullProgress(percent, detail)
	})
	if err != nil {
		o.failStep(domain.StepImagePull, err)
		return err
	}

	o.presenter.PullProgress(100, "images up to date")
	o.setStep(domain.StepImagePull, domain.StepSucceeded, "images pulled")
	return nil
}

// runContainerStart runs the port-resolution/start loop. Each attempt
// re-resolves ports first; only failures classified as port conflicts earn
// another attempt, anything else is terminal immediately.
func (o *Orchestrator) runContainerStart(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= startAttempts; attempt++ {
		if err := o.resolvePorts(ctx); err != nil {
			o.failStep(domain.StepContainerStart, err)
			return err
		}

		o.setStep(domain.StepContainerStart, domain.StepRunning, "starting containers")
		lastErr = o.gw.Up(ctx, o.env)
		if lastErr == nil {
			o.setStep(domain.StepContainerStart, domain.StepSucceeded, "containers started")
			return nil
		}

		if domain.KindOf(lastErr) != domain.ConflictError {
			o.failStep(domain.StepContainerStart, lastErr)
			return lastErr
		}
		log.Warn("Container start hit a port conflict", "attempt", attempt, "error", lastErr)
	}

	err := domain.WrapErr(domain.ConflictError, lastErr,
		"could not start the stack after %d attempts; a required port keeps being re-bound", startAttempts)
	o.failStep(domain.StepContainerStart, err)
	return err
}

// resolvePorts probes required ports and, when conflicts exist, asks the
// user before terminating the owners. Cancelling fails the whole run. The
// kill-then-reprobe window is inherently racy, so a port still bound after
// remediation is an expected outcome that needs the user, not a bug.
func (o *Orchestrator) resolvePorts(ctx context.Context) error {
	o.setStep(domain.StepPortResolution, domain.StepRunning, "checking required ports")

	available, _ := o.ports.CheckRequired(o.requirements)
	if available {
		o.setStep(domain.StepPortResolution, domain.StepSucceeded, "all required ports are free")
		return nil
	}

	_, conflicts := o.ports.FindConflicts(o.requirements)
	o.setStep(domain.StepPortResolution, domain.StepRunning, describeConflicts(conflicts))

	if !o.presenter.ConfirmFreePorts(conflicts) {
		err := domain.E(domain.ConflictError,
			"required ports are in use and freeing them was declined: %s", describeConflicts(conflicts))
		o.setStep(domain.StepPortResolution, domain.StepFailed, err.Message)
		return err
	}

	portList := make([]int, 0, len(conflicts))
	seen := map[int]bool{}
	for _, c := range conflicts {
		if !seen[c.Port] {
			seen[c.Port] = true
			portList = append(portList, c.Port)
		}
	}
	if err := o.ports.FreePorts(portList); err != nil {
		o.setStep(domain.StepPortResolution, domain.StepFailed, err.Error())
		return err
	}

	if available, blocked := o.ports.CheckRequired(o.requirements); !available {
		err := domain.E(domain.ConflictError,
			"ports still in use after freeing their owners: %v; please free them manually", blocked)
		o.setStep(domain.StepPortResolution, domain.StepFailed, err.Message)
		return err
	}

	o.setStep(domain.StepPortResolution, domain.StepSucceeded, "conflicting processes stopped, ports free")
	return nil
}

// runDependencyInstall checks the backend container's tools, installs the
// missing ones, and re-checks exactly once. A broken install script must
// not hang the user in an install loop.
func (o *Orchestrator) runDependencyInstall(ctx context.Context) error {
	o.setStep(domain.StepDependencyInstall, domain.StepRunning, "checking provisioning tools")

	set := o.deps.Check(ctx)
	if set.AllInstalled() {
		o.setStep(domain.StepDependencyInstall, domain.StepSucceeded, "all tools present")
		return nil
	}

	o.setStep(domain.StepDependencyInstall, domain.StepRunning,
		"installing: "+strings.Join(set.Missing(), ", "))
	if err := o.deps.Install(ctx, func(line string) {
		o.publish(events.Event{Type: events.EventInstallProgress, Source: "install", Text: line})
	}); err != nil {
		o.failStep(domain.StepDependencyInstall, err)
		return err
	}

	time.Sleep(o.opts.DependencySettle)

	if set = o.deps.Check(ctx); !set.AllInstalled() {
		err := domain.E(domain.VerificationError,
			"still missing after install: %s", strings.Join(set.Missing(), ", "))
		o.failStep(domain.StepDependencyInstall, err)
		return err
	}

	o.setStep(domain.StepDependencyInstall, domain.StepSucceeded, "tools installed and verified")
	return nil
}

func (o *Orchestrator) runHealthCheck(ctx context.Context) error {
	o.setStep(domain.StepHealthCheck, domain.StepRunning, "waiting for services")

	ok := o.health.WaitHealthy(ctx, o.opts.HealthTimeout, func(phase string) {
		o.setStep(domain.StepHealthCheck, domain.StepRunning, phase)
	})
	if !ok {
		err := domain.E(domain.TransientInfraError,
			"the stack did not become healthy within %s; a retry may resolve it", o.opts.HealthTimeout)
		o.failStep(domain.StepHealthCheck, err)
		return err
	}

	o.setStep(domain.StepHealthCheck, domain.StepSucceeded, "all services healthy")
	return nil
}

func (o *Orchestrator) resetSteps() {
	o.mu.Lock()
	for _, step := range o.steps {
		step.Status = domain.StepPending
		step.Detail = ""
	}
	o.mu.Unlock()
	for _, s := range o.Steps() {
		o.presenter.StepChanged(s)
	}
}

func (o *Orchestrator) setStep(id domain.StepID, status domain.StepStatus, detail string) {
	o.mu.Lock()
	step := o.steps[id]
	step.Status = status
	step.Detail = detail
	snapshot := *step
	o.mu.Unlock()
	o.presenter.StepChanged(snapshot)
	o.publish(events.Event{Type: events.EventStepChanged, Step: snapshot})
}

func (o *Orchestrator) failStep(id domain.StepID, err error) {
	o.setStep(id, domain.StepFailed, err.Error())
}

func describeConflicts(conflicts []domain.PortConflict) string {
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		owner := c.ProcessName
		if c.PID > 0 {
			owner += " (pid " + strconv.Itoa(c.PID) + ")"
		}
		parts = append(parts, owner+" on port "+strconv.Itoa(c.Port))
	}
	return "in use: " + strings.Join(parts, "; ")
}
