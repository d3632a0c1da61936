package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tokamak-network/trh-platform-desktop/internal/config"
	"github.com/tokamak-network/trh-platform-desktop/internal/deps"
	"github.com/tokamak-network/trh-platform-desktop/internal/docker"
	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
	"github.com/tokamak-network/trh-platform-desktop/internal/events"
	"github.com/tokamak-network/trh-platform-desktop/internal/health"
	"github.com/tokamak-network/trh-platform-desktop/internal/ports"
	"github.com/tokamak-network/trh-platform-desktop/internal/setup"
	"github.com/tokamak-network/trh-platform-desktop/internal/stack"
	"github.com/tokamak-network/trh-platform-desktop/internal/tui"
)

var plainOutput bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Bring up the TRH Platform stack and verify it is healthy",
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain console output instead of the interactive UI")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Error("Configuration rejected", "error", err)
		return err
	}

	gw, err := newGateway(cfg)
	if err != nil {
		return err
	}

	bus := events.NewBus(256)
	bus.Start()
	defer func() {
		docker.SetLogSink(nil)
		if err := bus.Stop(); err != nil {
			log.Warn("Event bus did not stop cleanly", "error", err)
		}
	}()
	docker.SetLogSink(func(source, line string) {
		_ = bus.Publish(events.Event{Type: events.EventLogLine, Source: source, Text: line})
	})

	env := map[string]string{}
	if cfg.Admin.Email != "" {
		env["TRH_ADMIN_EMAIL"] = cfg.Admin.Email
		env["TRH_ADMIN_PASSWORD"] = cfg.Admin.Password
	}
	opts := setup.Options{
		HealthTimeout: time.Duration(cfg.Setup.HealthTimeoutSeconds) * time.Second,
	}

	prober := ports.NewProbe()
	poller := health.NewPoller(gw.Status)
	installer := deps.NewInstaller(gw, stack.BackendContainer)

	// One best-effort teardown before an interrupted process exits.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	interrupted := false
	defer func() {
		if interrupted {
			log.Warn("Interrupted; stopping the partially started stack")
			gw.Shutdown(5 * time.Second)
			_ = gw.Down(context.Background())
		}
	}()

	useTUI := !plainOutput && isatty.IsTerminal(os.Stdout.Fd())

	for {
		var runErr error
		if useTUI {
			runErr = runWithTUI(ctx, gw, prober, poller, installer, env, opts, bus)
		} else {
			presenter := newConsolePresenter()
			orch := setup.New(gw, prober, poller, installer, presenter, stack.Requirements(), env, opts)
			orch.SetPublisher(bus)
			bus.Subscribe(presenter)
			runErr = orch.Run(ctx)
			bus.Unsubscribe(presenter)
		}

		if runErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			interrupted = true
			return runErr
		}
		if !retryEligible(runErr) || !askRetry() {
			return runErr
		}
		// The retry command restarts the whole pipeline from the docker
		// check; no partial resume.
	}
}

func runWithTUI(ctx context.Context, gw *docker.Gateway, prober *ports.Probe, poller *health.Poller, installer *deps.Installer, env map[string]string, opts setup.Options, bus *events.Bus) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapter := tui.NewAdapter(domain.PendingSteps())
	bus.Subscribe(adapter)
	defer bus.Unsubscribe(adapter)

	orch := setup.New(gw, prober, poller, installer, adapter, stack.Requirements(), env, opts)
	orch.SetPublisher(bus)

	errCh := make(chan error, 1)
	go func() {
		errCh <- orch.Run(ctx)
	}()

	// When the UI is dismissed early the run has no presenter left; cancel
	// so its current operation winds down instead of running headless.
	if err := adapter.Run(); err != nil {
		log.Error("UI exited with error", "error", err)
	}
	cancel()
	return <-errCh
}

func newGateway(cfg *config.Config) (*docker.Gateway, error) {
	composePath, err := stack.Materialize(cfg.DataDir)
	if err != nil {
		return nil, domain.WrapErr(domain.ConfigurationError, err, "could not materialize the stack definition")
	}
	services, err := stack.ServiceNames()
	if err != nil {
		return nil, domain.WrapErr(domain.ConfigurationError, err, "embedded stack definition is invalid")
	}
	return docker.New(composePath, stack.ProjectName, services), nil
}

// retryEligible mirrors which terminal failures a retry command may answer.
func retryEligible(err error) bool {
	switch domain.KindOf(err) {
	case domain.EnvironmentError, domain.TransientInfraError, domain.ConflictError:
		return true
	default:
		return false
	}
}

func askRetry() bool {
	retry := false
	prompt := &survey.Confirm{Message: "Setup failed. Retry from the beginning?"}
	if err := survey.AskOne(prompt, &retry); err != nil {
		return false
	}
	return retry
}
