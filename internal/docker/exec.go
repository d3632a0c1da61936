package docker

import (
	"context"
	"strings"
	"time"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

const execTimeout = 30 * time.Second

// Exec runs a command inside a named running container and returns its
// combined trimmed output. Used only for dependency probing.
func (g *Gateway) Exec(ctx context.Context, container string, command []string) (string, error) {
	args := append([]string{"exec", container}, command...)
	res, err := g.run(ctx, execTimeout, "docker exec "+container, args...)
	if err != nil {
		if domain.KindOf(err) != domain.UnknownError {
			return "", err
		}
		return "", domain.WrapErr(domain.TransientInfraError, err,
			"command failed in container %s: %s", container, tail(res.stderr))
	}
	return strings.TrimSpace(res.stdout), nil
}

// ExecStream runs a long command inside a container, forwarding each output
// line to onLine as it is produced. The timeout bounds the whole command.
func (g *Gateway) ExecStream(ctx context.Context, container string, command []string, timeout time.Duration, onLine func(string)) error {
	args := append([]string{"exec", container}, command...)
	res, err := g.stream(ctx, timeout, "docker exec "+container, onLine, args...)
	if err != nil {
		if domain.KindOf(err) != domain.UnknownError {
			return err
		}
		return domain.WrapErr(domain.TransientInfraError, err,
			"command failed in container %s: %s", container, tail(res.stderr))
	}
	return nil
}
