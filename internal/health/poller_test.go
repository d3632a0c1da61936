package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

func healthyAfter(n int) StatusFunc {
	calls := 0
	return func(ctx context.Context) domain.StackStatus {
		calls++
		status := domain.StackStatus{DaemonInstalled: true, DaemonRunning: true}
		if calls >= n {
			status.ContainersUp = true
			status.AllHealthy = true
		}
		return status
	}
}

func TestWaitHealthy_SucceedsWithinTimeout(t *testing.T) {
	p := NewPoller(healthyAfter(3))
	p.interval = 5 * time.Millisecond

	var phases []string
	ok := p.WaitHealthy(context.Background(), time.Second, func(phase string) {
		phases = append(phases, phase)
	})

	assert.True(t, ok)
	assert.Equal(t, "starting containers", phases[0])
	assert.Equal(t, "ready", phases[len(phases)-1])
}

func TestWaitHealthy_TimesOutWithoutError(t *testing.T) {
	p := NewPoller(func(ctx context.Context) domain.StackStatus {
		return domain.StackStatus{DaemonInstalled: true, DaemonRunning: true}
	})
	p.interval = 5 * time.Millisecond

	ok := p.WaitHealthy(context.Background(), 30*time.Millisecond, nil)
	assert.False(t, ok)
}

func TestWaitHealthy_ImmediateSuccess(t *testing.T) {
	p := NewPoller(healthyAfter(1))
	p.interval = time.Hour // must not matter

	done := make(chan bool, 1)
	go func() {
		done <- p.WaitHealthy(context.Background(), time.Second, nil)
	}()
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitHealthy did not return on an already-healthy stack")
	}
}

func TestWaitHealthy_ContextCancel(t *testing.T) {
	p := NewPoller(func(ctx context.Context) domain.StackStatus {
		return domain.StackStatus{}
	})
	p.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	ok := p.WaitHealthy(ctx, time.Hour, nil)
	assert.False(t, ok)
}
