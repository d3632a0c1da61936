package ports

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

// occupyPort grabs an ephemeral port and keeps it bound for the test.
func occupyPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l.Addr().(*net.TCPAddr).Port
}

// freeEphemeralPort returns a port that was just released.
func freeEphemeralPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestCheckRequired_AllFree(t *testing.T) {
	p := NewProbe()
	reqs := []domain.PortRequirement{
		{Port: freeEphemeralPort(t), Purpose: "a"},
		{Port: freeEphemeralPort(t), Purpose: "b"},
	}
	ok, blocked := p.CheckRequired(reqs)
	assert.True(t, ok)
	assert.Empty(t, blocked)
}

func TestCheckRequired_ReportsBlocked(t *testing.T) {
	p := NewProbe()
	held := occupyPort(t)
	reqs := []domain.PortRequirement{
		{Port: held, Purpose: "held"},
		{Port: freeEphemeralPort(t), Purpose: "free"},
	}
	ok, blocked := p.CheckRequired(reqs)
	assert.False(t, ok)
	assert.Equal(t, []int{held}, blocked)
}

// Every blocked port must surface as at least one conflict entry, even when
// the owning process cannot be resolved.
func TestFindConflicts_NeverDropsBlockedPort(t *testing.T) {
	p := NewProbe()
	held := occupyPort(t)
	reqs := []domain.PortRequirement{{Port: held, Purpose: "held"}}

	ok, conflicts := p.FindConflicts(reqs)
	assert.False(t, ok)
	require.NotEmpty(t, conflicts)

	found := false
	for _, c := range conflicts {
		if c.Port == held {
			found = true
			assert.NotEmpty(t, c.ProcessName, "conflict must carry at least a placeholder name")
		}
	}
	assert.True(t, found, "blocked port %d missing from conflicts %v", held, conflicts)
}

func TestFindConflicts_AllFree(t *testing.T) {
	p := NewProbe()
	ok, conflicts := p.FindConflicts([]domain.PortRequirement{{Port: freeEphemeralPort(t), Purpose: "x"}})
	assert.True(t, ok)
	assert.Empty(t, conflicts)
}

func TestFreePorts_AlreadyFree(t *testing.T) {
	p := NewProbe()
	p.settle = 10 * time.Millisecond
	assert.NoError(t, p.FreePorts([]int{freeEphemeralPort(t)}))
}

func TestFreePorts_StillBoundFails(t *testing.T) {
	p := NewProbe()
	p.settle = 10 * time.Millisecond
	held := occupyPort(t)

	// The test process itself holds the listener; the probe must not kill
	// us, so the lookup either finds nothing to signal or signals a PID we
	// shield by keeping the listener open in-process. Either way the
	// re-probe sees the port bound and the call must fail as a conflict.
	if pids := listeningPIDs(held); len(pids) > 0 {
		t.Skipf("lsof resolves our own listener (pids %v); skipping to avoid self-termination", pids)
	}

	err := p.FreePorts([]int{held})
	require.Error(t, err)
	assert.Equal(t, domain.ConflictError, domain.KindOf(err))
	assert.Contains(t, err.Error(), fmt.Sprint(held))
}
