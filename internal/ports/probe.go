// Package ports checks availability of the stack's required local TCP ports
// and remediates conflicts with user consent.
package ports

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

// settleInterval is how long freed processes get to release their sockets
// before the re-probe.
const settleInterval = 1500 * time.Millisecond

// Probe tests required ports by binding them directly, so it works even
// when no process-listing tool is installed.
type Probe struct {
	settle time.Duration
}

func NewProbe() *Probe {
	return &Probe{settle: settleInterval}
}

// portFree attempts a bind-then-release on the port. Binding succeeds only
// when nothing else holds it.
func portFree(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// CheckRequired reports whether every required port is free, plus the list
// of blocked ports.
func (p *Probe) CheckRequired(reqs []domain.PortRequirement) (bool, []int) {
	var blocked []int
	for _, req := range reqs {
		if !portFree(req.Port) {
			blocked = append(blocked, req.Port)
		}
	}
	return len(blocked) == 0, blocked
}

// FindConflicts resolves the owning process for every blocked port. When a
// lookup fails the conflict is still reported with placeholder owner info
// rather than dropped.
func (p *Probe) FindConflicts(reqs []domain.PortRequirement) (bool, []domain.PortConflict) {
	ok, blocked := p.CheckRequired(reqs)
	if ok {
		return true, nil
	}

	var conflicts []domain.PortConflict
	for _, port := range blocked {
		pids := listeningPIDs(port)
		if len(pids) == 0 {
			conflicts = append(conflicts, domain.PortConflict{Port: port, ProcessName: "unknown"})
			continue
		}
		for _, pid := range pids {
			conflicts = append(conflicts, domain.PortConflict{
				Port:        port,
				PID:         pid,
				ProcessName: processName(pid),
			})
		}
	}
	return false, conflicts
}

// FreePorts sends SIGTERM to every process holding one of the given ports,
// waits for sockets to settle, then re-probes. It never escalates to
// SIGKILL: a port still bound after the grace period is reported back for
// the user to free manually.
func (p *Probe) FreePorts(portList []int) error {
	for _, port := range portList {
		for _, pid := range listeningPIDs(port) {
			log.Info("Stopping process holding required port", "port", port, "pid", pid)
			if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
				log.Warn("Could not signal process", "pid", pid, "error", err)
			}
		}
	}

	time.Sleep(p.settle)

	var stillBound []string
	for _, port := range portList {
		if !portFree(port) {
			stillBound = append(stillBound, strconv.Itoa(port))
		}
	}
	if len(stillBound) > 0 {
		return domain.E(domain.ConflictError,
			"port(s) %s still in use after stopping their owners; please free them manually",
			strings.Join(stillBound, ", "))
	}
	return nil
}

// listeningPIDs shells out to lsof to find processes listening on the port.
// An empty result means the lookup failed or nothing matched; callers treat
// both the same.
func listeningPIDs(port int) []int {
	out, err := exec.Command("lsof", "-t", "-iTCP:"+strconv.Itoa(port), "-sTCP:LISTEN").Output()
	if err != nil {
		log.Debug("lsof lookup failed", "port", port, "error", err)
		return nil
	}
	var pids []int
	for _, line := range strings.Fields(string(out)) {
		if pid, err := strconv.Atoi(line); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids
}

// processName resolves a display name for the PID, falling back to a
// placeholder so conflicts are never silently dropped.
func processName(pid int) string {
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=").Output()
	if err != nil {
		return "unknown"
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "unknown"
	}
	return name
}
