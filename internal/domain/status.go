package domain

import "sort"

// StackStatus is the derived view of the managed stack, recomputed on demand
// and never persisted. The boolean chain is monotone: AllHealthy implies
// ContainersUp implies DaemonRunning implies DaemonInstalled.
type StackStatus struct {
	DaemonInstalled bool
	DaemonRunning   bool
	ContainersUp    bool
	AllHealthy      bool
	LastError       string
}

// Phase maps the status onto a coarse progress label so callers can show
// where startup currently stands without knowing the status shape.
func (s StackStatus) Phase() string {
	switch {
	case !s.DaemonInstalled:
		return "docker not installed"
	case !s.DaemonRunning:
		return "waiting for docker daemon"
	case !s.ContainersUp:
		return "starting containers"
	case !s.AllHealthy:
		return "waiting for services to become healthy"
	default:
		return "ready"
	}
}

// PortRequirement is one local TCP port the stack needs exclusively.
type PortRequirement struct {
	Port    int
	Purpose string
}

// PortConflict identifies a foreign process holding a required port. PID 0
// with ProcessName "unknown" means the owner could not be resolved; the
// conflict is still reported.
type PortConflict struct {
	Port        int
	PID         int
	ProcessName string
}

// DependencySet maps each required in-container tool to whether it is
// installed. Recomputed on every check, never cached.
type DependencySet map[string]bool

// AllInstalled reports whether every tool in the set is present.
func (d DependencySet) AllInstalled() bool {
	for _, ok := range d {
		if !ok {
			return false
		}
	}
	return len(d) > 0
}

// Missing returns the names of tools still absent, sorted for stable output.
func (d DependencySet) Missing() []string {
	var missing []string
	for tool, ok := range d {
		if !ok {
			missing = append(missing, tool)
		}
	}
	sort.Strings(missing)
	return missing
}
