package domain

// StepID identifies one stage of the setup pipeline, in execution order.
type StepID int

const (
	StepDockerCheck StepID = iota
	StepImagePull
	StepPortResolution
	StepContainerStart
	StepDependencyInstall
	StepHealthCheck
)

// StepOrder lists every pipeline step in the order the orchestrator runs
// them. Port resolution executes inside the container-start loop but is
// tracked as its own step so the user can see what is being remediated.
var StepOrder = []StepID{
	StepDockerCheck,
	StepImagePull,
	StepPortResolution,
	StepContainerStart,
	StepDependencyInstall,
	StepHealthCheck,
}

func (id StepID) String() string {
	switch id {
	case StepDockerCheck:
		return "Docker check"
	case StepImagePull:
		return "Image pull"
	case StepPortResolution:
		return "Port resolution"
	case StepContainerStart:
		return "Container start"
	case StepDependencyInstall:
		return "Dependency install"
	case StepHealthCheck:
		return "Health check"
	default:
		return "unknown step"
	}
}

// StepStatus is the lifecycle state of a single step. Transitions are
// monotonic within one run; only a full retry resets a step to Pending.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepSucceeded
	StepFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepSucceeded:
		return "succeeded"
	case StepFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Step is the externally visible state of one pipeline stage.
type Step struct {
	ID     StepID
	Status StepStatus
	Detail string
}

// PendingSteps returns a fresh step list in pipeline order, all Pending.
func PendingSteps() []Step {
	steps := make([]Step, 0, len(StepOrder))
	for _, id := range StepOrder {
		steps = append(steps, Step{ID: id})
	}
	return steps
}
