package boot

// Stage identifies a step of the boot sequence.
type Stage uint8

// The boot stages in the order they run.
const (
	StageBootstrap Stage = iota
	StageScreen
	StageCPUInit
	StageMemoryInit
	StagePagingInit
	StageClockDriver
	StageShellInit

	stageCount
)

var stageNames = [stageCount]string{
	StageBootstrap:   "bootstrap",
	StageScreen:      "screen",
	StageCPUInit:     "cpu",
	StageMemoryInit:  "memory",
	StagePagingInit:  "paging",
	StageClockDriver: "cmos",
	StageShellInit:   "shell",
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	if s < stageCount {
		return stageNames[s]
	}
	return "unknown"
}

// State describes the progress of a Sequencer.
type State uint8

const (
	// StateRunning is the state of a sequencer that has not completed
	// all of its stages.
	StateRunning State = iota

	// StateReady is reached once every stage has succeeded.
	StateReady

	// StateHalted is reached when a stage fails. No further stages run.
	StateHalted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}
