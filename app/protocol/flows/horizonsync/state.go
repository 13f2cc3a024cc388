package horizonsync

import "fmt"

// State is the stage a horizon sync session is in
type State byte

const (
	// StateIdle is the state of a session that hasn't started
	StateIdle State = iota
	// StatePreparing is the state while the horizon sync scope is opened
	StatePreparing
	// StateSyncingKernels is the state while kernels are downloaded
	StateSyncingKernels
	// StateSyncingOutputs is the state while outputs and spends are downloaded
	StateSyncingOutputs
	// StateFinalizing is the state while the chain metadata is moved to the horizon
	StateFinalizing
	// StateCommitted is the state of a session that completed
	StateCommitted
	// StateRolledBack is the state of a session whose writes were undone
	StateRolledBack
)

var stateStrings = map[State]string{
	StateIdle:           "Idle",
	StatePreparing:      "Preparing",
	StateSyncingKernels: "SyncingKernels",
	StateSyncingOutputs: "SyncingOutputs",
	StateFinalizing:     "Finalizing",
	StateCommitted:      "Committed",
	StateRolledBack:     "RolledBack",
}

func (state State) String() string {
	if s, ok := stateStrings[state]; ok {
		return s
	}
	return fmt.Sprintf("State(%d)", byte(state))
}
