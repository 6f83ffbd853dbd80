package channel

// State represents the lifecycle state of a channel.
type State string

const (
	// StateIdle means no encoder process exists for the channel.
	StateIdle State = "idle"
	// StateStarting means the encoder is being launched.
	StateStarting State = "starting"
	// StateRunning means the encoder is producing segments.
	StateRunning State = "running"
	// StateStopping means a stop was requested and is in progress.
	StateStopping State = "stopping"
	// StateFailed means the encoder exited on its own with a failure code.
	StateFailed State = "failed"
)

// Active reports whether the state holds a device claim.
// Starting counts so two concurrent starts cannot both pass the
// device check.
func (s State) Active() bool {
	return s == StateStarting || s == StateRunning
}
