package events

// Event type constants for kelindar/event.
const (
	TypeChannelAdded uint32 = iota + 1
	TypeChannelRemoved
	TypeChannelStateChanged
	TypeChannelLog
	TypeChannelExited
	TypeMediaServerStateChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ChannelAddedEvent is published when a channel configuration is registered.
type ChannelAddedEvent struct {
	Channel   string `json:"channel" example:"lobby cam" doc:"Channel name"`
	Slug      string `json:"slug" example:"lobbycam" doc:"Channel slug used for output paths"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelAddedEvent.
func (e ChannelAddedEvent) Type() uint32 { return TypeChannelAdded }

// ChannelRemovedEvent is published when a channel configuration is removed.
type ChannelRemovedEvent struct {
	Channel   string `json:"channel" example:"lobby cam" doc:"Channel name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelRemovedEvent.
func (e ChannelRemovedEvent) Type() uint32 { return TypeChannelRemoved }

// ChannelStateChangedEvent is published on every channel state transition.
type ChannelStateChangedEvent struct {
	Channel   string `json:"channel" example:"lobby cam" doc:"Channel name"`
	State     string `json:"state" example:"running" doc:"New channel state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelStateChangedEvent.
func (e ChannelStateChangedEvent) Type() uint32 { return TypeChannelStateChanged }

// ChannelLogEvent carries a single line of encoder output.
type ChannelLogEvent struct {
	Channel string `json:"channel" example:"lobby cam" doc:"Channel name"`
	Level   string `json:"level" example:"info" doc:"Parsed log level"`
	Line    string `json:"line" doc:"Raw encoder output line"`
}

// Type returns the event type identifier for ChannelLogEvent.
func (e ChannelLogEvent) Type() uint32 { return TypeChannelLog }

// ChannelExitedEvent is published when an encoder process terminates.
// Requested distinguishes operator-initiated stops from spontaneous exits.
type ChannelExitedEvent struct {
	Channel   string `json:"channel" example:"lobby cam" doc:"Channel name"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Process exit code, -1 if the process never launched"`
	Requested bool   `json:"requested" example:"true" doc:"Whether the exit followed a stop request"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelExitedEvent.
func (e ChannelExitedEvent) Type() uint32 { return TypeChannelExited }

// MediaServerStateChangedEvent tracks the shared media server lifecycle.
type MediaServerStateChangedEvent struct {
	Running   bool   `json:"running" example:"true" doc:"Whether the media server is running"`
	Refs      int    `json:"refs" example:"2" doc:"Number of channels holding a reference"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MediaServerStateChangedEvent.
func (e MediaServerStateChangedEvent) Type() uint32 { return TypeMediaServerStateChanged }

// LogEntryEvent represents an application log entry for API subscribers.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
