package supervisor

import (
	"errors"
	"fmt"
)

// ErrorCode classifies supervisor failures so callers can present an
// actionable message.
type ErrorCode string

const (
	// CodeMissingExecutable means the encoder binary was not found.
	CodeMissingExecutable ErrorCode = "missing_executable"
	// CodeDeviceInUse means another active channel holds the video device.
	CodeDeviceInUse ErrorCode = "device_in_use"
	// CodeDuplicateChannel means the channel name's slug already exists.
	CodeDuplicateChannel ErrorCode = "duplicate_channel"
	// CodeChannelBusy means the operation requires an idle channel.
	CodeChannelBusy ErrorCode = "channel_busy"
	// CodeChannelNotFound means no channel with that name is configured.
	CodeChannelNotFound ErrorCode = "channel_not_found"
	// CodeInvalidConfig means the channel configuration failed validation.
	CodeInvalidConfig ErrorCode = "invalid_config"
	// CodeServiceUnavailable means the media server could not be acquired.
	CodeServiceUnavailable ErrorCode = "dependent_service_unavailable"
	// CodeLaunchFailure means the encoder process failed to launch.
	CodeLaunchFailure ErrorCode = "process_launch_failure"
	// CodeIOFailure covers directory and config file failures.
	CodeIOFailure ErrorCode = "io_failure"
)

// Error is the structured error returned by supervisor operations.
// Owner is set only for CodeDeviceInUse and names the conflicting channel.
type Error struct {
	Code    ErrorCode
	Message string
	Owner   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches supervisor errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// errDeviceInUse names the channel currently holding the device.
func errDeviceInUse(device, owner string) *Error {
	return &Error{
		Code:    CodeDeviceInUse,
		Message: fmt.Sprintf("video device %q is in use by channel %q", device, owner),
		Owner:   owner,
	}
}

// CodeOf extracts the supervisor error code, or empty for other errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
