//go:build windows

package channel

import "syscall"

// sysProcAttr detaches the encoder into its own process group.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
