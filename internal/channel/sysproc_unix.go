//go:build !windows

package channel

import "syscall"

// sysProcAttr places the encoder in its own process group so a forceful
// kill does not take the supervisor down with it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
