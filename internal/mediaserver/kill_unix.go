//go:build !windows

package mediaserver

import "os/exec"

// forceKillByName terminates every process whose name matches image.
func forceKillByName(image string) error {
	// The kernel truncates process names to 15 bytes.
	if len(image) > 15 {
		image = image[:15]
	}
	return exec.Command("pkill", "-KILL", "-x", image).Run()
}
