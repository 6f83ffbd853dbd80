//go:build windows

package mediaserver

import "os/exec"

// forceKillByName terminates every process with the given image name.
func forceKillByName(image string) error {
	return exec.Command("taskkill", "/F", "/IM", image).Run()
}
