//go:build windows

package main

import (
	"os/exec"
)

func configureBackendProc(cmd *exec.Cmd) {
	// Windows doesn't use Setsid; a started process is already independent
	// enough for this use case.
}
