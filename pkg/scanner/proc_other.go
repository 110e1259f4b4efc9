//go:build !unix

package scanner

import "os/exec"

// configureProcess keeps the exec default of killing the scanner process itself
func configureProcess(cmd *exec.Cmd) {}
