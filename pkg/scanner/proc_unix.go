//go:build unix

package scanner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// configureProcess starts the scanner in its own process group so that
// cancellation also reaches any helpers it spawned
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
