//go:build !windows

package session

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setControllingTerminal makes the PTY slave the child's controlling
// terminal in a fresh session, which shells require for job control.
func setControllingTerminal(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // stdin, which xpty points at the PTY slave
	}
}

// terminateProcess kills the whole process group so children spawned by
// the shell do not outlive the session.
func terminateProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
}
