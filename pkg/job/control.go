package job

import "golang.org/x/sys/unix"

// EnableJobControl implements spec.md §4.8's job-control startup
// sequence: loop ignoring SIGTTIN/SIGTTOU/SIGTSTP (installed by
// pkg/trap before this is called) until the shell's process group is
// the terminal's foreground group — ceding to any parent shell that
// still owns it via SIGTTIN — then put the shell into its own process
// group and claim the terminal. fd is the controlling terminal's file
// descriptor (normally os.Stdin.Fd()).
func EnableJobControl(fd int) error {
	for {
		fg, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
		if err != nil {
			return err
		}
		pgid := unix.Getpgrp()
		if fg == pgid {
			break
		}
		_ = unix.Kill(-pgid, unix.SIGTTIN)
	}

	pid := unix.Getpid()
	if err := unix.Setpgid(pid, pid); err != nil && err != unix.EPERM {
		return err
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pid)
}

func saveTermModes(fd int) (*unix.Termios, error) {
	return unix.IoctlGetTermios(fd, unix.TCGETS)
}

func restoreTermModes(fd int, modes *unix.Termios) error {
	if modes == nil {
		return nil
	}
	return unix.IoctlSetTermios(fd, unix.TCSETS, modes)
}
