package trap

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// signalByName maps the bare POSIX names `trap` accepts (with or
// without the `SIG` prefix) to their signal value.
var signalByName = map[string]unix.Signal{
	"HUP": unix.SIGHUP, "INT": unix.SIGINT, "QUIT": unix.SIGQUIT,
	"ILL": unix.SIGILL, "TRAP": unix.SIGTRAP, "ABRT": unix.SIGABRT,
	"BUS": unix.SIGBUS, "FPE": unix.SIGFPE, "KILL": unix.SIGKILL,
	"USR1": unix.SIGUSR1, "SEGV": unix.SIGSEGV, "USR2": unix.SIGUSR2,
	"PIPE": unix.SIGPIPE, "ALRM": unix.SIGALRM, "TERM": unix.SIGTERM,
	"CHLD": unix.SIGCHLD, "CONT": unix.SIGCONT, "STOP": unix.SIGSTOP,
	"TSTP": unix.SIGTSTP, "TTIN": unix.SIGTTIN, "TTOU": unix.SIGTTOU,
	"URG": unix.SIGURG, "XCPU": unix.SIGXCPU, "XFSZ": unix.SIGXFSZ,
	"VTALRM": unix.SIGVTALRM, "PROF": unix.SIGPROF, "WINCH": unix.SIGWINCH,
	"IO": unix.SIGIO, "SYS": unix.SIGSYS,
}

var nameBySignal = func() map[unix.Signal]string {
	m := make(map[unix.Signal]string, len(signalByName))
	for name, sig := range signalByName {
		m[sig] = name
	}
	return m
}()

// normalize upper-cases sig and strips a leading "SIG", so "sigint",
// "SIGINT", and "INT" are all the same trap target; "EXIT", "0" (its
// traditional synonym), "ERR", and "DEBUG" pass through as the
// pseudo-signals spec.md §4.9 also supports.
func normalize(sig string) string {
	sig = strings.ToUpper(strings.TrimSpace(sig))
	if sig == "0" {
		return "EXIT"
	}
	return strings.TrimPrefix(sig, "SIG")
}

func nameOf(s os.Signal) string {
	if sig, ok := s.(unix.Signal); ok {
		if n, ok := nameBySignal[sig]; ok {
			return n
		}
	}
	return ""
}
