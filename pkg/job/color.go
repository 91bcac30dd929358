package job

import "github.com/fatih/color"

// StatusColor returns state ("Running"/"Stopped"/"Done") dressed in
// the same color convention the teacher's ColoredString/
// ColoredStringDirect helpers used for container status text
// (pkg/utils/utils.go): green for "Running", yellow for "Stopped",
// cyan for "Done", and no color for any other state, so
// `jobs` output and xtrace diagnostics read at a glance.
func StatusColor(state string) string {
	switch state {
	case "Running":
		return color.New(color.FgGreen).Sprint(state)
	case "Stopped":
		return color.New(color.FgYellow).Sprint(state)
	case "Done":
		return color.New(color.FgCyan).Sprint(state)
	default:
		return state
	}
}

// TracePrefix colors the `xtrace`/PS4 diagnostic line prefix, the same
// dim-but-visible convention the teacher applies to secondary status
// text.
func TracePrefix(prefix string) string {
	return color.New(color.FgHiBlack).Sprint(prefix)
}
