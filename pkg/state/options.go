package state

// optionLetter maps a `set -o` long name to its single-character
// `set -x`-style short flag, used to build $- (spec.md §4.4's `-`
// special parameter). Names with no POSIX short form are omitted from
// the letter mapping but still valid for `set -o name`/`set +o name`.
var optionLetter = map[string]byte{
	"allexport": 'a',
	"notify":    'b',
	"noclobber": 'C',
	"errexit":   'e',
	"noglob":    'f',
	"monitor":   'm',
	"noexec":    'n',
	"nounset":   'u',
	"verbose":   'v',
	"xtrace":    'x',
}

// Options is the `set -o` bitset every ShellState carries, stored by
// long name so unknown-but-accepted names (ignoreeof, nolog, vi,
// emacs) round-trip even without a short letter.
type Options struct {
	set map[string]bool
}

func newOptions() *Options {
	return &Options{set: map[string]bool{}}
}

func (o *Options) Set(name string, on bool) {
	o.set[name] = on
}

func (o *Options) IsSet(name string) bool {
	return o.set[name]
}

// String renders $-: every currently-set option that has a short
// letter, in optionLetter's iteration order is not guaranteed, so
// callers get a deterministic order by scanning the fixed letter list.
func (o *Options) String() string {
	order := "abCefmnuvx"
	out := make([]byte, 0, len(order))
	for i := 0; i < len(order); i++ {
		for name, letter := range optionLetter {
			if letter == order[i] && o.set[name] {
				out = append(out, letter)
				break
			}
		}
	}
	return string(out)
}
