package expand

import (
	"os/user"
	"strings"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// isLognameByte reports whether c is valid inside a POSIX login name, per
// https://pubs.opengroup.org/onlinepubs/9699919799/basedefs/V1_chap03.html#tag_03_282.
func isLognameByte(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '.' || c == '_' || c == '-'
}

// tildeAt looks for a `~` or `~user` prefix at the start of str and
// returns the directory it expands to and the byte offset of the first
// unconsumed character, or ok=false if str doesn't start with a tilde
// expansion (not a tilde, an invalid login name, or an unterminated
// `~user` that isn't the last segment).
func tildeAt(env Env, str string, last bool) (dir string, offset int, ok bool) {
	if len(str) == 0 || str[0] != '~' {
		return "", 0, false
	}

	i := 1
	for i < len(str) && str[i] != '/' {
		if !isLognameByte(str[i]) {
			return "", 0, false
		}
		i++
	}
	if i == len(str) && !last {
		return "", 0, false
	}

	name := str[1:i]
	if name == "" {
		home, set := env.Lookup("HOME")
		if !set {
			return "", 0, false
		}
		return home, i, true
	}

	u, err := user.Lookup(name)
	if err != nil {
		return "", 0, false
	}
	return u.HomeDir, i, true
}

// expandTilde is the tilde-expansion pre-pass of spec.md §4.4 item 1. It
// runs before every other expansion phase and only ever touches unquoted
// literal text: single-quoted strings and double-quoted lists are left
// untouched. In assignment-value position it repeats after every
// unquoted `:`.
func expandTilde(w ast.Word, env Env, assignment bool) ast.Word {
	return expandTildeAt(w, env, assignment, true, true)
}

func expandTildeAt(w ast.Word, env Env, assignment, first, last bool) ast.Word {
	switch v := w.(type) {
	case *ast.StringWord:
		if v.SingleQuoted {
			return w
		}
		return expandTildeString(v, env, assignment, first, last)
	case *ast.ListWord:
		if v.DoubleQuoted {
			return w
		}
		children := make([]ast.Word, len(v.Children))
		for i, c := range v.Children {
			children[i] = expandTildeAt(c, env, assignment, first && i == 0, last && i == len(v.Children)-1)
		}
		cp := *v
		cp.Children = children
		return &cp
	default:
		return w
	}
}

// expandTildeString applies tildeAt to the leading position of ws.Value
// (if first) and, for assignment values, after every subsequent unquoted
// colon.
func expandTildeString(ws *ast.StringWord, env Env, assignment, first, last bool) ast.Word {
	str := ws.Value
	var out strings.Builder
	pos := 0

	if first {
		if dir, off, ok := tildeAt(env, str[pos:], last); ok {
			out.WriteString(dir)
			pos += off
		}
	}

	if assignment {
		for {
			idx := strings.IndexByte(str[pos:], ':')
			if idx < 0 {
				break
			}
			out.WriteString(str[pos : pos+idx+1])
			pos += idx + 1
			if dir, off, ok := tildeAt(env, str[pos:], last); ok {
				out.WriteString(dir)
				pos += off
			}
		}
	}

	out.WriteString(str[pos:])
	cp := *ws
	cp.Value = out.String()
	return &cp
}
