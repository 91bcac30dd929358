package expand

import (
	"strconv"
	"strings"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// expandParameterPieces is phase 2 of spec.md §4.4: parameter name
// lookup followed by the operator, if any. `@` and `*` are handled
// separately because their field-splitting behavior under double quotes
// differs from every other parameter (spec.md §9's `$@` Open Question).
func expandParameterPieces(pw *ast.ParameterWord, env Env, quoted bool) ([]piece, error) {
	switch pw.Name {
	case "@":
		return expandAtParameter(pw, env, quoted)
	case "*":
		return expandStarParameter(pw, env, quoted)
	}

	value, set := lookupScalarParameter(pw.Name, env)
	return applyParamOp(pw, env, value, set, quoted)
}

func lookupScalarParameter(name string, env Env) (string, bool) {
	switch name {
	case "#":
		return strconv.Itoa(len(env.Positional())), true
	case "?":
		return strconv.Itoa(env.ExitStatus()), true
	case "-":
		return env.Options(), true
	case "$":
		return strconv.Itoa(env.ShellPID()), true
	case "!":
		return strconv.Itoa(env.LastBackgroundPID()), true
	case "LINENO":
		return strconv.Itoa(env.Line()), true
	}
	if n, err := strconv.Atoi(name); err == nil && n > 0 {
		pos := env.Positional()
		if n-1 < len(pos) {
			return pos[n-1], true
		}
		return "", false
	}
	return env.Lookup(name)
}

// expandAtParameter implements `$@`/`${@...}`. Unquoted, it behaves like
// `$*` (joined by a space, then re-split by the normal field-splitting
// pass). Quoted with no operator, it expands to one field per positional
// parameter — the one case in the grammar where a double-quoted word
// produces more than one field, per the Open Question decision recorded
// in DESIGN.md.
func expandAtParameter(pw *ast.ParameterWord, env Env, quoted bool) ([]piece, error) {
	pos := env.Positional()
	if !quoted || pw.Op != ast.ParamOpNone {
		joined := strings.Join(pos, " ")
		return applyParamOp(pw, env, joined, len(pos) > 0, quoted)
	}
	if len(pos) == 0 {
		return nil, nil
	}
	out := make([]piece, len(pos))
	for i, v := range pos {
		out[i] = piece{text: v, splitOK: false, forceFieldBreak: i != len(pos)-1}
	}
	return out, nil
}

// expandStarParameter implements `$*`: always a single field, joined by
// the first character of $IFS (a space if IFS is unset, no separator at
// all if IFS is set to the empty string).
func expandStarParameter(pw *ast.ParameterWord, env Env, quoted bool) ([]piece, error) {
	pos := env.Positional()
	sep := " "
	if ifs, set := env.IFS(); set {
		if ifs == "" {
			sep = ""
		} else {
			sep = ifs[:1]
		}
	}
	joined := strings.Join(pos, sep)
	return applyParamOp(pw, env, joined, len(pos) > 0, quoted)
}

// applyParamOp evaluates pw's operator (if any) against a resolved
// (value, set) pair, per spec.md §4.4 item 2.
func applyParamOp(pw *ast.ParameterWord, env Env, value string, set bool, quoted bool) ([]piece, error) {
	if pw.Op == ast.ParamOpLength {
		return []piece{{text: strconv.Itoa(len(value)), splitOK: !quoted}}, nil
	}

	nullOrUnset := !set || (pw.Colon && value == "")

	switch pw.Op {
	case ast.ParamOpNone:
		if !set {
			if env.NoUnset() {
				return nil, &UnsetParameterError{Name: pw.Name}
			}
			return []piece{{text: "", splitOK: !quoted}}, nil
		}
		return []piece{{text: value, splitOK: !quoted}}, nil

	case ast.ParamOpMinus:
		if nullOrUnset {
			return expandArgWord(pw.Arg, env, quoted)
		}
		return []piece{{text: value, splitOK: !quoted}}, nil

	case ast.ParamOpAssign:
		if nullOrUnset {
			argPieces, err := expandArgWord(pw.Arg, env, quoted)
			if err != nil {
				return nil, err
			}
			if err := env.Assign(pw.Name, piecesText(argPieces)); err != nil {
				return nil, err
			}
			return argPieces, nil
		}
		return []piece{{text: value, splitOK: !quoted}}, nil

	case ast.ParamOpQuestion:
		if nullOrUnset {
			msg, err := expandArgWordText(pw.Arg, env)
			if err != nil {
				return nil, err
			}
			if msg == "" {
				msg = "parameter null or not set"
			}
			return nil, &UnsetParameterError{Name: pw.Name, Message: msg}
		}
		return []piece{{text: value, splitOK: !quoted}}, nil

	case ast.ParamOpPlus:
		if nullOrUnset {
			return []piece{{text: "", splitOK: !quoted}}, nil
		}
		return expandArgWord(pw.Arg, env, quoted)

	case ast.ParamOpPercent, ast.ParamOpPercentPct, ast.ParamOpHash, ast.ParamOpHashHash:
		pattern, err := expandArgWordText(pw.Arg, env)
		if err != nil {
			return nil, err
		}
		return []piece{{text: trimPattern(value, pattern, pw.Op), splitOK: !quoted}}, nil
	}

	return []piece{{text: value, splitOK: !quoted}}, nil
}

func expandArgWord(w ast.Word, env Env, quoted bool) ([]piece, error) {
	if w == nil {
		return nil, nil
	}
	return expandWordPieces(w, env, quoted)
}

func expandArgWordText(w ast.Word, env Env) (string, error) {
	if w == nil {
		return "", nil
	}
	pieces, err := expandWordPieces(w, env, false)
	if err != nil {
		return "", err
	}
	return piecesText(pieces), nil
}

// trimPattern implements the four pattern-removal operators. Candidate
// prefixes/suffixes are tried shortest-match-first for `%`/`#` and
// longest-match-first for `%%`/`##`. Matching uses Match, not
// path.Match/filepath.Match: these operators remove a prefix/suffix of
// an arbitrary string, not a filesystem path, so `*` must be free to
// cross a literal `/` the way it does for case patterns (see Match's
// doc comment and DESIGN.md).
func trimPattern(value, pattern string, op ast.ParamOp) string {
	switch op {
	case ast.ParamOpPercent:
		for i := len(value); i >= 0; i-- {
			if Match(pattern, value[i:]) {
				return value[:i]
			}
		}
	case ast.ParamOpPercentPct:
		for i := 0; i <= len(value); i++ {
			if Match(pattern, value[i:]) {
				return value[:i]
			}
		}
	case ast.ParamOpHash:
		for i := 0; i <= len(value); i++ {
			if Match(pattern, value[:i]) {
				return value[i:]
			}
		}
	case ast.ParamOpHashHash:
		for i := len(value); i >= 0; i-- {
			if Match(pattern, value[:i]) {
				return value[i:]
			}
		}
	}
	return value
}
