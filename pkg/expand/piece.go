package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tarnsh/tarnsh/pkg/ast"
)

// piece is a flattened, already-expanded run of text: the unit pkg/expand
// threads through field splitting and pathname expansion once tilde,
// parameter, command, and arithmetic expansion have produced plain
// values. splitOK mirrors the teacher's `split_fields` flag on
// mrsh_word_string: false for anything that came from inside quotes, so
// it is immune to both IFS splitting and glob metacharacters.
// forceFieldBreak exists only for quoted `$@`, the one construct that
// must start a new field mid-word regardless of quoting.
type piece struct {
	text            string
	splitOK         bool
	forceFieldBreak bool
}

// toPieces runs phases 2–4 of spec.md §4.4 (parameter, command, and
// arithmetic expansion) over a tilde-expanded word, producing the flat
// piece sequence that field splitting and pathname expansion consume.
func toPieces(w ast.Word, env Env) ([]piece, error) {
	return expandWordPieces(w, env, false)
}

func expandWordPieces(w ast.Word, env Env, quoted bool) ([]piece, error) {
	switch v := w.(type) {
	case *ast.StringWord:
		if v.SingleQuoted {
			return []piece{{text: v.Value, splitOK: false}}, nil
		}
		return []piece{{text: v.Value, splitOK: v.SplitFields && !quoted}}, nil

	case *ast.ListWord:
		isQuoted := quoted || v.DoubleQuoted
		var out []piece
		for _, c := range v.Children {
			sub, err := expandWordPieces(c, env, isQuoted)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil

	case *ast.ParameterWord:
		return expandParameterPieces(v, env, quoted)

	case *ast.CommandWord:
		out, err := env.RunCommandSubstitution(v.Program)
		if err != nil {
			return nil, err
		}
		return []piece{{text: trimTrailingNewlines(out), splitOK: !quoted}}, nil

	case *ast.ArithmeticWord:
		bodyPieces, err := expandWordPieces(v.Body, env, false)
		if err != nil {
			return nil, err
		}
		val, err := evalArithmetic(piecesText(bodyPieces), env)
		if err != nil {
			return nil, err
		}
		return []piece{{text: strconv.FormatInt(val, 10), splitOK: !quoted}}, nil

	default:
		return nil, fmt.Errorf("expand: unsupported word type %T", w)
	}
}

// trimTrailingNewlines implements spec.md §4.4 item 3's "trim trailing
// newlines only" rule for command substitution output.
func trimTrailingNewlines(s string) string {
	return strings.TrimRight(s, "\n")
}
