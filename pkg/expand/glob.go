package expand

import (
	"path/filepath"
	"sort"
)

// isPathnameMetachar mirrors is_pathname_metachar.
func isPathnameMetachar(c byte) bool {
	switch c {
	case '*', '?', '[', ']':
		return true
	default:
		return false
	}
}

// fieldPattern builds the glob pattern for one field's pieces, escaping
// metacharacters that came from quoted text so they match literally,
// and reports whether any unescaped (genuinely glob-eligible)
// metacharacter was found at all — mirroring needs_pathname_expansion +
// word_to_pattern in one pass.
func fieldPattern(pieces []piece) (pattern string, needsGlob bool) {
	var buf []byte
	for _, p := range pieces {
		for i := 0; i < len(p.text); i++ {
			c := p.text[i]
			if isPathnameMetachar(c) {
				if !p.splitOK {
					buf = append(buf, '\\')
				} else {
					needsGlob = true
				}
			}
			buf = append(buf, c)
		}
	}
	return string(buf), needsGlob
}

// expandPathnames is spec.md §4.4 item 6: each field is replaced by its
// sorted glob matches if it needs pathname expansion and has any; a
// field with no unescaped metacharacter, or whose pattern matches
// nothing, is kept as its own literal text.
//
// filepath.Glob (stdlib) is used in place of an ecosystem glob library:
// nothing in the corpus imports one, so pkg/expand falls back to the
// standard library here — see DESIGN.md.
func expandPathnames(fields [][]piece) ([]string, error) {
	var out []string
	for _, fp := range fields {
		pattern, needsGlob := fieldPattern(fp)
		if !needsGlob {
			out = append(out, piecesText(fp))
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			// A malformed pattern (e.g. unterminated `[`) behaves like
			// GLOB_NOMATCH in the teacher's source: fall back to the
			// literal field text.
			out = append(out, piecesText(fp))
			continue
		}
		if len(matches) == 0 {
			out = append(out, piecesText(fp))
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}
