package expand

import (
	"strings"
	"unicode"
)

// resolveIFS reports the effective $IFS and whether splitting should
// happen at all. An unset IFS defaults to " \t\n"; IFS set to the empty
// string disables field splitting entirely, per spec.md §4.4 item 5.
func resolveIFS(env Env) (ifs string, splitAtAll bool) {
	v, set := env.IFS()
	if !set {
		return " \t\n", true
	}
	if v == "" {
		return "", false
	}
	return v, true
}

// fieldSplitter is a direct port of the teacher's split_fields_data /
// _split_fields / add_to_cur_field, operating over a flat []piece
// instead of a word tree. curIdx == -1 means "no field is currently
// open" — the next piece of output starts a brand new field, exactly
// like add_to_cur_field creating a fresh cur_field when it is NULL.
type fieldSplitter struct {
	fields        [][]piece
	curIdx        int
	ifs           string
	ifsNonSpace   string
	inIFS         bool
	inIFSNonSpace bool
}

func newFieldSplitter(ifs string) *fieldSplitter {
	var nonSpace strings.Builder
	for _, r := range ifs {
		if !unicode.IsSpace(r) {
			nonSpace.WriteRune(r)
		}
	}
	return &fieldSplitter{curIdx: -1, ifs: ifs, ifsNonSpace: nonSpace.String(), inIFS: true}
}

func (s *fieldSplitter) addToCur(p piece) {
	if s.curIdx == -1 {
		s.fields = append(s.fields, nil)
		s.curIdx = len(s.fields) - 1
	}
	s.fields[s.curIdx] = append(s.fields[s.curIdx], p)
	if p.forceFieldBreak {
		s.curIdx = -1
	}
}

// addLiteral appends a non-split-eligible piece whole to the current
// field, mirroring add_to_cur_field's single-quoted/split_fields=false
// branch: the IFS state resets so a following split-eligible piece
// starts scanning fresh.
func (s *fieldSplitter) addLiteral(p piece) {
	s.addToCur(p)
	s.inIFS, s.inIFSNonSpace = false, false
}

// scan walks a split-eligible piece's text byte by byte, exactly like
// _split_fields's inner loop: whitespace IFS bytes collapse without
// producing empty fields; non-whitespace IFS bytes always delimit, even
// adjacent to each other.
func (s *fieldSplitter) scan(p piece) {
	var buf strings.Builder
	flush := func() {
		s.addToCur(piece{text: buf.String(), splitOK: true})
		buf.Reset()
	}

	for i := 0; i < len(p.text); i++ {
		c := p.text[i]
		if !strings.ContainsRune(s.ifs, rune(c)) {
			buf.WriteByte(c)
			s.inIFS, s.inIFSNonSpace = false, false
			continue
		}

		isNonSpace := strings.ContainsRune(s.ifsNonSpace, rune(c))
		switch {
		case !s.inIFS || (isNonSpace && s.inIFSNonSpace):
			flush()
			s.curIdx = -1
			s.inIFS = true
			s.inIFSNonSpace = isNonSpace
		case isNonSpace:
			s.inIFSNonSpace = true
		}
	}

	if !s.inIFS {
		flush()
	}
}

// splitFieldsPieces is field splitting proper (spec.md §4.4 item 5). It
// returns one []piece per field rather than collapsing straight to
// plain strings, because pathname expansion still needs to know which
// parts of each field came from quotes (so their glob metacharacters
// stay literal).
func splitFieldsPieces(pieces []piece, ifs string, splitAtAll bool) [][]piece {
	if !splitAtAll {
		return [][]piece{pieces}
	}

	s := newFieldSplitter(ifs)
	for _, p := range pieces {
		if p.splitOK {
			s.scan(p)
		} else {
			s.addLiteral(p)
		}
	}
	return s.fields
}
