package lexer

// Kind distinguishes the handful of things the lexer itself recognizes:
// plain tokens (left to the parser/word-parser to interpret), the named
// multi-byte operators, newline, and end of input.
type Kind int

const (
	TOKEN Kind = iota
	NEWLINE
	EOF

	AND_IF   // &&
	OR_IF    // ||
	DSEMI    // ;;
	DLESS    // <<
	DGREAT   // >>
	LESSAND  // <&
	GREATAND // >&
	LESSGREAT // <>
	DLESSDASH // <<-
	CLOBBER   // >|

	AMP    // &
	PIPE   // |
	SEMI   // ;
	LESS   // <
	GREAT  // >
	LPAREN // (
	RPAREN // )
)

// Token is the lexer's atomic output. For TOKEN and NEWLINE, Literal is
// informational only — the parser re-derives word boundaries itself via
// PeekWordLen; Token exists mainly to report the operator tokens and to
// let the parser recognize statement/pipe boundaries cheaply.
type Token struct {
	Kind    Kind
	Literal string
	Line    int
	Column  int
}

var reservedWords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"do": true, "done": true, "case": true, "esac": true,
	"while": true, "until": true, "for": true, "in": true,
	"{": true, "}": true, "!": true,
}

// IsReservedWord reports whether s is one of the words that are
// reserved only in command-name / compound-terminator position
// (spec.md §4.3).
func IsReservedWord(s string) bool {
	return reservedWords[s]
}

const aliasNameChars = "_%!,@"

// IsAliasNameByte reports whether b may appear in an alias name, per
// spec.md §4.3's alias-name character set.
func IsAliasNameByte(b byte) bool {
	if b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' {
		return true
	}
	for i := 0; i < len(aliasNameChars); i++ {
		if aliasNameChars[i] == b {
			return true
		}
	}
	return false
}

func isNameStart(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func isNameByte(b byte) bool {
	return isNameStart(b) || b >= '0' && b <= '9'
}

// IsNameStart and IsNameByte are exported for pkg/parser's assignment
// and variable-name recognition.
func IsNameStart(b byte) bool { return isNameStart(b) }
func IsNameByte(b byte) bool  { return isNameByte(b) }

func isBlank(b byte) bool { return b == ' ' || b == '\t' }
