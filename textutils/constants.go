// Package textutils provides shared string and rune constants used across
// the codec, config, logging, REST client/server and routing packages so
// that common separators are never hand-typed as string literals.
package textutils

const (
	EmptyStr       = ""
	ColonStr       = ":"
	EqualStr       = "="
	SemiColonStr   = ";"
	ForwardSlashStr = "/"
	PeriodStr      = "."
	NewLineString  = "\n"
	WhiteSpaceStr  = " "
	CloseBraceStr  = "}"
)

const (
	ColonChar       = ':'
	EqualChar       = '='
	BackSlashChar   = '\\'
	HashChar        = '#'
	DollarChar      = '$'
	OpenBraceChar   = '{'
	CloseBraceChar  = '}'
	ForwardSlashChar = '/'
	ALowerChar      = 'a'
	ZLowerChar      = 'z'
	AUpperChar      = 'A'
	ZUpperChar      = 'Z'
)
