package types

import (
	"strings"
	"unicode"
)

// TaggedToken is a word with its part-of-speech tag. An empty Tag means the
// corpus carried no tag for the word.
type TaggedToken struct {
	Word string `json:"word"`
	Tag  string `json:"tag"`
}

func (token TaggedToken) String() string {
	if token.Tag == "" {
		return token.Word
	}
	return token.Word + "/" + token.Tag
}

// GetShape maps digits to 'd', upper case letters to 'X' and everything else
// to 'x'.
func GetShape(txt string) string {
	var sb strings.Builder
	for _, r := range txt {
		switch {
		case unicode.IsDigit(r):
			sb.WriteRune('d')
		case unicode.IsUpper(r):
			sb.WriteRune('X')
		default:
			sb.WriteRune('x')
		}
	}

	return sb.String()
}

// GetCompactShape collapses runs of the same shape character, so "McDonald's"
// becomes "XxXx".
func GetCompactShape(txt string) string {
	var sb strings.Builder
	var last rune
	for _, r := range GetShape(txt) {
		if r == last {
			continue
		}
		sb.WriteRune(r)
		last = r
	}
	return sb.String()
}
