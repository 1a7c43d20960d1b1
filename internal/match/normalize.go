package match

import (
	"regexp"
	"strings"
)

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// Normalize canonicalizes a free-text name for comparison: lower-case,
// parenthesized content removed, whitespace collapsed, the punctuation set
// {. , - _} stripped. The ordering matters: parentheticals go before
// punctuation so "Makati Medical Center (MMC)" becomes "makati medical
// center" with no stray remnants. Empty input yields the empty string.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = parenthetical.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '-', '_':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// Abbreviation derives the short form used by the matching cascade: a
// single-token name is returned as is, otherwise the first token plus the
// first three characters of the second ("jks technology" -> "jks tec").
func Abbreviation(name string) string {
	tokens := strings.Fields(Normalize(name))
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) == 1 {
		return tokens[0]
	}
	second := []rune(tokens[1])
	if len(second) > 3 {
		second = second[:3]
	}
	return tokens[0] + " " + string(second)
}

// FirstWords returns the first k whitespace-delimited tokens of the
// normalized form, joined by single spaces.
func FirstWords(name string, k int) string {
	if k <= 0 {
		return ""
	}
	tokens := strings.Fields(Normalize(name))
	if len(tokens) > k {
		tokens = tokens[:k]
	}
	return strings.Join(tokens, " ")
}

// Tokens returns the normalized form split into its whitespace tokens.
func Tokens(name string) []string {
	return strings.Fields(Normalize(name))
}
