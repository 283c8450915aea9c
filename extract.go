package main

import (
	"regexp"
	"strings"
)

// quotedPattern matches a double- or single-quoted span. (?s) lets a span cross line breaks.
var quotedPattern = regexp.MustCompile(`(?s)"((?:\\.|[^"\\])*)"|'((?:\\.|[^'\\])*)'`)

// ExtractQuoted returns the unescaped contents of every quoted string in text,
// in the order they appear. Unterminated quotes yield nothing.
func ExtractQuoted(text string) []string {
	matches := quotedPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	results := make([]string, 0, len(matches))
	for _, m := range matches {
		// m[2:4] is the double-quoted group, m[4:6] the single-quoted one.
		var s string
		if m[2] >= 0 {
			s = text[m[2]:m[3]]
		} else {
			s = text[m[4]:m[5]]
		}
		results = append(results, unescapeQuoted(s))
	}
	return results
}

// unescapeQuoted resolves \" then \' then \\. Each pass runs over the output of the previous one.
func unescapeQuoted(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\'`, `'`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}
