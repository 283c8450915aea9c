package main

import (
	"unicode"
	"unicode/utf8"
)

// chineseRanges covers the CJK Unified Ideographs, extensions A-E and the
// compatibility ideograph blocks. Ranges must stay sorted for unicode.Is.
var chineseRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1},
		{Lo: 0xF900, Hi: 0xFAFF, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x20000, Hi: 0x2A6DF, Stride: 1},
		{Lo: 0x2A700, Hi: 0x2B73F, Stride: 1},
		{Lo: 0x2B740, Hi: 0x2B81F, Stride: 1},
		{Lo: 0x2B820, Hi: 0x2CEAF, Stride: 1},
		{Lo: 0x2F800, Hi: 0x2FA1F, Stride: 1},
	},
}

// IsChinese reports whether r is a Chinese ideograph.
func IsChinese(r rune) bool {
	return unicode.Is(chineseRanges, r)
}

// CountChars counts the characters of s according to mode.
func CountChars(s string, mode CountMode) int {
	if mode != CountChinese {
		return utf8.RuneCountInString(s)
	}
	n := 0
	for _, r := range s {
		if IsChinese(r) {
			n++
		}
	}
	return n
}

// countAll sums CountChars over every extracted string.
func countAll(strs []string, mode CountMode) int {
	total := 0
	for _, s := range strs {
		total += CountChars(s, mode)
	}
	return total
}
