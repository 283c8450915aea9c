package main

// CountMode selects which characters of a quoted string are counted.
type CountMode int

const (
	CountAll     CountMode = iota // every code point
	CountChinese                  // CJK ideographs only
)

func (m CountMode) String() string {
	if m == CountChinese {
		return "chinese"
	}
	return "all"
}

// FileRecord is the tally for a single scanned file.
type FileRecord struct {
	File    string `json:"file" yaml:"file"`
	Strings int    `json:"strings" yaml:"strings"`
	Chars   int    `json:"chars" yaml:"chars"`
	Tokens  int    `json:"tokens,omitempty" yaml:"tokens,omitempty"` // Populated if token estimation is enabled
}

// ScanResult holds every FileRecord of one invocation and the aggregated totals.
type ScanResult struct {
	Files        []FileRecord `json:"files" yaml:"files"`
	TotalStrings int          `json:"total_strings" yaml:"total_strings"`
	TotalChars   int          `json:"total_chars" yaml:"total_chars"`
	TotalTokens  int          `json:"total_tokens,omitempty" yaml:"total_tokens,omitempty"`
}

// add appends a record and keeps the totals in step with it.
func (r *ScanResult) add(rec FileRecord) {
	r.Files = append(r.Files, rec)
	r.TotalStrings += rec.Strings
	r.TotalChars += rec.Chars
	r.TotalTokens += rec.Tokens
}
