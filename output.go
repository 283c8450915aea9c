package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// sortedRecords returns a copy of files ordered by descending character
// count, ties broken by ascending path.
func sortedRecords(files []FileRecord) []FileRecord {
	out := make([]FileRecord, len(files))
	copy(out, files)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Chars != out[j].Chars {
			return out[i].Chars > out[j].Chars
		}
		return out[i].File < out[j].File
	})
	return out
}

// renderText generates the human-readable report.
func renderText(path string, res *ScanResult, mode CountMode, withTokens bool) string {
	var builder strings.Builder
	fmt.Fprintln(&builder, "扫描目录:", path)
	fmt.Fprintln(&builder, "找到 YAML 文件数:", len(res.Files))
	fmt.Fprintln(&builder, "找到字符串段数:", res.TotalStrings)
	if mode == CountChinese {
		fmt.Fprintln(&builder, "总中文字符数:", res.TotalChars)
	} else {
		fmt.Fprintln(&builder, "总字符数:", res.TotalChars)
	}
	if withTokens {
		fmt.Fprintln(&builder, "总token数:", res.TotalTokens)
	}

	builder.WriteString("\n每个文件统计:\n")
	for _, f := range sortedRecords(res.Files) {
		if mode == CountChinese {
			fmt.Fprintf(&builder, "%s: 中文字符数=%d, 字符串段数=%d", f.File, f.Chars, f.Strings)
		} else {
			fmt.Fprintf(&builder, "%s: 字符数=%d, 字符串段数=%d", f.File, f.Chars, f.Strings)
		}
		if withTokens {
			fmt.Fprintf(&builder, ", token数=%d", f.Tokens)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// renderJSON encodes res with two-space indentation. Non-ASCII text is kept
// literal and HTML characters are not escaped.
func renderJSON(res *ScanResult) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.String(), nil
}

// renderYAML encodes res as a YAML document.
func renderYAML(res *ScanResult) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.String(), nil
}

// outputTarget says where a rendered report goes.
type outputTarget struct {
	File      string
	Clipboard bool
}

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

// writeOutput sends the rendered report to a file, the clipboard or stdout.
// A failed clipboard copy falls back to stdout.
func writeOutput(stdout io.Writer, target outputTarget, rendered string, logger *zap.Logger) error {
	switch {
	case target.File != "":
		if err := os.WriteFile(target.File, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", target.File, err)
		}
		logger.Debug("output saved", zap.String("file", target.File))
	case target.Clipboard:
		if err := clipboardWrite(rendered); err != nil {
			logger.Warn("error writing to clipboard, printing instead", zap.Error(err))
			_, err = io.WriteString(stdout, rendered)
			return err
		}
		logger.Debug("output copied to clipboard")
	default:
		_, err := io.WriteString(stdout, rendered)
		return err
	}
	return nil
}
