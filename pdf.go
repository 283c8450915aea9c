package main

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // Margin in mm
	pdfLineHeight = 6   // Line height in mm
	pdfFontSize   = 10
	pdfFontFamily = "report" // family name for a registered UTF-8 font
)

// pdfLabels holds the captions of the PDF report.
type pdfLabels struct {
	Title, Path, Files, Strings, Chars, ChineseChars, Tokens, File string
}

var (
	chineseLabels = pdfLabels{
		Title: "YAML 引号字符串统计", Path: "扫描目录", Files: "找到 YAML 文件数", Strings: "找到字符串段数",
		Chars: "总字符数", ChineseChars: "总中文字符数", Tokens: "总token数", File: "文件",
	}
	// Core PDF fonts only cover cp1252, so the fallback report is in English.
	englishLabels = pdfLabels{
		Title: "Quoted string report", Path: "Scanned directory", Files: "YAML files", Strings: "Strings",
		Chars: "Characters", ChineseChars: "Chinese characters", Tokens: "Tokens", File: "File",
	}
)

// generatePDF writes the report for res to outputPath. fontFile, when set,
// must name a UTF-8 TrueType font able to render the paths and captions.
func generatePDF(path string, res *ScanResult, mode CountMode, withTokens bool, fontFile, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)

	labels := englishLabels
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontFile != "" {
		pdf.AddUTF8Font(pdfFontFamily, "", fontFile)
		labels = chineseLabels
		family = pdfFontFamily
		tr = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to load PDF font %s: %w", fontFile, err)
	}

	pdf.AddPage()
	contentWidth := float64(pdfPageWidth - 2*pdfMargin)

	pdf.SetFont(family, "", pdfFontSize+4)
	pdf.CellFormat(contentWidth, pdfLineHeight*2, tr(labels.Title), "", 1, "L", false, 0, "")

	charsLabel := labels.Chars
	if mode == CountChinese {
		charsLabel = labels.ChineseChars
	}
	pdf.SetFont(family, "", pdfFontSize)
	summary := []struct{ k, v string }{
		{labels.Path, path},
		{labels.Files, fmt.Sprint(len(res.Files))},
		{labels.Strings, fmt.Sprint(res.TotalStrings)},
		{charsLabel, fmt.Sprint(res.TotalChars)},
	}
	if withTokens {
		summary = append(summary, struct{ k, v string }{labels.Tokens, fmt.Sprint(res.TotalTokens)})
	}
	for _, line := range summary {
		pdf.CellFormat(contentWidth, pdfLineHeight, tr(line.k+": "+line.v), "", 1, "L", false, 0, "")
	}
	pdf.Ln(pdfLineHeight)

	// Per-file table, report order.
	numWidth := 28.0
	fileWidth := contentWidth - 2*numWidth
	if withTokens {
		fileWidth -= numWidth
	}
	header := func() {
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(fileWidth, pdfLineHeight, tr(labels.File), "1", 0, "L", true, 0, "")
		pdf.CellFormat(numWidth, pdfLineHeight, tr(charsLabel), "1", 0, "R", true, 0, "")
		last := 1
		if withTokens {
			last = 0
		}
		pdf.CellFormat(numWidth, pdfLineHeight, tr(labels.Strings), "1", last, "R", true, 0, "")
		if withTokens {
			pdf.CellFormat(numWidth, pdfLineHeight, tr(labels.Tokens), "1", 1, "R", true, 0, "")
		}
	}
	header()
	for _, f := range sortedRecords(res.Files) {
		pdf.CellFormat(fileWidth, pdfLineHeight, tr(f.File), "1", 0, "L", false, 0, "")
		pdf.CellFormat(numWidth, pdfLineHeight, fmt.Sprint(f.Chars), "1", 0, "R", false, 0, "")
		if withTokens {
			pdf.CellFormat(numWidth, pdfLineHeight, fmt.Sprint(f.Strings), "1", 0, "R", false, 0, "")
			pdf.CellFormat(numWidth, pdfLineHeight, fmt.Sprint(f.Tokens), "1", 1, "R", false, 0, "")
		} else {
			pdf.CellFormat(numWidth, pdfLineHeight, fmt.Sprint(f.Strings), "1", 1, "R", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	return nil
}
