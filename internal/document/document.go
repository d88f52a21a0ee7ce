// Package document turns uploaded documents into plain text.
package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"
)

const maxResumeTextBytes = 64 << 10

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// PDFText extracts the plain text of a PDF, collapsed to single spaces and capped for indexing.
func PDFText(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(io.LimitReader(plain, maxResumeTextBytes*2))
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	text = collapse(string(raw))
	if len(text) > maxResumeTextBytes {
		text = truncateRunes(text, maxResumeTextBytes)
	}
	return text, nil
}

// HTMLText strips markup from rich-text content.
func HTMLText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return collapse(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapse(html)
	}
	doc.Find("script, style").Remove()
	return collapse(doc.Text())
}

// richText allows formatting, lists, tables, images and http(s)/mailto links. Anything else,
// including unparseable URLs, is removed. Policies are safe for concurrent use.
var richText = bluemonday.UGCPolicy()

// CleanHTML reduces rich text to the allowed markup.
func CleanHTML(html string) string {
	return strings.TrimSpace(richText.Sanitize(html))
}

// Excerpt returns at most maxRunes runes of the plain text of html, ending with "..." when cut.
func Excerpt(html string, maxRunes int) string {
	text := HTMLText(html)
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	cut := strings.TrimSpace(string(runes[:maxRunes-3]))
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, maxBytes int) string {
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
