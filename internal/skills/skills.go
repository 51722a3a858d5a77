// Package skills loads user-provided skill documents that condition the
// brief. Plain text and markdown are read as-is; PDFs get their text
// extracted.
package skills

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LoadDoc reads one skills document and returns its text content.
// The format is picked by extension: .pdf goes through text extraction,
// everything else is treated as UTF-8 text.
func LoadDoc(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return loadPDF(path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading skills doc: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// LoadDocs loads several documents and joins them with blank lines,
// skipping none: any unreadable file fails the whole load.
func LoadDocs(paths []string) (string, error) {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		text, err := LoadDoc(p)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	body, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(body); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
