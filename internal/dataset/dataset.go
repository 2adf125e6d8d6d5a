// Package dataset loads line-oriented text corpora into memory and writes
// them back out. One sentence per line, newline-terminated.
package dataset

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"
)

// maxLineBytes bounds a single line; validation corpora occasionally carry
// very long segments (whole paragraphs), well past bufio's 64K default.
const maxLineBytes = 16 * 1024 * 1024

// TextLineDataset is an ordered, in-memory sequence of lines.
type TextLineDataset struct {
	lines []string
}

// LoadIntoMemory reads every line of path. The "\n" or "\r\n" terminator is
// stripped from each line; any other carriage return is kept.
func LoadIntoMemory(path string) (*TextLineDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &TextLineDataset{lines: lines}, nil
}

func (d *TextLineDataset) Len() int {
	return len(d.lines)
}

func (d *TextLineDataset) Lines() []string {
	return d.lines
}

// WriteLines writes each line followed by a newline, truncating any existing
// content at path.
func WriteLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}

// Fingerprint returns a hex SHA-256 digest over the NFC-normalised lines.
// Two corpora that differ only in Unicode composition share a fingerprint.
func Fingerprint(lines []string) string {
	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(norm.NFC.String(line)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
