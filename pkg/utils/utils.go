// Package utils provides common helpers for Chatooli: content formatting
// with line numbers, binary file detection, and slug generation for
// workspace artifacts.
package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ContentWithLineNumber formats a slice of strings by prefixing each line with its
// line number starting from the given offset, with appropriate padding for alignment.
func ContentWithLineNumber(lines []string, offset int) string {
	var result strings.Builder
	maxLineWidth := 1

	if len(lines) > 0 {
		maxLineNum := offset + len(lines) - 1
		maxLineWidth = len(strconv.Itoa(maxLineNum))
	}

	for i, line := range lines {
		lineNum := offset + i
		result.WriteString(fmt.Sprintf("%*d: %s\n", maxLineWidth, lineNum, line))
	}

	return result.String()
}

// IsBinaryFile checks if a file is binary by reading the first 512 bytes
// and looking for NULL bytes which indicate binary content.
func IsBinaryFile(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil {
		return false
	}

	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}

	return false
}

// Slugify turns free text into a lowercase hyphenated identifier suitable
// for a filename. Non-alphanumeric runs collapse to a single hyphen; the
// result is trimmed to maxLen characters.
func Slugify(text string, maxLen int) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	lastHyphen := true
	for _, r := range lower {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}
	return slug
}
