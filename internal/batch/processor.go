package batch

import (
	"fmt"
	"os"
	"strings"
)

// ReadQueryFile reads search queries from a file, one per line. Blank lines
// and lines starting with '#' are skipped, surrounding whitespace is trimmed.
// Duplicate queries are kept since a bulk search runs each line.
func ReadQueryFile(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return ParseQueries(string(content)), nil
}

// ParseQueries splits text into queries using the batch file rules
func ParseQueries(text string) []string {
	queries := []string{}
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries
}

// splitLines splits a string by newlines, accepting CRLF endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
