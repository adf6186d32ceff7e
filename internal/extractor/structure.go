package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

var (
	listItemPattern   = regexp.MustCompile(`^\s*(?:[-*•●▪‣◦]|\d{1,3}[.)]|[a-zA-Z][.)])\s+\S`)
	multiSpacePattern = regexp.MustCompile(` {2,}`)
)

const (
	minListLines   = 3
	minHeaderLines = 3
	minHeaderLen   = 5
)

type delimiterKind int

const (
	delimNone delimiterKind = iota
	delimPipe
	delimTab
	delimSpaces
)

// DetectStructure derives line statistics and table, list and header flags.
// A line is a table row when it carries at least two delimiters of one kind
// and an adjacent line carries the same number of the same kind.
func DetectStructure(body string) models.Structure {
	var s models.Structure
	if body == "" {
		return s
	}
	lines := strings.Split(body, "\n")
	s.TotalLines = len(lines)

	totalLen, listLines, headerLines := 0, 0, 0
	kinds := make([]delimiterKind, len(lines))
	counts := make([]int, len(lines))
	for i, line := range lines {
		kinds[i], counts[i] = columnDelimiters(line)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		s.NonEmptyLines++
		totalLen += len([]rune(trimmed))
		if listItemPattern.MatchString(line) {
			listLines++
		}
		if isHeaderLine(trimmed) {
			headerLines++
		}
	}

	for i := range lines {
		if kinds[i] == delimNone {
			continue
		}
		if (i > 0 && kinds[i-1] == kinds[i] && counts[i-1] == counts[i]) ||
			(i+1 < len(lines) && kinds[i+1] == kinds[i] && counts[i+1] == counts[i]) {
			s.HasTables = true
			break
		}
	}

	if s.NonEmptyLines > 0 {
		s.AverageLineLength = float64(totalLen) / float64(s.NonEmptyLines)
	}
	s.HasLists = listLines >= minListLines
	s.HasHeaders = headerLines >= minHeaderLines
	return s
}

func columnDelimiters(line string) (delimiterKind, int) {
	trimmed := strings.TrimSpace(line)
	if n := strings.Count(trimmed, "|"); n >= 2 {
		return delimPipe, n
	}
	if n := strings.Count(strings.Trim(line, " \r"), "\t"); n >= 2 {
		return delimTab, n
	}
	if n := len(multiSpacePattern.FindAllStringIndex(trimmed, -1)); n >= 2 {
		return delimSpaces, n
	}
	return delimNone, 0
}

func isHeaderLine(line string) bool {
	if len([]rune(line)) <= minHeaderLen {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
