// Package textutil holds the sentence and word primitives shared by the
// extraction and enrichment stages. All offsets are byte offsets.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Span struct {
	Start int
	End   int
}

func (s Span) Text(body string) string {
	return body[s.Start:s.End]
}

func (s Span) Contains(start, end int) bool {
	return start >= s.Start && end <= s.End
}

type Token struct {
	Text  string
	Start int
	End   int
}

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "sr": true, "jr": true,
	"st": true, "inc": true, "ltd": true, "co": true, "corp": true, "vs": true, "etc": true,
	"no": true, "dept": true, "est": true, "approx": true, "fig": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true, "aug": true,
	"sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
	"e.g": true, "i.e": true, "u.s": true, "u.k": true,
}

// Sentences splits body into trimmed, non-empty sentence spans. A sentence ends
// at . ! or ? followed by whitespace, at a blank line, or at a line break whose
// next line does not start in lower case. Periods after abbreviations, single
// initials and inside numbers do not end a sentence.
func Sentences(body string) []Span {
	var spans []Span
	start := 0
	emit := func(end int) {
		if s, ok := trimSpan(body, start, end); ok {
			spans = append(spans, s)
		}
		start = end
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '.', '!', '?':
			j := i + 1
			for j < len(body) && strings.IndexByte(`.!?"')]`, body[j]) >= 0 {
				j++
			}
			if j < len(body) && !isSpaceByte(body[j]) {
				continue
			}
			if c == '.' && j == i+1 && !endsSentence(body, start, i) {
				continue
			}
			emit(j)
			i = j - 1
		case '\n':
			next := nextNonSpace(body, i+1)
			if next < 0 {
				continue
			}
			if strings.Count(body[i:next], "\n") >= 2 {
				emit(i)
				continue
			}
			r, _ := utf8.DecodeRuneInString(body[next:])
			if !unicode.IsLower(r) {
				emit(i)
			}
		}
	}
	emit(len(body))
	return spans
}

// endsSentence reports whether the period at dot closes a sentence.
func endsSentence(body string, start, dot int) bool {
	if dot+1 < len(body) && dot > 0 && isDigit(body[dot-1]) && isDigit(body[dot+1]) {
		return false
	}
	w := dot
	for w > start && !isSpaceByte(body[w-1]) && body[w-1] != '(' {
		w--
	}
	word := strings.ToLower(strings.Trim(body[w:dot], `"'(`))
	if word == "" {
		return true
	}
	if abbreviations[word] {
		return false
	}
	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(body[w:dot])
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// Words returns word tokens: runs of letters and digits, allowing inner
// apostrophes, hyphens, periods and commas between alphanumerics.
func Words(body string) []Token {
	var tokens []Token
	i := 0
	for i < len(body) {
		r, size := utf8.DecodeRuneInString(body[i:])
		if !isWordRune(r) {
			i += size
			continue
		}
		start := i
		i += size
		for i < len(body) {
			r, size = utf8.DecodeRuneInString(body[i:])
			if isWordRune(r) {
				i += size
				continue
			}
			if strings.ContainsRune(`'’-.,`, r) && i+size < len(body) {
				nr, _ := utf8.DecodeRuneInString(body[i+size:])
				if isWordRune(nr) && (r != ',' && r != '.' || isDigitRune(nr) && isDigitRune(lastRune(body[start:i]))) {
					i += size
					continue
				}
			}
			break
		}
		tokens = append(tokens, Token{Text: body[start:i], Start: start, End: i})
	}
	return tokens
}

func CountWords(body string) int {
	return len(Words(body))
}

// Lines splits body on newlines without dropping empty lines.
func Lines(body string) []string {
	if body == "" {
		return nil
	}
	return strings.Split(body, "\n")
}

// Normalize trims, collapses inner whitespace and case-folds s.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Excerpt returns at most max runes of s with an ellipsis when truncated.
func Excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// PrintableRatio is the share of runes in s that are graphic or whitespace.
func PrintableRatio(s string) float64 {
	total, printable := 0, 0
	for _, r := range s {
		total++
		if r != utf8.RuneError && (unicode.IsGraphic(r) || unicode.IsSpace(r)) {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}

// AlnumCount counts letters and digits in s.
func AlnumCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func trimSpan(body string, start, end int) (Span, bool) {
	for start < end && isSpaceByte(body[start]) {
		start++
	}
	for end > start && isSpaceByte(body[end-1]) {
		end--
	}
	return Span{Start: start, End: end}, end > start
}

func nextNonSpace(body string, i int) int {
	for ; i < len(body); i++ {
		if !isSpaceByte(body[i]) {
			return i
		}
	}
	return -1
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigitRune(r rune) bool {
	return r >= '0' && r <= '9'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
