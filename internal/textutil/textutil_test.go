package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentenceTexts(body string) []string {
	var out []string
	for _, s := range Sentences(body) {
		out = append(out, s.Text(body))
	}
	return out
}

func TestSentences(t *testing.T) {
	body := "Dr. Smith paid $1,250.50 to Acme Inc. on Monday. Was it enough? Yes!"
	assert.Equal(t, []string{
		"Dr. Smith paid $1,250.50 to Acme Inc. on Monday.",
		"Was it enough?",
		"Yes!",
	}, sentenceTexts(body))
}

func TestSentencesLineBreaks(t *testing.T) {
	body := "Quarterly report\nprepared by the finance team\n\nRevenue grew\nCosts fell"
	assert.Equal(t, []string{
		"Quarterly report\nprepared by the finance team",
		"Revenue grew",
		"Costs fell",
	}, sentenceTexts(body))
}

func TestSentencesInitialsAndQuotes(t *testing.T) {
	body := `J. R. Tolkien wrote it. "It was done." Then it ended.`
	assert.Equal(t, []string{
		"J. R. Tolkien wrote it.",
		`"It was done."`,
		"Then it ended.",
	}, sentenceTexts(body))
}

func TestSentencesEmpty(t *testing.T) {
	assert.Empty(t, Sentences(""))
	assert.Empty(t, Sentences("   \n\n  "))
}

func TestSentenceOffsetsAreTrimmed(t *testing.T) {
	body := "  One.   Two.  "
	spans := Sentences(body)
	require.Len(t, spans, 2)
	assert.Equal(t, Span{Start: 2, End: 6}, spans[0])
	assert.Equal(t, "Two.", spans[1].Text(body))
}

func TestWords(t *testing.T) {
	body := "It's a well-known fact: 1,250.00 dollars."
	var texts []string
	for _, w := range Words(body) {
		texts = append(texts, w.Text)
		assert.Equal(t, w.Text, body[w.Start:w.End])
	}
	assert.Equal(t, []string{"It's", "a", "well-known", "fact", "1,250.00", "dollars"}, texts)
	assert.Equal(t, 0, CountWords(""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "acme corp", Normalize("  ACME\t Corp "))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 10))
	assert.Equal(t, "abc...", Excerpt("abc def", 4))
}

func TestPrintableRatio(t *testing.T) {
	assert.Equal(t, 1.0, PrintableRatio("plain text\n"))
	assert.Less(t, PrintableRatio("\x00\x01\x02ab"), 0.5)
	assert.Equal(t, 0.0, PrintableRatio(""))
}
