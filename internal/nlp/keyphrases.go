package nlp

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
)

const (
	DefaultTopPhrases    = 10
	DefaultMaxPhraseSize = 4
)

// KeyPhraseExtractor ranks stopword-delimited word runs. A phrase scores its
// frequency divided by its word count, so short frequent phrases rank first.
type KeyPhraseExtractor struct {
	lex      *Lexicon
	TopN     int
	MaxWords int
}

func NewKeyPhraseExtractor(lex *Lexicon) *KeyPhraseExtractor {
	return &KeyPhraseExtractor{lex: lex, TopN: DefaultTopPhrases, MaxWords: DefaultMaxPhraseSize}
}

type phraseStat struct {
	text  string
	words int
	count int
	first int
}

func (k *KeyPhraseExtractor) Extract(ctx context.Context, text string) ([]models.KeyPhrase, error) {
	maxWords := k.MaxWords
	if maxWords <= 0 {
		maxWords = DefaultMaxPhraseSize
	}
	stats := map[string]*phraseStat{}
	order := 0

	add := func(words []string) {
		for len(words) > 0 {
			n := min(len(words), maxWords)
			phrase := strings.Join(words[:n], " ")
			words = words[n:]
			if n == 1 && len([]rune(phrase)) < 3 {
				continue
			}
			st, ok := stats[phrase]
			if !ok {
				st = &phraseStat{text: phrase, words: n, first: order}
				stats[phrase] = st
				order++
			}
			st.count++
		}
	}

	for _, sentence := range textutil.Sentences(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body := sentence.Text(text)
		tokens := textutil.Words(body)
		var current []string
		prevEnd := -1
		for _, tok := range tokens {
			word := strings.ToLower(tok.Text)
			// punctuation between words breaks a phrase
			if prevEnd >= 0 && strings.TrimSpace(body[prevEnd:tok.Start]) != "" {
				add(current)
				current = nil
			}
			prevEnd = tok.End
			if k.lex.stopwords.has(word) || !hasLetter(word) {
				add(current)
				current = nil
				continue
			}
			current = append(current, word)
		}
		add(current)
	}

	ranked := make([]*phraseStat, 0, len(stats))
	for _, st := range stats {
		ranked = append(ranked, st)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si := float64(ranked[i].count) / float64(ranked[i].words)
		sj := float64(ranked[j].count) / float64(ranked[j].words)
		if si != sj {
			return si > sj
		}
		return ranked[i].first < ranked[j].first
	})

	top := k.TopN
	if top <= 0 {
		top = DefaultTopPhrases
	}
	out := make([]models.KeyPhrase, 0, min(top, len(ranked)))
	for _, st := range ranked {
		if len(out) == top {
			break
		}
		out = append(out, models.KeyPhrase{
			Text:  st.text,
			Score: float64(st.count) / float64(st.words),
		})
	}
	return out, nil
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
