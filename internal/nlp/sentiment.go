package nlp

import (
	"context"
	"math"
	"strings"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
)

const (
	DefaultChunkSentences = 5
	// labelThreshold is the minimum absolute chunk score for a non-neutral label.
	labelThreshold = 0.05
	// normalizationAlpha squashes raw lexicon sums into [-1, 1].
	normalizationAlpha = 15.0
	negationWindow     = 3
	intensifierBoost   = 1.5
)

// SentimentAnalyzer scores fixed-size sentence chunks against the lexicon.
type SentimentAnalyzer struct {
	lex            *Lexicon
	ChunkSentences int
}

func NewSentimentAnalyzer(lex *Lexicon) *SentimentAnalyzer {
	return &SentimentAnalyzer{lex: lex, ChunkSentences: DefaultChunkSentences}
}

// Analyze labels each chunk and takes a majority vote. A tie for the most
// frequent label, or no chunks at all, yields neutral.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, text string) (models.SentimentResult, error) {
	res := models.NewSentimentResult()
	size := a.ChunkSentences
	if size <= 0 {
		size = DefaultChunkSentences
	}

	sentences := textutil.Sentences(text)
	var sum float64
	for i := 0; i < len(sentences); i += size {
		if err := ctx.Err(); err != nil {
			return models.SentimentResult{}, err
		}
		end := min(i+size, len(sentences))
		chunk := text[sentences[i].Start:sentences[end-1].End]

		score := a.scoreChunk(chunk)
		label := labelFor(score)
		res.Chunks = append(res.Chunks, models.ChunkSentiment{
			Index:   len(res.Chunks),
			Label:   label,
			Score:   score,
			Excerpt: textutil.Excerpt(chunk, 160),
		})
		switch label {
		case models.SentimentPositive:
			res.PositiveChunks++
		case models.SentimentNegative:
			res.NegativeChunks++
		default:
			res.NeutralChunks++
		}
		sum += score
	}

	res.TotalChunks = len(res.Chunks)
	if res.TotalChunks > 0 {
		res.AverageScore = sum / float64(res.TotalChunks)
	}
	res.OverallSentiment = majority(res.PositiveChunks, res.NegativeChunks, res.NeutralChunks)
	return res, nil
}

func (a *SentimentAnalyzer) scoreChunk(chunk string) float64 {
	words := textutil.Words(chunk)
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w.Text)
	}

	var raw float64
	for i, w := range lower {
		var v float64
		switch {
		case a.lex.positive.has(w):
			v = 1
		case a.lex.negative.has(w):
			v = -1
		default:
			continue
		}
		if i > 0 && a.lex.intensifiers.has(lower[i-1]) {
			v *= intensifierBoost
		}
		for k := max(0, i-negationWindow); k < i; k++ {
			if a.lex.negators.has(lower[k]) || strings.HasSuffix(lower[k], "n't") {
				v = -v
				break
			}
		}
		raw += v
	}
	if raw == 0 {
		return 0
	}
	return raw / math.Sqrt(raw*raw+normalizationAlpha)
}

func labelFor(score float64) string {
	switch {
	case score >= labelThreshold:
		return models.SentimentPositive
	case score <= -labelThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func majority(pos, neg, neu int) string {
	switch {
	case pos > neg && pos > neu:
		return models.SentimentPositive
	case neg > pos && neg > neu:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
