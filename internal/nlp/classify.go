package nlp

import (
	"context"
	"strings"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

const DefaultMinConfidence = 0.3

// Classifier scores every category by keyword hits and normalizes the
// scores to sum to one.
type Classifier struct {
	lex           *Lexicon
	MinConfidence float64
}

func NewClassifier(lex *Lexicon) *Classifier {
	return &Classifier{lex: lex, MinConfidence: DefaultMinConfidence}
}

// Classify returns the best category. A tie for first place or a best score
// under MinConfidence collapses to "other"; Confidence still reports the best
// normalized score.
func (c *Classifier) Classify(ctx context.Context, text string) (models.ClassificationResult, error) {
	res := models.NewClassificationResult()
	lower := strings.ToLower(text)

	hits := make(map[string]int, len(c.lex.categories))
	total := 0
	for _, cat := range c.lex.categories {
		if err := ctx.Err(); err != nil {
			return models.ClassificationResult{}, err
		}
		n := 0
		for _, re := range cat.patterns {
			n += len(re.FindAllStringIndex(lower, -1))
		}
		hits[cat.name] = n
		total += n
	}
	if total == 0 {
		for name := range hits {
			res.Scores[name] = 0
		}
		return res, nil
	}

	best, bestScore, tied := "", -1.0, false
	for _, cat := range c.lex.categories {
		score := float64(hits[cat.name]) / float64(total)
		res.Scores[cat.name] = score
		switch {
		case score > bestScore:
			best, bestScore, tied = cat.name, score, false
		case score == bestScore:
			tied = true
		}
	}

	res.Confidence = bestScore
	if tied || bestScore < c.MinConfidence {
		return res, nil
	}
	res.Category = best
	return res, nil
}
