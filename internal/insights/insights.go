// Package insights derives a summary, findings, recommendations and an
// overall confidence from a finished analysis.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

const (
	MaxFindings = 5

	weightClassification = 0.4
	weightCoverage       = 0.2
	weightStages         = 0.4

	nlpStages = 4
)

// Synthesize reads every other section of a and never modifies it.
func Synthesize(a *models.Analysis) models.Insights {
	return models.Insights{
		Summary:         summary(a),
		Confidence:      Confidence(a),
		KeyFindings:     findings(a),
		Recommendations: recommendations(a),
	}
}

// Confidence is a weighted mean of classification confidence, entity
// coverage (entities per word, capped at 1) and the share of NLP stages that
// did not degrade.
func Confidence(a *models.Analysis) float64 {
	coverage := 0.0
	if a.Statistics.TotalWords > 0 {
		coverage = math.Min(1, float64(a.Entities.TotalEntities)/float64(a.Statistics.TotalWords))
	}
	healthy := nlpStages - len(a.DegradedStages)
	stages := float64(max(healthy, 0)) / nlpStages

	c := weightClassification*clamp01(a.Classification.Confidence) +
		weightCoverage*coverage +
		weightStages*stages
	return math.Round(clamp01(c)*1000) / 1000
}

func summary(a *models.Analysis) string {
	var parts []string
	category := a.Classification.Category
	if category == "" || category == models.CategoryOther {
		parts = append(parts, "The document type could not be determined with confidence.")
	} else {
		parts = append(parts, fmt.Sprintf("This appears to be %s %s document (confidence %.0f%%).",
			article(category), category, a.Classification.Confidence*100))
	}
	if s := a.Sentiment.OverallSentiment; s != "" {
		parts = append(parts, fmt.Sprintf("The overall sentiment is %s.", s))
	}
	if n := a.Entities.TotalEntities; n > 0 {
		parts = append(parts, fmt.Sprintf("It mentions %s %s across %s %s.",
			humanize.Comma(int64(n)), plural(n, "entity", "entities"),
			humanize.Comma(int64(len(a.Entities.EntityTypes))), plural(len(a.Entities.EntityTypes), "type", "types")))
	}
	if w := a.Statistics.TotalWords; w > 0 {
		parts = append(parts, fmt.Sprintf("The text runs to about %s words.", humanize.Comma(int64(w))))
	}
	return strings.Join(parts, " ")
}

func findings(a *models.Analysis) []string {
	out := []string{}

	if typ, n := dominantType(a.Entities.EntityTypes); n > 0 {
		out = append(out, fmt.Sprintf("Most frequent entity type: %s (%d %s)", typ, n, plural(n, "mention", "mentions")))
	}
	if node, ok := largestNode(a.KnowledgeGraph); ok && node.Size > 0 {
		out = append(out, fmt.Sprintf("%s is the most connected entity, linked to %d %s",
			node.Label, node.Size, plural(node.Size, "other", "others")))
	}
	if c, ok := extremeChunk(a.Sentiment.Chunks); ok {
		out = append(out, fmt.Sprintf("Strongest %s passage (score %.2f): %q", c.Label, c.Score, c.Excerpt))
	}
	if total := a.Sentiment.TotalChunks; total > 0 && a.Sentiment.PositiveChunks > 0 {
		out = append(out, fmt.Sprintf("%.1f%% of the content reads as positive",
			100*float64(a.Sentiment.PositiveChunks)/float64(total)))
	}
	if n := len(a.Timeline); n > 0 {
		out = append(out, fmt.Sprintf("References %d specific %s, from %s to %s",
			n, plural(n, "date", "dates"), a.Timeline[0].Date, a.Timeline[n-1].Date))
	}
	if len(out) > MaxFindings {
		out = out[:MaxFindings]
	}
	return out
}

func recommendations(a *models.Analysis) []string {
	out := []string{}
	switch a.Classification.Category {
	case "invoice":
		out = append(out, "Review payment terms and due dates", "Verify amounts and line items")
	case "contract":
		out = append(out, "Review all terms and conditions carefully", "Check effective dates and renewal clauses")
	case "receipt":
		out = append(out, "Match the transaction against account records")
	}
	if a.Sentiment.OverallSentiment == models.SentimentNegative {
		out = append(out, "Pay attention to concerns or issues raised in the document")
	}
	if a.Entities.EntityTypes[models.EntityPerson] > 0 {
		out = append(out, "Review mentions of key individuals")
	}
	if a.Entities.EntityTypes[models.EntityOrg] > 0 {
		out = append(out, "Verify organizational relationships")
	}
	if a.Structure.HasTables {
		out = append(out, "Extract the tabular data for structured follow-up")
	}
	if a.Structure.HasLists {
		out = append(out, "Track the enumerated items as action points")
	}
	if a.RequiresOCR && a.OCRConfidence != nil && *a.OCRConfidence < 60 {
		out = append(out, "Check the scanned text against the original; OCR confidence is low")
	}
	if a.Partial {
		out = append(out, fmt.Sprintf("Re-run analysis; degraded stages: %s", strings.Join(a.DegradedStages, ", ")))
	}
	return out
}

// dominantType breaks count ties by type name.
func dominantType(counts map[string]int) (string, int) {
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	best, n := "", 0
	for _, t := range types {
		if counts[t] > n {
			best, n = t, counts[t]
		}
	}
	return best, n
}

func largestNode(g models.KnowledgeGraph) (models.GraphNode, bool) {
	if len(g.Nodes) == 0 {
		return models.GraphNode{}, false
	}
	best := g.Nodes[0]
	for _, n := range g.Nodes[1:] {
		if n.Size > best.Size {
			best = n
		}
	}
	return best, true
}

// extremeChunk is the non-neutral chunk with the largest absolute score.
func extremeChunk(chunks []models.ChunkSentiment) (models.ChunkSentiment, bool) {
	var best models.ChunkSentiment
	found := false
	for _, c := range chunks {
		if c.Label == models.SentimentNeutral {
			continue
		}
		if !found || math.Abs(c.Score) > math.Abs(best.Score) {
			best, found = c, true
		}
	}
	return best, found
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
