// Package report renders a stored analysis for export.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts json, markdown or md; empty means json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", utils.Wrap(utils.ErrInvalidInput, "report", "", fmt.Sprintf("unknown format %q, want json or markdown", s), nil)
}

func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "application/json"
}

// Render produces the report body in the requested format.
func Render(doc *models.Document, a *models.Analysis, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(struct {
			Document *models.Document `json:"document"`
			Analysis *models.Analysis `json:"analysis"`
		}{doc, a}, "", "  ")
	case FormatMarkdown:
		return []byte(markdown(doc, a)), nil
	}
	return nil, utils.Wrap(utils.ErrInvalidInput, "report", "", fmt.Sprintf("unknown format %q", f), nil)
}

func markdown(doc *models.Document, a *models.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis Report: %s\n\n", doc.Filename)
	fmt.Fprintf(&b, "- Document ID: `%s`\n", doc.ID)
	fmt.Fprintf(&b, "- Size: %s\n", humanize.Bytes(uint64(doc.FileSize)))
	fmt.Fprintf(&b, "- Extraction: %s", a.Strategy)
	if a.OCRConfidence != nil {
		fmt.Fprintf(&b, " (OCR confidence %.1f)", *a.OCRConfidence)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Analyzed: %s\n", a.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	if a.Partial {
		fmt.Fprintf(&b, "- **Partial analysis**; degraded stages: %s\n", strings.Join(a.DegradedStages, ", "))
	}
	for _, w := range a.Warnings {
		fmt.Fprintf(&b, "- Warning: %s\n", w)
	}

	section(&b, "Summary")
	b.WriteString(a.Insights.Summary + "\n")
	fmt.Fprintf(&b, "\nConfidence: %.0f%%\n", a.Insights.Confidence*100)

	section(&b, "Classification")
	fmt.Fprintf(&b, "**%s** (confidence %.0f%%)\n", a.Classification.Category, a.Classification.Confidence*100)
	if len(a.Classification.Scores) > 0 {
		b.WriteString("\n")
		b.WriteString(scoresTable(a.Classification.Scores))
		b.WriteString("\n")
	}

	section(&b, "Sentiment")
	s := a.Sentiment
	fmt.Fprintf(&b, "Overall **%s** (average score %.2f) across %d chunks: %d positive, %d negative, %d neutral.\n",
		s.OverallSentiment, s.AverageScore, s.TotalChunks, s.PositiveChunks, s.NegativeChunks, s.NeutralChunks)

	section(&b, "Entities")
	if a.Entities.TotalEntities == 0 {
		b.WriteString("No entities found.\n")
	} else {
		b.WriteString(entityTable(a.Entities))
		b.WriteString("\n")
	}

	section(&b, "Key Phrases")
	bullets(&b, keyPhraseLines(a.KeyPhrases), "No key phrases found.")

	section(&b, "Knowledge Graph")
	st := a.KnowledgeGraph.Statistics
	fmt.Fprintf(&b, "%d nodes, %d edges, density %.3f, connected: %t\n",
		st.TotalNodes, st.TotalEdges, st.Density, st.IsConnected)

	section(&b, "Timeline")
	lines := make([]string, 0, len(a.Timeline))
	for _, ev := range a.Timeline {
		line := "**" + ev.Date + "**: " + ev.Context
		if len(ev.RelatedEntities) > 0 {
			line += " _(" + strings.Join(ev.RelatedEntities, ", ") + ")_"
		}
		lines = append(lines, line)
	}
	bullets(&b, lines, "No dated events found.")

	section(&b, "Key Findings")
	bullets(&b, a.Insights.KeyFindings, "None.")

	section(&b, "Recommendations")
	bullets(&b, a.Insights.Recommendations, "None.")
	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
}

func bullets(b *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		b.WriteString(empty + "\n")
		return
	}
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
}

func keyPhraseLines(phrases []models.KeyPhrase) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = fmt.Sprintf("%s (%.2f)", p.Text, p.Score)
	}
	return out
}

func entityTable(c models.EntityCollection) string {
	types := make([]string, 0, len(c.UniqueEntities))
	for t := range c.UniqueEntities {
		types = append(types, t)
	}
	sort.Strings(types)

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Type", "Mentions", "Entities"})
	for _, t := range types {
		tw.AppendRow(table.Row{t, strconv.Itoa(c.EntityTypes[t]), strings.Join(c.UniqueEntities[t], ", ")})
	}
	return tw.RenderMarkdown()
}

func scoresTable(scores map[string]float64) string {
	cats := make([]string, 0, len(scores))
	for c := range scores {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if scores[cats[i]] != scores[cats[j]] {
			return scores[cats[i]] > scores[cats[j]]
		}
		return cats[i] < cats[j]
	})

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Category", "Score"})
	for _, c := range cats {
		tw.AppendRow(table.Row{c, fmt.Sprintf("%.2f", scores[c])})
	}
	return tw.RenderMarkdown()
}
