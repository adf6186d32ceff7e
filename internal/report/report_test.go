package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

func fixture() (*models.Document, *models.Analysis) {
	doc := &models.Document{ID: "doc-1", Filename: "invoice.pdf", FileSize: 2048}
	ents := models.NewEntityCollection()
	ents.TotalEntities = 3
	ents.EntityTypes = map[string]int{models.EntityOrg: 2, models.EntityDate: 1}
	ents.UniqueEntities = map[string][]string{models.EntityOrg: {"Acme Corp"}, models.EntityDate: {"March 3, 2024"}}

	a := &models.Analysis{
		DocumentID:     "doc-1",
		Strategy:       "native-pdf",
		Partial:        true,
		DegradedStages: []string{models.StageSentiment},
		Entities:       ents,
		Classification: models.ClassificationResult{Category: "invoice", Confidence: 0.8,
			Scores: map[string]float64{"invoice": 0.8, "receipt": 0.2}},
		Sentiment:  models.NewSentimentResult(),
		KeyPhrases: []models.KeyPhrase{{Text: "amount due", Score: 2}},
		Timeline: []models.TimelineEvent{
			{Date: "March 3, 2024", Context: "Issued on March 3, 2024 by Acme Corp.", RelatedEntities: []string{"Acme Corp"}},
		},
		Insights: models.Insights{
			Summary:         "This appears to be an invoice document.",
			Confidence:      0.7,
			KeyFindings:     []string{"Most frequent entity type: ORG (2 mentions)"},
			Recommendations: []string{"Verify amounts and line items"},
		},
		CreatedAt: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	return doc, a
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "markdown": FormatMarkdown, "md": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
	assert.Equal(t, "text/markdown; charset=utf-8", FormatMarkdown.ContentType())
}

func TestRenderJSON(t *testing.T) {
	doc, a := fixture()
	out, err := Render(doc, a, FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		Document models.Document `json:"document"`
		Analysis models.Analysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "doc-1", decoded.Document.ID)
	assert.Equal(t, "invoice", decoded.Analysis.Classification.Category)
	assert.True(t, strings.HasPrefix(string(out), "{\n  "))
}

func TestRenderMarkdown(t *testing.T) {
	doc, a := fixture()
	out, err := Render(doc, a, FormatMarkdown)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Analysis Report: invoice.pdf\n"))
	for _, h := range []string{"Summary", "Classification", "Sentiment", "Entities", "Key Phrases",
		"Knowledge Graph", "Timeline", "Key Findings", "Recommendations"} {
		assert.Contains(t, md, "\n## "+h+"\n")
	}
	assert.Contains(t, md, "- Size: 2.0 kB")
	assert.Contains(t, md, "degraded stages: sentiment")
	assert.Contains(t, md, "| ORG | 2 | Acme Corp |")
	assert.Contains(t, md, "| invoice | 0.80 |")
	assert.Contains(t, md, "- amount due (2.00)")
	assert.Contains(t, md, "- **March 3, 2024**: Issued on March 3, 2024 by Acme Corp. _(Acme Corp)_")
	assert.Contains(t, md, "- Verify amounts and line items")
	assert.Less(t, strings.Index(md, "| DATE |"), strings.Index(md, "| ORG |"))
}

func TestRenderMarkdownEmptySections(t *testing.T) {
	doc := &models.Document{ID: "d", Filename: "empty.txt"}
	a := &models.Analysis{Entities: models.NewEntityCollection(), Sentiment: models.NewSentimentResult()}

	out, err := Render(doc, a, FormatMarkdown)
	require.NoError(t, err)
	md := string(out)
	assert.Contains(t, md, "No entities found.")
	assert.Contains(t, md, "No dated events found.")
	assert.NotContains(t, md, "Partial analysis")
}
