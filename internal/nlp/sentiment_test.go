package nlp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

func analyze(t *testing.T, text string) models.SentimentResult {
	t.Helper()
	res, err := NewSentimentAnalyzer(DefaultLexicon()).Analyze(context.Background(), text)
	require.NoError(t, err)
	return res
}

func TestSentimentEmptyText(t *testing.T) {
	res := analyze(t, "")
	assert.Equal(t, 0, res.TotalChunks)
	assert.Equal(t, models.SentimentNeutral, res.OverallSentiment)
	assert.Zero(t, res.AverageScore)
	assert.NotNil(t, res.Chunks)
}

func TestSentimentChunkCountsAddUp(t *testing.T) {
	for _, n := range []int{1, 4, 5, 6, 12, 23} {
		sentences := make([]string, n)
		for i := range sentences {
			switch i % 3 {
			case 0:
				sentences[i] = "Revenue growth was excellent."
			case 1:
				sentences[i] = "The delay caused a serious problem."
			default:
				sentences[i] = "The meeting is on Tuesday."
			}
		}
		res := analyze(t, strings.Join(sentences, " "))

		assert.Equal(t, (n+4)/5, res.TotalChunks, "sentences=%d", n)
		assert.Equal(t, res.TotalChunks, res.PositiveChunks+res.NegativeChunks+res.NeutralChunks)
		assert.Len(t, res.Chunks, res.TotalChunks)
		assert.GreaterOrEqual(t, res.AverageScore, -1.0)
		assert.LessOrEqual(t, res.AverageScore, 1.0)
	}
}

func TestSentimentNegationAndIntensifiers(t *testing.T) {
	a := NewSentimentAnalyzer(DefaultLexicon())

	assert.Greater(t, a.scoreChunk("The results were good."), 0.0)
	assert.Less(t, a.scoreChunk("The results were not good."), 0.0)
	assert.Greater(t, a.scoreChunk("The results were very good."), a.scoreChunk("The results were good."))
	assert.Zero(t, a.scoreChunk("The meeting is on Tuesday."))
}

func TestSentimentMajorityVote(t *testing.T) {
	a := NewSentimentAnalyzer(DefaultLexicon())
	a.ChunkSentences = 1

	res, err := a.Analyze(context.Background(), "Great success. Terrible failure.")
	require.NoError(t, err)
	assert.Equal(t, 1, res.PositiveChunks)
	assert.Equal(t, 1, res.NegativeChunks)
	assert.Equal(t, models.SentimentNeutral, res.OverallSentiment, "ties go to neutral")

	res, err = a.Analyze(context.Background(), "Great success. Excellent profit. Terrible failure.")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, res.OverallSentiment)
	assert.InDelta(t, (res.Chunks[0].Score+res.Chunks[1].Score+res.Chunks[2].Score)/3, res.AverageScore, 1e-9)
}
