package nlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPhrasesRanking(t *testing.T) {
	k := NewKeyPhraseExtractor(DefaultLexicon())
	phrases, err := k.Extract(context.Background(), "Budget review is due. Budget review and travel. Travel is costly.")
	require.NoError(t, err)

	var texts []string
	for _, p := range phrases {
		texts = append(texts, p.Text)
	}
	assert.Equal(t, []string{"travel", "budget review", "due", "costly"}, texts)
	assert.InDelta(t, 2.0, phrases[0].Score, 1e-9)
	assert.InDelta(t, 1.0, phrases[1].Score, 1e-9)
}

func TestKeyPhrasesTopNAndPunctuation(t *testing.T) {
	k := NewKeyPhraseExtractor(DefaultLexicon())
	k.TopN = 2
	phrases, err := k.Extract(context.Background(), "Alpha beta, gamma delta; epsilon zeta.")
	require.NoError(t, err)

	require.Len(t, phrases, 2)
	assert.Equal(t, "alpha beta", phrases[0].Text)
	assert.Equal(t, "gamma delta", phrases[1].Text)
}

func TestKeyPhrasesEmpty(t *testing.T) {
	phrases, err := NewKeyPhraseExtractor(DefaultLexicon()).Extract(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, phrases)
	assert.Empty(t, phrases)
}
