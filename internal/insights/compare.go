package insights

import (
	"fmt"
	"sort"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

// Compare contrasts two analyses by category, sentiment and the normalized
// entities they mention.
func Compare(a, b *models.Analysis) models.Comparison {
	c := models.Comparison{
		DocumentID1:    a.DocumentID,
		DocumentID2:    b.DocumentID,
		Similarities:   []string{},
		Differences:    []string{},
		SharedEntities: []string{},
		UniqueToFirst:  []string{},
		UniqueToSecond: []string{},
	}

	ca, cb := a.Classification.Category, b.Classification.Category
	if ca == cb {
		c.Similarities = append(c.Similarities, fmt.Sprintf("Both are %s documents", ca))
	} else {
		c.Differences = append(c.Differences, fmt.Sprintf("Different types: %s vs %s", ca, cb))
	}
	sa, sb := a.Sentiment.OverallSentiment, b.Sentiment.OverallSentiment
	if sa == sb {
		c.Similarities = append(c.Similarities, fmt.Sprintf("Both have %s sentiment", sa))
	} else {
		c.Differences = append(c.Differences, fmt.Sprintf("Different sentiment: %s vs %s", sa, sb))
	}

	first, second := entityKeys(a), entityKeys(b)
	for k, label := range first {
		if _, ok := second[k]; ok {
			c.SharedEntities = append(c.SharedEntities, label)
		} else {
			c.UniqueToFirst = append(c.UniqueToFirst, label)
		}
	}
	for k, label := range second {
		if _, ok := first[k]; !ok {
			c.UniqueToSecond = append(c.UniqueToSecond, label)
		}
	}
	sort.Strings(c.SharedEntities)
	sort.Strings(c.UniqueToFirst)
	sort.Strings(c.UniqueToSecond)
	return c
}

// entityKeys maps type:normalized to the first surface form seen.
func entityKeys(a *models.Analysis) map[string]string {
	out := map[string]string{}
	for _, e := range a.Entities.Entities {
		k := e.Type + ":" + e.Normalized
		if _, ok := out[k]; !ok {
			out[k] = e.Normalized
		}
	}
	return out
}
