package nlp

import (
	"strings"
	"unicode/utf8"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/textutil"
)

func ComputeStatistics(text string) models.TextStatistics {
	words := textutil.Words(text)
	sentences := textutil.Sentences(text)

	stats := models.TextStatistics{
		TotalCharacters: utf8.RuneCountInString(text),
		TotalWords:      len(words),
		TotalSentences:  len(sentences),
	}
	if len(words) == 0 {
		return stats
	}

	unique := make(map[string]struct{}, len(words))
	letters := 0
	for _, w := range words {
		unique[strings.ToLower(w.Text)] = struct{}{}
		letters += utf8.RuneCountInString(w.Text)
	}
	stats.UniqueWords = len(unique)
	stats.AverageWordLength = float64(letters) / float64(len(words))
	stats.VocabularyRichness = float64(len(unique)) / float64(len(words))
	if len(sentences) > 0 {
		stats.AverageSentenceLength = float64(len(words)) / float64(len(sentences))
	}
	return stats
}
