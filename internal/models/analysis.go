package models

import (
	"strings"
	"time"
)

// Entity labels produced by the recognizer.
const (
	EntityPerson  = "PERSON"
	EntityOrg     = "ORG"
	EntityGPE     = "GPE"
	EntityDate    = "DATE"
	EntityMoney   = "MONEY"
	EntityPercent = "PERCENT"
	EntityProduct = "PRODUCT"
	EntityEvent   = "EVENT"
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

const CategoryOther = "other"

// Analysis stage names, as reported in DegradedStages.
const (
	StageEntities       = "entities"
	StageSentiment      = "sentiment"
	StageClassification = "classification"
	StageKeyPhrases     = "key_phrases"
)

// Analysis is the complete result of one pipeline run over a document.
// Every slice and map is non-nil once produced by the pipeline.
type Analysis struct {
	DocumentID       string               `json:"document_id"`
	RunID            string               `json:"run_id"`
	SourceHash       string               `json:"source_hash"`
	Revision         int                  `json:"revision"`
	Strategy         string               `json:"strategy"`
	RequiresOCR      bool                 `json:"requires_ocr"`
	OCRConfidence    *float64             `json:"ocr_confidence,omitempty"`
	Partial          bool                 `json:"partial"`
	DegradedStages   []string             `json:"degraded_stages"`
	Warnings         []string             `json:"warnings"`
	Text             ExtractedText        `json:"text"`
	Structure        Structure            `json:"structure"`
	Statistics       TextStatistics       `json:"statistics"`
	Entities         EntityCollection     `json:"entities"`
	Sentiment        SentimentResult      `json:"sentiment"`
	Classification   ClassificationResult `json:"classification"`
	KeyPhrases       []KeyPhrase          `json:"key_phrases"`
	CategoryMetadata CategoryMetadata     `json:"category_metadata"`
	KnowledgeGraph   KnowledgeGraph       `json:"knowledge_graph"`
	Timeline         []TimelineEvent      `json:"timeline"`
	Insights         Insights             `json:"insights"`
	CreatedAt        time.Time            `json:"created_at"`
}

type ExtractedText struct {
	Body           string `json:"body"`
	TotalWords     int    `json:"total_words"`
	TotalSentences int    `json:"total_sentences"`
	TotalLines     int    `json:"total_lines"`
	HasTables      bool   `json:"has_tables"`
	HasLists       bool   `json:"has_lists"`
}

type Structure struct {
	TotalLines        int     `json:"total_lines"`
	NonEmptyLines     int     `json:"non_empty_lines"`
	AverageLineLength float64 `json:"average_line_length"`
	HasHeaders        bool    `json:"has_headers"`
	HasTables         bool    `json:"has_tables"`
	HasLists          bool    `json:"has_lists"`
}

type TextStatistics struct {
	TotalCharacters       int     `json:"total_characters"`
	TotalWords            int     `json:"total_words"`
	TotalSentences        int     `json:"total_sentences"`
	AverageWordLength     float64 `json:"average_word_length"`
	AverageSentenceLength float64 `json:"average_sentence_length"`
	UniqueWords           int     `json:"unique_words"`
	VocabularyRichness    float64 `json:"vocabulary_richness"`
}

// Entity is a typed span of the extracted body. Start and End are byte
// offsets with 0 <= Start < End <= len(body).
type Entity struct {
	Text       string `json:"text"`
	Type       string `json:"type"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Normalized string `json:"normalized"`
}

type EntityCollection struct {
	TotalEntities  int                 `json:"total_entities"`
	EntityTypes    map[string]int      `json:"entity_types"`
	UniqueEntities map[string][]string `json:"unique_entities"`
	Entities       []Entity            `json:"entities"`
}

// NewEntityCollection returns an empty, fully initialized collection.
func NewEntityCollection() EntityCollection {
	return EntityCollection{
		EntityTypes:    map[string]int{},
		UniqueEntities: map[string][]string{},
		Entities:       []Entity{},
	}
}

// Filter returns a collection restricted to one entity type. The type is
// matched case-insensitively.
func (c EntityCollection) Filter(entityType string) EntityCollection {
	entityType = strings.ToUpper(strings.TrimSpace(entityType))
	out := NewEntityCollection()
	for _, e := range c.Entities {
		if e.Type == entityType {
			out.Entities = append(out.Entities, e)
		}
	}
	out.TotalEntities = len(out.Entities)
	if n := c.EntityTypes[entityType]; n > 0 {
		out.EntityTypes[entityType] = n
	}
	if u, ok := c.UniqueEntities[entityType]; ok {
		out.UniqueEntities[entityType] = u
	}
	return out
}

type ChunkSentiment struct {
	Index   int     `json:"index"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type SentimentResult struct {
	OverallSentiment string           `json:"overall_sentiment"`
	AverageScore     float64          `json:"average_score"`
	PositiveChunks   int              `json:"positive_chunks"`
	NegativeChunks   int              `json:"negative_chunks"`
	NeutralChunks    int              `json:"neutral_chunks"`
	TotalChunks      int              `json:"total_chunks"`
	Chunks           []ChunkSentiment `json:"chunks"`
}

func NewSentimentResult() SentimentResult {
	return SentimentResult{OverallSentiment: SentimentNeutral, Chunks: []ChunkSentiment{}}
}

type ClassificationResult struct {
	Category   string             `json:"category"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

func NewClassificationResult() ClassificationResult {
	return ClassificationResult{Category: CategoryOther, Scores: map[string]float64{}}
}

type KeyPhrase struct {
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

// CategoryMetadata holds fields that only make sense for some categories.
type CategoryMetadata struct {
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	Amounts       []string `json:"amounts,omitempty"`
	TotalAmount   string   `json:"total_amount,omitempty"`
	Dates         []string `json:"dates,omitempty"`
	Parties       []string `json:"parties,omitempty"`
	EffectiveDate string   `json:"effective_date,omitempty"`
	TransactionID string   `json:"transaction_id,omitempty"`
}

type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Size  int    `json:"size"`
}

type GraphEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	Weight   int    `json:"weight"`
}

type GraphStatistics struct {
	TotalNodes  int            `json:"total_nodes"`
	TotalEdges  int            `json:"total_edges"`
	Density     float64        `json:"density"`
	IsConnected bool           `json:"is_connected"`
	NodeTypes   map[string]int `json:"node_types"`
}

type KnowledgeGraph struct {
	Nodes      []GraphNode     `json:"nodes"`
	Edges      []GraphEdge     `json:"edges"`
	Statistics GraphStatistics `json:"statistics"`
}

type CentralEntity struct {
	GraphNode
	Centrality float64 `json:"centrality"`
}

type EntityNetwork struct {
	Center    string      `json:"center"`
	Depth     int         `json:"depth"`
	Neighbors []GraphNode `json:"neighbors"`
	Edges     []GraphEdge `json:"edges"`
}

type TimelineEvent struct {
	Date            string   `json:"date"`
	CalendarValue   string   `json:"calendar_value,omitempty"`
	Context         string   `json:"context"`
	RelatedEntities []string `json:"related_entities"`
	Position        int      `json:"position"`
}

type Insights struct {
	Summary         string   `json:"summary"`
	Confidence      float64  `json:"confidence"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations"`
}

type Comparison struct {
	DocumentID1    string   `json:"document_id_1"`
	DocumentID2    string   `json:"document_id_2"`
	Similarities   []string `json:"similarities"`
	Differences    []string `json:"differences"`
	SharedEntities []string `json:"shared_entities"`
	UniqueToFirst  []string `json:"unique_to_first"`
	UniqueToSecond []string `json:"unique_to_second"`
}
