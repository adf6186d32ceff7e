// Package pipeline runs one document through routing, extraction, the NLP
// stages, graph and timeline assembly and insight synthesis.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/document-intelligence-api/internal/extractor"
	"github.com/BerylCAtieno/document-intelligence-api/internal/graph"
	"github.com/BerylCAtieno/document-intelligence-api/internal/insights"
	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/nlp"
	"github.com/BerylCAtieno/document-intelligence-api/internal/timeline"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

type Router interface {
	Route(data []byte, filename, declaredType string) (extractor.Route, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, route extractor.Route, data []byte) (*extractor.Result, error)
}

type EntityStage interface {
	Recognize(ctx context.Context, text string) (models.EntityCollection, error)
}

type SentimentStage interface {
	Analyze(ctx context.Context, text string) (models.SentimentResult, error)
}

type ClassificationStage interface {
	Classify(ctx context.Context, text string) (models.ClassificationResult, error)
}

type KeyPhraseStage interface {
	Extract(ctx context.Context, text string) ([]models.KeyPhrase, error)
}

// Stages are the enrichment stages. They only read the extracted text and
// may run concurrently.
type Stages struct {
	Entities       EntityStage
	Sentiment      SentimentStage
	Classification ClassificationStage
	KeyPhrases     KeyPhraseStage
}

func DefaultStages(lex *nlp.Lexicon) Stages {
	return Stages{
		Entities:       nlp.NewEntityRecognizer(lex),
		Sentiment:      nlp.NewSentimentAnalyzer(lex),
		Classification: nlp.NewClassifier(lex),
		KeyPhrases:     nlp.NewKeyPhraseExtractor(lex),
	}
}

type Options struct {
	// StageTimeout bounds each enrichment stage. A stage that runs over is
	// degraded to its empty result.
	StageTimeout time.Duration
	Graph        graph.Options
	Timeline     timeline.Options
}

func DefaultOptions() Options {
	return Options{
		StageTimeout: 30 * time.Second,
		Graph:        graph.DefaultOptions(),
		Timeline:     timeline.DefaultOptions(),
	}
}

// Input is one unit of work: a document's bytes plus what identifies them.
type Input struct {
	DocumentID  string
	RunID       string
	Filename    string
	ContentType string
	ContentHash string
	Revision    int
	Data        []byte
}

type Pipeline struct {
	router    Router
	extractor TextExtractor
	stages    Stages
	opts      Options
	logger    *utils.Logger
}

func New(router Router, ext TextExtractor, stages Stages, opts Options, logger *utils.Logger) *Pipeline {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = DefaultOptions().StageTimeout
	}
	return &Pipeline{router: router, extractor: ext, stages: stages, opts: opts, logger: logger}
}

// Run produces a complete Analysis. Routing and extraction errors are
// returned as is and fail the run; enrichment failures are recorded in
// DegradedStages instead. A cancelled ctx yields ctx.Err() and no Analysis.
func (p *Pipeline) Run(ctx context.Context, in Input) (*models.Analysis, error) {
	log := p.logger.With("document_id", in.DocumentID, "run_id", in.RunID)

	route, err := p.router.Route(in.Data, in.Filename, in.ContentType)
	if err != nil {
		return nil, err
	}
	log.Info("document routed", "strategy", route.Strategy, "format", route.Format, "requires_ocr", route.RequiresOCR)

	start := time.Now()
	res, err := p.extractor.Extract(ctx, route, in.Data)
	if err != nil {
		return nil, err
	}
	log.Info("text extracted",
		"words", res.Text.TotalWords,
		"warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := &models.Analysis{
		DocumentID:     in.DocumentID,
		RunID:          in.RunID,
		SourceHash:     in.ContentHash,
		Revision:       in.Revision,
		Strategy:       string(route.Strategy),
		RequiresOCR:    route.RequiresOCR,
		OCRConfidence:  res.OCRConfidence,
		DegradedStages: []string{},
		Warnings:       append([]string{}, res.Warnings...),
		Text:           res.Text,
		Structure:      res.Structure,
	}
	body := res.Text.Body

	if err := p.enrich(ctx, log, body, a); err != nil {
		return nil, err
	}

	a.Statistics = nlp.ComputeStatistics(body)
	a.CategoryMetadata = nlp.ExtractCategoryMetadata(a.Classification.Category, body, a.Entities)
	a.KnowledgeGraph = graph.Build(body, a.Entities, p.opts.Graph)
	a.Timeline = timeline.Build(body, a.Entities, p.opts.Timeline)
	a.Insights = insights.Synthesize(a)
	a.CreatedAt = time.Now().UTC()

	log.Info("analysis assembled",
		"entities", a.Entities.TotalEntities,
		"graph_nodes", a.KnowledgeGraph.Statistics.TotalNodes,
		"timeline_events", len(a.Timeline),
		"partial", a.Partial)
	return a, nil
}

// enrich runs the four NLP stages concurrently and writes their results, or
// their defaults, into a.
func (p *Pipeline) enrich(ctx context.Context, log *utils.Logger, body string, a *models.Analysis) error {
	var (
		g        errgroup.Group
		entities = models.NewEntityCollection()
		senti    = models.NewSentimentResult()
		class    = models.NewClassificationResult()
		phrases  = []models.KeyPhrase{}
		failed   [4]error
	)

	g.Go(func() error {
		v, err := runStage(ctx, p.opts.StageTimeout, func(ctx context.Context) (models.EntityCollection, error) {
			return p.stages.Entities.Recognize(ctx, body)
		})
		if err == nil {
			entities = v
		}
		failed[0] = err
		return nil
	})
	g.Go(func() error {
		v, err := runStage(ctx, p.opts.StageTimeout, func(ctx context.Context) (models.SentimentResult, error) {
			return p.stages.Sentiment.Analyze(ctx, body)
		})
		if err == nil {
			senti = v
		}
		failed[1] = err
		return nil
	})
	g.Go(func() error {
		v, err := runStage(ctx, p.opts.StageTimeout, func(ctx context.Context) (models.ClassificationResult, error) {
			return p.stages.Classification.Classify(ctx, body)
		})
		if err == nil {
			class = v
		}
		failed[2] = err
		return nil
	})
	g.Go(func() error {
		v, err := runStage(ctx, p.opts.StageTimeout, func(ctx context.Context) ([]models.KeyPhrase, error) {
			return p.stages.KeyPhrases.Extract(ctx, body)
		})
		if err == nil && v != nil {
			phrases = v
		}
		failed[3] = err
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	names := [4]string{models.StageEntities, models.StageSentiment, models.StageClassification, models.StageKeyPhrases}
	for i, err := range failed {
		if err == nil {
			continue
		}
		a.DegradedStages = append(a.DegradedStages, names[i])
		log.Warn("stage degraded", "stage", names[i],
			"error", utils.Wrap(utils.ErrStageDegraded, "pipeline", names[i], "", err))
	}
	a.Partial = len(a.DegradedStages) > 0

	a.Entities = entities
	a.Sentiment = senti
	a.Classification = class
	a.KeyPhrases = phrases
	return nil
}

// runStage calls fn with a deadline and gives up waiting once it passes, so a
// stage that ignores its context cannot hold the run. A panic is reported as
// an error.
func runStage[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("stage panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("stage timed out after %s: %w", timeout, ctx.Err())
	}
}
