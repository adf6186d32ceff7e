// Package jobs schedules analysis runs: at most one per document at a time,
// on a bounded pool, skipping documents whose content has not changed.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
	"github.com/BerylCAtieno/document-intelligence-api/internal/pipeline"
	"github.com/BerylCAtieno/document-intelligence-api/internal/utils"
)

// ErrShuttingDown is returned by Analyze once Shutdown has been called.
var ErrShuttingDown = errors.New("coordinator is shutting down")

type Store interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetAnalysis(ctx context.Context, documentID string) (*models.Analysis, error)
	UpdateStatus(ctx context.Context, id string, status models.AnalysisStatus, lastError *string) error
	SaveAnalysis(ctx context.Context, analysis *models.Analysis) error
}

type Blobs interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*models.Analysis, error)
}

type Options struct {
	Workers    int
	RunTimeout time.Duration
}

type run struct {
	id        string
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	err       error
}

type Coordinator struct {
	store  Store
	blobs  Blobs
	runner Runner
	opts   Options
	logger *utils.Logger
	sem    *semaphore.Weighted

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	inflight map[string]*run
	// last holds the error of the most recent finished run per document
	last map[string]error
}

func NewCoordinator(store Store, blobs Blobs, runner Runner, opts Options, logger *utils.Logger) *Coordinator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 5 * time.Minute
	}
	base, stop := context.WithCancel(context.Background())
	return &Coordinator{
		store:    store,
		blobs:    blobs,
		runner:   runner,
		opts:     opts,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		base:     base,
		stop:     stop,
		inflight: map[string]*run{},
		last:     map[string]error{},
	}
}

// Analyze requests a run for documentID. It never waits for the run itself.
// A request for a document that is already running joins that run; one for
// a completed document whose content hash matches its analysis is skipped
// unless force is set.
func (c *Coordinator) Analyze(ctx context.Context, documentID string, force bool) (models.AnalyzeResponse, error) {
	resp := models.AnalyzeResponse{DocumentID: documentID}

	r, acquired, err := c.acquire(documentID)
	if err != nil {
		return resp, err
	}
	if !acquired {
		resp.Status = models.OutcomeAlreadyProcessing
		resp.RunID = r.id
		return resp, nil
	}

	doc, err := c.store.GetByID(ctx, documentID)
	if err != nil {
		c.release(documentID, r, false)
		return resp, err
	}

	if !force && doc.AnalysisStatus == models.StatusCompleted {
		prev, err := c.store.GetAnalysis(ctx, documentID)
		if err == nil && prev.SourceHash == doc.ContentHash {
			c.release(documentID, r, false)
			resp.Status = models.OutcomeSkippedUnchanged
			resp.RunID = prev.RunID
			return resp, nil
		}
		if err != nil && !errors.Is(err, utils.ErrNotFound) {
			c.release(documentID, r, false)
			return resp, err
		}
	}

	if err := c.store.UpdateStatus(ctx, documentID, models.StatusProcessing, nil); err != nil {
		c.release(documentID, r, false)
		return resp, err
	}

	c.wg.Add(1)
	go c.execute(r, *doc)

	resp.Status = models.OutcomeAccepted
	resp.RunID = r.id
	return resp, nil
}

// acquire installs the in-flight marker for documentID. When another run
// already holds it, that run is returned with acquired false.
func (c *Coordinator) acquire(documentID string) (r *run, acquired bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false, ErrShuttingDown
	}
	if existing, ok := c.inflight[documentID]; ok {
		return existing, false, nil
	}
	// the run budget starts now so a long queue counts against it
	ctx, cancel := context.WithTimeout(c.base, c.opts.RunTimeout)
	r = &run{id: utils.GenerateID(), done: make(chan struct{}), ctx: ctx, cancel: cancel}
	c.inflight[documentID] = r
	return r, true, nil
}

// release drops the marker. finished records the run's outcome for Wait.
func (c *Coordinator) release(documentID string, r *run, finished bool) {
	c.mu.Lock()
	if c.inflight[documentID] == r {
		delete(c.inflight, documentID)
	}
	if finished {
		c.last[documentID] = r.err
	}
	c.mu.Unlock()
	r.cancel()
	close(r.done)
}

func (c *Coordinator) execute(r *run, doc models.Document) {
	defer c.wg.Done()
	defer c.release(doc.ID, r, true)
	ctx := r.ctx

	log := c.logger.With("document_id", doc.ID, "run_id", r.id)
	start := time.Now()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		r.err = c.abandon(ctx, r, doc.ID, err)
		return
	}
	defer c.sem.Release(1)

	analysis, err := c.runOnce(ctx, r, doc)
	if err != nil {
		if r.cancelled.Load() || errors.Is(c.base.Err(), context.Canceled) {
			r.err = c.abandon(ctx, r, doc.ID, err)
			log.Info("analysis cancelled")
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("analysis timed out after %s: %w", c.opts.RunTimeout, err)
		}
		r.err = err
		c.fail(doc.ID, err, log)
		return
	}

	// a cancel that lands after the pipeline finished still wins
	if r.cancelled.Load() {
		r.err = c.abandon(ctx, r, doc.ID, context.Canceled)
		log.Info("analysis cancelled before save")
		return
	}

	wctx, cancel := writeContext()
	defer cancel()
	if err := c.store.SaveAnalysis(wctx, analysis); err != nil {
		r.err = err
		log.Error("failed to save analysis", "error", err)
		c.fail(doc.ID, err, log)
		return
	}
	log.Info("analysis completed",
		"partial", analysis.Partial,
		"degraded_stages", analysis.DegradedStages,
		"duration_ms", time.Since(start).Milliseconds())
}

func (c *Coordinator) runOnce(ctx context.Context, r *run, doc models.Document) (*models.Analysis, error) {
	data, err := c.blobs.Download(ctx, doc.S3Key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, utils.Wrap(utils.ErrExtractionFailed, "jobs", "download", doc.S3Key, err)
	}
	return c.runner.Run(ctx, pipeline.Input{
		DocumentID:  doc.ID,
		RunID:       r.id,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		ContentHash: doc.ContentHash,
		Revision:    doc.Revision,
		Data:        data,
	})
}

// abandon puts a cancelled document back to pending. The document may
// already be gone.
func (c *Coordinator) abandon(ctx context.Context, r *run, documentID string, cause error) error {
	if !r.cancelled.Load() && c.base.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// the run budget ran out while queued
		err := fmt.Errorf("analysis timed out waiting for a worker: %w", cause)
		c.fail(documentID, err, c.logger.With("document_id", documentID, "run_id", r.id))
		return err
	}
	wctx, cancel := writeContext()
	defer cancel()
	if err := c.store.UpdateStatus(wctx, documentID, models.StatusPending, nil); err != nil && !errors.Is(err, utils.ErrNotFound) {
		c.logger.Warn("failed to reset cancelled document", "document_id", documentID, "error", err)
	}
	return context.Canceled
}

// fail marks the document failed. The previous analysis, if any, is left as
// it was.
func (c *Coordinator) fail(documentID string, cause error, log *utils.Logger) {
	log.Error("analysis failed", "kind", utils.KindOf(cause), "error", cause)
	msg := cause.Error()
	wctx, cancel := writeContext()
	defer cancel()
	if err := c.store.UpdateStatus(wctx, documentID, models.StatusFailed, &msg); err != nil && !errors.Is(err, utils.ErrNotFound) {
		log.Error("failed to record failure", "error", err)
	}
}

func writeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// Cancel stops the in-flight run for documentID, if any. The run writes no
// analysis. It reports whether a run was found.
func (c *Coordinator) Cancel(documentID string) bool {
	c.mu.Lock()
	r, ok := c.inflight[documentID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	r.cancelled.Store(true)
	r.cancel()
	return true
}

// Wait blocks until the in-flight run for documentID ends and returns its
// error. With nothing running it returns the error of the last finished run,
// or nil.
func (c *Coordinator) Wait(ctx context.Context, documentID string) error {
	c.mu.Lock()
	r, ok := c.inflight[documentID]
	last := c.last[documentID]
	c.mu.Unlock()
	if !ok {
		return last
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forget drops what is remembered about documentID's last run.
func (c *Coordinator) Forget(documentID string) {
	c.mu.Lock()
	delete(c.last, documentID)
	c.mu.Unlock()
}

// InFlight reports whether documentID has a run in progress.
func (c *Coordinator) InFlight(documentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[documentID]
	return ok
}

// Shutdown refuses new work, cancels running analyses and waits for them to
// unwind or for ctx to end.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stop()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
