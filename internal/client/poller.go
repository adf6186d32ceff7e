package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

// State is the position of a Poller in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateTimedOut  State = "timed-out"
	StateErrored   State = "errored"
)

// ErrAnalysisFailed is returned when the server reports a failed run.
var ErrAnalysisFailed = errors.New("analysis failed")

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// StatusFunc fetches the current status of a document.
type StatusFunc func(ctx context.Context, id string) (*models.StatusResponse, error)

// Outcome is the terminal result of a Poll.
type Outcome struct {
	State    State
	Attempts int
	Status   *models.StatusResponse
}

// Poller waits for an analysis to finish by querying its status at a fixed
// interval. It gives up with StateTimedOut after MaxAttempts queries; that
// outcome means the run is still going, not that it failed.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int

	status StatusFunc

	mu    sync.Mutex
	state State
}

func NewPoller(status StatusFunc, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{Interval: interval, MaxAttempts: maxAttempts, status: status, state: StateIdle}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Poll queries immediately, then once per Interval. It returns an error only
// in StateErrored: the status call failed, the run failed or ctx ended.
func (p *Poller) Poll(ctx context.Context, id string) (Outcome, error) {
	p.mu.Lock()
	if p.state == StatePolling {
		p.mu.Unlock()
		return Outcome{State: StatePolling}, errors.New("poller is already running")
	}
	p.state = StatePolling
	p.mu.Unlock()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	out := Outcome{State: StatePolling}
	for {
		out.Attempts++
		st, err := p.status(ctx, id)
		if err != nil {
			return p.finish(out, StateErrored, fmt.Errorf("poll status of %s: %w", id, err))
		}
		out.Status = st

		switch st.AnalysisStatus {
		case models.StatusCompleted:
			return p.finish(out, StateSucceeded, nil)
		case models.StatusFailed:
			msg := "unknown error"
			if st.LastError != nil {
				msg = *st.LastError
			}
			return p.finish(out, StateErrored, fmt.Errorf("%w: %s", ErrAnalysisFailed, msg))
		}

		if out.Attempts >= p.MaxAttempts {
			return p.finish(out, StateTimedOut, nil)
		}

		select {
		case <-ctx.Done():
			return p.finish(out, StateErrored, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *Poller) finish(out Outcome, s State, err error) (Outcome, error) {
	out.State = s
	p.setState(s)
	return out, err
}
