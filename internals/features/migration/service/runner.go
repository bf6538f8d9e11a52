// file: internals/features/migration/service/runner.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StatePaused    RunState = "paused"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

var (
	ErrAlreadyRunning = errors.New("a migration run is already active")
	ErrNotPaused      = errors.New("run is not paused")
)

const maxStoredEvents = 50

type RunnerConfig struct {
	BatchSize       int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	CallTimeout     time.Duration
	InterBatchDelay time.Duration
	EmptyBatchLimit int
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		BatchSize:       DefaultBatchSize,
		MaxRetries:      3,
		RetryBaseDelay:  2 * time.Second,
		CallTimeout:     30 * time.Second,
		InterBatchDelay: 2 * time.Second,
		EmptyBatchLimit: 3,
	}
}

type RunEvent struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// RunnerStatus is the operator-facing snapshot returned by getState.
type RunnerStatus struct {
	State            RunState     `json:"state"`
	NextOffset       int          `json:"nextOffset"`
	BatchSize        int          `json:"batchSize"`
	EmptyBatches     int          `json:"emptyBatches"`
	LastResult       *BatchResult `json:"lastResult,omitempty"`
	LastError        string       `json:"lastError,omitempty"`
	LastErrorRetries int          `json:"lastErrorRetries"`
	MaxRetries       int          `json:"maxRetries"`
	Events           []RunEvent   `json:"events"`
}

// batchRunner is what the Runner drives; *BatchProcessor in production,
// a fake in tests.
type batchRunner interface {
	ProcessBatch(ctx context.Context, startOffset, batchSize int) (BatchResult, error)
	ResetProgress() error
	ResetAll(ctx context.Context) error
}

// Runner owns the migration run state machine:
//
//	Idle → Running → (Paused | Completed | Failed)
//	Paused → Running (resume), any → Idle (reset)
//
// One run at a time. The loop is a single goroutine issuing sequential batch
// calls — no worker pool, batches strictly in increasing offset order. Each
// in-flight call gets its own cancellable timeout, tracked in a registry so
// pause/reset can cut it short cooperatively.
type Runner struct {
	mu  sync.Mutex
	cfg RunnerConfig

	proc batchRunner

	state        RunState
	gen          int // bumped on every transition; stale loops exit
	nextOffset   int
	batchSize    int
	emptyBatches int

	lastResult       *BatchResult
	lastError        string
	lastErrorRetries int
	events           []RunEvent

	inflight map[string]context.CancelFunc
}

func NewRunner(proc batchRunner, cfg RunnerConfig) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.EmptyBatchLimit <= 0 {
		cfg.EmptyBatchLimit = 3
	}
	return &Runner{
		cfg:       cfg,
		proc:      proc,
		state:     StateIdle,
		batchSize: cfg.BatchSize,
		inflight:  map[string]context.CancelFunc{},
	}
}

// Start begins a fresh run from offset 0 with a zeroed checkpoint.
func (r *Runner) Start() error {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if err := r.proc.ResetProgress(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.state = StateRunning
	r.gen++
	gen := r.gen
	r.nextOffset = 0
	r.batchSize = r.cfg.BatchSize
	r.emptyBatches = 0
	r.lastResult = nil
	r.lastError = ""
	r.lastErrorRetries = 0
	r.addEventLocked("run started (batch size %d)", r.batchSize)
	r.mu.Unlock()

	go r.loop(gen)
	return nil
}

// Pause stops the loop after the current batch and cancels in-flight calls.
// A batch already committed is not rolled back.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return
	}
	r.state = StatePaused
	r.gen++
	r.addEventLocked("paused at offset %d", r.nextOffset)
	r.cancelInflightLocked()
}

// Resume continues a paused run from the retained offset.
func (r *Runner) Resume() error {
	r.mu.Lock()
	if r.state != StatePaused {
		r.mu.Unlock()
		return ErrNotPaused
	}
	r.state = StateRunning
	r.gen++
	gen := r.gen
	r.addEventLocked("resumed at offset %d", r.nextOffset)
	r.mu.Unlock()

	go r.loop(gen)
	return nil
}

// Reset cancels everything, wipes the target tables and the checkpoint, and
// returns to Idle.
func (r *Runner) Reset(ctx context.Context) error {
	r.mu.Lock()
	r.state = StateIdle
	r.gen++
	r.cancelInflightLocked()
	r.nextOffset = 0
	r.batchSize = r.cfg.BatchSize
	r.emptyBatches = 0
	r.lastResult = nil
	r.lastError = ""
	r.lastErrorRetries = 0
	r.addEventLocked("reset: checkpoint zeroed, target tables cleared")
	r.mu.Unlock()

	return r.proc.ResetAll(ctx)
}

func (r *Runner) Status() RunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]RunEvent, len(r.events))
	copy(events, r.events)

	var last *BatchResult
	if r.lastResult != nil {
		cp := *r.lastResult
		last = &cp
	}

	return RunnerStatus{
		State:            r.state,
		NextOffset:       r.nextOffset,
		BatchSize:        r.batchSize,
		EmptyBatches:     r.emptyBatches,
		LastResult:       last,
		LastError:        r.lastError,
		LastErrorRetries: r.lastErrorRetries,
		MaxRetries:       r.cfg.MaxRetries,
		Events:           events,
	}
}

func (r *Runner) loop(gen int) {
	for {
		r.mu.Lock()
		if r.gen != gen || r.state != StateRunning {
			r.mu.Unlock()
			return
		}
		offset := r.nextOffset
		size := r.batchSize
		r.mu.Unlock()

		result, err := r.callWithRetry(gen, offset, size)

		r.mu.Lock()
		if r.gen != gen || r.state != StateRunning {
			r.mu.Unlock()
			return
		}

		if err != nil {
			// retries exhausted: log and move on rather than stall the whole
			// run on one bad offset
			r.lastError = err.Error()
			r.lastErrorRetries = r.cfg.MaxRetries
			r.nextOffset = offset + size
			r.addEventLocked("offset %d failed after %d retries, skipping ahead: %v", offset, r.cfg.MaxRetries, err)
			log.Printf("[MIGRATE] offset %d failed after %d retries: %v", offset, r.cfg.MaxRetries, err)
		} else {
			res := result
			r.lastResult = &res
			r.lastError = ""
			r.lastErrorRetries = 0

			if result.ProcessedInBatch == 0 {
				r.emptyBatches++
				r.addEventLocked("empty batch at offset %d (%d/%d)", offset, r.emptyBatches, r.cfg.EmptyBatchLimit)
				if r.emptyBatches >= r.cfg.EmptyBatchLimit {
					// source has nothing left to give; the checkpoint total
					// may have drifted, so complete explicitly
					r.state = StateCompleted
					r.gen++
					r.addEventLocked("auto-completed after %d consecutive empty batches", r.emptyBatches)
					log.Printf("[MIGRATE] auto-completed after %d empty batches", r.emptyBatches)
					r.mu.Unlock()
					return
				}
			} else {
				r.emptyBatches = 0
				r.addEventLocked("offset %d: %d processed, %d ok, %d failed (%.1f%%)",
					offset, result.ProcessedInBatch, result.SuccessCount, result.FailCount, result.ProgressPercent)
				if result.Completed {
					r.state = StateCompleted
					r.gen++
					r.addEventLocked("run completed: %d/%d records", result.TotalProcessed, result.TotalRecords)
					log.Printf("[MIGRATE] run completed: %d/%d", result.TotalProcessed, result.TotalRecords)
					r.mu.Unlock()
					return
				}
				if result.NextBatchStart != nil {
					r.nextOffset = *result.NextBatchStart
				}
			}
		}
		r.mu.Unlock()

		time.Sleep(r.cfg.InterBatchDelay)
	}
}

// callWithRetry issues one batch call plus up to MaxRetries retries at the
// same offset, exponential backoff between attempts. A timeout with an
// oversized batch halves the batch size for the rest of the run (floor 5).
func (r *Runner) callWithRetry(gen, offset, size int) (BatchResult, error) {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		r.mu.Lock()
		if r.gen != gen || r.state != StateRunning {
			r.mu.Unlock()
			return BatchResult{}, context.Canceled
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CallTimeout)
		callID := uuid.NewString()
		r.inflight[callID] = cancel
		r.mu.Unlock()

		result, err := r.proc.ProcessBatch(ctx, offset, size)

		r.mu.Lock()
		delete(r.inflight, callID)
		r.mu.Unlock()
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		// pause/reset cancels the in-flight call; that is not a data error
		// and must not shrink the batch or count as a retry
		if errors.Is(err, context.Canceled) {
			return BatchResult{}, err
		}

		if isTimeout(err) {
			r.maybeShrinkBatch()
		}

		if attempt < r.cfg.MaxRetries {
			delay := r.cfg.RetryBaseDelay * (1 << attempt)
			r.mu.Lock()
			r.lastError = err.Error()
			r.lastErrorRetries = attempt + 1
			r.addEventLocked("offset %d attempt %d/%d failed: %v (retry in %s)", offset, attempt+1, r.cfg.MaxRetries, err, delay)
			r.mu.Unlock()
			time.Sleep(delay)
		}
	}
	return BatchResult{}, fmt.Errorf("offset %d: %w", offset, lastErr)
}

// working hypothesis: oversized batches cause the timeouts
func (r *Runner) maybeShrinkBatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batchSize > 10 {
		shrunk := r.batchSize / 2
		if shrunk < MinBatchSize {
			shrunk = MinBatchSize
		}
		r.addEventLocked("timeout: batch size %d → %d", r.batchSize, shrunk)
		r.batchSize = shrunk
	}
}

func (r *Runner) cancelInflightLocked() {
	for id, cancel := range r.inflight {
		cancel()
		delete(r.inflight, id)
	}
}

func (r *Runner) addEventLocked(format string, args ...interface{}) {
	r.events = append(r.events, RunEvent{At: time.Now(), Message: fmt.Sprintf(format, args...)})
	if len(r.events) > maxStoredEvents {
		r.events = r.events[len(r.events)-maxStoredEvents:]
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
