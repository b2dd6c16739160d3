package possync

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/posbridge/backend/internal/domain/possync"
)

// ---------------------------------------------------------------------------
// BatchExecutor
// ---------------------------------------------------------------------------

// PushFunc sends one chunk of operations to a provider and returns one result
// per operation, in order. A returned error means the whole chunk failed
// before any per-operation outcome was known.
type PushFunc func(ctx context.Context, ops []possync.Operation) ([]possync.OperationResult, error)

// BatchExecutor drives batched writes to a provider under its published
// limits. It chunks operations to the provider's batch size, holds the
// request rate under the per-minute ceiling, and retries transient failures
// with exponential backoff and jitter. Work not attempted before the context
// deadline is reported as such rather than failed.
type BatchExecutor struct {
	logger      *zap.Logger
	maxAttempts uint

	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchExecutor creates a batch executor. maxAttempts caps total tries per
// chunk including the first.
func NewBatchExecutor(logger *zap.Logger, maxAttempts uint) *BatchExecutor {
	if maxAttempts == 0 {
		maxAttempts = 5
	}
	return &BatchExecutor{
		logger:      logger,
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
}

// Execute runs ops against push under limits. Every submitted operation
// appears exactly once in the returned slice; the slice preserves submission
// order. Ordinary failures are expressed per operation so a partial batch
// outcome is never lost; the error return is non-nil only for fatal provider
// errors (credentials rejected, provider unreachable past the retry budget),
// which stop the batch with the remaining operations marked not attempted.
func (e *BatchExecutor) Execute(ctx context.Context, limits possync.ProviderLimits, ops []possync.Operation, push PushFunc) ([]possync.OperationResult, error) {
	results := make([]possync.OperationResult, 0, len(ops))
	if len(ops) == 0 {
		return results, nil
	}

	chunkSize := limits.MaxBatchSize
	if chunkSize <= 0 {
		chunkSize = 1
	}

	window := newRateWindow(limits.RequestsPerMinute)

	for start := 0; start < len(ops); start += chunkSize {
		end := start + chunkSize
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[start:end]

		if err := e.awaitSlot(ctx, window); err != nil {
			// Deadline hit before this chunk could be sent.
			results = append(results, notAttempted(ops[start:])...)
			return results, nil
		}

		chunkResults, err := e.pushWithRetry(ctx, chunk, push)
		if err != nil {
			if isDeadline(err) {
				results = append(results, notAttempted(ops[start:])...)
				return results, nil
			}
			// Chunk exhausted its retries: every operation in it failed.
			e.logger.Warn("batch chunk failed after retries",
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			for _, op := range chunk {
				results = append(results, possync.OperationResult{
					Operation: op,
					Status:    possync.OpStatusFailed,
					Err:       err,
				})
			}
			if possync.IsFatal(err) {
				// Pushing the remaining chunks would fail the same way;
				// surface the error so the caller aborts the run.
				results = append(results, notAttempted(ops[end:])...)
				return results, err
			}
			continue
		}

		results = append(results, chunkResults...)
	}

	return results, nil
}

// pushWithRetry sends one chunk, retrying transient failures. Rate-limit and
// provider-side errors back off exponentially with jitter; validation and
// other permanent rejections fail immediately.
func (e *BatchExecutor) pushWithRetry(ctx context.Context, chunk []possync.Operation, push PushFunc) ([]possync.OperationResult, error) {
	attempt := 0
	op := func() ([]possync.OperationResult, error) {
		attempt++
		res, err := push(ctx, chunk)
		if err == nil {
			return res, nil
		}
		if !possync.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		if attempt > 1 {
			e.logger.Debug("retrying batch chunk",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return nil, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(e.maxAttempts),
	)
}

// awaitSlot blocks until the rate window admits another request
func (e *BatchExecutor) awaitSlot(ctx context.Context, w *rateWindow) error {
	for {
		wait := w.reserve(time.Now())
		if wait <= 0 {
			return nil
		}
		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func notAttempted(ops []possync.Operation) []possync.OperationResult {
	out := make([]possync.OperationResult, len(ops))
	for i, op := range ops {
		out[i] = possync.OperationResult{Operation: op, Status: possync.OpStatusNotAttempted}
	}
	return out
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// rateWindow
// ---------------------------------------------------------------------------

// rateWindow admits at most `limit` requests per fixed one-minute window.
// Zero or negative limit means unlimited.
type rateWindow struct {
	limit       int
	windowStart time.Time
	used        int
}

func newRateWindow(limit int) *rateWindow {
	return &rateWindow{limit: limit}
}

// reserve takes a slot if one is free and returns 0, or returns how long to
// wait for the window to roll over.
func (w *rateWindow) reserve(now time.Time) time.Duration {
	if w.limit <= 0 {
		return 0
	}
	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= time.Minute {
		w.windowStart = now
		w.used = 0
	}
	if w.used < w.limit {
		w.used++
		return 0
	}
	return w.windowStart.Add(time.Minute).Sub(now)
}
