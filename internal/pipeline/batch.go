package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// BatchError accumulates per-user failures from a batch run.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *BatchError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *BatchError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Batch runs the pipeline for many users through a worker pool.
type Batch struct {
	runner  *Runner
	workers int
	logger  zerolog.Logger
}

// NewBatch creates a batch runner with the given concurrency.
func NewBatch(runner *Runner, workers int, logger zerolog.Logger) *Batch {
	if workers <= 0 {
		workers = 4
	}
	return &Batch{runner: runner, workers: workers, logger: logger}
}

// Run processes every user. Consent-denied users are skipped silently;
// other failures accumulate into a BatchError while the rest of the batch
// proceeds. Context cancellation aborts the batch and returns the context
// error.
func (b *Batch) Run(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, len(userIDs))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			_, err := b.runner.Run(ctx, userIDs[idx])
			if errors.Is(err, ErrConsentDenied) {
				continue
			}
			if err != nil {
				b.logger.Error().Err(err).Str("user_id", userIDs[idx]).Msg("batch run failed for user")
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < len(userIDs); i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var batchErr BatchError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		batchErr.append(err)
	}
	return batchErr.asError()
}
