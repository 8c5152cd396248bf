package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pipcasso/fulfillment/internal/fulfillment"
	"github.com/pipcasso/fulfillment/storage/db"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultPrintRetryInterval is how often failed print orders are retried
	DefaultPrintRetryInterval = 10 * time.Minute

	// MaxConcurrentPrintRetries limits simultaneous provider calls from the job
	MaxConcurrentPrintRetries = 3

	printRetryBatch = 50
)

type PrintOrderLister interface {
	ListRetryablePrintOrders(ctx context.Context, arg db.ListRetryablePrintOrdersParams) ([]db.PrintOrder, error)
}

type PrintResubmitter interface {
	Retry(ctx context.Context, row db.PrintOrder) (string, error)
}

type PrintRetryConfig struct {
	Interval      time.Duration
	MaxAttempts   int64
	SubmitTimeout time.Duration
}

// PrintRetrier resubmits print orders whose earlier submission failed. Rows
// that reach MaxAttempts stay failed for manual follow-up.
type PrintRetrier struct {
	store     PrintOrderLister
	submitter PrintResubmitter
	config    PrintRetryConfig
	ticker    *time.Ticker
	done      chan bool
	stopOnce  sync.Once
}

func NewPrintRetrier(store PrintOrderLister, submitter PrintResubmitter, config PrintRetryConfig) *PrintRetrier {
	if config.Interval <= 0 {
		config.Interval = DefaultPrintRetryInterval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.SubmitTimeout <= 0 {
		config.SubmitTimeout = 30 * time.Second
	}
	return &PrintRetrier{
		store:     store,
		submitter: submitter,
		config:    config,
		done:      make(chan bool),
	}
}

// Start begins the retry background job
func (r *PrintRetrier) Start(ctx context.Context) {
	slog.Info("starting print order retry job", "interval", r.config.Interval, "max_attempts", r.config.MaxAttempts)

	r.ticker = time.NewTicker(r.config.Interval)

	go func() {
		for {
			select {
			case <-r.ticker.C:
				r.RetryFailed(ctx)
			case <-r.done:
				slog.Info("print order retry job stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the background job. Calling it more than once is a no-op.
func (r *PrintRetrier) Stop() {
	r.stopOnce.Do(func() {
		if r.ticker != nil {
			r.ticker.Stop()
		}
		close(r.done)
	})
}

// RetryFailed runs one pass over retryable print orders.
func (r *PrintRetrier) RetryFailed(ctx context.Context) (submitted, failed int) {
	rows, err := r.store.ListRetryablePrintOrders(ctx, db.ListRetryablePrintOrdersParams{
		MaxAttempts: r.config.MaxAttempts,
		Limit:       printRetryBatch,
	})
	if err != nil {
		slog.Error("failed to list retryable print orders", "error", err)
		return 0, 0
	}
	if len(rows) == 0 {
		slog.Debug("no print orders to retry")
		return 0, 0
	}

	sem := semaphore.NewWeighted(MaxConcurrentPrintRetries)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, row := range rows {
		if err := sem.Acquire(ctx, 1); err != nil {
			slog.Debug("context cancelled while waiting for semaphore", "error", err)
			break
		}
		wg.Add(1)

		go func(row db.PrintOrder) {
			defer wg.Done()
			defer sem.Release(1)

			callCtx, cancel := context.WithTimeout(ctx, r.config.SubmitTimeout)
			defer cancel()

			_, err := r.submitter.Retry(callCtx, row)

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, fulfillment.ErrAlreadyClaimed) {
				return
			}
			if err != nil {
				failed++
				if row.Attempts+1 >= r.config.MaxAttempts {
					slog.Error("print order exhausted retries",
						"print_order_id", row.ID,
						"session_id", row.StripeSessionID,
						"attempts", row.Attempts+1,
						"alert", true)
				}
				return
			}
			submitted++
		}(row)
	}

	wg.Wait()

	slog.Info("print order retry pass completed", "candidates", len(rows), "submitted", submitted, "failed", failed)
	return submitted, failed
}
