package reporting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// WriterConfig controls the BigQuery writer behavior.
type WriterConfig struct {
	OrderTotalsTable string
	BatchSize        int
	RetryPolicy      RetryPolicy
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter inserts order totals rows with retries and optional batching.
// It is safe for concurrent use by the subscription callbacks.
type BigQueryWriter struct {
	client    tableInserter
	table     string
	batchSize int
	retry     RetryPolicy
	sleep     func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	buffer []OrderTotalsRow
}

// NewWriter creates a writer backed by a shared BigQuery client.
func NewWriter(client tableInserter, cfg WriterConfig) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.OrderTotalsTable)
	if table == "" {
		return nil, errors.New("order totals table is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retry := cfg.RetryPolicy
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}

	return &BigQueryWriter{
		client:    client,
		table:     table,
		batchSize: batchSize,
		retry:     retry,
		sleep:     sleepContext,
	}, nil
}

// InsertOrderTotals buffers a row and flushes once the batch is full. When
// that flush fails, row is dropped from the batch so its message can be
// redelivered, while rows from already acknowledged messages are kept for
// the next flush.
func (w *BigQueryWriter) InsertOrderTotals(ctx context.Context, row OrderTotalsRow) error {
	w.mu.Lock()
	w.buffer = append(w.buffer, row)
	var batch []OrderTotalsRow
	if len(w.buffer) >= w.batchSize {
		batch = w.take()
	}
	w.mu.Unlock()
	if batch == nil {
		return nil
	}

	err := w.insertWithRetry(ctx, batch)
	if err != nil {
		w.requeue(batch, row.EventID)
	}
	return err
}

// Flush writes any buffered rows immediately. Rows stay buffered when the
// insert fails.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.take()
	w.mu.Unlock()
	if batch == nil {
		return nil
	}
	if err := w.insertWithRetry(ctx, batch); err != nil {
		w.requeue(batch, "")
		return err
	}
	return nil
}

// Buffered reports how many rows are waiting for a flush.
func (w *BigQueryWriter) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// take hands the current buffer to the caller. w.mu must be held.
func (w *BigQueryWriter) take() []OrderTotalsRow {
	if len(w.buffer) == 0 {
		return nil
	}
	batch := w.buffer
	w.buffer = nil
	return batch
}

// requeue puts a failed batch back in front of rows buffered since, skipping
// the row whose message is about to be redelivered.
func (w *BigQueryWriter) requeue(batch []OrderTotalsRow, skipEventID string) {
	kept := make([]OrderTotalsRow, 0, len(batch))
	for _, row := range batch {
		if skipEventID != "" && row.EventID == skipEventID {
			continue
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return
	}
	w.mu.Lock()
	w.buffer = append(kept, w.buffer...)
	w.mu.Unlock()
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, batch []OrderTotalsRow) error {
	rows := make([]any, len(batch))
	for i := range batch {
		rows[i] = &batch[i]
	}
	attempts := 0
	backoff := w.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.client.InsertRows(ctx, w.table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", w.table, err)
		}

		if err := w.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, w.retry.MaximumBackoff)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, inner := range multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var pme cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if len(pme) == 0 {
			return false
		}
		for _, rowErr := range pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return isRetryableGRPCCode(st.Code())
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}
