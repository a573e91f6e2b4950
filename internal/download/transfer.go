package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TransferRequest describes one byte transfer.
type TransferRequest struct {
	URL          string
	Dest         string
	ExpectedSize int64 // 0 when the host omits size metadata
}

// TransferProgress is a point-in-time report for the current attempt.
type TransferProgress struct {
	BytesDownloaded int64
	TotalBytes      int64
	Percent         float64
	BytesPerSecond  float64
	Final           bool
}

// ProgressFunc receives transfer progress. It is called from the
// transferring goroutine.
type ProgressFunc func(TransferProgress)

// TransferResult describes a finished or abandoned transfer.
type TransferResult struct {
	Path     string
	Bytes    int64
	Attempts int
	Resumed  bool // at least one attempt continued a partial file
	Skipped  bool // destination was already complete, no request made
}

// TransferConfig tunes a Transferer.
type TransferConfig struct {
	Resume           bool
	Retry            RetryPolicy
	AttemptTimeout   time.Duration
	ProgressInterval time.Duration
}

// DefaultTransferConfig returns resume on, default retries, 60s attempts
// and 500ms progress reports.
func DefaultTransferConfig() TransferConfig {
	return TransferConfig{
		Resume:           true,
		Retry:            DefaultRetryPolicy(),
		AttemptTimeout:   60 * time.Second,
		ProgressInterval: 500 * time.Millisecond,
	}
}

// Transferer streams URLs to disk with resume and retry.
type Transferer struct {
	client *http.Client
	cfg    TransferConfig
	log    *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewTransferer creates a transferer. A nil client uses a client without
// an overall timeout; each attempt is bounded by cfg.AttemptTimeout.
func NewTransferer(cfg TransferConfig, client *http.Client, log *slog.Logger) *Transferer {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 500 * time.Millisecond
	}
	return &Transferer{
		client: client,
		cfg:    cfg,
		log:    log,
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

// Transfer downloads req.URL to req.Dest. The returned result is never nil.
// After the last permitted attempt fails the error wraps ErrRetryExhausted
// and the last cause.
func (t *Transferer) Transfer(ctx context.Context, req TransferRequest, onProgress ProgressFunc) (*TransferResult, error) {
	if onProgress == nil {
		onProgress = func(TransferProgress) {}
	}
	res := &TransferResult{Path: req.Dest}

	if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
		return res, fmt.Errorf("create destination dir: %w", err)
	}

	if size, ok := fileSize(req.Dest); ok && req.ExpectedSize > 0 && size == req.ExpectedSize {
		t.log.Debug("destination already complete", "path", req.Dest, "size", size)
		res.Bytes = size
		res.Skipped = true
		onProgress(TransferProgress{BytesDownloaded: size, TotalBytes: size, Percent: 100, Final: true})
		return res, nil
	}

	policy := t.cfg.Retry
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts(); attempt++ {
		if attempt > 1 {
			delay := policy.Backoff(attempt - 1)
			t.log.Info("retrying transfer", "path", req.Dest, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr)
			if err := t.sleep(ctx, delay); err != nil {
				return res, fmt.Errorf("%w: %w", ErrCancelled, err)
			}
		}
		res.Attempts = attempt

		start := t.now()
		n, resumed, err := t.attempt(ctx, req, onProgress)
		res.Resumed = res.Resumed || resumed
		if err == nil {
			res.Bytes = n
			t.log.Debug("transfer complete",
				"path", req.Dest,
				"bytes", n,
				"attempt", attempt,
				"duration_ms", t.now().Sub(start).Milliseconds(),
			)
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return res, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		if !Retryable(err) {
			return res, err
		}
		if errors.Is(err, ErrSizeMismatch) {
			if rmErr := os.Remove(req.Dest); rmErr != nil && !os.IsNotExist(rmErr) {
				t.log.Warn("discard partial file failed", "path", req.Dest, "error", rmErr)
			}
		}
	}

	t.log.Warn("transfer failed", "path", req.Dest, "attempts", res.Attempts, "error", lastErr)
	return res, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, res.Attempts, lastErr)
}

// attempt performs a single request. It reports the final size on disk and
// whether the request continued a partial file.
func (t *Transferer) attempt(ctx context.Context, req TransferRequest, onProgress ProgressFunc) (int64, bool, error) {
	actx, cancel := context.WithTimeout(ctx, t.cfg.AttemptTimeout)
	defer cancel()

	var offset int64
	if size, ok := fileSize(req.Dest); ok && t.cfg.Resume && req.ExpectedSize > 0 && size < req.ExpectedSize {
		offset = size
	}

	httpReq, err := http.NewRequestWithContext(actx, http.MethodGet, req.URL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}
	if offset > 0 {
		httpReq.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return 0, false, classify(actx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	flags := os.O_CREATE | os.O_WRONLY
	switch {
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
		flags |= os.O_APPEND
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		if offset > 0 {
			t.log.Debug("range ignored, restarting", "path", req.Dest, "offset", offset)
		}
		offset = 0
		flags |= os.O_TRUNC
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		_ = os.Remove(req.Dest)
		return 0, false, fmt.Errorf("%w: range from byte %d not satisfiable", ErrSizeMismatch, offset)
	case retryableStatus(resp.StatusCode):
		return 0, false, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	default:
		return 0, false, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}
	resumed := offset > 0

	f, err := os.OpenFile(req.Dest, flags, 0o644)
	if err != nil {
		return 0, resumed, fmt.Errorf("open destination: %w", err)
	}

	total := req.ExpectedSize
	if total == 0 && resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}
	pw := &progressWriter{
		offset:   offset,
		total:    total,
		interval: t.cfg.ProgressInterval,
		now:      t.now,
		fn:       onProgress,
	}
	pw.start = t.now()
	pw.last = pw.start

	n, copyErr := io.Copy(io.MultiWriter(f, pw), resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return offset + n, resumed, classify(actx, copyErr)
	}
	if closeErr != nil {
		return offset + n, resumed, fmt.Errorf("close destination: %w", closeErr)
	}

	final := offset + n
	pw.report(t.now(), true)
	if !complete(final, req.ExpectedSize) {
		return final, resumed, fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, final, req.ExpectedSize)
	}
	return final, resumed, nil
}

// complete applies the completion rule: exact size, or any bytes when the
// size is unknown.
func complete(final, expected int64) bool {
	if expected > 0 {
		return final == expected
	}
	return final > 0
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

// classify maps a request or read error to a sentinel. Cancellation of the
// parent context is left for the caller to detect.
func classify(actx context.Context, err error) error {
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransferTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTransferTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// progressWriter counts bytes of one attempt and reports at most once per
// interval.
type progressWriter struct {
	offset   int64 // bytes already on disk before this attempt
	written  int64
	total    int64
	interval time.Duration
	start    time.Time
	last     time.Time
	now      func() time.Time
	fn       ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if now := w.now(); now.Sub(w.last) >= w.interval {
		w.last = now
		w.report(now, false)
	}
	return len(p), nil
}

func (w *progressWriter) report(now time.Time, final bool) {
	var speed float64
	if elapsed := now.Sub(w.start).Seconds(); elapsed > 0 {
		speed = float64(w.written) / elapsed
	}
	done := w.offset + w.written
	var percent float64
	if w.total > 0 {
		percent = min(100, float64(done)*100/float64(w.total))
	}
	w.fn(TransferProgress{
		BytesDownloaded: done,
		TotalBytes:      w.total,
		Percent:         percent,
		BytesPerSecond:  speed,
		Final:           final,
	})
}
