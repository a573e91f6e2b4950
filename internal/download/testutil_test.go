package download

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vmunix/vidpull/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// payload returns n deterministic bytes.
func payload(n int) []byte {
	return bytes.Repeat([]byte("0123456789"), n/10+1)[:n]
}

// testTransferer returns a transferer whose backoff sleeps are recorded
// instead of waited.
func testTransferer(cfg TransferConfig) (*Transferer, *[]time.Duration) {
	tr := NewTransferer(cfg, nil, testLogger())
	var delays []time.Duration
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return tr, &delays
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.DownloadProgressed
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dp, ok := e.(*events.DownloadProgressed); ok {
		p.events = append(p.events, dp)
	}
	return nil
}

func (p *recordingPublisher) forJob(jobID string) []*events.DownloadProgressed {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.DownloadProgressed
	for _, e := range p.events {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out
}
