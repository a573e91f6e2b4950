// Package archive builds a streaming zip of downloaded videos with per-item
// error entries and a summary manifest.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vmunix/vidpull/internal/download"
	"github.com/vmunix/vidpull/internal/events"
	"github.com/vmunix/vidpull/internal/resolve"
)

// Request is a bulk archive request.
type Request struct {
	VideoIDs []string
	Quality  resolve.Quality
}

// Resolver resolves many ids with bounded parallelism.
type Resolver interface {
	ResolveAll(ctx context.Context, ids []string, q resolve.Quality, concurrency int) []resolve.Resolution
}

// Scheduler runs jobs to completion. *download.Pool implements it.
type Scheduler interface {
	Run(ctx context.Context, jobs []*download.Job, exec download.ExecFunc, settle download.SettleFunc) error
}

// Executor runs a single job and tracks who still needs its file on disk.
// *download.Manager implements it.
type Executor interface {
	Execute(ctx context.Context, job *download.Job) download.Result
	Hold(path string)
	Release(path string, discard bool) (bool, error)
}

// Deps are the collaborators of a Builder. Bus and History are optional.
type Deps struct {
	Resolver Resolver
	Pool     Scheduler
	Manager  Executor
	Bus      download.Publisher
	History  *HistoryStore
}

// Config tunes a Builder.
type Config struct {
	CacheDir           string
	KeepFiles          bool
	ResolveConcurrency int
}

// Builder drives resolve, transfer and archive for a bulk request.
type Builder struct {
	deps Deps
	cfg  Config
	log  *slog.Logger
	now  func() time.Time
}

// NewBuilder creates an archive builder.
func NewBuilder(deps Deps, cfg Config, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ResolveConcurrency <= 0 {
		cfg.ResolveConcurrency = resolve.DefaultConcurrency
	}
	return &Builder{
		deps: deps,
		cfg:  cfg,
		log:  log,
		now:  time.Now,
	}
}

// run is the state of one Build call.
type run struct {
	summary *Summary
	index   map[string]int // video id -> position in summary.Outcomes
	held    map[string]bool
	zw      *zipWriter
}

func (r *run) record(videoID, entry string, err error) {
	o := &r.summary.Outcomes[r.index[videoID]]
	o.Entry = entry
	if err == nil {
		o.Success = true
		r.summary.Success++
		return
	}
	o.Error = err.Error()
	r.summary.Errors++
}

// Build streams a zip to w holding one content or ERROR_<id>.txt entry per
// distinct requested id, followed by download_summary.txt. Per-video
// failures never abort the run; only failures writing to w do, and those
// are returned wrapped in ErrArchive.
func (b *Builder) Build(ctx context.Context, req Request, w io.Writer) (*Summary, error) {
	ids := dedupe(req.VideoIDs)
	quality := req.Quality
	if quality == "" {
		quality = resolve.QualityAuto
	}

	r := &run{
		summary: &Summary{
			ID:        uuid.NewString(),
			Quality:   quality.String(),
			Total:     len(ids),
			StartedAt: b.now(),
			Outcomes:  make([]Outcome, len(ids)),
		},
		index: make(map[string]int, len(ids)),
		held:  make(map[string]bool, len(ids)),
		zw:    newZipWriter(w, b.now),
	}
	for i, id := range ids {
		r.index[id] = i
		r.summary.Outcomes[i].VideoID = id
	}

	log := b.log.With("archive_id", r.summary.ID)
	log.Info("archive started", "videos", len(ids), "quality", quality)
	b.publish(ctx, &events.ArchiveStarted{
		BaseEvent: events.NewBaseEvent(events.EventArchiveStarted, events.EntityArchive, r.summary.ID),
		ArchiveID: r.summary.ID,
		Total:     len(ids),
		Quality:   quality.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var jobs []*download.Job
	for _, res := range b.deps.Resolver.ResolveAll(ctx, ids, quality, b.cfg.ResolveConcurrency) {
		if res.Err != nil {
			b.appendError(r, res.VideoID, res.Err)
			continue
		}
		job := download.NewJob(res.Link, b.cfg.CacheDir)
		b.deps.Manager.Hold(job.DestinationPath)
		r.held[job.DestinationPath] = true
		jobs = append(jobs, job)
	}
	defer func() {
		for path := range r.held {
			b.release(r, path, false)
		}
	}()

	if r.zw.Err() == nil {
		runErr := b.deps.Pool.Run(ctx, jobs, b.deps.Manager.Execute, func(job *download.Job, res download.Result) {
			b.settle(r, job, res)
			if r.zw.Err() != nil {
				cancel()
			}
		})
		if runErr != nil && r.zw.Err() == nil {
			log.Warn("archive run interrupted", "error", runErr)
		}
	}

	r.summary.FinishedAt = b.now()
	if r.zw.Err() == nil {
		_, _ = r.zw.AddText(SummaryName, "", r.summary.Text())
		_ = r.zw.Close()
	}

	if err := r.zw.Err(); err != nil {
		log.Error("archive failed", "error", err, "entries", r.zw.Entries())
		b.recordHistory(ctx, r.summary, err)
		return r.summary, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	log.Info("archive complete",
		"total", r.summary.Total,
		"success", r.summary.Success,
		"errors", r.summary.Errors,
		"duration_ms", r.summary.FinishedAt.Sub(r.summary.StartedAt).Milliseconds(),
	)
	b.recordHistory(ctx, r.summary, nil)
	b.publish(ctx, &events.ArchiveCompleted{
		BaseEvent: events.NewBaseEvent(events.EventArchiveCompleted, events.EntityArchive, r.summary.ID),
		ArchiveID: r.summary.ID,
		Total:     r.summary.Total,
		Success:   r.summary.Success,
		Errors:    r.summary.Errors,
	})
	return r.summary, nil
}

// settle appends a terminal job to the archive. Calls are serialised by the
// pool.
func (b *Builder) settle(r *run, job *download.Job, res download.Result) {
	discard := false
	defer func() { b.release(r, job.DestinationPath, discard) }()

	if r.zw.Err() != nil {
		return
	}
	if !res.Success {
		err := res.Err
		if err == nil {
			err = fmt.Errorf("download %s", res.Status)
		}
		b.appendError(r, job.VideoID, err)
		return
	}

	name := job.DisplayName
	if name == "" {
		name = job.VideoID
	}
	entry, err := r.zw.AddFile(download.SanitizeFilename(name)+".mp4", download.SanitizeFilename(job.VideoID), res.Path)
	if err != nil {
		if r.zw.Err() == nil {
			// Source file unreadable; the container is still sound.
			b.appendError(r, job.VideoID, err)
		}
		return
	}
	r.record(job.VideoID, entry, nil)
	discard = !b.cfg.KeepFiles
}

// release drops this run's hold on path. The file is only removed when
// discard is set and no other run or fetch still holds it.
func (b *Builder) release(r *run, path string, discard bool) {
	if !r.held[path] {
		return
	}
	delete(r.held, path)
	if _, err := b.deps.Manager.Release(path, discard); err != nil {
		b.log.Warn("remove cached file failed", "path", path, "error", err)
	}
}

func (b *Builder) appendError(r *run, videoID string, cause error) {
	entry, err := r.zw.AddText("ERROR_"+download.SanitizeFilename(videoID)+".txt", "", cause.Error()+"\n")
	if err != nil {
		return
	}
	r.record(videoID, entry, cause)
}

func (b *Builder) recordHistory(ctx context.Context, s *Summary, cause error) {
	if b.deps.History == nil {
		return
	}
	if err := b.deps.History.Record(context.WithoutCancel(ctx), s, cause); err != nil {
		b.log.Warn("record archive history failed", "archive_id", s.ID, "error", err)
	}
}

func (b *Builder) publish(ctx context.Context, e events.Event) {
	if b.deps.Bus == nil {
		return
	}
	if err := b.deps.Bus.Publish(ctx, e); err != nil {
		b.log.Warn("publish failed", "event", e.EventType(), "error", err)
	}
}

// dedupe drops empty and repeated ids, keeping first occurrences.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
