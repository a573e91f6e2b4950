package download

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/vmunix/vidpull/internal/events"
	"github.com/vmunix/vidpull/internal/resolve"
)

// Publisher broadcasts progress events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// LinkResolver resolves a video id to a download link.
type LinkResolver interface {
	Resolve(ctx context.Context, videoID string, q resolve.Quality) (*resolve.Link, error)
}

// Transport performs byte transfers. *Transferer implements it.
type Transport interface {
	Transfer(ctx context.Context, req TransferRequest, onProgress ProgressFunc) (*TransferResult, error)
}

// activeJob is the registry entry for a running job. Progress is only
// changed and published while mu is held, and never after done is set.
type activeJob struct {
	mu       sync.Mutex
	job      *Job
	progress Progress
	cancel   context.CancelFunc
	done     bool
}

// Manager runs jobs, owns their live progress and the active registry.
type Manager struct {
	transport Transport
	resolver  LinkResolver
	bus       Publisher
	probe     CacheProbe
	cacheDir  string
	log       *slog.Logger

	mu     sync.Mutex
	active map[string]*activeJob
	paths  *pathRegistry
}

// NewManager creates a new download manager.
func NewManager(transport Transport, resolver LinkResolver, bus Publisher, cacheDir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		transport: transport,
		resolver:  resolver,
		bus:       bus,
		cacheDir:  cacheDir,
		log:       log,
		active:    make(map[string]*activeJob),
		paths:     newPathRegistry(),
	}
}

// CacheDir returns the directory downloads are written to.
func (m *Manager) CacheDir() string {
	return m.cacheDir
}

// Fetch resolves and downloads a single video outside of any pool.
func (m *Manager) Fetch(ctx context.Context, videoID string, q resolve.Quality) Result {
	link, err := m.resolver.Resolve(ctx, videoID, q)
	if err != nil {
		m.log.Warn("fetch resolve failed", "video_id", videoID, "error", err)
		return Result{VideoID: videoID, Status: StatusError, Err: err}
	}
	return m.Execute(ctx, NewJob(link, m.cacheDir))
}

// Hold marks path as needed by a caller outside Execute, typically until a
// finished file has been consumed. Every Hold must be paired with Release.
func (m *Manager) Hold(path string) {
	m.paths.hold(path)
}

// Release drops a Hold. With discard set the file is removed once no other
// job or caller holds the path; the result reports whether it was removed.
func (m *Manager) Release(path string, discard bool) (bool, error) {
	return m.paths.release(path, discard)
}

// Execute runs job to a terminal state: cache hit, transfer, failure or
// cancellation. It matches the ExecFunc signature. Jobs sharing a
// destination path run one at a time; a later one usually finds the file
// complete and finishes as a cache hit.
func (m *Manager) Execute(ctx context.Context, job *Job) Result {
	jctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lock := m.paths.hold(job.DestinationPath)
	defer func() { _, _ = m.paths.release(job.DestinationPath, false) }()

	aj := &activeJob{
		job:    job,
		cancel: cancel,
		progress: Progress{
			JobID:       job.ID,
			VideoID:     job.VideoID,
			DisplayName: job.DisplayName,
			Status:      StatusPending,
			TotalBytes:  job.ExpectedSize,
		},
	}
	m.register(aj)
	defer m.unregister(job.ID)
	m.publish(jctx, aj)

	if err := lock.lock(jctx); err != nil {
		m.finish(ctx, aj, StatusCancelled, fmt.Errorf("%w: %w", ErrCancelled, err), nil)
		return m.result(aj, nil)
	}
	defer lock.unlock()

	if !m.update(jctx, aj, func(p *Progress) error { return p.transition(StatusDownloading) }) {
		return m.result(aj, nil)
	}

	if m.probe.Hit(job.DestinationPath, job.ExpectedSize) {
		m.log.Debug("cache hit", "job_id", job.ID, "video_id", job.VideoID, "path", job.DestinationPath)
		m.finish(ctx, aj, StatusCompleted, nil, func(p *Progress) {
			p.BytesDownloaded = job.ExpectedSize
			p.Percent = 100
		})
		res := m.result(aj, nil)
		if res.Success {
			res.CacheHit = true
			res.Bytes = job.ExpectedSize
		}
		return res
	}

	tr, err := m.transport.Transfer(jctx, TransferRequest{
		URL:          job.SourceURL,
		Dest:         job.DestinationPath,
		ExpectedSize: job.ExpectedSize,
	}, func(tp TransferProgress) {
		m.update(jctx, aj, func(p *Progress) error {
			p.BytesDownloaded = tp.BytesDownloaded
			p.TotalBytes = tp.TotalBytes
			p.Percent = tp.Percent
			p.BytesPerSecond = tp.BytesPerSecond
			return nil
		})
	})

	switch {
	case err == nil:
		m.finish(ctx, aj, StatusCompleted, nil, func(p *Progress) {
			p.BytesDownloaded = tr.Bytes
			p.Percent = 100
		})
		m.log.Info("download complete", "job_id", job.ID, "video_id", job.VideoID, "bytes", tr.Bytes, "attempts", tr.Attempts)
	case jctx.Err() != nil:
		m.finish(ctx, aj, StatusCancelled, err, nil)
	default:
		m.finish(ctx, aj, StatusError, err, nil)
		m.log.Warn("download failed", "job_id", job.ID, "video_id", job.VideoID, "error", err)
	}

	res := m.result(aj, err)
	if tr != nil {
		res.Attempts = tr.Attempts
		res.Bytes = tr.Bytes
	}
	return res
}

// Cancel stops a running job. The job leaves the registry immediately and
// a terminal cancelled event is its last event.
func (m *Manager) Cancel(ctx context.Context, jobID string) error {
	m.mu.Lock()
	aj, ok := m.active[jobID]
	delete(m.active, jobID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel %s: %w", jobID, ErrJobNotFound)
	}

	aj.mu.Lock()
	if aj.done {
		aj.mu.Unlock()
		return fmt.Errorf("cancel %s: %w", jobID, ErrJobNotFound)
	}
	if err := aj.progress.transition(StatusCancelled); err != nil {
		aj.mu.Unlock()
		return fmt.Errorf("cancel %s: %w", jobID, err)
	}
	aj.progress.Error = ErrCancelled.Error()
	aj.done = true
	m.emit(ctx, aj)
	aj.mu.Unlock()

	aj.cancel()
	m.log.Info("download cancelled", "job_id", jobID, "video_id", aj.job.VideoID)
	return nil
}

// Active returns a snapshot of the progress of every running job.
func (m *Manager) Active() []Progress {
	m.mu.Lock()
	jobs := make([]*activeJob, 0, len(m.active))
	for _, aj := range m.active {
		jobs = append(jobs, aj)
	}
	m.mu.Unlock()

	out := make([]Progress, 0, len(jobs))
	for _, aj := range jobs {
		aj.mu.Lock()
		out = append(out, aj.progress)
		aj.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b Progress) int {
		if c := strings.Compare(a.VideoID, b.VideoID); c != 0 {
			return c
		}
		return strings.Compare(a.JobID, b.JobID)
	})
	return out
}

func (m *Manager) register(aj *activeJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[aj.job.ID] = aj
}

func (m *Manager) unregister(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, jobID)
}

// update applies fn and publishes unless the job already reached a terminal
// state. It reports whether the update was applied.
func (m *Manager) update(ctx context.Context, aj *activeJob, fn func(p *Progress) error) bool {
	aj.mu.Lock()
	defer aj.mu.Unlock()
	if aj.done {
		return false
	}
	if err := fn(&aj.progress); err != nil {
		m.log.Error("progress update rejected", "job_id", aj.job.ID, "error", err)
		return false
	}
	m.emit(ctx, aj)
	return true
}

// finish moves the job to a terminal status and publishes the final event.
// It is a no-op if Cancel got there first.
func (m *Manager) finish(ctx context.Context, aj *activeJob, to Status, cause error, fn func(p *Progress)) {
	aj.mu.Lock()
	defer aj.mu.Unlock()
	if aj.done {
		return
	}
	if err := aj.progress.transition(to); err != nil {
		m.log.Error("terminal transition rejected", "job_id", aj.job.ID, "error", err)
		return
	}
	if fn != nil {
		fn(&aj.progress)
	}
	if cause != nil {
		aj.progress.Error = cause.Error()
	}
	aj.done = true
	m.emit(ctx, aj)
}

func (m *Manager) publish(ctx context.Context, aj *activeJob) {
	aj.mu.Lock()
	defer aj.mu.Unlock()
	m.emit(ctx, aj)
}

// emit publishes the current progress. Callers hold aj.mu.
func (m *Manager) emit(ctx context.Context, aj *activeJob) {
	if m.bus == nil {
		return
	}
	p := aj.progress
	e := &events.DownloadProgressed{
		BaseEvent:       events.NewBaseEvent(events.EventDownloadProgressed, events.EntityJob, p.JobID),
		JobID:           p.JobID,
		VideoID:         p.VideoID,
		DisplayName:     p.DisplayName,
		Status:          string(p.Status),
		Percent:         p.Percent,
		BytesDownloaded: p.BytesDownloaded,
		TotalBytes:      p.TotalBytes,
		BytesPerSecond:  p.BytesPerSecond,
		Error:           p.Error,
	}
	if err := m.bus.Publish(context.WithoutCancel(ctx), e); err != nil {
		m.log.Warn("publish progress failed", "job_id", p.JobID, "error", err)
	}
}

// result builds the Result from the job's terminal progress.
func (m *Manager) result(aj *activeJob, err error) Result {
	aj.mu.Lock()
	status := aj.progress.Status
	aj.mu.Unlock()

	res := Result{
		JobID:   aj.job.ID,
		VideoID: aj.job.VideoID,
		Status:  status,
		Success: status == StatusCompleted,
		Path:    aj.job.DestinationPath,
		Err:     err,
	}
	if status == StatusCancelled && err == nil {
		res.Err = ErrCancelled
	}
	return res
}

// transition changes status if the state machine allows it.
func (p *Progress) transition(to Status) error {
	if !p.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	return nil
}
