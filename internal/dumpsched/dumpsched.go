// Package dumpsched runs the dump pipeline's chunk-level work queue: a
// shared longest-job-first priority queue drained by a fixed pool of
// worker goroutines, each owning one snapshot-bound session for its whole
// lifetime, and cooperatively cancellable at chunk and row-batch boundaries.
// Rate limiting uses one token bucket that all workers draw from, so the
// limit applies to their combined read rate, not to each thread separately.
package dumpsched

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DevSingh98/mysql-shell/internal/chunker"
	"github.com/DevSingh98/mysql-shell/internal/session"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
)

// State is a chunk job's position in the Queued -> Running -> {Done,
// Retriable, Fatal} state machine.
type State int

const (
	Queued State = iota
	Running
	Done
	Retriable
	Fatal
)

// MaxRetries bounds how many times a chunk may return to the queue after a
// Retriable outcome before the scheduler gives up on it as Fatal.
const MaxRetries = 5

// Job is one chunk of work, carrying its own retry count and the
// insertion sequence used to break size ties in FIFO order.
type Job struct {
	Chunk         chunker.ChunkDescriptor
	EstimatedSize int64 // predicted byte budget, used for longest-job-first ordering
	ChunkIndex    int
	seq           int
	retries       int
}

// ProgressRecorder is the subset of the progress log a scheduler run needs.
// internal/progress implements it.
type ProgressRecorder interface {
	ChunkDone(ctx context.Context, schema, table string, chunkIndex int) error
	ChunkRetriable(ctx context.Context, schema, table string, chunkIndex int, cause error) error
}

// Executor runs one job to completion against the given session, streaming
// rows to the Dump Writer. It must check Cancelled between row batches and
// return promptly once set.
type Executor func(ctx context.Context, job Job, sess *session.Session, cancelled *atomic.Bool) error

type jobQueue []*Job

func (q jobQueue) Len() int { return len(q) }
func (q jobQueue) Less(i, j int) bool {
	if q[i].EstimatedSize != q[j].EstimatedSize {
		return q[i].EstimatedSize > q[j].EstimatedSize // longest job first
	}
	return q[i].seq < q[j].seq // then insertion order
}
func (q jobQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *jobQueue) Push(x any)        { *q = append(*q, x.(*Job)) }
func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Scheduler owns the shared job queue and its shared rate limiter.
type Scheduler struct {
	mu       sync.Mutex
	queue    jobQueue
	nextSeq  int
	progress ProgressRecorder

	cancelled atomic.Bool
	limiter   *rate.Limiter // nil when maxRate is 0 (unlimited)
}

// New builds a Scheduler. maxRateBytesPerSec of 0 disables rate limiting.
func New(progress ProgressRecorder, maxRateBytesPerSec int64) *Scheduler {
	s := &Scheduler{progress: progress}
	if maxRateBytesPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(maxRateBytesPerSec), int(maxRateBytesPerSec))
	}
	return s
}

// Enqueue adds chunks to the queue, each becoming one Job. Call before Run.
func (s *Scheduler) Enqueue(chunks []chunker.ChunkDescriptor, estimatedSize int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		heap.Push(&s.queue, &Job{Chunk: c, EstimatedSize: estimatedSize, ChunkIndex: i, seq: s.nextSeq})
		s.nextSeq++
	}
}

// Cancel sets the cooperative cancellation flag observed by Run's workers
// at chunk and row-batch boundaries.
func (s *Scheduler) Cancel() { s.cancelled.Store(true) }

func (s *Scheduler) pop() (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&s.queue).(*Job), true
}

func (s *Scheduler) requeue(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(&s.queue, j)
}

// WaitForTokens blocks until n bytes' worth of rate-limit tokens are
// available, a no-op when unlimited. Executors call this before each read.
func (s *Scheduler) WaitForTokens(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.WaitN(ctx, n)
}

// Run drains the queue with one goroutine per session, each goroutine
// owning its session for the whole run. Returns the first fatal error, if
// any; a Retriable outcome that exhausts MaxRetries becomes Fatal.
func (s *Scheduler) Run(ctx context.Context, sessions []*session.Session, exec Executor) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error {
			for {
				if s.cancelled.Load() {
					return nil
				}
				job, ok := s.pop()
				if !ok {
					return nil
				}

				err := exec(ctx, *job, sess, &s.cancelled)
				if err == nil {
					if s.progress != nil {
						if perr := s.progress.ChunkDone(ctx, job.Chunk.Schema, job.Chunk.Table, job.ChunkIndex); perr != nil {
							return perr
						}
					}
					continue
				}

				if !shellerr.IsFatal(err) && job.retries < MaxRetries {
					job.retries++
					if s.progress != nil {
						if perr := s.progress.ChunkRetriable(ctx, job.Chunk.Schema, job.Chunk.Table, job.ChunkIndex, err); perr != nil {
							return perr
						}
					}
					s.requeue(job)
					continue
				}

				s.Cancel()
				return shellerr.Wrap(shellerr.KindOf(err), "chunk failed", err)
			}
		})
	}
	return g.Wait()
}
