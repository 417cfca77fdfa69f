package pool

import (
	"sync"

	"go.uber.org/zap"
)

// SharedQueuePool is a bounded set of goroutines sharing one unbuffered
// job channel, ported from the reference engine's
// SharedQueueThreadPool (src/thread_pool/shared_queue.rs): every
// worker loops receiving jobs off the same channel and runs each
// inside a recover() boundary so a panicking job logs and gets
// dropped instead of killing the worker.
type SharedQueuePool struct {
	jobs chan Job
	wg   sync.WaitGroup
	log  *zap.SugaredLogger
}

// NewSharedQueuePool starts size worker goroutines pulling from a
// shared queue. size must be > 0.
func NewSharedQueuePool(size int, log *zap.SugaredLogger) *SharedQueuePool {
	if size <= 0 {
		panic("pool: size must be > 0")
	}
	p := &SharedQueuePool{
		jobs: make(chan Job),
		log:  log,
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(i)
	}
	return p
}

func (p *SharedQueuePool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.runJob(id, job)
	}
	if p.log != nil {
		p.log.Infow("worker shutting down", "worker", id)
	}
}

// runJob executes job inside a panic-recovery boundary, so one bad job
// never takes its worker (or the pool) down — the Go analogue of
// panic::catch_unwind in the reference implementation.
func (p *SharedQueuePool) runJob(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Errorw("worker job panicked", "worker", id, "panic", r)
			}
		}
	}()
	job()
}

// Spawn hands job to some worker to run. The channel is unbuffered, so
// Spawn blocks until a worker is free to receive it.
func (p *SharedQueuePool) Spawn(job Job) {
	p.jobs <- job
}

// Close closes the job channel and waits for every worker to drain
// and exit, mirroring Drop joining all worker threads.
func (p *SharedQueuePool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

var _ ThreadPool = (*SharedQueuePool)(nil)
