// Package pool provides the thread-pool contract (§4.7) used to fan
// out TCP connection handling across a bounded set of goroutines.
package pool

// Job is a single-shot unit of work executed at most once by some
// worker.
type Job func()

// ThreadPool is the contract every pool implementation satisfies:
// bounded fan-out with panic isolation. A job that panics must not
// take down its worker or the pool.
type ThreadPool interface {
	// Spawn enqueues job to run on some worker. It never blocks the
	// caller once the pool has capacity to accept more queued work.
	Spawn(job Job)

	// Close signals workers to stop after draining the queue and waits
	// for all of them to exit.
	Close()
}
