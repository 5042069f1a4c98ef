// executor.go — the single-threaded UI-thread affinity model (spec §5).
//
// Every operation against tracked objects — registry mutation, introspection,
// interaction, hook install/uninstall — must run on one goroutine, the same
// way the real Framework's event loop owns one OS thread. Executor is that
// goroutine: callers post work and either fire-and-forget or wait for a
// result, the same shape gasoline's per-connection send-channel pump uses
// (internal/server Client.readPump/writePump in the teacher's sibling repo).
package uithread

import (
	"errors"
	"sync/atomic"
)

// Executor runs posted jobs one at a time on a dedicated goroutine.
type Executor struct {
	jobs    chan func()
	done    chan struct{}
	running int32
}

// New starts the executor's goroutine. Call Stop to shut it down.
func New() *Executor {
	e := &Executor{
		jobs: make(chan func(), 256),
		done: make(chan struct{}),
	}
	atomic.StoreInt32(&e.running, 1)
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer close(e.done)
	for job := range e.jobs {
		job()
	}
}

// Post schedules a job to run on the executor goroutine and returns
// immediately. If the executor has been stopped, Post is a silent no-op —
// callers that need confirmation should use PostWait instead.
func (e *Executor) Post(job func()) {
	if atomic.LoadInt32(&e.running) == 0 {
		return
	}
	defer func() { recover() }() //nolint:errcheck // jobs channel may close concurrently with Stop
	e.jobs <- job
}

// PostWait schedules a job and blocks until it has run, returning whatever
// the job returns. Use this for JSON-RPC handler dispatch (spec §6
// "schedules the handler for execution on the UI thread... serialises the
// outgoing response on that same thread").
func (e *Executor) PostWait(job func() (any, error)) (any, error) {
	type result struct {
		val any
		err error
	}
	if atomic.LoadInt32(&e.running) == 0 {
		return nil, errors.New("uithread: executor stopped")
	}
	resultCh := make(chan result, 1)
	e.Post(func() {
		v, err := job()
		resultCh <- result{v, err}
	})
	r := <-resultCh
	return r.val, r.err
}

// Stop drains remaining jobs and halts the goroutine. Safe to call once.
func (e *Executor) Stop() {
	if !atomic.CompareAndSwapInt32(&e.running, 1, 0) {
		return
	}
	close(e.jobs)
	<-e.done
}
