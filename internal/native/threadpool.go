// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package native

import (
	"container/list"
	"fmt"
	"os"
	"strconv"
	"sync"
)

const (
	defaultThreadpoolSize = 4
	maxThreadpoolSize     = 1024
)

// work is a unit of blocking work. fn runs on a pool goroutine, done runs on
// the owning loop with 0 or ECANCELED.
type work struct {
	loop *Loop
	fn   func()
	done func(status int)
	elem *list.Element
}

var threadpool struct {
	once  sync.Once
	mu    sync.Mutex
	cond  *sync.Cond
	queue list.List
	size  int
}

// ThreadpoolSize returns the number of pool goroutines. Before the pool
// starts it reports what UV_THREADPOOL_SIZE would yield, after that the size
// fixed at start.
func ThreadpoolSize() int {
	threadpool.mu.Lock()
	n := threadpool.size
	threadpool.mu.Unlock()
	if n != 0 {
		return n
	}
	return threadpoolSizeFromEnv()
}

func threadpoolSizeFromEnv() int {
	v, ok := os.LookupEnv("UV_THREADPOOL_SIZE")
	if !ok {
		return defaultThreadpoolSize
	}
	n, err := strconv.Atoi(v)
	switch {
	case err != nil:
		return defaultThreadpoolSize
	case n < 1:
		return 1
	case n > maxThreadpoolSize:
		return maxThreadpoolSize
	}
	return n
}

func threadpoolStart(l *Loop) {
	size := threadpoolSizeFromEnv()
	threadpool.mu.Lock()
	threadpool.cond = sync.NewCond(&threadpool.mu)
	threadpool.size = size
	threadpool.mu.Unlock()
	for i := 0; i < size; i++ {
		go threadpoolWorker()
	}
	l.Logger.Debug().Int("size", size).Log("native: threadpool started")
}

func threadpoolWorker() {
	for {
		threadpool.mu.Lock()
		for threadpool.queue.Len() == 0 {
			threadpool.cond.Wait()
		}
		e := threadpool.queue.Front()
		threadpool.queue.Remove(e)
		w := e.Value.(*work)
		w.elem = nil
		threadpool.mu.Unlock()

		w.run()
		w.loop.post(func() { w.done(0) })
	}
}

func (w *work) run() {
	defer func() {
		if r := recover(); r != nil {
			w.loop.Logger.Err().
				Err(fmt.Errorf("native: work panicked: %v", r)).
				Log("native: recovered panic in threadpool")
		}
	}()
	w.fn()
}

// submitWork queues w. done is called on the loop goroutine exactly once.
func (l *Loop) submitWork(w *work, fn func(), done func(status int)) {
	threadpool.once.Do(func() { threadpoolStart(l) })

	w.loop, w.fn, w.done = l, fn, done

	threadpool.mu.Lock()
	w.elem = threadpool.queue.PushBack(w)
	threadpool.mu.Unlock()
	threadpool.cond.Signal()
}

// cancelWork removes w from the queue, failing with EBUSY if it already
// started or completed.
func cancelWork(w *work) int {
	threadpool.mu.Lock()
	if w.elem == nil {
		threadpool.mu.Unlock()
		return EBUSY
	}
	threadpool.queue.Remove(w.elem)
	w.elem = nil
	threadpool.mu.Unlock()

	w.loop.post(func() { w.done(ECANCELED) })
	return 0
}
