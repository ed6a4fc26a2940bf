package task

import (
	"fmt"
	"sync"
)

// Handle is the tick side view of a body running on a Pool. It is polled,
// never waited on.
type Handle[T any] struct {
	mutex    sync.Mutex
	result   T
	ready    bool
	consumed bool
	detached bool
	release  func(T)
}

// Spawn submits body to the pool right away and returns its handle.
func Spawn[T any](pool Pool, body func() T) *Handle[T] {
	h := &Handle[T]{}
	pool.Submit(func() {
		h.resolve(body())
	})
	return h
}

// PollOnce reports whether the body has finished, and hands over its result
// the first time it does. Polling a consumed or detached handle is a bug.
func (h *Handle[T]) PollOnce() (T, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.consumed || h.detached {
		panic(fmt.Errorf("task handle polled after consume %t or detach %t", h.consumed, h.detached))
	}
	if !h.ready {
		var zero T
		return zero, false
	}
	h.consumed = true
	res := h.result
	var zero T
	h.result = zero
	return res, true
}

// Detach abandons the handle. There is no way to stop the body, so its
// result, whenever it shows up, is given to release instead.
func (h *Handle[T]) Detach(release func(T)) {
	h.mutex.Lock()
	if h.consumed || h.detached {
		h.mutex.Unlock()
		return
	}
	h.detached = true
	h.release = release
	if !h.ready {
		h.mutex.Unlock()
		return
	}
	res := h.result
	var zero T
	h.result = zero
	h.mutex.Unlock()

	if release != nil {
		release(res)
	}
}

func (h *Handle[T]) resolve(res T) {
	h.mutex.Lock()
	if !h.detached {
		h.result = res
		h.ready = true
		h.mutex.Unlock()
		return
	}
	release := h.release
	h.mutex.Unlock()

	if release != nil {
		release(res)
	}
}
