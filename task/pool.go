package task

import "sync"

// Pool runs submitted bodies away from the tick goroutine. Submit must
// return without waiting for the body.
type Pool interface {
	Submit(body func())
}

// Goroutines runs every body on its own goroutine, which is the worker
// pool the Go runtime already multiplexes onto threads.
type Goroutines struct {
	wg sync.WaitGroup
}

func (g *Goroutines) Submit(body func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		body()
	}()
}

// Wait blocks until every submitted body has returned, only for shutdown.
func (g *Goroutines) Wait() {
	g.wg.Wait()
}

// Inline runs the body inside Submit. It blocks the caller and only exists
// so tests get results on the very next poll.
type Inline struct{}

func (Inline) Submit(body func()) {
	body()
}

// Manual queues bodies until the caller runs them, which lets tests park an
// operation in its pending state for as many ticks as they like.
type Manual struct {
	mutex sync.Mutex
	queue []func()
}

func (m *Manual) Submit(body func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.queue = append(m.queue, body)
}

func (m *Manual) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.queue)
}

// RunOne runs the oldest queued body and reports whether there was one.
func (m *Manual) RunOne() bool {
	m.mutex.Lock()
	if len(m.queue) == 0 {
		m.mutex.Unlock()
		return false
	}
	body := m.queue[0]
	m.queue = m.queue[1:]
	m.mutex.Unlock()

	body()
	return true
}

// RunAll drains the queue, including bodies submitted while draining, and
// returns how many ran.
func (m *Manual) RunAll() int {
	var n int
	for m.RunOne() {
		n++
	}
	return n
}
