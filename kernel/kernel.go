package kernel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MixinNetwork/tickquic/logger"
)

// System is invoked exactly once per tick with the tick number.
type System func(tick uint64)

type system struct {
	name string
	run  System
}

// Kernel is the host scheduler. Systems run serially on the goroutine
// calling Tick, in the order they were registered.
type Kernel struct {
	period  time.Duration
	systems []*system
	tick    uint64
	running int32

	mutex   sync.Mutex
	ingress []func()
}

func New(period time.Duration) *Kernel {
	if period <= 0 {
		panic(fmt.Errorf("invalid kernel tick period %s", period))
	}
	return &Kernel{period: period}
}

func (k *Kernel) Register(name string, s System) {
	if atomic.LoadInt32(&k.running) != 0 {
		panic(fmt.Errorf("kernel.Register(%s) inside a tick", name))
	}
	k.systems = append(k.systems, &system{name: name, run: s})
}

func (k *Kernel) Systems() []string {
	names := make([]string, len(k.systems))
	for i, s := range k.systems {
		names[i] = s.name
	}
	return names
}

// Submit queues a mutation from any goroutine. It runs at the start of the
// next tick, before any system.
func (k *Kernel) Submit(f func()) {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	k.ingress = append(k.ingress, f)
}

func (k *Kernel) Current() uint64 {
	return atomic.LoadUint64(&k.tick)
}

func (k *Kernel) Tick() uint64 {
	if !atomic.CompareAndSwapInt32(&k.running, 0, 1) {
		panic("kernel.Tick reentered")
	}
	defer atomic.StoreInt32(&k.running, 0)

	tick := atomic.AddUint64(&k.tick, 1)
	start := time.Now()

	k.mutex.Lock()
	ingress := k.ingress
	k.ingress = nil
	k.mutex.Unlock()
	for _, f := range ingress {
		f()
	}

	for _, s := range k.systems {
		s.run(tick)
	}

	if elapsed := time.Since(start); elapsed > k.period {
		logger.Debugf("kernel.Tick(%d) => %s over period %s", tick, elapsed, k.period)
	}
	return tick
}

// Loop ticks every period until ctx is done.
func (k *Kernel) Loop(ctx context.Context) error {
	logger.Verbosef("kernel.Loop(%s, %v)", k.period, k.Systems())
	ticker := time.NewTicker(k.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Verbosef("kernel.Loop(%d) DONE %v", k.Current(), ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			k.Tick()
		}
	}
}
