package p2p

// Event is one completed lifecycle transition, either Connected,
// DataReceived or Disconnected.
type Event interface {
	SessionId() string
}

type Connected struct {
	Session SessionInfo
}

// DataReceived carries one whole stream worth of bytes.
type DataReceived struct {
	Session SessionInfo
	Data    []byte
}

// Disconnected follows a Connected event for the same session, once.
type Disconnected struct {
	Session SessionInfo
}

func (e Connected) SessionId() string    { return e.Session.Id.String() }
func (e DataReceived) SessionId() string { return e.Session.Id.String() }
func (e Disconnected) SessionId() string { return e.Session.Id.String() }

// Bus queues events during a tick and hands them to every subscriber when
// flushed, in the order they were published.
type Bus struct {
	queue       []Event
	subscribers []func(Event)
}

func (b *Bus) Subscribe(f func(Event)) {
	b.subscribers = append(b.subscribers, f)
}

func (b *Bus) Publish(e Event) {
	b.queue = append(b.queue, e)
}

func (b *Bus) Pending() int {
	return len(b.queue)
}

// Flush delivers the queued events. Events published by subscribers while
// flushing wait for the next flush.
func (b *Bus) Flush() int {
	queue := b.queue
	b.queue = nil
	for _, e := range queue {
		for _, f := range b.subscribers {
			f(e)
		}
	}
	return len(queue)
}
