package events

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/utils"
)

const defaultBusBuffer = 1024

// Bus fans events out to subscribers on a single dispatcher goroutine, so
// subscribers see events in publish order. Publish never blocks: when the
// buffer is full the event is dropped and logged.
type Bus struct {
	queue    chan Event
	stopChan chan struct{}
	done     chan struct{}

	mu          sync.RWMutex
	subscribers []func(Event)

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewBus creates a bus with the given buffer size (0 selects the default).
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBusBuffer
	}
	return &Bus{
		queue:    make(chan Event, buffer),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Subscribe registers fn. Subscribers added after Start receive only later
// events.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

func (b *Bus) Publish(e Event) {
	select {
	case b.queue <- e:
	default:
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event": e.Type,
			"scope": e.Scope,
		}).Warn("event bus full, dropping event")
	}
}

func (b *Bus) Start() {
	b.startOnce.Do(func() {
		go b.run()
	})
}

// Stop drains what is already queued and returns once the dispatcher exits.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	b.startOnce.Do(func() { close(b.done) })
	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case e := <-b.queue:
			b.dispatch(e)
		case <-b.stopChan:
			for {
				select {
				case e := <-b.queue:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	subs := make([]func(Event), len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					utils.ErrorLogger.WithFields(logrus.Fields{
						"event": e.Type,
						"panic": r,
					}).Error("event subscriber panicked")
				}
			}()
			fn(e)
		}()
	}
}
