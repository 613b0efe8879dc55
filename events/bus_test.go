package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInOrder(t *testing.T) {
	bus := NewBus(16)
	var (
		mu  sync.Mutex
		got []string
	)
	bus.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
	})
	bus.Start()

	for _, typ := range []string{TypeNewOrder, TypeOrderStatus, TypeTableStatus} {
		bus.Publish(New(typ, RestaurantScope(1), nil))
	}
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{TypeNewOrder, TypeOrderStatus, TypeTableStatus}, got)
}

func TestBus_FullBufferDropsWithoutBlocking(t *testing.T) {
	bus := NewBus(2)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(New(TypeNewOrder, RestaurantScope(1), i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a bus that was never started")
	}

	count := 0
	bus.Subscribe(func(Event) { count++ })
	bus.Start()
	bus.Stop()
	assert.Equal(t, 2, count)
}

func TestBus_PanickingSubscriberDoesNotStopOthers(t *testing.T) {
	bus := NewBus(4)
	received := make(chan Event, 1)
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(e Event) { received <- e })
	bus.Start()
	defer bus.Stop()

	bus.Publish(New(TypeWaiterRequested, TableScope(1, 3), nil))
	select {
	case e := <-received:
		assert.Equal(t, TableScope(1, 3), e.Scope)
		assert.True(t, e.Scope.IsTable())
	case <-time.After(time.Second):
		t.Fatal("second subscriber never ran")
	}
}

func TestBus_StopWithoutStart(t *testing.T) {
	bus := NewBus(0)
	stopped := make(chan struct{})
	go func() {
		bus.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop hung")
	}
}

func TestNopAndPublisherFunc(t *testing.T) {
	Nop.Publish(New(TypeNewOrder, RestaurantScope(1), nil))

	var got Event
	PublisherFunc(func(e Event) { got = e }).Publish(New(TypeSessionTotals, RestaurantScope(9), "x"))
	require.Equal(t, TypeSessionTotals, got.Type)
	assert.False(t, got.Scope.IsTable())
	assert.False(t, got.OccurredAt.IsZero())
}
